package service

import (
	"errors"
	"fmt"

	"github.com/sokha/lunchpool/internal/storage"
)

// Error kinds surfaced by the group store. Callers map these to transport
// codes; messages wrap them with context via fmt.Errorf and %w.
var (
	// ErrNotFound means a group or user reference did not resolve.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied means a non-owner attempted an owner-only action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation means a malformed payload: empty name, unknown
	// restaurant, deadline too soon, zero delta.
	ErrValidation = errors.New("invalid request")

	// ErrGroupClosed means the group was already submitted and the store
	// is configured to lock submitted groups.
	ErrGroupClosed = errors.New("group already submitted")
)

// GatewayError wraps a persistence failure, preserving the opaque cause.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// wrapStoreErr converts a storage error into a store-level error kind:
// unresolved references become ErrNotFound, everything else a GatewayError.
func wrapStoreErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &GatewayError{Op: op, Err: err}
}
