package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/sokha/lunchpool/internal/service"
)

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := s.authSvc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	session, err := s.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		// Failed logins read as unauthorized, not forbidden.
		if errors.Is(err, service.ErrPermissionDenied) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) listRestaurantsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.groups.Restaurants())
}

func (s *Server) listGroupsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.groups.Groups())
}

func (s *Server) getGroupHandler(w http.ResponseWriter, r *http.Request) {
	group, err := s.groups.Group(chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) createGroupHandler(w http.ResponseWriter, r *http.Request) {
	var in service.CreateGroupInput
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// The session, not the payload, decides who owns the group.
	in.OwnerID = userID(r.Context())
	if in.OwnerName == "" {
		in.OwnerName = username(r.Context())
	}

	group, err := s.groups.CreateGroup(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

type viewRequest struct {
	Selections map[string]int `json:"selections"`
}

func (s *Server) groupViewHandler(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := s.groups.View(chi.URLParam(r, "groupID"), userID(r.Context()), req.Selections)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) joinGroupHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	group, err := s.groups.JoinGroup(ctx, chi.URLParam(r, "groupID"), userID(ctx), username(ctx))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) leaveGroupHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	group, err := s.groups.LeaveGroup(ctx, chi.URLParam(r, "groupID"), userID(ctx))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

type addDishRequest struct {
	DishID string `json:"dishId"`
	Qty    int    `json:"qty"`
}

func (s *Server) addDishHandler(w http.ResponseWriter, r *http.Request) {
	var req addDishRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	group, err := s.groups.AddDish(ctx, service.AddDishInput{
		GroupID: chi.URLParam(r, "groupID"),
		UserID:  userID(ctx),
		DishID:  req.DishID,
		Qty:     req.Qty,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	group, err := s.groups.Submit(ctx, chi.URLParam(r, "groupID"), userID(ctx))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

func (s *Server) deleteGroupHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")

	// Ownership is a transport-layer check; the store deletes unconditionally.
	group, err := s.groups.Group(groupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if group.OwnerID != userID(ctx) {
		writeError(w, http.StatusForbidden,
			fmt.Errorf("only the owner can delete: %w", service.ErrPermissionDenied))
		return
	}

	if err := s.groups.DeleteGroup(ctx, groupID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
