package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sokha/lunchpool/internal/models"
	"github.com/sokha/lunchpool/internal/storage/sqlite"
)

var testStart = time.Date(2025, 6, 2, 11, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, cfg Config) (*GroupService, *clockwork.FakeClock) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := clockwork.NewFakeClockAt(testStart)
	svc := NewGroupService(store, clock, cfg)
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	return svc, clock
}

func mustCreate(t *testing.T, svc *GroupService, clock clockwork.Clock, owner string) *models.Group {
	t.Helper()

	g, err := svc.CreateGroup(context.Background(), CreateGroupInput{
		Name:         "Friday Lunch",
		RestaurantID: "kh01",
		OwnerID:      owner,
		OwnerName:    "Sokha",
		DeadlineAt:   clock.Now().Add(time.Hour).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	return g
}

func TestCreateGroup(t *testing.T) {
	svc, clock := newTestService(t, Config{})

	g := mustCreate(t, svc, clock, "u1")
	if g.ID == "" {
		t.Fatal("expected assigned group ID")
	}
	if len(g.Members) != 1 || g.Members[0] != "u1" {
		t.Errorf("members = %v, want [u1]", g.Members)
	}
	if len(g.MemberDetails) != 1 || g.MemberDetails[0].Name != "Sokha" {
		t.Errorf("memberDetails = %v, want owner snapshot", g.MemberDetails)
	}
	if len(g.Dishes) != 0 {
		t.Errorf("dishes = %v, want empty", g.Dishes)
	}
	if g.SubmittedAt != 0 {
		t.Errorf("submittedAt = %d, want 0", g.SubmittedAt)
	}

	// New groups are prepended to the snapshot.
	second, err := svc.CreateGroup(context.Background(), CreateGroupInput{
		Name:         "Snacks",
		RestaurantID: "kh02",
		OwnerID:      "u2",
		DeadlineAt:   clock.Now().Add(time.Hour).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	groups := svc.Groups()
	if len(groups) != 2 || groups[0].ID != second.ID {
		t.Errorf("snapshot head = %v, want newest group first", groups[0].ID)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	ctx := context.Background()
	future := clock.Now().Add(time.Hour).UnixMilli()

	tests := []struct {
		name string
		in   CreateGroupInput
	}{
		{
			name: "empty name",
			in:   CreateGroupInput{RestaurantID: "kh01", OwnerID: "u1", DeadlineAt: future},
		},
		{
			name: "empty restaurant",
			in:   CreateGroupInput{Name: "Lunch", OwnerID: "u1", DeadlineAt: future},
		},
		{
			name: "missing owner",
			in:   CreateGroupInput{Name: "Lunch", RestaurantID: "kh01", DeadlineAt: future},
		},
		{
			name: "deadline too soon",
			in: CreateGroupInput{
				Name: "Lunch", RestaurantID: "kh01", OwnerID: "u1",
				DeadlineAt: clock.Now().Add(time.Minute).UnixMilli(),
			},
		},
		{
			name: "deadline in the past",
			in: CreateGroupInput{
				Name: "Lunch", RestaurantID: "kh01", OwnerID: "u1",
				DeadlineAt: clock.Now().Add(-time.Hour).UnixMilli(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateGroup(ctx, tt.in); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
	if len(svc.Groups()) != 0 {
		t.Error("rejected creations must not touch the snapshot")
	}
}

func TestEndToEndScenario(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	ctx := context.Background()

	g := mustCreate(t, svc, clock, "u1")

	if _, err := svc.JoinGroup(ctx, g.ID, "u2", "Dara"); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u2", DishID: "d101", Qty: 2}); err != nil {
		t.Fatalf("AddDish failed: %v", err)
	}
	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u1", DishID: "d102", Qty: 1}); err != nil {
		t.Fatalf("AddDish failed: %v", err)
	}

	view, err := svc.View(g.ID, "u1", nil)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	rows := view.PicksByDish
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].DishID != "d101" || rows[0].Total != 2 {
		t.Errorf("row 0 = %s total %d, want d101 total 2", rows[0].DishID, rows[0].Total)
	}
	if len(rows[0].By) != 1 || rows[0].By[0].UserID != "u2" {
		t.Errorf("row 0 contributors = %v, want [u2]", rows[0].By)
	}
	if rows[1].DishID != "d102" || rows[1].Total != 1 {
		t.Errorf("row 1 = %s total %d, want d102 total 1", rows[1].DishID, rows[1].Total)
	}
	if !view.Countdown.Open {
		t.Error("countdown closed, want open one hour before deadline")
	}

	submitted, err := svc.Submit(ctx, g.ID, "u1")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submitted.SubmittedAt != clock.Now().UnixMilli() {
		t.Errorf("submittedAt = %d, want %d", submitted.SubmittedAt, clock.Now().UnixMilli())
	}

	// Without LockAfterSubmit further writes remain mechanically possible.
	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u2", DishID: "d101", Qty: 1}); err != nil {
		t.Errorf("AddDish after submit = %v, want allowed by default policy", err)
	}
}

func TestSubmitNonOwner(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	ctx := context.Background()
	g := mustCreate(t, svc, clock, "u1")

	if _, err := svc.JoinGroup(ctx, g.ID, "u2", "Dara"); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	if _, err := svc.Submit(ctx, g.ID, "u2"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}

	got, err := svc.Group(g.ID)
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}
	if got.SubmittedAt != 0 {
		t.Errorf("submittedAt = %d, want 0 after denied submit", got.SubmittedAt)
	}
}

func TestSubmitNotFound(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	if _, err := svc.Submit(context.Background(), "nope", "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLockAfterSubmit(t *testing.T) {
	svc, clock := newTestService(t, Config{LockAfterSubmit: true})
	ctx := context.Background()
	g := mustCreate(t, svc, clock, "u1")

	if _, err := svc.Submit(ctx, g.ID, "u1"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u1", DishID: "d101", Qty: 1}); !errors.Is(err, ErrGroupClosed) {
		t.Errorf("AddDish err = %v, want ErrGroupClosed", err)
	}
	if _, err := svc.JoinGroup(ctx, g.ID, "u3", "Late"); !errors.Is(err, ErrGroupClosed) {
		t.Errorf("JoinGroup err = %v, want ErrGroupClosed", err)
	}
}

func TestLeaveGroup(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	ctx := context.Background()
	g := mustCreate(t, svc, clock, "u1")

	if _, err := svc.LeaveGroup(ctx, g.ID, "u1"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("owner leave err = %v, want ErrPermissionDenied", err)
	}

	if _, err := svc.JoinGroup(ctx, g.ID, "u2", "Dara"); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u2", DishID: "d101", Qty: 2}); err != nil {
		t.Fatalf("AddDish failed: %v", err)
	}

	left, err := svc.LeaveGroup(ctx, g.ID, "u2")
	if err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}
	if left.IsMember("u2") {
		t.Error("u2 still a member after leave")
	}

	// Default policy: the departed member's saved picks still aggregate.
	view, err := svc.View(g.ID, "u1", nil)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(view.PicksByDish) != 1 || view.PicksByDish[0].Total != 2 {
		t.Errorf("rows = %v, want d101 total 2 kept after leave", view.PicksByDish)
	}
}

func TestLeaveGroupPrunePolicy(t *testing.T) {
	svc, clock := newTestService(t, Config{PruneDishesOnLeave: true})
	ctx := context.Background()
	g := mustCreate(t, svc, clock, "u1")

	if _, err := svc.JoinGroup(ctx, g.ID, "u2", "Dara"); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}
	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u2", DishID: "d101", Qty: 2}); err != nil {
		t.Fatalf("AddDish failed: %v", err)
	}
	if _, err := svc.LeaveGroup(ctx, g.ID, "u2"); err != nil {
		t.Fatalf("LeaveGroup failed: %v", err)
	}

	view, err := svc.View(g.ID, "u1", nil)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(view.PicksByDish) != 0 {
		t.Errorf("rows = %v, want none after pruned leave", view.PicksByDish)
	}
}

func TestAddDishValidation(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	ctx := context.Background()
	g := mustCreate(t, svc, clock, "u1")

	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u1", Qty: 1}); !errors.Is(err, ErrValidation) {
		t.Errorf("missing dish err = %v, want ErrValidation", err)
	}
	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u1", DishID: "d101"}); !errors.Is(err, ErrValidation) {
		t.Errorf("zero delta err = %v, want ErrValidation", err)
	}
	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: "nope", UserID: "u1", DishID: "d101", Qty: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown group err = %v, want ErrNotFound", err)
	}
}

func TestViewNonMemberIsolation(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	g := mustCreate(t, svc, clock, "u1")

	view, err := svc.View(g.ID, "stranger", map[string]int{"d101": 5})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(view.MergedPicks["stranger"]) != 0 {
		t.Errorf("stranger picks = %v, want none merged", view.MergedPicks["stranger"])
	}
	if len(view.PicksByDish) != 0 {
		t.Errorf("rows = %v, want none", view.PicksByDish)
	}
}

func TestViewMergesLocalSelections(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	ctx := context.Background()
	g := mustCreate(t, svc, clock, "u1")

	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u1", DishID: "d101", Qty: 2}); err != nil {
		t.Fatalf("AddDish failed: %v", err)
	}

	// Local zero suppresses the saved pick; a new local pick shows up.
	view, err := svc.View(g.ID, "u1", map[string]int{"d101": 0, "d103": 1})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(view.PicksByDish) != 1 || view.PicksByDish[0].DishID != "d103" {
		t.Errorf("rows = %v, want only d103", view.PicksByDish)
	}

	// The unsaved preview never reaches canonical state.
	got, err := svc.Group(g.ID)
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}
	if got.Quantity("u1", "d101") != 2 {
		t.Errorf("saved d101 = %d, want 2 untouched", got.Quantity("u1", "d101"))
	}
}

func TestMemberListAndPlaceholders(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	ctx := context.Background()
	g := mustCreate(t, svc, clock, "u1")

	// Joins without a username fall back to a deterministic placeholder.
	if _, err := svc.JoinGroup(ctx, g.ID, "anon-7890", ""); err != nil {
		t.Fatalf("JoinGroup failed: %v", err)
	}

	got, err := svc.Group(g.ID)
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}
	members := svc.MemberList(got)
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}
	if members[0].Name != "Sokha" || members[0].Initial != "S" {
		t.Errorf("owner = %+v, want Sokha/S", members[0])
	}
	if members[1].Name != "User 7890" || members[1].Initial != "U" {
		t.Errorf("anon = %+v, want placeholder User 7890/U", members[1])
	}
}

func TestDeltaAdditivity(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	ctx := context.Background()
	g := mustCreate(t, svc, clock, "u1")

	if _, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u1", DishID: "d101", Qty: 2}); err != nil {
		t.Fatalf("AddDish failed: %v", err)
	}
	after, err := svc.AddDish(ctx, AddDishInput{GroupID: g.ID, UserID: "u1", DishID: "d101", Qty: -2})
	if err != nil {
		t.Fatalf("AddDish failed: %v", err)
	}
	if _, ok := after.Dishes["u1"]["d101"]; ok {
		t.Error("expected +2 then -2 to restore the absent key")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	g := mustCreate(t, svc, clock, "u1")

	got, err := svc.Group(g.ID)
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}
	got.Name = "mutated"
	got.Members = append(got.Members, "intruder")

	again, err := svc.Group(g.ID)
	if err != nil {
		t.Fatalf("Group failed: %v", err)
	}
	if again.Name != "Friday Lunch" || len(again.Members) != 1 {
		t.Error("canonical state mutated through a returned copy")
	}
}

func TestDeleteGroup(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	ctx := context.Background()
	g := mustCreate(t, svc, clock, "u1")

	if err := svc.DeleteGroup(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}
	if _, err := svc.Group(g.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}
	if err := svc.DeleteGroup(ctx, g.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestCountdownFollowsClock(t *testing.T) {
	svc, clock := newTestService(t, Config{})
	g := mustCreate(t, svc, clock, "u1")

	view, err := svc.View(g.ID, "u1", nil)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if !view.Countdown.Open || view.Countdown.Minutes != 60 {
		t.Errorf("countdown = %+v, want open with 60 minutes", view.Countdown)
	}

	clock.Advance(2 * time.Hour)
	view, err = svc.View(g.ID, "u1", nil)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if view.Countdown.Open || view.Countdown.Minutes != 0 || view.Countdown.Seconds != 0 {
		t.Errorf("countdown = %+v, want closed and clamped to zero", view.Countdown)
	}
}
