package service

import (
	"strings"
	"time"
	"unicode"

	"github.com/sokha/lunchpool/internal/models"
	"github.com/sokha/lunchpool/internal/picks"
)

// GroupView is the read-only view model handed to the rendering layer:
// the canonical group, the derived member list, the viewer's merged preview,
// the per-dish aggregation, and the deadline countdown.
type GroupView struct {
	Group       *models.Group             `json:"group"`
	Members     []models.Member           `json:"members"`
	MergedPicks map[string]map[string]int `json:"mergedPicks"`
	PicksByDish []picks.DishSummary       `json:"picksByDish"`
	Countdown   picks.Remaining           `json:"countdown"`
}

// View assembles the view model for one viewer. local holds the viewer's
// in-progress, unsaved selections; they are merged into the preview only when
// the viewer is a member, and never into canonical state.
func (s *GroupService) View(groupID, viewerID string, local map[string]int) (*GroupView, error) {
	group, err := s.Group(groupID)
	if err != nil {
		return nil, err
	}

	merged := picks.Merge(group.Dishes, local, viewerID, group.IsMember(viewerID))

	menu := s.Menu(group.RestaurantID)
	catalog := make([]picks.Dish, len(menu))
	for i, d := range menu {
		catalog[i] = picks.Dish{ID: d.ID, Name: d.Name, Price: d.Price}
	}

	resolve := func(userID string) string {
		return s.DisplayName(group, userID)
	}

	return &GroupView{
		Group:       group,
		Members:     s.MemberList(group),
		MergedPicks: merged,
		PicksByDish: picks.SummarizeByDish(merged, catalog, resolve),
		Countdown:   picks.Countdown(time.UnixMilli(group.DeadlineAt), s.clock.Now()),
	}, nil
}

// DisplayName resolves a member's display name: the group's own snapshot
// first, then the user directory, then a placeholder derived from the ID.
func (s *GroupService) DisplayName(group *models.Group, userID string) string {
	for _, md := range group.MemberDetails {
		if md.ID == userID && md.Name != "" {
			return md.Name
		}
	}
	if name := s.directoryName(userID); name != "" {
		return name
	}
	tail := userID
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return "User " + tail
}

// MemberList derives the {id, name, initial} list for rendering, in join
// order.
func (s *GroupService) MemberList(group *models.Group) []models.Member {
	members := make([]models.Member, len(group.Members))
	for i, id := range group.Members {
		name := s.DisplayName(group, id)
		initial := "?"
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			initial = string(unicode.ToUpper([]rune(trimmed)[0]))
		}
		members[i] = models.Member{ID: id, Name: name, Initial: initial}
	}
	return members
}
