package sqlite

import (
	"context"
	"fmt"

	"github.com/sokha/lunchpool/internal/models"
)

// ListRestaurantsWithMenus returns all restaurants with their menus attached.
func (s *SQLiteStore) ListRestaurantsWithMenus(ctx context.Context) ([]*models.Restaurant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, address FROM restaurants ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	defer rows.Close()

	var restaurants []*models.Restaurant
	byID := make(map[string]*models.Restaurant)
	for rows.Next() {
		r := &models.Restaurant{}
		if err := rows.Scan(&r.ID, &r.Name, &r.Address); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		restaurants = append(restaurants, r)
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate restaurants: %w", err)
	}

	dishRows, err := s.db.QueryContext(ctx,
		"SELECT id, restaurant_id, name, price FROM dishes ORDER BY restaurant_id, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dishes: %w", err)
	}
	defer dishRows.Close()

	for dishRows.Next() {
		var d models.Dish
		var restaurantID string
		if err := dishRows.Scan(&d.ID, &restaurantID, &d.Name, &d.Price); err != nil {
			return nil, fmt.Errorf("failed to scan dish: %w", err)
		}
		if r, ok := byID[restaurantID]; ok {
			r.Menu = append(r.Menu, d)
		}
	}
	if err := dishRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dishes: %w", err)
	}

	return restaurants, nil
}
