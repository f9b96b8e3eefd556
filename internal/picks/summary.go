package picks

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Dish is the menu reference the aggregator resolves names and prices from.
type Dish struct {
	ID    string
	Name  string
	Price float64
}

// Contribution is one member's share of a dish row.
type Contribution struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Qty    int    `json:"qty"`
}

// DishSummary is one aggregated row: a dish, the group-wide total and the
// per-member breakdown. Computed for rendering only, never persisted.
type DishSummary struct {
	DishID string         `json:"dishId"`
	Name   string         `json:"name"`
	Price  float64        `json:"price"`
	Total  int            `json:"total"`
	By     []Contribution `json:"by"`
}

// SummarizeByDish reduces merged selections into one row per dish.
//
// Dish names and prices come from catalog; an unknown dish ID (stale
// reference data) yields a "#<id>" placeholder with price 0 rather than an
// error. resolve maps a member ID to a display name.
//
// Rows are ordered by total descending, ties broken by collated name
// ascending. Contributions within a row are ordered by collated name
// ascending, ties broken by user ID.
func SummarizeByDish(merged map[string]map[string]int, catalog []Dish, resolve func(userID string) string) []DishSummary {
	byID := make(map[string]Dish, len(catalog))
	for _, d := range catalog {
		byID[d.ID] = d
	}

	rowByDish := make(map[string]*DishSummary)
	for userID, byDish := range merged {
		for dishID, qty := range byDish {
			if qty <= 0 {
				continue
			}
			row := rowByDish[dishID]
			if row == nil {
				row = &DishSummary{DishID: dishID, Name: "#" + dishID}
				if meta, ok := byID[dishID]; ok {
					row.Name = meta.Name
					row.Price = meta.Price
				}
				rowByDish[dishID] = row
			}
			row.Total += qty
			row.By = append(row.By, Contribution{
				UserID: userID,
				Name:   resolve(userID),
				Qty:    qty,
			})
		}
	}

	coll := collate.New(language.Und)
	rows := make([]DishSummary, 0, len(rowByDish))
	for _, row := range rowByDish {
		sort.SliceStable(row.By, func(i, j int) bool {
			if c := coll.CompareString(row.By[i].Name, row.By[j].Name); c != 0 {
				return c < 0
			}
			return row.By[i].UserID < row.By[j].UserID
		})
		rows = append(rows, *row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return coll.CompareString(rows[i].Name, rows[j].Name) < 0
	})
	return rows
}
