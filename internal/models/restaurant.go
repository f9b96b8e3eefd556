package models

// Dish is one orderable menu item. Read-only reference data scoped to a
// restaurant.
type Dish struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Restaurant is reference data for one restaurant, including its menu.
type Restaurant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Menu    []Dish `json:"menu"`
}
