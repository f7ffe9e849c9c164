package domain

// CategoryCount is one entry of the catalog category summary.
type CategoryCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
