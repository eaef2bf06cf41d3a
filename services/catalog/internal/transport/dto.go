package transport

type CreateListingRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	InStock     *bool   `json:"in_stock"`
}

// PatchListingRequest leaves nil fields unchanged.
type PatchListingRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Image       *string  `json:"image"`
	Category    *string  `json:"category"`
	InStock     *bool    `json:"in_stock"`
}
