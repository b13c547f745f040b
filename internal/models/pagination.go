package models

// Pagination echoes the requested page alongside the total row count.
type Pagination struct {
	Page       *int `json:"page"`
	Size       *int `json:"size"`
	TotalCount int  `json:"totalCount"`
}
