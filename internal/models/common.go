package models

// ListMeta contains pagination metadata returned alongside list payloads.
type ListMeta struct {
	Count       int `json:"count"`
	Total       int `json:"total"`
	Pages       int `json:"pages"`
	CurrentPage int `json:"currentPage"`
}

// NewListMeta computes page counts for a result window.
func NewListMeta(count, total, page, limit int) ListMeta {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return ListMeta{
		Count:       count,
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
	}
}
