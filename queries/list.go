package queries

import (
	"oposiciones/schemas"

	"github.com/jinzhu/gorm"
)

// Page is a paginated listing.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// paginate counts q and loads one page of it ordered by order.
func paginate[T any](q *gorm.DB, p schemas.Pagination, order string) (Page[T], error) {
	p.Normalize()
	page := Page[T]{Items: []T{}, Page: p.Page, Limit: p.Limit}
	if err := q.Count(&page.Total).Error; err != nil {
		return page, err
	}
	if page.Total == 0 {
		return page, nil
	}
	if err := q.Order(order).Limit(p.Limit).Offset(p.Offset()).Find(&page.Items).Error; err != nil {
		return page, err
	}
	return page, nil
}
