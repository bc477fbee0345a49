package schemas

const DefaultLimit = 20
const MaxLimit = 100

// Pagination is embedded by every paginated list query.
type Pagination struct {
	Page  int `form:"page" json:"page" validate:"min=0"`
	Limit int `form:"limit" json:"limit" validate:"min=0,max=100"`
}

func (p *Pagination) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
}

func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}
