package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 12
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds page based pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta is the pagination block returned with list responses.
type Meta struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
}

// Normalize applies defaults and caps. defaultLimit falls back to DefaultLimit when zero.
func (p Params) Normalize(defaultLimit int) Params {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.Limit <= 0:
		p.Limit = defaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of rows to skip for the current page.
func (p Params) Offset() int {
	if p.Page < 1 || p.Limit <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// NewMeta computes the page count for total rows.
func NewMeta(p Params, total int64) Meta {
	pages := 0
	if p.Limit > 0 && total > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Meta{Current: p.Page, Pages: pages, Total: total}
}
