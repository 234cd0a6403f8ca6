package pagination

import "strconv"

const (
	// DefaultLimit is applied when no limit is supplied
	DefaultLimit = 50

	// MaxLimit caps the page size for list endpoints
	MaxLimit = 200
)

// Params holds limit/offset pagination parameters
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Parse builds Params from raw query values, applying defaults and caps
func Parse(limitStr, offsetStr string) Params {
	p := Params{Limit: DefaultLimit, Offset: 0}

	if limitStr != "" {
		if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
			p.Limit = v
		}
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if offsetStr != "" {
		if v, err := strconv.Atoi(offsetStr); err == nil && v >= 0 {
			p.Offset = v
		}
	}

	return p
}

// Page wraps a result set with pagination metadata
type Page struct {
	Items  interface{} `json:"items"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
	Count  int         `json:"count"`
}

// NewPage builds a Page for the given items slice length
func NewPage(items interface{}, params Params, count int) *Page {
	return &Page{
		Items:  items,
		Limit:  params.Limit,
		Offset: params.Offset,
		Count:  count,
	}
}
