package tabledata

const (
	// DefaultPageLimit is used when a request does not name a limit.
	DefaultPageLimit = 50
	// MaxPageLimit caps the rows a single page may carry.
	MaxPageLimit = 1000
)

// PageRequest describes one bounded table query.
type PageRequest struct {
	Page           int
	Limit          int
	SortField      string
	SortDescending bool
	Filters        []FilterPredicate
}

// Normalized returns a copy with page and limit clamped to their valid
// ranges: page >= 1, limit in [1, MaxPageLimit] (DefaultPageLimit when unset).
func (r PageRequest) Normalized() PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}

	if r.Limit == 0 {
		r.Limit = DefaultPageLimit
	}
	if r.Limit < 1 {
		r.Limit = 1
	}
	if r.Limit > MaxPageLimit {
		r.Limit = MaxPageLimit
	}

	return r
}

// Offset is the number of rows skipped before this page starts.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

// PageResult is the uniform result envelope for one table query.
// Rows never exceeds Limit and Total is never negative.
// ServedByBackend is true only when the backend's own windowed query
// produced the page.
type PageResult struct {
	Rows            []Row `json:"rows"`
	Total           int   `json:"total"`
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	ServedByBackend bool  `json:"server_side"`
}

// PlaceholderRowKey flags the synthetic row of a degraded result.
const PlaceholderRowKey = "is_placeholder"

// IsPlaceholder reports whether the result is a degraded placeholder
// page rather than real table data.
func (r PageResult) IsPlaceholder() bool {
	if len(r.Rows) == 0 {
		return false
	}

	flagged, ok := r.Rows[0][PlaceholderRowKey].(bool)

	return ok && flagged
}
