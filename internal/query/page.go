package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/RockaiDev/bariqe-dashboard/internal/domain"
)

const (
	DefaultPerPage = 15
	DefaultPage    = 1
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// NewPage coerces raw page parameters to integers and clamps both to at least 1.
// The page number is capped so that Offset never overflows.
// Missing or non-numeric values fall back to the defaults; maxSize <= 0 disables the cap.
func NewPage(rawSize, rawNumber any, defaultSize, maxSize int) Page {
	if defaultSize < 1 {
		defaultSize = DefaultPerPage
	}
	size := toInt(rawSize, defaultSize)
	number := toInt(rawNumber, DefaultPage)
	if size < 1 {
		size = 1
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	if number < 1 {
		number = 1
	}
	// Keep (number-1)*size from overflowing; such pages are past any result anyway.
	if limit := math.MaxInt/size + 1; number > limit {
		number = limit
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

func toInt(raw any, fallback int) int {
	switch v := raw.(type) {
	case nil:
		return fallback
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return fallback
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
		return fallback
	default:
		return fallback
	}
}

// Pagination is the navigation block returned with every page.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	PerPage     int  `json:"perPage"`
	TotalPages  int  `json:"totalPages"`
	NextPage    *int `json:"nextPage"`
	PrevPage    *int `json:"prevPage"`
}

// NewPagination derives page navigation from the total match count. There is
// always at least one page, even for an empty result.
func NewPagination(page Page, count int64) Pagination {
	totalPages := int(math.Ceil(float64(count) / float64(page.Size)))
	if totalPages < 1 {
		totalPages = 1
	}

	p := Pagination{
		CurrentPage: page.Number,
		PerPage:     page.Size,
		TotalPages:  totalPages,
	}
	if page.Number < totalPages {
		next := page.Number + 1
		p.NextPage = &next
	}
	if page.Number > 1 {
		prev := page.Number - 1
		p.PrevPage = &prev
	}
	return p
}

// PageResult is one page of records plus the total match count.
type PageResult struct {
	Data       []domain.Record `json:"data"`
	Count      int64           `json:"count"`
	Pagination Pagination      `json:"pagination"`
}
