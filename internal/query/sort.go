package query

import "strings"

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is one ordering key; the first key in a list is the primary one.
type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

func (s Sort) Descending() bool { return s.Direction == Desc }

// ParseDirection maps the accepted spellings onto a direction, defaulting to ascending.
func ParseDirection(raw any) Direction {
	switch v := raw.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "desc", "descending", "-1":
			return Desc
		}
	case float64:
		if v < 0 {
			return Desc
		}
	case int:
		if v < 0 {
			return Desc
		}
	}
	return Asc
}
