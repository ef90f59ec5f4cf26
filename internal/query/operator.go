package query

// Operator is a filter operator tag as it appears on the wire.
type Operator string

const (
	OpEqual            Operator = "=="
	OpNotEqual         Operator = "!="
	OpGreater          Operator = ">"
	OpGreaterOrEqual   Operator = ">="
	OpLess             Operator = "<"
	OpLessOrEqual      Operator = "<="
	OpIn               Operator = "in"
	OpNotIn            Operator = "not-in"
	OpRegex            Operator = "regex"
	OpContains         Operator = "contains"
	OpStartsWith       Operator = "starts-with"
	OpEndsWith         Operator = "ends-with"
	OpNotContains      Operator = "not-contains"
	OpText             Operator = "text"
	OpExists           Operator = "exists"
	OpNotExists        Operator = "not-exists"
	OpArrayContains    Operator = "array-contains"
	OpArrayContainsAny Operator = "array-contains-any"
	OpCustom           Operator = "custom"

	// OpOr is the compiled form of a "$or" + "custom" clause.
	OpOr Operator = "$or"
)

// OrField is the field name that introduces a composite OR clause.
const OrField = "$or"

var supportedOperators = map[Operator]struct{}{
	OpEqual:            {},
	OpNotEqual:         {},
	OpGreater:          {},
	OpGreaterOrEqual:   {},
	OpLess:             {},
	OpLessOrEqual:      {},
	OpIn:               {},
	OpNotIn:            {},
	OpRegex:            {},
	OpContains:         {},
	OpStartsWith:       {},
	OpEndsWith:         {},
	OpNotContains:      {},
	OpText:             {},
	OpExists:           {},
	OpNotExists:        {},
	OpArrayContains:    {},
	OpArrayContainsAny: {},
	OpCustom:           {},
}

// IsValid reports whether the operator tag is supported on the wire.
func (o Operator) IsValid() bool {
	_, ok := supportedOperators[o]
	return ok
}

// IsOrdering reports whether the operator compares by order.
func (o Operator) IsOrdering() bool {
	switch o {
	case OpGreater, OpGreaterOrEqual, OpLess, OpLessOrEqual:
		return true
	}
	return false
}
