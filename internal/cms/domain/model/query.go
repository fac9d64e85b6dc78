package model

// Query is a structured read against a single collection. Field names are the
// stored (camelCase) names, dotted paths address embedded documents.
type Query struct {
	Filters []Filter
	Orders  []Sort
	Limit   int
	Offset  int
}

// Filter represents a single where clause.
type Filter struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// Sort represents a single order-by clause.
type Sort struct {
	Field     string
	Direction string
}

// Operator is a filter comparison operator.
type Operator string

const (
	// Ascending is used for ordering in ascending order.
	Ascending = "asc"
	// Descending is used for ordering in descending order.
	Descending = "desc"
)

// Operator types for filters
const (
	OperatorEqual              Operator = "=="
	OperatorNotEqual           Operator = "!="
	OperatorLessThan           Operator = "<"
	OperatorLessThanOrEqual    Operator = "<="
	OperatorGreaterThan        Operator = ">"
	OperatorGreaterThanOrEqual Operator = ">="
	OperatorArrayContains      Operator = "array-contains"
	OperatorIn                 Operator = "in"
	OperatorNotIn              Operator = "not-in"
)

// IsValid reports whether op is a supported operator.
func (op Operator) IsValid() bool {
	switch op {
	case OperatorEqual, OperatorNotEqual, OperatorLessThan, OperatorLessThanOrEqual,
		OperatorGreaterThan, OperatorGreaterThanOrEqual, OperatorArrayContains,
		OperatorIn, OperatorNotIn:
		return true
	}
	return false
}

// NewQuery returns an empty query that matches every document.
func NewQuery() Query {
	return Query{}
}

// Where appends a filter.
func (q Query) Where(field string, op Operator, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Operator: op, Value: value})
	return q
}

// OrderBy appends an order clause.
func (q Query) OrderBy(field, direction string) Query {
	q.Orders = append(append([]Sort(nil), q.Orders...), Sort{Field: field, Direction: direction})
	return q
}

// WithLimit sets the maximum number of results. Zero means unlimited.
func (q Query) WithLimit(limit int) Query {
	q.Limit = limit
	return q
}

// WithOffset sets the number of results to skip.
func (q Query) WithOffset(offset int) Query {
	q.Offset = offset
	return q
}
