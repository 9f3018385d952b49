package docstore

// Operator is a predicate comparison.
type Operator string

const (
	Eq            Operator = "=="
	Ne            Operator = "!="
	ArrayContains Operator = "array-contains"
	Lt            Operator = "<"
	Gt            Operator = ">"
	In            Operator = "in"
)

// Predicate filters documents on one field. Field may be a dotted path.
// Ne matches only documents where the field is present.
type Predicate struct {
	Field string
	Op    Operator
	Value any
}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Order sorts results by one field.
type Order struct {
	Field string
	Dir   Direction
}

// Query selects documents from a collection. Results are ordered by Orders
// in sequence; documents that compare equal keep insertion order. Limit 0
// means no limit.
type Query struct {
	Collection string
	Filters    []Predicate
	Orders     []Order
	Limit      int
}

// From starts a query over coll.
func From(coll string) Query {
	return Query{Collection: coll}
}

// Where returns q with an added predicate.
func (q Query) Where(field string, op Operator, value any) Query {
	q.Filters = append(append([]Predicate(nil), q.Filters...), Predicate{Field: field, Op: op, Value: value})
	return q
}

// OrderBy returns q with an added sort key.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.Orders = append(append([]Order(nil), q.Orders...), Order{Field: field, Dir: dir})
	return q
}

// Take returns q limited to n results.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}
