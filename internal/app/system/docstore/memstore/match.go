package memstore

import (
	"fmt"

	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func normalizeFilters(in []docstore.Predicate) ([]docstore.Predicate, error) {
	out := make([]docstore.Predicate, 0, len(in))
	for _, p := range in {
		v, err := docstore.NormalizeValue(p.Value)
		if err != nil {
			return nil, err
		}
		if p.Op == docstore.In {
			if _, ok := v.(primitive.A); !ok {
				return nil, fmt.Errorf("memstore: %q in-filter needs a slice, got %T", p.Field, p.Value)
			}
		}
		p.Value = v
		out = append(out, p)
	}
	return out, nil
}

func matchesAll(doc docstore.Document, filters []docstore.Predicate) bool {
	for _, p := range filters {
		if !matches(doc, p) {
			return false
		}
	}
	return true
}

func matches(doc docstore.Document, p docstore.Predicate) bool {
	v, present := docstore.GetPath(doc, p.Field)
	if !present {
		return false
	}
	switch p.Op {
	case docstore.Eq:
		return docstore.Equal(v, p.Value)
	case docstore.Ne:
		return !docstore.Equal(v, p.Value)
	case docstore.ArrayContains:
		arr, ok := v.(primitive.A)
		if !ok {
			return false
		}
		for _, e := range arr {
			if docstore.Equal(e, p.Value) {
				return true
			}
		}
		return false
	case docstore.Lt:
		c, ok := docstore.Compare(v, p.Value)
		return ok && c < 0
	case docstore.Gt:
		c, ok := docstore.Compare(v, p.Value)
		return ok && c > 0
	case docstore.In:
		for _, want := range p.Value.(primitive.A) {
			if docstore.Equal(v, want) {
				return true
			}
		}
		return false
	}
	return false
}

// less orders documents by orders. Missing fields sort before present ones
// and incomparable values compare equal.
func less(a, b docstore.Document, orders []docstore.Order) bool {
	for _, o := range orders {
		av, aok := docstore.GetPath(a, o.Field)
		bv, bok := docstore.GetPath(b, o.Field)

		var c int
		switch {
		case !aok && !bok:
			c = 0
		case !aok:
			c = -1
		case !bok:
			c = 1
		default:
			c, _ = docstore.Compare(av, bv)
		}
		if o.Dir == docstore.Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return false
}
