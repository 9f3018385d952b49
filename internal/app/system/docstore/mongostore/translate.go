package mongostore

import (
	"fmt"

	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var operators = map[docstore.Operator]string{
	docstore.Lt: "$lt",
	docstore.Gt: "$gt",
	docstore.In: "$in",
}

// buildFilter translates predicates into a Mongo filter. Each predicate is
// its own $and clause so several predicates on one field never collide.
func buildFilter(preds []docstore.Predicate) (bson.M, error) {
	clauses := make(bson.A, 0, len(preds))
	for _, p := range preds {
		v, err := docstore.NormalizeValue(p.Value)
		if err != nil {
			return nil, err
		}
		switch p.Op {
		case docstore.Eq, docstore.ArrayContains:
			// Equality on an array field matches any element.
			clauses = append(clauses, bson.M{p.Field: v})
		case docstore.Ne:
			clauses = append(clauses, bson.M{p.Field: bson.M{"$exists": true, "$ne": v}})
		case docstore.Lt, docstore.Gt, docstore.In:
			if p.Op == docstore.In {
				if _, ok := v.(primitive.A); !ok {
					return nil, fmt.Errorf("mongostore: %q in-filter needs a slice, got %T", p.Field, p.Value)
				}
			}
			clauses = append(clauses, bson.M{p.Field: bson.M{operators[p.Op]: v}})
		default:
			return nil, fmt.Errorf("mongostore: unsupported operator %q", p.Op)
		}
	}

	switch len(clauses) {
	case 0:
		return bson.M{}, nil
	case 1:
		return clauses[0].(bson.M), nil
	}
	return bson.M{"$and": clauses}, nil
}

// buildSort appends _id as the final key, unless the query already orders
// on it, so equal sort values come back in a stable order.
func buildSort(orders []docstore.Order) bson.D {
	sort := make(bson.D, 0, len(orders)+1)
	hasID := false
	for _, o := range orders {
		if o.Field == "_id" {
			hasID = true
		}
		dir := 1
		if o.Dir == docstore.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: o.Field, Value: dir})
	}
	if hasID {
		return sort
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

// buildUpdate translates field ops into an update document. Server
// timestamps come from the server's clock via $currentDate.
func buildUpdate(ops []docstore.FieldOp) (bson.M, error) {
	set := bson.M{}
	now := bson.M{}
	addToSet := bson.M{}
	pull := bson.M{}
	inc := bson.M{}

	for _, op := range ops {
		if op.Path == "" {
			return nil, fmt.Errorf("mongostore: field op with empty path")
		}
		switch op.Kind {
		case docstore.OpSet:
			v, err := docstore.NormalizeValue(op.Value)
			if err != nil {
				return nil, err
			}
			set[op.Path] = v
		case docstore.OpServerTimestamp:
			now[op.Path] = bson.M{"$type": "date"}
		case docstore.OpSetAdd:
			vals, err := docstore.NormalizeValue(op.Values)
			if err != nil {
				return nil, err
			}
			addToSet[op.Path] = bson.M{"$each": vals}
		case docstore.OpSetRemove:
			vals, err := docstore.NormalizeValue(op.Values)
			if err != nil {
				return nil, err
			}
			pull[op.Path] = bson.M{"$in": vals}
		case docstore.OpIncrement:
			inc[op.Path] = op.Delta
		default:
			return nil, fmt.Errorf("mongostore: unknown field op %d", op.Kind)
		}
	}

	upd := bson.M{}
	for name, part := range map[string]bson.M{"$set": set, "$currentDate": now, "$addToSet": addToSet, "$pull": pull, "$inc": inc} {
		if len(part) > 0 {
			upd[name] = part
		}
	}
	if len(upd) == 0 {
		return nil, fmt.Errorf("mongostore: update with no field ops")
	}
	return upd, nil
}

// buildPut translates a replacement document plus field ops into an upsert
// pipeline. Fields are passed through $literal so stored strings that start
// with "$" are not read as expressions; server timestamps are set to $$NOW.
func buildPut(doc docstore.Document, ops []docstore.FieldOp) (mongo.Pipeline, error) {
	var local []docstore.FieldOp
	stamps := bson.D{}
	for _, op := range ops {
		if op.Kind == docstore.OpServerTimestamp {
			if op.Path == "" {
				return nil, fmt.Errorf("mongostore: field op with empty path")
			}
			stamps = append(stamps, bson.E{Key: op.Path, Value: "$$NOW"})
			continue
		}
		local = append(local, op)
	}
	if err := docstore.ApplyOps(doc, nil, local...); err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$replaceWith", Value: bson.M{"$literal": doc}}},
	}
	if len(stamps) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$set", Value: stamps}})
	}
	return pipeline, nil
}
