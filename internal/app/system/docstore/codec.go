package docstore

import (
	"context"
	"fmt"

	"github.com/dalemusser/campuslink/internal/app/system/live"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Normalize converts a struct (with bson tags) or map into a Document by
// round-tripping it through BSON, so every backend stores the same shapes:
// time.Time becomes primitive.DateTime, slices become primitive.A.
func Normalize(v any) (Document, error) {
	if v == nil {
		return Document{}, nil
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: normalize: %w", err)
	}
	var doc Document
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("docstore: normalize: %w", err)
	}
	return doc, nil
}

// NormalizeValue applies Normalize to a single field value.
func NormalizeValue(v any) (any, error) {
	doc, err := Normalize(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return doc["v"], nil
}

// Decode fills out (a pointer to a struct with bson tags) from doc.
func Decode(doc Document, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	return nil
}

// DecodeAll decodes every document into a T.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := Decode(d, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Watch subscribes to q and decodes each result set into []T. Documents
// that fail to decode are logged and left out.
func Watch[T any](ctx context.Context, s Store, q Query, logger *zap.Logger) *live.Feed[[]T] {
	return live.Map(s.Subscribe(ctx, q), func(docs []Document) []T {
		out := make([]T, 0, len(docs))
		for _, d := range docs {
			var v T
			if err := Decode(d, &v); err != nil {
				logger.Warn("skipping undecodable document",
					zap.String("collection", q.Collection),
					zap.Any("id", d["_id"]),
					zap.Error(err))
				continue
			}
			out = append(out, v)
		}
		return out
	})
}
