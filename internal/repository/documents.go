package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/iliyamo/film-catalog/internal/model"
)

// decodeDocuments drains cur into untyped documents. A field holding an
// unexpected type never fails the whole list. The result is never nil.
func decodeDocuments(ctx context.Context, cur *mongo.Cursor) ([]model.Document, error) {
	var docs []model.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.Plain(d).(model.Document))
	}
	return out, nil
}
