package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/iliyamo/film-catalog/internal/database"
	"github.com/iliyamo/film-catalog/internal/model"
)

// FilmRepo encapsulates all queries against the Movies collection.
type FilmRepo struct {
	db DatabaseProvider
}

// NewFilmRepo constructs a FilmRepo over the given provider.
func NewFilmRepo(db DatabaseProvider) *FilmRepo {
	return &FilmRepo{db: db}
}

func (r *FilmRepo) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(database.FilmsCollection), nil
}

// ListWithActors returns every film joined with its actor documents.
func (r *FilmRepo) ListWithActors(ctx context.Context) ([]model.Document, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Aggregate(ctx, filmsWithActorsPipeline())
	if err != nil {
		return nil, fmt.Errorf("aggregate films: %w", err)
	}
	out, err := decodeDocuments(ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("decode films: %w", err)
	}
	return out, nil
}

// ListAll returns every film without resolving actors.
func (r *FilmRepo) ListAll(ctx context.Context) ([]model.Document, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find films: %w", err)
	}
	out, err := decodeDocuments(ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("decode films: %w", err)
	}
	return out, nil
}

// Create inserts the film. On success f.ID holds the generated id.
func (r *FilmRepo) Create(ctx context.Context, f *model.Film) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	if f.Actors == nil {
		f.Actors = []bson.ObjectID{}
	}
	res, err := coll.InsertOne(ctx, f)
	if err != nil {
		return fmt.Errorf("insert film: %w", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		f.ID = id
	}
	return nil
}

// DeleteByID removes the film whose _id equals rawID. A 24-character hex
// string is matched as an ObjectID, anything else verbatim. ErrFilmNotFound
// is returned when nothing was deleted.
func (r *FilmRepo) DeleteByID(ctx context.Context, rawID string) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, idFilter(rawID))
	if err != nil {
		return fmt.Errorf("delete film: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrFilmNotFound
	}
	return nil
}

func idFilter(rawID string) bson.D {
	if oid, err := bson.ObjectIDFromHex(rawID); err == nil {
		return bson.D{{Key: "_id", Value: oid}}
	}
	return bson.D{{Key: "_id", Value: rawID}}
}

// filmsWithActorsPipeline joins Movies.actors against Actors._id. The
// original reference array is kept; the documents land in actorDetails.
func filmsWithActorsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.ActorsCollection},
			{Key: "localField", Value: "actors"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "actorDetails"},
		}}},
	}
}
