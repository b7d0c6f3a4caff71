package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/film-catalog/internal/database"
	"github.com/iliyamo/film-catalog/internal/model"
)

// ActorRepo encapsulates all queries against the Actors collection. The
// database handle is acquired per call so the first request triggers the
// connection.
type ActorRepo struct {
	db DatabaseProvider
}

// NewActorRepo constructs an ActorRepo over the given provider.
func NewActorRepo(db DatabaseProvider) *ActorRepo {
	return &ActorRepo{db: db}
}

func (r *ActorRepo) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(database.ActorsCollection), nil
}

// ListAll returns every actor in natural order. The result is never nil.
func (r *ActorRepo) ListAll(ctx context.Context) ([]model.Document, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find actors: %w", err)
	}
	out, err := decodeDocuments(ctx, cur)
	if err != nil {
		return nil, fmt.Errorf("decode actors: %w", err)
	}
	return out, nil
}

// GetByID fetches one actor. ErrActorNotFound is returned when no document
// has that id.
func (r *ActorRepo) GetByID(ctx context.Context, id bson.ObjectID) (model.Document, error) {
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	var doc model.Document
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrActorNotFound
		}
		return nil, fmt.Errorf("find actor %s: %w", id.Hex(), err)
	}
	return model.Plain(doc).(model.Document), nil
}

// Create inserts the actor. On success a.ID holds the id generated for the
// new document.
func (r *ActorRepo) Create(ctx context.Context, a *model.Actor) error {
	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}
	res, err := coll.InsertOne(ctx, a)
	if err != nil {
		return fmt.Errorf("insert actor: %w", err)
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		a.ID = id
	}
	return nil
}

// IDsByNames resolves actor names to ids. Names without a matching document
// are dropped silently. Ids follow the order of names; when several actors
// share a name all of them are returned.
func (r *ActorRepo) IDsByNames(ctx context.Context, names []string) ([]bson.ObjectID, error) {
	if len(names) == 0 {
		return []bson.ObjectID{}, nil
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}
	filter := bson.D{{Key: "name", Value: bson.D{{Key: "$in", Value: names}}}}
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}, {Key: "name", Value: 1}})
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find actors by name: %w", err)
	}
	var docs []model.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode actors by name: %w", err)
	}
	return orderByNames(names, actorRefs(docs)), nil
}

// actorRef is the part of an actor document needed to resolve a name.
type actorRef struct {
	ID   bson.ObjectID
	Name string
}

// actorRefs keeps the documents whose name is a string. A document matched
// through an array-valued name is skipped.
func actorRefs(docs []model.Document) []actorRef {
	refs := make([]actorRef, 0, len(docs))
	for _, d := range docs {
		id, ok := d["_id"].(bson.ObjectID)
		if !ok {
			continue
		}
		name, ok := d["name"].(string)
		if !ok {
			continue
		}
		refs = append(refs, actorRef{ID: id, Name: name})
	}
	return refs
}

// orderByNames lays out the ids of found in the order their names first
// appear in names.
func orderByNames(names []string, found []actorRef) []bson.ObjectID {
	byName := make(map[string][]bson.ObjectID, len(found))
	for _, a := range found {
		byName[a.Name] = append(byName[a.Name], a.ID)
	}
	out := make([]bson.ObjectID, 0, len(found))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, byName[n]...)
	}
	return out
}
