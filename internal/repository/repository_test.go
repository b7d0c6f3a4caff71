package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/iliyamo/film-catalog/internal/model"
)

type failingProvider struct{ err error }

func (p failingProvider) Acquire(context.Context) (*mongo.Database, error) { return nil, p.err }

func TestOrderByNames(t *testing.T) {
	ann, bob, ann2 := bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID()
	found := []actorRef{
		{ID: bob, Name: "Bob"},
		{ID: ann, Name: "Ann"},
		{ID: ann2, Name: "Ann"},
	}

	tests := []struct {
		name  string
		names []string
		want  []bson.ObjectID
	}{
		{"client order wins", []string{"Ann", "Bob"}, []bson.ObjectID{ann, ann2, bob}},
		{"unknown names dropped", []string{"Zed", "Bob", "Nobody"}, []bson.ObjectID{bob}},
		{"repeated names counted once", []string{"Bob", "Bob"}, []bson.ObjectID{bob}},
		{"nothing matched", []string{"Zed"}, []bson.ObjectID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderByNames(tt.names, found))
		})
	}
}

func TestIDFilter(t *testing.T) {
	oid := bson.NewObjectID()

	assert.Equal(t, bson.D{{Key: "_id", Value: oid}}, idFilter(oid.Hex()))
	assert.Equal(t, bson.D{{Key: "_id", Value: "not-an-object-id"}}, idFilter("not-an-object-id"))
}

func TestFilmsWithActorsPipeline(t *testing.T) {
	p := filmsWithActorsPipeline()
	if assert.Len(t, p, 1) {
		stage := p[0][0]
		assert.Equal(t, "$lookup", stage.Key)
		lookup, ok := stage.Value.(bson.D)
		if assert.True(t, ok) {
			assert.Contains(t, lookup, bson.E{Key: "from", Value: "Actors"})
			assert.Contains(t, lookup, bson.E{Key: "localField", Value: "actors"})
			assert.Contains(t, lookup, bson.E{Key: "foreignField", Value: "_id"})
			assert.Contains(t, lookup, bson.E{Key: "as", Value: "actorDetails"})
		}
	}
}

func TestIDsByNamesEmptySkipsStore(t *testing.T) {
	r := NewActorRepo(failingProvider{err: errors.New("must not be called")})

	ids, err := r.IDsByNames(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestConnectionErrorsPropagate(t *testing.T) {
	boom := errors.New("no reachable servers")
	p := failingProvider{err: boom}
	ctx := context.Background()

	films := NewFilmRepo(p)
	_, err := films.ListAll(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = films.ListWithActors(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, films.Create(ctx, &model.Film{}), boom)
	assert.ErrorIs(t, films.DeleteByID(ctx, bson.NewObjectID().Hex()), boom)

	actors := NewActorRepo(p)
	_, err = actors.ListAll(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = actors.GetByID(ctx, bson.NewObjectID())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, actors.Create(ctx, &model.Actor{}), boom)
	_, err = actors.IDsByNames(ctx, []string{"Ann"})
	assert.ErrorIs(t, err, boom)
}

func TestActorRefsSkipsUnusableDocuments(t *testing.T) {
	ann := bson.NewObjectID()
	docs := []model.Document{
		{"_id": ann, "name": "Ann"},
		{"_id": bson.NewObjectID(), "name": bson.A{"Ann", "Bo"}},
		{"_id": "legacy", "name": "Ann"},
	}

	assert.Equal(t, []actorRef{{ID: ann, Name: "Ann"}}, actorRefs(docs))
}

func TestDecodeDocumentsToleratesLooseFields(t *testing.T) {
	film, actor := bson.NewObjectID(), bson.NewObjectID()
	released := time.Date(1995, 12, 15, 0, 0, 0, 0, time.UTC)
	cur, err := mongo.NewCursorFromDocuments([]any{
		bson.D{{Key: "_id", Value: actor}, {Key: "name", Value: "Ann"}, {Key: "age", Value: "40"}},
		bson.D{{Key: "_id", Value: bson.NewObjectID()}, {Key: "age", Value: 40.5}, {Key: "nickname", Value: "Bo"}},
		bson.D{
			{Key: "_id", Value: film},
			{Key: "releaseDate", Value: "someday"},
			{Key: "released", Value: bson.NewDateTimeFromTime(released)},
			{Key: "actors", Value: bson.A{actor}},
			{Key: "actorDetails", Value: bson.A{bson.D{{Key: "_id", Value: actor}, {Key: "name", Value: "Ann"}}}},
		},
	}, nil, nil)
	require.NoError(t, err)

	docs, err := decodeDocuments(context.Background(), cur)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	raw, err := json.Marshal(docs)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "40", got[0]["age"])
	assert.Equal(t, 40.5, got[1]["age"])
	assert.Equal(t, "Bo", got[1]["nickname"])
	assert.Equal(t, "someday", got[2]["releaseDate"])
	assert.Equal(t, "1995-12-15T00:00:00Z", got[2]["released"])
	assert.Equal(t, []any{actor.Hex()}, got[2]["actors"])
	assert.Equal(t, []any{map[string]any{"_id": actor.Hex(), "name": "Ann"}}, got[2]["actorDetails"])
}

func TestDecodeDocumentsEmpty(t *testing.T) {
	cur, err := mongo.NewCursorFromDocuments(nil, nil, nil)
	require.NoError(t, err)

	docs, err := decodeDocuments(context.Background(), cur)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestPlainConvertsNestedDocuments(t *testing.T) {
	in := bson.D{{Key: "a", Value: bson.A{bson.D{{Key: "b", Value: int32(1)}}}}}

	assert.Equal(t, bson.M{"a": []any{bson.M{"b": int32(1)}}}, model.Plain(in))
}
