package handler

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/film-catalog/internal/model"
	"github.com/iliyamo/film-catalog/internal/queue"
	"github.com/iliyamo/film-catalog/internal/repository"
)

// memActors is an in-memory ActorStore.
type memActors struct {
	mu     sync.Mutex
	docs   []model.Actor
	calls  int
	failOn error
}

func (m *memActors) touch() error {
	m.calls++
	return m.failOn
}

func actorDoc(a model.Actor) model.Document {
	return model.Document{"_id": a.ID, "name": a.Name, "age": a.Age, "imageurl": a.ImageURL}
}

func filmDoc(f model.Film) model.Document {
	return model.Document{
		"_id":         f.ID,
		"name":        f.Name,
		"description": f.Description,
		"releaseDate": f.ReleaseDate,
		"imageurl":    f.ImageURL,
		"actors":      f.Actors,
	}
}

func (m *memActors) ListAll(context.Context) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.touch(); err != nil {
		return nil, err
	}
	out := []model.Document{}
	for _, a := range m.docs {
		out = append(out, actorDoc(a))
	}
	return out, nil
}

func (m *memActors) GetByID(_ context.Context, id bson.ObjectID) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.touch(); err != nil {
		return nil, err
	}
	for _, a := range m.docs {
		if a.ID == id {
			return actorDoc(a), nil
		}
	}
	return nil, repository.ErrActorNotFound
}

func (m *memActors) Create(_ context.Context, a *model.Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.touch(); err != nil {
		return err
	}
	a.ID = bson.NewObjectID()
	m.docs = append(m.docs, *a)
	return nil
}

func (m *memActors) IDsByNames(_ context.Context, names []string) ([]bson.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.touch(); err != nil {
		return nil, err
	}
	out := []bson.ObjectID{}
	for _, n := range names {
		for _, a := range m.docs {
			if a.Name == n {
				out = append(out, a.ID)
			}
		}
	}
	return out, nil
}

func (m *memActors) byID(id bson.ObjectID) (model.Actor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.docs {
		if a.ID == id {
			return a, true
		}
	}
	return model.Actor{}, false
}

// memFilms is an in-memory FilmStore joining against a memActors.
type memFilms struct {
	mu     sync.Mutex
	docs   []model.Film
	actors *memActors
	failOn error
}

func (m *memFilms) ListWithActors(context.Context) ([]model.Document, error) {
	m.mu.Lock()
	docs := append([]model.Film{}, m.docs...)
	err := m.failOn
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := []model.Document{}
	for _, f := range docs {
		details := []model.Document{}
		for _, id := range f.Actors {
			if a, ok := m.actors.byID(id); ok {
				details = append(details, actorDoc(a))
			}
		}
		doc := filmDoc(f)
		doc["actorDetails"] = details
		out = append(out, doc)
	}
	return out, nil
}

func (m *memFilms) ListAll(context.Context) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return nil, m.failOn
	}
	out := []model.Document{}
	for _, f := range m.docs {
		out = append(out, filmDoc(f))
	}
	return out, nil
}

func (m *memFilms) Create(_ context.Context, f *model.Film) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return m.failOn
	}
	f.ID = bson.NewObjectID()
	m.docs = append(m.docs, *f)
	return nil
}

func (m *memFilms) DeleteByID(_ context.Context, rawID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return m.failOn
	}
	for i, f := range m.docs {
		if f.ID.Hex() == rawID {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return repository.ErrFilmNotFound
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	events chan queue.CatalogEvent
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(chan queue.CatalogEvent, 16)}
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.CatalogEvent) error {
	p.events <- ev
	return nil
}

func (p *recordingPublisher) next(timeout time.Duration) (queue.CatalogEvent, bool) {
	select {
	case ev := <-p.events:
		return ev, true
	case <-time.After(timeout):
		return queue.CatalogEvent{}, false
	}
}
