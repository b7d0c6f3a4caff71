// Package repository defines the Mongo data access for films and actors.
// Sentinel errors let handlers tell a missing document apart from a store
// failure.
package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrFilmNotFound is returned when a delete matches no film. Handlers
// translate it into 404.
var ErrFilmNotFound = errors.New("film not found")

// ErrActorNotFound is returned when an actor lookup matches no document.
var ErrActorNotFound = errors.New("actor not found")

// DatabaseProvider hands out the shared database handle.
// *database.Manager satisfies it.
type DatabaseProvider interface {
	Acquire(ctx context.Context) (*mongo.Database, error)
}
