// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import "time"

// Event types published after successful catalog writes.
const (
	FilmCreated  = "film.created"
	FilmDeleted  = "film.deleted"
	ActorCreated = "actor.created"
)

// CatalogEvent is published when a film or actor document is created or
// deleted. It carries enough for downstream consumers to log or index the
// change without querying the database.
type CatalogEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
