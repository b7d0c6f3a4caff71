// Package handler implements the catalog HTTP endpoints. Each handler binds
// its input, performs one or two store operations and maps the outcome to a
// JSON response.
package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/film-catalog/internal/model"
	"github.com/iliyamo/film-catalog/internal/queue"
	"github.com/iliyamo/film-catalog/internal/service"
)

const defaultTimeout = 10 * time.Second

// FilmStore is the film persistence used by the handlers.
// *repository.FilmRepo satisfies it.
type FilmStore interface {
	ListWithActors(ctx context.Context) ([]model.Document, error)
	ListAll(ctx context.Context) ([]model.Document, error)
	Create(ctx context.Context, f *model.Film) error
	DeleteByID(ctx context.Context, rawID string) error
}

// ActorStore is the actor persistence used by the handlers.
// *repository.ActorRepo satisfies it.
type ActorStore interface {
	ListAll(ctx context.Context) ([]model.Document, error)
	GetByID(ctx context.Context, id bson.ObjectID) (model.Document, error)
	Create(ctx context.Context, a *model.Actor) error
	IDsByNames(ctx context.Context, names []string) ([]bson.ObjectID, error)
}

// CatalogHandler bundles the stores and the event publisher.
type CatalogHandler struct {
	Films   FilmStore         // Movies collection
	Actors  ActorStore        // Actors collection
	Events  service.Publisher // receives an event after each successful write
	Timeout time.Duration     // bound on the store calls of one request

	inflight sync.WaitGroup // publishes not yet finished
}

// NewCatalogHandler constructs a CatalogHandler and panics if a store is nil.
// A nil publisher is replaced by a no-op one.
func NewCatalogHandler(films FilmStore, actors ActorStore, events service.Publisher, timeout time.Duration) *CatalogHandler {
	if films == nil || actors == nil {
		panic("nil store passed to NewCatalogHandler")
	}
	if events == nil {
		events = service.NopPublisher{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CatalogHandler{Films: films, Actors: actors, Events: events, Timeout: timeout}
}

func (h *CatalogHandler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// publish sends ev in the background; the HTTP response never waits on the
// broker. Drain waits for these sends.
func (h *CatalogHandler) publish(ev queue.CatalogEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
		defer cancel()
		if err := h.Events.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("type", ev.Type).Str("document_id", ev.DocumentID).Msg("catalog event not published")
		}
	}()
}

// Drain blocks until every event publish started so far has finished or ctx
// is done. Call it after the HTTP server stopped accepting requests.
func (h *CatalogHandler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// internalError logs the cause and answers with a generic 500.
func internalError(c echo.Context, err error, msg string) error {
	log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg(msg)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// Overview handles GET /api and returns all films and all actors.
func (h *CatalogHandler) Overview(c echo.Context) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	films, err := h.Films.ListAll(ctx)
	if err != nil {
		return internalError(c, err, "Error fetching films")
	}
	actors, err := h.Actors.ListAll(ctx)
	if err != nil {
		return internalError(c, err, "Error fetching actors")
	}
	return c.JSON(http.StatusOK, echo.Map{"films": films, "actors": actors})
}
