package handler

import (
	"errors"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/film-catalog/internal/database"
	"github.com/iliyamo/film-catalog/internal/model"
	"github.com/iliyamo/film-catalog/internal/queue"
	"github.com/iliyamo/film-catalog/internal/repository"
)

// addActorRequest is the body of POST /api/add/actor. Age is stored as
// sent, so 40, 40.5 and "40" are all accepted.
type addActorRequest struct {
	Name     string `json:"name"`
	Age      any    `json:"age"`
	ImageURL string `json:"imageurl"`
}

// storedAge keeps whole numbers as 32-bit integers, the way they are written
// by other clients of the collection. Anything else is stored unchanged.
func storedAge(v any) any {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return v
	}
	return int32(f)
}

// ListActors handles GET /api/actors.
func (h *CatalogHandler) ListActors(c echo.Context) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	actors, err := h.Actors.ListAll(ctx)
	if err != nil {
		return internalError(c, err, "Error fetching actors")
	}
	return c.JSON(http.StatusOK, actors)
}

// GetActor handles GET /api/actor/:id. This is the only route that checks
// identifier format; a malformed id is rejected before the store is
// contacted. Hex digits of either case are accepted.
func (h *CatalogHandler) GetActor(c echo.Context) error {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	actor, err := h.Actors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrActorNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "actor not found"})
		}
		return internalError(c, err, "Error fetching actor")
	}
	return c.JSON(http.StatusOK, actor)
}

// AddActor handles POST /api/add/actor.
func (h *CatalogHandler) AddActor(c echo.Context) error {
	var req addActorRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	actor := &model.Actor{Name: req.Name, Age: storedAge(req.Age), ImageURL: req.ImageURL}
	if err := h.Actors.Create(ctx, actor); err != nil {
		return internalError(c, err, "Error uploading actor")
	}

	h.publish(queue.CatalogEvent{
		Type:       queue.ActorCreated,
		Collection: database.ActorsCollection,
		DocumentID: actor.ID.Hex(),
		Name:       actor.Name,
	})
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Actor added successfully",
		"insertedId": actor.ID,
	})
}
