package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/film-catalog/internal/database"
	"github.com/iliyamo/film-catalog/internal/model"
	"github.com/iliyamo/film-catalog/internal/queue"
	"github.com/iliyamo/film-catalog/internal/repository"
)

// addFilmRequest is the body of POST /api/add/film. Actors are names, not
// ids; they are resolved against the Actors collection.
type addFilmRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ReleaseDate string   `json:"releaseDate"`
	ImageURL    string   `json:"imageurl"`
	Actors      []string `json:"actors"`
}

// deleteFilmRequest is the body of DELETE /api/film.
type deleteFilmRequest struct {
	ID string `json:"_id" validate:"required"`
}

// releaseDateLayouts are tried in order when parsing a client date.
var releaseDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseReleaseDate converts a client date string to UTC. Empty or
// unrecognised input yields nil, which is stored as null.
func parseReleaseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ListFilms handles GET /api/films and returns every film with its actor
// documents attached.
func (h *CatalogHandler) ListFilms(c echo.Context) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	films, err := h.Films.ListWithActors(ctx)
	if err != nil {
		return internalError(c, err, "Error fetching films")
	}
	return c.JSON(http.StatusOK, films)
}

// AddFilm handles POST /api/add/film. Actor names without a matching Actor
// document are dropped without error.
func (h *CatalogHandler) AddFilm(c echo.Context) error {
	var req addFilmRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	actorIDs, err := h.Actors.IDsByNames(ctx, req.Actors)
	if err != nil {
		return internalError(c, err, "Error resolving film actors")
	}
	film := &model.Film{
		Name:        req.Name,
		Description: req.Description,
		ReleaseDate: parseReleaseDate(req.ReleaseDate),
		ImageURL:    req.ImageURL,
		Actors:      actorIDs,
	}
	if err := h.Films.Create(ctx, film); err != nil {
		return internalError(c, err, "Error uploading film")
	}

	h.publish(queue.CatalogEvent{
		Type:       queue.FilmCreated,
		Collection: database.FilmsCollection,
		DocumentID: film.ID.Hex(),
		Name:       film.Name,
	})
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Film added successfully",
		"insertedId": film.ID,
	})
}

// DeleteFilm handles DELETE /api/film. The id comes from the JSON body and
// is not format-checked: a value that is not an ObjectID simply matches
// nothing.
func (h *CatalogHandler) DeleteFilm(c echo.Context) error {
	var req deleteFilmRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.ID = strings.TrimSpace(req.ID)
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "_id is required")
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Films.DeleteByID(ctx, req.ID); err != nil {
		if errors.Is(err, repository.ErrFilmNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
		}
		return internalError(c, err, "Error deleting film")
	}

	h.publish(queue.CatalogEvent{
		Type:       queue.FilmDeleted,
		Collection: database.FilmsCollection,
		DocumentID: req.ID,
	})
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
