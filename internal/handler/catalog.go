package handler

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Catalog is the read-only room and movie data exposed for browsing.  Every
// store backend implements it.
type Catalog interface {
	ListRooms(ctx context.Context) ([]model.SeatLayout, error)
	GetLayout(ctx context.Context, roomID string) (*model.SeatLayout, error)
	ListMovies(ctx context.Context) ([]model.Movie, error)
	GetMovie(ctx context.Context, id string) (*model.Movie, error)
}

// CatalogHandler serves /v1/salas and /v1/peliculas.  Rooms are read through
// Layouts so they share the layout cache with the seat engines.
type CatalogHandler struct {
	Catalog Catalog
	Layouts interface {
		GetLayout(ctx context.Context, roomID string) (*model.SeatLayout, error)
	}
}

func NewCatalogHandler(cat Catalog, layouts *repository.CachedLayouts) *CatalogHandler {
	h := &CatalogHandler{Catalog: cat, Layouts: cat}
	if layouts != nil {
		h.Layouts = layouts
	}
	return h
}

func (h *CatalogHandler) ListRooms(c echo.Context) error {
	rooms, err := h.Catalog.ListRooms(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return success(c, "Consulta de salas realizada con éxito.", rooms)
}

func (h *CatalogHandler) GetRoom(c echo.Context) error {
	l, err := h.Layouts.GetLayout(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repository.ErrRoomNotFound) {
		return c.JSON(http.StatusNotFound, Response{
			Status:  StatusNotFound,
			Mensaje: "La sala especificada no existe, por favor revíselo nuevamente.",
		})
	}
	if err != nil {
		return fail(c, err)
	}
	return success(c, "Consulta de sala realizada con éxito.", l)
}

func (h *CatalogHandler) ListMovies(c echo.Context) error {
	movies, err := h.Catalog.ListMovies(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return success(c, "Consulta de películas realizada con éxito.", movies)
}

func (h *CatalogHandler) GetMovie(c echo.Context) error {
	m, err := h.Catalog.GetMovie(c.Request().Context(), c.Param("id"))
	if errors.Is(err, repository.ErrMovieNotFound) {
		return c.JSON(http.StatusNotFound, Response{
			Status:  StatusNotFound,
			Mensaje: "El id de la película ingresada no existe, por favor revíselo nuevamente.",
		})
	}
	if err != nil {
		return fail(c, err)
	}
	return success(c, "Consulta de película realizada con éxito.", m)
}
