// Package handler exposes the HTTP API.  Handlers decode typed requests,
// call the seat service and render the {status, mensaje} envelope.
package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// ReserveRequest is the body of POST /v1/funciones/reservar.
type ReserveRequest struct {
	ID    string   `json:"id" validate:"required"`
	Seats []string `json:"asientosSeleccionados" validate:"required"`
}

// CancelRequest is the body of POST /v1/funciones/cancelar-reserva.
type CancelRequest struct {
	ID    string   `json:"id" validate:"required"`
	Seats []string `json:"asientosCancelar" validate:"required"`
}

// AvailableRequest is the body of POST /v1/funciones/available.
type AvailableRequest struct {
	ID string `json:"id" validate:"required"`
}

// FuncionesHandler serves showtimes and their seats.
type FuncionesHandler struct {
	Seats *service.SeatService
}

func NewFuncionesHandler(s *service.SeatService) *FuncionesHandler {
	return &FuncionesHandler{Seats: s}
}

// List handles GET /v1/funciones.
func (h *FuncionesHandler) List(c echo.Context) error {
	list, err := h.Seats.ListShowtimes(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return success(c, "Consulta de funciones realizada con éxito.", list)
}

// Get handles GET /v1/funciones/:id.
func (h *FuncionesHandler) Get(c echo.Context) error {
	st, err := h.Seats.GetShowtime(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return success(c, "Consulta de función realizada con éxito.", st)
}

// Available handles POST /v1/funciones/available.
func (h *FuncionesHandler) Available(c echo.Context) error {
	var req AvailableRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	return h.availability(c, req.ID)
}

// Asientos handles GET /v1/funciones/:id/asientos, the path-style twin of
// Available.
func (h *FuncionesHandler) Asientos(c echo.Context) error {
	return h.availability(c, c.Param("id"))
}

func (h *FuncionesHandler) availability(c echo.Context, id string) error {
	av, err := h.Seats.Availability(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return success(c, "Consulta de disponibilidad realizada con éxito.", av)
}

// Reserve handles POST /v1/funciones/reservar.
func (h *FuncionesHandler) Reserve(c echo.Context) error {
	var req ReserveRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	res, err := h.Seats.Reserve(c.Request().Context(), req.ID, req.Seats)
	if err != nil {
		return fail(c, err)
	}
	return success(c, "Asientos reservados con éxito.", res)
}

// Cancel handles POST /v1/funciones/cancelar-reserva.
func (h *FuncionesHandler) Cancel(c echo.Context) error {
	var req CancelRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	res, err := h.Seats.Cancel(c.Request().Context(), req.ID, req.Seats)
	if err != nil {
		return fail(c, err)
	}
	return success(c, "Reserva de asientos cancelada con éxito.", res)
}
