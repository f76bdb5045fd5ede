package handler

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// Values of Response.Status.
const (
	StatusSuccess  = "Success"
	StatusError    = "Error"
	StatusNotFound = "Not Found"
)

const msgBadBody = "El cuerpo de la solicitud no es válido."

// Response is the envelope every /v1 endpoint answers with.  Asiento names
// the seat a seat error refers to and Reintentar marks errors the client may
// retry unchanged.
type Response struct {
	Status     string      `json:"status"`
	Mensaje    string      `json:"mensaje"`
	Asiento    string      `json:"asiento,omitempty"`
	Reintentar bool        `json:"reintentar,omitempty"`
	Datos      interface{} `json:"datos,omitempty"`
}

func success(c echo.Context, msg string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Status: StatusSuccess, Mensaje: msg, Datos: data})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, Response{Status: StatusError, Mensaje: msg})
}

// fail maps a service error onto a status code and envelope.
func fail(c echo.Context, err error) error {
	resp := Response{Status: StatusError, Mensaje: service.Message(err)}
	code := http.StatusInternalServerError
	switch {
	case service.IsNotFound(err):
		code = http.StatusNotFound
		resp.Status = StatusNotFound
	case service.Retryable(err):
		code = http.StatusConflict
		resp.Reintentar = true
	case errors.Is(err, service.ErrSeatAlreadyReserved):
		code = http.StatusConflict
	case service.IsValidation(err):
		code = http.StatusBadRequest
	default:
		logger.WithContext(c.Request().Context()).Error("request failed",
			"path", c.Request().URL.Path, "error", fmt.Sprintf("%+v", err))
	}
	if seat, ok := service.SeatCode(err); ok {
		resp.Asiento = seat
	}
	return c.JSON(code, resp)
}

// Validator adapts go-playground/validator to echo.  Field names in
// messages use the JSON names clients send.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns the validator installed as echo.Echo.Validator.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// bindRequest decodes and validates req.  On failure it has already written
// the 400 response and returns ok=false together with the write error.
func bindRequest(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, msgBadBody)
	}
	if err := c.Validate(req); err != nil {
		return false, badRequest(c, validationMessage(err))
	}
	return true, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return fmt.Sprintf("El campo %s es obligatorio.", fe.Field())
		}
		return fmt.Sprintf("El campo %s no es válido.", fe.Field())
	}
	return msgBadBody
}
