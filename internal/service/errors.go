package service

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Domain error kinds returned by SeatService.  Seat-specific failures come
// wrapped in *SeatError so callers can recover the offending seat code while
// still matching the kind with errors.Is.
var (
	ErrShowtimeNotFound     = errors.New("showtime not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrLayoutEmpty          = errors.New("room has no seats")
	ErrSeatUnknown          = errors.New("seat not in room layout")
	ErrSeatAlreadyReserved  = errors.New("seat already reserved")
	ErrSeatNotReserved      = errors.New("seat not reserved")
	ErrCancellationConflict = errors.New("cancellation conflict")
	ErrEmptySelection       = errors.New("empty seat selection")
)

// SeatError reports the first seat that failed validation.
type SeatError struct {
	Kind error
	Code string
}

func (e *SeatError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Code) }

func (e *SeatError) Is(target error) bool { return target == e.Kind }

func seatErr(kind error, code string) error { return &SeatError{Kind: kind, Code: code} }

// SeatCode returns the seat named by a seat error.
func SeatCode(err error) (string, bool) {
	var se *SeatError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return "", false
}

// Retryable reports whether the caller may resubmit the same request
// unchanged.  Only a cancellation that lost a race qualifies.
func Retryable(err error) bool {
	return errors.Is(err, ErrCancellationConflict)
}

// IsNotFound groups the kinds surfaced as "Not Found".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrShowtimeNotFound) || errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrLayoutEmpty)
}

// IsValidation groups the kinds the user fixes by choosing other seats.
func IsValidation(err error) bool {
	return errors.Is(err, ErrSeatUnknown) || errors.Is(err, ErrSeatAlreadyReserved) ||
		errors.Is(err, ErrSeatNotReserved) || errors.Is(err, ErrEmptySelection)
}

// Message renders the user-facing (Spanish) message for err.
func Message(err error) string {
	code, _ := SeatCode(err)
	switch {
	case errors.Is(err, ErrShowtimeNotFound):
		return "La función ingresada no existe, por favor revíselo nuevamente."
	case errors.Is(err, ErrRoomNotFound):
		return "La sala especificada no existe, por favor revíselo nuevamente."
	case errors.Is(err, ErrLayoutEmpty):
		return "Los asientos para la sala especificada no existen."
	case errors.Is(err, ErrSeatUnknown):
		return fmt.Sprintf("El asiento %s no existe en la sala.", code)
	case errors.Is(err, ErrSeatAlreadyReserved):
		return fmt.Sprintf("El asiento %s ya está reservado.", code)
	case errors.Is(err, ErrSeatNotReserved):
		return fmt.Sprintf("El asiento %s no está reservado para esta función.", code)
	case errors.Is(err, ErrCancellationConflict):
		return "No se pudo cancelar la reserva de asientos. Intente nuevamente."
	case errors.Is(err, ErrEmptySelection):
		return "Debe proporcionar al menos un asiento."
	}
	return "Error interno del servidor."
}
