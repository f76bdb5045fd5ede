package service

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrShowtimeNotFound, "La función ingresada no existe, por favor revíselo nuevamente."},
		{errors.Mark(errors.New("room x"), ErrRoomNotFound), "La sala especificada no existe, por favor revíselo nuevamente."},
		{ErrLayoutEmpty, "Los asientos para la sala especificada no existen."},
		{seatErr(ErrSeatUnknown, "Z9"), "El asiento Z9 no existe en la sala."},
		{seatErr(ErrSeatAlreadyReserved, "A2"), "El asiento A2 ya está reservado."},
		{seatErr(ErrSeatNotReserved, "A1"), "El asiento A1 no está reservado para esta función."},
		{ErrEmptySelection, "Debe proporcionar al menos un asiento."},
		{errors.New("boom"), "Error interno del servidor."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Message(tt.err))
	}
}

func TestClassification(t *testing.T) {
	conflict := errors.Wrap(ErrCancellationConflict, "showtime S1")
	assert.True(t, Retryable(conflict))
	assert.False(t, Retryable(seatErr(ErrSeatAlreadyReserved, "A1")))

	assert.True(t, IsValidation(seatErr(ErrSeatUnknown, "Z9")))
	assert.True(t, IsValidation(ErrEmptySelection))
	assert.False(t, IsValidation(conflict))

	assert.True(t, IsNotFound(ErrRoomNotFound))
	assert.False(t, IsNotFound(seatErr(ErrSeatNotReserved, "A1")))
}

func TestSeatErrorMatchesOnlyItsKind(t *testing.T) {
	err := errors.Wrap(seatErr(ErrSeatUnknown, "Q7"), "reserve")

	assert.True(t, errors.Is(err, ErrSeatUnknown))
	assert.False(t, errors.Is(err, ErrSeatAlreadyReserved))
	code, ok := SeatCode(err)
	assert.True(t, ok)
	assert.Equal(t, "Q7", code)
}
