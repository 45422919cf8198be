package application

import (
	"github.com/siddharth-2002/API-Workindia/pkg/domain"
)

const BookSeatsCommandName = "BookSeats"

// BookSeatsData contém os dados necessários para reservar assentos num trem.
// BookingID pode vir preenchido para que quem despacha conheça a identidade da reserva.
type BookSeatsData struct {
	BookingID string `json:"bookingId"`
	UserID    int64  `json:"userId"`
	TrainID   int64  `json:"trainId"`
	Seats     int    `json:"seatsToBook"`
}

type bookSeatsCommand struct {
	data BookSeatsData
}

func (c bookSeatsCommand) CommandName() string {
	return BookSeatsCommandName
}

func (c bookSeatsCommand) Payload() BookSeatsData {
	return c.data
}

func NewBookSeatsCommand(data BookSeatsData) domain.Command[BookSeatsData] {
	return bookSeatsCommand{data: data}
}
