package application

import (
	"github.com/siddharth-2002/API-Workindia/pkg/domain"
)

const (
	SeatsBookedEventName       = "SeatsBooked"
	TrainAddedEventName        = "TrainAdded"
	TrainSeatsUpdatedEventName = "TrainSeatsUpdated"
)

// InventoryEventNames são todos os eventos que alteram a disponibilidade de uma rota.
var InventoryEventNames = []string{SeatsBookedEventName, TrainAddedEventName, TrainSeatsUpdatedEventName}

// InventoryChangedData descreve o estado confirmado de um trem após uma mudança de inventário.
type InventoryChangedData struct {
	TrainID        int64  `json:"trainId"`
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	TotalSeats     int    `json:"totalSeats"`
	AvailableSeats int    `json:"availableSeats"`
	BookingID      string `json:"bookingId,omitempty"`
	Seats          int    `json:"seats,omitempty"`
}

type inventoryChangedEvent struct {
	name string
	data InventoryChangedData
}

func (e inventoryChangedEvent) EventName() string {
	return e.name
}

func (e inventoryChangedEvent) Payload() InventoryChangedData {
	return e.data
}

func NewSeatsBookedEvent(data InventoryChangedData) domain.Event[InventoryChangedData] {
	return inventoryChangedEvent{name: SeatsBookedEventName, data: data}
}

func NewTrainAddedEvent(data InventoryChangedData) domain.Event[InventoryChangedData] {
	return inventoryChangedEvent{name: TrainAddedEventName, data: data}
}

func NewTrainSeatsUpdatedEvent(data InventoryChangedData) domain.Event[InventoryChangedData] {
	return inventoryChangedEvent{name: TrainSeatsUpdatedEventName, data: data}
}
