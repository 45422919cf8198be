package application

import (
	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	pkgDomain "github.com/siddharth-2002/API-Workindia/pkg/domain"
)

const (
	FindAvailabilityQueryName = "FindAvailability"
	FindUserBookingsQueryName = "FindUserBookings"
)

type FindAvailabilityData struct {
	Source      string
	Destination string
}

// TrainAvailability é uma linha da listagem de disponibilidade.
type TrainAvailability struct {
	TrainID        int64  `json:"trainId"`
	TrainNumber    string `json:"trainNumber"`
	AvailableSeats int    `json:"availableSeats"`
}

// AvailabilityResult lista todos os trens da rota; a contagem considera apenas os que ainda têm assentos.
type AvailabilityResult struct {
	Available           bool                `json:"available"`
	AvailableTrainCount int                 `json:"availableTrainCount"`
	Trains              []TrainAvailability `json:"trains"`
}

func NewAvailabilityResult(trains []domain.Train) AvailabilityResult {
	result := AvailabilityResult{Trains: make([]TrainAvailability, 0, len(trains))}
	for _, train := range trains {
		result.Trains = append(result.Trains, TrainAvailability{
			TrainID:        train.ID,
			TrainNumber:    train.TrainNumber,
			AvailableSeats: train.AvailableSeats,
		})
		if train.AvailableSeats > 0 {
			result.AvailableTrainCount++
		}
	}
	result.Available = result.AvailableTrainCount > 0
	return result
}

type findAvailabilityQuery struct {
	data FindAvailabilityData
}

func (q findAvailabilityQuery) QueryName() string {
	return FindAvailabilityQueryName
}

func (q findAvailabilityQuery) Payload() FindAvailabilityData {
	return q.data
}

func NewFindAvailabilityQuery(data FindAvailabilityData) pkgDomain.Query[FindAvailabilityData] {
	return findAvailabilityQuery{data: data}
}

type FindUserBookingsData struct {
	UserID int64
}

type findUserBookingsQuery struct {
	data FindUserBookingsData
}

func (q findUserBookingsQuery) QueryName() string {
	return FindUserBookingsQueryName
}

func (q findUserBookingsQuery) Payload() FindUserBookingsData {
	return q.data
}

func NewFindUserBookingsQuery(data FindUserBookingsData) pkgDomain.Query[FindUserBookingsData] {
	return findUserBookingsQuery{data: data}
}
