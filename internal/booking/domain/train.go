package domain

import (
	"context"
	"time"
)

// Train é a linha de inventário de um trem. AvailableSeats nunca sai do intervalo [0, TotalSeats].
type Train struct {
	ID             int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	TrainNumber    string `json:"trainNumber" gorm:"size:64;not null"`
	Source         string `json:"source" gorm:"size:128;not null;index:idx_trains_route"`
	Destination    string `json:"destination" gorm:"size:128;not null;index:idx_trains_route"`
	TotalSeats     int    `json:"totalSeats" gorm:"not null;check:chk_trains_total,total_seats >= 0"`
	AvailableSeats int    `json:"availableSeats" gorm:"not null;check:chk_trains_available,available_seats >= 0 AND available_seats <= total_seats"`
}

// Booking é gravada na mesma transação que decrementa o inventário.
type Booking struct {
	ID        string    `json:"bookingId" gorm:"primaryKey;size:36"`
	UserID    int64     `json:"userId" gorm:"not null;index"`
	TrainID   int64     `json:"trainId" gorm:"not null;index"`
	Seats     int       `json:"seats" gorm:"column:number_of_seats;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserBooking é a visão de leitura das reservas de um usuário junto com a rota do trem.
type UserBooking struct {
	BookingID   string    `json:"bookingId"`
	Seats       int       `json:"numberOfSeats"`
	TrainID     int64     `json:"trainId"`
	TrainNumber string    `json:"trainNumber"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Tx identifica uma transação aberta. Cada implementação de armazenamento reconhece apenas as próprias.
type Tx interface {
	ID() string
}

type TxManager interface {
	// WithinTx executa fn numa transação. Retorno nil confirma; qualquer erro desfaz tudo e libera os bloqueios.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Ledger controla o contador de assentos de cada trem.
// As mutações exigem que o trem já esteja bloqueado por LockForUpdate na mesma transação.
type Ledger interface {
	LockForUpdate(ctx context.Context, tx Tx, trainID int64) (Train, error)
	DecrementAvailable(ctx context.Context, tx Tx, trainID int64, n int) error
	IncrementAvailable(ctx context.Context, tx Tx, trainID int64, n int) error
	SetSeats(ctx context.Context, tx Tx, trainID int64, totalSeats, availableSeats int) error
}

type BookingRepository interface {
	Insert(ctx context.Context, tx Tx, booking Booking) error
	FindByUser(ctx context.Context, userID int64) ([]UserBooking, error)
	SumSeatsByTrain(ctx context.Context, trainID int64) (int, error)
}

type TrainCatalog interface {
	CreateTrains(ctx context.Context, trains []Train) ([]Train, error)
	FindByID(ctx context.Context, trainID int64) (Train, error)
}

// AvailabilityReader lê sem bloqueio; o resultado pode estar defasado em relação a reservas em andamento.
type AvailabilityReader interface {
	FindByRoute(ctx context.Context, source, destination string) ([]Train, error)
}

// TrainStore reúne tudo que um backend de armazenamento precisa oferecer.
type TrainStore interface {
	TxManager
	Ledger
	BookingRepository
	TrainCatalog
	AvailabilityReader
}
