package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/siddharth-2002/API-Workindia/internal/booking"
	"github.com/siddharth-2002/API-Workindia/internal/booking/application"
	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	"github.com/siddharth-2002/API-Workindia/internal/booking/infrastructure"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
	pkgDomain "github.com/siddharth-2002/API-Workindia/pkg/domain"
	pkgInfra "github.com/siddharth-2002/API-Workindia/pkg/infrastructure"
	zapAdapter "github.com/siddharth-2002/API-Workindia/pkg/infrastructure/zaplogger/adapter"
)

var (
	driver      string
	dsn         string
	seats       int
	workers     int
	perBooking  int
	lockTimeout time.Duration
	logLevel    string
)

func init() {
	flag.StringVar(&driver, "driver", infrastructure.DriverMemory, "Storage driver: memory, postgres or mysql")
	flag.StringVar(&dsn, "dsn", "", "Database DSN for postgres or mysql")
	flag.IntVar(&seats, "seats", 20, "Total seats of the seeded train")
	flag.IntVar(&workers, "workers", 50, "Concurrent booking attempts")
	flag.IntVar(&perBooking, "per-booking", 1, "Seats requested by each attempt")
	flag.DurationVar(&lockTimeout, "lock-timeout", 5*time.Second, "Lock wait limit for each attempt")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level")
}

func main() {
	flag.Parse()

	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	appLogger, err := zapAdapter.NewZapAppLogger(zapAdapter.Config{App: "booking-contention", Level: logLevel})
	if err != nil {
		return err
	}

	store, closeStore, err := infrastructure.NewTrainStore(infrastructure.DatabaseConfig{
		Driver:      driver,
		DSN:         dsn,
		AutoMigrate: true,
	}, appLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	commandBus := pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.BookSeatsData], application.BookSeatsData](appLogger)
	availabilityBus := pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.FindAvailabilityData], application.FindAvailabilityData, application.AvailabilityResult](appLogger)
	userBookingsBus := pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.FindUserBookingsData], application.FindUserBookingsData, []domain.UserBooking](appLogger)
	eventBus := pkgInfra.NewSimpleEventBus[pkgDomain.Event[application.InventoryChangedData], application.InventoryChangedData](appLogger)

	slice := booking.NewBookingSlice(commandBus, availabilityBus, userBookingsBus, eventBus, pkgInfra.GenerateUUID, appLogger, booking.Options{
		Store:       store,
		LockTimeout: lockTimeout,
	})

	trains, err := slice.Catalog.AddTrains(ctx, []application.NewTrain{{
		TrainNumber: fmt.Sprintf("CONTENTION-%d", time.Now().Unix()),
		Source:      "contention-src",
		Destination: "contention-dst",
		TotalSeats:  seats,
	}})
	if err != nil {
		return fmt.Errorf("seeding train: %w", err)
	}
	train := trains[0]

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make(map[string]int)
	)
	start := time.Now()
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			err := commandBus.Dispatch(ctx, application.NewBookSeatsCommand(application.BookSeatsData{
				UserID:  userID,
				TrainID: train.ID,
				Seats:   perBooking,
			}))
			mu.Lock()
			outcomes[domain.Outcome(err)]++
			mu.Unlock()
		}(int64(i + 1))
	}
	wg.Wait()
	elapsed := time.Since(start)

	audit, err := slice.Catalog.AuditTrain(ctx, train.ID)
	if err != nil {
		return fmt.Errorf("auditing train: %w", err)
	}

	names := make([]string, 0, len(outcomes))
	for name := range outcomes {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("train %d (%s): %d attempts of %d seat(s) in %s\n", train.ID, train.TrainNumber, workers, perBooking, elapsed)
	for _, name := range names {
		fmt.Printf("  %-20s %d\n", name, outcomes[name])
	}
	fmt.Printf("total=%d available=%d booked=%d consistent=%t\n", audit.TotalSeats, audit.AvailableSeats, audit.BookedSeats, audit.Consistent)

	if !audit.Consistent {
		pkgApp.LogError(ctx, appLogger, "seat conservation violated", nil, map[string]interface{}{"audit": audit})
		return fmt.Errorf("seat conservation violated for train %d", train.ID)
	}
	return nil
}
