package booking

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/siddharth-2002/API-Workindia/internal/booking/application"
	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	"github.com/siddharth-2002/API-Workindia/internal/booking/infrastructure"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
	pkgDomain "github.com/siddharth-2002/API-Workindia/pkg/domain"
)

type Options struct {
	Store       domain.TrainStore
	Reader      domain.AvailabilityReader
	Invalidator application.AvailabilityInvalidator
	LockTimeout time.Duration
	Auth        infrastructure.AuthConfig
	Metrics     application.BookingMetrics
}

type BookingSlice struct {
	Coordinator *application.Coordinator
	Catalog     *application.CatalogService
	httpHandler *infrastructure.BookingHTTPHandler
}

// NewBookingSlice registra os manipuladores da fatia nos barramentos e monta o handler HTTP.
// Reader e Invalidator são opcionais; sem eles a disponibilidade é lida direto do Store.
func NewBookingSlice(
	commandBus infrastructure.BookSeatsCommandBus,
	availabilityBus infrastructure.AvailabilityQueryBus,
	userBookingsBus infrastructure.UserBookingsQueryBus,
	eventBus application.InventoryEventBus,
	idGenerator pkgDomain.IDGenerator[string],
	logger pkgApp.AppLogger,
	opts Options,
) *BookingSlice {
	reader := opts.Reader
	if reader == nil {
		reader = opts.Store
	}

	coordinator := application.NewCoordinator(opts.Store, opts.Store, opts.Store, idGenerator, opts.LockTimeout, logger, opts.Metrics)
	catalog := application.NewCatalogService(opts.Store, eventBus, logger)

	commandBus.RegisterHandler(application.BookSeatsCommandName, application.NewBookSeatsHandler(coordinator, eventBus, logger))
	availabilityBus.RegisterHandler(application.FindAvailabilityQueryName, application.NewFindAvailabilityHandler(reader, logger))
	userBookingsBus.RegisterHandler(application.FindUserBookingsQueryName, application.NewFindUserBookingsHandler(opts.Store, logger))

	eventHandler := application.NewInventoryChangedEventHandler(opts.Invalidator, logger)
	for _, name := range application.InventoryEventNames {
		eventBus.RegisterHandler(name, eventHandler)
	}

	httpHandler := infrastructure.NewBookingHTTPHandler(commandBus, availabilityBus, userBookingsBus, catalog, idGenerator, opts.Auth, logger)

	return &BookingSlice{
		Coordinator: coordinator,
		Catalog:     catalog,
		httpHandler: httpHandler,
	}
}

func (s *BookingSlice) RegisterRoutes(router chi.Router) {
	s.httpHandler.RegisterRoutes(router)
}
