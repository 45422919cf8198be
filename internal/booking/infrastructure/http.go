package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/siddharth-2002/API-Workindia/internal/booking/application"
	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
	pkgDomain "github.com/siddharth-2002/API-Workindia/pkg/domain"
)

const requestTimeout = 10 * time.Second

type (
	BookSeatsCommandBus  = pkgApp.CommandBus[pkgDomain.Command[application.BookSeatsData], application.BookSeatsData]
	AvailabilityQueryBus = pkgApp.QueryBus[pkgDomain.Query[application.FindAvailabilityData], application.FindAvailabilityData, application.AvailabilityResult]
	UserBookingsQueryBus = pkgApp.QueryBus[pkgDomain.Query[application.FindUserBookingsData], application.FindUserBookingsData, []domain.UserBooking]
)

type BookingHTTPHandler struct {
	commandBus      BookSeatsCommandBus
	availabilityBus AvailabilityQueryBus
	userBookingsBus UserBookingsQueryBus
	catalog         *application.CatalogService
	idGenerator     pkgDomain.IDGenerator[string]
	auth            AuthConfig
	logger          pkgApp.AppLogger
}

func NewBookingHTTPHandler(
	commandBus BookSeatsCommandBus,
	availabilityBus AvailabilityQueryBus,
	userBookingsBus UserBookingsQueryBus,
	catalog *application.CatalogService,
	idGenerator pkgDomain.IDGenerator[string],
	auth AuthConfig,
	logger pkgApp.AppLogger,
) *BookingHTTPHandler {
	return &BookingHTTPHandler{
		commandBus:      commandBus,
		availabilityBus: availabilityBus,
		userBookingsBus: userBookingsBus,
		catalog:         catalog,
		idGenerator:     idGenerator,
		auth:            auth,
		logger:          logger,
	}
}

type bookSeatsRequest struct {
	TrainID int64 `json:"trainId"`
	Seats   int   `json:"seatsToBook"`
}

func (h *BookingHTTPHandler) HandleBookSeats(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		handleError(w, "Authorization token required", http.StatusUnauthorized)
		return
	}

	var req bookSeatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	data := application.BookSeatsData{
		BookingID: h.idGenerator(),
		UserID:    userID,
		TrainID:   req.TrainID,
		Seats:     req.Seats,
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.commandBus.Dispatch(ctx, application.NewBookSeatsCommand(data)); err != nil {
		h.handleDomainError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Seats booked successfully",
		"bookingId": data.BookingID,
		"trainId":   data.TrainID,
		"seats":     data.Seats,
	})
}

func (h *BookingHTTPHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	data := application.FindAvailabilityData{
		Source:      r.URL.Query().Get("source"),
		Destination: r.URL.Query().Get("destination"),
	}
	if data.Source == "" || data.Destination == "" {
		handleError(w, "Source and destination are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	result, err := h.availabilityBus.Dispatch(ctx, application.NewFindAvailabilityQuery(data))
	if err != nil {
		if errors.Is(err, domain.ErrTrainNotFound) {
			handleError(w, "No trains available for the specified route", http.StatusNotFound)
			return
		}
		h.handleDomainError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *BookingHTTPHandler) HandleUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		handleError(w, "Authorization token required", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	bookings, err := h.userBookingsBus.Dispatch(ctx, application.NewFindUserBookingsQuery(application.FindUserBookingsData{UserID: userID}))
	if err != nil {
		h.handleDomainError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

func (h *BookingHTTPHandler) HandleAddTrains(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		handleError(w, "Please provide train data to add.", http.StatusBadRequest)
		return
	}

	var newTrains []application.NewTrain
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &newTrains); err != nil {
			handleError(w, "Invalid request", http.StatusBadRequest)
			return
		}
	} else {
		var single application.NewTrain
		if err := json.Unmarshal(trimmed, &single); err != nil {
			handleError(w, "Invalid request", http.StatusBadRequest)
			return
		}
		newTrains = []application.NewTrain{single}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	trains, err := h.catalog.AddTrains(ctx, newTrains)
	if err != nil {
		h.handleDomainError(ctx, w, err)
		return
	}

	trainIDs := make([]map[string]interface{}, 0, len(trains))
	for _, train := range trains {
		trainIDs = append(trainIDs, map[string]interface{}{
			"trainNumber": train.TrainNumber,
			"trainId":     train.ID,
		})
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Trains added successfully",
		"trainIds": trainIDs,
	})
}

type updateSeatsRequest struct {
	TotalSeats     *int `json:"totalSeats"`
	AvailableSeats *int `json:"availableSeats"`
}

func (h *BookingHTTPHandler) HandleUpdateSeats(w http.ResponseWriter, r *http.Request) {
	trainID, ok := trainIDParam(w, r)
	if !ok {
		return
	}

	var req updateSeatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.TotalSeats == nil || req.AvailableSeats == nil {
		handleError(w, "Total seats and available seats are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	train, err := h.catalog.UpdateTrainSeats(ctx, trainID, *req.TotalSeats, *req.AvailableSeats)
	if err != nil {
		h.handleDomainError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Seats updated successfully",
		"train":   train,
	})
}

func (h *BookingHTTPHandler) HandleAuditTrain(w http.ResponseWriter, r *http.Request) {
	trainID, ok := trainIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	audit, err := h.catalog.AuditTrain(ctx, trainID)
	if err != nil {
		h.handleDomainError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, audit)
}

func (h *BookingHTTPHandler) RegisterRoutes(router chi.Router) {
	router.Route("/user", func(r chi.Router) {
		r.Get("/availability", h.HandleAvailability)
		r.Group(func(r chi.Router) {
			r.Use(RequireUser(h.auth))
			r.Post("/book", h.HandleBookSeats)
			r.Get("/getAllbookings", h.HandleUserBookings)
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdminKey(h.auth))
		r.Post("/addTrain", h.HandleAddTrains)
		r.Put("/update-seats/{trainId}", h.HandleUpdateSeats)
		r.Get("/trains/{trainId}/audit", h.HandleAuditTrain)
	})
}

func trainIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	trainID, err := strconv.ParseInt(chi.URLParam(r, "trainId"), 10, 64)
	if err != nil || trainID <= 0 {
		handleError(w, "Invalid train id", http.StatusBadRequest)
		return 0, false
	}
	return trainID, true
}

// StatusFor mapeia a taxonomia de domínio para códigos HTTP.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTrainNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientSeats):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *BookingHTTPHandler) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		pkgApp.LogError(ctx, h.logger, "request failed", err, nil)
		handleError(w, "Internal server error", status)
		return
	}
	handleError(w, err.Error(), status)
}

func handleError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
