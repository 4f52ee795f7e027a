package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/velotracker/apiserver/internal/logger"
	"github.com/velotracker/apiserver/internal/services"
	"github.com/velotracker/apiserver/internal/store"
	"github.com/velotracker/apiserver/types"
)

const (
	defaultRideTitle    = "New Ride"
	defaultRideDuration = "00:00:00"
)

// RideHandler provides HTTP handlers for rides.
type RideHandler struct {
	rideService *services.RideService
	log         *logger.Logger
}

// NewRideHandler constructs a handler with the provided service.
func NewRideHandler(rideService *services.RideService, log *logger.Logger) *RideHandler {
	return &RideHandler{rideService: rideService, log: log}
}

// RideRouter registers ride routes on the given router. Every route
// requires authentication.
func RideRouter(r chi.Router, rideService *services.RideService, log *logger.Logger, authMiddleware func(http.Handler) http.Handler) {
	handler := NewRideHandler(rideService, log)

	r.Use(authMiddleware)
	r.Post("/", handler.CreateRide)
	r.Get("/", handler.ListRides)
	r.Route("/{rideID}", func(r chi.Router) {
		r.Get("/", handler.GetRide)
		r.Put("/", handler.UpdateRide)
		r.Delete("/", handler.DeleteRide)
	})
}

// CreateRide stores a new ride for the caller, applying defaults for
// any omitted optional fields.
func (h *RideHandler) CreateRide(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RideCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ride := types.Ride{
		UserID:    identity.ID,
		Title:     req.Title,
		Distance:  req.Distance,
		Duration:  req.Duration,
		AvgSpeed:  req.AvgSpeed,
		MaxSpeed:  req.MaxSpeed,
		Notes:     req.Notes,
		RouteData: req.RouteData,
	}
	if ride.Title == "" {
		ride.Title = defaultRideTitle
	}
	if ride.Duration == "" {
		ride.Duration = defaultRideDuration
	}
	if req.StartTime != nil {
		ride.StartTime = *req.StartTime
	} else {
		ride.StartTime = time.Now()
	}

	created, err := h.rideService.Create(r.Context(), ride)
	if err != nil {
		h.log.Error("create ride failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, RideResponse{Message: "Ride saved successfully", Ride: created})
}

// ListRides returns all of the caller's rides, most recent first.
func (h *RideHandler) ListRides(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	rides, err := h.rideService.ListByUser(r.Context(), identity.ID)
	if err != nil {
		h.log.Error("list rides failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, rides)
}

func (h *RideHandler) GetRide(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := parseRideID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ride, err := h.rideService.GetByID(r.Context(), identity.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Ride not found")
			return
		}
		h.log.Error("get ride failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, ride)
}

// UpdateRide changes the title and notes of a ride owned by the caller.
func (h *RideHandler) UpdateRide(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := parseRideID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req RideUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ride, err := h.rideService.Update(r.Context(), identity.ID, id, req.Title, req.Notes)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Ride not found")
			return
		}
		h.log.Error("update ride failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, ride)
}

func (h *RideHandler) DeleteRide(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	id, err := parseRideID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.rideService.Delete(r.Context(), identity.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Ride not found")
			return
		}
		h.log.Error("delete ride failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Ride deleted successfully"})
}

// RideCreateRequest is the JSON body for ride submission. All fields
// are optional; missing values get defaults.
type RideCreateRequest struct {
	Title     string          `json:"title"`
	Distance  float64         `json:"distance"`
	Duration  string          `json:"duration"`
	AvgSpeed  float64         `json:"avg_speed"`
	MaxSpeed  float64         `json:"max_speed"`
	StartTime *time.Time      `json:"start_time"`
	Notes     string          `json:"notes"`
	RouteData json.RawMessage `json:"route_data"`
}

// RideUpdateRequest restricts updates to title and notes.
type RideUpdateRequest struct {
	Title string `json:"title"`
	Notes string `json:"notes"`
}

// RideResponse wraps a ride with a status message.
type RideResponse struct {
	Message string     `json:"message"`
	Ride    types.Ride `json:"ride"`
}

func parseRideID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "rideID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid ride id")
	}
	return id, nil
}
