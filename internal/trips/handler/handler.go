package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sojourn/internal/compliance"
	"sojourn/internal/trips/models"
	"sojourn/internal/trips/service"
	id "sojourn/pkg/domain"
	dErrors "sojourn/pkg/domain-errors"
	"sojourn/pkg/platform/httputil"
	"sojourn/pkg/requestcontext"
)

// Service defines the trip operations the handler needs.
type Service interface {
	AddTrip(ctx context.Context, personID id.PersonID, in service.TripInput) (*models.Trip, error)
	UpdateTrip(ctx context.Context, personID id.PersonID, tripID id.TripID, in service.TripInput) (*models.Trip, error)
	DeleteTrip(ctx context.Context, personID id.PersonID, tripID id.TripID) error
	ListTrips(ctx context.Context, personID id.PersonID) ([]*models.Trip, error)
	Conflicts(ctx context.Context, personID id.PersonID) ([]compliance.Conflict, error)
}

// Handler wires trip endpoints to the trip service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a trip handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts trip endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/persons/{personID}/trips", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/conflicts", h.HandleConflicts)
		r.Put("/{tripID}", h.HandleUpdate)
		r.Delete("/{tripID}", h.HandleDelete)
	})
}

// HandleCreate handles POST /persons/{personID}/trips.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[TripRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	trip, err := h.service.AddTrip(ctx, personID, req.ToInput())
	if err != nil {
		h.writeError(ctx, w, err, "trip create failed", "person_id", personID)
		return
	}

	h.logger.InfoContext(ctx, "trip created",
		"request_id", requestID,
		"person_id", personID,
		"trip_id", trip.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, trip)
}

// HandleList handles GET /persons/{personID}/trips.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	trips, err := h.service.ListTrips(ctx, personID)
	if err != nil {
		h.writeError(ctx, w, err, "trip list failed", "person_id", personID)
		return
	}
	if trips == nil {
		trips = []*models.Trip{}
	}
	httputil.WriteJSON(w, http.StatusOK, TripListResponse{PersonID: personID, Trips: trips, Count: len(trips)})
}

// HandleUpdate handles PUT /persons/{personID}/trips/{tripID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	personID, tripID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[TripRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	trip, err := h.service.UpdateTrip(ctx, personID, tripID, req.ToInput())
	if err != nil {
		h.writeError(ctx, w, err, "trip update failed", "person_id", personID, "trip_id", tripID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trip)
}

// HandleDelete handles DELETE /persons/{personID}/trips/{tripID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personID, tripID, err := pathIDs(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteTrip(ctx, personID, tripID); err != nil {
		h.writeError(ctx, w, err, "trip delete failed", "person_id", personID, "trip_id", tripID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleConflicts handles GET /persons/{personID}/trips/conflicts.
func (h *Handler) HandleConflicts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	conflicts, err := h.service.Conflicts(ctx, personID)
	if err != nil {
		h.writeError(ctx, w, err, "trip re-validation failed", "person_id", personID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromConflicts(personID, conflicts))
}

// writeError logs and writes err. Overlap conflicts carry the existing trip.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}

	var conflict *compliance.ConflictError
	if errors.As(err, &conflict) {
		httputil.WriteJSON(w, http.StatusConflict, ConflictResponse{
			Error:       string(dErrors.CodeConflict),
			Description: "trip overlaps an existing trip",
			Conflict:    fromInterval(conflict.Existing),
		})
		return
	}
	httputil.WriteError(w, err)
}

func pathIDs(r *http.Request) (id.PersonID, id.TripID, error) {
	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		return id.PersonID{}, id.TripID{}, err
	}
	tripID, err := id.ParseTripID(chi.URLParam(r, "tripID"))
	if err != nil {
		return id.PersonID{}, id.TripID{}, err
	}
	return personID, tripID, nil
}
