package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sojourn/internal/compliance"
	"sojourn/internal/compliance/service"
	"sojourn/internal/zone"
	id "sojourn/pkg/domain"
	dErrors "sojourn/pkg/domain-errors"
	"sojourn/pkg/platform/httputil"
	"sojourn/pkg/requestcontext"
)

// Service defines the compliance operations the handler needs.
type Service interface {
	Status(ctx context.Context, personID id.PersonID, ref id.Date) (compliance.Status, error)
	WhatIf(ctx context.Context, personID id.PersonID, h service.Hypothetical, ref id.Date) (compliance.Status, error)
	ScanRisk(ctx context.Context, personID id.PersonID, from, to id.Date) ([]compliance.Status, error)
	NextAtRisk(ctx context.Context, personID id.PersonID, from id.Date, horizonDays int) (compliance.Status, bool, error)
	MaxStay(ctx context.Context, personID id.PersonID, entry id.Date) (int, error)
	Dashboard(ctx context.Context, ref id.Date) (*service.Dashboard, error)
}

// ZoneTable exposes the zone reference data.
type ZoneTable interface {
	All() []zone.Zone
	Policy() zone.UnknownPolicy
}

// Handler wires compliance endpoints to the compliance service.
type Handler struct {
	service Service
	zones   ZoneTable
	logger  *slog.Logger
}

// New constructs a compliance handler.
func New(service Service, zones ZoneTable, logger *slog.Logger) *Handler {
	return &Handler{service: service, zones: zones, logger: logger}
}

// Register mounts compliance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/zones", h.HandleZones)
	r.Get("/dashboard", h.HandleDashboard)
	r.Route("/persons/{personID}", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Post("/what-if", h.HandleWhatIf)
		r.Get("/risk", h.HandleRiskScan)
		r.Get("/next-risk", h.HandleNextRisk)
		r.Get("/max-stay", h.HandleMaxStay)
	})
}

// HandleStatus handles GET /persons/{personID}/status?date=YYYY-MM-DD.
// The date defaults to today.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ref, err := dateQuery(r, "date", today(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	st, err := h.service.Status(ctx, personID, ref)
	if err != nil {
		h.writeError(ctx, w, err, "status failed", "person_id", personID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{PersonID: personID, Status: st})
}

// HandleWhatIf handles POST /persons/{personID}/what-if.
func (h *Handler) HandleWhatIf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[WhatIfRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	st, err := h.service.WhatIf(ctx, personID, req.Hypothetical(), req.Reference())
	if err != nil {
		h.writeError(ctx, w, err, "what-if failed", "person_id", personID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{PersonID: personID, Status: st})
}

// HandleRiskScan handles GET /persons/{personID}/risk?from=&to=.
func (h *Handler) HandleRiskScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	from, err := requiredDateQuery(r, "from")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := requiredDateQuery(r, "to")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	days, err := h.service.ScanRisk(ctx, personID, from, to)
	if err != nil {
		h.writeError(ctx, w, err, "risk scan failed", "person_id", personID)
		return
	}
	if days == nil {
		days = []compliance.Status{}
	}
	httputil.WriteJSON(w, http.StatusOK, RiskScanResponse{
		PersonID: personID,
		From:     from,
		To:       to,
		Days:     days,
		Count:    len(days),
	})
}

// HandleNextRisk handles GET /persons/{personID}/next-risk?from=&horizon_days=.
func (h *Handler) HandleNextRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	from, err := dateQuery(r, "from", today(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	horizon, err := horizonQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	st, found, err := h.service.NextAtRisk(ctx, personID, from, horizon)
	if err != nil {
		h.writeError(ctx, w, err, "next-risk failed", "person_id", personID)
		return
	}
	resp := NextRiskResponse{PersonID: personID, From: from, HorizonDays: horizon, Found: found}
	if found {
		resp.Status = &st
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleMaxStay handles GET /persons/{personID}/max-stay?entry=.
func (h *Handler) HandleMaxStay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	personID, err := id.ParsePersonID(chi.URLParam(r, "personID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entry, err := dateQuery(r, "entry", today(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	days, err := h.service.MaxStay(ctx, personID, entry)
	if err != nil {
		h.writeError(ctx, w, err, "max-stay failed", "person_id", personID)
		return
	}
	resp := MaxStayResponse{PersonID: personID, Entry: entry, MaxDays: days}
	if days > 0 {
		last := entry.AddDays(days - 1)
		resp.LastDay = &last
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleDashboard handles GET /dashboard?date=YYYY-MM-DD.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ref, err := dateQuery(r, "date", today(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.service.Dashboard(ctx, ref)
	if err != nil {
		h.writeError(ctx, w, err, "dashboard failed")
		return
	}

	h.logger.InfoContext(ctx, "dashboard served",
		"request_id", requestcontext.RequestID(ctx),
		"persons", len(d.Persons),
		"failures", d.Failures,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromDashboard(d))
}

// HandleZones handles GET /zones.
func (h *Handler) HandleZones(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, ZoneListResponse{
		Zones:         h.zones.All(),
		UnknownPolicy: string(h.zones.Policy()),
	})
}

// writeError logs and writes err. What-if conflicts carry the stored trip.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}

	var conflict *compliance.ConflictError
	if errors.As(err, &conflict) {
		httputil.WriteJSON(w, http.StatusConflict, fromConflict(conflict))
		return
	}
	httputil.WriteError(w, err)
}

func today(ctx context.Context) id.Date {
	return id.DateOf(requestcontext.Now(ctx))
}
