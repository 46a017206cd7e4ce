package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sojourn/internal/compliance"
	"sojourn/internal/trips/handler/mocks"
	"sojourn/internal/trips/models"
	"sojourn/internal/trips/service"
	id "sojourn/pkg/domain"
	dErrors "sojourn/pkg/domain-errors"
)

type TripHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	person  id.PersonID
}

func TestTripHandlerSuite(t *testing.T) {
	suite.Run(t, new(TripHandlerSuite))
}

func (s *TripHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
	s.person = id.NewPersonID()
}

func (s *TripHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *TripHandlerSuite) tripsPath() string {
	return "/persons/" + s.person.String() + "/trips"
}

func (s *TripHandlerSuite) sampleTrip() *models.Trip {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	trip, err := models.NewTrip(id.NewTripID(), s.person, "FR",
		id.MustParseDate("2025-01-01"), id.MustParseDate("2025-01-10"), "", "", now)
	s.Require().NoError(err)
	return trip
}

func (s *TripHandlerSuite) TestCreate() {
	s.Run("valid request returns created trip", func() {
		trip := s.sampleTrip()
		s.service.EXPECT().AddTrip(gomock.Any(), s.person, service.TripInput{
			ZoneCode:  "fr",
			EntryDate: id.MustParseDate("2025-01-01"),
			ExitDate:  id.MustParseDate("2025-01-10"),
			Source:    compliance.SourceManual,
		}).Return(trip, nil)

		rec := s.do(http.MethodPost, s.tripsPath(),
			`{"zone_code":" fr ","entry_date":"2025-01-01","exit_date":"2025-01-10"}`)

		s.Equal(http.StatusCreated, rec.Code)
		var body map[string]any
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal(trip.ID.String(), body["id"])
		s.Equal("2025-01-01", body["entry_date"])
		s.Equal("2025-01-10", body["exit_date"])
	})

	s.Run("conflict returns the existing trip", func() {
		existing := s.sampleTrip().ToInterval(true)
		conflict := &compliance.ConflictError{Existing: existing}
		s.service.EXPECT().AddTrip(gomock.Any(), s.person, gomock.Any()).
			Return(nil, dErrors.Wrap(conflict, dErrors.CodeConflict, "trip overlaps an existing trip"))

		rec := s.do(http.MethodPost, s.tripsPath(),
			`{"zone_code":"DE","entry_date":"2025-01-10","exit_date":"2025-01-12"}`)

		s.Equal(http.StatusConflict, rec.Code)
		var body ConflictResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Equal("conflict", body.Error)
		s.Equal(existing.ID, body.Conflict.TripID)
		s.Equal(existing.Exit, body.Conflict.ExitDate)
	})

	s.Run("reversed dates rejected before service", func() {
		rec := s.do(http.MethodPost, s.tripsPath(),
			`{"zone_code":"FR","entry_date":"2025-01-10","exit_date":"2025-01-01"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unparseable date rejected", func() {
		rec := s.do(http.MethodPost, s.tripsPath(),
			`{"zone_code":"FR","entry_date":"2025-13-01","exit_date":"2025-01-01"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown source rejected", func() {
		rec := s.do(http.MethodPost, s.tripsPath(),
			`{"zone_code":"FR","entry_date":"2025-01-01","exit_date":"2025-01-01","source":"fax"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("malformed person id rejected", func() {
		rec := s.do(http.MethodPost, "/persons/not-a-uuid/trips",
			`{"zone_code":"FR","entry_date":"2025-01-01","exit_date":"2025-01-01"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown zone maps to 400", func() {
		s.service.EXPECT().AddTrip(gomock.Any(), s.person, gomock.Any()).
			Return(nil, dErrors.Wrap(compliance.ErrUnknownZone, dErrors.CodeInvalidInput, "unknown zone code ZZ"))

		rec := s.do(http.MethodPost, s.tripsPath(),
			`{"zone_code":"ZZ","entry_date":"2025-01-01","exit_date":"2025-01-01"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *TripHandlerSuite) TestList() {
	s.Run("empty list renders as array", func() {
		s.service.EXPECT().ListTrips(gomock.Any(), s.person).Return(nil, nil)

		rec := s.do(http.MethodGet, s.tripsPath(), "")
		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"trips":[]`)
	})

	s.Run("store failure is internal and hides detail", func() {
		s.service.EXPECT().ListTrips(gomock.Any(), s.person).
			Return(nil, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "failed to list trips"))

		rec := s.do(http.MethodGet, s.tripsPath(), "")
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.NotContains(rec.Body.String(), "connection refused")
	})
}

func (s *TripHandlerSuite) TestUpdateAndDelete() {
	trip := s.sampleTrip()

	s.Run("update passes trip id", func() {
		s.service.EXPECT().UpdateTrip(gomock.Any(), s.person, trip.ID, gomock.Any()).Return(trip, nil)

		rec := s.do(http.MethodPut, s.tripsPath()+"/"+trip.ID.String(),
			`{"zone_code":"FR","entry_date":"2025-01-01","exit_date":"2025-01-10","source":"drag"}`)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("update of missing trip is 404", func() {
		s.service.EXPECT().UpdateTrip(gomock.Any(), s.person, trip.ID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "trip not found"))

		rec := s.do(http.MethodPut, s.tripsPath()+"/"+trip.ID.String(),
			`{"zone_code":"FR","entry_date":"2025-01-01","exit_date":"2025-01-10"}`)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("delete returns no content", func() {
		s.service.EXPECT().DeleteTrip(gomock.Any(), s.person, trip.ID).Return(nil)

		rec := s.do(http.MethodDelete, s.tripsPath()+"/"+trip.ID.String(), "")
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("malformed trip id rejected", func() {
		rec := s.do(http.MethodDelete, s.tripsPath()+"/nope", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *TripHandlerSuite) TestConflicts() {
	a := s.sampleTrip().ToInterval(true)
	b := a
	b.ID = id.NewTripID()
	s.service.EXPECT().Conflicts(gomock.Any(), s.person).
		Return([]compliance.Conflict{{First: a, Second: b}}, nil)

	rec := s.do(http.MethodGet, s.tripsPath()+"/conflicts", "")
	s.Equal(http.StatusOK, rec.Code)

	var body ConflictsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.False(body.Valid)
	s.Require().Len(body.Conflicts, 1)
	s.Equal(b.ID, body.Conflicts[0].Second.TripID)
}
