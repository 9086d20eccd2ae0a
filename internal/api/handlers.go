package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/catalogue"
	"github.com/yetanothergithubaccount/ObsPi/internal/config"
	"github.com/yetanothergithubaccount/ObsPi/internal/resolver"
	"github.com/yetanothergithubaccount/ObsPi/internal/store"
	"github.com/yetanothergithubaccount/ObsPi/internal/twilight"
	"github.com/yetanothergithubaccount/ObsPi/internal/visibility"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotExist), errors.Is(err, resolver.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, visibility.ErrEmptyWindow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "component", "api", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func pathDate(r *http.Request) (time.Time, error) {
	return config.ParseDate(r.PathValue("date"))
}

func pathFilter(r *http.Request) (string, float64, error) {
	direction, err := config.ParseDirection(r.PathValue("direction"))
	if err != nil {
		return "", 0, err
	}
	raw := r.PathValue("min_altitude")
	minAlt, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(minAlt) || math.IsInf(minAlt, 0) {
		return "", 0, fmt.Errorf("%w: min_altitude %q", config.ErrInvalid, raw)
	}
	return direction, minAlt, nil
}

type bestResponse struct {
	Date        string            `json:"date"`
	Direction   string            `json:"direction"`
	MinAltitude float64           `json:"min_altitude"`
	Objects     []catalogue.Entry `json:"objects"`
}

// handleCatalogue returns the stored catalogue for a date.
// GET /api/v1/catalogue/{date}
func (s *Server) handleCatalogue(w http.ResponseWriter, r *http.Request) {
	date, err := pathDate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cat, err := s.deps.Catalogues.Get(date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// handleBest filters a stored catalogue by direction and minimum altitude.
// GET /api/v1/catalogue/{date}/best/{direction}/{min_altitude}
func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	date, err := pathDate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.best(w, r, date)
}

// handleTonight is handleBest for the current date.
// GET /api/v1/tonight/best/{direction}/{min_altitude}
func (s *Server) handleTonight(w http.ResponseWriter, r *http.Request) {
	s.best(w, r, s.deps.Catalogues.Today())
}

func (s *Server) best(w http.ResponseWriter, r *http.Request, date time.Time) {
	direction, minAlt, err := pathFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cat, err := s.deps.Catalogues.Get(date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bestResponse{
		Date:        date.Format(config.DateLayout),
		Direction:   direction,
		MinAltitude: minAlt,
		Objects:     catalogue.Filter(cat, minAlt, direction),
	})
}

// handleTrigger starts a catalogue run for a date in the background.
// POST /api/v1/catalogue/{date}
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	date, err := pathDate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	key := date.Format(config.DateLayout)

	if cat, err := s.deps.Catalogues.Get(date); err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"date": key, "status": "ready", "objects": cat.Len()})
		return
	} else if !errors.Is(err, store.ErrNotExist) {
		s.fail(w, r, err)
		return
	}

	resp := map[string]any{
		"date":   key,
		"status": "accepted",
		"events": "/api/v1/catalogue/" + key + "/events",
	}
	if _, busy := s.running.LoadOrStore(key, struct{}{}); busy {
		resp["status"] = "running"
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	if s.deps.RunStarted != nil {
		s.deps.RunStarted(key)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Delete(key)

		_, report, err := s.deps.Catalogues.Compute(s.deps.BaseContext, date)
		if err != nil {
			s.logger.Error("catalogue run failed", "component", "api", "date", key, "error", err)
			return
		}
		s.logger.Info("catalogue run finished",
			"component", "api",
			"date", key,
			"run_id", report.RunID,
			"evaluated", report.Evaluated,
			"skipped", len(report.Skipped),
		)
	}()

	writeJSON(w, http.StatusAccepted, resp)
}

type objectResponse struct {
	Name        string           `json:"name"`
	Date        string           `json:"date"`
	Score       float64          `json:"score"`
	Message     string           `json:"message"`
	Invisible   bool             `json:"invisible"`
	Type        string           `json:"type,omitempty"`
	Description string           `json:"description,omitempty"`
	Cached      bool             `json:"cached"`
	Record      catalogue.Record `json:"record"`
}

// handleObject scores one object. The date defaults to today.
// GET /api/v1/objects/{name}?date=DD.MM.YYYY
func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing object name")
		return
	}

	date := s.deps.Catalogues.Today()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := config.ParseDate(q)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		date = d
	}

	rec, res, cached := s.storedObject(name, date)
	if !cached {
		var err error
		rec, res, err = s.deps.Objects.EvaluateObject(r.Context(), name, date)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}

	resp := objectResponse{
		Name:      name,
		Date:      date.Format(config.DateLayout),
		Score:     res.Score,
		Message:   res.Message,
		Invisible: res.Invisible,
		Cached:    cached,
		Record:    rec,
	}
	if s.deps.Describer != nil {
		if info, err := s.deps.Describer.Info(r.Context(), name); err == nil {
			resp.Type = info.Type
			resp.Description = info.Description()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// storedObject rescores name from the catalogue already computed for date.
func (s *Server) storedObject(name string, date time.Time) (catalogue.Record, visibility.Result, bool) {
	cat, err := s.deps.Catalogues.Get(date)
	if err != nil {
		return catalogue.Record{}, visibility.Result{}, false
	}
	rec, ok := cat.Get(name)
	if !ok {
		return catalogue.Record{}, visibility.Result{}, false
	}
	return rec, visibility.Score(name, rec.Extrema()), true
}

type nightResponse struct {
	twilight.NightInfo
	DarkHours float64 `json:"dark_hours"`
}

// handleNight returns sun and moon times for a date.
// GET /api/v1/night/{date}
func (s *Server) handleNight(w http.ResponseWriter, r *http.Request) {
	date, err := pathDate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := s.deps.Nights.Night(date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nightResponse{
		NightInfo: info,
		DarkHours: math.Round(info.DarkHours()*100) / 100,
	})
}

// handleCacheStats reports catalogue cache counters.
// GET /api/v1/cache/stats
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalogues.Stats())
}
