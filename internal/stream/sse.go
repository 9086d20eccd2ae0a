// Package stream implements Server-Sent Events (SSE) for catalogue runs.
// Clients connect via GET /api/v1/catalogue/{date}/events and receive the
// progress of the evaluation for that date.
//
// SSE message format:
//
//	data: {"type":"progress","date":"17.09.2023","data":{"name":"M31","done":31,"total":271,...}}\n\n
//
// First message is always the current status: the latest event seen for the
// date, or {"type":"status","data":{"state":"idle"}}. The stream ends after
// a "done" or "failed" event.
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent timeout.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/yetanothergithubaccount/ObsPi/internal/httputil"
	"github.com/yetanothergithubaccount/ObsPi/internal/metrics"
)

// Config tunes the event stream endpoint. Zero values fall back to 10
// streams per address, 1000 overall and a 30s keepalive.
type Config struct {
	MaxConcurrentPerIP int
	MaxTotal           int
	KeepaliveInterval  time.Duration
	TrustProxy         bool // resolve the peer from Forwarded / X-Forwarded-For
}

// Handler serves run progress to SSE clients.
type Handler struct {
	broker  *Broker
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

func NewHandler(broker *Broker, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = 10
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		broker:  broker,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		logger:  logger,
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HandleRun serves GET /api/v1/catalogue/{date}/events.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if _, err := time.Parse(dateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected DD.MM.YYYY")
		return
	}

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	leave, ok := h.admit(ip, date, r.UserAgent())
	if !ok {
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}
	defer leave()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe first: an event published between Latest and Subscribe
	// would otherwise be lost.
	events, unsubscribe := h.broker.Subscribe(date)
	defer unsubscribe()

	c := h.open(w, flusher, ip)

	status, ok := h.broker.Latest(date)
	if !ok {
		status = Event{Type: EventStatus, Date: date, Data: map[string]string{"state": "idle"}}
	}
	if err := c.sendJSON(status); err != nil {
		h.logger.Warn("stream write failed", "client", ip, "date", date, "error", err)
		return
	}
	if status.Terminal() {
		return
	}

	h.follow(r, c, events)
}

// admit takes a limiter slot for ip. The returned func gives it back.
func (h *Handler) admit(ip, date, agent string) (func(), bool) {
	if !h.limiter.acquire(ip) {
		h.logger.Warn("stream refused", "client", ip, "open_streams", h.limiter.count(ip))
		return nil, false
	}

	metrics.StreamConnections.Inc()
	opened := time.Now()
	h.logger.Info("stream opened", "client", ip, "date", date, "user_agent", agent)

	return func() {
		h.limiter.release(ip)
		metrics.StreamConnections.Dec()
		h.logger.Info("stream closed", "client", ip, "date", date, "seconds", int(time.Since(opened).Seconds()))
	}, true
}

// open writes the SSE preamble and a jittered retry hint (3-7s).
func (h *Handler) open(w http.ResponseWriter, flusher http.Flusher, ip string) *client {
	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// The server WriteTimeout would otherwise cut long runs.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("write deadline not adjustable", "error", err)
	}

	fmt.Fprintf(w, "retry: %d\n\n", 3000+rand.Intn(4000))
	flusher.Flush()

	return &client{w: w, flusher: flusher, rc: rc, ip: ip, logger: h.logger}
}

// follow relays events until a terminal one, a write error or disconnect.
func (h *Handler) follow(r *http.Request, c *client, events <-chan Event) {
	idle := time.NewTicker(h.config.KeepaliveInterval)
	defer idle.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := c.sendJSON(ev); err != nil {
				h.logger.Warn("stream write failed", "client", c.ip, "date", ev.Date, "error", err)
				return
			}
			if ev.Terminal() {
				return
			}
			idle.Reset(h.config.KeepaliveInterval)
		case <-idle.C:
			if err := c.sendKeepalive(); err != nil {
				h.logger.Warn("stream keepalive failed", "client", c.ip, "error", err)
				return
			}
		}
	}
}
