package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"khadamat/internal/config"
	"khadamat/internal/database"
	"khadamat/internal/domain"
	"khadamat/internal/export"
	"khadamat/internal/models"
	"khadamat/internal/notify"
	"khadamat/internal/pricing"
	"khadamat/internal/service"
	"khadamat/internal/validation"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"khadamat/internal/metrics"
)

// HTTPServer exposes the booking API consumed by the operator
// dashboard and the public booking form.
type HTTPServer struct {
	cfg        config.APIConfig
	bookings   *service.BookingService
	catalog    *service.CatalogService
	providers  *service.ProviderService
	dispatcher *notify.Dispatcher
	poller     PollerControl
	cursors    domain.CursorRepository
	server     *http.Server
	auth       *HTTPAuth
	logger     *zerolog.Logger
}

// PollerControl is the poller surface the dashboard toggle uses.
type PollerControl interface {
	SetEnabled(enabled bool)
	Enabled() bool
	LastSeen() int64
}

func NewHTTPServer(
	cfg config.APIConfig,
	bookings *service.BookingService,
	catalog *service.CatalogService,
	providers *service.ProviderService,
	dispatcher *notify.Dispatcher,
	poller PollerControl,
	cursors domain.CursorRepository,
	logger *zerolog.Logger,
) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:        cfg,
		bookings:   bookings,
		catalog:    catalog,
		providers:  providers,
		dispatcher: dispatcher,
		poller:     poller,
		cursors:    cursors,
		logger:     logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/export", srv.handleExport)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/alerts", srv.handleAlerts)
	mux.HandleFunc("/api/v1/poller", srv.handlePoller)
	mux.HandleFunc("/api/v1/destinations", srv.handleDestinations)
	mux.HandleFunc("/api/v1/services", srv.handleServices)
	mux.HandleFunc("/api/v1/services/", srv.handleServiceByID)
	mux.HandleFunc("/api/v1/categories", srv.handleCategories)
	mux.HandleFunc("/api/v1/providers", srv.handleProviders)
	mux.HandleFunc("/api/v1/providers/", srv.handleProviderByID)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the full middleware chain for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		bookings, err := s.bookings.List(r.Context(), status)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})

	case http.MethodPost:
		var b models.Booking
		if err := decodeBody(r, &b); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		// Per-phone submission throttle, independent of the per-key API
		// rate limit; survives restarts when redis backs the cursors.
		if s.cursors != nil && strings.TrimSpace(b.Phone) != "" {
			allowed, err := s.cursors.CheckRateLimit(r.Context(), "booking:"+b.Phone,
				models.RateLimitRequests, models.RateLimitWindow*time.Second)
			if err == nil && !allowed {
				writeError(w, http.StatusTooManyRequests, "too many booking attempts, try again later")
				return
			}
		}

		price, err := s.bookings.Create(r.Context(), &b)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"booking": &b, "price": price})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	if idStr, ok := strings.CutSuffix(rest, "/status"); ok {
		s.handleBookingStatus(w, r, idStr)
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		b, err := s.bookings.Get(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"booking": b})

	case http.MethodDelete:
		if err := s.bookings.Delete(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request, idStr string) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var body struct {
		Status    string `json:"status"`
		Version   int64  `json:"version"`
		ChangedBy string `json:"changed_by"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}
	if body.ChangedBy == "" {
		body.ChangedBy = "operator"
	}

	b, err := s.bookings.Transition(r.Context(), id, body.Status, body.Version, body.ChangedBy)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	bookings, err := s.bookings.List(r.Context(), status)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	fileName := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	if err := export.WriteBookingsXLSX(w, bookings); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
	}
}

func (s *HTTPServer) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var after int64
	if raw := strings.TrimSpace(r.URL.Query().Get("after")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid after cursor")
			return
		}
		after = parsed
	}

	writeJSON(w, http.StatusOK, map[string]any{"alerts": s.dispatcher.AlertsAfter(after)})
}

func (s *HTTPServer) handlePoller(w http.ResponseWriter, r *http.Request) {
	if s.poller == nil {
		writeError(w, http.StatusNotFound, "poller is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"enabled":   s.poller.Enabled(),
			"last_seen": s.poller.LastSeen(),
		})

	case http.MethodPut:
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		s.poller.SetEnabled(body.Enabled)
		writeJSON(w, http.StatusOK, map[string]any{"enabled": s.poller.Enabled()})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleDestinations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"destinations": pricing.Destinations()})
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		services, err := s.catalog.ListServices(r.Context(), category)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": services})

	case http.MethodPost:
		var svc models.Service
		if err := decodeBody(r, &svc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.catalog.CreateService(r.Context(), &svc); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"service": &svc})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleServiceByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/services/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		svc, err := s.catalog.GetService(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"service": svc})

	case http.MethodPut:
		var svc models.Service
		if err := decodeBody(r, &svc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		svc.ID = id
		if err := s.catalog.UpdateService(r.Context(), &svc); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"service": &svc})

	case http.MethodDelete:
		if err := s.catalog.DeleteService(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	categories, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *HTTPServer) handleProviders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		category := strings.TrimSpace(r.URL.Query().Get("category"))
		providers, err := s.providers.List(r.Context(), category)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"providers": providers})

	case http.MethodPost:
		var p models.Provider
		if err := decodeBody(r, &p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.providers.Create(r.Context(), &p); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"provider": &p})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleProviderByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/v1/providers/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := s.providers.Get(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"provider": p})

	case http.MethodPut:
		var p models.Provider
		if err := decodeBody(r, &p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		p.ID = id
		if err := s.providers.Update(r.Context(), &p); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"provider": &p})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps domain errors onto HTTP statuses. Validation
// failures carry the full field list so the form can highlight every
// violated input at once.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":        "validation failed",
			"field_errors": verr.Fields,
		})
		return
	}

	var terr *service.IllegalTransitionError
	if errors.As(err, &terr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": terr.Error(),
			"from":  terr.From,
			"to":    terr.To,
		})
		return
	}

	switch {
	case errors.Is(err, pricing.ErrUnknownCategory), errors.Is(err, pricing.ErrUnknownDestination):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "booking was modified concurrently; reload and retry")
	case errors.Is(err, service.ErrInvalidService), errors.Is(err, service.ErrInvalidProvider):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		s.logger.Error().Err(err).Msg("unhandled API error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses paths with ids to keep metric cardinality
// bounded.
func endpointLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/bookings/export"):
		return "bookings_export"
	case strings.HasSuffix(path, "/status"):
		return "booking_status"
	case strings.HasPrefix(path, "/api/v1/bookings"):
		return "bookings"
	case strings.HasPrefix(path, "/api/v1/alerts"):
		return "alerts"
	case strings.HasPrefix(path, "/api/v1/poller"):
		return "poller"
	case strings.HasPrefix(path, "/api/v1/destinations"):
		return "destinations"
	case strings.HasPrefix(path, "/api/v1/services"):
		return "services"
	case strings.HasPrefix(path, "/api/v1/categories"):
		return "categories"
	case strings.HasPrefix(path, "/api/v1/providers"):
		return "providers"
	case path == "/healthz":
		return "healthz"
	default:
		return "other"
	}
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
