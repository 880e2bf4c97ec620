package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chatcart/internal/core"
	"chatcart/internal/logger"
	"chatcart/internal/observability"
	"chatcart/internal/services"
	"chatcart/internal/storage"
	"chatcart/pkg"
)

const maxBodyBytes = 64 << 10

type Server struct {
	processor *core.Processor
	catalog   *services.ProductService
	metrics   *observability.Metrics
}

func New(processor *core.Processor, catalog *services.ProductService, metrics *observability.Metrics) *Server {
	return &Server{processor: processor, catalog: catalog, metrics: metrics}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Post("/v1/sessions", s.handleCreateSession)
	r.Post("/v1/sessions/{id}/turns", s.handleTurn)
	r.Post("/v1/sessions/{id}/reset", s.handleReset)
	r.Get("/v1/sessions/{id}/cart", s.handleGetCart)
	r.Post("/v1/sessions/{id}/cart", s.handleAddToCart)
	r.Get("/v1/sessions/{id}/transcript", s.handleTranscript)

	r.Get("/v1/users/{id}/greeting", s.handleGreeting)
	r.Get("/v1/users/{id}/memory", s.handleMemory)
	r.Post("/v1/users/{id}/orders", s.handleRecordOrder)

	r.Get("/v1/products", s.handleListProducts)
	r.Post("/v1/products/refresh", s.handleRefreshProducts)

	return r
}

type createSessionRequest struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Greeting  string `json:"greeting"`
}

type turnRequest struct {
	Utterance string `json:"utterance"`
}

type turnResponse struct {
	Reply             string        `json:"reply"`
	Intent            pkg.Intent    `json:"intent"`
	Action            string        `json:"action"`
	Products          []pkg.Product `json:"products"`
	ProcessingTimeMS  int64         `json:"processing_time_ms"`
	PersistenceFailed bool          `json:"persistence_failed,omitempty"`
}

type addToCartRequest struct {
	ProductID pkg.ProductID `json:"product_id"`
	Quantity  int           `json:"quantity"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	sess, greeting, err := s.processor.StartSession(r.Context(), req.UserID, strings.TrimSpace(req.UserName))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, createSessionResponse{SessionID: sess.ID, UserID: sess.UserID, Greeting: greeting})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.processor.HandleTurn(r.Context(), chi.URLParam(r, "id"), req.Utterance)
	if err != nil {
		respondProcessorError(w, err)
		return
	}
	products := out.Products
	if products == nil {
		products = []pkg.Product{}
	}
	respondJSON(w, http.StatusOK, turnResponse{
		Reply:             out.Response,
		Intent:            out.Intent,
		Action:            string(out.Action),
		Products:          products,
		ProcessingTimeMS:  out.ProcessingTime.Milliseconds(),
		PersistenceFailed: out.PersistenceFailed,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	greeting, err := s.processor.ResetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondProcessorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"greeting": greeting})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	lines, err := s.processor.Cart(chi.URLParam(r, "id"))
	if err != nil {
		respondProcessorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(lines))
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "product_id is required")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.processor.AddManual(r.Context(), id, req.ProductID, req.Quantity); err != nil {
		respondProcessorError(w, err)
		return
	}
	lines, err := s.processor.Cart(id)
	if err != nil {
		respondProcessorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(lines))
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	entries, err := s.processor.Transcript(chi.URLParam(r, "id"))
	if err != nil {
		respondProcessorError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"greeting": s.processor.Greeting(r.Context(), chi.URLParam(r, "id"))})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	rec, err := s.processor.Memory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "memory_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRecordOrder(w http.ResponseWriter, r *http.Request) {
	rec, err := s.processor.RecordOrder(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, core.ErrTurnInProgress) {
		respondProcessorError(w, err)
		return
	}
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "memory_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"total_orders": rec.TotalOrders})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	var products []pkg.Product
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		products = s.catalog.SearchProducts(r.Context(), q)
	} else {
		products = s.catalog.Products(r.Context())
	}
	if products == nil {
		products = []pkg.Product{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"count": len(products), "products": products})
}

func (s *Server) handleRefreshProducts(w http.ResponseWriter, r *http.Request) {
	n := s.catalog.Refresh(r.Context())
	respondJSON(w, http.StatusOK, map[string]int{"count": n})
}

func cartResponse(lines []pkg.CartLine) map[string]any {
	total := 0.0
	items := 0
	for _, l := range lines {
		total += l.Price * float64(l.Quantity)
		items += l.Quantity
	}
	if lines == nil {
		lines = []pkg.CartLine{}
	}
	return map[string]any{"lines": lines, "item_count": items, "total": total}
}

func respondProcessorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidUtterance):
		respondError(w, http.StatusBadRequest, "invalid_utterance", err.Error())
	case errors.Is(err, storage.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, core.ErrTurnInProgress):
		respondError(w, http.StatusConflict, "turn_in_progress", err.Error())
	case errors.Is(err, core.ErrUnknownProduct):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	default:
		logger.Error().Err(err).Msg("Request failed")
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errEmptyBody
	}
	return sonic.Unmarshal(body, out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
