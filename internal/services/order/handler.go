package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/gohmolo58-collab/caisse-manger/internal/logger"
	"github.com/gohmolo58-collab/caisse-manger/internal/metrics"
	"github.com/gohmolo58-collab/caisse-manger/internal/models"
	"github.com/gohmolo58-collab/caisse-manger/internal/services/catalog"
	"github.com/gohmolo58-collab/caisse-manger/internal/services/inventory"
)

// MenuLister lists the catalog for the POS menu screen.
type MenuLister interface {
	List(ctx context.Context) ([]models.MenuItemRef, error)
}

// StockReader serves the inventory endpoints.
type StockReader interface {
	Restock(ctx context.Context, ingredientID string, qty decimal.Decimal) (*models.Ingredient, error)
	LowStock(ctx context.Context) ([]models.Ingredient, error)
}

// SettingsStore serves the settings endpoints.
type SettingsStore interface {
	Get(ctx context.Context) (*models.Settings, error)
	Update(ctx context.Context, in *models.Settings) error
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler exposes the order engine and its collaborators over HTTP. The
// authentication gate in front of this service injects the caller identity in
// the X-Cashier-ID header.
type Handler struct {
	service  *Service
	menu     MenuLister
	stock    StockReader
	settings SettingsStore
	health   Pinger
	metrics  *metrics.Metrics
	logger   *logger.Logger
	validate *validatorv10.Validate
}

// NewHandler creates the HTTP handler.
func NewHandler(service *Service, menu MenuLister, stock StockReader, settings SettingsStore,
	health Pinger, m *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		menu:     menu,
		stock:    stock,
		settings: settings,
		health:   health,
		metrics:  m,
		logger:   log,
		validate: models.NewValidator(),
	}
}

// SetupRoutes sets up the HTTP routes.
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", h.instrument("create_order", h.CreateOrder))
	mux.HandleFunc("GET /orders", h.instrument("list_orders", h.ListOrders))
	mux.HandleFunc("GET /orders/today/summary", h.instrument("today_summary", h.TodaySummary))
	mux.HandleFunc("GET /orders/{id}", h.instrument("get_order", h.GetOrder))
	mux.HandleFunc("PATCH /orders/{id}/status", h.instrument("change_status", h.ChangeStatus))
	mux.HandleFunc("POST /payments/{orderId}", h.instrument("settle_payment", h.SettlePayment))
	mux.HandleFunc("POST /payments/{orderId}/refund", h.instrument("refund_payment", h.RefundPayment))
	mux.HandleFunc("GET /menu", h.instrument("list_menu", h.ListMenu))
	mux.HandleFunc("GET /inventory/low-stock", h.instrument("low_stock", h.LowStock))
	mux.HandleFunc("PATCH /inventory/{id}/restock", h.instrument("restock", h.Restock))
	mux.HandleFunc("GET /settings", h.instrument("get_settings", h.GetSettings))
	mux.HandleFunc("PUT /settings", h.instrument("update_settings", h.UpdateSettings))
	mux.HandleFunc("GET /health", h.instrument("health", h.HealthCheck))
	mux.Handle("GET /metrics", metrics.Handler())

	return mux
}

// CreateOrder handles POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	cashierID := r.Header.Get("X-Cashier-ID")
	if cashierID == "" {
		h.writeErrorResponse(w, http.StatusUnauthorized, "Missing cashier identity", requestID)
		return
	}

	var req models.CreateOrderRequest
	if !h.decodeJSON(w, r, &req, requestID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	o, err := h.service.CreateOrder(ctx, &req, cashierID, requestID)
	if err != nil {
		h.writeServiceError(w, "order_creation_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusCreated, o, requestID)
}

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	o, err := h.service.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "order_lookup_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, o, requestID)
}

// ChangeStatus handles PATCH /orders/{id}/status.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	actor := r.Header.Get("X-Cashier-ID")
	if actor == "" {
		h.writeErrorResponse(w, http.StatusUnauthorized, "Missing staff identity", requestID)
		return
	}

	var req models.ChangeStatusRequest
	if !h.decodeJSON(w, r, &req, requestID) {
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeServiceError(w, "validation_failed", fmt.Errorf("invalid status request: %w", err), requestID)
		return
	}

	o, err := h.service.ChangeStatus(r.Context(), r.PathValue("id"), models.OrderStatus(req.Status), actor, requestID)
	if err != nil {
		h.writeServiceError(w, "status_change_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, o, requestID)
}

// SettlePayment handles POST /payments/{orderId}.
func (h *Handler) SettlePayment(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	if r.Header.Get("X-Cashier-ID") == "" {
		h.writeErrorResponse(w, http.StatusUnauthorized, "Missing cashier identity", requestID)
		return
	}

	var req models.SettlePaymentRequest
	if !h.decodeJSON(w, r, &req, requestID) {
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeServiceError(w, "validation_failed", fmt.Errorf("invalid payment request: %w", err), requestID)
		return
	}

	o, change, err := h.service.SettlePayment(r.Context(), r.PathValue("orderId"),
		models.PaymentMethod(req.PaymentMethod), req.AmountPaid, requestID)
	if err != nil {
		h.writeServiceError(w, "payment_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, &models.SettlePaymentResponse{
		Message: "Payment processed successfully",
		Order:   o,
		Change:  change.Round(2),
	}, requestID)
}

// RefundPayment handles POST /payments/{orderId}/refund.
func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	if r.Header.Get("X-Cashier-ID") == "" {
		h.writeErrorResponse(w, http.StatusUnauthorized, "Missing cashier identity", requestID)
		return
	}

	o, err := h.service.RefundPayment(r.Context(), r.PathValue("orderId"), requestID)
	if err != nil {
		h.writeServiceError(w, "refund_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, o, requestID)
}

// ListOrders handles GET /orders. Supported query parameters: status,
// paymentStatus, date (YYYY-MM-DD, UTC).
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	var f ListFilter
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		if !models.ValidOrderStatus(models.OrderStatus(s)) {
			h.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", s), requestID)
			return
		}
		f.Status = models.OrderStatus(s)
	}
	if s := q.Get("paymentStatus"); s != "" {
		if !models.ValidPaymentStatus(models.PaymentStatus(s)) {
			h.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("unknown payment status %q", s), requestID)
			return
		}
		f.PaymentStatus = models.PaymentStatus(s)
	}
	if s := q.Get("date"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD", requestID)
			return
		}
		f.Date = &d
	}

	orders, err := h.service.ListOrders(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, "order_list_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, orders, requestID)
}

// TodaySummary handles GET /orders/today/summary.
func (h *Handler) TodaySummary(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	sum, err := h.service.TodaySummary(r.Context())
	if err != nil {
		h.writeServiceError(w, "summary_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, sum, requestID)
}

// ListMenu handles GET /menu.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	items, err := h.menu.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "menu_list_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, items, requestID)
}

// LowStock handles GET /inventory/low-stock.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	items, err := h.stock.LowStock(r.Context())
	if err != nil {
		h.writeServiceError(w, "low_stock_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, items, requestID)
}

// Restock handles PATCH /inventory/{id}/restock.
func (h *Handler) Restock(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	var req struct {
		Quantity decimal.Decimal `json:"quantity"`
	}
	if !h.decodeJSON(w, r, &req, requestID) {
		return
	}
	if !req.Quantity.IsPositive() {
		h.writeErrorResponse(w, http.StatusBadRequest, "quantity must be positive", requestID)
		return
	}

	ing, err := h.stock.Restock(r.Context(), r.PathValue("id"), req.Quantity)
	if err != nil {
		h.writeServiceError(w, "restock_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, ing, requestID)
}

// GetSettings handles GET /settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		h.writeServiceError(w, "settings_get_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, cfg, requestID)
}

// UpdateSettings handles PUT /settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	var req models.Settings
	if !h.decodeJSON(w, r, &req, requestID) {
		return
	}
	if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		h.writeErrorResponse(w, http.StatusBadRequest, "taxRate must be between 0 and 100", requestID)
		return
	}

	if err := h.settings.Update(r.Context(), &req); err != nil {
		h.writeServiceError(w, "settings_update_failed", err, requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, &req, requestID)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := h.health == nil || h.health.Ping(ctx) == nil

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "caisse-pos",
		"healthy":   healthy,
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
	}

	h.writeJSON(w, status, response, "")
}

type ctxKey int

const requestIDKey ctxKey = iota

// requestIDFrom returns the correlation ID stamped on the request by
// instrument, so every log line of one request carries the same id.
func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return logger.GenerateRequestID()
}

// instrument adds request logging and metrics around a handler. It stamps one
// correlation ID on the request context; handlers pick it up via requestIDFrom.
func (h *Handler) instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})

		if h.metrics != nil {
			h.metrics.ObserveHTTP(name, rw.statusCode, start)
		}
	}
}

// decodeJSON parses the request body, writing a 400 response on failure.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, requestID string) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return false
	}
	return true
}

// writeServiceError maps engine errors onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, action string, err error, requestID string) {
	status := http.StatusInternalServerError

	var validationErrs validatorv10.ValidationErrors
	switch {
	case errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrItemUnavailable),
		errors.Is(err, ErrInvalidDiscount),
		errors.Is(err, ErrInsufficientPayment),
		errors.As(err, &validationErrs):
		status = http.StatusBadRequest
	case errors.Is(err, ErrAlreadyPaid),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrVersionConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(action, "Request failed", requestID, err, nil)
		h.writeErrorResponse(w, status, "Internal server error", requestID)
		return
	}

	h.writeErrorResponse(w, status, err.Error(), requestID)
}

// writeErrorResponse writes an error response in JSON format.
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}

	json.NewEncoder(w).Encode(errorResponse)
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, v interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
