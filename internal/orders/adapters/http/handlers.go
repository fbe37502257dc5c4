package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dejobratic/marketplace/internal/auth"
	"github.com/dejobratic/marketplace/internal/orders/app"
	"github.com/dejobratic/marketplace/internal/orders/app/commands"
	"github.com/dejobratic/marketplace/internal/orders/app/logistics"
	"github.com/dejobratic/marketplace/internal/orders/domain"
	"github.com/dejobratic/marketplace/internal/orders/ports"
)

// ReadinessChecker reports whether a backing dependency can serve traffic.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// Handler exposes HTTP endpoints for the fulfillment workflow.
type Handler struct {
	service   *app.Service
	verifier  *auth.Verifier
	readiness ReadinessChecker
	logger    *slog.Logger
}

// NewHandler constructs a Handler. readiness may be nil.
func NewHandler(service *app.Service, verifier *auth.Verifier, readiness ReadinessChecker, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		verifier:  verifier,
		readiness: readiness,
		logger:    logger,
	}
}

// Register binds the handlers to mux. Everything except health probes and the
// gateway verification callback requires a bearer token.
func (h *Handler) Register(mux *http.ServeMux) {
	protect := auth.Middleware(h.verifier)
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, protect(fn))
	}

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.ready)
	mux.HandleFunc("GET /payments/verify/{reference}", h.verifyPayment)

	route("POST /orders", h.placeOrder)
	route("GET /orders", h.listOrders)
	route("GET /orders/{id}", h.getOrder)
	route("PATCH /orders/{id}/status", h.updateStatus)
	route("POST /orders/{id}/cancel", h.cancelOrder)
	route("POST /orders/{id}/payments", h.initiatePayment)
	route("POST /orders/{id}/payments/release", h.releasePayment)
	route("POST /orders/{id}/payments/refund", h.refundPayment)
	route("GET /orders/{id}/tracking", h.getTracking)
	route("POST /orders/{id}/tracking/advance", h.advanceTracking)
}

type placeOrderRequest struct {
	VendorID string `json:"vendor_id"`
	Items    []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	DeliveryAddress string `json:"delivery_address"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := auth.ActorFromContext(ctx)
	if actor.Role != domain.RoleWholesaler {
		h.writeDomainError(w, r, domain.Authorize(false, "only wholesalers place orders"))
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" {
		idemKey = actor.ID + ":" + idemKey
		stored, err := h.service.GetIdempotentResponse(ctx, idemKey)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		if stored != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
	}

	var payload placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	input := app.PlaceOrderInput{
		WholesalerID:    actor.ID,
		VendorID:        payload.VendorID,
		DeliveryAddress: payload.DeliveryAddress,
	}
	for _, item := range payload.Items {
		input.Items = append(input.Items, commands.OrderItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	placement, err := h.service.PlaceOrder(ctx, input)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	body, err := json.Marshal(map[string]any{
		"order":    placement.Order,
		"tracking": placement.Tracking,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if idemKey != "" {
		stored := ports.StoredResponse{
			StatusCode: http.StatusCreated,
			Body:       body,
			OrderID:    placement.Order.ID,
		}
		if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
			h.logger.WarnContext(ctx, "failed to store idempotent response",
				"order_id", placement.Order.ID,
				"error", err,
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/orders/"+placement.Order.ID)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	query := r.URL.Query()

	filter := ports.ListFilter{}
	switch actor.Role {
	case domain.RoleWholesaler:
		filter.WholesalerID = actor.ID
	case domain.RoleVendor:
		filter.VendorID = actor.ID
	}

	if raw := query.Get("status"); raw != "" {
		status := domain.OrderStatus(raw)
		filter.Status = &status
	}

	var err error
	if filter.Page, err = intParam(query.Get("page"), 1); err != nil {
		writeError(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	if filter.PageSize, err = intParam(query.Get("page_size"), 0); err != nil {
		writeError(w, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders":    orders,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.authorizedOrder(w, r, domain.Actor.CanView, "view order")
	if !ok {
		return
	}

	details, err := h.service.GetOrderDetails(r.Context(), order.ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	order, ok := h.authorizedOrder(w, r, domain.Actor.CanUpdateStatus, "update order status")
	if !ok {
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	updated, err := h.service.UpdateOrderStatus(r.Context(), order.ID, domain.OrderStatus(payload.Status))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": updated})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	canCancel := func(a domain.Actor, o domain.Order) bool {
		return a.CanUpdateStatus(o) || a.CanPay(o)
	}
	order, ok := h.authorizedOrder(w, r, canCancel, "cancel order")
	if !ok {
		return
	}

	cancelled, err := h.service.CancelOrder(r.Context(), order.ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": cancelled})
}

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	order, ok := h.authorizedOrder(w, r, domain.Actor.CanPay, "pay for order")
	if !ok {
		return
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	initiation, err := h.service.InitiatePayment(r.Context(), order.ID, payload.Email)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"payment":           initiation.Payment,
		"authorization_url": initiation.AuthorizationURL,
	})
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.service.ConfirmPayment(r.Context(), r.PathValue("reference"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"confirmed":     verdict.Confirmed,
		"reference":     verdict.Reference,
		"order_id":      verdict.OrderID,
		"payment_found": verdict.PaymentFound,
	})
}

func (h *Handler) releasePayment(w http.ResponseWriter, r *http.Request) {
	h.adminPayment(w, r, "release payment", h.service.ReleasePayment)
}

func (h *Handler) refundPayment(w http.ResponseWriter, r *http.Request) {
	h.adminPayment(w, r, "refund payment", h.service.RefundPayment)
}

func (h *Handler) adminPayment(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context, string) (*domain.Payment, error)) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := domain.Authorize(actor.Role == domain.RoleAdmin, action); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	payment, err := fn(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

func (h *Handler) getTracking(w http.ResponseWriter, r *http.Request) {
	order, ok := h.authorizedOrder(w, r, domain.Actor.CanView, "view tracking")
	if !ok {
		return
	}

	tracking, err := h.service.GetTracking(r.Context(), order.ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracking": tracking})
}

func (h *Handler) advanceTracking(w http.ResponseWriter, r *http.Request) {
	order, ok := h.authorizedOrder(w, r, domain.Actor.CanUpdateStatus, "update tracking")
	if !ok {
		return
	}

	var payload struct {
		Status   *string `json:"status"`
		Location *string `json:"location"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
	}

	update := logistics.StatusUpdate{Location: payload.Location}
	if payload.Status != nil {
		status := domain.ShipmentStatus(*payload.Status)
		update.Status = &status
	}

	tracking, err := h.service.AdvanceShipment(r.Context(), order.ID, update)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracking": tracking})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if h.readiness != nil {
		if err := h.readiness.Check(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// authorizedOrder loads the order named in the path and applies allowed to the
// caller. It writes the error response and returns false on failure.
func (h *Handler) authorizedOrder(w http.ResponseWriter, r *http.Request, allowed func(domain.Actor, domain.Order) bool, action string) (*domain.Order, bool) {
	order, err := h.service.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return nil, false
	}

	actor, _ := auth.ActorFromContext(r.Context())
	if err := domain.Authorize(allowed(actor, *order), action); err != nil {
		h.writeDomainError(w, r, err)
		return nil, false
	}
	return order, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// statusFor maps an error kind to a response code. State conflicts are
// reported as 422, other validation failures as 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrOrderNotPayable),
		errors.Is(err, domain.ErrPaymentNotCompleted),
		errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
