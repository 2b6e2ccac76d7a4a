package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"time"

	"github.com/go-chi/chi/v5"

	"tokensafe/internal/platform/metrics"
	"tokensafe/internal/platform/middleware"
	"tokensafe/internal/subscription/models"
	"tokensafe/internal/transport/http/shared"
	id "tokensafe/pkg/domain"
	dErrors "tokensafe/pkg/domain-errors"
	"tokensafe/pkg/requestcontext"
)

// Service defines the interface for subscription operations.
type Service interface {
	InitializeConfig(ctx context.Context, admin, treasury id.AccountID, pricing models.Pricing, durationSeconds int64) (*models.SubscriptionConfig, error)
	Subscribe(ctx context.Context, user id.AccountID, tier models.Tier, treasury id.AccountID) (*models.Subscription, error)
	Renew(ctx context.Context, user id.AccountID, tier models.Tier, treasury id.AccountID) (*models.Subscription, error)
	Verify(ctx context.Context, user id.AccountID, requiredTier models.Tier) (*models.Status, error)
	UpdatePricing(ctx context.Context, caller id.AccountID, pricing models.Pricing) (*models.SubscriptionConfig, error)
	GetConfig(ctx context.Context) (*models.SubscriptionConfig, error)
	GetSubscription(ctx context.Context, user id.AccountID) (*models.Subscription, error)
}

// Handler handles subscription endpoints. Everything except the public
// config view requires an authenticated signer; the signer is always the
// acting user, so nobody can subscribe, renew, or verify on another
// account's behalf.
type Handler struct {
	logger        *slog.Logger
	subscriptions Service
	metrics       *metrics.Metrics
	validator     middleware.TokenValidator
}

// New creates a new subscription Handler.
func New(
	subscriptions Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:        logger,
		subscriptions: subscriptions,
		metrics:       metrics,
		validator:     validator,
	}
}

// Register registers the subscription routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	subRouter := chi.NewRouter()
	subRouter.Use(middleware.Recovery(h.logger))
	subRouter.Use(middleware.RequestID)
	subRouter.Use(middleware.Logger(h.logger))
	subRouter.Use(middleware.Timeout(30 * time.Second))
	subRouter.Use(middleware.ContentTypeJSON)
	subRouter.Use(middleware.Latency(h.metrics))

	subRouter.Get("/config", h.handleGetConfig)

	subRouter.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/config", h.handleInitializeConfig)
		r.Put("/pricing", h.handleUpdatePricing)
		r.Post("/", h.handleSubscribe)
		r.Post("/renew", h.handleRenew)
		r.Get("/me", h.handleGetSubscription)
		r.Get("/verify", h.handleVerify)
	})

	r.Mount("/subscriptions", subRouter)
}

type initConfigRequest struct {
	Treasury        string `json:"treasury"`
	BasicPrice      uint64 `json:"basic_price"`
	ProPrice        uint64 `json:"pro_price"`
	AlphaPrice      uint64 `json:"alpha_price"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type subscribeRequest struct {
	Tier     uint8  `json:"tier"`
	Treasury string `json:"treasury"`
}

type pricingRequest struct {
	BasicPrice uint64 `json:"basic_price"`
	ProPrice   uint64 `json:"pro_price"`
	AlphaPrice uint64 `json:"alpha_price"`
}

type configResponse struct {
	Admin            string `json:"admin"`
	Treasury         string `json:"treasury"`
	BasicPrice       uint64 `json:"basic_price"`
	ProPrice         uint64 `json:"pro_price"`
	AlphaPrice       uint64 `json:"alpha_price"`
	DurationSeconds  int64  `json:"duration_seconds"`
	TotalSubscribers uint64 `json:"total_subscribers"`
	TotalRevenue     uint64 `json:"total_revenue"`
}

type subscriptionResponse struct {
	User      string `json:"user"`
	Tier      string `json:"tier"`
	ExpiresAt int64  `json:"expires_at"`
	CreatedAt int64  `json:"created_at"`
	TotalPaid uint64 `json:"total_paid"`
}

type statusResponse struct {
	Tier      string `json:"tier"`
	ExpiresAt int64  `json:"expires_at"`
	Active    bool   `json:"active"`
	Verified  bool   `json:"verified"`
}

func (h *Handler) handleInitializeConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	admin := requestcontext.Signer(ctx)

	var req initConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	treasury, err := id.ParseAccountID(req.Treasury)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid treasury identity"))
		return
	}

	pricing := models.Pricing{Basic: req.BasicPrice, Pro: req.ProPrice, Alpha: req.AlphaPrice}
	cfg, err := h.subscriptions.InitializeConfig(ctx, admin, treasury, pricing, req.DurationSeconds)
	if err != nil {
		h.logError(ctx, "initialize subscription config failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toConfigResponse(cfg))
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	h.handlePaidOperation(w, r, h.subscriptions.Subscribe, "subscribe failed")
}

func (h *Handler) handleRenew(w http.ResponseWriter, r *http.Request) {
	h.handlePaidOperation(w, r, h.subscriptions.Renew, "renew failed")
}

func (h *Handler) handlePaidOperation(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, user id.AccountID, tier models.Tier, treasury id.AccountID) (*models.Subscription, error),
	failMsg string,
) {
	ctx := r.Context()
	user := requestcontext.Signer(ctx)

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	treasury, err := id.ParseAccountID(req.Treasury)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid treasury identity"))
		return
	}

	sub, err := op(ctx, user, models.Tier(req.Tier), treasury)
	if err != nil {
		h.logError(ctx, failMsg, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := requestcontext.Signer(ctx)

	tierParam := r.URL.Query().Get("tier")
	tier, err := strconv.ParseUint(tierParam, 10, 8)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "tier query parameter must be 1, 2, or 3"))
		return
	}

	status, err := h.subscriptions.Verify(ctx, user, models.Tier(tier))
	if err != nil {
		// A denied check still returns the subscription state so the caller
		// can see why.
		var de *dErrors.Error
		if errors.As(err, &de) && de.Code == dErrors.CodeInsufficientSubscription && status != nil {
			shared.WriteJSON(w, http.StatusPaymentRequired, toStatusResponse(status, false))
			return
		}
		h.logError(ctx, "verify failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toStatusResponse(status, true))
}

func (h *Handler) handleUpdatePricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Signer(ctx)

	var req pricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	pricing := models.Pricing{Basic: req.BasicPrice, Pro: req.ProPrice, Alpha: req.AlphaPrice}
	cfg, err := h.subscriptions.UpdatePricing(ctx, caller, pricing)
	if err != nil {
		h.logError(ctx, "update pricing failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toConfigResponse(cfg))
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.subscriptions.GetConfig(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toConfigResponse(cfg))
}

func (h *Handler) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := requestcontext.Signer(ctx)

	sub, err := h.subscriptions.GetSubscription(ctx, user)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}

func toConfigResponse(cfg *models.SubscriptionConfig) configResponse {
	return configResponse{
		Admin:            cfg.Admin.String(),
		Treasury:         cfg.Treasury.String(),
		BasicPrice:       cfg.Pricing.Basic,
		ProPrice:         cfg.Pricing.Pro,
		AlphaPrice:       cfg.Pricing.Alpha,
		DurationSeconds:  cfg.Duration,
		TotalSubscribers: cfg.TotalSubscribers,
		TotalRevenue:     cfg.TotalRevenue,
	}
}

func toSubscriptionResponse(sub *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		User:      sub.User.String(),
		Tier:      sub.Tier.String(),
		ExpiresAt: sub.ExpiresAt,
		CreatedAt: sub.CreatedAt,
		TotalPaid: sub.TotalPaid,
	}
}

func toStatusResponse(status *models.Status, verified bool) statusResponse {
	return statusResponse{
		Tier:      status.Tier.String(),
		ExpiresAt: status.ExpiresAt,
		Active:    status.Active,
		Verified:  verified,
	}
}
