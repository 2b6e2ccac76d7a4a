package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"time"

	"github.com/go-chi/chi/v5"

	"tokensafe/internal/platform/metrics"
	"tokensafe/internal/platform/middleware"
	"tokensafe/internal/registry/models"
	"tokensafe/internal/transport/http/shared"
	id "tokensafe/pkg/domain"
	dErrors "tokensafe/pkg/domain-errors"
	"tokensafe/pkg/requestcontext"
)

// Service defines the interface for registry operations.
type Service interface {
	InitializeRegistry(ctx context.Context, authority id.AccountID) (*models.Registry, error)
	SubmitReport(ctx context.Context, authority, token id.AccountID, params models.ReportParams) (*models.SafetyReport, error)
	UpdateReport(ctx context.Context, caller, token id.AccountID, params models.ReportParams) (*models.SafetyReport, error)
	GetRegistry(ctx context.Context, authority id.AccountID) (*models.Registry, error)
	GetReport(ctx context.Context, token, authority id.AccountID) (*models.SafetyReport, error)
}

// Handler handles registry endpoints. Mutations require an authenticated
// signer; reads are open to anyone who already knows the addresses.
type Handler struct {
	logger    *slog.Logger
	registry  Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

// New creates a new registry Handler.
func New(
	registry Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		registry:  registry,
		metrics:   metrics,
		validator: validator,
	}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	registryRouter := chi.NewRouter()
	registryRouter.Use(middleware.Recovery(h.logger))
	registryRouter.Use(middleware.RequestID)
	registryRouter.Use(middleware.Logger(h.logger))
	registryRouter.Use(middleware.Timeout(30 * time.Second))
	registryRouter.Use(middleware.ContentTypeJSON)
	registryRouter.Use(middleware.Latency(h.metrics))

	registryRouter.Get("/{authority}", h.handleGetRegistry)
	registryRouter.Get("/{authority}/reports/{token}", h.handleGetReport)

	registryRouter.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/", h.handleInitialize)
		r.Post("/reports", h.handleSubmitReport)
		r.Put("/reports/{token}", h.handleUpdateReport)
	})

	r.Mount("/registry", registryRouter)
}

type reportRequest struct {
	Token        string `json:"token"`
	ProtocolName string `json:"protocol_name"`
	RiskScore    uint8  `json:"risk_score"`
	RiskLevel    uint8  `json:"risk_level"`
	FlagsCount   uint8  `json:"flags_count"`
}

type registryResponse struct {
	Authority    string `json:"authority"`
	TotalReports uint64 `json:"total_reports"`
}

type reportResponse struct {
	Authority    string `json:"authority"`
	Token        string `json:"token"`
	RiskScore    uint8  `json:"risk_score"`
	RiskLevel    string `json:"risk_level"`
	FlagsCount   uint8  `json:"flags_count"`
	ProtocolName string `json:"protocol_name"`
	Timestamp    int64  `json:"timestamp"`
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authority := requestcontext.Signer(ctx)

	reg, err := h.registry.InitializeRegistry(ctx, authority)
	if err != nil {
		h.logError(ctx, "initialize registry failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toRegistryResponse(reg))
}

func (h *Handler) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authority := requestcontext.Signer(ctx)

	req, token, ok := h.decodeReport(w, r, "")
	if !ok {
		return
	}
	rep, err := h.registry.SubmitReport(ctx, authority, token, toParams(req))
	if err != nil {
		h.logError(ctx, "submit report failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toReportResponse(rep))
}

func (h *Handler) handleUpdateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Signer(ctx)

	req, token, ok := h.decodeReport(w, r, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	rep, err := h.registry.UpdateReport(ctx, caller, token, toParams(req))
	if err != nil {
		h.logError(ctx, "update report failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toReportResponse(rep))
}

func (h *Handler) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	authority, err := id.ParseAccountID(chi.URLParam(r, "authority"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid authority identity"))
		return
	}
	reg, err := h.registry.GetRegistry(r.Context(), authority)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toRegistryResponse(reg))
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	authority, err := id.ParseAccountID(chi.URLParam(r, "authority"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid authority identity"))
		return
	}
	token, err := id.ParseAccountID(chi.URLParam(r, "token"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid token identity"))
		return
	}
	rep, err := h.registry.GetReport(r.Context(), token, authority)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toReportResponse(rep))
}

// decodeReport parses the report body; tokenOverride (from the URL) wins
// over the body field on updates.
func (h *Handler) decodeReport(w http.ResponseWriter, r *http.Request, tokenOverride string) (reportRequest, id.AccountID, bool) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return req, id.AccountID{}, false
	}
	raw := req.Token
	if tokenOverride != "" {
		raw = tokenOverride
	}
	token, err := id.ParseAccountID(raw)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid token identity"))
		return req, id.AccountID{}, false
	}
	return req, token, true
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

func toParams(req reportRequest) models.ReportParams {
	return models.ReportParams{
		ProtocolName: req.ProtocolName,
		RiskScore:    req.RiskScore,
		RiskLevel:    models.RiskLevel(req.RiskLevel),
		FlagsCount:   req.FlagsCount,
	}
}

func toRegistryResponse(reg *models.Registry) registryResponse {
	return registryResponse{
		Authority:    reg.Authority.String(),
		TotalReports: reg.TotalReports,
	}
}

func toReportResponse(rep *models.SafetyReport) reportResponse {
	return reportResponse{
		Authority:    rep.Authority.String(),
		Token:        rep.TokenSubject.String(),
		RiskScore:    rep.RiskScore,
		RiskLevel:    rep.RiskLevel.String(),
		FlagsCount:   rep.FlagsCount,
		ProtocolName: rep.ProtocolName,
		Timestamp:    rep.Timestamp,
	}
}
