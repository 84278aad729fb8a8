// Package handler exposes the verification flow over HTTP.
package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"verifid/internal/platform/middleware"
	"verifid/internal/verification/models"
	id "verifid/pkg/domain"
	dErrors "verifid/pkg/domain-errors"
	"verifid/pkg/httputil"
)

// Service defines the interface for verification operations.
type Service interface {
	Verify(ctx context.Context, userID id.UserID, req *models.VerifyRequest) (*models.VerifyResponse, error)
	Status(ctx context.Context, userID id.UserID) (*models.StatusResponse, error)
	ProbeProviders(ctx context.Context) (*models.ProbeResponse, error)
}

// Handler handles verification endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a new verification Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// Register registers the authenticated verification routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify-identity", h.handleVerifyIdentity)
	r.Get("/verification-status", h.handleVerificationStatus)
}

// RegisterDiagnostics registers the unauthenticated provider probe.
func (h *Handler) RegisterDiagnostics(r chi.Router) {
	r.Get("/test-apis", h.handleTestAPIs)
}

func (h *Handler) handleVerifyIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, ok := h.subjectFromContext(ctx, w, requestID)
	if !ok {
		return
	}

	var req models.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode verify request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	resp, err := h.service.Verify(ctx, userID, &req)
	if err != nil {
		h.logger.WarnContext(ctx, "verification attempt failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID, ok := h.subjectFromContext(ctx, w, requestID)
	if !ok {
		return
	}

	resp, err := h.service.Status(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "status lookup failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTestAPIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.service.ProbeProviders(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "provider probe failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) subjectFromContext(ctx context.Context, w http.ResponseWriter, requestID string) (id.UserID, bool) {
	raw := middleware.GetUserID(ctx)
	if raw == "" {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.UserID{}, false
	}
	userID, err := id.ParseUserID(raw)
	if err != nil {
		h.logger.WarnContext(ctx, "malformed subject id in token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid subject"))
		return id.UserID{}, false
	}
	return userID, true
}
