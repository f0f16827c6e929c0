// Package handler exposes the custody engine over REST.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/custody/models"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Service defines the engine operations the transport layer invokes.
type Service interface {
	Create(ctx context.Context, caller id.AccountID, req models.CreateContainerRequest) (*models.Container, error)
	Get(ctx context.Context, containerID id.ContainerID) (*models.Container, error)
	Acknowledge(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (*models.Container, error)
	Confirm(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.ConfirmRequest) (*models.Container, error)
	Release(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.ReleaseRequest) (*models.Container, error)
	Finalize(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.FinalizeRequest) (*models.Container, error)
	Lockdown(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (*models.Container, id.Tick, error)
	Recover(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (*models.Container, error)
	Revert(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (*models.Container, error)
	Abort(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (*models.Container, error)
	Extend(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.ExtendRequest) (*models.Container, error)
	Reclaim(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (*models.Container, error)
	Dispute(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (*models.Container, error)
	Resolve(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.ResolveRequest) (*models.Container, error)
	Suspend(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (*models.Container, error)
	Resume(ctx context.Context, caller id.AccountID, containerID id.ContainerID) (*models.Container, error)
	TransferOriginator(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.TransferRequest) (*models.Container, error)
	RegisterRecoveryAgent(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.RecoveryAgentRequest) (*models.Container, error)
	RegisterMultisigPolicy(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.MultisigPolicyRequest) (*models.Container, error)
	VerifyProof(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.VerifyProofRequest) (id.AccountID, error)
	VerifyMultisig(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.VerifyMultisigRequest) ([]id.AccountID, error)
	RotateCredential(ctx context.Context, caller id.AccountID, containerID id.ContainerID, req models.RotateCredentialRequest) error
}

// Handler handles the container endpoints.
type Handler struct {
	logger       *slog.Logger
	custody      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new custody Handler.
func New(custody Service, logger *slog.Logger, m *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		custody:      custody,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the container routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	custodyRouter := chi.NewRouter()
	custodyRouter.Use(middleware.Recovery(h.logger))
	custodyRouter.Use(middleware.RequestID)
	custodyRouter.Use(middleware.Logger(h.logger))
	custodyRouter.Use(middleware.Tracing)
	custodyRouter.Use(middleware.Timeout(30 * time.Second))
	custodyRouter.Use(middleware.ContentTypeJSON)
	custodyRouter.Use(middleware.Latency(h.metrics))
	custodyRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	custodyRouter.Post("/containers", h.handleCreate)
	custodyRouter.Get("/containers/{id}", h.handleGet)
	custodyRouter.Post("/containers/{id}/acknowledge", h.handleAcknowledge)
	custodyRouter.Post("/containers/{id}/confirm", h.handleConfirm)
	custodyRouter.Post("/containers/{id}/release", h.handleRelease)
	custodyRouter.Post("/containers/{id}/finalize", h.handleFinalize)
	custodyRouter.Post("/containers/{id}/lockdown", h.handleLockdown)
	custodyRouter.Post("/containers/{id}/recover", h.handleRecover)
	custodyRouter.Post("/containers/{id}/revert", h.handleRevert)
	custodyRouter.Post("/containers/{id}/abort", h.handleAbort)
	custodyRouter.Post("/containers/{id}/extend", h.handleExtend)
	custodyRouter.Post("/containers/{id}/reclaim", h.handleReclaim)
	custodyRouter.Post("/containers/{id}/dispute", h.handleDispute)
	custodyRouter.Post("/containers/{id}/resolve", h.handleResolve)
	custodyRouter.Post("/containers/{id}/suspend", h.handleSuspend)
	custodyRouter.Post("/containers/{id}/resume", h.handleResume)
	custodyRouter.Post("/containers/{id}/transfer", h.handleTransfer)
	custodyRouter.Post("/containers/{id}/recovery-agent", h.handleRecoveryAgent)
	custodyRouter.Post("/containers/{id}/multisig-policy", h.handleMultisigPolicy)
	custodyRouter.Post("/containers/{id}/verify/proof", h.handleVerifyProof)
	custodyRouter.Post("/containers/{id}/verify/multisig", h.handleVerifyMultisig)
	custodyRouter.Post("/containers/{id}/credentials/rotate", h.handleRotateCredential)

	r.Mount("/", custodyRouter)
}

// params pulls the authenticated caller and path container id, writing the
// error response itself when either is unusable.
func (h *Handler) params(w http.ResponseWriter, r *http.Request) (id.AccountID, id.ContainerID, bool) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		h.logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", 0, false
	}

	containerID, err := id.ParseContainerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid container id"))
		return "", 0, false
	}
	return caller, containerID, true
}

// decode parses a JSON request body into dst.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// respond writes the container or the domain error.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, c *models.Container, err error) {
	if err != nil {
		h.logError(r, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newContainerResponse(c))
}

func (h *Handler) logError(r *http.Request, err error) {
	ctx := r.Context()
	if dErrors.GetCode(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "custody operation failed",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		return
	}
	h.logger.WarnContext(ctx, "custody operation rejected",
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller := requestcontext.Caller(r.Context())
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	var req models.CreateContainerRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.custody.Create(r.Context(), caller, req)
	if err != nil {
		h.logError(r, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, newContainerResponse(c))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	_, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	c, err := h.custody.Get(r.Context(), containerID)
	h.respond(w, r, c, err)
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	c, err := h.custody.Acknowledge(r.Context(), caller, containerID)
	h.respond(w, r, c, err)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	var req models.ConfirmRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.custody.Confirm(r.Context(), caller, containerID, req)
	h.respond(w, r, c, err)
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	var req models.ReleaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.custody.Release(r.Context(), caller, containerID, req)
	h.respond(w, r, c, err)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	req := models.FinalizeRequest{}
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}
	c, err := h.custody.Finalize(r.Context(), caller, containerID, req)
	h.respond(w, r, c, err)
}

func (h *Handler) handleLockdown(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	c, reviewBy, err := h.custody.Lockdown(r.Context(), caller, containerID)
	if err != nil {
		h.logError(r, err)
		httputil.WriteError(w, err)
		return
	}
	resp := newContainerResponse(c)
	resp.ReviewBy = uint64(reviewBy)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRecover(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	c, err := h.custody.Recover(r.Context(), caller, containerID)
	h.respond(w, r, c, err)
}

func (h *Handler) handleRevert(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	c, err := h.custody.Revert(r.Context(), caller, containerID)
	h.respond(w, r, c, err)
}

func (h *Handler) handleAbort(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	c, err := h.custody.Abort(r.Context(), caller, containerID)
	h.respond(w, r, c, err)
}

func (h *Handler) handleExtend(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	var req models.ExtendRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.custody.Extend(r.Context(), caller, containerID, req)
	h.respond(w, r, c, err)
}

func (h *Handler) handleReclaim(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	c, err := h.custody.Reclaim(r.Context(), caller, containerID)
	h.respond(w, r, c, err)
}

func (h *Handler) handleDispute(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	c, err := h.custody.Dispute(r.Context(), caller, containerID)
	h.respond(w, r, c, err)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	var req models.ResolveRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.custody.Resolve(r.Context(), caller, containerID, req)
	h.respond(w, r, c, err)
}

func (h *Handler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	c, err := h.custody.Suspend(r.Context(), caller, containerID)
	h.respond(w, r, c, err)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	c, err := h.custody.Resume(r.Context(), caller, containerID)
	h.respond(w, r, c, err)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	var req models.TransferRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.custody.TransferOriginator(r.Context(), caller, containerID, req)
	h.respond(w, r, c, err)
}

func (h *Handler) handleRecoveryAgent(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	var req models.RecoveryAgentRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.custody.RegisterRecoveryAgent(r.Context(), caller, containerID, req)
	h.respond(w, r, c, err)
}

func (h *Handler) handleMultisigPolicy(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	var req models.MultisigPolicyRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.custody.RegisterMultisigPolicy(r.Context(), caller, containerID, req)
	h.respond(w, r, c, err)
}

func (h *Handler) handleVerifyProof(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	var req models.VerifyProofRequest
	if !h.decode(w, r, &req) {
		return
	}
	signer, err := h.custody.VerifyProof(r.Context(), caller, containerID, req)
	if err != nil {
		h.logError(r, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyProofResponse{Signer: signer})
}

func (h *Handler) handleVerifyMultisig(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	var req models.VerifyMultisigRequest
	if !h.decode(w, r, &req) {
		return
	}
	signers, err := h.custody.VerifyMultisig(r.Context(), caller, containerID, req)
	if err != nil {
		h.logError(r, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyMultisigResponse{Signers: signers})
}

func (h *Handler) handleRotateCredential(w http.ResponseWriter, r *http.Request) {
	caller, containerID, ok := h.params(w, r)
	if !ok {
		return
	}
	var req models.RotateCredentialRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.custody.RotateCredential(r.Context(), caller, containerID, req); err != nil {
		h.logError(r, err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
