package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"warranty/internal/platform/middleware"
	"warranty/internal/warranty/models"
	"warranty/pkg/domain"
	dErrors "warranty/pkg/domain-errors"
	"warranty/pkg/platform/httputil"
	"warranty/pkg/requestcontext"
)

// Service defines the registry operations exposed over HTTP.
type Service interface {
	CreateCertificate(ctx context.Context, caller domain.Address, req models.CreateCertificateRequest) (domain.CertificateID, error)
	GetCertificateInfo(ctx context.Context, id domain.CertificateID) (*models.CertificateInfo, error)
	IsWarrantyValid(ctx context.Context, id domain.CertificateID) (models.ValidityStatus, error)
	OwnerOf(ctx context.Context, id domain.CertificateID) (domain.Address, error)
	TransferFrom(ctx context.Context, caller domain.Address, id domain.CertificateID, from, to domain.Address) error
	TokenCounter(ctx context.Context) (uint64, error)
	BalanceOf(ctx context.Context, holder domain.Address) (uint64, error)
	ListByParty(ctx context.Context, party domain.Address) ([]*models.CertificateInfo, error)
}

// Handler serves the certificate registry endpoints.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator middleware.CallerValidator
}

// New creates a new certificate Handler.
func New(service Service, logger *slog.Logger, validator middleware.CallerValidator) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator,
	}
}

// Register registers the certificate routes with the chi router. Reads are
// public; mutations require a bearer token naming the caller.
func (h *Handler) Register(r chi.Router) {
	r.Route("/certificates", func(r chi.Router) {
		r.Get("/", h.handleListByParty)
		r.Get("/count", h.handleTokenCounter)
		r.Get("/{id}", h.handleGetCertificate)
		r.Get("/{id}/validity", h.handleValidity)
		r.Get("/{id}/owner", h.handleOwner)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCaller(h.validator, h.logger))
			r.Post("/", h.handleCreate)
			r.Post("/{id}/transfer", h.handleTransfer)
		})
	})
	r.Get("/holders/{address}/balance", h.handleBalance)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateCertificateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	id, err := h.service.CreateCertificate(ctx, requestcontext.Caller(ctx), req.toModel())
	if err != nil {
		h.writeServiceError(ctx, w, err, "create certificate failed")
		return
	}

	w.Header().Set("Location", "/certificates/"+id.String())
	httputil.WriteJSON(w, http.StatusCreated, CreateCertificateResponse{ID: id})
}

func (h *Handler) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.certificateID(w, r)
	if !ok {
		return
	}

	info, err := h.service.GetCertificateInfo(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, err, "get certificate failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(info))
}

func (h *Handler) handleValidity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.certificateID(w, r)
	if !ok {
		return
	}

	status, err := h.service.IsWarrantyValid(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, err, "validity check failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toValidityResponse(id, status))
}

func (h *Handler) handleOwner(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.certificateID(w, r)
	if !ok {
		return
	}

	owner, err := h.service.OwnerOf(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, err, "owner lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OwnerResponse{CertificateID: id, Owner: owner})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, ok := h.certificateID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Caller(ctx)
	if err := h.service.TransferFrom(ctx, caller, id, domain.Address(req.From), domain.Address(req.To)); err != nil {
		h.writeServiceError(ctx, w, err, "transfer failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTokenCounter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.service.TokenCounter(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "token counter failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{TokenCounter: count})
}

func (h *Handler) handleListByParty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	party := r.URL.Query().Get("party")
	if party == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "party query parameter is required"))
		return
	}

	infos, err := h.service.ListByParty(ctx, domain.Address(party))
	if err != nil {
		h.writeServiceError(ctx, w, err, "list certificates failed")
		return
	}
	resp := ListResponse{Party: domain.Address(party), Certificates: make([]CertificateResponse, 0, len(infos))}
	for _, info := range infos {
		resp.Certificates = append(resp.Certificates, toCertificateResponse(info))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	holder := domain.Address(chi.URLParam(r, "address"))

	balance, err := h.service.BalanceOf(ctx, holder)
	if err != nil {
		h.writeServiceError(ctx, w, err, "balance lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Holder: holder, Balance: balance})
}

func (h *Handler) certificateID(w http.ResponseWriter, r *http.Request) (domain.CertificateID, bool) {
	id, err := domain.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return id, true
}

// writeServiceError logs at WARN for client errors and ERROR for everything
// else, then renders the error envelope.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	requestID := requestcontext.RequestID(ctx)
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"code", string(de.Code),
			"error", de.Message,
		)
	} else {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
