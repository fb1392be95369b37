// Package handler is the HTTP transport for the deltaker domain.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"deltakelse/internal/deltaker"
	"deltakelse/internal/deltaker/service"
	"deltakelse/pkg/apierrors"
)

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/deltaker/{deltakerId}", func(r chi.Router) {
		r.Get("/", h.getDeltaker)
		r.Get("/historikk", h.getHistorikk)
		r.Get("/deltakelsesmengder", h.getDeltakelsesmengder)
		r.Post("/endring", h.postEndring)
	})
}

// endringRequest is the transport envelope for one change request.
type endringRequest struct {
	Type     deltaker.EndringType `json:"type"`
	Endring  json.RawMessage      `json:"endring"`
	EndretAv string               `json:"endretAv"`
}

func (h *Handler) postEndring(w http.ResponseWriter, r *http.Request) {
	deltakerID, err := uuid.Parse(chi.URLParam(r, "deltakerId"))
	if err != nil {
		h.writeError(w, r, apierrors.New(apierrors.CodeBadRequest, "ugyldig deltakerId"))
		return
	}

	var req endringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apierrors.New(apierrors.CodeBadRequest, "ugyldig request body"))
		return
	}
	if req.EndretAv == "" {
		h.writeError(w, r, apierrors.New(apierrors.CodeBadRequest, "endretAv er pakrevd"))
		return
	}
	endring, err := deltaker.UnmarshalEndring(req.Type, req.Endring)
	if err != nil {
		h.writeError(w, r, apierrors.New(apierrors.CodeBadRequest, err.Error()))
		return
	}

	oppdatert, err := h.service.Endre(r.Context(), deltakerID, endring, req.EndretAv)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, oppdatert)
}

func (h *Handler) getDeltaker(w http.ResponseWriter, r *http.Request) {
	deltakerID, err := uuid.Parse(chi.URLParam(r, "deltakerId"))
	if err != nil {
		h.writeError(w, r, apierrors.New(apierrors.CodeBadRequest, "ugyldig deltakerId"))
		return
	}
	d, err := h.service.Get(r.Context(), deltakerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, d)
}

func (h *Handler) getHistorikk(w http.ResponseWriter, r *http.Request) {
	deltakerID, err := uuid.Parse(chi.URLParam(r, "deltakerId"))
	if err != nil {
		h.writeError(w, r, apierrors.New(apierrors.CodeBadRequest, "ugyldig deltakerId"))
		return
	}
	historikk, err := h.service.StatusHistorikk(r.Context(), deltakerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, historikk)
}

func (h *Handler) getDeltakelsesmengder(w http.ResponseWriter, r *http.Request) {
	deltakerID, err := uuid.Parse(chi.URLParam(r, "deltakerId"))
	if err != nil {
		h.writeError(w, r, apierrors.New(apierrors.CodeBadRequest, "ugyldig deltakerId"))
		return
	}
	mengder, err := h.service.Deltakelsesmengder(r.Context(), deltakerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, mengder)
}

type errorResponse struct {
	Code    apierrors.Code `json:"code"`
	Message string         `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierrors.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierrors.New(apierrors.CodeInternal, "internal error")
	}
	status := apierrors.ToHTTPStatus(apiErr.Code)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, r, status, errorResponse{Code: apiErr.Code, Message: apiErr.Message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(r.Context(), "encode response", "error", err)
	}
}
