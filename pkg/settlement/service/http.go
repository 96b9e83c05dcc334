package service

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/rango-exchange/router-middleware/pkg/app/errors"
	apphttp "github.com/rango-exchange/router-middleware/pkg/app/http"
	"github.com/rango-exchange/router-middleware/pkg/settlement"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service  Service
	validate *validator.Validate
	logger   *zap.Logger
}

// RegisterRoutes registers HTTP endpoints for the settlement service on the
// given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}

	r.Post("/settlements", apphttp.HandleError(h.settle))
	r.Post("/swaps", apphttp.HandleError(h.swap))
	r.Get("/events", apphttp.HandleError(h.events))
}

func (h *HTTP) settle(w http.ResponseWriter, r *http.Request) error {
	var req settlement.SettleRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	resp, err := h.service.Settle(r.Context(), &req)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) swap(w http.ResponseWriter, r *http.Request) error {
	var req settlement.SwapRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	resp, err := h.service.Swap(r.Context(), &req)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) events(w http.ResponseWriter, r *http.Request) error {
	requestID := r.URL.Query().Get("request_id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return apperrors.BadRequestError(err, "limit is not a valid number")
		}
		limit = v
	}

	records, err := h.service.Events(r.Context(), requestID, limit)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, records)
	return nil
}

// decode reads, parses and validates a JSON request body.
func (h *HTTP) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	if err := h.validate.Struct(dst); err != nil {
		return apperrors.BadRequestError(err, "invalid request")
	}
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write JSON response", zap.Error(err))
	}
}
