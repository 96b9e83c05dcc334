package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/rango-exchange/router-middleware/pkg/app/errors"
	apphttp "github.com/rango-exchange/router-middleware/pkg/app/http"
	"github.com/rango-exchange/router-middleware/pkg/store/dao"
)

// AdminStore is the whitelist mutation surface the admin API needs.
type AdminStore interface {
	AddContract(ctx context.Context, address string, messaging bool, note string) error
	RemoveContract(ctx context.Context, address string) error
	AddMethod(ctx context.Context, address, selector, note string) error
	RemoveMethod(ctx context.Context, address, selector string) error
	ListContracts(ctx context.Context) ([]*dao.WhitelistContractDao, error)
	ListMethods(ctx context.Context, address string) ([]*dao.WhitelistMethodDao, error)
}

// Handler serves the whitelist admin endpoints. Routes mounted from it are
// expected to sit behind the auth middleware: every operation here widens or
// narrows what the router core may call.
type Handler struct {
	store    AdminStore
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a whitelist admin handler.
func NewHandler(store AdminStore, logger *zap.Logger) *Handler {
	return &Handler{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// RegisterRoutes registers the whitelist admin endpoints on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/contracts", apphttp.HandleError(h.listContracts))
	r.Post("/contracts", apphttp.HandleError(h.addContract))
	r.Delete("/contracts/{address}", apphttp.HandleError(h.removeContract))
	r.Get("/contracts/{address}/methods", apphttp.HandleError(h.listMethods))
	r.Post("/contracts/{address}/methods", apphttp.HandleError(h.addMethod))
	r.Delete("/contracts/{address}/methods/{selector}", apphttp.HandleError(h.removeMethod))
}

// AddContractRequest whitelists one contract address.
type AddContractRequest struct {
	Address   string `json:"address" validate:"required,eth_addr"`
	Messaging bool   `json:"messaging"`
	Note      string `json:"note"`
}

// AddMethodRequest whitelists one 4-byte selector on a contract.
type AddMethodRequest struct {
	Selector string `json:"selector" validate:"required,startswith=0x"`
	Note     string `json:"note"`
}

func (h *Handler) listContracts(w http.ResponseWriter, r *http.Request) error {
	rows, err := h.store.ListContracts(r.Context())
	if err != nil {
		return err
	}
	h.writeJSON(w, http.StatusOK, rows)
	return nil
}

func (h *Handler) addContract(w http.ResponseWriter, r *http.Request) error {
	var req AddContractRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	if err := h.store.AddContract(r.Context(), req.Address, req.Messaging, req.Note); err != nil {
		return err
	}

	h.logger.Info("Contract whitelisted",
		zap.String("address", req.Address),
		zap.Bool("messaging", req.Messaging))
	w.WriteHeader(http.StatusCreated)
	return nil
}

func (h *Handler) removeContract(w http.ResponseWriter, r *http.Request) error {
	address := chi.URLParam(r, "address")
	if address == "" {
		return apperrors.BadRequestError(nil, "address is required")
	}

	if err := h.store.RemoveContract(r.Context(), address); err != nil {
		return err
	}

	h.logger.Info("Contract removed from whitelist", zap.String("address", address))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) listMethods(w http.ResponseWriter, r *http.Request) error {
	address := chi.URLParam(r, "address")
	rows, err := h.store.ListMethods(r.Context(), address)
	if err != nil {
		return err
	}
	h.writeJSON(w, http.StatusOK, rows)
	return nil
}

func (h *Handler) addMethod(w http.ResponseWriter, r *http.Request) error {
	address := chi.URLParam(r, "address")
	if address == "" {
		return apperrors.BadRequestError(nil, "address is required")
	}

	var req AddMethodRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	if len(req.Selector) != 10 {
		return apperrors.BadRequestError(nil, "selector must be a 0x-prefixed 4-byte hex string")
	}

	if err := h.store.AddMethod(r.Context(), address, req.Selector, req.Note); err != nil {
		return err
	}

	h.logger.Info("Method whitelisted",
		zap.String("address", address),
		zap.String("selector", req.Selector))
	w.WriteHeader(http.StatusCreated)
	return nil
}

func (h *Handler) removeMethod(w http.ResponseWriter, r *http.Request) error {
	address := chi.URLParam(r, "address")
	selector := chi.URLParam(r, "selector")
	if address == "" || selector == "" {
		return apperrors.BadRequestError(nil, "address and selector are required")
	}

	if err := h.store.RemoveMethod(r.Context(), address, selector); err != nil {
		return err
	}

	h.logger.Info("Method removed from whitelist",
		zap.String("address", address),
		zap.String("selector", selector))
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) decode(r *http.Request, dst any) error {
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

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write JSON response", zap.Error(err))
	}
}
