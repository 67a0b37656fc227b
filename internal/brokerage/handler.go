package brokerage

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/austral-labs/austral/internal/platform/httpx"
	"github.com/austral-labs/austral/internal/rbac"
	"github.com/austral-labs/austral/internal/shared"
)

// Handler wires HTTP endpoints for brokerage master data.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers client and asset routes. Reads require
// brokerage.view, writes require brokerage.edit.
func (h *Handler) MountRoutes(r chi.Router, authz rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(authz.Require(shared.PermBrokerageView))
		r.Get("/clients", h.handleListClients)
		r.Get("/clients/{clientID}", h.handleGetClient)
		r.Get("/assets", h.handleListAssets)
		r.Get("/assets/{assetID}", h.handleGetAsset)
	})
	r.Group(func(r chi.Router) {
		r.Use(authz.Require(shared.PermBrokerageEdit))
		r.Post("/clients", h.handleCreateClient)
		r.Put("/clients/{clientID}", h.handleUpdateClient)
		r.Post("/clients/{clientID}/block", h.handleBlockClient)
		r.Post("/clients/{clientID}/unblock", h.handleUnblockClient)
		r.Post("/assets", h.handleCreateAsset)
		r.Put("/assets/{assetID}", h.handleUpdateAsset)
		r.Post("/assets/{assetID}/deactivate", h.handleDeactivateAsset)
		r.Post("/assets/{assetID}/reactivate", h.handleReactivateAsset)
	})
}

func (h *Handler) handleListClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ClientFilters{Search: q.Get("search"), Status: q.Get("status")}
	if f.Status != "" && f.Status != ClientStatusActive && f.Status != ClientStatusBlocked {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "status must be ACTIVE or BLOCKED")
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.service.ListClients(r.Context(), f, page, pageSize)
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": result.Rows, "paging": result.Paging})
}

func (h *Handler) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	client, err := h.service.GetClient(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "client not found", "get client")
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

type clientCreateRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	CUIT  string `json:"cuit" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (h *Handler) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientCreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	client, err := h.service.CreateClient(r.Context(), req.Name, req.CUIT, req.Email, requestMeta(r))
	if err != nil {
		if errors.Is(err, httpx.ErrDuplicate) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "ya existe un cliente con ese CUIT")
			return
		}
		h.respondError(w, err, "client not found", "create client")
		return
	}
	httpx.JSON(w, http.StatusCreated, client)
}

type clientUpdateRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
}

func (h *Handler) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	var req clientUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	client, err := h.service.UpdateClient(r.Context(), id, req.Name, req.Email, requestMeta(r))
	if err != nil {
		h.respondError(w, err, "client not found", "update client")
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) handleBlockClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	client, err := h.service.BlockClient(r.Context(), id, requestMeta(r))
	if err != nil {
		h.respondError(w, err, "client not found", "block client")
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) handleUnblockClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "clientID")
	if !ok {
		return
	}
	client, err := h.service.UnblockClient(r.Context(), id, requestMeta(r))
	if err != nil {
		h.respondError(w, err, "client not found", "unblock client")
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}

func (h *Handler) handleListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := AssetFilters{Search: q.Get("search"), Category: q.Get("category")}
	if raw := q.Get("include_inactive"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "include_inactive must be boolean")
			return
		}
		f.IncludeInactive = include
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.service.ListAssets(r.Context(), f, page, pageSize)
	if err != nil {
		h.logger.Error("list assets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": result.Rows, "paging": result.Paging})
}

func (h *Handler) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}
	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "asset not found", "get asset")
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

type assetCreateRequest struct {
	Code     string `json:"code" validate:"required,max=20"`
	Name     string `json:"name" validate:"required,max=200"`
	Category string `json:"category" validate:"max=50"`
}

func (h *Handler) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetCreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	asset, err := h.service.CreateAsset(r.Context(), req.Code, req.Name, req.Category, requestMeta(r))
	if err != nil {
		if errors.Is(err, httpx.ErrDuplicate) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "ya existe un activo con ese código")
			return
		}
		h.respondError(w, err, "asset not found", "create asset")
		return
	}
	httpx.JSON(w, http.StatusCreated, asset)
}

type assetUpdateRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Category string `json:"category" validate:"max=50"`
}

func (h *Handler) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}
	var req assetUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	asset, err := h.service.UpdateAsset(r.Context(), id, req.Name, req.Category, requestMeta(r))
	if err != nil {
		h.respondError(w, err, "asset not found", "update asset")
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) handleDeactivateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}
	asset, err := h.service.DeactivateAsset(r.Context(), id, requestMeta(r))
	if err != nil {
		h.respondError(w, err, "asset not found", "deactivate asset")
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) handleReactivateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}
	asset, err := h.service.ReactivateAsset(r.Context(), id, requestMeta(r))
	if err != nil {
		h.respondError(w, err, "asset not found", "reactivate asset")
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error, notFoundMsg, op string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", notFoundMsg)
	case errors.Is(err, httpx.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func requestMeta(r *http.Request) Meta {
	meta := Meta{SourceIP: r.RemoteAddr, UserAgent: r.UserAgent()}
	if p := shared.PrincipalFromContext(r.Context()); p.IsAuthenticated() {
		meta.ActorID = &p.ID
	}
	return meta
}
