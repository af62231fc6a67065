// Package admin provides HTTP handlers for the Admin API.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/apphost/app"
	"github.com/artpar/apphost/core/capability"
	"github.com/artpar/apphost/core/runtime"
	"github.com/artpar/apphost/domain/invocation"
	"github.com/artpar/apphost/pkg/apierror"
	"github.com/artpar/apphost/ports"
)

// Handler provides admin API endpoints.
type Handler struct {
	dispatcher *runtime.Dispatcher
	grants     *app.GrantService
	audit      *app.AuditRecorder
	engine     ports.TransitionEngine
	hasher     ports.Hasher
	tokenHash  []byte
	logger     zerolog.Logger
}

// Deps contains dependencies for the admin handler.
type Deps struct {
	Dispatcher *runtime.Dispatcher
	Grants     *app.GrantService
	Audit      *app.AuditRecorder
	Engine     ports.TransitionEngine
	Hasher     ports.Hasher

	// TokenHash is the hash of the bearer token. Empty rejects every request.
	TokenHash string

	Logger zerolog.Logger
}

// NewHandler creates a new admin API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		dispatcher: deps.Dispatcher,
		grants:     deps.Grants,
		audit:      deps.Audit,
		engine:     deps.Engine,
		hasher:     deps.Hasher,
		tokenHash:  []byte(deps.TokenHash),
		logger:     deps.Logger,
	}
}

// Router returns the admin API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(h.AuthMiddleware)

	// Modules
	r.Get("/modules", h.ListModules)
	r.Post("/invoke", h.Invoke)

	// Apps and grants
	r.Get("/apps", h.ListApps)
	r.Get("/apps/{id}/permissions", h.GetPermissions)
	r.Put("/apps/{id}/permissions", h.SetPermissions)
	r.Delete("/apps/{id}/permissions", h.RevokePermissions)

	// Audit log
	r.Get("/invocations", h.ListInvocations)
	r.Get("/invocations/summary", h.SummarizeInvocations)

	// Transitions
	r.Get("/transitions", h.ListTransitions)
	r.Patch("/transitions/{id}", h.UpdateTransition)

	return r
}

// -----------------------------------------------------------------------------
// Authentication
// -----------------------------------------------------------------------------

// AuthMiddleware requires "Authorization: Bearer <token>" matching the
// configured hash.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" || len(h.tokenHash) == 0 || !h.hasher.Compare(h.tokenHash, token) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Valid admin bearer token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -----------------------------------------------------------------------------
// Modules
// -----------------------------------------------------------------------------

// ModuleResponse describes a registered module.
type ModuleResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
	Methods     []string `json:"methods"`
}

// ListModules returns every registered module.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	mods := h.dispatcher.Registry().List()

	response := make([]ModuleResponse, len(mods))
	for i, m := range mods {
		perms := make([]string, len(m.Permissions))
		for j, p := range m.Permissions {
			perms[j] = string(p)
		}
		response[i] = ModuleResponse{
			Name:        m.Name,
			Description: m.Description,
			Permissions: perms,
			Methods:     m.MethodNames(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"modules": response})
}

// Invoke dispatches an invocation on behalf of an app, exactly as the app
// itself would.
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	var inv runtime.Invocation
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&inv); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if inv.AppID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "appId is required")
		return
	}

	result, err := h.dispatcher.Invoke(r.Context(), inv)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

// -----------------------------------------------------------------------------
// Apps
// -----------------------------------------------------------------------------

// AppResponse is an app with its grants.
type AppResponse struct {
	ID          string    `json:"id"`
	Permissions []string  `json:"permissions"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionsRequest replaces an app's grants.
type PermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// ListApps returns every app known to the grant store.
func (h *Handler) ListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := h.grants.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list apps")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list apps")
		return
	}

	response := make([]AppResponse, len(apps))
	for i, a := range apps {
		response[i] = AppResponse{ID: a.ID, Permissions: permissionNames(a.Permissions), UpdatedAt: a.UpdatedAt}
	}

	writeJSON(w, http.StatusOK, map[string]any{"apps": response, "total": len(response)})
}

// GetPermissions returns an app's grants. Unknown apps have none.
func (h *Handler) GetPermissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	perms, err := h.grants.Get(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("app_id", id).Msg("failed to read grants")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to read grants")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"app_id": id, "permissions": permissionNames(perms)})
}

// SetPermissions replaces an app's grants.
func (h *Handler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	// Validate before touching the store so the error is a client error.
	if _, err := capability.ParseAll(req.Permissions); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_permission", err.Error())
		return
	}

	perms, err := h.grants.Set(r.Context(), id, req.Permissions)
	if err != nil {
		h.logger.Error().Err(err).Str("app_id", id).Msg("failed to set grants")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to set grants")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"app_id": id, "permissions": permissionNames(perms)})
}

// RevokePermissions removes an app and all its grants.
func (h *Handler) RevokePermissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.grants.Revoke(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Str("app_id", id).Msg("failed to revoke grants")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to revoke grants")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// -----------------------------------------------------------------------------
// Invocations
// -----------------------------------------------------------------------------

// ListInvocations returns audit records, newest first.
//
// Query parameters: app_id, module, outcome, error_kind, since (RFC 3339), limit.
func (h *Handler) ListInvocations(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	records, err := h.audit.Query(r.Context(), f)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to query invocations")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to query invocations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"invocations": records, "total": len(records)})
}

// SummarizeInvocations aggregates the matching audit records.
func (h *Handler) SummarizeInvocations(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	summary, err := h.audit.Summary(r.Context(), f)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to summarize invocations")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to summarize invocations")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func parseFilter(r *http.Request) (invocation.Filter, error) {
	q := r.URL.Query()
	f := invocation.Filter{
		AppID:     q.Get("app_id"),
		Module:    q.Get("module"),
		Outcome:   invocation.Outcome(q.Get("outcome")),
		ErrorKind: q.Get("error_kind"),
	}

	switch f.Outcome {
	case "", invocation.OutcomeCompleted, invocation.OutcomeFailed:
	default:
		return f, errors.New("outcome must be 'completed' or 'failed'")
	}

	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, errors.New("since must be an RFC 3339 timestamp")
		}
		f.Since = t
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}

	return f, nil
}

// -----------------------------------------------------------------------------
// Transitions
// -----------------------------------------------------------------------------

// UpdateTransitionRequest models an end-user edit of a transition.
type UpdateTransitionRequest struct {
	Settings map[string]any `json:"settings"`
}

// ListTransitions returns registered transitions, optionally for one app.
func (h *Handler) ListTransitions(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.List(r.Context(), r.URL.Query().Get("app_id"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list transitions")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list transitions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transitions": list, "total": len(list)})
}

// UpdateTransition applies an edit. Locked transitions are rejected.
func (h *Handler) UpdateTransition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateTransitionRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil || len(req.Settings) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "settings object is required")
		return
	}

	rec, err := h.engine.UpdateSettings(r.Context(), id, req.Settings)
	switch {
	case errors.Is(err, ports.ErrTransitionAbsent):
		writeError(w, http.StatusNotFound, "not_found", "Transition not found")
		return
	case errors.Is(err, ports.ErrLocked):
		writeError(w, http.StatusConflict, "locked", "Transition is locked by its app")
		return
	case err != nil:
		h.logger.Error().Err(err).Str("transition_id", id).Msg("failed to update transition")
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update transition")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func permissionNames(perms []capability.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is a machine-readable code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// writeAPIError writes an invocation failure with its structured detail.
func writeAPIError(w http.ResponseWriter, err error) {
	ae, ok := apierror.As(err)
	if !ok {
		ae = apierror.Internal("invocation failed", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{"error": ae})
		return
	}
	writeJSON(w, ae.StatusCode(), map[string]any{"error": ae})
}
