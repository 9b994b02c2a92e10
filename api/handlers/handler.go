package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/ork-registry/api"
	"github.com/ruteri/ork-registry/api/auth"
	"github.com/ruteri/ork-registry/interfaces"
)

const (
	// maxBodySize is the maximum allowed request body size (1MB).
	maxBodySize = 1024 * 1024

	defaultActionsLimit = 100
	maxActionsLimit     = 1000
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Snapshotter archives the ledger state.
type Snapshotter interface {
	Archive(ctx context.Context) (interfaces.ContentID, uint64, error)
}

// Handler serves the registry API: signed actions and public queries.
type Handler struct {
	registry interfaces.Registry
	auth     *auth.Authenticator
	archiver Snapshotter
	log      *slog.Logger
}

// NewHandler creates a new HTTP request handler.
//
// Parameters:
//   - registry: the registry core actions are dispatched to
//   - authenticator: verifies signed requests and resolves the caller identity
//   - archiver: takes ledger snapshots; nil disables the snapshot endpoint
//   - log: Structured logger for operational insights
func NewHandler(registry interfaces.Registry, authenticator *auth.Authenticator, archiver Snapshotter, log *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		auth:     authenticator,
		archiver: archiver,
		log:      log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)
		r.Post(api.SeedRootPath, h.HandleSeedRoot)
		r.Post(api.AddOrkPath, h.HandleAddOrk)
		r.Post(api.InitUserPath, h.HandleInitUser)
		r.Post(api.ConfirmUserPath, h.HandleConfirmUser)
		r.Post(api.PostFragmentPath, h.HandlePostFragment)
		r.Post(api.SnapshotPath, h.HandleSnapshot)
	})

	r.Get(api.UsersPath+"/{username}", h.HandleGetUser)
	r.Get(api.UsersPath+"/{username}/orks", h.HandleUserOrks)
	r.Get(api.OrksPath, h.HandleListOrks)
	r.Get(api.OrksPath+"/{username}", h.HandleGetOrk)
	r.Get(api.ContainersPath+"/{scope}/{username}", h.HandleGetContainer)
	r.Get(api.ActionsPrefix, h.HandleActions)
	r.Get(api.HeadPath, h.HandleHead)
}

// HandleSeedRoot creates the root account. Only the registry owner may call it.
//
// URL format: POST /api/v1/actions/seedroot
func (h *Handler) HandleSeedRoot(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callFromRequest(w, r)
	if !ok {
		return
	}

	record, err := h.registry.SeedRoot(r.Context(), call)
	h.respondAction(w, r, record, err)
}

// HandleAddOrk registers or updates a custodian.
//
// URL format: POST /api/v1/actions/addork
// Request body: AddOrkRequest
func (h *Handler) HandleAddOrk(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callFromRequest(w, r)
	if !ok {
		return
	}

	var req api.AddOrkRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	record, err := h.registry.RegisterOrUpdateCustodian(r.Context(), call, req.Account, req.Username, req.PublicKey, req.URL)
	h.respondAction(w, r, record, err)
}

// HandleInitUser begins or refreshes a pending registration.
//
// URL format: POST /api/v1/actions/inituser
// Request body: InitUserRequest
func (h *Handler) HandleInitUser(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callFromRequest(w, r)
	if !ok {
		return
	}

	var req api.InitUserRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	record, err := h.registry.BeginRegistration(r.Context(), call, req.Vendor, req.Account, req.Username, req.Timeout)
	h.respondAction(w, r, record, err)
}

// HandleConfirmUser finalizes a pending registration.
//
// URL format: POST /api/v1/actions/confirmuser
// Request body: ConfirmUserRequest
func (h *Handler) HandleConfirmUser(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callFromRequest(w, r)
	if !ok {
		return
	}

	var req api.ConfirmUserRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	record, err := h.registry.ConfirmRegistration(r.Context(), call, req.Vendor, req.Username)
	h.respondAction(w, r, record, err)
}

// HandlePostFragment stores a key fragment for a user.
//
// URL format: POST /api/v1/actions/postfragment
// Request body: PostFragmentRequest
func (h *Handler) HandlePostFragment(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callFromRequest(w, r)
	if !ok {
		return
	}

	var req api.PostFragmentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	record, err := h.registry.PostFragment(r.Context(), call, req.Ork, req.Username, req.Vendor, req.Frag, req.FragPublicKey, req.PassHash)
	h.respondAction(w, r, record, err)
}

// HandleSnapshot archives the ledger state. Only the registry owner may call it.
//
// URL format: POST /api/v1/admin/snapshot
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	call, ok := h.callFromRequest(w, r)
	if !ok {
		return
	}

	if call.Caller != h.registry.Owner() {
		h.writeError(w, fmt.Errorf("%w: snapshots are restricted to the registry owner", interfaces.ErrUnauthorized))
		return
	}

	if h.archiver == nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusServiceUnavailable, Err: errors.New("snapshot storage is not configured")})
		return
	}

	id, head, err := h.archiver.Archive(r.Context())
	if err != nil {
		h.log.Error("Snapshot failed", "err", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.SnapshotResponse{ContentID: id, Head: head})
}

// HandleGetUser returns a user row.
//
// URL format: GET /api/v1/users/{username}
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.registry.GetUser(r.Context(), interfaces.Username(r.PathValue("username")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// HandleUserOrks returns the custodians holding fragments for a user,
// optionally restricted to one vendor.
//
// URL format: GET /api/v1/users/{username}/orks?vendor=
func (h *Handler) HandleUserOrks(w http.ResponseWriter, r *http.Request) {
	username := interfaces.Username(r.PathValue("username"))
	vendor := interfaces.Username(r.URL.Query().Get("vendor"))

	orks, err := h.registry.UserOrks(r.Context(), username, vendor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orks)
}

// HandleListOrks returns the custodian directory.
//
// URL format: GET /api/v1/orks
func (h *Handler) HandleListOrks(w http.ResponseWriter, r *http.Request) {
	orks, err := h.registry.ListOrks(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orks)
}

// HandleGetOrk returns one custodian directory row.
//
// URL format: GET /api/v1/orks/{username}
func (h *Handler) HandleGetOrk(w http.ResponseWriter, r *http.Request) {
	ork, err := h.registry.GetOrk(r.Context(), interfaces.Username(r.PathValue("username")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ork)
}

// HandleGetContainer returns a user's fragment container in a custodian scope.
//
// URL format: GET /api/v1/containers/{scope}/{username}
// The scope is the hex identity of the custodian account.
func (h *Handler) HandleGetContainer(w http.ResponseWriter, r *http.Request) {
	scope, err := interfaces.NewIdentityFromHex(r.PathValue("scope"))
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid scope: %w", interfaces.ErrInvalidArgument, err))
		return
	}

	container, err := h.registry.GetContainer(r.Context(), scope, interfaces.Username(r.PathValue("username")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, container)
}

// HandleActions returns committed action records.
//
// URL format: GET /api/v1/actions?from=&limit=
func (h *Handler) HandleActions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var from uint64
	if raw := query.Get("from"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.writeError(w, fmt.Errorf("%w: invalid from: %w", interfaces.ErrInvalidArgument, err))
			return
		}
		from = parsed
	}

	limit := defaultActionsLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, fmt.Errorf("%w: invalid limit %q", interfaces.ErrInvalidArgument, raw))
			return
		}
		limit = min(parsed, maxActionsLimit)
	}

	records, err := h.registry.Actions(r.Context(), from, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if records == nil {
		records = []interfaces.ActionRecord{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

// HandleHead returns the sequence of the last committed action.
//
// URL format: GET /api/v1/head
func (h *Handler) HandleHead(w http.ResponseWriter, r *http.Request) {
	head, err := h.registry.Head(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.HeadResponse{Head: head})
}

func (h *Handler) callFromRequest(w http.ResponseWriter, r *http.Request) (interfaces.Call, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, fmt.Errorf("%w: request is not authenticated", interfaces.ErrUnauthorized))
		return interfaces.Call{}, false
	}
	return interfaces.Call{Caller: id}, true
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %w", interfaces.ErrInvalidArgument, err))
		return false
	}
	return true
}

func (h *Handler) respondAction(w http.ResponseWriter, r *http.Request, record interfaces.ActionRecord, err error) {
	if err != nil {
		h.log.Debug("Action failed", "path", r.URL.Path, "err", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err)
	}
	h.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Code: code})
}

func errorStatus(err error) (int, string) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		if reqErr.StatusCode == http.StatusServiceUnavailable {
			return reqErr.StatusCode, api.CodeUnavailable
		}
		status, code := api.ErrorStatus(reqErr.Err)
		if code == api.CodeInternal {
			status = reqErr.StatusCode
		}
		return status, code
	}
	return api.ErrorStatus(err)
}
