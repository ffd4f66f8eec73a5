package group

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fkhayef/huddle/internal/user"
	"github.com/fkhayef/huddle/pkg/middleware"
	"github.com/fkhayef/huddle/pkg/response"
)

var validate = validator.New()

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/search", h.Search)
	r.Post("/join-with-code", h.RedeemInviteCode)

	r.Post("/{id}/join", h.RequestJoin)
	r.Post("/{id}/join/direct", h.DirectJoin)
	r.Get("/{id}/join-requests", h.ListPendingRequests)
	r.Patch("/{id}/join-requests/{userID}/approve", h.ApproveByPair)
	r.Patch("/{id}/join-requests/{userID}/reject", h.RejectByPair)
	r.Get("/{id}/members", h.ListMembers)
	r.Post("/{id}/invite-code", h.GenerateInviteCode)
	r.Delete("/{id}/members/{userID}", h.RemoveMember)

	return r
}

// RequestRoutes returns the router for join requests addressed by their own ID
func (h *Handler) RequestRoutes() chi.Router {
	r := chi.NewRouter()

	r.Patch("/{requestID}/approve", h.ApproveByID)
	r.Patch("/{requestID}/reject", h.RejectByID)

	return r
}

// Create handles POST /groups
// @Summary      Create a new group
// @Description  Create a group with the authenticated user as admin
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	g, err := h.service.Create(r.Context(), callerID, &req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, g.ToResponse())
}

// Search handles GET /groups/search
// @Summary      Search public groups by name
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        name query string false "Name substring"
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Router       /groups/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.SearchPublic(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		response.InternalError(w, "Failed to search groups")
		return
	}

	results := make([]*GroupResponse, len(groups))
	for i, g := range groups {
		results[i] = g.ToResponse()
	}
	response.JSON(w, http.StatusOK, results)
}

// RequestJoin handles POST /groups/{id}/join
// @Summary      Request to join a public group
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Group ID"
// @Success      201 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/join [post]
func (h *Handler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.RequestJoin(r.Context(), callerID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}

	response.Message(w, http.StatusCreated, "Join request submitted successfully")
}

// DirectJoin handles POST /groups/{id}/join/direct
// @Summary      Join a public group immediately, without moderation
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Group ID"
// @Success      200 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/join/direct [post]
func (h *Handler) DirectJoin(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.DirectJoin(r.Context(), callerID, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "Successfully joined the group")
}

// ListPendingRequests handles GET /groups/{id}/join-requests
// @Summary      List pending join requests (admin only)
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]JoinRequestResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{id}/join-requests [get]
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	requests, err := h.service.ListPendingRequests(r.Context(), callerID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	results := make([]*JoinRequestResponse, len(requests))
	for i, jr := range requests {
		results[i] = jr.ToResponse()
	}
	response.JSON(w, http.StatusOK, results)
}

// ApproveByPair handles PATCH /groups/{id}/join-requests/{userID}/approve
// @Summary      Approve a join request (admin only)
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Group ID"
// @Param        userID path string true "User ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/join-requests/{userID}/approve [patch]
func (h *Handler) ApproveByPair(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	err := h.service.ApproveRequest(r.Context(), callerID, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "Join request approved successfully")
}

// RejectByPair handles PATCH /groups/{id}/join-requests/{userID}/reject
func (h *Handler) RejectByPair(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	err := h.service.RejectRequest(r.Context(), callerID, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "Join request rejected successfully")
}

// ApproveByID handles PATCH /join-requests/{requestID}/approve
func (h *Handler) ApproveByID(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.ApproveRequestByID(r.Context(), callerID, chi.URLParam(r, "requestID")); err != nil {
		h.respondError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "Join request approved successfully")
}

// RejectByID handles PATCH /join-requests/{requestID}/reject
func (h *Handler) RejectByID(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.RejectRequestByID(r.Context(), callerID, chi.URLParam(r, "requestID")); err != nil {
		h.respondError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "Join request rejected successfully")
}

// ListMembers handles GET /groups/{id}/members
// @Summary      List group members (admin only)
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]user.UserResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{id}/members [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	members, err := h.service.ListMembers(r.Context(), callerID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	results := make([]*user.UserResponse, len(members))
	for i, m := range members {
		results[i] = m.ToResponse()
	}
	response.JSON(w, http.StatusOK, results)
}

// GenerateInviteCode handles POST /groups/{id}/invite-code
// @Summary      Generate an invite code for a private group (admin only)
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Group ID"
// @Success      201 {object} response.APIResponse{data=InviteCodeResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{id}/invite-code [post]
func (h *Handler) GenerateInviteCode(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	code, err := h.service.GenerateInviteCode(r.Context(), callerID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, &InviteCodeResponse{InviteCode: code})
}

// RedeemInviteCode handles POST /groups/join-with-code
// @Summary      Join a private group using an invite code
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body RedeemInviteRequest true "Invite code"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/join-with-code [post]
func (h *Handler) RedeemInviteCode(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req RedeemInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.service.RedeemInviteCode(r.Context(), callerID, req.InviteCode); err != nil {
		h.respondError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "Successfully joined the group")
}

// RemoveMember handles DELETE /groups/{id}/members/{userID}
// @Summary      Remove a user from a group (admin only)
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Group ID"
// @Param        userID path string true "User ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/{id}/members/{userID} [delete]
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	err := h.service.RemoveMember(r.Context(), callerID, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	response.Message(w, http.StatusOK, "User removed from group successfully")
}

// respondError maps admission engine errors onto transport responses
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCapacity),
		errors.Is(err, ErrNotPublic),
		errors.Is(err, ErrNotPrivate),
		errors.Is(err, ErrAdminJoin):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNameTaken),
		errors.Is(err, ErrAlreadyInGroup),
		errors.Is(err, ErrRequestPending),
		errors.Is(err, ErrRequestResolved),
		errors.Is(err, ErrGroupFull),
		errors.Is(err, ErrNotInGroup):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrGroupNotFound),
		errors.Is(err, ErrRequestNotFound),
		errors.Is(err, ErrInvalidCode),
		errors.Is(err, user.ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotGroupAdmin):
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, "Something went wrong")
	}
}
