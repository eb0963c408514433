package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/credstack/apiserver/internal/services"
	"github.com/credstack/apiserver/internal/store"
	"github.com/credstack/apiserver/types"
)

// UserHandler exposes the user listing endpoints.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router, gated by the
// session middleware.
func UserRouter(r chi.Router, userService *services.UserService, requireSession func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.With(requireSession).Get("/", handler.List)
	r.With(requireSession).Get("/{userID}", handler.Get)
}

// List returns a page of users. Pagination is cursor-based: pass the
// returned next_cursor to fetch the following page.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := 0
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	users, nextCursor, err := h.userService.List(r.Context(), cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	resp := UsersResponse{Users: users}
	if nextCursor > 0 {
		resp.NextCursor = &nextCursor
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single user by id.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type UsersResponse struct {
	Users      []types.User `json:"users"`
	NextCursor *int         `json:"next_cursor"`
}
