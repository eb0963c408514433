package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/credstack/apiserver/internal/auth"
	"github.com/credstack/apiserver/internal/services"
)

const (
	minPasswordLength = 6
	maxPasswordLength = 200
	maxNameLength     = 120
)

// AuthHandler exposes the credential signup, signin, signout, and
// verify endpoints.
type AuthHandler struct {
	authService *services.AuthService
	sessions    *auth.SessionCookies
}

func NewAuthHandler(authService *services.AuthService, sessions *auth.SessionCookies) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, sessions *auth.SessionCookies) {
	handler := NewAuthHandler(authService, sessions)

	r.Post("/signup/credential", handler.SignUp)
	r.Post("/signin/credential", handler.SignIn)
	r.Post("/signout", handler.SignOut)
	r.Post("/verify", handler.Verify)
}

// RequireSession rejects requests without a valid session cookie and
// injects the subject user id into the request context.
func RequireSession(sessions *auth.SessionCookies, codec *auth.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := sessions.Read(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			userID, err := codec.Verify(token, time.Now())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SignUp creates a user with credentials and issues a session.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Name == "" || utf8.RuneCountInString(req.Name) > maxNameLength {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if length := utf8.RuneCountInString(req.Password); length < minPasswordLength || length > maxPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be between 6 and 200 characters")
		return
	}

	user, err := h.authService.SignUp(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "a user with this email already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	if err := h.sessions.Issue(w, user.ID, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, SuccessResponse{Success: true})
}

// SignIn verifies credentials and issues a session. An unknown email
// and a wrong password produce the same response.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	userID, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	if err := h.sessions.Issue(w, userID, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// SignOut clears the session cookie. Clearing an absent cookie is a
// no-op, so this always succeeds.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Verify reports whether a session token is valid as a bare boolean.
// It never returns an error body; any failure reads as false.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, false)
		return
	}

	valid := h.authService.VerifyToken(req.Session, time.Now())
	writeJSON(w, http.StatusOK, valid)
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyRequest struct {
	Session string `json:"session"`
}
