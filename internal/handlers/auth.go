package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/velotracker/apiserver/internal/logger"
	"github.com/velotracker/apiserver/internal/mail"
	"github.com/velotracker/apiserver/internal/oauth"
	"github.com/velotracker/apiserver/internal/services"
	"github.com/velotracker/apiserver/internal/store"
	"github.com/velotracker/apiserver/internal/token"
	"github.com/velotracker/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen   = 6
	guestEmailDomain = "velotracker.anon"
)

// UserHandler provides authentication, account, and recovery endpoints.
type UserHandler struct {
	userService *services.UserService
	tokens      *token.Service
	verifier    oauth.Verifier
	mailer      mail.Mailer
	log         *logger.Logger
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(
	userService *services.UserService,
	tokens *token.Service,
	verifier oauth.Verifier,
	mailer mail.Mailer,
	log *logger.Logger,
) *UserHandler {
	return &UserHandler{
		userService: userService,
		tokens:      tokens,
		verifier:    verifier,
		mailer:      mailer,
		log:         log,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/google", handler.GoogleAuth)
	r.Post("/anonymous", handler.LoginAnonymously)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/verify-code", handler.VerifyCode)
	r.Post("/reset-password", handler.ResetPassword)
	r.With(authMiddleware).Get("/profile", handler.Profile)
	r.With(authMiddleware).Put("/convert-guest", handler.ConvertGuest)
	r.With(authMiddleware).Put("/link-google", handler.LinkGoogle)
}

// RequireAuth verifies the bearer token and injects the caller identity
// into the request context. It is the only access-control checkpoint;
// handlers downstream only compare the identity to row ownership.
func RequireAuth(tokens *token.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Missing or malformed authorization token")
				return
			}

			identity, err := tokens.Parse(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new user account and returns a session token.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	var errs []FieldError
	if req.Name == "" {
		errs = append(errs, FieldError{Msg: "Oops! You must enter a name", Param: "name"})
	}
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Msg: "Oops! You must enter a valid email", Param: "email"})
	}
	if len(req.Password) < minPasswordLen {
		errs = append(errs, FieldError{Msg: "Oops! Password must be at least 6 characters long", Param: "password"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	if _, err := h.userService.GetByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "User with this email already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.log.Error("register: email lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An error occurred during registration")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("register: hash password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An error occurred during registration")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, "User with this email already exists")
			return
		}
		h.log.Error("register: create user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An error occurred during registration")
		return
	}

	h.respondWithToken(w, http.StatusCreated, "User successfully registered", user)
}

// Login verifies credentials and returns a session token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)

	var errs []FieldError
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Msg: "Please enter a valid email", Param: "email"})
	}
	if req.Password == "" {
		errs = append(errs, FieldError{Msg: "Please enter a password", Param: "password"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("login: email lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	h.respondWithToken(w, http.StatusOK, "Login successful", user)
}

// GoogleAuth logs a user in with a Google ID token, creating the
// account on first sight of the email.
func (h *UserHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req GoogleTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payload, err := h.verifier.Verify(r.Context(), req.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid Google token")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), payload.Email)
	if errors.Is(err, store.ErrNotFound) {
		// First Google sign-in: provision an account with a password
		// nobody knows.
		hashed, hashErr := hashRandomPassword()
		if hashErr != nil {
			h.log.Error("google auth: hash password failed", "error", hashErr)
			writeError(w, http.StatusInternalServerError, "Server error during Google login")
			return
		}
		user, err = h.userService.Create(r.Context(), types.User{
			Name:         payload.Name,
			Email:        payload.Email,
			PasswordHash: hashed,
		})
	}
	if err != nil {
		h.log.Error("google auth: load or create user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error during Google login")
		return
	}

	h.respondWithToken(w, http.StatusOK, "Google login successful", user)
}

// Profile returns the current authenticated user.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("profile: load user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error fetching profile")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

// LoginAnonymously creates a throwaway guest account and returns a
// session token for it. No request body is required.
func (h *UserHandler) LoginAnonymously(w http.ResponseWriter, r *http.Request) {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	hashed, err := hashRandomPassword()
	if err != nil {
		h.log.Error("anonymous login: hash password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error during guest login")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Name:         "Guest_" + suffix,
		Email:        "guest_" + suffix + "@" + guestEmailDomain,
		PasswordHash: hashed,
	})
	if err != nil {
		h.log.Error("anonymous login: create guest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error during guest login")
		return
	}

	h.respondWithToken(w, http.StatusCreated, "Guest login successful", user)
}

// ConvertGuest turns the authenticated guest account into a durable one
// by overwriting its row in place. The id is stable across conversion,
// so the guest's rides stay attached.
func (h *UserHandler) ConvertGuest(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	var errs []FieldError
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Msg: "Valid email required", Param: "email"})
	}
	if len(req.Password) < minPasswordLen {
		errs = append(errs, FieldError{Msg: "Min 6 chars", Param: "password"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	if existing, err := h.userService.GetByEmail(r.Context(), req.Email); err == nil {
		if existing.ID != identity.ID {
			writeError(w, http.StatusBadRequest, "This email is already in use")
			return
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		h.log.Error("convert guest: email lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("convert guest: hash password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	user, err := h.userService.UpdateIdentity(r.Context(), types.User{
		ID:           identity.ID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusBadRequest, "This email is already in use")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.log.Error("convert guest: update failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	h.respondWithToken(w, http.StatusOK, "Account registered successfully", user)
}

// LinkGoogle binds the authenticated account to a Google identity,
// overwriting name, email, and password.
func (h *UserHandler) LinkGoogle(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req GoogleTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payload, err := h.verifier.Verify(r.Context(), req.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid Google token")
		return
	}

	if existing, err := h.userService.GetByEmail(r.Context(), payload.Email); err == nil {
		if existing.ID != identity.ID {
			writeError(w, http.StatusBadRequest, "This Google account is already registered.")
			return
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		h.log.Error("link google: email lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error linking Google account")
		return
	}

	hashed, err := hashRandomPassword()
	if err != nil {
		h.log.Error("link google: hash password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error linking Google account")
		return
	}

	user, err := h.userService.UpdateIdentity(r.Context(), types.User{
		ID:           identity.ID,
		Name:         payload.Name,
		Email:        payload.Email,
		PasswordHash: hashed,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusBadRequest, "This Google account is already registered.")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.log.Error("link google: update failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Server error linking Google account")
		}
		return
	}

	h.respondWithToken(w, http.StatusOK, "Account linked to Google successfully", user)
}

func (h *UserHandler) respondWithToken(w http.ResponseWriter, status int, message string, user types.User) {
	signed, err := h.tokens.Issue(user)
	if err != nil {
		h.log.Error("issue token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create token")
		return
	}
	writeJSON(w, status, AuthResponse{
		Message: message,
		Token:   signed,
		User:    user.Public(),
	})
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleTokenRequest struct {
	Token string `json:"token"`
}

type AuthResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    types.PublicUser `json:"user"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", errors.New("invalid authorization")
	}
	return tokenString, nil
}

// hashRandomPassword produces a bcrypt hash of a random password that
// is never revealed, for accounts that authenticate by other means.
func hashRandomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
