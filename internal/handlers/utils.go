package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/velotracker/apiserver/internal/token"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// ErrorResponse is the error payload for non-validation failures.
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse is a bare success message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// FieldError describes a single failed validation check.
type FieldError struct {
	Msg   string `json:"msg"`
	Param string `json:"param"`
}

// ValidationResponse carries all failed checks for a request.
type ValidationResponse struct {
	Errors []FieldError `json:"errors"`
}

func identityFromContext(ctx context.Context) (token.Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(token.Identity)
	if !ok || identity.ID < 1 {
		return token.Identity{}, errors.New("missing identity")
	}
	return identity, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

func writeValidationErrors(w http.ResponseWriter, errs []FieldError) {
	writeJSON(w, http.StatusBadRequest, ValidationResponse{Errors: errs})
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
