package handlers

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/velotracker/apiserver/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const resetCodeTTL = 10 * time.Minute

// ForgotPassword generates a recovery code, stores it with a 10-minute
// expiry, and mails it to the user.
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if !validEmail(req.Email) {
		writeValidationErrors(w, []FieldError{{Msg: "Enter a valid email", Param: "email"}})
		return
	}

	if _, err := h.userService.GetByEmail(r.Context(), req.Email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No user with this email found")
			return
		}
		h.log.Error("forgot password: email lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error sending code")
		return
	}

	code, err := generateResetCode()
	if err != nil {
		h.log.Error("forgot password: generate code failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error sending code")
		return
	}

	expires := time.Now().Add(resetCodeTTL)
	if err := h.userService.SetResetCode(r.Context(), req.Email, code, expires); err != nil {
		h.log.Error("forgot password: store code failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error sending code")
		return
	}

	if err := h.mailer.SendResetCode(r.Context(), req.Email, code); err != nil {
		h.log.Error("forgot password: send mail failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error sending code")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Recovery code sent to your email"})
}

// VerifyCode checks a recovery code without consuming it, so the client
// can confirm the code before asking the user for a new password.
func (h *UserHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Code = strings.TrimSpace(req.Code)

	var errs []FieldError
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Msg: "Enter a valid email", Param: "email"})
	}
	if req.Code == "" {
		errs = append(errs, FieldError{Msg: "Code is required", Param: "code"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	if _, err := h.userService.GetByEmailAndCode(r.Context(), req.Email, req.Code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusBadRequest, VerifyCodeResponse{
				Success: false,
				Message: "Invalid code or expired code",
			})
			return
		}
		h.log.Error("verify code: lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	writeJSON(w, http.StatusOK, VerifyCodeResponse{Success: true, Message: "The code is confirmed"})
}

// ResetPassword replaces the password and clears the recovery code in a
// single statement guarded by the code match and expiry.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Code = strings.TrimSpace(req.Code)

	var errs []FieldError
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Msg: "Enter a valid email", Param: "email"})
	}
	if req.Code == "" {
		errs = append(errs, FieldError{Msg: "Code is required", Param: "code"})
	}
	if len(req.NewPassword) < minPasswordLen {
		errs = append(errs, FieldError{Msg: "Password must be 6+ chars", Param: "newPassword"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("reset password: hash failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error changing password.")
		return
	}

	if err := h.userService.ResetPassword(r.Context(), req.Email, req.Code, string(hashed)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Invalid recovery request.")
			return
		}
		h.log.Error("reset password: update failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error changing password.")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully. You can now login."})
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type VerifyCodeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// generateResetCode returns a random 4-digit code.
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}
