package handler

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/velano/storefront/internal/domain/otp"
	"github.com/velano/storefront/internal/domain/user"
)

const minPasswordLength = 8

type registerRequest struct {
	Email    string        `json:"email"`
	Name     string        `json:"name"`
	Password string        `json:"password"`
	Address  *user.Address `json:"address,omitempty"`
}

type otpIssuedResponse struct {
	Message           string `json:"message"`
	AttemptsRemaining int    `json:"attempts_remaining"`
	ResendsRemaining  int    `json:"resends_remaining"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// register creates an unverified account (or finds an existing unverified
// one) and issues a registration code to the email address.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	existing, err := h.users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		if existing.Verified {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		// Unverified account: fall through and reissue the code.
	case errors.Is(err, user.ErrNotFound):
		hash, err := user.HashPassword(req.Password)
		if err != nil {
			respondError(w, r, err)
			return
		}
		u := &user.User{
			ID:           uuid.New().String(),
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
			Role:         user.RoleUser,
			Address:      req.Address,
		}
		if err := h.users.Create(ctx, u); err != nil {
			respondError(w, r, err)
			return
		}
	default:
		respondError(w, r, err)
		return
	}

	res, err := h.otps.IssueOrResend(ctx, req.Email, otp.PurposeRegister, req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, otpIssuedResponse{
		Message:           "verification code sent",
		AttemptsRemaining: res.AttemptsRemaining,
		ResendsRemaining:  res.ResendsRemaining,
	})
}

// registerVerify consumes the registration code, marks the account verified
// and returns a session token.
func (h *Handler) registerVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	if err := h.otps.Verify(ctx, req.Email, otp.PurposeRegister, req.Code); err != nil {
		respondError(w, r, err)
		return
	}

	u, err := h.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.users.SetVerified(ctx, u.ID); err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: h.tokens.Issue(u)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token,omitempty"`
	OTPRequired bool   `json:"otp_required,omitempty"`
}

// login checks credentials. Administrators get a second factor: a login
// code is emailed and the session token withheld until loginVerify.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	u, err := h.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := user.CheckPassword(u.PasswordHash, req.Password); err != nil {
		respondError(w, r, err)
		return
	}
	if !u.Verified {
		writeError(w, http.StatusForbidden, "email not verified")
		return
	}

	if u.Role == user.RoleAdmin {
		if _, err := h.otps.IssueOrResend(ctx, u.Email, otp.PurposeLogin, u.Name); err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, loginResponse{OTPRequired: true})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: h.tokens.Issue(u)})
}

// loginVerify consumes the admin login code and returns the session token.
func (h *Handler) loginVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	if err := h.otps.Verify(ctx, req.Email, otp.PurposeLogin, req.Code); err != nil {
		respondError(w, r, err)
		return
	}

	u, err := h.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: h.tokens.Issue(u)})
}

type resendRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

// otpResend reissues a code for an existing flow.
func (h *Handler) otpResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	purpose := otp.Purpose(req.Purpose)
	if !purpose.Valid() {
		writeError(w, http.StatusBadRequest, "unknown purpose")
		return
	}

	res, err := h.otps.IssueOrResend(r.Context(), req.Email, purpose, "")
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, otpIssuedResponse{
		Message:           "verification code sent",
		AttemptsRemaining: res.AttemptsRemaining,
		ResendsRemaining:  res.ResendsRemaining,
	})
}
