package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"net/mail"
	"time"

	"golang.org/x/crypto/bcrypt"

	"personagrid/pkg/auth"
	pgmail "personagrid/pkg/mail"
	"personagrid/pkg/model"
)

const tokenTTL = 7 * 24 * time.Hour

type orgResponse struct {
	Organization model.Organization `json:"organization"`
	Token        string             `json:"token"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Mission  string `json:"mission,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if len(req.Name) < 3 || len(req.Name) > 80 || len(req.Password) < 6 || len(req.Mission) > 280 || !validEmail(req.Email) {
		http.Error(w, "invalid signup fields", http.StatusBadRequest)
		return
	}
	if _, exists, err := h.Store.GetOrganizationByEmail(req.Email); err != nil {
		http.Error(w, "failed to check email", http.StatusInternalServerError)
		return
	} else if exists {
		http.Error(w, "organization with this email already exists", http.StatusConflict)
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	org, err := h.Store.CreateOrganization(model.Organization{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Mission:      req.Mission,
		IsActive:     true,
	})
	if err != nil {
		http.Error(w, "failed to create organization", http.StatusInternalServerError)
		return
	}
	token, _ := auth.GenerateOrganization(org.ID, org.Email, tokenTTL)
	writeJSON(w, http.StatusCreated, orgResponse{Organization: org, Token: token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	org, ok, err := h.Store.GetOrganizationByEmail(req.Email)
	if err != nil {
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	if !ok || bcrypt.CompareHashAndPassword([]byte(org.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	}
	if !org.IsActive {
		http.Error(w, "organization is deactivated", http.StatusForbidden)
		return
	}
	token, _ := auth.GenerateOrganization(org.ID, org.Email, tokenTTL)
	writeJSON(w, http.StatusOK, orgResponse{Organization: org, Token: token})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request, org model.Organization) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.Organization{"organization": org})
}

// handleForgotPassword issues a reset token for an admin or organization
// account. The response never reveals whether the email exists beyond the
// original behavior of a 404 on a full miss.
func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	token := randomToken()
	expires := time.Now().Add(time.Hour)

	if admin, ok, _ := h.Store.GetAdminByEmail(req.Email); ok {
		admin.ResetToken = token
		admin.ResetExpires = &expires
		if _, err := h.Store.UpdateAdmin(admin); err != nil {
			http.Error(w, "failed to save reset token", http.StatusInternalServerError)
			return
		}
		h.sendResetMail(req.Email, token)
		writeJSON(w, http.StatusOK, map[string]string{"message": "password reset email sent"})
		return
	}
	if org, ok, _ := h.Store.GetOrganizationByEmail(req.Email); ok {
		org.ResetToken = token
		org.ResetExpires = &expires
		if _, err := h.Store.UpdateOrganization(org); err != nil {
			http.Error(w, "failed to save reset token", http.StatusInternalServerError)
			return
		}
		h.sendResetMail(req.Email, token)
		writeJSON(w, http.StatusOK, map[string]string{"message": "password reset email sent"})
		return
	}
	http.Error(w, "user not found", http.StatusNotFound)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || len(req.Password) < 6 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	now := time.Now()

	if admin, ok, _ := h.Store.FindAdminByResetToken(req.Token, now); ok {
		admin.PasswordHash = string(hash)
		admin.ResetToken = ""
		admin.ResetExpires = nil
		if _, err := h.Store.UpdateAdmin(admin); err != nil {
			http.Error(w, "failed to reset password", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "password reset successfully"})
		return
	}
	if org, ok, _ := h.Store.FindOrganizationByResetToken(req.Token, now); ok {
		org.PasswordHash = string(hash)
		org.ResetToken = ""
		org.ResetExpires = nil
		if _, err := h.Store.UpdateOrganization(org); err != nil {
			http.Error(w, "failed to reset password", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "password reset successfully"})
		return
	}
	http.Error(w, "invalid or expired token", http.StatusBadRequest)
}

func (h *Handler) sendResetMail(to, token string) {
	if h.Mail == nil {
		log.Printf("mail disabled; reset token for %s not delivered", to)
		return
	}
	if err := h.Mail.Send(to, "Reset your PersonaGrid password", pgmail.ResetPasswordBody(token)); err != nil {
		log.Printf("reset mail to %s failed: %v", to, err)
	}
}

func randomToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func validEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}
