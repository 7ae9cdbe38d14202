package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"personagrid/pkg/auth"
	"personagrid/pkg/command"
	"personagrid/pkg/mail"
	"personagrid/pkg/model"
	"personagrid/pkg/store"
)

// Handler carries the dependencies all HTTP routes share.
type Handler struct {
	Store    store.Store
	Pipeline *command.Pipeline
	Hub      *WSHub
	Mail     mail.Sender
}

// RegisterRoutes wires the HTTP handlers on the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("personagrid server"))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := h.Store.Ping(); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/auth/signup", h.handleSignup)
	mux.HandleFunc("/api/v1/auth/login", h.handleLogin)
	mux.HandleFunc("/api/v1/auth/forgot-password", h.handleForgotPassword)
	mux.HandleFunc("/api/v1/auth/reset-password", h.handleResetPassword)
	mux.HandleFunc("/api/v1/auth/me", h.requireOrg(h.handleMe))

	mux.HandleFunc("/api/v1/personas", h.requireOrg(h.handlePersonas))
	mux.HandleFunc("/api/v1/personas/", h.requireOrg(h.handlePersonaSubtree))
	mux.HandleFunc("/api/v1/tasks/", h.requireOrg(h.handleTaskStatus))

	mux.HandleFunc("/api/v1/smart-commands", h.requireOrg(h.handleSmartCreate))
	mux.HandleFunc("/api/v1/smart-commands/preview", h.requireOrg(h.handleSmartPreview))
	mux.HandleFunc("/api/v1/smart-commands/confirm", h.requireOrg(h.handleSmartConfirm))
	mux.HandleFunc("/api/v1/smart-commands/drafts", h.requireOrg(h.handleDraft))

	mux.HandleFunc("/api/v1/admin/login", h.handleAdminLogin)
	mux.HandleFunc("/api/v1/admin/me", h.requireAdmin(h.handleAdminMe))
	mux.HandleFunc("/api/v1/admin/organizations", h.requireAdmin(h.handleAdminOrganizations))
	mux.HandleFunc("/api/v1/admin/organizations/", h.requireAdmin(h.handleAdminOrganizationSubtree))
	mux.HandleFunc("/api/v1/admin/personas", h.requireAdmin(h.handleAdminPersonas))
	mux.HandleFunc("/api/v1/admin/personas/", h.requireAdmin(h.handleAdminPersonaSubtree))
	mux.HandleFunc("/api/v1/admin/commands/preview", h.requireAdmin(h.handleAdminCommandPreview))
	mux.HandleFunc("/api/v1/admin/commands/confirm", h.requireAdmin(h.handleAdminCommandConfirm))
	mux.HandleFunc("/api/v1/admin/commands/log", h.requireAdmin(h.handleAdminCommandLog))
	mux.HandleFunc("/api/v1/admin/audit", h.requireAdmin(h.handleAdminAudit))

	if h.Hub != nil {
		mux.HandleFunc("/api/v1/ws/events", h.Hub.HandleEvents)
	}
}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return ""
}

// requireOrg authenticates an organization account; the organization must
// exist and still be active.
func (h *Handler) requireOrg(next func(http.ResponseWriter, *http.Request, model.Organization)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.Parse(bearerToken(r))
		if err != nil || claims.OrganizationID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		org, ok, err := h.Store.GetOrganization(claims.OrganizationID)
		if err != nil || !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !org.IsActive {
			http.Error(w, "organization is deactivated", http.StatusForbidden)
			return
		}
		next(w, r, org)
	}
}

// requireAdmin authenticates a super-admin account.
func (h *Handler) requireAdmin(next func(http.ResponseWriter, *http.Request, model.Admin)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.Parse(bearerToken(r))
		if err != nil || claims.AdminID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		admin, ok, err := h.Store.GetAdmin(claims.AdminID)
		if err != nil || !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r, admin)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

// writeCommandError maps pipeline errors onto their HTTP status; anything
// else is a 500.
func writeCommandError(w http.ResponseWriter, err error) {
	var cerr *command.Error
	if errors.As(err, &cerr) {
		writeJSON(w, cerr.Status, map[string]string{"error": cerr.Message})
		return
	}
	log.Printf("internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
