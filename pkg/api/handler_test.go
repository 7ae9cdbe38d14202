package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"personagrid/pkg/command"
	"personagrid/pkg/llm"
	"personagrid/pkg/model"
	"personagrid/pkg/store"
)

// routeLLM answers analyzer and matcher prompts with the given canned JSON
// and every generation prompt with a fixed string.
func routeLLM(analysis, match string) llm.Func {
	return func(_ context.Context, req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "analyzes social media marketing commands"):
			return analysis, nil
		case strings.Contains(req.Prompt, "task assignment system"):
			return match, nil
		default:
			return "stubbed persona content", nil
		}
	}
}

type testEnv struct {
	t   *testing.T
	mux *http.ServeMux
	st  *store.MemoryStore
}

func newEnv(t *testing.T, client llm.Client) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	h := &Handler{
		Store:    st,
		Pipeline: &command.Pipeline{Store: st, LLM: client, Drafts: command.NewDraftCache(time.Minute)},
		Hub:      NewWSHub(),
	}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &testEnv{t: t, mux: mux, st: st}
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func (e *testEnv) signup(name, email string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": "hunter22",
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(e.t, w, &resp)
	require.NotEmpty(e.t, resp.Token)
	return resp.Token
}

func (e *testEnv) adminToken(email string) string {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("root-secret"), bcrypt.MinCost)
	require.NoError(e.t, err)
	_, err = e.st.CreateAdmin(model.Admin{Email: email, PasswordHash: string(hash)})
	require.NoError(e.t, err)

	w := e.do(http.MethodPost, "/api/v1/admin/login", "", map[string]string{
		"email": email, "password": "root-secret",
	})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(e.t, w, &resp)
	return resp.Token
}

func (e *testEnv) createPersona(token, name string) model.Persona {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/v1/personas", token, map[string]interface{}{
		"displayName":       name,
		"personalityTraits": []string{"empathetic", "analytical", "curious"},
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Persona model.Persona `json:"persona"`
	}
	decode(e.t, w, &resp)
	return resp.Persona
}

func TestSignupLoginMe(t *testing.T) {
	e := newEnv(t, nil)

	token := e.signup("Acme", "ops@acme.test")

	// Duplicate email is rejected.
	w := e.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": "Acme Again", "email": "ops@acme.test", "password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Bad fields are rejected.
	w = e.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": "ab", "email": "x@y.test", "password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ops@acme.test", "password": "hunter22",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ops@acme.test", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Organization model.Organization `json:"organization"`
	}
	decode(t, w, &me)
	assert.Equal(t, "ops@acme.test", me.Organization.Email)

	w = e.do(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	e := newEnv(t, nil)
	e.signup("Acme", "ops@acme.test")

	w := e.do(http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "ops@acme.test"})
	require.Equal(t, http.StatusOK, w.Code)

	org, ok, err := e.st.GetOrganizationByEmail("ops@acme.test")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, org.ResetToken)

	w = e.do(http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{
		"token": org.ResetToken, "password": "new-password",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ops@acme.test", "password": "new-password",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// The token is single-use.
	w = e.do(http.MethodPost, "/api/v1/auth/reset-password", "", map[string]string{
		"token": org.ResetToken, "password": "another-one",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "ghost@acme.test"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPersonaCRUD(t *testing.T) {
	e := newEnv(t, nil)
	token := e.signup("Acme", "ops@acme.test")

	persona := e.createPersona(token, "Sage")

	// Too few traits.
	w := e.do(http.MethodPost, "/api/v1/personas", token, map[string]interface{}{
		"displayName":       "Broken",
		"personalityTraits": []string{"one"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/api/v1/personas", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Personas []model.Persona `json:"personas"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Personas, 1)

	w = e.do(http.MethodPatch, "/api/v1/personas/"+persona.ID, token, map[string]string{"bio": "updated bio"})
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Persona model.Persona `json:"persona"`
	}
	decode(t, w, &got)
	assert.Equal(t, "updated bio", got.Persona.Bio)

	// Another organization cannot see it.
	otherToken := e.signup("Rival", "ops@rival.test")
	w = e.do(http.MethodGet, "/api/v1/personas/"+persona.ID, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodDelete, "/api/v1/personas/"+persona.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(http.MethodGet, "/api/v1/personas/"+persona.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPersonaTasksAndStatus(t *testing.T) {
	e := newEnv(t, nil)
	token := e.signup("Acme", "ops@acme.test")
	persona := e.createPersona(token, "Sage")

	w := e.do(http.MethodPost, "/api/v1/personas/"+persona.ID+"/tasks", token, map[string]interface{}{
		"platform": "twitter",
		"taskType": "post",
		"payload":  map[string]string{"content": "hello"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Task model.Task `json:"task"`
	}
	decode(t, w, &created)
	assert.Equal(t, model.TaskStatusPending, created.Task.Status)

	w = e.do(http.MethodPost, "/api/v1/personas/"+persona.ID+"/tasks", token, map[string]interface{}{
		"platform":     "twitter",
		"taskType":     "post",
		"payload":      map[string]string{"content": "later"},
		"scheduledFor": "2026-10-01T09:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var scheduled struct {
		Task model.Task `json:"task"`
	}
	decode(t, w, &scheduled)
	assert.Equal(t, model.TaskStatusScheduled, scheduled.Task.Status)

	w = e.do(http.MethodGet, "/api/v1/personas/"+persona.ID+"/tasks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Tasks []model.Task `json:"tasks"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Tasks, 2)

	w = e.do(http.MethodPatch, "/api/v1/tasks/"+created.Task.ID+"/status", token, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Task model.Task `json:"task"`
	}
	decode(t, w, &updated)
	assert.Equal(t, model.TaskStatusCompleted, updated.Task.Status)

	w = e.do(http.MethodPatch, "/api/v1/tasks/"+created.Task.ID+"/status", token, map[string]string{"status": "nonsense"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminOrganizationToggleLocksOutOrg(t *testing.T) {
	e := newEnv(t, nil)
	orgToken := e.signup("Acme", "ops@acme.test")
	adminToken := e.adminToken("root@grid.test")

	w := e.do(http.MethodGet, "/api/v1/admin/organizations", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Organizations []model.Organization `json:"organizations"`
	}
	decode(t, w, &list)
	require.Len(t, list.Organizations, 1)
	orgID := list.Organizations[0].ID

	w = e.do(http.MethodPatch, fmt.Sprintf("/api/v1/admin/organizations/%s/toggle", orgID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Deactivated organizations are shut out of every org route.
	w = e.do(http.MethodGet, "/api/v1/personas", orgToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ops@acme.test", "password": "hunter22",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Toggling back restores access.
	w = e.do(http.MethodPatch, fmt.Sprintf("/api/v1/admin/organizations/%s/toggle", orgID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodGet, "/api/v1/personas", orgToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminGlobalPersonas(t *testing.T) {
	e := newEnv(t, nil)
	adminToken := e.adminToken("root@grid.test")

	w := e.do(http.MethodPost, "/api/v1/admin/personas", adminToken, map[string]interface{}{
		"displayName":       "Sage",
		"personalityTraits": []string{"empathetic", "analytical", "curious"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Persona model.Persona `json:"persona"`
	}
	decode(t, w, &created)
	assert.Empty(t, created.Persona.OrganizationID)
	assert.True(t, created.Persona.IsActive)

	w = e.do(http.MethodPatch, "/api/v1/admin/personas/"+created.Persona.ID+"/toggle-status", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var toggled struct {
		Persona model.Persona `json:"persona"`
	}
	decode(t, w, &toggled)
	assert.False(t, toggled.Persona.IsActive)

	// Organizations see global personas through the tasks route but cannot
	// edit them.
	orgToken := e.signup("Acme", "ops@acme.test")
	w = e.do(http.MethodPatch, "/api/v1/personas/"+created.Persona.ID, orgToken, map[string]string{"bio": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(http.MethodGet, "/api/v1/personas/"+created.Persona.ID+"/tasks", orgToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Org-owned personas are invisible to the admin persona routes.
	orgPersona := e.createPersona(orgToken, "Mine")
	w = e.do(http.MethodDelete, "/api/v1/admin/personas/"+orgPersona.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminCommandPreviewConfirm(t *testing.T) {
	analysis := `{"intent":"Announce our new product","platform":"twitter","taskType":"post","targetAllPersonas":true}`
	e := newEnv(t, routeLLM(analysis, `{"personas":[]}`))
	adminToken := e.adminToken("root@grid.test")

	w := e.do(http.MethodPost, "/api/v1/admin/personas", adminToken, map[string]interface{}{
		"displayName":       "Sage",
		"personalityTraits": []string{"empathetic", "analytical", "curious"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Persona model.Persona `json:"persona"`
	}
	decode(t, w, &created)

	w = e.do(http.MethodPost, "/api/v1/admin/commands/preview", adminToken, map[string]string{
		"command": "Announce our new product launch on Twitter",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var preview command.Preview
	decode(t, w, &preview)
	require.Len(t, preview.Previews, 1)
	assert.Equal(t, "twitter", preview.Platform)
	assert.Equal(t, "stubbed persona content", preview.Previews[0].GeneratedContent)

	w = e.do(http.MethodPost, "/api/v1/admin/commands/confirm", adminToken, map[string]interface{}{
		"platform": preview.Platform,
		"taskType": preview.TaskType,
		"confirmations": []map[string]string{
			{"personaId": created.Persona.ID, "content": "edited before posting"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var confirmed struct {
		Tasks []model.Task `json:"tasks"`
	}
	decode(t, w, &confirmed)
	require.Len(t, confirmed.Tasks, 1)
	assert.Equal(t, "edited before posting", confirmed.Tasks[0].Payload["content"])
	assert.Equal(t, "admin_command", confirmed.Tasks[0].Payload["source"])

	// Commands below the minimum length are rejected with the pipeline's 400.
	w = e.do(http.MethodPost, "/api/v1/admin/commands/preview", adminToken, map[string]string{"command": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Admin routes reject organization tokens outright.
	orgToken := e.signup("Acme", "ops@acme.test")
	w = e.do(http.MethodPost, "/api/v1/admin/commands/preview", orgToken, map[string]string{
		"command": "Announce our new product launch on Twitter",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSmartCommandEndpoints(t *testing.T) {
	e := newEnv(t, routeLLM("", `{"personas":["Sage"]}`))
	token := e.signup("Acme", "ops@acme.test")
	persona := e.createPersona(token, "Sage")

	w := e.do(http.MethodPost, "/api/v1/smart-commands/preview", token, map[string]string{
		"prompt":   "write a thoughtful launch thread",
		"platform": "twitter",
		"taskType": "post",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var preview command.Preview
	decode(t, w, &preview)
	require.Len(t, preview.Previews, 1)
	assert.Equal(t, persona.ID, preview.Previews[0].PersonaID)
	require.NotEmpty(t, preview.DraftID)

	w = e.do(http.MethodGet, "/api/v1/smart-commands/drafts?draftId="+preview.DraftID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched command.Preview
	decode(t, w, &fetched)
	assert.Equal(t, preview.Previews, fetched.Previews)

	w = e.do(http.MethodGet, "/api/v1/smart-commands/drafts?draftId=missing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, "/api/v1/smart-commands/confirm", token, map[string]interface{}{
		"platform": "twitter",
		"taskType": "post",
		"confirmations": []map[string]string{
			{"personaId": persona.ID, "content": preview.Previews[0].GeneratedContent},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var confirmed struct {
		Tasks []model.Task `json:"tasks"`
	}
	decode(t, w, &confirmed)
	require.Len(t, confirmed.Tasks, 1)

	w = e.do(http.MethodPost, "/api/v1/smart-commands", token, map[string]string{
		"prompt":   "one-shot launch post",
		"platform": "twitter",
		"taskType": "post",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var oneShot struct {
		Tasks            []model.Task `json:"tasks"`
		AssignedPersonas []string     `json:"assignedPersonas"`
	}
	decode(t, w, &oneShot)
	require.Len(t, oneShot.Tasks, 1)
	assert.Equal(t, []string{"Sage"}, oneShot.AssignedPersonas)
}

func TestAdminAuditListsNewestFirst(t *testing.T) {
	e := newEnv(t, nil)
	adminToken := e.adminToken("root@grid.test")
	orgToken := e.signup("Acme", "ops@acme.test")
	e.createPersona(orgToken, "Sage")

	w := e.do(http.MethodGet, "/api/v1/admin/audit", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Entries []model.AuditEntry `json:"entries"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Entries)
	assert.Equal(t, "persona_create", resp.Entries[0].Action)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t, nil)
	w := e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

// brokenPingStore simulates a store whose backing database is down.
type brokenPingStore struct{ *store.MemoryStore }

func (brokenPingStore) Ping() error { return errors.New("connection refused") }

func TestHealthzReportsStoreFailure(t *testing.T) {
	st := brokenPingStore{store.NewMemoryStore()}
	h := &Handler{Store: st, Pipeline: &command.Pipeline{Store: st}}
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
