package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"personagrid/pkg/model"
)

// MemoryStore is a simple in-memory implementation, intended for dev/demo
// and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	orgs     map[string]model.Organization
	admins   map[string]model.Admin
	personas map[string]model.Persona
	tasks    map[string]model.Task
	audit    []model.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:     make(map[string]model.Organization),
		admins:   make(map[string]model.Admin),
		personas: make(map[string]model.Persona),
		tasks:    make(map[string]model.Task),
	}
}

// Ping reports readiness for health/info endpoints.
func (m *MemoryStore) Ping() error { return nil }

func (m *MemoryStore) CreateOrganization(o model.Organization) (model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fillID(&o.ID)
	fillTime(&o.CreatedAt)
	m.orgs[o.ID] = o
	return o, nil
}

func (m *MemoryStore) GetOrganization(id string) (model.Organization, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orgs[id]
	return o, ok, nil
}

func (m *MemoryStore) GetOrganizationByEmail(email string) (model.Organization, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orgs {
		if o.Email == email {
			return o, true, nil
		}
	}
	return model.Organization{}, false, nil
}

func (m *MemoryStore) FindOrganizationByResetToken(token string, now time.Time) (model.Organization, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orgs {
		if token != "" && o.ResetToken == token && o.ResetExpires != nil && o.ResetExpires.After(now) {
			return o, true, nil
		}
	}
	return model.Organization{}, false, nil
}

func (m *MemoryStore) UpdateOrganization(o model.Organization) (model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[o.ID]; !ok {
		return model.Organization{}, ErrNotFound
	}
	m.orgs[o.ID] = o
	return o, nil
}

func (m *MemoryStore) ListOrganizations() ([]model.Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Organization, 0, len(m.orgs))
	for _, o := range m.orgs {
		out = append(out, o)
	}
	sortNewestOrg(out)
	return out, nil
}

func (m *MemoryStore) CreateAdmin(a model.Admin) (model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fillID(&a.ID)
	fillTime(&a.CreatedAt)
	m.admins[a.ID] = a
	return a, nil
}

func (m *MemoryStore) GetAdmin(id string) (model.Admin, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admins[id]
	return a, ok, nil
}

func (m *MemoryStore) GetAdminByEmail(email string) (model.Admin, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.admins {
		if a.Email == email {
			return a, true, nil
		}
	}
	return model.Admin{}, false, nil
}

func (m *MemoryStore) FindAdminByResetToken(token string, now time.Time) (model.Admin, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.admins {
		if token != "" && a.ResetToken == token && a.ResetExpires != nil && a.ResetExpires.After(now) {
			return a, true, nil
		}
	}
	return model.Admin{}, false, nil
}

func (m *MemoryStore) UpdateAdmin(a model.Admin) (model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[a.ID]; !ok {
		return model.Admin{}, ErrNotFound
	}
	m.admins[a.ID] = a
	return a, nil
}

func (m *MemoryStore) CreatePersona(p model.Persona) (model.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fillID(&p.ID)
	fillTime(&p.CreatedAt)
	for i := range p.SocialProfiles {
		fillID(&p.SocialProfiles[i].ID)
		p.SocialProfiles[i].PersonaID = p.ID
		fillTime(&p.SocialProfiles[i].CreatedAt)
	}
	m.personas[p.ID] = p
	return p, nil
}

func (m *MemoryStore) GetPersona(id string) (model.Persona, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.personas[id]
	return p, ok, nil
}

func (m *MemoryStore) UpdatePersona(p model.Persona) (model.Persona, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.personas[p.ID]; !ok {
		return model.Persona{}, ErrNotFound
	}
	m.personas[p.ID] = p
	return p, nil
}

func (m *MemoryStore) DeletePersona(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.personas[id]; !ok {
		return ErrNotFound
	}
	delete(m.personas, id)
	return nil
}

func (m *MemoryStore) ListPersonas(orgID string, includeGlobal bool) ([]model.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Persona, 0, len(m.personas))
	for _, p := range m.personas {
		if (orgID != "" && p.OrganizationID == orgID) || (includeGlobal && p.Global()) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateTask(t model.Task) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fillID(&t.ID)
	fillTime(&t.CreatedAt)
	m.tasks[t.ID] = t
	return t, nil
}

func (m *MemoryStore) GetTask(id string) (model.Task, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	return t, ok, nil
}

func (m *MemoryStore) ListTasks(personaID string, limit int) ([]model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if personaID == "" || t.PersonaID == personaID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) UpdateTaskStatus(id, status string) (model.Task, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return model.Task{}, false, nil
	}
	t.Status = status
	m.tasks[id] = t
	return t, true, nil
}

func (m *MemoryStore) AppendAudit(e model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

func (m *MemoryStore) ListAudit(limit int) ([]model.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.audit)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]model.AuditEntry, 0, n)
	for i := len(m.audit) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.audit[i])
	}
	return out, nil
}

func sortNewestOrg(out []model.Organization) {
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
}

func fillID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func fillTime(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}
