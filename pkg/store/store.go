package store

import (
	"errors"
	"time"

	"personagrid/pkg/model"
)

// ErrNotFound is returned by mutating calls whose target row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence layer for organizations, personas and tasks.
// Backed by MySQL via gorm in production; the in-memory impl serves dev/tests.
type Store interface {
	// Ping reports whether the backing database is reachable.
	Ping() error

	CreateOrganization(model.Organization) (model.Organization, error)
	GetOrganization(id string) (model.Organization, bool, error)
	GetOrganizationByEmail(email string) (model.Organization, bool, error)
	FindOrganizationByResetToken(token string, now time.Time) (model.Organization, bool, error)
	UpdateOrganization(model.Organization) (model.Organization, error)
	ListOrganizations() ([]model.Organization, error)

	CreateAdmin(model.Admin) (model.Admin, error)
	GetAdmin(id string) (model.Admin, bool, error)
	GetAdminByEmail(email string) (model.Admin, bool, error)
	FindAdminByResetToken(token string, now time.Time) (model.Admin, bool, error)
	UpdateAdmin(model.Admin) (model.Admin, error)

	CreatePersona(model.Persona) (model.Persona, error)
	GetPersona(id string) (model.Persona, bool, error)
	UpdatePersona(model.Persona) (model.Persona, error)
	DeletePersona(id string) error
	// ListPersonas returns personas owned by orgID plus, when includeGlobal
	// is set, the global (organization-less) ones. An empty orgID with
	// includeGlobal lists global personas only. Newest first.
	ListPersonas(orgID string, includeGlobal bool) ([]model.Persona, error)

	CreateTask(model.Task) (model.Task, error)
	GetTask(id string) (model.Task, bool, error)
	ListTasks(personaID string, limit int) ([]model.Task, error)
	UpdateTaskStatus(id, status string) (model.Task, bool, error)

	AppendAudit(model.AuditEntry) error
	ListAudit(limit int) ([]model.AuditEntry, error)
}
