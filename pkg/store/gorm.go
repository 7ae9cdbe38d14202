package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"personagrid/pkg/model"
)

// GormStore persists everything in MySQL through gorm.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (g *GormStore) Ping() error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (g *GormStore) CreateOrganization(o model.Organization) (model.Organization, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if err := g.DB.Create(&o).Error; err != nil {
		return model.Organization{}, err
	}
	return o, nil
}

func (g *GormStore) GetOrganization(id string) (model.Organization, bool, error) {
	var o model.Organization
	err := g.DB.First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Organization{}, false, nil
	}
	if err != nil {
		return model.Organization{}, false, err
	}
	return o, true, nil
}

func (g *GormStore) GetOrganizationByEmail(email string) (model.Organization, bool, error) {
	var o model.Organization
	err := g.DB.First(&o, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Organization{}, false, nil
	}
	if err != nil {
		return model.Organization{}, false, err
	}
	return o, true, nil
}

func (g *GormStore) FindOrganizationByResetToken(token string, now time.Time) (model.Organization, bool, error) {
	if token == "" {
		return model.Organization{}, false, nil
	}
	var o model.Organization
	err := g.DB.First(&o, "reset_token = ? AND reset_expires > ?", token, now).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Organization{}, false, nil
	}
	if err != nil {
		return model.Organization{}, false, err
	}
	return o, true, nil
}

func (g *GormStore) UpdateOrganization(o model.Organization) (model.Organization, error) {
	res := g.DB.Model(&model.Organization{}).Where("id = ?", o.ID).Select("*").Omit("id", "created_at").Updates(&o)
	if res.Error != nil {
		return model.Organization{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Organization{}, ErrNotFound
	}
	return o, nil
}

func (g *GormStore) ListOrganizations() ([]model.Organization, error) {
	var out []model.Organization
	if err := g.DB.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GormStore) CreateAdmin(a model.Admin) (model.Admin, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := g.DB.Create(&a).Error; err != nil {
		return model.Admin{}, err
	}
	return a, nil
}

func (g *GormStore) GetAdmin(id string) (model.Admin, bool, error) {
	var a model.Admin
	err := g.DB.First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Admin{}, false, nil
	}
	if err != nil {
		return model.Admin{}, false, err
	}
	return a, true, nil
}

func (g *GormStore) GetAdminByEmail(email string) (model.Admin, bool, error) {
	var a model.Admin
	err := g.DB.First(&a, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Admin{}, false, nil
	}
	if err != nil {
		return model.Admin{}, false, err
	}
	return a, true, nil
}

func (g *GormStore) FindAdminByResetToken(token string, now time.Time) (model.Admin, bool, error) {
	if token == "" {
		return model.Admin{}, false, nil
	}
	var a model.Admin
	err := g.DB.First(&a, "reset_token = ? AND reset_expires > ?", token, now).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Admin{}, false, nil
	}
	if err != nil {
		return model.Admin{}, false, err
	}
	return a, true, nil
}

func (g *GormStore) UpdateAdmin(a model.Admin) (model.Admin, error) {
	res := g.DB.Model(&model.Admin{}).Where("id = ?", a.ID).Select("*").Omit("id", "created_at").Updates(&a)
	if res.Error != nil {
		return model.Admin{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Admin{}, ErrNotFound
	}
	return a, nil
}

func (g *GormStore) CreatePersona(p model.Persona) (model.Persona, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range p.SocialProfiles {
		if p.SocialProfiles[i].ID == "" {
			p.SocialProfiles[i].ID = uuid.NewString()
		}
		p.SocialProfiles[i].PersonaID = p.ID
	}
	if err := g.DB.Create(&p).Error; err != nil {
		return model.Persona{}, err
	}
	return p, nil
}

func (g *GormStore) GetPersona(id string) (model.Persona, bool, error) {
	var p model.Persona
	err := g.DB.Preload("SocialProfiles").First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Persona{}, false, nil
	}
	if err != nil {
		return model.Persona{}, false, err
	}
	return p, true, nil
}

func (g *GormStore) UpdatePersona(p model.Persona) (model.Persona, error) {
	res := g.DB.Model(&model.Persona{}).Where("id = ?", p.ID).Select("*").Omit("id", "created_at", "SocialProfiles").Updates(&p)
	if res.Error != nil {
		return model.Persona{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Persona{}, ErrNotFound
	}
	return p, nil
}

func (g *GormStore) DeletePersona(id string) error {
	res := g.DB.Delete(&model.Persona{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	g.DB.Delete(&model.SocialProfile{}, "persona_id = ?", id)
	return nil
}

func (g *GormStore) ListPersonas(orgID string, includeGlobal bool) ([]model.Persona, error) {
	q := g.DB.Preload("SocialProfiles").Order("created_at DESC")
	switch {
	case orgID != "" && includeGlobal:
		q = q.Where("organization_id = ? OR organization_id = ''", orgID)
	case orgID != "":
		q = q.Where("organization_id = ?", orgID)
	default:
		q = q.Where("organization_id = ''")
	}
	var out []model.Persona
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GormStore) CreateTask(t model.Task) (model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := g.DB.Create(&t).Error; err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (g *GormStore) GetTask(id string) (model.Task, bool, error) {
	var t model.Task
	err := g.DB.First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Task{}, false, nil
	}
	if err != nil {
		return model.Task{}, false, err
	}
	return t, true, nil
}

func (g *GormStore) ListTasks(personaID string, limit int) ([]model.Task, error) {
	q := g.DB.Order("created_at DESC")
	if personaID != "" {
		q = q.Where("persona_id = ?", personaID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.Task
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GormStore) UpdateTaskStatus(id, status string) (model.Task, bool, error) {
	res := g.DB.Model(&model.Task{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return model.Task{}, false, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Task{}, false, nil
	}
	return g.getTaskAfterUpdate(id)
}

func (g *GormStore) getTaskAfterUpdate(id string) (model.Task, bool, error) {
	var t model.Task
	if err := g.DB.First(&t, "id = ?", id).Error; err != nil {
		return model.Task{}, false, err
	}
	return t, true, nil
}

func (g *GormStore) AppendAudit(e model.AuditEntry) error {
	return g.DB.Create(&e).Error
}

func (g *GormStore) ListAudit(limit int) ([]model.AuditEntry, error) {
	q := g.DB.Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.AuditEntry
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
