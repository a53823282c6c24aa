// Package script manages the catalogue of remote CLAM
// scripts and the pipelines that pair them. Profiles and
// input templates are not edited locally: they are
// re-imported from the remote server's own metadata.
package script

import (
	"context"

	"github.com/equestria-cloud/equestria/internal/folder"
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/equestria-cloud/equestria/pkg/clam"
	"github.com/equestria-cloud/equestria/pkg/db"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Clients builds a CLAM client for a script's endpoint.
type Clients func(*models.Script) clam.Client

// DefaultClients dials the script's configured hostname
// with its stored credentials.
func DefaultClients(s *models.Script) clam.Client {
	return clam.New(s.Hostname, s.Username, s.Password)
}

type Script interface {
	WithDatabase(*gorm.DB) Script
	WithClients(Clients) Script
	WithLister(folder.Lister) Script
	Create(*CreateRequest) (*models.Script, error)
	Get(uuid.UUID) (*models.Script, error)
	List() ([]models.Script, error)
	Delete(uuid.UUID) error
	Refresh(uuid.UUID) ([]models.Profile, error)
	Profiles(uuid.UUID) ([]models.Profile, error)
	ValidProfiles(scriptID uuid.UUID, processFolder string) ([]models.Profile, error)
	CreatePipeline(*PipelineRequest) (*models.Pipeline, error)
	GetPipeline(uuid.UUID) (*models.Pipeline, error)
	ListPipelines() ([]models.Pipeline, error)
	DeletePipeline(uuid.UUID) error
}

// CreateRequest carries the fields needed to register a
// remote script.
type CreateRequest struct {
	Name        string `json:"name" validate:"required"`
	Hostname    string `json:"hostname" validate:"required"`
	Description string `json:"description"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// PipelineRequest pairs a forced-alignment script with a
// grapheme-to-phoneme script under a name.
type PipelineRequest struct {
	Name        string    `json:"name" validate:"required"`
	FAScriptID  uuid.UUID `json:"fa_script_id" validate:"required"`
	G2PScriptID uuid.UUID `json:"g2p_script_id" validate:"required"`
}

type scriptService struct {
	ctx     context.Context
	db      *gorm.DB
	clients Clients
	lister  folder.Lister
}

func Service(ctx context.Context) Script {
	return &scriptService{
		ctx:     ctx,
		db:      db.Connection(),
		clients: DefaultClients,
		lister:  folder.OS{},
	}
}

func (s *scriptService) WithDatabase(conn *gorm.DB) Script {
	s.db = conn
	return s
}

func (s *scriptService) WithClients(c Clients) Script {
	s.clients = c
	return s
}

func (s *scriptService) WithLister(l folder.Lister) Script {
	s.lister = l
	return s
}

func (s *scriptService) Create(req *CreateRequest) (*models.Script, error) {
	script := &models.Script{
		ID:          uuid.New(),
		Name:        req.Name,
		Hostname:    req.Hostname,
		Description: req.Description,
		Username:    req.Username,
		Password:    req.Password,
	}

	return script, s.db.WithContext(s.ctx).Create(script).Error
}

func (s *scriptService) Get(id uuid.UUID) (*models.Script, error) {
	script := &models.Script{}
	return script, s.db.WithContext(s.ctx).First(script, "id = ?", id).Error
}

func (s *scriptService) List() ([]models.Script, error) {
	scripts := make([]models.Script, 0)
	return scripts, s.db.WithContext(s.ctx).Order("name").Find(&scripts).Error
}

func (s *scriptService) Delete(id uuid.UUID) error {
	return s.db.WithContext(s.ctx).Delete(&models.Script{}, "id = ?", id).Error
}

// Refresh replaces the script's declared profiles with the
// ones the remote server currently advertises. Profiles
// pinned to processes are left untouched, so runs in
// flight keep the configuration they started with.
func (s *scriptService) Refresh(id uuid.UUID) ([]models.Profile, error) {
	script, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	md, err := s.clients(script).Metadata(s.ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch metadata for script %v", script.Name)
	}

	fresh := make([]models.Profile, 0, len(md.Profiles))
	for _, spec := range md.Profiles {
		p := models.Profile{
			ID:       uuid.New(),
			ScriptID: &id,
		}

		for _, t := range spec.Templates {
			p.Templates = append(p.Templates, models.InputTemplate{
				ID:            uuid.New(),
				ProfileID:     p.ID,
				TemplateID:    t.ID,
				Format:        t.Format,
				Label:         t.Label,
				Extension:     t.Extension,
				Optional:      t.Optional,
				Unique:        t.Unique,
				AcceptArchive: t.AcceptArchive,
			})
		}

		fresh = append(fresh, p)
	}

	err = s.db.WithContext(s.ctx).Transaction(func(tx *gorm.DB) error {
		var declared []models.Profile
		if err := tx.
			Where("script_id = ? AND process_id IS NULL", id).
			Find(&declared).Error; err != nil {
			return err
		}

		for i := range declared {
			if err := tx.
				Where("profile_id = ?", declared[i].ID).
				Delete(&models.InputTemplate{}).Error; err != nil {
				return err
			}
		}

		if err := tx.
			Where("script_id = ? AND process_id IS NULL", id).
			Delete(&models.Profile{}).Error; err != nil {
			return err
		}

		for i := range fresh {
			if err := tx.Create(&fresh[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return fresh, nil
}

// Profiles lists the script's declared profiles with their
// templates.
func (s *scriptService) Profiles(id uuid.UUID) ([]models.Profile, error) {
	profiles := make([]models.Profile, 0)

	return profiles, s.db.WithContext(s.ctx).
		Preload("Templates").
		Where("script_id = ? AND process_id IS NULL", id).
		Find(&profiles).Error
}

// ValidProfiles filters the script's declared profiles to
// those the folder's files could satisfy: every required
// template has at least one matching file and no unique
// template matches more than one.
func (s *scriptService) ValidProfiles(scriptID uuid.UUID, processFolder string) ([]models.Profile, error) {
	profiles, err := s.Profiles(scriptID)
	if err != nil {
		return nil, err
	}

	entries, err := s.lister.List(processFolder)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list folder")
	}

	valid := make([]models.Profile, 0, len(profiles))
	for i := range profiles {
		if satisfiable(&profiles[i], entries) {
			valid = append(valid, profiles[i])
		}
	}

	return valid, nil
}

func satisfiable(p *models.Profile, entries []string) bool {
	for i := range p.Templates {
		t := &p.Templates[i]
		matches := t.MatchingFiles(entries)

		if !t.Optional && len(matches) == 0 {
			return false
		}
		if t.Unique && len(matches) > 1 {
			return false
		}
	}

	return true
}

func (s *scriptService) CreatePipeline(req *PipelineRequest) (*models.Pipeline, error) {
	p := &models.Pipeline{
		ID:          uuid.New(),
		Name:        req.Name,
		FAScriptID:  req.FAScriptID,
		G2PScriptID: req.G2PScriptID,
	}

	return p, s.db.WithContext(s.ctx).Create(p).Error
}

func (s *scriptService) GetPipeline(id uuid.UUID) (*models.Pipeline, error) {
	p := &models.Pipeline{}

	return p, s.db.WithContext(s.ctx).
		Preload("FAScript").
		Preload("G2PScript").
		First(p, "id = ?", id).Error
}

func (s *scriptService) ListPipelines() ([]models.Pipeline, error) {
	pipelines := make([]models.Pipeline, 0)

	return pipelines, s.db.WithContext(s.ctx).
		Preload("FAScript").
		Preload("G2PScript").
		Order("name").
		Find(&pipelines).Error
}

func (s *scriptService) DeletePipeline(id uuid.UUID) error {
	return s.db.WithContext(s.ctx).Delete(&models.Pipeline{}, "id = ?", id).Error
}
