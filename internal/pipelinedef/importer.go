// Package pipelinedef persists declarative pipeline
// documents: the scripts they name, their declared
// profiles, and the pipeline record pairing them.
package pipelinedef

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/equestria-cloud/equestria/internal/models"
	schema "github.com/equestria-cloud/equestria/pkg/pipelinedef"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrDuplicatePipeline = errors.New("pipeline name already exists")

const definitionPattern = "*.{yaml,yml}"

// Importer coordinates persistence of pipeline definitions.
type Importer struct {
	db *gorm.DB
}

// NewImporter creates a new importer. The provided db connection must be non-nil.
func NewImporter(dbConn *gorm.DB) *Importer {
	if dbConn == nil {
		panic("pipelinedef importer requires a database connection")
	}
	return &Importer{db: dbConn}
}

// Apply persists the provided definition and returns the created pipeline
// record. Scripts already registered under the same name and hostname are
// reused, so two pipelines can share an endpoint.
func (i *Importer) Apply(ctx context.Context, def *schema.Definition) (*models.Pipeline, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	var result *models.Pipeline
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		name := def.Metadata.Name

		var count int64
		if err := tx.Model(&models.Pipeline{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicatePipeline, name)
		}

		fa, err := i.findOrCreateScript(tx, &def.ForcedAlignment)
		if err != nil {
			return err
		}

		g2p, err := i.findOrCreateScript(tx, &def.GraphemeToPhoneme)
		if err != nil {
			return err
		}

		pipeline := &models.Pipeline{
			ID:          uuid.New(),
			Name:        name,
			FAScriptID:  fa.ID,
			G2PScriptID: g2p.ID,
		}

		if err := tx.Create(pipeline).Error; err != nil {
			return err
		}

		result = pipeline
		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// ApplyPath applies the definition file at path, or every
// definition file directly inside path when it is a
// directory. Already-applied pipelines are skipped.
func (i *Importer) ApplyPath(ctx context.Context, path string) ([]models.Pipeline, error) {
	files, err := definitionFiles(path)
	if err != nil {
		return nil, err
	}

	applied := make([]models.Pipeline, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return applied, err
		}

		def, err := schema.Parse(data)
		if err != nil {
			return applied, errors.Wrapf(err, "invalid pipeline definition %v", file)
		}

		pipeline, err := i.Apply(ctx, def)
		if errors.Is(err, ErrDuplicatePipeline) {
			continue
		}
		if err != nil {
			return applied, err
		}

		applied = append(applied, *pipeline)
	}

	return applied, nil
}

func (i *Importer) findOrCreateScript(tx *gorm.DB, spec *schema.ScriptSpec) (*models.Script, error) {
	existing := &models.Script{}
	err := tx.First(existing, "name = ? AND hostname = ?", spec.Name, spec.Hostname).Error
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	script := &models.Script{
		ID:          uuid.New(),
		Name:        spec.Name,
		Hostname:    spec.Hostname,
		Description: spec.Description,
		Username:    spec.Username,
		Password:    spec.Password,
	}

	if err := tx.Create(script).Error; err != nil {
		return nil, err
	}

	for _, p := range spec.Profiles {
		profile := models.Profile{
			ID:       uuid.New(),
			ScriptID: &script.ID,
		}

		for _, t := range p.Templates {
			profile.Templates = append(profile.Templates, models.InputTemplate{
				ID:            uuid.New(),
				ProfileID:     profile.ID,
				TemplateID:    t.ID,
				Format:        t.Format,
				Label:         t.Label,
				Extension:     t.Extension,
				Optional:      t.Optional,
				Unique:        t.Unique,
				AcceptArchive: t.AcceptArchive,
			})
		}

		if err := tx.Create(&profile).Error; err != nil {
			return nil, err
		}
	}

	return script, nil
}

func definitionFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ok, err := doublestar.Match(definitionPattern, entry.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}

	return files, nil
}
