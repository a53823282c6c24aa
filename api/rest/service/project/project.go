// Package project manages a user's unit of work: its
// folder, its two-step pipeline (forced alignment then
// grapheme-to-phoneme conversion), and the single process
// allowed to run against the folder at a time.
package project

import (
	"context"
	"os"
	"path/filepath"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/process"
	"github.com/equestria-cloud/equestria/internal/folder"
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/equestria-cloud/equestria/pkg/archive"
	"github.com/equestria-cloud/equestria/pkg/db"
	"github.com/equestria-cloud/equestria/pkg/env"
	"github.com/equestria-cloud/equestria/pkg/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultOOVDictName = "default.oov.dict"

var (
	// ErrProjectExists is returned when a user already has
	// a project by the requested name.
	ErrProjectExists = errors.New("project name already taken for user")
	// ErrFolderExists is returned when the project folder
	// unexpectedly pre-exists.
	ErrFolderExists = errors.New("project folder already exists")
	// ErrProjectBusy is returned when a new process is
	// requested while another is still in flight.
	ErrProjectBusy = errors.New("project already has an active process")
	// ErrProfileMismatch is returned when the chosen
	// profile does not belong to the script being started.
	ErrProfileMismatch = errors.New("profile does not belong to script")
	// ErrUnknownScript is returned when the current
	// process's script is neither pipeline script.
	ErrUnknownScript = errors.New("current process script is not part of the pipeline")
)

type Project interface {
	WithDatabase(*gorm.DB) Project
	WithLister(folder.Lister) Project
	WithProcesses(psvc.Process) Project
	Create(name, userID string, pipelineID uuid.UUID) (*models.Project, error)
	Get(uuid.UUID) (*models.Project, error)
	List(userID string) ([]models.Project, error)
	Delete(uuid.UUID) error
	NextStep(*models.Project) (models.ProjectStep, error)
	CanUpload(*models.Project) bool
	CanStartNewProcess(*models.Project) bool
	StartFA(id, profileID uuid.UUID, parameters map[string]interface{}) (*models.Process, error)
	StartG2P(id, profileID uuid.UUID, parameters map[string]interface{}) (*models.Process, error)
	Detach(uuid.UUID) error
	OOVDictPath(*models.Project) (string, error)
	ReadOOVDict(*models.Project) (string, error)
	WriteOOVDict(*models.Project, string) error
	CreateArchive(*models.Project) (string, error)
}

type projectService struct {
	ctx        context.Context
	db         *gorm.DB
	lister     folder.Lister
	processes  psvc.Process
	dataFolder string
}

func Service(ctx context.Context) Project {
	return &projectService{
		ctx:        ctx,
		db:         db.Connection(),
		lister:     folder.OS{},
		processes:  psvc.Service(ctx),
		dataFolder: env.Variables().DataFolder,
	}
}

func (s *projectService) WithDatabase(conn *gorm.DB) Project {
	s.db = conn
	return s
}

func (s *projectService) WithLister(l folder.Lister) Project {
	s.lister = l
	return s
}

func (s *projectService) WithProcesses(p psvc.Process) Project {
	s.processes = p
	return s
}

// Create reserves the (name, user) pair and creates the
// project folder, which must not pre-exist. The folder is
// owned exclusively by the project from here on.
func (s *projectService) Create(name, userID string, pipelineID uuid.UUID) (*models.Project, error) {
	var (
		q     = s.db.WithContext(s.ctx)
		count int64
	)

	if err := q.Model(&models.Project{}).
		Where("name = ? AND user_id = ?", name, userID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.Wrapf(ErrProjectExists, "%v/%v", userID, name)
	}

	projectFolder := filepath.Join(s.dataFolder, userID, name)
	if _, err := os.Stat(projectFolder); err == nil {
		return nil, errors.Wrap(ErrFolderExists, projectFolder)
	}

	if err := os.MkdirAll(projectFolder, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create project folder")
	}

	p := &models.Project{
		ID:         uuid.New(),
		Name:       name,
		UserID:     userID,
		Folder:     projectFolder,
		PipelineID: pipelineID,
	}

	if err := q.Create(p).Error; err != nil {
		os.RemoveAll(projectFolder)
		return nil, err
	}

	log.Info("project created",
		"project_id", p.ID, "user", userID, "folder", projectFolder)

	return p, nil
}

func (s *projectService) Get(id uuid.UUID) (*models.Project, error) {
	var (
		p = &models.Project{}
		q = s.db.WithContext(s.ctx)
	)

	return p, q.
		Preload("Pipeline").
		Preload("CurrentProcess").
		Preload("CurrentProcess.Script").
		First(p, "id = ?", id).Error
}

func (s *projectService) List(userID string) ([]models.Project, error) {
	var (
		projects = make([]models.Project, 0)
		q        = s.db.WithContext(s.ctx)
	)

	return projects, q.
		Preload("Pipeline").
		Preload("CurrentProcess").
		Where("user_id = ?", userID).
		Order("name").
		Find(&projects).Error
}

// Delete removes the project folder and then the record.
// Process history is kept; the current process reference
// nulls out through the schema.
func (s *projectService) Delete(id uuid.UUID) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}

	if err = os.RemoveAll(p.Folder); err != nil {
		return errors.Wrap(err, "failed to remove project folder")
	}

	return s.db.WithContext(s.ctx).Delete(&models.Project{}, "id = ?", id).Error
}

// NextStep derives the workflow stage from the folder
// contents and the current process. Nothing is persisted:
// re-deriving on every read keeps the stage from diverging
// from reality.
func (s *projectService) NextStep(p *models.Project) (models.ProjectStep, error) {
	if p.Pipeline == nil {
		return "", errors.New("project pipeline not loaded")
	}

	cp := p.CurrentProcess

	if cp != nil && !cp.Status.Idle() {
		switch {
		case cp.ScriptID != nil && *cp.ScriptID == p.Pipeline.FAScriptID:
			return models.StepFARunning, nil
		case cp.ScriptID != nil && *cp.ScriptID == p.Pipeline.G2PScriptID:
			return models.StepG2PRunning, nil
		default:
			return "", ErrUnknownScript
		}
	}

	if cp != nil &&
		cp.Status == models.StatusFinished &&
		cp.ScriptID != nil &&
		*cp.ScriptID == p.Pipeline.G2PScriptID {
		return models.StepFinished, nil
	}

	aligned, err := folder.HasNonEmptyMatching(s.lister, p.Folder, "*.ctm")
	if err != nil {
		return "", errors.Wrap(err, "failed to inspect project folder")
	}

	if aligned {
		return models.StepCheckDictionary, nil
	}

	return models.StepUploading, nil
}

// CanUpload gates folder mutation: uploads are allowed
// only while no remote job could be reading the folder.
func (s *projectService) CanUpload(p *models.Project) bool {
	return p.CurrentProcess == nil || p.CurrentProcess.Status.Idle()
}

func (s *projectService) CanStartNewProcess(p *models.Project) bool {
	return p.CurrentProcess == nil || p.CurrentProcess.Status.Idle()
}

func (s *projectService) StartFA(id, profileID uuid.UUID, parameters map[string]interface{}) (*models.Process, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.startScript(p, p.Pipeline.FAScriptID, profileID, parameters)
}

func (s *projectService) StartG2P(id, profileID uuid.UUID, parameters map[string]interface{}) (*models.Process, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.startScript(p, p.Pipeline.G2PScriptID, profileID, parameters)
}

// startScript creates a fresh process for the script,
// attaches it as the project's current process, and starts
// it through the safe path. On failure the process is
// detached again so the project returns to a startable
// state.
func (s *projectService) startScript(p *models.Project, scriptID, profileID uuid.UUID, parameters map[string]interface{}) (*models.Process, error) {
	if !s.CanStartNewProcess(p) {
		return nil, ErrProjectBusy
	}

	var declared models.Profile
	if err := s.db.WithContext(s.ctx).
		First(&declared, "id = ?", profileID).Error; err != nil {
		return nil, err
	}
	if declared.ScriptID == nil || *declared.ScriptID != scriptID {
		return nil, ErrProfileMismatch
	}

	proc, err := s.processes.Create(scriptID, p.Folder)
	if err != nil {
		return nil, err
	}

	p.CurrentProcessID = &proc.ID
	if err = s.save(p); err != nil {
		return nil, err
	}

	var pinned models.Profile
	if err = s.db.WithContext(s.ctx).
		First(&pinned, "process_id = ? AND source_profile_id = ?", proc.ID, profileID).Error; err != nil {
		return nil, err
	}

	if _, err = s.processes.StartSafe(proc.ID, pinned.ID, parameters); err != nil {
		if detachErr := s.Detach(p.ID); detachErr != nil {
			log.Error("failed to detach process after failed start",
				"project_id", p.ID, "error", detachErr)
		}
		return nil, err
	}

	return s.processes.Get(proc.ID)
}

// Detach clears the current process reference, returning
// the project to a clean state. The process row survives
// for reuse and history.
func (s *projectService) Detach(id uuid.UUID) error {
	return s.db.WithContext(s.ctx).
		Model(&models.Project{}).
		Where("id = ?", id).
		Update("current_process_id", nil).Error
}

// OOVDictPath returns the path of the project's
// out-of-vocabulary dictionary, or "" when none exists.
func (s *projectService) OOVDictPath(p *models.Project) (string, error) {
	matches, err := folder.ListMatching(s.lister, p.Folder, "*.oov.dict")
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return "", nil
	}

	return filepath.Join(p.Folder, matches[0]), nil
}

func (s *projectService) ReadOOVDict(p *models.Project) (string, error) {
	path, err := s.OOVDictPath(p)
	if err != nil || path == "" {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func (s *projectService) WriteOOVDict(p *models.Project, content string) error {
	path, err := s.OOVDictPath(p)
	if err != nil {
		return err
	}

	if path == "" {
		path = filepath.Join(p.Folder, defaultOOVDictName)
	}

	return os.WriteFile(path, []byte(content), 0o644)
}

// CreateArchive zips the project folder for download and
// returns the archive path.
func (s *projectService) CreateArchive(p *models.Project) (string, error) {
	dest := filepath.Join(p.Folder, filepath.Base(p.Folder)+".zip")
	return dest, archive.Zip(p.Folder, dest)
}

func (s *projectService) save(p *models.Project) error {
	return s.db.WithContext(s.ctx).Omit(clause.Associations).Save(p).Error
}
