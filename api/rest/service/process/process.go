// Package process drives the lifecycle of one remote job
// run: upload, execution, polling, and result retrieval,
// with recovery on failure.
//
// The state machine is
//
//	created -> uploading -> running -> waiting ->
//	downloading -> finished
//
// with diversions to error and error_download. Terminal
// error states are recoverable through Cleanup, which
// resets a process to created for retry instead of
// deleting it.
package process

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/equestria-cloud/equestria/internal/folder"
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/equestria-cloud/equestria/pkg/archive"
	"github.com/equestria-cloud/equestria/pkg/clam"
	"github.com/equestria-cloud/equestria/pkg/db"
	"github.com/equestria-cloud/equestria/pkg/env"
	"github.com/equestria-cloud/equestria/pkg/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ClamTimeLayout is the fixed timestamp format of remote
// log entries.
const ClamTimeLayout = "02/Jan/2006 15:04:05"

// Clients builds a CLAM client for a script's endpoint.
type Clients func(*models.Script) clam.Client

// DefaultClients dials the script's configured hostname
// with its stored credentials.
func DefaultClients(s *models.Script) clam.Client {
	return clam.New(s.Hostname, s.Username, s.Password)
}

type Process interface {
	WithDatabase(*gorm.DB) Process
	WithClients(Clients) Process
	WithLister(folder.Lister) Process
	Create(scriptID uuid.UUID, processFolder string) (*models.Process, error)
	Get(uuid.UUID) (*models.Process, error)
	Profiles(uuid.UUID) ([]models.Profile, error)
	Logs(uuid.UUID) ([]models.LogMessage, error)
	ListByStatus(...models.ProcessStatus) ([]models.Process, error)
	Start(id, profileID uuid.UUID, parameters map[string]interface{}) (bool, error)
	StartSafe(id, profileID uuid.UUID, parameters map[string]interface{}) (bool, error)
	ClamUpdate(uuid.UUID) bool
	DownloadAndDelete(uuid.UUID) bool
	Cleanup(id uuid.UUID, target models.ProcessStatus) error
	IngestLogXML(id uuid.UUID, data []byte) error
}

type processService struct {
	ctx     context.Context
	db      *gorm.DB
	clients Clients
	lister  folder.Lister
	tz      *time.Location
}

func Service(ctx context.Context) Process {
	return &processService{
		ctx:     ctx,
		db:      db.Connection(),
		clients: DefaultClients,
		lister:  folder.OS{},
		tz:      timezone(),
	}
}

func timezone() *time.Location {
	loc, err := time.LoadLocation(env.Variables().Timezone)
	if err != nil {
		log.Warn("invalid timezone, falling back to UTC",
			"timezone", env.Variables().Timezone)
		return time.UTC
	}
	return loc
}

func (s *processService) WithDatabase(conn *gorm.DB) Process {
	s.db = conn
	return s
}

func (s *processService) WithClients(c Clients) Process {
	s.clients = c
	return s
}

func (s *processService) WithLister(l folder.Lister) Process {
	s.lister = l
	return s
}

// Create is the factory for a process aggregate: a row in
// the created state plus this process's own copy of the
// script's declared profiles and input templates.
func (s *processService) Create(scriptID uuid.UUID, processFolder string) (*models.Process, error) {
	var (
		q = s.db.WithContext(s.ctx)
		p = &models.Process{
			ID:       uuid.New(),
			ScriptID: &scriptID,
			Status:   models.StatusCreated,
			Folder:   processFolder,
		}
	)

	err := q.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}

		var declared []models.Profile
		if err := tx.
			Preload("Templates").
			Where("script_id = ? AND process_id IS NULL", scriptID).
			Find(&declared).Error; err != nil {
			return err
		}

		for i := range declared {
			copy := models.Profile{
				ID:              uuid.New(),
				ScriptID:        declared[i].ScriptID,
				ProcessID:       &p.ID,
				SourceProfileID: &declared[i].ID,
			}

			for _, t := range declared[i].Templates {
				t.ID = uuid.New()
				t.ProfileID = copy.ID
				copy.Templates = append(copy.Templates, t)
			}

			if err := tx.Create(&copy).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

func (s *processService) Get(id uuid.UUID) (*models.Process, error) {
	var (
		p = &models.Process{}
		q = s.db.WithContext(s.ctx)
	)

	return p, q.Preload("Script").First(p, "id = ?", id).Error
}

func (s *processService) Profiles(id uuid.UUID) ([]models.Profile, error) {
	var (
		profiles []models.Profile
		q        = s.db.WithContext(s.ctx)
	)

	return profiles, q.
		Preload("Templates").
		Where("process_id = ?", id).
		Find(&profiles).Error
}

// Logs returns a process's log messages in chronological
// order. Ordering is by the reconstructed sequence index,
// never by insertion order.
func (s *processService) Logs(id uuid.UUID) ([]models.LogMessage, error) {
	var (
		messages []models.LogMessage
		q        = s.db.WithContext(s.ctx)
	)

	return messages, q.
		Where("process_id = ?", id).
		Order("sequence").
		Find(&messages).Error
}

func (s *processService) ListByStatus(statuses ...models.ProcessStatus) ([]models.Process, error) {
	var (
		processes []models.Process
		q         = s.db.WithContext(s.ctx)
	)

	return processes, q.
		Preload("Script").
		Where("status IN ?", statuses).
		Find(&processes).Error
}

// Start validates the profile's templates against the
// process folder, allocates a remote job, uploads every
// matching file, and starts remote execution. It returns
// false without side effects when the process is not in
// the created state. Template violations surface as
// *ValidationError before any remote call; remote failures
// as *RemoteError.
func (s *processService) Start(id, profileID uuid.UUID, parameters map[string]interface{}) (bool, error) {
	mu := lockProcess(id)
	mu.Lock()
	defer mu.Unlock()

	return s.start(id, profileID, parameters)
}

// StartSafe wraps Start: any failure triggers cleanup back
// to the created state before the original error is
// returned, so the process is never left stuck in a
// partial uploading state.
func (s *processService) StartSafe(id, profileID uuid.UUID, parameters map[string]interface{}) (bool, error) {
	mu := lockProcess(id)
	mu.Lock()
	defer mu.Unlock()

	started, err := s.start(id, profileID, parameters)
	if err != nil {
		p, getErr := s.Get(id)
		if getErr != nil {
			log.Error("failed to load process for cleanup",
				"process_id", id, "error", getErr)
			return false, err
		}

		if cleanupErr := s.cleanup(p, models.StatusCreated); cleanupErr != nil {
			log.Error("cleanup after failed start failed",
				"process_id", id, "error", cleanupErr)
		}

		return false, err
	}

	return started, nil
}

func (s *processService) start(id, profileID uuid.UUID, parameters map[string]interface{}) (bool, error) {
	p, err := s.Get(id)
	if err != nil {
		return false, err
	}

	if p.Status != models.StatusCreated {
		return false, nil
	}

	if p.Script == nil {
		// orphaned by script deletion, inert
		return false, nil
	}

	var profile models.Profile
	if err = s.db.WithContext(s.ctx).
		Preload("Templates").
		First(&profile, "id = ? AND process_id = ?", profileID, id).Error; err != nil {
		return false, errors.Wrap(err, "profile does not belong to process")
	}

	entries, err := s.lister.List(p.Folder)
	if err != nil {
		return false, errors.Wrap(err, "failed to list process folder")
	}

	uploads, err := bindTemplates(profile.Templates, entries)
	if err != nil {
		return false, err
	}

	p.Status = models.StatusUploading
	clamID := randomClamID()
	p.ClamID = &clamID
	p.Parameters = datatypes.JSONMap(parameters)
	if err = s.save(p); err != nil {
		return false, err
	}

	client := s.clients(p.Script)

	if err = client.Create(s.ctx, clamID); err != nil {
		return false, &RemoteError{Op: "create", Err: err}
	}

	for _, u := range uploads {
		if err = client.UploadInput(s.ctx, clamID, u.templateID, filepath.Join(p.Folder, u.name)); err != nil {
			return false, &RemoteError{Op: "upload", Err: err}
		}
	}

	if err = client.Start(s.ctx, clamID, parameters); err != nil {
		return false, &RemoteError{Op: "start", Err: err}
	}

	p.Status = models.StatusRunning
	if err = s.save(p); err != nil {
		return false, err
	}

	log.Info("process started",
		"process_id", p.ID, "clam_id", clamID, "profile_id", profileID)

	return true, nil
}

type upload struct {
	templateID string
	name       string // relative to the process folder
}

// bindTemplates resolves every template of a profile to
// the folder entries it will upload. Required templates
// must match at least one file; unique templates at most
// one.
func bindTemplates(templates []models.InputTemplate, entries []string) ([]upload, error) {
	uploads := make([]upload, 0, len(entries))

	for i := range templates {
		t := &templates[i]
		matches := t.MatchingFiles(entries)

		if len(matches) == 0 {
			if t.Optional {
				continue
			}
			return nil, &ValidationError{
				Template: t.String(),
				Reason:   "no matching file",
			}
		}

		if len(matches) > 1 && t.Unique {
			return nil, &ValidationError{
				Template: t.String(),
				Reason:   "more than one matching file",
			}
		}

		for _, name := range matches {
			uploads = append(uploads, upload{templateID: t.TemplateID, name: name})
		}
	}

	return uploads, nil
}

// ClamUpdate polls the remote job of a running process,
// merges new log lines, and advances to waiting when the
// remote reports completion. It returns false when the
// process is not running or the remote is unreachable;
// status stays untouched in both cases so the next
// scheduled poll retries. It never raises.
func (s *processService) ClamUpdate(id uuid.UUID) bool {
	mu := lockProcess(id)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.Get(id)
	if err != nil {
		log.Error("failed to load process", "process_id", id, "error", err)
		return false
	}

	if p.Status != models.StatusRunning || p.Script == nil || p.ClamID == nil {
		return false
	}

	doc, err := s.clients(p.Script).Status(s.ctx, *p.ClamID)
	if err != nil {
		log.Error("clam status poll failed",
			"process_id", id, "clam_id", *p.ClamID, "error", err)
		return false
	}

	if err = s.ingestLogXML(p, doc.XML); err != nil {
		log.Error("failed to parse clam log xml",
			"process_id", id, "error", err)
	}

	if doc.Done() {
		p.Status = models.StatusWaiting
		if err = s.save(p); err != nil {
			log.Error("failed to persist status",
				"process_id", id, "error", err)
			return false
		}

		log.Info("remote job done, waiting for download",
			"process_id", id, "clam_id", *p.ClamID)
	}

	return true
}

// DownloadAndDelete fetches the result archive of a
// waiting process, unpacks it into the process folder, and
// deletes the remote job. Failure parks the process in
// error_download with the remote identifier preserved so
// the download can be retried.
func (s *processService) DownloadAndDelete(id uuid.UUID) bool {
	mu := lockProcess(id)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.Get(id)
	if err != nil {
		log.Error("failed to load process", "process_id", id, "error", err)
		return false
	}

	if p.Status != models.StatusWaiting && p.Status != models.StatusErrorDownload {
		return false
	}

	p.Status = models.StatusDownloading
	if err = s.save(p); err != nil {
		log.Error("failed to persist status", "process_id", id, "error", err)
		return false
	}

	if !s.downloadArchiveAndDecompress(p) {
		p.Status = models.StatusErrorDownload
		if err = s.save(p); err != nil {
			log.Error("failed to persist status", "process_id", id, "error", err)
		}
		return false
	}

	if err = s.cleanup(p, models.StatusFinished); err != nil {
		log.Error("failed to finalize process", "process_id", id, "error", err)
		return false
	}

	return true
}

func (s *processService) downloadArchiveAndDecompress(p *models.Process) bool {
	if p.Script == nil || p.ClamID == nil {
		return false
	}

	output := p.OutputFolder()
	if err := os.MkdirAll(output, 0o755); err != nil {
		log.Error("failed to create output folder",
			"process_id", p.ID, "folder", output, "error", err)
		return false
	}

	dest := filepath.Join(output, *p.ClamID+".zip")

	if err := s.clients(p.Script).DownloadArchive(s.ctx, *p.ClamID, "zip", dest); err != nil {
		log.Error("clam archive download failed",
			"process_id", p.ID, "clam_id", *p.ClamID, "error", err)
		return false
	}

	if err := archive.Unzip(dest, output); err != nil {
		log.Error("failed to decompress result archive",
			"process_id", p.ID, "archive", dest, "error", err)
		return false
	}

	if err := os.Remove(dest); err != nil {
		log.Warn("failed to remove downloaded archive",
			"process_id", p.ID, "archive", dest, "error", err)
	}

	return true
}

// Cleanup best-effort deletes the remote job, clears the
// remote identifier, and sets the process status to
// target. Remote failures are logged, never returned:
// cleanup is the guaranteed-safe reset path.
func (s *processService) Cleanup(id uuid.UUID, target models.ProcessStatus) error {
	mu := lockProcess(id)
	mu.Lock()
	defer mu.Unlock()

	p, err := s.Get(id)
	if err != nil {
		return err
	}

	return s.cleanup(p, target)
}

func (s *processService) cleanup(p *models.Process, target models.ProcessStatus) error {
	if p.ClamID != nil && p.Script != nil {
		if err := s.clients(p.Script).Delete(s.ctx, *p.ClamID); err != nil {
			log.Error("failed to delete remote job",
				"process_id", p.ID, "clam_id", *p.ClamID, "error", err)
		}
	}

	p.ClamID = nil
	p.Status = target

	return s.save(p)
}

func (s *processService) save(p *models.Process) error {
	return s.db.WithContext(s.ctx).Omit(clause.Associations).Save(p).Error
}

// IngestLogXML merges the log entries of a status document
// into the process's log. Unlike the polling path, parse
// errors are returned to the caller.
func (s *processService) IngestLogXML(id uuid.UUID, data []byte) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}

	return s.ingestLogXML(p, data)
}

// ingestLogXML walks the document's log entries in reverse
// so index 0 is the chronologically earliest line, then
// inserts each (time, message, index) tuple only when no
// identical row exists for the process. Repeated polls of
// a growing log are therefore idempotent.
func (s *processService) ingestLogXML(p *models.Process, data []byte) error {
	doc, err := clam.ParseStatus(data)
	if err != nil {
		return err
	}

	q := s.db.WithContext(s.ctx)

	for i := range doc.Logs {
		var (
			entry = doc.Logs[len(doc.Logs)-1-i]
			at    = s.ParseClamTime(entry.Time)
		)

		dup := q.Model(&models.LogMessage{}).
			Where("process_id = ? AND message = ? AND sequence = ?",
				p.ID, entry.Message, i)
		if at != nil {
			dup = dup.Where("time = ?", *at)
		} else {
			dup = dup.Where("time IS NULL")
		}

		var count int64
		if err = dup.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		message := &models.LogMessage{
			ID:        uuid.New(),
			ProcessID: p.ID,
			Time:      at,
			Message:   entry.Message,
			Index:     i,
		}
		if err = q.Create(message).Error; err != nil {
			return err
		}
	}

	return nil
}

// ParseClamTime parses a remote log timestamp in the
// configured timezone. Unparseable timestamps yield nil
// rather than failing the batch.
func (s *processService) ParseClamTime(value string) *time.Time {
	at, err := time.ParseInLocation(ClamTimeLayout, value, s.tz)
	if err != nil {
		return nil
	}
	return &at
}

func randomClamID() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
