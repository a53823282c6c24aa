package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	psvc "github.com/equestria-cloud/equestria/api/rest/service/process"
	"github.com/equestria-cloud/equestria/internal/folder"
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/equestria-cloud/equestria/pkg/db"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%v?mode=memory&cache=shared", t.Name())

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	return gdb
}

// fakeProcesses is a stand-in for the process service that
// still honours the create-pins-profiles contract, so the
// pinned-profile lookup in startScript has rows to find.
type fakeProcesses struct {
	db             *gorm.DB
	startErr       error
	startedProcess uuid.UUID
	startedProfile uuid.UUID
	startCalls     int
}

func (f *fakeProcesses) WithDatabase(*gorm.DB) psvc.Process    { return f }
func (f *fakeProcesses) WithClients(psvc.Clients) psvc.Process { return f }
func (f *fakeProcesses) WithLister(folder.Lister) psvc.Process { return f }

func (f *fakeProcesses) Create(scriptID uuid.UUID, processFolder string) (*models.Process, error) {
	p := &models.Process{
		ID:       uuid.New(),
		ScriptID: &scriptID,
		Status:   models.StatusCreated,
		Folder:   processFolder,
	}

	if err := f.db.Create(p).Error; err != nil {
		return nil, err
	}

	var declared []models.Profile
	if err := f.db.
		Where("script_id = ? AND process_id IS NULL", scriptID).
		Find(&declared).Error; err != nil {
		return nil, err
	}

	for i := range declared {
		pinned := models.Profile{
			ID:              uuid.New(),
			ScriptID:        declared[i].ScriptID,
			ProcessID:       &p.ID,
			SourceProfileID: &declared[i].ID,
		}
		if err := f.db.Create(&pinned).Error; err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (f *fakeProcesses) Get(id uuid.UUID) (*models.Process, error) {
	p := &models.Process{}
	return p, f.db.Preload("Script").First(p, "id = ?", id).Error
}

func (f *fakeProcesses) StartSafe(id, profileID uuid.UUID, _ map[string]interface{}) (bool, error) {
	f.startCalls++
	f.startedProcess = id
	f.startedProfile = profileID

	if f.startErr != nil {
		return false, f.startErr
	}

	return true, f.db.Model(&models.Process{}).
		Where("id = ?", id).
		Update("status", models.StatusRunning).Error
}

func (f *fakeProcesses) Profiles(uuid.UUID) ([]models.Profile, error)    { return nil, nil }
func (f *fakeProcesses) Logs(uuid.UUID) ([]models.LogMessage, error)     { return nil, nil }
func (f *fakeProcesses) ListByStatus(...models.ProcessStatus) ([]models.Process, error) {
	return nil, nil
}
func (f *fakeProcesses) Start(uuid.UUID, uuid.UUID, map[string]interface{}) (bool, error) {
	return false, nil
}
func (f *fakeProcesses) ClamUpdate(uuid.UUID) bool                           { return false }
func (f *fakeProcesses) DownloadAndDelete(uuid.UUID) bool                    { return false }
func (f *fakeProcesses) Cleanup(uuid.UUID, models.ProcessStatus) error       { return nil }
func (f *fakeProcesses) IngestLogXML(uuid.UUID, []byte) error                { return nil }

type fixture struct {
	svc        *projectService
	processes  *fakeProcesses
	db         *gorm.DB
	pipeline   *models.Pipeline
	faProfile  uuid.UUID
	g2pProfile uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb := openTestDB(t)

	fa := &models.Script{ID: uuid.New(), Name: "forced-alignment", Hostname: "https://fa.example"}
	g2p := &models.Script{ID: uuid.New(), Name: "g2p", Hostname: "https://g2p.example"}
	require.NoError(t, gdb.Create(fa).Error)
	require.NoError(t, gdb.Create(g2p).Error)

	faProfile := &models.Profile{ID: uuid.New(), ScriptID: &fa.ID}
	g2pProfile := &models.Profile{ID: uuid.New(), ScriptID: &g2p.ID}
	require.NoError(t, gdb.Create(faProfile).Error)
	require.NoError(t, gdb.Create(g2pProfile).Error)

	pipeline := &models.Pipeline{
		ID:          uuid.New(),
		Name:        "dutch",
		FAScriptID:  fa.ID,
		G2PScriptID: g2p.ID,
	}
	require.NoError(t, gdb.Create(pipeline).Error)

	processes := &fakeProcesses{db: gdb}

	svc := &projectService{
		ctx:        context.Background(),
		db:         gdb,
		lister:     folder.OS{},
		processes:  processes,
		dataFolder: t.TempDir(),
	}

	return &fixture{
		svc:        svc,
		processes:  processes,
		db:         gdb,
		pipeline:   pipeline,
		faProfile:  faProfile.ID,
		g2pProfile: g2pProfile.ID,
	}
}

func TestCreateMakesFolder(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(f.svc.dataFolder, "alice", "thesis"), p.Folder)

	info, err := os.Stat(p.Folder)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestCreateRejectsDuplicateNamePerUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	_, err = f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.ErrorIs(t, err, ErrProjectExists)

	// Another user may reuse the name.
	_, err = f.svc.Create("thesis", "bob", f.pipeline.ID)
	require.NoError(t, err)
}

func TestCreateRejectsExistingFolder(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, os.MkdirAll(filepath.Join(f.svc.dataFolder, "alice", "thesis"), 0o755))

	_, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.ErrorIs(t, err, ErrFolderExists)
}

func TestNextStepFreshProject(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	p, err = f.svc.Get(p.ID)
	require.NoError(t, err)

	step, err := f.svc.NextStep(p)
	require.NoError(t, err)
	require.Equal(t, models.StepUploading, step)
}

func TestNextStepCheckDictionary(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(p.Folder, "speech.ctm"), []byte("aligned"), 0o644))

	p, err = f.svc.Get(p.ID)
	require.NoError(t, err)

	step, err := f.svc.NextStep(p)
	require.NoError(t, err)
	require.Equal(t, models.StepCheckDictionary, step)
}

func TestNextStepEmptyAlignmentDoesNotCount(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(p.Folder, "speech.ctm"), nil, 0o644))

	p, err = f.svc.Get(p.ID)
	require.NoError(t, err)

	step, err := f.svc.NextStep(p)
	require.NoError(t, err)
	require.Equal(t, models.StepUploading, step)
}

func attachProcess(t *testing.T, f *fixture, p *models.Project, scriptID uuid.UUID, status models.ProcessStatus) {
	t.Helper()

	proc := &models.Process{
		ID:       uuid.New(),
		ScriptID: &scriptID,
		Status:   status,
		Folder:   p.Folder,
	}
	require.NoError(t, f.db.Create(proc).Error)
	require.NoError(t, f.db.Model(&models.Project{}).
		Where("id = ?", p.ID).
		Update("current_process_id", proc.ID).Error)
}

func TestNextStepWhileRunning(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	attachProcess(t, f, p, f.pipeline.FAScriptID, models.StatusRunning)

	p, err = f.svc.Get(p.ID)
	require.NoError(t, err)

	step, err := f.svc.NextStep(p)
	require.NoError(t, err)
	require.Equal(t, models.StepFARunning, step)

	require.NoError(t, f.svc.Detach(p.ID))
	attachProcess(t, f, p, f.pipeline.G2PScriptID, models.StatusWaiting)

	p, err = f.svc.Get(p.ID)
	require.NoError(t, err)

	step, err = f.svc.NextStep(p)
	require.NoError(t, err)
	require.Equal(t, models.StepG2PRunning, step)
}

func TestNextStepFinished(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	attachProcess(t, f, p, f.pipeline.G2PScriptID, models.StatusFinished)

	p, err = f.svc.Get(p.ID)
	require.NoError(t, err)

	step, err := f.svc.NextStep(p)
	require.NoError(t, err)
	require.Equal(t, models.StepFinished, step)
}

func TestNextStepForeignScript(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	stray := &models.Script{ID: uuid.New(), Name: "stray", Hostname: "https://stray.example"}
	require.NoError(t, f.db.Create(stray).Error)
	attachProcess(t, f, p, stray.ID, models.StatusRunning)

	p, err = f.svc.Get(p.ID)
	require.NoError(t, err)

	_, err = f.svc.NextStep(p)
	require.ErrorIs(t, err, ErrUnknownScript)
}

func TestStartFAPinsProfileAndAttaches(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	proc, err := f.svc.StartFA(p.ID, f.faProfile, map[string]interface{}{"language": "nl"})
	require.NoError(t, err)
	require.Equal(t, f.pipeline.FAScriptID, *proc.ScriptID)

	// The started profile is the pinned copy, not the
	// declared one handed in by the caller.
	require.Equal(t, proc.ID, f.processes.startedProcess)
	require.NotEqual(t, f.faProfile, f.processes.startedProfile)

	var pinned models.Profile
	require.NoError(t, f.db.First(&pinned, "id = ?", f.processes.startedProfile).Error)
	require.Equal(t, f.faProfile, *pinned.SourceProfileID)
	require.Equal(t, proc.ID, *pinned.ProcessID)

	p, err = f.svc.Get(p.ID)
	require.NoError(t, err)
	require.Equal(t, proc.ID, *p.CurrentProcessID)
}

func TestStartG2PRejectsProfileMismatch(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	_, err = f.svc.StartG2P(p.ID, f.faProfile, nil)
	require.ErrorIs(t, err, ErrProfileMismatch)
	require.Zero(t, f.processes.startCalls)
}

func TestStartFARejectsBusyProject(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	attachProcess(t, f, p, f.pipeline.FAScriptID, models.StatusRunning)

	_, err = f.svc.StartFA(p.ID, f.faProfile, nil)
	require.ErrorIs(t, err, ErrProjectBusy)
}

func TestStartFADetachesOnFailure(t *testing.T) {
	f := newFixture(t)
	f.processes.startErr = errors.New("clam server unreachable")

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	_, err = f.svc.StartFA(p.ID, f.faProfile, nil)
	require.Error(t, err)

	p, err = f.svc.Get(p.ID)
	require.NoError(t, err)
	require.Nil(t, p.CurrentProcessID)

	// The project is startable again once the remote
	// service recovers.
	f.processes.startErr = nil
	_, err = f.svc.StartG2P(p.ID, f.g2pProfile, nil)
	require.NoError(t, err)
}

func TestOOVDictRoundTrip(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	// No dictionary yet.
	path, err := f.svc.OOVDictPath(p)
	require.NoError(t, err)
	require.Empty(t, path)

	content, err := f.svc.ReadOOVDict(p)
	require.NoError(t, err)
	require.Empty(t, content)

	require.NoError(t, f.svc.WriteOOVDict(p, "hello h e l l o\n"))

	path, err = f.svc.OOVDictPath(p)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(p.Folder, defaultOOVDictName), path)

	content, err = f.svc.ReadOOVDict(p)
	require.NoError(t, err)
	require.Equal(t, "hello h e l l o\n", content)

	// A dictionary produced by the remote job wins over
	// the default name on subsequent writes.
	require.NoError(t, f.svc.WriteOOVDict(p, "updated\n"))
	content, err = f.svc.ReadOOVDict(p)
	require.NoError(t, err)
	require.Equal(t, "updated\n", content)
}

func TestCreateArchive(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(p.Folder, "speech.wav"), []byte("audio"), 0o644))

	dest, err := f.svc.CreateArchive(p)
	require.NoError(t, err)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestDeleteRemovesFolderAndRecord(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create("thesis", "alice", f.pipeline.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(p.ID))

	_, err = os.Stat(p.Folder)
	require.True(t, os.IsNotExist(err))

	var count int64
	require.NoError(t, f.db.Model(&models.Project{}).Count(&count).Error)
	require.Zero(t, count)
}
