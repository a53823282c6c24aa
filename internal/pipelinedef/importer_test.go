package pipelinedef

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/equestria-cloud/equestria/pkg/db"
	schema "github.com/equestria-cloud/equestria/pkg/pipelinedef"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const definitionYAML = `apiVersion: v1
kind: Pipeline
metadata:
  name: dutch
forcedAlignment:
  name: forced-alignment
  hostname: https://fa.example
  profiles:
    - templates:
        - id: InputWavFile
          extension: .wav
        - id: InputTextFile
          extension: .txt
graphemeToPhoneme:
  name: g2p
  hostname: https://g2p.example
  profiles:
    - templates:
        - id: InputDictFile
          extension: .dict
          unique: true
`

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%v?mode=memory&cache=shared", t.Name())

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	return gdb
}

func TestApplyCreatesScriptsAndPipeline(t *testing.T) {
	gdb := openTestDB(t)

	def, err := schema.Parse([]byte(definitionYAML))
	require.NoError(t, err)

	pipeline, err := NewImporter(gdb).Apply(context.Background(), def)
	require.NoError(t, err)
	require.Equal(t, "dutch", pipeline.Name)

	var fa models.Script
	require.NoError(t, gdb.First(&fa, "name = ?", "forced-alignment").Error)
	require.Equal(t, fa.ID, pipeline.FAScriptID)

	var profiles []models.Profile
	require.NoError(t, gdb.
		Preload("Templates").
		Where("script_id = ?", fa.ID).
		Find(&profiles).Error)
	require.Len(t, profiles, 1)
	require.Len(t, profiles[0].Templates, 2)
}

func TestApplyRejectsDuplicateName(t *testing.T) {
	gdb := openTestDB(t)

	def, err := schema.Parse([]byte(definitionYAML))
	require.NoError(t, err)

	importer := NewImporter(gdb)

	_, err = importer.Apply(context.Background(), def)
	require.NoError(t, err)

	_, err = importer.Apply(context.Background(), def)
	require.ErrorIs(t, err, ErrDuplicatePipeline)

	var count int64
	require.NoError(t, gdb.Model(&models.Pipeline{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestApplyReusesExistingScripts(t *testing.T) {
	gdb := openTestDB(t)

	def, err := schema.Parse([]byte(definitionYAML))
	require.NoError(t, err)

	importer := NewImporter(gdb)
	_, err = importer.Apply(context.Background(), def)
	require.NoError(t, err)

	second, err := schema.Parse([]byte(definitionYAML))
	require.NoError(t, err)
	second.Metadata.Name = "dutch-redux"

	_, err = importer.Apply(context.Background(), second)
	require.NoError(t, err)

	var count int64
	require.NoError(t, gdb.Model(&models.Script{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestApplyPathSkipsAlreadyApplied(t *testing.T) {
	gdb := openTestDB(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dutch.yaml"), []byte(definitionYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a definition"), 0o644))

	importer := NewImporter(gdb)

	applied, err := importer.ApplyPath(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, applied, 1)

	applied, err = importer.ApplyPath(context.Background(), dir)
	require.NoError(t, err)
	require.Empty(t, applied)
}

func TestApplyPathRejectsInvalidDefinition(t *testing.T) {
	gdb := openTestDB(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "broken.yaml"),
		[]byte("apiVersion: v2\nkind: Pipeline\n"),
		0o644,
	))

	_, err := NewImporter(gdb).ApplyPath(context.Background(), dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid pipeline definition")
}
