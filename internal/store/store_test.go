package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SeedsDefaultDocumentWhenMissing(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, FileName))
	doc := s.Read()
	require.Len(t, doc.Profiles, 1)
	assert.Equal(t, "Default", doc.Profiles[0].Name)
}

func TestNew_DoesNotOverwriteExistingDocument(t *testing.T) {
	dir := t.TempDir()
	s1, err := New(dir)
	require.NoError(t, err)

	_, err = s1.Mutate(func(doc *model.Store) error {
		doc.Profiles[0].BaseURL = "https://example.test"
		return nil
	})
	require.NoError(t, err)

	s2, err := New(dir)
	require.NoError(t, err)
	doc := s2.Read()
	assert.Equal(t, "https://example.test", doc.Profiles[0].BaseURL)
}

func TestRead_FallsBackOnCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("not json"), 0o644))

	doc := s.Read()
	assert.Empty(t, doc.Profiles)
}

func TestMigrate_EnsuresLocalLibrary(t *testing.T) {
	doc := model.Store{Profiles: []model.Profile{{Name: "p"}}}
	Migrate(&doc)
	require.Len(t, doc.Profiles[0].Libraries, 1)
	assert.Equal(t, model.LocalLibraryID, doc.Profiles[0].Libraries[0].ID)
}

func TestMutate_PersistsAcrossReads(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	_, err = s.Mutate(func(doc *model.Store) error {
		name := "Default"
		doc.ActiveProfile = &name
		return nil
	})
	require.NoError(t, err)

	doc := s.Read()
	require.NotNil(t, doc.ActiveProfile)
	assert.Equal(t, "Default", *doc.ActiveProfile)
}
