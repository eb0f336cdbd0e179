package adapter_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thefaftek-git/CA-Scanner-sub006/adapter"
	"github.com/thefaftek-git/CA-Scanner-sub006/logging"
	"github.com/thefaftek-git/CA-Scanner-sub006/model"
)

func TestMain(m *testing.M) {
	logging.InitLogger("error")
	os.Exit(m.Run())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCollectionLoader_SkipsUnclaimedAndBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", `{"Id": "a", "DisplayName": "Good", "State": "enabled"}`)
	writeFile(t, dir, "broken.json", `{"Id": `)
	writeFile(t, dir, "readme.md", `not a policy`)
	writeFile(t, dir, "vars.tf", `variable "x" {}`)

	loader := adapter.NewCollectionLoader(adapter.NewJSONAdapter(), 4, true)
	collection, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, collection.Policies, 1)
	assert.Equal(t, "Good", collection.Policies[0].DisplayName)

	require.Len(t, collection.Diagnostics, 1)
	assert.Equal(t, model.DiagParseError, collection.Diagnostics[0].Kind)
	assert.Contains(t, collection.Diagnostics[0].File, "broken.json")
}

func TestCollectionLoader_DuplicateIdentifiers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"Id": "dup-1", "DisplayName": "First", "State": "enabled"}`)
	writeFile(t, dir, "b.json", `{"Id": "dup-1", "DisplayName": "Second", "State": "enabled"}`)

	loader := adapter.NewCollectionLoader(adapter.NewJSONAdapter(), 2, true)
	collection, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)

	// First declaration in directory order wins; the duplicate is
	// excluded with a diagnostic.
	require.Len(t, collection.Policies, 1)
	assert.Equal(t, "First", collection.Policies[0].DisplayName)

	require.Len(t, collection.Diagnostics, 1)
	assert.Equal(t, model.DiagDuplicateIdentifier, collection.Diagnostics[0].Kind)
	assert.Contains(t, collection.Diagnostics[0].File, "b.json")
}

func TestCollectionLoader_DuplicateIdentifiersCaseFolding(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"Id": "DUP-1", "DisplayName": "Upper", "State": "enabled"}`)
	writeFile(t, dir, "b.json", `{"Id": "dup-1", "DisplayName": "Lower", "State": "enabled"}`)

	// Case-insensitive runs fold duplicate detection the same way they
	// fold matching, so ids differing only by case collide.
	relaxed := adapter.NewCollectionLoader(adapter.NewJSONAdapter(), 2, false)
	collection, err := relaxed.Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, collection.Policies, 1)
	assert.Equal(t, "Upper", collection.Policies[0].DisplayName)
	require.Len(t, collection.Diagnostics, 1)
	assert.Equal(t, model.DiagDuplicateIdentifier, collection.Diagnostics[0].Kind)

	strict := adapter.NewCollectionLoader(adapter.NewJSONAdapter(), 2, true)
	collection, err = strict.Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, collection.Policies, 2)
	assert.Empty(t, collection.Diagnostics)
}

func TestCollectionLoader_EmptyDirectory(t *testing.T) {
	loader := adapter.NewCollectionLoader(adapter.NewHCLAdapter(), 2, true)
	collection, err := loader.Load(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, collection.Policies)
	assert.Empty(t, collection.Diagnostics)
}

func TestCollectionLoader_MissingDirectory(t *testing.T) {
	loader := adapter.NewCollectionLoader(adapter.NewJSONAdapter(), 2, true)
	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestNormalizeState(t *testing.T) {
	assert.Equal(t, model.StateEnabled, adapter.NormalizeState("Enabled"))
	assert.Equal(t, model.StateDisabled, adapter.NormalizeState(" disabled "))
	assert.Equal(t, model.StateReportOnly, adapter.NormalizeState("enabledForReportingButNotEnforced"))
	assert.Equal(t, model.StateReportOnly, adapter.NormalizeState("report_only"))
	assert.Equal(t, model.PolicyState("weird"), adapter.NormalizeState("weird"))
}
