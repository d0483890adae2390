package main

import (
	"path/filepath"
	"testing"

	"esign-workflows/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "workflow-registry.json")

	added, err := syncRegistry(path, "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, knownWorkflows, added)

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", reg.Version)
	wf, ok := reg.Lookup("sms-authentication")
	require.True(t, ok)
	assert.Equal(t, "Sms Authentication", wf.DisplayName)

	added, err = syncRegistry(path, "9.9.9")
	require.NoError(t, err)
	assert.Empty(t, added)

	n, err := validateRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, len(knownWorkflows), n)
}

func TestUpdateWorkflow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow-registry.json")
	_, err := syncRegistry(path, "1.0.0")
	require.NoError(t, err)

	require.NoError(t, updateWorkflow(path, "bulk-send", "tags", " bulk, ,expiration "))
	require.NoError(t, updateWorkflow(path, "bulk-send", "displayName", "Send to a class"))

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	wf, _ := reg.Lookup("bulk-send")
	assert.Equal(t, []string{"bulk", "expiration"}, wf.Tags)
	assert.Equal(t, "Send to a class", wf.DisplayName)

	assert.Error(t, updateWorkflow(path, "bulk-send", "path", "/elsewhere"))
	assert.Error(t, updateWorkflow(path, "bulk-send", "retries", "3"))
	assert.Error(t, updateWorkflow(path, "nope", "category", "x"))
}

func TestValidateRegistry(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.json")
	require.NoError(t, registry.SaveRegistry(registry.New("1",
		registry.Workflow{ID: "fax", DisplayName: "Fax", Path: "/fax"},
	), unknown))
	_, err := validateRegistry(unknown)
	assert.ErrorContains(t, err, "unknown workflow ID")

	moved := filepath.Join(dir, "moved.json")
	require.NoError(t, registry.SaveRegistry(registry.New("1",
		registry.Workflow{ID: "bulk-send", DisplayName: "Bulk", Path: "/bulk"},
	), moved))
	_, err = validateRegistry(moved)
	assert.ErrorContains(t, err, "must be served at /bulk-send")

	_, err = validateRegistry(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestShippedRegistryIsValid(t *testing.T) {
	n, err := validateRegistry(filepath.Join("..", "..", "..", "configs", "workflow-registry.json"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
