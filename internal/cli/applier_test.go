package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/samasrinivas/kafkautomation/fs/billy"
)

func TestExecApplierWritesVariablesArtifact(t *testing.T) {
	memfs := billy.NewMemory()
	applier := newExecApplier(memfs, ".", nil, zap.NewNop())

	payload := []byte(`{"topics": {}}`)
	require.NoError(t, applier.Apply(context.Background(), "dev", payload))

	data, err := memfs.ReadFile("catalogs/dev/kafka.auto.tfvars.json")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestExecApplierCommandFailureSurfaces(t *testing.T) {
	memfs := billy.NewMemory()
	applier := newExecApplier(memfs, t.TempDir(), []string{"false"}, zap.NewNop())

	err := applier.Apply(context.Background(), "dev", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"false"`)

	// The artifact is still written before the command runs.
	exists, err := memfs.Exists("catalogs/dev/kafka.auto.tfvars.json")
	require.NoError(t, err)
	assert.True(t, exists)
}
