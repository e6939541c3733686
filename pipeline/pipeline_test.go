package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samasrinivas/kafkautomation/errors"
	"github.com/samasrinivas/kafkautomation/fs/billy"
	"github.com/samasrinivas/kafkautomation/lock"
	"github.com/samasrinivas/kafkautomation/store"
	"github.com/samasrinivas/kafkautomation/tfvars"
)

const ordersRequest = `service_name: orders-service
topics:
  - name: t1
  - name: t2
access_config:
  - name: svc-a
    role: DeveloperWrite
    topics:
      - t1
      - t2
`

const fulfillmentRequest = `service_name: fulfillment-service
topics:
  - name: orders-events
    partitions: 5
`

const conflictingRequest = `service_name: orders-service
topics:
  - name: orders-events
    partitions: 3
    replication_factor: 3
`

// recordingApplier captures the variables it was handed; Fail makes the
// provisioning step fail.
type recordingApplier struct {
	calls int
	vars  []byte
	Fail  bool
}

func (a *recordingApplier) Apply(_ context.Context, _ string, variables []byte) error {
	a.calls++
	a.vars = variables
	if a.Fail {
		return errors.New(errors.CodeInternal, "terraform exited 1")
	}
	return nil
}

func testParams() tfvars.Params {
	return tfvars.Params{
		OrganizationID: "org-1",
		EnvironmentID:  "env-dev",
		ClusterID:      "lkc-1",
		Endpoint:       "SASL_SSL://broker:9092",
	}
}

func newPipeline(t *testing.T, memfs *billy.FS, st store.Store, applier Applier) *Pipeline {
	t.Helper()
	p, err := New(Options{FS: memfs, Store: st, Applier: applier, Params: testParams()})
	require.NoError(t, err)
	return p
}

func TestApplyEmitsAccountAndACLPerTopic(t *testing.T) {
	ctx := context.Background()
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile("domains/orders/dev/kafka-request.yaml", []byte(ordersRequest), 0o644))

	st := store.NewMemory()
	applier := &recordingApplier{}
	p := newPipeline(t, memfs, st, applier)

	result, err := p.Apply(ctx, "dev", "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, applier.calls)

	var vars tfvars.Variables
	require.NoError(t, json.Unmarshal(result.Variables, &vars))
	assert.Len(t, vars.ServiceAccounts, 1)
	assert.Len(t, vars.ACLs, 2)
	assert.Contains(t, vars.ACLs, "svc-a#t1")
	assert.Contains(t, vars.ACLs, "svc-a#t2")

	// Baseline was promoted and the lock released.
	exists, err := st.Exists(ctx, BaselineCatalogKey("dev"))
	require.NoError(t, err)
	assert.True(t, exists)

	held, err := lock.NewManager(st).Holder(ctx, "dev")
	require.NoError(t, err)
	assert.Nil(t, held)
}

func TestCrossDomainTopicConflictBlocksApply(t *testing.T) {
	ctx := context.Background()
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile("domains/orders/dev/kafka-request.yaml", []byte(conflictingRequest), 0o644))
	require.NoError(t, memfs.WriteFile("domains/fulfillment/dev/kafka-request.yaml", []byte(fulfillmentRequest), 0o644))

	st := store.NewMemory()
	applier := &recordingApplier{}
	p := newPipeline(t, memfs, st, applier)

	result, err := p.Apply(ctx, "dev", "run-1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNamingConflict, errors.Code(err))
	assert.Contains(t, err.Error(), "orders-events")
	assert.Contains(t, err.Error(), "fulfillment")
	assert.Contains(t, err.Error(), "orders")

	// Both owners are named in the single conflict entry.
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, []string{"fulfillment", "orders"}, result.Conflicts[0].Domains)

	// Provisioning never ran, no baseline was written, the lock is free.
	assert.Zero(t, applier.calls)
	exists, err := st.Exists(ctx, BaselineCatalogKey("dev"))
	require.NoError(t, err)
	assert.False(t, exists)

	held, err := lock.NewManager(st).Holder(ctx, "dev")
	require.NoError(t, err)
	assert.Nil(t, held)
}

func TestConflictAgainstDeployedBaseline(t *testing.T) {
	ctx := context.Background()

	// Environment where orders already deployed orders-events.
	first := billy.NewMemory()
	require.NoError(t, first.WriteFile("domains/orders/dev/kafka-request.yaml", []byte(conflictingRequest), 0o644))
	st := store.NewMemory()
	p := newPipeline(t, first, st, &recordingApplier{})
	_, err := p.Apply(ctx, "dev", "run-1")
	require.NoError(t, err)

	// A later run where fulfillment claims the same topic name.
	second := billy.NewMemory()
	require.NoError(t, second.WriteFile("domains/fulfillment/dev/kafka-request.yaml", []byte(fulfillmentRequest), 0o644))
	p2 := newPipeline(t, second, st, &recordingApplier{})

	_, err = p2.Apply(ctx, "dev", "run-2")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNamingConflict, errors.Code(err))
	assert.Contains(t, err.Error(), "orders-events")
}

func TestPlanFailsFastWhenLocked(t *testing.T) {
	ctx := context.Background()
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile("domains/orders/dev/kafka-request.yaml", []byte(ordersRequest), 0o644))

	st := store.NewMemory()
	_, err := lock.NewManager(st).Acquire(ctx, "dev", "run-other")
	require.NoError(t, err)

	p := newPipeline(t, memfs, st, nil)
	_, err = p.Plan(ctx, "dev")
	require.Error(t, err)
	assert.Equal(t, errors.CodeEnvironmentLocked, errors.Code(err))
	assert.Contains(t, err.Error(), "run-other")
}

func TestPlanWritesWorkspaceArtifactsOnly(t *testing.T) {
	ctx := context.Background()
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile("domains/orders/dev/kafka-request.yaml", []byte(ordersRequest), 0o644))

	st := store.NewMemory()
	p := newPipeline(t, memfs, st, nil)

	result, err := p.Plan(ctx, "dev")
	require.NoError(t, err)
	assert.Empty(t, result.Conflicts)
	assert.Nil(t, result.Variables)

	// Artifacts land in the checkout for review.
	exists, err := memfs.Exists(CatalogKey("dev"))
	require.NoError(t, err)
	assert.True(t, exists)

	// The durable store is untouched: no baseline, no lock.
	exists, err = st.Exists(ctx, BaselineCatalogKey("dev"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestApplyReleasesLockWhenProvisioningFails(t *testing.T) {
	ctx := context.Background()
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile("domains/orders/dev/kafka-request.yaml", []byte(ordersRequest), 0o644))

	st := store.NewMemory()
	applier := &recordingApplier{Fail: true}
	p := newPipeline(t, memfs, st, applier)

	_, err := p.Apply(ctx, "dev", "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "baseline left unchanged")

	// No baseline, lock released despite the failure.
	exists, err := st.Exists(ctx, BaselineCatalogKey("dev"))
	require.NoError(t, err)
	assert.False(t, exists)

	held, err := lock.NewManager(st).Holder(ctx, "dev")
	require.NoError(t, err)
	assert.Nil(t, held)
}

func TestApplyFailsWhenEnvironmentLocked(t *testing.T) {
	ctx := context.Background()
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile("domains/orders/dev/kafka-request.yaml", []byte(ordersRequest), 0o644))

	st := store.NewMemory()
	_, err := lock.NewManager(st).Acquire(ctx, "dev", "run-other")
	require.NoError(t, err)

	p := newPipeline(t, memfs, st, &recordingApplier{})
	_, err = p.Apply(ctx, "dev", "run-1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeAlreadyLocked, errors.Code(err))

	// The loser must not release the winner's lock.
	held, err := lock.NewManager(st).Holder(ctx, "dev")
	require.NoError(t, err)
	require.NotNil(t, held)
	assert.Equal(t, "run-other", held.Holder)
}

func TestApplyReportsAllBrokenDomains(t *testing.T) {
	ctx := context.Background()
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile("domains/a/dev/kafka-request.yaml", []byte("topics: [bad"), 0o644))
	require.NoError(t, memfs.WriteFile("domains/b/dev/kafka-request.yaml", []byte("also: {bad"), 0o644))

	st := store.NewMemory()
	p := newPipeline(t, memfs, st, &recordingApplier{})

	result, err := p.Apply(ctx, "dev", "run-1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeMalformedDeclaration, errors.Code(err))
	require.Len(t, result.Problems, 2)

	// Both domains appear in one report.
	assert.Contains(t, err.Error(), `domain "a"`)
	assert.Contains(t, err.Error(), `domain "b"`)

	held, err := lock.NewManager(st).Holder(ctx, "dev")
	require.NoError(t, err)
	assert.Nil(t, held)
}
