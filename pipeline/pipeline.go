// Package pipeline orchestrates the aggregation pipeline: review-time
// plans and lock-serialized applies. All heavy lifting lives in the leaf
// packages; this one sequences them, owns the lock discipline, and is the
// only layer that logs.
package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/samasrinivas/kafkautomation/catalog"
	"github.com/samasrinivas/kafkautomation/conflict"
	"github.com/samasrinivas/kafkautomation/declaration"
	"github.com/samasrinivas/kafkautomation/errors"
	"github.com/samasrinivas/kafkautomation/fs"
	"github.com/samasrinivas/kafkautomation/lock"
	"github.com/samasrinivas/kafkautomation/schemas"
	"github.com/samasrinivas/kafkautomation/store"
	"github.com/samasrinivas/kafkautomation/tfvars"
)

// Store keys for per-environment artifacts. Fresh artifacts describe the
// current aggregation; the .deployed copies are the baseline, written only
// after a successful apply.

// CatalogKey returns the fresh catalog artifact key for an environment.
func CatalogKey(environment string) string {
	return path.Join("catalogs", environment, "kafka-catalog.yaml")
}

// SchemaCatalogKey returns the fresh schema catalog artifact key.
func SchemaCatalogKey(environment string) string {
	return path.Join("catalogs", environment, "schemas-catalog.json")
}

// BaselineCatalogKey returns the deployed baseline catalog key.
func BaselineCatalogKey(environment string) string {
	return path.Join("catalogs", environment, ".deployed", "kafka-catalog.yaml")
}

// BaselineSchemaCatalogKey returns the deployed baseline schema catalog key.
func BaselineSchemaCatalogKey(environment string) string {
	return path.Join("catalogs", environment, ".deployed", "schemas-catalog.json")
}

// Applier hands the emitted variables to the external provisioning tool.
// The pipeline never provisions anything itself.
type Applier interface {
	Apply(ctx context.Context, environment string, variables []byte) error
}

// Pipeline wires the components together for one repository checkout and
// one durable store.
type Pipeline struct {
	fs      fs.Filesystem
	store   store.Store
	locks   *lock.Manager
	applier Applier
	params  tfvars.Params
	log     *zap.Logger
}

// Options configures a Pipeline.
type Options struct {
	// FS is the repository checkout containing domains/.
	FS fs.Filesystem

	// Store holds catalogs, baselines, and locks.
	Store store.Store

	// Applier performs the external provisioning step. Required for Apply,
	// unused by Plan.
	Applier Applier

	// Params are the environment connection parameters for emission.
	Params tfvars.Params

	// Log defaults to a no-op logger.
	Log *zap.Logger
}

// New creates a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.FS == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "pipeline: FS is required")
	}
	if opts.Store == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "pipeline: Store is required")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		fs:      opts.FS,
		store:   opts.Store,
		locks:   lock.NewManager(opts.Store),
		applier: opts.Applier,
		params:  opts.Params,
		log:     log,
	}, nil
}

// Result is the outcome of a plan or apply run.
type Result struct {
	Catalog       *catalog.Catalog
	SchemaCatalog *schemas.Catalog
	Problems      []declaration.Problem
	Conflicts     []conflict.Conflict

	// Variables is populated by Apply only.
	Variables []byte
}

// Aggregate builds the fresh catalog artifacts and writes them into the
// checkout. It consults neither the lock nor the deployed baseline; use
// Validate or Plan for conflict checking.
func (p *Pipeline) Aggregate(ctx context.Context, environment string) (*Result, error) {
	decls, problems, err := declaration.NewReader(p.fs).Scan(ctx, environment)
	if err != nil {
		return nil, err
	}
	result := &Result{Problems: problems}
	if len(problems) > 0 {
		return result, problemsError(problems)
	}

	result.Catalog, err = catalog.Aggregate(environment, decls)
	if err != nil {
		return result, err
	}

	result.SchemaCatalog, err = schemas.NewCollector(p.fs).Collect(ctx, result.Catalog)
	if err != nil {
		return result, err
	}

	if err := p.writeWorkspaceArtifacts(environment, result); err != nil {
		return result, err
	}

	p.log.Info("aggregation complete",
		zap.String("environment", environment),
		zap.Int("domains", len(result.Catalog.Domains)),
		zap.Int("topics", len(result.Catalog.Topics)))
	return result, nil
}

// Validate builds the fresh catalogs and checks them against the deployed
// baseline. The returned Result carries the full conflict list even when
// an error is returned, so callers can report every collision at once.
func (p *Pipeline) Validate(ctx context.Context, environment string) (*Result, error) {
	return p.build(ctx, environment)
}

// Plan performs a read-only review run: aggregate, collect schemas,
// validate against the current baseline, and write the fresh artifacts
// into the checkout for review. It never touches the durable store beyond
// reads, and it fails fast with ENVIRONMENT_LOCKED when a deployment is in
// flight rather than blocking behind it.
func (p *Pipeline) Plan(ctx context.Context, environment string) (*Result, error) {
	held, err := p.locks.Holder(ctx, environment)
	if err != nil {
		return nil, err
	}
	if held != nil {
		return nil, errors.Newf(errors.CodeEnvironmentLocked,
			"environment %q has a deployment in flight; resubmit once the lock clears", environment).
			WithContext("holder", held.Holder)
	}

	result, err := p.build(ctx, environment)
	if err != nil {
		return result, err
	}

	if err := p.writeWorkspaceArtifacts(environment, result); err != nil {
		return result, err
	}

	p.log.Info("plan complete",
		zap.String("environment", environment),
		zap.Int("domains", len(result.Catalog.Domains)),
		zap.Int("topics", len(result.Catalog.Topics)),
		zap.Int("schemas", len(result.Catalog.Schemas)))
	return result, nil
}

// Apply performs a deployment run. Lock acquisition is the first durable
// side effect; everything is re-aggregated and re-validated afterwards
// against the baseline as it stands under the lock, because the plan-time
// check is advisory only. The lock is released on every exit path.
func (p *Pipeline) Apply(ctx context.Context, environment, holder string) (result *Result, err error) {
	if p.applier == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "pipeline: Applier is required for apply")
	}

	if _, err := p.locks.Acquire(ctx, environment, holder); err != nil {
		return nil, err
	}
	p.log.Info("lock acquired",
		zap.String("environment", environment), zap.String("holder", holder))

	defer func() {
		if relErr := p.locks.Release(ctx, environment); relErr != nil {
			p.log.Error("lock release failed",
				zap.String("environment", environment), zap.Error(relErr))
			if err == nil {
				err = relErr
			}
			return
		}
		p.log.Info("lock released", zap.String("environment", environment))
	}()

	result, err = p.build(ctx, environment)
	if err != nil {
		return result, err
	}

	result.Variables, err = tfvars.Emit(result.Catalog, result.SchemaCatalog, p.params)
	if err != nil {
		return result, err
	}

	if err = p.applier.Apply(ctx, environment, result.Variables); err != nil {
		return result, errors.Wrapf(err, errors.CodeInternal,
			"provisioning failed for environment %q; baseline left unchanged", environment)
	}

	if err = p.promoteBaseline(ctx, environment, result); err != nil {
		return result, err
	}

	p.log.Info("apply complete",
		zap.String("environment", environment),
		zap.Int("topics", len(result.Catalog.Topics)),
		zap.Int("acl_bindings", len(result.Catalog.ACLBindings)))
	return result, nil
}

// build runs the scan, aggregate, collect, validate sequence and
// assembles a Result.
func (p *Pipeline) build(ctx context.Context, environment string) (*Result, error) {
	decls, problems, err := declaration.NewReader(p.fs).Scan(ctx, environment)
	if err != nil {
		return nil, err
	}
	result := &Result{Problems: problems}
	if len(problems) > 0 {
		return result, problemsError(problems)
	}

	result.Catalog, err = catalog.Aggregate(environment, decls)
	if err != nil {
		return result, err
	}

	result.SchemaCatalog, err = schemas.NewCollector(p.fs).Collect(ctx, result.Catalog)
	if err != nil {
		return result, err
	}

	baseline, err := p.readBaseline(ctx, BaselineCatalogKey(environment))
	if err != nil {
		return result, err
	}

	result.Conflicts = conflict.Validate(result.Catalog, baseline)
	if conflictErr := conflict.AsError(result.Conflicts); conflictErr != nil {
		return result, conflictErr
	}
	return result, nil
}

func (p *Pipeline) readBaseline(ctx context.Context, key string) (*catalog.Catalog, error) {
	data, err := p.store.Read(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "reading baseline %q", key)
	}
	return catalog.Decode(data)
}

// writeWorkspaceArtifacts renders the fresh artifacts into the checkout so
// reviewers see exactly what an apply would deploy.
func (p *Pipeline) writeWorkspaceArtifacts(environment string, result *Result) error {
	catBytes, err := catalog.Encode(result.Catalog)
	if err != nil {
		return err
	}
	if err := p.fs.WriteFile(CatalogKey(environment), catBytes, 0o644); err != nil {
		return errors.Wrap(err, errors.CodeIO, "writing catalog artifact")
	}

	scBytes, err := schemas.Encode(result.SchemaCatalog)
	if err != nil {
		return err
	}
	if err := p.fs.WriteFile(SchemaCatalogKey(environment), scBytes, 0o644); err != nil {
		return errors.Wrap(err, errors.CodeIO, "writing schema catalog artifact")
	}
	return nil
}

// promoteBaseline persists the fresh artifacts and makes them the deployed
// baseline. Runs only after a successful apply, by the run holding the lock.
func (p *Pipeline) promoteBaseline(ctx context.Context, environment string, result *Result) error {
	catBytes, err := catalog.Encode(result.Catalog)
	if err != nil {
		return err
	}
	scBytes, err := schemas.Encode(result.SchemaCatalog)
	if err != nil {
		return err
	}

	writes := []struct {
		key  string
		data []byte
	}{
		{CatalogKey(environment), catBytes},
		{SchemaCatalogKey(environment), scBytes},
		{BaselineCatalogKey(environment), catBytes},
		{BaselineSchemaCatalogKey(environment), scBytes},
	}
	for _, w := range writes {
		msg := fmt.Sprintf("deploy %s: update %s", environment, path.Base(w.key))
		if err := p.store.Write(ctx, w.key, w.data, msg); err != nil {
			return errors.Wrapf(err, errors.CodeIO, "promoting baseline %q", w.key)
		}
	}
	return nil
}

func problemsError(problems []declaration.Problem) error {
	msgs := make([]string, len(problems))
	for i, pr := range problems {
		msgs[i] = pr.String()
	}
	return errors.Newf(errors.CodeMalformedDeclaration,
		"%d domain declaration(s) could not be read: %s",
		len(problems), strings.Join(msgs, "; "))
}
