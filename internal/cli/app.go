package cli

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/samasrinivas/kafkautomation/errors"
	billyfs "github.com/samasrinivas/kafkautomation/fs/billy"
	"github.com/samasrinivas/kafkautomation/pipeline"
	"github.com/samasrinivas/kafkautomation/store"
	"github.com/samasrinivas/kafkautomation/store/s3"
	"github.com/samasrinivas/kafkautomation/tfvars"
)

// rootOptions carries the persistent flag values into the subcommands.
type rootOptions struct {
	configPath string
	debug      bool
}

// app bundles the configured dependencies a command needs.
type app struct {
	cfg   Config
	log   *zap.Logger
	fs    *billyfs.FS
	store store.Store
}

func (o *rootOptions) load(ctx context.Context) (*app, error) {
	cfg, err := LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(o.debug)
	if err != nil {
		return nil, err
	}

	checkout := billyfs.NewOS(cfg.Checkout)
	st, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, fs: checkout, store: st}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

func (a *app) pipeline(applier pipeline.Applier) (*pipeline.Pipeline, error) {
	return pipeline.New(pipeline.Options{
		FS:      a.fs,
		Store:   a.store,
		Applier: applier,
		Params:  tfvars.ParamsFromEnv(os.LookupEnv),
		Log:     a.log,
	})
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildStore(ctx context.Context, cfg Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "git":
		return buildGitStore(ctx, cfg.Store.Git)
	case "s3":
		return s3.New(ctx, s3.Options{
			Bucket: cfg.Store.S3.Bucket,
			Prefix: cfg.Store.S3.Prefix,
			Region: cfg.Store.S3.Region,
		})
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig, "unknown store backend %q", cfg.Store.Backend)
	}
}

// buildGitStore opens the repository at the configured path, cloning it
// first when a remote is configured and no checkout exists yet.
func buildGitStore(ctx context.Context, cfg GitConfig) (store.Store, error) {
	opts := store.GitOptions{
		FS:          billyfs.NewOS(cfg.Path),
		RemoteURL:   cfg.RemoteURL,
		Branch:      cfg.Branch,
		AuthorName:  cfg.AuthorName,
		AuthorEmail: cfg.AuthorEmail,
	}

	if _, err := os.Stat(filepath.Join(cfg.Path, ".git")); os.IsNotExist(err) {
		if cfg.RemoteURL != "" {
			return store.CloneGit(ctx, opts)
		}
		return nil, errors.Newf(errors.CodeInvalidConfig,
			"%q is not a git checkout and no store.git.remote_url is configured", cfg.Path)
	}
	return store.OpenGit(ctx, opts)
}
