package store

import (
	"context"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/samasrinivas/kafkautomation/errors"
	billyfs "github.com/samasrinivas/kafkautomation/fs/billy"
)

const (
	// DefaultRemoteName is the remote used for fetch and push.
	DefaultRemoteName = "origin"

	// DefaultBranch is the branch holding catalogs, baselines, and locks.
	DefaultBranch = "main"

	defaultStorerCacheSize = 1000
)

// GitOptions configures the git-backed store.
type GitOptions struct {
	// FS is the REQUIRED filesystem root the repository lives in
	// (OS-backed in production, in-memory in tests).
	FS *billyfs.FS

	// Workdir is the path of the worktree root within FS. Defaults to ".".
	Workdir string

	// RemoteURL is the remote to clone from and push to. When empty the
	// store operates on a local repository only; conditional creates are
	// then serialized by the hosting process alone.
	RemoteURL string

	// Branch is the branch holding store state. Defaults to "main".
	Branch string

	// AuthorName and AuthorEmail identify the committer for store writes.
	AuthorName  string
	AuthorEmail string

	// Auth is an optional transport auth method for remote operations.
	Auth transport.AuthMethod

	// StorerCacheSize sets the LRU object cache entry count.
	StorerCacheSize int
}

// Validate checks that the options are usable.
func (o *GitOptions) Validate() error {
	if o.FS == nil {
		return errors.New(errors.CodeInvalidConfig, "git store: FS is required")
	}
	if o.StorerCacheSize < 0 {
		return errors.New(errors.CodeInvalidConfig, "git store: StorerCacheSize cannot be negative")
	}
	return nil
}

func (o *GitOptions) applyDefaults() {
	if o.Workdir == "" {
		o.Workdir = "."
	}
	if o.Branch == "" {
		o.Branch = DefaultBranch
	}
	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = defaultStorerCacheSize
	}
	if o.AuthorName == "" {
		o.AuthorName = "kafkautomation"
	}
	if o.AuthorEmail == "" {
		o.AuthorEmail = "kafkautomation@localhost"
	}
}

// Git is a Store backed by a git repository. Every Write, Create, and
// Delete becomes a commit; with a remote configured, each mutation is
// pushed immediately and a rejected (non-fast-forward) push is treated as
// a lost race.
type Git struct {
	repo     *gogit.Repository
	worktree *gogit.Worktree
	wtFS     billy.Filesystem
	options  GitOptions
}

// InitGit creates a new repository at the workdir. Used for bootstrap and
// in tests; production deployments typically Open or Clone.
func InitGit(ctx context.Context, opts GitOptions) (*Git, error) {
	storage, wtFS, err := prepare(&opts)
	if err != nil {
		return nil, err
	}

	repo, err := gogit.InitWithOptions(storage, wtFS, gogit.InitOptions{
		DefaultBranch: plumbing.NewBranchReferenceName(opts.Branch),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "initializing store repository")
	}
	return wrap(repo, wtFS, opts)
}

// OpenGit opens an existing repository at the workdir.
func OpenGit(ctx context.Context, opts GitOptions) (*Git, error) {
	storage, wtFS, err := prepare(&opts)
	if err != nil {
		return nil, err
	}

	repo, err := gogit.Open(storage, wtFS)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "opening store repository")
	}
	return wrap(repo, wtFS, opts)
}

// CloneGit clones the configured remote into the workdir.
func CloneGit(ctx context.Context, opts GitOptions) (*Git, error) {
	if opts.RemoteURL == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "git store: RemoteURL is required for clone")
	}
	storage, wtFS, err := prepare(&opts)
	if err != nil {
		return nil, err
	}

	repo, err := gogit.CloneContext(ctx, storage, wtFS, &gogit.CloneOptions{
		URL:           opts.RemoteURL,
		ReferenceName: plumbing.NewBranchReferenceName(opts.Branch),
		SingleBranch:  true,
		Auth:          opts.Auth,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "cloning store repository")
	}
	return wrap(repo, wtFS, opts)
}

func prepare(opts *GitOptions) (*filesystem.Storage, billy.Filesystem, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	opts.applyDefaults()

	scoped, err := opts.FS.Raw().Chroot(opts.Workdir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.CodeIO, "scoping workdir %q", opts.Workdir)
	}
	dotGit, err := scoped.Chroot(gogit.GitDirName)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeIO, "scoping .git directory")
	}

	objCache := cache.NewObjectLRU(cache.FileSize(opts.StorerCacheSize))
	return filesystem.NewStorage(dotGit, objCache), scoped, nil
}

func wrap(repo *gogit.Repository, wtFS billy.Filesystem, opts GitOptions) (*Git, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "getting worktree")
	}
	return &Git{repo: repo, worktree: worktree, wtFS: wtFS, options: opts}, nil
}

// WorktreeFS exposes the checkout so the declaration reader and schema
// collector observe the same tree the store commits from.
func (g *Git) WorktreeFS() *billyfs.FS {
	return billyfs.NewFromBilly(g.wtFS)
}

// Read implements Store. With a remote configured the branch is synced
// first so reads observe the latest deployed state.
func (g *Git) Read(ctx context.Context, key string) ([]byte, error) {
	if err := g.sync(ctx); err != nil {
		return nil, err
	}

	data, err := util.ReadFile(g.wtFS, key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, errors.CodeIO, "reading %q from store", key)
	}
	return data, nil
}

// Exists implements Store.
func (g *Git) Exists(ctx context.Context, key string) (bool, error) {
	if err := g.sync(ctx); err != nil {
		return false, err
	}

	_, err := g.wtFS.Stat(key)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, errors.Wrapf(err, errors.CodeIO, "checking %q in store", key)
	}
}

// Write implements Store.
func (g *Git) Write(ctx context.Context, key string, data []byte, message string) error {
	if err := g.sync(ctx); err != nil {
		return err
	}
	if err := util.WriteFile(g.wtFS, key, data, 0o644); err != nil {
		return errors.Wrapf(err, errors.CodeIO, "writing %q to store", key)
	}
	return g.commitAndPush(ctx, key, message)
}

// Create implements Store. The conditional-create contract holds only
// with a remote: the existence check runs against freshly synced state and
// the subsequent push is rejected if any other run advanced the branch in
// between. A rejected push rolls the local branch back and reports
// ErrKeyExists when the key appeared remotely.
func (g *Git) Create(ctx context.Context, key string, data []byte, message string) error {
	if err := g.sync(ctx); err != nil {
		return err
	}

	if _, err := g.wtFS.Stat(key); err == nil {
		return ErrKeyExists
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.CodeIO, "checking %q in store", key)
	}

	if err := util.WriteFile(g.wtFS, key, data, 0o644); err != nil {
		return errors.Wrapf(err, errors.CodeIO, "writing %q to store", key)
	}
	if err := g.commit(key, message); err != nil {
		return err
	}

	err := g.push(ctx)
	if errors.Is(err, gogit.ErrNonFastForwardUpdate) {
		// Lost the race. Drop the local commit, resync, and report the
		// outcome the winner produced.
		if rbErr := g.rollback(ctx); rbErr != nil {
			return rbErr
		}
		if _, statErr := g.wtFS.Stat(key); statErr == nil {
			return ErrKeyExists
		}
		return errors.Newf(errors.CodeIO,
			"store branch advanced concurrently while creating %q; retry", key)
	}
	return err
}

// Delete implements Store. Idempotent: deleting an absent key succeeds.
func (g *Git) Delete(ctx context.Context, key string, message string) error {
	if err := g.sync(ctx); err != nil {
		return err
	}

	if _, err := g.wtFS.Stat(key); os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Wrapf(err, errors.CodeIO, "checking %q in store", key)
	}

	if _, err := g.worktree.Remove(key); err != nil {
		return errors.Wrapf(err, errors.CodeIO, "removing %q from store", key)
	}
	return g.commitAndPush(ctx, key, message)
}

// sync fast-forwards the local branch to the remote. A store without a
// remote is already authoritative.
func (g *Git) sync(ctx context.Context) error {
	if g.options.RemoteURL == "" && !g.hasRemote() {
		return nil
	}

	err := g.worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(g.options.Branch),
		SingleBranch:  true,
		Auth:          g.options.Auth,
	})
	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return nil
	default:
		return errors.Wrap(err, errors.CodeIO, "syncing store branch")
	}
}

func (g *Git) hasRemote() bool {
	_, err := g.repo.Remote(DefaultRemoteName)
	return err == nil
}

func (g *Git) commitAndPush(ctx context.Context, key, message string) error {
	if err := g.commit(key, message); err != nil {
		return err
	}
	return g.push(ctx)
}

func (g *Git) commit(key, message string) error {
	if _, err := g.worktree.Add(key); err != nil {
		return errors.Wrapf(err, errors.CodeIO, "staging %q", key)
	}

	_, err := g.worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  g.options.AuthorName,
			Email: g.options.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil && !errors.Is(err, gogit.ErrEmptyCommit) {
		return errors.Wrapf(err, errors.CodeIO, "committing %q", key)
	}
	return nil
}

func (g *Git) push(ctx context.Context) error {
	if !g.hasRemote() {
		return nil
	}

	err := g.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: DefaultRemoteName,
		Auth:       g.options.Auth,
	})
	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, gogit.ErrNonFastForwardUpdate):
		return err
	default:
		return errors.Wrap(err, errors.CodeIO, "pushing store branch")
	}
}

// rollback hard-resets the local branch to the remote tip, discarding the
// commit whose push was rejected.
func (g *Git) rollback(ctx context.Context) error {
	ref, err := g.repo.Reference(
		plumbing.NewRemoteReferenceName(DefaultRemoteName, g.options.Branch), true)
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "resolving remote branch for rollback")
	}
	if err := g.worktree.Reset(&gogit.ResetOptions{
		Commit: ref.Hash(),
		Mode:   gogit.HardReset,
	}); err != nil {
		return errors.Wrap(err, errors.CodeIO, "rolling back store branch")
	}
	return g.sync(ctx)
}

var _ Store = (*Git)(nil)
