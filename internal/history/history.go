// Package history records every persisted change of a table file as a git
// commit, using go-git so no git binary is needed.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/maruel/csvdb/internal/csvdb"
)

// Commit is one entry of the history.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}

// Repo is a git repository holding one or more table files.
type Repo struct {
	dir   string
	name  string
	email string

	mu   sync.Mutex
	repo *gogit.Repository
}

// Open opens the git repository at dir, initializing it when needed.
//
// name and email are used as author and committer and written to the
// repository config on initialization.
func Open(_ context.Context, dir, name, email string) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(abs)
	if err != nil {
		// Not a repo yet, initialize it.
		repo, err = gogit.PlainInit(abs, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = name
		cfg.User.Email = email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
		slog.Info("Initialized history repository", "dir", abs)
	}
	return &Repo{dir: abs, name: name, email: email, repo: repo}, nil
}

// Dir returns the repository's working directory.
func (r *Repo) Dir() string {
	return r.dir
}

// Commit stages file and commits it with msg. Nothing is committed when the
// file is unchanged.
func (r *Repo) Commit(_ context.Context, file, msg string) error {
	rel, err := r.rel(file)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	w, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(rel); err != nil {
		return fmt.Errorf("failed to stage %s: %w", rel, err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if fs, ok := status[rel]; !ok || fs.Staging == gogit.Unmodified {
		return nil
	}
	now := time.Now()
	sig := &object.Signature{Name: r.name, Email: r.email, When: now}
	if _, err := w.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Log returns up to n commits, newest first. An empty repository has no
// history and is not an error; a broken one is.
func (r *Repo) Log(_ context.Context, n int) ([]*Commit, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	iter, err := r.repo.Log(&gogit.LogOptions{})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer iter.Close()
	var commits []*Commit
	for range n {
		c, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, &Commit{
			Hash:    c.Hash.String(),
			Message: subject,
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
	}
	return commits, nil
}

// Observer returns a csvdb.Observer committing table's file after each
// mutation. The file must live inside the repository.
func (r *Repo) Observer(ctx context.Context, table *csvdb.Table) (csvdb.Observer, error) {
	if _, err := r.rel(table.Path()); err != nil {
		return nil, err
	}
	return &observer{ctx: ctx, repo: r, path: table.Path(), key: table.KeyColumn()}, nil
}

// rel returns file relative to the repository root, with forward slashes.
func (r *Repo) rel(file string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", file, err)
	}
	rel, err := filepath.Rel(r.dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside of repository %s", file, r.dir)
	}
	return filepath.ToSlash(rel), nil
}

type observer struct {
	ctx  context.Context
	repo *Repo
	path string
	key  string
}

func (o *observer) OnInsert(row csvdb.Record) {
	o.commit(fmt.Sprintf("insert: %s=%s", o.key, row[o.key]))
}

func (o *observer) OnUpdate(prev, curr csvdb.Record) {
	o.commit(fmt.Sprintf("update: %s=%s", o.key, prev[o.key]))
}

func (o *observer) OnDelete(row csvdb.Record) {
	o.commit(fmt.Sprintf("delete: %s=%s", o.key, row[o.key]))
}

func (o *observer) commit(msg string) {
	if err := o.repo.Commit(o.ctx, o.path, msg); err != nil {
		slog.WarnContext(o.ctx, "Failed to commit table change", "path", o.path, "err", err)
	}
}
