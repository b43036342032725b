// lark
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package publish commits daily reports to the git repository they are written into.
package publish

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/caas-team/lark/internal/logger"
	"github.com/go-git/go-billy/v5"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

const (
	defaultRemote = "origin"
	tokenUser     = "x-access-token"
)

// Options configure how reports are committed
type Options struct {
	AuthorName  string
	AuthorEmail string
	// Push pushes the commit to Remote
	Push bool
	// Remote defaults to origin
	Remote string
	// Token authenticates the push over https. It is a secret and must be redacted.
	Token string
}

// pusher is the interface for the remote operations on the repository
type pusher interface {
	// PushContext pushes the local commits to the remote repository
	PushContext(ctx context.Context, r *git.Repository, o *git.PushOptions) error
}

type operator struct{}

func (operator) PushContext(ctx context.Context, r *git.Repository, o *git.PushOptions) error {
	return r.PushContext(ctx, o)
}

// Publisher commits files of a repository's worktree
type Publisher struct {
	repo   *git.Repository
	remote pusher
	opts   Options
	now    func() time.Time
}

// Open opens the repository containing dir.
func Open(dir string, opts Options) (*Publisher, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return New(r, opts), nil
}

// New returns a publisher for repo.
func New(repo *git.Repository, opts Options) *Publisher {
	if opts.Remote == "" {
		opts.Remote = defaultRemote
	}
	if opts.AuthorName == "" {
		opts.AuthorName = "lark"
	}
	return &Publisher{repo: repo, remote: operator{}, opts: opts, now: time.Now}
}

// Filesystem returns the worktree filesystem. Files written to it can be committed.
func (p *Publisher) Filesystem() (billy.Filesystem, error) {
	w, err := p.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	return w.Filesystem, nil
}

// Commit stages and commits file, a path relative to the worktree root, and pushes if configured.
// It returns the zero hash when the file did not change.
func (p *Publisher) Commit(ctx context.Context, file string) (plumbing.Hash, error) {
	log := logger.FromContext(ctx).With("file", file)

	w, err := p.repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err = w.Add(file); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to stage file: %w", err)
	}

	hash, err := w.Commit(fmt.Sprintf("Add integration status report %s", path.Base(file)), &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.opts.AuthorName,
			Email: p.opts.AuthorEmail,
			When:  p.now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		log.Info("Report unchanged, nothing to commit")
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to commit file: %w", err)
	}
	log.Info("Report committed", "commit", hash.String())

	if !p.opts.Push {
		return hash, nil
	}
	if err = p.push(ctx); err != nil {
		return hash, err
	}
	log.Info("Report pushed", "remote", p.opts.Remote)
	return hash, nil
}

func (p *Publisher) push(ctx context.Context) error {
	o := &git.PushOptions{RemoteName: p.opts.Remote}
	if p.opts.Token != "" {
		o.Auth = &http.BasicAuth{Username: tokenUser, Password: p.opts.Token}
	}
	err := p.remote.PushContext(ctx, p.repo, o)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push to %s: %w", p.opts.Remote, err)
	}
	return nil
}
