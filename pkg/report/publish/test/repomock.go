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

package repomock

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// NewInMemory returns an in-memory repository with one empty initial commit
func NewInMemory(t *testing.T) *git.Repository {
	t.Helper()
	r, err := git.Init(memory.NewStorage(), memfs.New())
	if err != nil {
		t.Fatalf("Failed to initialize in-memory git repository: %v", err)
	}

	w, err := r.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree while initializing in-memory git repository: %v", err)
	}

	_, err = w.Commit("Initial commit", &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "author@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Failed to commit to in-memory git repository: %v", err)
	}
	return r
}

// Head returns the commit HEAD points to
func Head(t *testing.T, r *git.Repository) *object.Commit {
	t.Helper()
	ref, err := r.Head()
	if err != nil {
		t.Fatalf("Failed to get HEAD: %v", err)
	}
	c, err := r.CommitObject(ref.Hash())
	if err != nil {
		t.Fatalf("Failed to get HEAD commit: %v", err)
	}
	return c
}

// FileAt returns the content of name in commit c
func FileAt(t *testing.T, c *object.Commit, name string) string {
	t.Helper()
	f, err := c.File(name)
	if err != nil {
		t.Fatalf("Failed to find %s in commit %s: %v", name, c.Hash, err)
	}
	content, err := f.Contents()
	if err != nil {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	return content
}
