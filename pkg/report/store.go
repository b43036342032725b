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

package report

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/caas-team/lark/internal/logger"
	"github.com/go-git/go-billy/v5"
)

// DefaultDir is the directory reports are written to, relative to the filesystem root
const DefaultDir = "DailyIntegrationTestResult"

// Store persists rendered reports, one file per calendar day
type Store struct {
	fs       billy.Filesystem
	dir      string
	renderer Renderer
}

// NewStore returns a store writing below dir on fs.
func NewStore(fs billy.Filesystem, dir string, r Renderer) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{fs: fs, dir: dir, renderer: r}
}

// Path returns the path the report of rep's day is written to, relative to the filesystem root.
func (s *Store) Path(rep *Report) string {
	return path.Join(s.dir, FileName(rep.GeneratedAt, s.renderer))
}

// Save renders rep and writes it, replacing an earlier report of the same day.
func (s *Store) Save(ctx context.Context, rep *Report) (p string, err error) {
	log := logger.FromContext(ctx)

	content, err := s.renderer.Render(rep)
	if err != nil {
		return "", err
	}

	if err = s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	p = s.Path(rep)
	f, err := s.fs.Create(p)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close report file: %w", cErr))
		}
	}()

	if _, err = f.Write(content); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	log.Debug("Report written", "path", s.fs.Join(s.fs.Root(), p), "bytes", len(content))
	return p, nil
}
