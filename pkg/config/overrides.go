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

package config

import (
	"context"
	"fmt"
	"os"

	"github.com/caas-team/lark/internal/helper"
	"github.com/caas-team/lark/internal/logger"
	"github.com/caas-team/lark/pkg/probes"
	"gopkg.in/yaml.v3"
)

// overridesFile is the layout of the overrides file
type overridesFile struct {
	Probes map[string]map[string]any `yaml:"probes"`
}

// LoadOverrides reads per-probe overrides from a yaml file.
// An empty path yields no overrides.
func LoadOverrides(ctx context.Context, path string) (map[string]probes.Override, error) {
	log := logger.FromContext(ctx)
	if path == "" {
		return map[string]probes.Override{}, nil
	}

	log.Info("Reading overrides from file", "file", path)
	b, err := os.ReadFile(path)
	if err != nil {
		log.Error("Failed to read overrides file", "path", path, "error", err)
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}

	var f overridesFile
	if err = yaml.Unmarshal(b, &f); err != nil {
		log.Error("Failed to parse overrides file", "error", err)
		return nil, fmt.Errorf("failed to parse overrides file: %w", err)
	}

	out := make(map[string]probes.Override, len(f.Probes))
	for name, raw := range f.Probes {
		o, err := helper.Decode[probes.Override](raw)
		if err != nil {
			log.Error("Failed to decode overrides", "probe", name, "error", err)
			return nil, fmt.Errorf("invalid overrides for probe %q: %w", name, err)
		}
		out[name] = o
	}
	return out, nil
}
