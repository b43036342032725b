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
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/caas-team/lark/internal/logger"
	"github.com/caas-team/lark/pkg/probes"
	"github.com/joho/godotenv"
)

// EnvironmentCredentials returns the keys set in the process environment.
func EnvironmentCredentials(keys []string) probes.Credentials {
	creds := probes.Credentials{}
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			creds[k] = v
		}
	}
	return creds
}

// LoadCredentials reads keys from the process environment.
// When envFile is set, its variables fill in keys the environment does not define.
// Only key names are logged, never values. A malformed env file yields an error
// that names the file and line but carries none of its content.
func LoadCredentials(ctx context.Context, envFile string, keys []string) (probes.Credentials, error) {
	log := logger.FromContext(ctx)

	creds := EnvironmentCredentials(keys)
	if envFile != "" {
		file, err := readEnvFile(envFile)
		if err != nil {
			log.Error("Failed to read env file", "path", envFile)
			return nil, err
		}
		log.Debug("Read env file", "path", envFile, "variables", len(file))
		for _, k := range keys {
			if _, set := creds[k]; set {
				continue
			}
			if v, ok := file[k]; ok {
				creds[k] = v
			}
		}
	}

	var present []string
	for _, k := range keys {
		if _, set := creds.Get(k); set {
			present = append(present, k)
		}
	}

	log.Info("Credentials loaded", "present", present, "configured", len(present), "known", len(keys))
	return creds, nil
}

func readEnvFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvFile, err)
	}
	vars, err := godotenv.Unmarshal(string(b))
	if err != nil {
		// the parser quotes the remaining content, which may hold secrets
		return nil, fmt.Errorf("%w: %s: malformed content at line %d", ErrInvalidEnvFile, path, malformedLine(b))
	}
	return vars, nil
}

// malformedLine returns the first line at which content stops parsing
func malformedLine(content []byte) int {
	lines := bytes.SplitAfter(content, []byte("\n"))
	for n := 1; n <= len(lines); n++ {
		if _, err := godotenv.Unmarshal(string(bytes.Join(lines[:n], nil))); err != nil {
			return n
		}
	}
	return len(lines)
}
