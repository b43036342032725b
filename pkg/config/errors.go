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

import "errors"

var (
	// ErrInvalidOutputDir is returned when the report directory is empty
	ErrInvalidOutputDir = errors.New("invalid output directory")
	// ErrInvalidFormat is returned when the report format is unknown
	ErrInvalidFormat = errors.New("invalid report format")
	// ErrInvalidTimeout is returned when the probe timeout is out of range
	ErrInvalidTimeout = errors.New("invalid probe timeout")
	// ErrInvalidFile is returned when a configured input file cannot be read
	ErrInvalidFile = errors.New("invalid file")
	// ErrInvalidEnvFile is returned when the env file cannot be read or parsed
	ErrInvalidEnvFile = errors.New("invalid env file")
	// ErrInvalidGitConfig is returned when the git options are inconsistent
	ErrInvalidGitConfig = errors.New("invalid git configuration")
)
