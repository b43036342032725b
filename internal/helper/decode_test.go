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

package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testOverride struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
	BaseURL string        `mapstructure:"baseUrl"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

// Test case structure
type test[T any] struct {
	name      string
	input     any
	want      T
	expectErr bool
}

func TestDecode(t *testing.T) {
	tests := []test[testOverride]{
		{
			name: "Valid input",
			input: map[string]any{
				"enabled": "true",
				"timeout": "15s",
				"baseUrl": "https://github.example.com/api/v3",
				"retry": map[string]any{
					"count": "2",
					"delay": "500ms",
				},
			},
			want: testOverride{
				Enabled: true,
				Timeout: 15 * time.Second,
				BaseURL: "https://github.example.com/api/v3",
				Retry:   RetryConfig{Count: 2, Delay: 500 * time.Millisecond},
			},
			expectErr: false,
		},
		{
			name:      "Unknown key",
			input:     map[string]any{"timeuot": "15s"},
			want:      testOverride{},
			expectErr: true,
		},
		{
			name:      "Invalid input type",
			input:     "invalid input",
			want:      testOverride{},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode[testOverride](tt.input)

			if (err != nil) != tt.expectErr {
				t.Errorf("Decode() error = %v, expectErr %v", err, tt.expectErr)
			}
			if !tt.expectErr {
				assert.Equal(t, tt.want, got, "Decode() = %v, want %v", got, tt.want)
			}
		})
	}
}
