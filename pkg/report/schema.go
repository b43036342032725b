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
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
)

const schemaName = "Report"

// Schema returns the openapi3 schema of the json report
func Schema() (*openapi3.SchemaRef, error) {
	ref, err := openapi3gen.NewSchemaRefForValue(Report{}, openapi3.Schemas{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate report schema: %w", err)
	}
	return ref, nil
}

// OpenAPI returns an openapi document carrying the report schema as its only component
func OpenAPI(version string) (openapi3.T, error) {
	ref, err := Schema()
	if err != nil {
		return openapi3.T{}, err
	}
	return openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "lark integration status report",
			Description: "Structure of the json report written by lark run --format json",
			Version:     version,
		},
		Paths: make(openapi3.Paths),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{schemaName: ref},
		},
	}, nil
}
