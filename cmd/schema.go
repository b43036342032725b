package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/caas-team/lark/pkg/report"
)

type encoder interface {
	Encode(v any) error
}

// NewCmdSchema creates a new schema command
func NewCmdSchema(version string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the openapi schema of the json report",
		Long:  `Print an openapi document describing the report written by run --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := report.OpenAPI(version)
			if err != nil {
				return err
			}

			var enc encoder
			if asJSON {
				j := json.NewEncoder(cmd.OutOrStdout())
				j.SetIndent("", "  ")
				enc = j
			} else {
				enc = yaml.NewEncoder(cmd.OutOrStdout())
			}
			return enc.Encode(doc)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print json instead of yaml")

	return cmd
}
