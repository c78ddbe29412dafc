package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"forestcover/ml"
)

type schemaOutput struct {
	Fields         []ml.Field         `json:"fields"`
	WildernessArea ml.Selector        `json:"wilderness_area"`
	SoilType       ml.Selector        `json:"soil_type"`
	CoverTypes     []ml.CoverTypeInfo `json:"cover_types"`
}

func newSchemaCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the input fields, their ranges and defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), schemaOutput{
					Fields:         ml.ContinuousFields[:],
					WildernessArea: ml.WildernessAreas,
					SoilType:       ml.SoilTypes,
					CoverTypes:     ml.CoverTypes(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), schemaTable())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the schema as JSON")
	return cmd
}
