package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"forestcover/ml"
)

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

func newPredictCommand(opts *rootOptions) *cobra.Command {
	var (
		continuous = ml.DefaultInput().Continuous()
		wilderness int
		soil       int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the cover type for the given measurements",
		Long: `Predict the cover type for one land patch. Every measurement defaults to
the form default, so only the values that differ need to be given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			predictor, err := opts.loadPredictor()
			if err != nil {
				return err
			}
			in := ml.DefaultInput().WithContinuous(continuous)
			in.WildernessArea = wilderness
			in.SoilType = soil

			prediction, err := predictor.Predict(in)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), prediction)
			}
			renderPrediction(cmd.OutOrStdout(), in, prediction)
			return nil
		},
	}

	flags := cmd.Flags()
	for _, f := range ml.ContinuousFields {
		flags.Float64Var(&continuous[f.Index], flagName(f.Name), f.Default, rangeUsage(f))
	}
	flags.IntVar(&wilderness, flagName(ml.WildernessAreas.Name), ml.WildernessAreas.Default, "wilderness area (1-4)")
	flags.IntVar(&soil, flagName(ml.SoilTypes.Name), ml.SoilTypes.Default, "soil type (1-40)")
	flags.BoolVar(&asJSON, "json", false, "print the prediction as JSON")

	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
