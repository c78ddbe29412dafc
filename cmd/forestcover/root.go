package main

import (
	"github.com/spf13/cobra"

	"forestcover/ml"
)

var version = "dev"

type rootOptions struct {
	scalerPath     string
	classifierPath string
	validation     string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "forestcover",
		Short: "Predict the forest cover type of a land patch",
		Long: `forestcover predicts one of seven forest cover types for a land patch in
Roosevelt National Forest from ten terrain measurements, a wilderness area
and a soil type.`,
		Version:      version,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.scalerPath, "scaler", "models/forest_cover_scaler.json", "path to the scaler artifact")
	flags.StringVar(&opts.classifierPath, "classifier", "models/forest_cover_model.json", "path to the classifier artifact")
	flags.StringVar(&opts.validation, "validation", string(ml.ModeReject), "out-of-range handling: reject or clamp")

	cmd.AddCommand(newPredictCommand(opts))
	cmd.AddCommand(newFormCommand(opts))
	cmd.AddCommand(newSchemaCommand())

	return cmd
}

// loadPredictor loads both artifacts. Nothing is predicted if either fails.
func (o *rootOptions) loadPredictor() (*ml.Predictor, error) {
	mode, err := ml.ParseValidationMode(o.validation)
	if err != nil {
		return nil, err
	}
	return ml.LoadPredictor(o.scalerPath, o.classifierPath, ml.WithValidationMode(mode))
}
