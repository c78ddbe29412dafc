package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"forestcover/ml"
)

func newFormCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "form",
		Short: "Fill in the measurements interactively and predict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load first so a bad artifact fails before any prompting.
			predictor, err := opts.loadPredictor()
			if err != nil {
				return err
			}
			in, err := runForm(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			prediction, err := predictor.Predict(in)
			if err != nil {
				return err
			}
			renderPrediction(cmd.OutOrStdout(), in, prediction)
			return nil
		},
	}
}

// formValues holds the raw text of every widget.
type formValues struct {
	continuous [ml.ContinuousCount]string
	wilderness int
	soil       string
}

func defaultFormValues() *formValues {
	v := &formValues{wilderness: ml.WildernessAreas.Default, soil: strconv.Itoa(ml.SoilTypes.Default)}
	for _, f := range ml.ContinuousFields {
		v.continuous[f.Index] = formatNumber(f.Default)
	}
	return v
}

func (v *formValues) input() (ml.Input, error) {
	in := ml.DefaultInput()
	for _, f := range ml.ContinuousFields {
		x, err := parseField(f.Name, v.continuous[f.Index])
		if err != nil {
			return ml.Input{}, err
		}
		if err := in.SetField(f.Name, x); err != nil {
			return ml.Input{}, err
		}
	}
	in.WildernessArea = v.wilderness
	soil, err := parseField(ml.SoilTypes.Name, v.soil)
	if err != nil {
		return ml.Input{}, err
	}
	if err := in.SetField(ml.SoilTypes.Name, soil); err != nil {
		return ml.Input{}, err
	}
	return in, in.Validate()
}

func parseField(name, raw string) (float64, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", name, raw)
	}
	return x, nil
}

func validateRange(min, max float64) func(string) error {
	return func(s string) error {
		x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("enter a number")
		}
		if x < min || x > max {
			return fmt.Errorf("must be between %s and %s", formatNumber(min), formatNumber(max))
		}
		return nil
	}
}

func runForm(in io.Reader, out io.Writer) (ml.Input, error) {
	values := defaultFormValues()

	terrain := make([]huh.Field, 0, ml.ContinuousCount)
	for _, f := range ml.ContinuousFields {
		terrain = append(terrain, huh.NewInput().
			Title(f.Label).
			Description(rangeUsage(f)).
			Value(&values.continuous[f.Index]).
			Validate(validateRange(f.Min, f.Max)))
	}

	wilderness := make([]huh.Option[int], 0, ml.WildernessCount)
	for i, name := range ml.WildernessOptions() {
		wilderness = append(wilderness, huh.NewOption(name, i+1))
	}

	form := huh.NewForm(
		huh.NewGroup(terrain...).Title("Environmental Attributes"),
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Wilderness Area").
				Options(wilderness...).
				Value(&values.wilderness),
			huh.NewInput().
				Title(fmt.Sprintf("Soil Type Number (1-%d)", ml.SoilCount)).
				Value(&values.soil).
				Validate(func(s string) error {
					if err := validateRange(1, ml.SoilCount)(s); err != nil {
						return err
					}
					if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
						return fmt.Errorf("enter a whole number")
					}
					return nil
				}),
		).Title("Wilderness and Soil"),
	).
		WithInput(in).
		WithOutput(out)

	// Accessible mode for non-TTY input such as pipes.
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return ml.Input{}, fmt.Errorf("form failed: %w", err)
	}
	return values.input()
}
