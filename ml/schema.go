package ml

import "fmt"

const (
	ContinuousCount = 10
	WildernessCount = 4
	SoilCount       = 40
	VectorLen       = ContinuousCount + WildernessCount + SoilCount

	wildernessOffset = ContinuousCount
	soilOffset       = ContinuousCount + WildernessCount
)

// Field describes one continuous input: its position in the vector, the
// valid range enforced by the form widgets, and the widget default.
type Field struct {
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Unit    string  `json:"unit,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

func (f Field) Contains(v float64) bool {
	return v >= f.Min && v <= f.Max
}

func (f Field) Clamp(v float64) float64 {
	if v < f.Min {
		return f.Min
	}
	if v > f.Max {
		return f.Max
	}
	return v
}

// ContinuousFields is the vector order of the continuous segment.
var ContinuousFields = [ContinuousCount]Field{
	{Index: 0, Name: "elevation", Label: "Elevation", Unit: "m", Min: 1800, Max: 4000, Default: 2700},
	{Index: 1, Name: "aspect", Label: "Aspect", Unit: "degrees", Min: 0, Max: 360, Default: 180},
	{Index: 2, Name: "slope", Label: "Slope", Unit: "degrees", Min: 0, Max: 70, Default: 20},
	{Index: 3, Name: "horizontal_distance_to_hydrology", Label: "Horizontal Distance to Hydrology", Unit: "m", Min: 0, Max: 500, Default: 50},
	{Index: 4, Name: "vertical_distance_to_hydrology", Label: "Vertical Distance to Hydrology", Unit: "m", Min: -300, Max: 300, Default: 0},
	{Index: 5, Name: "horizontal_distance_to_roadways", Label: "Horizontal Distance to Roadways", Unit: "m", Min: 0, Max: 7000, Default: 2000},
	{Index: 6, Name: "hillshade_9am", Label: "Hillshade at 9am", Min: 0, Max: 255, Default: 200},
	{Index: 7, Name: "hillshade_noon", Label: "Hillshade at Noon", Min: 0, Max: 255, Default: 220},
	{Index: 8, Name: "hillshade_3pm", Label: "Hillshade at 3pm", Min: 0, Max: 255, Default: 150},
	{Index: 9, Name: "horizontal_distance_to_fire_points", Label: "Horizontal Distance to Fire Points", Unit: "m", Min: 0, Max: 7000, Default: 1500},
}

// Selector describes a 1-based categorical input that is one-hot encoded.
type Selector struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Offset  int    `json:"offset"`
	Default int    `json:"default"`
}

func (s Selector) Valid(k int) bool {
	return k >= 1 && k <= s.Count
}

var (
	WildernessAreas = Selector{Name: "wilderness_area", Label: "Wilderness Area", Count: WildernessCount, Offset: wildernessOffset, Default: 1}
	SoilTypes       = Selector{Name: "soil_type", Label: "Soil Type", Count: SoilCount, Offset: soilOffset, Default: 10}
)

// WildernessOptions returns the dropdown labels, "Area 1" through "Area 4".
func WildernessOptions() []string {
	options := make([]string, WildernessCount)
	for i := range options {
		options[i] = fmt.Sprintf("Area %d", i+1)
	}
	return options
}

// FeatureNames returns the 54 column names in vector order.
func FeatureNames() []string {
	names := make([]string, 0, VectorLen)
	for _, f := range ContinuousFields {
		names = append(names, f.Name)
	}
	for i := 1; i <= WildernessCount; i++ {
		names = append(names, fmt.Sprintf("wilderness_area_%d", i))
	}
	for i := 1; i <= SoilCount; i++ {
		names = append(names, fmt.Sprintf("soil_type_%d", i))
	}
	return names
}
