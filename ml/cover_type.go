package ml

import "fmt"

const CoverTypeCount = 7

var coverTypeNames = [CoverTypeCount]string{
	"Spruce/Fir",
	"Lodgepole Pine",
	"Ponderosa Pine",
	"Cottonwood/Willow",
	"Aspen",
	"Douglas-fir",
	"Krummholz",
}

// CoverType is a 1-based cover type label.
type CoverType int

func (c CoverType) Valid() bool {
	return c >= 1 && c <= CoverTypeCount
}

func (c CoverType) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CoverType(%d)", int(c))
	}
	return coverTypeNames[c-1]
}

// CoverTypeInfo is a label/name pair for listings.
type CoverTypeInfo struct {
	Label int    `json:"label"`
	Name  string `json:"name"`
}

func CoverTypes() []CoverTypeInfo {
	out := make([]CoverTypeInfo, CoverTypeCount)
	for i := range out {
		out[i] = CoverTypeInfo{Label: i + 1, Name: coverTypeNames[i]}
	}
	return out
}
