package choropleth

import (
	"fmt"
	"math"
	"sort"
)

var ylOrRd = []string{"#FFEDA0", "#FED976", "#FEB24C", "#FD8D3C", "#FC4E2A", "#E31A1C", "#BD0026", "#800026"}

var (
	Porzione = Scheme{
		Name:   "porzione",
		Label:  "Porzione count",
		Grades: []float64{0, 1, 2, 3, 4, 5, 6, 7},
		Colors: ylOrRd,
		Mode:   Above,
	}
	AverageSurface = Scheme{
		Name:   "average_surface",
		Label:  "Average CASA surface (m2)",
		Grades: []float64{0, 1000, 2000, 3000, 5000, 8000, 10000, 15000},
		Colors: ylOrRd,
		Mode:   Above,
	}
	Expropriation = Scheme{
		Name:   "expropriation",
		Label:  "Expropriations",
		Grades: []float64{0, 1, 2},
		Colors: []string{"#FFEDA0", "#E31A1C", "#BD0026"},
		Mode:   Above,
	}
	Walkability = Scheme{
		Name:   "walkability",
		Label:  "POI count",
		Grades: []float64{0, 50, 100, 200, 500, 1000, 1500, 2000},
		Colors: ylOrRd,
		Mode:   Above,
	}
)

// Indicators holds the colour schemes of the walkability indicators.
var Indicators = map[string]Scheme{
	"poi_count": {
		Label:  "POI Count",
		Grades: []float64{0, 50, 100, 200, 500, 1000, 1500, 2000},
		Colors: ylOrRd,
	},
	"poi_diversity": {
		Label:  "POI Diversity",
		Grades: []float64{0, 1, 2, 3, 4, 5, 6, 7},
		Colors: []string{"#F7FBFF", "#DEEBF7", "#C6DBEF", "#9ECAE1", "#6BAED6", "#4292C6", "#2171B5", "#08519C"},
	},
	"bottega_count": {
		Label:  "Bottega Count",
		Grades: []float64{0, 5, 10, 20, 50, 100, 200, 500},
		Colors: []string{"#FFF5F0", "#FEE0D2", "#FCBBA1", "#FC9272", "#FB6A4A", "#EF3B2C", "#CB181D", "#A50F15"},
	},
	"bottega_diversity": {
		Label:  "Bottega Diversity",
		Grades: []float64{0, 1, 2, 3, 4, 5, 6, 7},
		Colors: []string{"#F7FCF0", "#E0F3DB", "#CCEBC5", "#A8DDB5", "#7BCCC4", "#4EB3D3", "#2B8CBE", "#0868AC"},
	},
	"shannon_bottega": {
		Label:  "Shannon Bottega Entropy",
		Grades: []float64{0, 0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5},
		Colors: []string{"#FCFBFD", "#EFEDF5", "#DADAEB", "#BCBDDC", "#9E9AC8", "#807DBA", "#6A51A3", "#54278F"},
	},
	"rent_sum": {
		Label:  "Total Rent Value",
		Grades: []float64{0, 100, 500, 1000, 2000, 5000, 10000, 20000},
		Colors: ylGnBu,
	},
	"rent_mean": {
		Label:  "Average Rent",
		Grades: []float64{0, 10, 25, 50, 100, 200, 500, 1000},
		Colors: ylGnBu,
	},
	"rent_median": {
		Label:  "Median Rent",
		Grades: []float64{0, 10, 25, 50, 100, 200, 500, 1000},
		Colors: ylGnBu,
	},
	"owner_entity_counts": {
		Label:  "Owner Entity Count",
		Grades: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		Colors: []string{"#FFF7EC", "#FEE8C8", "#FDD49E", "#FDBB84", "#FC8D59", "#EF6548", "#D7301F", "#B30000"},
	},
	"multi_owner_count": {
		Label:  "Multi-Owner Properties",
		Grades: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		Colors: []string{"#F7F4F9", "#E7E1EF", "#D4B9DA", "#C994C7", "#DF65B0", "#E7298A", "#CE1256", "#91003F"},
	},
	"gini_owner": {
		Label:  "Owner Gini Coefficient",
		Grades: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8},
		Colors: []string{"#F7FCF5", "#E5F5E0", "#C7E9C0", "#A1D99B", "#74C476", "#41AB5D", "#238B45", "#006D2C"},
	},
}

var ylGnBu = []string{"#FFFFD9", "#EDF8B1", "#C7E9B4", "#7FCDBB", "#41B6C4", "#1D91C0", "#225EA8", "#253494"}

func init() {
	for name, s := range Indicators {
		s.Name = name
		s.Mode = AtLeast
		Indicators[name] = s
	}
}

// Indicator returns the scheme of a walkability indicator.
func Indicator(name string) (Scheme, bool) {
	s, ok := Indicators[name]
	return s, ok
}

// IndicatorNames lists the indicator schemes in name order.
func IndicatorNames() []string {
	names := make([]string, 0, len(Indicators))
	for name := range Indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SeedColor derives a stable "rgb(r, g, b)" colour from seed, so that a
// category keeps its colour across runs.
func SeedColor(seed string) string {
	hash := 0
	for _, r := range seed {
		hash += int(r)
	}
	n := math.Abs(math.Sin(float64(hash))) * 1000
	channel := func(offset float64) int {
		return int(math.Floor((math.Sin(n+offset) + 1) * 127.5))
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", channel(0), channel(1), channel(2))
}
