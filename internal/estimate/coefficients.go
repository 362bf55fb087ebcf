package estimate

import "github.com/Simplici0/buildest/internal/catalog"

// Coefficients are material quantities per square foot of total area.
type Coefficients struct {
	Bricks float64
	Cement float64
	Steel  float64
	Sand   float64
}

var coefficientTable = map[ProjectType]Coefficients{
	Residential: {Bricks: 10, Cement: 0.06, Steel: 3, Sand: 0.03},
	Commercial:  {Bricks: 12, Cement: 0.08, Steel: 4, Sand: 0.035},
	Industrial:  {Bricks: 15, Cement: 0.10, Steel: 5, Sand: 0.04},
}

const (
	aggregateCoefficient = 0.025
	readyMixCoefficient  = 0.15
)

// CoefficientsFor returns the coefficient row of t.
func CoefficientsFor(t ProjectType) (Coefficients, bool) {
	c, ok := coefficientTable[t]
	return c, ok
}

type materialLine struct {
	category catalog.Category
	name     string
	unit     string
	priority Priority
	coef     func(Coefficients) float64
	applies  func(ProjectType) bool
}

func always(ProjectType) bool { return true }

// materialLines is the derivation order; results must follow it exactly.
var materialLines = []materialLine{
	{catalog.Bricks, "Bricks", "pieces", Essential, func(c Coefficients) float64 { return c.Bricks }, always},
	{catalog.Cement, "Cement", "bags", Essential, func(c Coefficients) float64 { return c.Cement }, always},
	{catalog.Steel, "Steel reinforcement", "kg", Essential, func(c Coefficients) float64 { return c.Steel }, always},
	{catalog.Sand, "Sand", "cubic meters", Essential, func(c Coefficients) float64 { return c.Sand }, always},
	{catalog.Aggregate, "Stone aggregate", "cubic meters", Recommended,
		func(Coefficients) float64 { return aggregateCoefficient }, always},
	{catalog.ReadyMix, "Ready-mix concrete", "cubic meters", Recommended,
		func(Coefficients) float64 { return readyMixCoefficient },
		func(t ProjectType) bool { return t == Commercial || t == Industrial }},
}
