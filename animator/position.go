package animator

import (
	"fmt"
	"math"
	"sort"
)

// PositionFunc maps animation time in seconds to a ball position before remapping.
type PositionFunc func(t float64) (x, y float64)

// RemapFunc maps one coordinate into the range the shader expects.
type RemapFunc func(v float64) float64

// Orbit traces the unit circle: (cos t, sin t), both in [-1, 1].
func Orbit(t float64) (float64, float64) {
	return math.Cos(t), math.Sin(t)
}

// Center holds the ball in the middle of the frame.
func Center(float64) (float64, float64) {
	return 0.5, 0.5
}

// RemapUnit maps [-1, 1] onto [0, 1].
func RemapUnit(v float64) float64 {
	return (v + 1) / 2
}

// RemapNone passes values through. With Orbit this puts the ball off-screen for part of
// each period.
func RemapNone(v float64) float64 {
	return v
}

var remaps = map[string]RemapFunc{
	"unit": RemapUnit,
	"none": RemapNone,
}

// LookupRemap resolves a remap by name ("unit" or "none").
func LookupRemap(name string) (RemapFunc, error) {
	r, ok := remaps[name]
	if !ok {
		return nil, fmt.Errorf("unknown remap %q (want unit or none)", name)
	}
	return r, nil
}

// Variant is a named configuration of the animation: where the ball goes and how the
// position is mapped into fragment space.
type Variant struct {
	Name     string
	Position PositionFunc
	Remap    string
}

var variants = map[string]Variant{
	"orbit":     {Name: "orbit", Position: Orbit, Remap: "unit"},
	"orbit-raw": {Name: "orbit-raw", Position: Orbit, Remap: "none"},
	"center":    {Name: "center", Position: Center, Remap: "none"},
}

// LookupVariant resolves a variant by name.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("unknown variant %q (want one of %v)", name, VariantNames())
	}
	return v, nil
}

// VariantNames lists the known variants in sorted order.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
