// Package units formats metric magnitudes as metric or imperial display strings.
package units

import (
	"fmt"
	"math"
	"strings"
)

// System selects the unit system used for display
type System int

const (
	Metric System = iota
	Imperial
)

// System names accepted by ParseSystem
const (
	MetricName   = "metric"
	ImperialName = "imperial"
)

// Conversion constants from SI units
const (
	InchesPerMeter       = 39.3701
	FeetPerMeter         = 3.28084
	SquareFeetPerSqMeter = 10.764
	CubicFeetPerCuMeter  = 35.315
	SquareInchesPerSqFt  = 144.0
	CubicInchesPerCuFt   = 1728.0
)

// Placeholder is rendered instead of a number when the input is NaN or infinite
const Placeholder = "--"

// ValidSystems contains all valid unit system names
var ValidSystems = []string{MetricName, ImperialName}

// String returns the lowercase name of the unit system
func (s System) String() string {
	switch s {
	case Metric:
		return MetricName
	case Imperial:
		return ImperialName
	default:
		return fmt.Sprintf("System(%d)", int(s))
	}
}

// ParseSystem converts a unit system name to a System
func ParseSystem(name string) (System, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MetricName:
		return Metric, nil
	case ImperialName:
		return Imperial, nil
	default:
		return Metric, fmt.Errorf("invalid unit system %q (valid: %s)", name, strings.Join(ValidSystems, ", "))
	}
}

// SystemFor maps the engine's metric flag to a System
func SystemFor(useMetric bool) System {
	if useMetric {
		return Metric
	}
	return Imperial
}

// FormatLength renders a length given in meters
func FormatLength(meters float32, system System) string {
	m := float64(meters)
	if !finite(m) {
		return Placeholder
	}

	if system == Imperial {
		return formatImperialLength(m)
	}

	// Thresholds compare in float32 so that 0.01 lands in centimeters.
	switch {
	case meters < 0.01:
		return fmt.Sprintf("%.1f mm", m*1000)
	case meters < 1.0:
		return fmt.Sprintf("%.1f cm", m*100)
	default:
		return fmt.Sprintf("%.2f m", m)
	}
}

func formatImperialLength(m float64) string {
	feet := m * FeetPerMeter
	switch {
	case feet < 1:
		return fmt.Sprintf("%.1f in", m*InchesPerMeter)
	case feet <= 3:
		whole := math.Floor(feet)
		inches := math.Round((feet-whole)*12*10) / 10
		if inches >= 12 {
			whole++
			inches = 0
		}
		return fmt.Sprintf("%d' %.1f\"", int(whole), inches)
	default:
		return fmt.Sprintf("%.2f ft", feet)
	}
}

// FormatArea renders an area given in square meters
func FormatArea(squareMeters float32, system System) string {
	m2 := float64(squareMeters)
	if !finite(m2) {
		return Placeholder
	}

	if system == Imperial {
		ft2 := m2 * SquareFeetPerSqMeter
		if ft2 < 1 {
			return fmt.Sprintf("%.1f in²", ft2*SquareInchesPerSqFt)
		}
		return fmt.Sprintf("%.2f ft²", ft2)
	}

	if m2 < 1 {
		return fmt.Sprintf("%.1f cm²", m2*1e4)
	}
	return fmt.Sprintf("%.2f m²", m2)
}

// FormatVolume renders a volume given in cubic meters
func FormatVolume(cubicMeters float32, system System) string {
	m3 := float64(cubicMeters)
	if !finite(m3) {
		return Placeholder
	}

	if system == Imperial {
		ft3 := m3 * CubicFeetPerCuMeter
		if ft3 < 1 {
			return fmt.Sprintf("%.1f in³", ft3*CubicInchesPerCuFt)
		}
		return fmt.Sprintf("%.2f ft³", ft3)
	}

	switch {
	case cubicMeters < 1e-6:
		return fmt.Sprintf("%.1f mm³", m3*1e9)
	case cubicMeters < 1e-3:
		return fmt.Sprintf("%.1f cm³", m3*1e6)
	case cubicMeters < 1:
		return fmt.Sprintf("%.2f L", m3*1e3)
	default:
		return fmt.Sprintf("%.3f m³", m3)
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
