package measurement

import "github.com/SomeOppaiBoy/true-scale/pkg/units"

// FormattedValue renders the measurement's quantity for mode in the given unit system
func FormattedValue(m Measurement, mode Mode, system units.System) string {
	return FormatValue(m.Value(mode), mode, system)
}

// FormatValue renders a raw SI quantity for mode, e.g. a live preview value
func FormatValue(value float32, mode Mode, system units.System) string {
	switch mode {
	case Area:
		return units.FormatArea(value, system)
	case Volume:
		return units.FormatVolume(value, system)
	default:
		return units.FormatLength(value, system)
	}
}
