package measurement

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SomeOppaiBoy/true-scale/internal/ar"
	"github.com/SomeOppaiBoy/true-scale/pkg/geometry"
)

// Mode selects which quantity a measurement reports
type Mode int

const (
	Distance Mode = iota
	Height
	Area
	Volume
)

const modeCount = 4

// Modes lists every mode in cycling order
var Modes = []Mode{Distance, Height, Area, Volume}

// Next returns the following mode, wrapping from Volume back to Distance
func (m Mode) Next() Mode {
	return Mode((int(m) + 1) % modeCount)
}

func (m Mode) String() string {
	switch m {
	case Distance:
		return "distance"
	case Height:
		return "height"
	case Area:
		return "area"
	case Volume:
		return "volume"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name to a Mode
func ParseMode(name string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(strings.TrimSpace(name), m.String()) {
			return m, nil
		}
	}
	return Distance, fmt.Errorf("invalid mode %q (valid: distance, height, area, volume)", name)
}

// Phase is the point-collection state of the engine
type Phase int

const (
	// Idle has no pending start point
	Idle Phase = iota
	// AwaitingSecondPoint holds a start point waiting for its pair
	AwaitingSecondPoint
)

func (p Phase) String() string {
	if p == AwaitingSecondPoint {
		return "awaiting-second-point"
	}
	return "idle"
}

// Point is an accepted surface hit. It refers to its anchor only by ledger ID.
type Point struct {
	ID         uuid.UUID
	Position   geometry.Vector3
	AnchorID   uuid.UUID
	Confidence float32
	Timestamp  time.Time
	// Offset is the hit-test jitter that found this point, for diagnostics.
	Offset ar.ScreenOffset
}

// Measurement is a finished start/end pair. Values are derived on demand.
type Measurement struct {
	ID    uuid.UUID
	Start Point
	End   Point
	// Mode is the mode the measurement was taken in.
	Mode Mode
}

// Value returns the measured quantity for mode in SI units (m, m², m³)
func (m Measurement) Value(mode Mode) float32 {
	return valueBetween(m.Start.Position, m.End.Position, mode)
}

// Distance returns the straight-line length between the endpoints
func (m Measurement) Distance() float32 {
	return geometry.Distance(m.Start.Position, m.End.Position)
}

// AnchorIDs returns the ledger IDs of both endpoints
func (m Measurement) AnchorIDs() [2]uuid.UUID {
	return [2]uuid.UUID{m.Start.AnchorID, m.End.AnchorID}
}

func valueBetween(a, b geometry.Vector3, mode Mode) float32 {
	switch mode {
	case Height:
		return geometry.Height(a, b)
	case Area:
		return geometry.RectangleArea(a, b)
	case Volume:
		return geometry.BoxVolume(a, b)
	default:
		return geometry.Distance(a, b)
	}
}
