package sim

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/SomeOppaiBoy/true-scale/internal/ar"
	"github.com/SomeOppaiBoy/true-scale/pkg/geometry"
)

const maxSceneFileSize = 1 * 1024 * 1024 // 1MB

// Step kinds
const (
	StepTap      = "tap"
	StepTick     = "tick"
	StepMode     = "mode"
	StepUnits    = "units"
	StepClear    = "clear"
	StepTracking = "tracking"
	StepDispose  = "dispose"
)

// SceneFile is the YAML representation of a scripted session
type SceneFile struct {
	Camera     [3]float32      `yaml:"camera"`
	Depth      bool            `yaml:"depth"`
	Tracking   string          `yaml:"tracking"`
	Trackables []TrackableSpec `yaml:"trackables"`
	Hits       []HitSpec       `yaml:"hits"`
	Steps      []Step          `yaml:"steps"`
}

// TrackableSpec declares a trackable that hit regions can refer to by ID
type TrackableSpec struct {
	ID          string     `yaml:"id"`
	Type        string     `yaml:"type"` // plane, point or other
	State       string     `yaml:"state"`
	Orientation string     `yaml:"orientation"` // planes only
	Center      [3]float32 `yaml:"center"`
	Extents     [2]float32 `yaml:"extents"`
	SubsumedBy  string     `yaml:"subsumed_by"`
	Normal      bool       `yaml:"normal"` // points only
}

// HitSpec maps a screen rectangle [x0, y0, x1, y1] to a world position on a trackable
type HitSpec struct {
	Rect      [4]float32 `yaml:"rect"`
	Trackable string     `yaml:"trackable"`
	Position  [3]float32 `yaml:"position"`
}

// Step is one scripted user or runtime event. Exactly one action field is set.
type Step struct {
	AtMillis int64       `yaml:"at_ms"`
	Tap      *[2]float32 `yaml:"tap,omitempty"`
	Tick     *[2]float32 `yaml:"tick,omitempty"`
	Mode     string      `yaml:"mode,omitempty"`
	Units    string      `yaml:"units,omitempty"` // metric, imperial or toggle
	Clear    bool        `yaml:"clear,omitempty"`
	Tracking string      `yaml:"tracking,omitempty"`
	Dispose  bool        `yaml:"dispose,omitempty"`
}

// Kind returns the step's action name
func (s Step) Kind() (string, error) {
	var kinds []string
	if s.Tap != nil {
		kinds = append(kinds, StepTap)
	}
	if s.Tick != nil {
		kinds = append(kinds, StepTick)
	}
	if s.Mode != "" {
		kinds = append(kinds, StepMode)
	}
	if s.Units != "" {
		kinds = append(kinds, StepUnits)
	}
	if s.Clear {
		kinds = append(kinds, StepClear)
	}
	if s.Tracking != "" {
		kinds = append(kinds, StepTracking)
	}
	if s.Dispose {
		kinds = append(kinds, StepDispose)
	}
	if len(kinds) != 1 {
		return "", fmt.Errorf("step must have exactly one action, got %d %v", len(kinds), kinds)
	}
	return kinds[0], nil
}

// Scene is a loaded, ready-to-replay session
type Scene struct {
	Frame      *Frame
	Trackables map[string]ar.Trackable
	Steps      []Step
}

// LoadScene reads and builds a scene from a YAML file
func LoadScene(path string) (*Scene, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("scene file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scene file: %w", err)
	}
	if fileInfo.Size() > maxSceneFileSize {
		return nil, fmt.Errorf("scene file too large: %d bytes (max %d)", fileInfo.Size(), maxSceneFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}
	return ParseScene(data)
}

// ParseScene builds a scene from YAML bytes
func ParseScene(data []byte) (*Scene, error) {
	var file SceneFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scene YAML: %w", err)
	}
	return file.Build()
}

// Build resolves trackable references and constructs the scripted frame
func (f SceneFile) Build() (*Scene, error) {
	state, err := ar.ParseTrackingState(f.Tracking)
	if err != nil {
		return nil, err
	}
	if f.Tracking == "" {
		state = ar.Tracking
	}

	frame := NewFrame(vec(f.Camera))
	frame.State = state
	frame.Depth = f.Depth

	trackables := make(map[string]ar.Trackable, len(f.Trackables))
	planes := make(map[string]*Plane)
	for _, spec := range f.Trackables {
		if spec.ID == "" {
			return nil, fmt.Errorf("trackable without id")
		}
		if _, dup := trackables[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate trackable id %q", spec.ID)
		}
		t, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("trackable %q: %w", spec.ID, err)
		}
		trackables[spec.ID] = t
		if p, ok := t.(*Plane); ok {
			planes[spec.ID] = p
		}
	}

	// Subsumption links may point forward, so resolve them in a second pass.
	for _, spec := range f.Trackables {
		if spec.SubsumedBy == "" {
			continue
		}
		plane, ok := planes[spec.ID]
		if !ok {
			return nil, fmt.Errorf("trackable %q: only planes can be subsumed", spec.ID)
		}
		parent, ok := planes[spec.SubsumedBy]
		if !ok {
			return nil, fmt.Errorf("trackable %q: unknown subsuming plane %q", spec.ID, spec.SubsumedBy)
		}
		plane.MergedInto = parent
	}

	for i, hit := range f.Hits {
		t, ok := trackables[hit.Trackable]
		if !ok {
			return nil, fmt.Errorf("hit %d: unknown trackable %q", i, hit.Trackable)
		}
		frame.AddHit(Rect{X0: hit.Rect[0], Y0: hit.Rect[1], X1: hit.Rect[2], Y1: hit.Rect[3]}, t, vec(hit.Position))
	}

	for i, step := range f.Steps {
		if _, err := step.Kind(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	return &Scene{Frame: frame, Trackables: trackables, Steps: f.Steps}, nil
}

func (spec TrackableSpec) build() (ar.Trackable, error) {
	state := ar.Tracking
	if spec.State != "" {
		s, err := ar.ParseTrackingState(spec.State)
		if err != nil {
			return nil, err
		}
		state = s
	}

	switch spec.Type {
	case "plane":
		facing, err := parseOrientation(spec.Orientation)
		if err != nil {
			return nil, err
		}
		return &Plane{
			Name:    spec.ID,
			State:   state,
			Center:  vec(spec.Center),
			ExtentX: spec.Extents[0],
			ExtentZ: spec.Extents[1],
			Facing:  facing,
		}, nil
	case "point":
		return &Point{Name: spec.ID, State: state, HasNormal: spec.Normal}, nil
	case "other":
		return &Other{Name: spec.ID, State: state}, nil
	default:
		return nil, fmt.Errorf("unknown trackable type %q", spec.Type)
	}
}

func parseOrientation(name string) (ar.PlaneOrientation, error) {
	switch name {
	case "", "horizontal-up":
		return ar.HorizontalUp, nil
	case "horizontal-down":
		return ar.HorizontalDown, nil
	case "vertical":
		return ar.Vertical, nil
	default:
		return ar.HorizontalUp, fmt.Errorf("unknown plane orientation %q", name)
	}
}

func vec(v [3]float32) geometry.Vector3 {
	return geometry.NewVector3(v[0], v[1], v[2])
}
