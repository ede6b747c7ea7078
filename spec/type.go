// Package spec holds the corridor domain model: the YAML document
// structure, the resolved immutable CorridorSpec consumed by the
// planning pipeline, and the shared movement vocabulary.
package spec

// TieBreak resolves a snap that lands exactly on a grid midpoint.
type TieBreak string

const (
	TieBreakTowardLower  TieBreak = "toward_lower"  // round toward position 0
	TieBreakTowardHigher TieBreak = "toward_higher" // round toward grid max
)

// EventKind distinguishes the corridor layout event variants.
type EventKind string

const (
	EventTee      EventKind = "tee"
	EventCross    EventKind = "cross"
	EventMidblock EventKind = "xwalk_midblock"
)

// IsJunction reports whether the kind owns minor approaches.
func (k EventKind) IsJunction() bool {
	return k == EventTee || k == EventCross
}

// MinorSide names the side of the corridor a minor arm attaches to.
type MinorSide string

const (
	MinorNorth MinorSide = "north"
	MinorSouth MinorSide = "south"
)

// MainDirection names the two main-road carriageways. Eastbound runs
// on the north half of the corridor, westbound on the south half.
type MainDirection string

const (
	DirEB MainDirection = "EB"
	DirWB MainDirection = "WB"
)

// SnapRule configures the position grid.
type SnapRule struct {
	StepM    int      `yaml:"step_m"`
	TieBreak TieBreak `yaml:"tie_break"`
}

// Defaults carries corridor-wide geometry defaults.
type Defaults struct {
	MinorRoadLengthM  int      `yaml:"minor_road_length_m"`
	PedCrossingWidthM float64  `yaml:"ped_crossing_width_m"`
	SpeedKmh          int      `yaml:"speed_kmh"`
	SidewalkWidthM    *float64 `yaml:"sidewalk_width_m,omitempty"`
}

// MainRoad describes the single straight arterial carriageway pair.
type MainRoad struct {
	LengthM    float64 `yaml:"length_m"`
	CenterGapM float64 `yaml:"center_gap_m"`
	Lanes      int     `yaml:"lanes"` // base lane count per direction
}

// JunctionTemplate is a reusable junction geometry description. The
// approach widening it declares becomes a lane override region owned
// by every junction referencing the template.
type JunctionTemplate struct {
	ID                 string    `yaml:"id"`
	MainApproachBeginM int       `yaml:"main_approach_begin_m"`
	MainApproachLanes  int       `yaml:"main_approach_lanes"`
	MinorLanesToMain   int       `yaml:"minor_lanes_to_main"`
	MinorLanesFromMain int       `yaml:"minor_lanes_from_main"`
	MedianContinuous   bool      `yaml:"median_continuous"`
	Kind               EventKind `yaml:"-"` // set by the loader from the section it appears in
}

// SignalRef attaches a signal profile to a layout event.
type SignalRef struct {
	ProfileID string `yaml:"profile_id"`
	OffsetS   int    `yaml:"offset_s"`
}

// CrossingPlacement selects which sides of a junction get a main-road
// pedestrian crossing.
type CrossingPlacement struct {
	West bool `yaml:"west"`
	East bool `yaml:"east"`
}

// PedConflictPolicy declares which yielding vehicle turns a profile
// tolerates concurrently with a walk interval. A false entry forces
// the crossing red whenever such a turn is green.
type PedConflictPolicy struct {
	Left  bool `yaml:"left"`
	Right bool `yaml:"right"`
}

// SignalPhase is one phase of a fixed-cycle signal profile.
type SignalPhase struct {
	Name      string   `yaml:"name,omitempty"`
	DurationS int      `yaml:"duration_s"`
	Allow     []string `yaml:"allow_movements"`

	// Selectors is the typed form of Allow, filled by the loader.
	Selectors []PhaseSelector `yaml:"-"`
}

// SignalProfile is a fixed-cycle program template referenced by
// signalized layout events of a matching kind.
type SignalProfile struct {
	ID              string            `yaml:"id"`
	CycleS          int               `yaml:"cycle_s"`
	YellowDurationS int               `yaml:"yellow_duration_s"`
	PedEarlyCutoffS int               `yaml:"ped_early_cutoff_s,omitempty"`
	PedConflicts    PedConflictPolicy `yaml:"pedestrian_conflicts,omitempty"`
	Phases          []SignalPhase     `yaml:"phases"`
	Kind            EventKind         `yaml:"-"`
}

// Event is one corridor layout entry: a tee/cross junction or a
// mid-block pedestrian crossing. PosM is the authored raw position;
// SnappedPos is derived during loading and the struct is never
// mutated afterwards.
type Event struct {
	Kind       EventKind          `yaml:"type"`
	PosM       float64            `yaml:"pos_m"`
	Template   string             `yaml:"template,omitempty"`
	Branch     MinorSide          `yaml:"branch,omitempty"`
	Signalized bool               `yaml:"signalized"`
	Signal     *SignalRef         `yaml:"signal,omitempty"`
	Placement  *CrossingPlacement `yaml:"main_ped_crossing_placement,omitempty"`
	// MainUTurnAllowed must be stated explicitly for junctions.
	MainUTurnAllowed   *bool `yaml:"main_u_turn_allowed,omitempty"`
	RefugeIslandOnMain bool  `yaml:"refuge_island_on_main,omitempty"`
	TwoStageTLLControl *bool `yaml:"two_stage_tll_control,omitempty"`

	Index      int `yaml:"-"` // position in the layout list
	SnappedPos int `yaml:"-"`
}

// UTurnAllowed reports whether main-road U-turns survive at this
// junction. Unset means allowed.
func (e *Event) UTurnAllowed() bool {
	return e.MainUTurnAllowed == nil || *e.MainUTurnAllowed
}

// TwoStage reports whether the two halves of a split crossing may be
// granted independently.
func (e *Event) TwoStage() bool {
	return e.RefugeIslandOnMain && e.TwoStageTLLControl != nil && *e.TwoStageTLLControl
}

// Document is the raw YAML structure of a corridor specification.
type Document struct {
	Version           string   `yaml:"version"`
	Snap              SnapRule `yaml:"snap"`
	Defaults          Defaults `yaml:"defaults"`
	MainRoad          MainRoad `yaml:"main_road"`
	JunctionTemplates struct {
		Tee   []JunctionTemplate `yaml:"tee,omitempty"`
		Cross []JunctionTemplate `yaml:"cross,omitempty"`
	} `yaml:"junction_templates"`
	SignalProfiles struct {
		Tee      []SignalProfile `yaml:"tee,omitempty"`
		Cross    []SignalProfile `yaml:"cross,omitempty"`
		Midblock []SignalProfile `yaml:"xwalk_midblock,omitempty"`
	} `yaml:"signal_profiles"`
	Layout []Event `yaml:"layout"`
}

// CorridorSpec is the validated, resolved object graph handed to the
// pipeline. Read-only through planning.
type CorridorSpec struct {
	Version   string
	Snap      SnapRule
	Defaults  Defaults
	MainRoad  MainRoad
	Templates map[string]JunctionTemplate
	Profiles  map[EventKind]map[string]SignalProfile
	Events    []Event // layout order, snapped positions filled in
}

// Template resolves an event's junction template.
func (s *CorridorSpec) Template(e *Event) (JunctionTemplate, bool) {
	tpl, ok := s.Templates[e.Template]
	return tpl, ok
}

// Profile resolves an event's signal profile by kind and id.
func (s *CorridorSpec) Profile(e *Event) (SignalProfile, bool) {
	if e.Signal == nil {
		return SignalProfile{}, false
	}
	byID, ok := s.Profiles[e.Kind]
	if !ok {
		return SignalProfile{}, false
	}
	p, ok := byID[e.Signal.ProfileID]
	return p, ok
}
