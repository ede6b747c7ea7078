package spec

import (
	"fmt"
	"strings"
)

// Maneuver is one of the four vehicle turn classes. The declaration
// order L, T, R, U is also the canonical lane-label order and the
// priority order under lane contention.
type Maneuver int

const (
	Left Maneuver = iota
	Through
	Right
	UTurn
)

var maneuverLetters = [...]string{"L", "T", "R", "U"}

// Letter returns the single-letter token used in lane labels and
// movement names.
func (m Maneuver) Letter() string {
	return maneuverLetters[m]
}

// Maneuvers lists all maneuvers in canonical order.
var Maneuvers = []Maneuver{Left, Through, Right, UTurn}

// Approach identifies one inbound leg of a junction.
type Approach int

const (
	ApproachMainEB Approach = iota
	ApproachMainWB
	ApproachMinorN
	ApproachMinorS
)

// Approaches lists all approaches in synthesis order.
var Approaches = []Approach{ApproachMainEB, ApproachMainWB, ApproachMinorN, ApproachMinorS}

// IsMain reports whether the approach belongs to the arterial itself.
func (a Approach) IsMain() bool {
	return a == ApproachMainEB || a == ApproachMainWB
}

func (a Approach) String() string {
	switch a {
	case ApproachMainEB:
		return "main_EB"
	case ApproachMainWB:
		return "main_WB"
	case ApproachMinorN:
		return "minor_N"
	default:
		return "minor_S"
	}
}

// Movement is one (approach, maneuver) pair, the unit of lane
// assignment and signal control.
type Movement struct {
	Approach Approach
	Maneuver Maneuver
}

func (m Movement) String() string {
	return m.Approach.String() + "_" + m.Maneuver.Letter()
}

// PhaseSelector is the typed form of one allow_movements token. A
// selector either grants pedestrian crossings or a set of vehicle
// movements; vehicle matching uses the precomputed fields below, never
// string comparison at resolution time.
type PhaseSelector struct {
	Pedestrian bool

	// Vehicle selector parts. AnyMain matches both main approaches,
	// AnyMinor both minor approaches; otherwise Approach is exact.
	AnyMain  bool
	AnyMinor bool
	Approach Approach
	Maneuver Maneuver
}

// Matches reports whether the selector grants the vehicle movement.
func (s PhaseSelector) Matches(m Movement) bool {
	if s.Pedestrian {
		return false
	}
	if s.Maneuver != m.Maneuver {
		return false
	}
	if s.AnyMain {
		return m.Approach.IsMain()
	}
	if s.AnyMinor {
		return !m.Approach.IsMain()
	}
	return s.Approach == m.Approach
}

// ParsePhaseToken parses one allow_movements token. Accepted forms:
// "pedestrian", "main_X"/"minor_X" (X in L,T,R matching every approach
// of that road class), "EB_X"/"WB_X" (one main approach), and the full
// "main_EB_X"/"main_WB_X"/"minor_N_X"/"minor_S_X". U-turns are never
// granted directly: a main right grant carries the co-housed U-turn.
func ParsePhaseToken(token string) (PhaseSelector, error) {
	if token == "pedestrian" {
		return PhaseSelector{Pedestrian: true}, nil
	}
	parts := strings.Split(token, "_")
	bad := func() (PhaseSelector, error) {
		return PhaseSelector{}, fmt.Errorf("invalid movement token %q", token)
	}
	mv, ok := parseManeuver(parts[len(parts)-1])
	if !ok || mv == UTurn {
		return bad()
	}
	switch len(parts) {
	case 2:
		switch parts[0] {
		case "main":
			return PhaseSelector{AnyMain: true, Maneuver: mv}, nil
		case "minor":
			return PhaseSelector{AnyMinor: true, Maneuver: mv}, nil
		case "EB":
			return PhaseSelector{Approach: ApproachMainEB, Maneuver: mv}, nil
		case "WB":
			return PhaseSelector{Approach: ApproachMainWB, Maneuver: mv}, nil
		}
		return bad()
	case 3:
		switch parts[0] + "_" + parts[1] {
		case "main_EB":
			return PhaseSelector{Approach: ApproachMainEB, Maneuver: mv}, nil
		case "main_WB":
			return PhaseSelector{Approach: ApproachMainWB, Maneuver: mv}, nil
		case "minor_N":
			return PhaseSelector{Approach: ApproachMinorN, Maneuver: mv}, nil
		case "minor_S":
			return PhaseSelector{Approach: ApproachMinorS, Maneuver: mv}, nil
		}
		return bad()
	default:
		return bad()
	}
}

func parseManeuver(letter string) (Maneuver, bool) {
	switch letter {
	case "L":
		return Left, true
	case "T":
		return Through, true
	case "R":
		return Right, true
	case "U":
		return UTurn, true
	}
	return 0, false
}
