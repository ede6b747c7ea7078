package planner

import (
	"math"

	"github.com/corridor-tools/corridorgen/errs"
	"github.com/corridor-tools/corridorgen/spec"
)

// Snap rounds a raw position to the nearest multiple of the grid step.
// An exact midpoint resolves by the tie-break policy; everything else
// rounds to the nearest multiple. Pure function: callers clamp and
// range-check via SnapChecked.
func Snap(raw float64, rule spec.SnapRule) int {
	step := float64(rule.StepM)
	q := raw / step
	lo := math.Floor(q) * step
	hi := math.Ceil(q) * step
	dl := raw - lo
	dh := hi - raw
	switch {
	case dl < dh:
		return int(lo)
	case dl > dh:
		return int(hi)
	case rule.TieBreak == spec.TieBreakTowardLower:
		return int(lo)
	default:
		return int(hi)
	}
}

// GridMax returns the largest grid position inside the corridor:
// floor(length/step)*step. Always <= length.
func GridMax(lengthM float64, stepM int) int {
	return int(math.Floor(lengthM/float64(stepM))) * stepM
}

// SnapDistance rounds a non-negative distance to the nearest step
// multiple. Used for template approach lengths.
func SnapDistance(distanceM float64, stepM int) int {
	if distanceM <= 0 {
		return 0
	}
	return int(math.Round(distanceM/float64(stepM))) * stepM
}

// SnapChecked validates a raw event position against [0, length] and
// snaps it, clamping to [0, gridMax]. A raw position between gridMax
// and length is valid input and lands on gridMax.
func SnapChecked(raw float64, index int, kind string, main spec.MainRoad, rule spec.SnapRule) (int, error) {
	if raw < 0 || raw > main.LengthM {
		return 0, &errs.RangeError{Index: index, Kind: kind, Pos: raw, Lo: 0, Hi: main.LengthM}
	}
	pos := Snap(raw, rule)
	gridMax := GridMax(main.LengthM, rule.StepM)
	if pos < 0 {
		pos = 0
	}
	if pos > gridMax {
		pos = gridMax
	}
	return pos, nil
}

// SnapEvents returns a copy of the layout with derived snapped
// positions filled in. The input events are never mutated.
func SnapEvents(cs *spec.CorridorSpec) ([]spec.Event, error) {
	gridMax := GridMax(cs.MainRoad.LengthM, cs.Snap.StepM)
	log.Infof("snap grid: step=%d gridMax=%d (length=%.3f)", cs.Snap.StepM, gridMax, cs.MainRoad.LengthM)

	out := make([]spec.Event, len(cs.Events))
	for i, ev := range cs.Events {
		pos, err := SnapChecked(ev.PosM, ev.Index, string(ev.Kind), cs.MainRoad, cs.Snap)
		if err != nil {
			return nil, err
		}
		if pos == 0 || pos == gridMax {
			log.Warnf("event %d (%s) snapped onto corridor endpoint %d", ev.Index, ev.Kind, pos)
		}
		if math.Abs(ev.PosM-float64(pos)) > 0 && math.Mod(ev.PosM, float64(cs.Snap.StepM)) == float64(cs.Snap.StepM)/2 {
			log.Warnf("event %d (%s) at exact midpoint %.3f resolved to %d by %s", ev.Index, ev.Kind, ev.PosM, pos, cs.Snap.TieBreak)
		}
		ev.SnappedPos = pos
		out[i] = ev
	}
	return out, nil
}
