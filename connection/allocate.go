package connection

import (
	"fmt"

	"github.com/corridor-tools/corridorgen/spec"
)

// LaneLabel is the set of maneuvers permitted on one approach lane,
// stored as a bitset over the canonical L, T, R, U order. The zero
// value is an unrestricted lane.
type LaneLabel uint8

func bit(m spec.Maneuver) LaneLabel {
	return 1 << uint(m)
}

// Has reports whether the lane permits the maneuver.
func (l LaneLabel) Has(m spec.Maneuver) bool {
	return l&bit(m) != 0
}

func (l LaneLabel) with(m spec.Maneuver) LaneLabel {
	return l | bit(m)
}

func (l LaneLabel) without(m spec.Maneuver) LaneLabel {
	return l &^ bit(m)
}

// String renders the label in canonical order, e.g. "LT" or "TRU".
func (l LaneLabel) String() string {
	s := ""
	for _, m := range spec.Maneuvers {
		if l.Has(m) {
			s += m.Letter()
		}
	}
	return s
}

// Allocate distributes the requested maneuver lane demands l, t, r, u
// over s physical lanes, leftmost (median-adjacent) first. When demand
// exceeds supply, lanes are compacted by sharing turns onto their
// neighboring lane with priority left > through > right/U-turn, so no
// requested maneuver ever disappears from the result. The returned
// slice always has length s.
func Allocate(s, l, t, r, u int) ([]LaneLabel, error) {
	for name, v := range map[string]int{"s": s, "l": l, "t": t, "r": r, "u": u} {
		if v < 0 {
			return nil, fmt.Errorf("%s must be non-negative (got %d)", name, v)
		}
	}
	if s == 0 {
		return nil, fmt.Errorf("no physical lanes to allocate")
	}

	if s == 1 {
		var label LaneLabel
		if l > 0 {
			label = label.with(spec.Left)
		}
		if t > 0 {
			label = label.with(spec.Through)
		}
		if r > 0 {
			label = label.with(spec.Right)
		}
		if u > 0 {
			label = label.with(spec.UTurn)
		}
		return []LaneLabel{label}, nil
	}

	total := l + t + r + u
	baseLB := t + btoi(l > 0) + btoi(r > 0)
	sideMin := btoi(l > 0) + btoi(r > 0)

	// Supply meets or exceeds demand: exclusive lanes, spare capacity
	// in the middle.
	if s >= total {
		lanes := make([]LaneLabel, 0, s)
		lanes = appendN(lanes, bit(spec.Left), l)
		lanes = appendN(lanes, bit(spec.Through), t)
		lanes = appendN(lanes, 0, s-total)
		lanes = appendN(lanes, bit(spec.Right), r)
		lanes = appendN(lanes, bit(spec.UTurn), u)
		return lanes, nil
	}

	// Only the U-turn demand overflows: keep what fits exclusively.
	if l+t+r < s && s < total {
		lanes := make([]LaneLabel, 0, s)
		lanes = appendN(lanes, bit(spec.Left), l)
		lanes = appendN(lanes, bit(spec.Through), t)
		lanes = appendN(lanes, bit(spec.Right), r)
		lanes = appendN(lanes, bit(spec.UTurn), s-(l+t+r))
		return lanes, nil
	}

	afterC := func() []LaneLabel {
		lanes := make([]LaneLabel, 0, l+t+r)
		lanes = appendN(lanes, bit(spec.Left), l)
		lanes = appendN(lanes, bit(spec.Through), t)
		lanes = appendN(lanes, bit(spec.Right), r)
		return ensureUOnOutermost(lanes, u)
	}

	if s == l+t+r {
		return afterC(), nil
	}

	lanes := afterC()

	// Exactly the through demand (or one more): alternate dropping an
	// exclusive turn lane and sharing its maneuver onto the side lane.
	if (s == t || s == t+1) && !(baseLB <= s && s < l+t+r) {
		next := spec.Left
		for len(lanes) > s {
			progressed := false
			order := []spec.Maneuver{spec.Left, spec.Right}
			if next == spec.Right {
				order = []spec.Maneuver{spec.Right, spec.Left}
			}
			for _, turn := range order {
				var ok bool
				lanes, ok = dropExclusive(lanes, turn, turn == spec.Left)
				if !ok {
					continue
				}
				lanes = shareToSide(lanes, turn)
				lanes = ensureUOnOutermost(lanes, u)
				if turn == spec.Left {
					next = spec.Right
				} else {
					next = spec.Left
				}
				progressed = true
				break
			}
			if !progressed {
				return nil, fmt.Errorf("cannot reach %d lanes by turn drop-share (l=%d t=%d r=%d u=%d)", s, l, t, r, u)
			}
		}
		return ensureUOnOutermost(lanes, u), nil
	}

	// Fewer lanes than through demand: first fold the turns in, then
	// fold surplus through lanes onto alternating sides.
	if sideMin <= s && s < t {
		target := max(s, baseLB)
		for len(lanes) > target {
			progressed := false
			if next, ok := dropExclusive(lanes, spec.Left, true); ok {
				lanes = ensureUOnOutermost(shareToSide(next, spec.Left), u)
				progressed = true
			}
			if len(lanes) > target {
				if next, ok := dropExclusive(lanes, spec.Right, false); ok {
					lanes = ensureUOnOutermost(shareToSide(next, spec.Right), u)
					progressed = true
				}
			}
			if !progressed {
				break
			}
		}
		side := spec.Left
		for len(lanes) > s {
			next, ok := dropExclusive(lanes, spec.Through, true)
			if !ok {
				return nil, fmt.Errorf("no exclusive through lane left while reducing to %d lanes", s)
			}
			lanes = next
			if side == spec.Left {
				lanes[0] = lanes[0].with(spec.Through)
				side = spec.Right
			} else {
				lanes[len(lanes)-1] = lanes[len(lanes)-1].with(spec.Through)
				side = spec.Left
			}
			lanes = ensureUOnOutermost(lanes, u)
		}
		return lanes, nil
	}

	// Between the lower bound and full demand: shed surplus exclusive
	// turn lanes while keeping at least one effective lane per
	// requested turn.
	if baseLB <= s && s < l+t+r {
		minL := btoi(l > 0)
		minR := btoi(r > 0)
		popL := func() bool {
			if countEffective(lanes, spec.Left) <= minL {
				return false
			}
			next, ok := dropExclusive(lanes, spec.Left, true)
			if ok {
				lanes = next
			}
			return ok
		}
		popR := func() bool {
			if countEffective(lanes, spec.Right) <= minR {
				return false
			}
			next, ok := dropExclusive(lanes, spec.Right, false)
			if ok {
				lanes = next
			}
			return ok
		}
		turn := spec.Left
		for len(lanes) > s {
			var removed bool
			if turn == spec.Left {
				removed = popL() || popR()
			} else {
				removed = popR() || popL()
			}
			if !removed {
				return nil, fmt.Errorf("cannot reduce to %d lanes without losing a turn (l=%d t=%d r=%d u=%d)", s, l, t, r, u)
			}
			lanes = ensureUOnOutermost(lanes, u)
			if turn == spec.Left {
				turn = spec.Right
			} else {
				turn = spec.Left
			}
		}
		return lanes, nil
	}

	return nil, fmt.Errorf("unsupported lane configuration: s=%d l=%d t=%d r=%d u=%d", s, l, t, r, u)
}

// ensureUOnOutermost moves the shared U-turn permission onto the
// outermost lane, dropping it from any lane it was previously shared
// with. An exclusive U lane is left alone.
func ensureUOnOutermost(lanes []LaneLabel, u int) []LaneLabel {
	if u <= 0 || len(lanes) == 0 {
		return lanes
	}
	for i, label := range lanes {
		if label.Has(spec.UTurn) && label != bit(spec.UTurn) {
			lanes[i] = label.without(spec.UTurn)
		}
	}
	lanes[len(lanes)-1] = lanes[len(lanes)-1].with(spec.UTurn)
	return lanes
}

// dropExclusive removes the first lane that is exactly the given
// maneuver, scanning from the median for left turns and from the curb
// otherwise.
func dropExclusive(lanes []LaneLabel, m spec.Maneuver, fromLeft bool) ([]LaneLabel, bool) {
	n := len(lanes)
	for k := 0; k < n; k++ {
		i := k
		if !fromLeft {
			i = n - 1 - k
		}
		if lanes[i] == bit(m) {
			return append(lanes[:i], lanes[i+1:]...), true
		}
	}
	return lanes, false
}

// shareToSide attaches a dropped turn to its natural side lane.
func shareToSide(lanes []LaneLabel, m spec.Maneuver) []LaneLabel {
	if len(lanes) == 0 {
		return lanes
	}
	if m == spec.Left {
		lanes[0] = lanes[0].with(m)
	} else {
		lanes[len(lanes)-1] = lanes[len(lanes)-1].with(m)
	}
	return lanes
}

// countEffective counts lanes that behave as exactly the given
// maneuver once the shared U-turn permission is ignored.
func countEffective(lanes []LaneLabel, m spec.Maneuver) int {
	n := 0
	for _, label := range lanes {
		if label.without(spec.UTurn) == bit(m) {
			n++
		}
	}
	return n
}

func appendN(lanes []LaneLabel, label LaneLabel, n int) []LaneLabel {
	for i := 0; i < n; i++ {
		lanes = append(lanes, label)
	}
	return lanes
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
