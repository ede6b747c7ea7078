package signal

import (
	"sort"

	"github.com/samber/lo"

	"github.com/corridor-tools/corridorgen/builder"
	"github.com/corridor-tools/corridorgen/connection"
	"github.com/corridor-tools/corridorgen/errs"
	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/spec"
)

// Link is one controlled slot of a traffic light: either one vehicle
// connection or one crossing. Slot order defines the character
// position inside every phase state string.
type Link struct {
	Index    int
	Vehicle  *connection.Assignment
	Crossing *planner.Crossing
}

// Phase is one compressed program step: a duration and one state
// character per link, in slot order. Characters follow the SUMO
// convention: G protected green, g yielding green, y yellow, r red.
type Phase struct {
	DurationS int
	State     string
}

// Program is the resolved fixed-cycle program of one traffic light.
type Program struct {
	TLID   string
	Offset int
	Phases []Phase
	Links  []Link
}

// BuildLinks assigns every controlled connection and signalized
// crossing to its traffic light slot. Vehicle connections come first
// in synthesis order, crossings after them in planning order, so a
// light's state string reads connections-then-crossings.
func BuildLinks(assignments []connection.Assignment, crossings []planner.Crossing) map[string][]Link {
	byTL := map[string][]Link{}
	for i := range assignments {
		a := &assignments[i]
		if a.TLID == "" {
			continue
		}
		byTL[a.TLID] = append(byTL[a.TLID], Link{Vehicle: a})
	}
	for i := range crossings {
		c := &crossings[i]
		if !c.Signalized {
			continue
		}
		tlID := builder.ClusterNode(c.Pos)
		byTL[tlID] = append(byTL[tlID], Link{Crossing: c})
	}
	for tlID, links := range byTL {
		for i := range links {
			links[i].Index = i
		}
		byTL[tlID] = links
	}
	return byTL
}

// Resolve computes the program of every signalized cluster. The
// resulting slice is ordered by position along the corridor.
func Resolve(cs *spec.CorridorSpec, clusters []planner.Cluster, links map[string][]Link) ([]Program, error) {
	var out []Program
	for i := range clusters {
		c := &clusters[i]
		ev := c.SignalEvent()
		if ev == nil {
			continue
		}
		profile, ok := cs.Profile(ev)
		if !ok {
			// Validated at load time.
			return nil, &errs.ConfigError{
				Entity: builder.ClusterNode(c.Pos),
				Reason: "signal profile unresolved after validation",
			}
		}
		tlID := builder.ClusterNode(c.Pos)
		tlLinks := links[tlID]
		if len(tlLinks) == 0 {
			log.Warnf("signalized cluster at pos=%d controls no links, program skipped", c.Pos)
			continue
		}
		p, err := resolveOne(tlID, ev.Signal.OffsetS, profile, tlLinks, c.TwoStage())
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	log.Infof("resolved %d signal programs", len(out))
	return out, nil
}

func resolveOne(tlID string, offset int, profile spec.SignalProfile, links []Link, twoStage bool) (Program, error) {
	cycle := profile.CycleS
	if sum := lo.SumBy(profile.Phases, func(p spec.SignalPhase) int { return p.DurationS }); sum != cycle {
		return Program{}, &errs.ConfigError{
			Entity: "signal_profiles." + profile.ID,
			Reason: "phase durations do not sum to the cycle length",
		}
	}

	timelines := buildTimelines(profile, links, twoStage)
	rewriteVehicleTails(timelines, links, profile.YellowDurationS)
	rewriteWalkTails(timelines, links, profile.PedEarlyCutoffS)

	return Program{
		TLID:   tlID,
		Offset: offset,
		Phases: compress(timelines, cycle),
		Links:  links,
	}, nil
}

// buildTimelines paints each link's per-second state over one cycle.
func buildTimelines(profile spec.SignalProfile, links []Link, twoStage bool) [][]byte {
	cycle := profile.CycleS
	timelines := make([][]byte, len(links))
	for i := range timelines {
		timelines[i] = make([]byte, cycle)
		for s := range timelines[i] {
			timelines[i][s] = 'r'
		}
	}

	cursor := 0
	for _, phase := range profile.Phases {
		greens, pedGranted := expandPhase(phase, links)
		states := make([]byte, len(links))
		for i := range links {
			states[i] = 'r'
		}
		for i, l := range links {
			if l.Vehicle != nil {
				if _, on := lo.Find(greens, func(m spec.Movement) bool { return m == l.Vehicle.Movement }); on {
					if l.Vehicle.Movement.Maneuver == spec.Right {
						states[i] = 'g'
					} else {
						states[i] = 'G'
					}
				}
			} else if walkAllowed(l.Crossing, greens, pedGranted, profile.PedConflicts) {
				states[i] = 'G'
			}
		}
		if !twoStage {
			coupleHalves(states, links)
		}
		for off := 0; off < phase.DurationS; off++ {
			slot := (cursor + off) % cycle
			for i := range links {
				timelines[i][slot] = states[i]
			}
		}
		cursor = (cursor + phase.DurationS) % cycle
	}
	return timelines
}

// expandPhase maps a phase's selectors onto the concrete movements
// present at this junction. A main-road right grant carries the
// co-housed same-direction U-turn, which is never granted directly.
func expandPhase(phase spec.SignalPhase, links []Link) ([]spec.Movement, bool) {
	present := map[spec.Movement]bool{}
	for _, l := range links {
		if l.Vehicle != nil {
			present[l.Vehicle.Movement] = true
		}
	}

	granted := map[spec.Movement]bool{}
	pedGranted := false
	for _, sel := range phase.Selectors {
		if sel.Pedestrian {
			pedGranted = true
			continue
		}
		for mv := range present {
			if sel.Matches(mv) {
				granted[mv] = true
			}
		}
	}
	for mv := range granted {
		if mv.Approach.IsMain() && mv.Maneuver == spec.Right {
			u := spec.Movement{Approach: mv.Approach, Maneuver: spec.UTurn}
			if present[u] {
				granted[u] = true
			}
		}
	}

	greens := lo.Keys(granted)
	sort.Slice(greens, func(i, j int) bool {
		if greens[i].Approach != greens[j].Approach {
			return greens[i].Approach < greens[j].Approach
		}
		return greens[i].Maneuver < greens[j].Maneuver
	})
	return greens, pedGranted
}

// coupleHalves forces the two halves of a split crossing to agree
// when the light is not running two-stage control: if either half is
// red both go red.
func coupleHalves(states []byte, links []Link) {
	bySite := map[planner.CrossingSite][]int{}
	for i, l := range links {
		if l.Crossing != nil && l.Crossing.Half != planner.HalfNone {
			bySite[l.Crossing.Site] = append(bySite[l.Crossing.Site], i)
		}
	}
	for _, idx := range bySite {
		if len(idx) < 2 {
			continue
		}
		anyRed := lo.SomeBy(idx, func(i int) bool { return states[i] == 'r' })
		if anyRed {
			for _, i := range idx {
				states[i] = 'r'
			}
		}
	}
}

// rewriteVehicleTails converts the last seconds of every vehicle green
// run into yellow ahead of a green-to-red transition.
func rewriteVehicleTails(timelines [][]byte, links []Link, yellow int) {
	if yellow <= 0 {
		return
	}
	for i, l := range links {
		if l.Vehicle == nil {
			continue
		}
		tl := timelines[i]
		cycle := len(tl)
		for s := 0; s < cycle; s++ {
			if !isGreen(tl[s]) || tl[(s+1)%cycle] != 'r' {
				continue
			}
			for back := 0; back < yellow; back++ {
				pos := ((s-back)%cycle + cycle) % cycle
				if !isGreen(tl[pos]) {
					break
				}
				tl[pos] = 'y'
			}
		}
	}
}

// rewriteWalkTails cuts a crossing's walk interval short ahead of a
// walk-to-red transition, but only when a vehicle link actually turns
// green in the following second; an early cutoff with nothing to
// clear for would just waste walk time.
func rewriteWalkTails(timelines [][]byte, links []Link, cutoff int) {
	if cutoff <= 0 {
		return
	}
	var vehicle []int
	for i, l := range links {
		if l.Vehicle != nil {
			vehicle = append(vehicle, i)
		}
	}
	for i, l := range links {
		if l.Crossing == nil {
			continue
		}
		tl := timelines[i]
		cycle := len(tl)
		for s := 0; s < cycle; s++ {
			if tl[s] != 'G' || tl[(s+1)%cycle] != 'r' {
				continue
			}
			next := (s + 1) % cycle
			vehicleGreen := lo.SomeBy(vehicle, func(v int) bool { return isGreen(timelines[v][next]) })
			if !vehicleGreen {
				continue
			}
			for back := 0; back < cutoff; back++ {
				pos := ((s-back)%cycle + cycle) % cycle
				if tl[pos] != 'G' {
					break
				}
				tl[pos] = 'r'
			}
		}
	}
}

func isGreen(b byte) bool { return b == 'G' || b == 'g' }

// compress run-length encodes the per-second state matrix into
// phases, merging the first and last runs when the cycle wraps inside
// a single state.
func compress(timelines [][]byte, cycle int) []Phase {
	if len(timelines) == 0 || cycle == 0 {
		return nil
	}
	var phases []Phase
	current := ""
	duration := 0
	for s := 0; s < cycle; s++ {
		buf := make([]byte, len(timelines))
		for i, tl := range timelines {
			buf[i] = tl[s]
		}
		state := string(buf)
		if state == current {
			duration++
			continue
		}
		if duration > 0 {
			phases = append(phases, Phase{DurationS: duration, State: current})
		}
		current, duration = state, 1
	}
	phases = append(phases, Phase{DurationS: duration, State: current})
	if len(phases) >= 2 && phases[0].State == phases[len(phases)-1].State {
		phases[0].DurationS += phases[len(phases)-1].DurationS
		phases = phases[:len(phases)-1]
	}
	return phases
}
