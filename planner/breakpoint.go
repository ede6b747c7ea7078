package planner

import (
	"sort"

	"github.com/samber/lo"

	"github.com/corridor-tools/corridorgen/errs"
	"github.com/corridor-tools/corridorgen/spec"
)

// Cluster is the merged view of every layout event that snapped onto
// one grid position. At most one junction and one non-absorbed
// mid-block crossing survive per position; a co-located mid-block
// event is absorbed into the junction's crossing configuration.
type Cluster struct {
	Pos      int
	Junction *spec.Event // nil when the position only carries a mid-block crossing
	Midblock *spec.Event // nil when absent or absorbed

	// Resolved main-road crossing placement: the junction's own flags
	// unioned with the sides contributed by absorbed mid-block events.
	PlaceWest bool
	PlaceEast bool
	// SplitMain is true when any event at this position requests a
	// refuge island on the main road.
	SplitMain bool

	Absorbed []spec.Event // mid-block events merged into the junction
}

// Signalized reports whether any surviving event at this position
// carries a signal program.
func (c *Cluster) Signalized() bool {
	if c.Junction != nil && c.Junction.Signalized {
		return true
	}
	return c.Midblock != nil && c.Midblock.Signalized
}

// SignalEvent returns the event whose signal reference governs this
// position, junction first.
func (c *Cluster) SignalEvent() *spec.Event {
	if c.Junction != nil && c.Junction.Signalized {
		return c.Junction
	}
	if c.Midblock != nil && c.Midblock.Signalized {
		return c.Midblock
	}
	return nil
}

// TwoStage reports whether split crossing halves at this position may
// be granted independently.
func (c *Cluster) TwoStage() bool {
	if ev := c.SignalEvent(); ev != nil {
		return ev.TwoStage()
	}
	return false
}

// BuildClusters groups snapped events by position and reduces each
// group with one merge rule per kind pair: junction absorbs mid-block
// (placement union, logged warning); junction+junction and
// midblock+midblock are fatal duplicates.
func BuildClusters(events []spec.Event, rule spec.SnapRule) ([]Cluster, error) {
	byPos := lo.GroupBy(events, func(ev spec.Event) int { return ev.SnappedPos })
	positions := lo.Keys(byPos)
	sort.Ints(positions)

	clusters := make([]Cluster, 0, len(positions))
	for _, pos := range positions {
		cluster, err := reduceCluster(pos, byPos[pos], rule)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, cluster)
	}
	log.Infof("clusters: %d", len(clusters))
	return clusters, nil
}

func reduceCluster(pos int, events []spec.Event, rule spec.SnapRule) (Cluster, error) {
	c := Cluster{Pos: pos}

	junctions := lo.Filter(events, func(ev spec.Event, _ int) bool { return ev.Kind.IsJunction() })
	midblocks := lo.Filter(events, func(ev spec.Event, _ int) bool { return ev.Kind == spec.EventMidblock })

	if len(junctions) > 1 {
		return c, &errs.DuplicateEventError{
			Pos:  pos,
			Kind: "junction",
			Indices: lo.Map(junctions, func(ev spec.Event, _ int) int {
				return ev.Index
			}),
		}
	}

	if len(junctions) == 1 {
		j := junctions[0]
		c.Junction = &j
		if j.Placement != nil {
			c.PlaceWest = j.Placement.West
			c.PlaceEast = j.Placement.East
		}
		c.SplitMain = j.RefugeIslandOnMain

		// Merge rule (junction, midblock): absorption. The mid-block
		// crossing's side joins the junction's placement flags and the
		// event itself is dropped from the layout.
		for _, mev := range midblocks {
			side := absorptionSide(mev.PosM, pos, rule)
			if side == sideWest {
				c.PlaceWest = true
			} else {
				c.PlaceEast = true
			}
			c.SplitMain = c.SplitMain || mev.RefugeIslandOnMain
			if mev.Signalized {
				log.Warnf("midblock event %d at pos=%d: signal reference dropped, junction program governs", mev.Index, pos)
			}
			log.Warnf("junction at pos=%d absorbs co-located midblock event %d (side=%s)", pos, mev.Index, side)
			c.Absorbed = append(c.Absorbed, mev)
		}
		return c, nil
	}

	// Merge rule (midblock, midblock) without a junction to absorb
	// them: fatal duplicate.
	if len(midblocks) > 1 {
		return c, &errs.DuplicateEventError{
			Pos:  pos,
			Kind: string(spec.EventMidblock),
			Indices: lo.Map(midblocks, func(ev spec.Event, _ int) int {
				return ev.Index
			}),
		}
	}
	if len(midblocks) == 1 {
		m := midblocks[0]
		c.Midblock = &m
		c.SplitMain = m.RefugeIslandOnMain
	}
	return c, nil
}

type crossingSide string

const (
	sideWest crossingSide = "west"
	sideEast crossingSide = "east"
)

// absorptionSide decides which side of the junction an absorbed
// mid-block crossing lands on: the side its raw position came from,
// with the snap tie-break deciding an exact overlap.
func absorptionSide(raw float64, snapped int, rule spec.SnapRule) crossingSide {
	switch {
	case raw < float64(snapped):
		return sideWest
	case raw > float64(snapped):
		return sideEast
	case rule.TieBreak == spec.TieBreakTowardLower:
		return sideWest
	default:
		return sideEast
	}
}

// Reason tags why a breakpoint exists. One position may carry several.
type Reason string

const (
	ReasonEndpoint   Reason = "endpoint"
	ReasonJunction   Reason = "junction"
	ReasonMidblock   Reason = "xwalk_midblock"
	ReasonLaneChange Reason = "lane_change"
)

// Breakpoint is one grid-aligned axis position where geometry or lane
// count may change, tagged with every reason it exists.
type Breakpoint struct {
	Pos     int
	Reasons []Reason // sorted, unique
}

// CollectBreakpoints unions corridor bounds, cluster positions and
// lane-override interval edges into a strictly increasing sequence.
// The result always contains 0 and gridMax.
func CollectBreakpoints(main spec.MainRoad, clusters []Cluster, overrides Overrides, rule spec.SnapRule) []Breakpoint {
	gridMax := GridMax(main.LengthM, rule.StepM)
	reasons := make(map[int]map[Reason]struct{})
	add := func(pos int, reason Reason) {
		if pos < 0 || pos > gridMax {
			return
		}
		if reasons[pos] == nil {
			reasons[pos] = make(map[Reason]struct{})
		}
		reasons[pos][reason] = struct{}{}
	}

	add(0, ReasonEndpoint)
	add(gridMax, ReasonEndpoint)
	for i := range clusters {
		c := &clusters[i]
		if c.Junction != nil {
			add(c.Pos, ReasonJunction)
		}
		if c.Midblock != nil {
			add(c.Pos, ReasonMidblock)
		}
	}
	for _, ov := range append(append([]Override{}, overrides.EB...), overrides.WB...) {
		add(ov.Start, ReasonLaneChange)
		add(ov.End, ReasonLaneChange)
	}

	positions := lo.Keys(reasons)
	sort.Ints(positions)
	breakpoints := lo.Map(positions, func(pos int, _ int) Breakpoint {
		tags := lo.Keys(reasons[pos])
		sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
		return Breakpoint{Pos: pos, Reasons: tags}
	})
	log.Infof("breakpoints: %d (0..%d)", len(breakpoints), gridMax)
	return breakpoints
}

// Positions projects a breakpoint sequence onto bare positions.
func Positions(breakpoints []Breakpoint) []int {
	return lo.Map(breakpoints, func(b Breakpoint, _ int) int { return b.Pos })
}

// Neighbors returns the breakpoints directly west and east of pos.
// ok is false on the corresponding side when pos is a corridor
// endpoint or not a breakpoint at all.
func Neighbors(positions []int, pos int) (west int, east int, hasWest bool, hasEast bool) {
	idx := sort.SearchInts(positions, pos)
	if idx >= len(positions) || positions[idx] != pos {
		return 0, 0, false, false
	}
	if idx > 0 {
		west, hasWest = positions[idx-1], true
	}
	if idx+1 < len(positions) {
		east, hasEast = positions[idx+1], true
	}
	return west, east, hasWest, hasEast
}
