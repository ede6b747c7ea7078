// Package builder produces the stable, collision-free identifiers for
// every node, edge, cluster and crossing. The grammar is load-bearing:
// downstream emitters and the demand-routing subsystem resolve
// author-supplied references against it, so identical logical entities
// must get byte-identical identifiers across runs.
package builder

import (
	"fmt"

	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/spec"
)

// MainNode names a main-road breakpoint node. The eastbound
// carriageway occupies the north half of the corridor, westbound the
// south half.
func MainNode(pos int, dir spec.MainDirection) string {
	if dir == spec.DirEB {
		return fmt.Sprintf("Node.%d.MainN", pos)
	}
	return fmt.Sprintf("Node.%d.MainS", pos)
}

// MainEdge names a main-road edge oriented along dir; begin/end follow
// travel direction, so eastbound edges increase in position and
// westbound edges decrease. Violations indicate an upstream ordering
// defect.
func MainEdge(dir spec.MainDirection, begin, end int) (string, error) {
	switch dir {
	case spec.DirEB:
		if begin >= end {
			return "", fmt.Errorf("eastbound edge requires begin < end (got %d >= %d)", begin, end)
		}
	case spec.DirWB:
		if begin <= end {
			return "", fmt.Errorf("westbound edge requires begin > end (got %d <= %d)", begin, end)
		}
	}
	return fmt.Sprintf("Edge.Main.%s.%d-%d", dir, begin, end), nil
}

// mustMainEdge is the internal variant for callers that already hold a
// direction-ordered segment.
func mustMainEdge(dir spec.MainDirection, begin, end int) string {
	id, err := MainEdge(dir, begin, end)
	if err != nil {
		panic(err)
	}
	return id
}

// SegmentEdge names the edge of one breakpoint-delimited segment
// [west, east] in the given travel direction.
func SegmentEdge(dir spec.MainDirection, west, east int) string {
	if dir == spec.DirEB {
		return mustMainEdge(spec.DirEB, west, east)
	}
	return mustMainEdge(spec.DirWB, east, west)
}

// MinorEndNode names the dead-end node of a minor arm.
func MinorEndNode(pos int, side spec.MinorSide) string {
	return fmt.Sprintf("Node.%d.Minor%sEnd", pos, minorLetter(side))
}

// MinorEdge names a minor-arm edge. toMain selects the inbound edge
// (toward the junction); otherwise the outbound edge.
func MinorEdge(pos int, toMain bool, side spec.MinorSide) string {
	flow := "from"
	if toMain {
		flow = "to"
	}
	return fmt.Sprintf("Edge.Minor%s.%s.%d", minorLetter(side), flow, pos)
}

// ClusterNode names the joined junction node at a breakpoint. It also
// serves as the traffic-light id for signalized positions.
func ClusterNode(pos int) string {
	return fmt.Sprintf("Cluster.%d.Main", pos)
}

// CrossingID names a planned crossing segment. Split halves carry a
// cardinal suffix: the eastbound (north) half is N, westbound S.
func CrossingID(c planner.Crossing) string {
	switch c.Site {
	case planner.SiteMinorNorth:
		return fmt.Sprintf("Cross.%d.N", c.Pos)
	case planner.SiteMinorSouth:
		return fmt.Sprintf("Cross.%d.S", c.Pos)
	case planner.SiteMainWest:
		return fmt.Sprintf("Cross.%d.W%s", c.Pos, halfSuffix(c.Half))
	case planner.SiteMainEast:
		return fmt.Sprintf("Cross.%d.E%s", c.Pos, halfSuffix(c.Half))
	default:
		return fmt.Sprintf("CrossMid.%d%s", c.Pos, halfSuffix(c.Half))
	}
}

func halfSuffix(h planner.CrossingHalf) string {
	switch h {
	case planner.HalfEB:
		return ".N"
	case planner.HalfWB:
		return ".S"
	default:
		return ""
	}
}

func minorLetter(side spec.MinorSide) string {
	if side == spec.MinorNorth {
		return "N"
	}
	return "S"
}
