package emitter

import (
	"fmt"
	"strings"

	"github.com/corridor-tools/corridorgen/builder"
	"github.com/corridor-tools/corridorgen/connection"
	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/signal"
	"github.com/corridor-tools/corridorgen/spec"
)

// RenderConnections renders the connection document: every lane-level
// vehicle connection, then every pedestrian crossing. Signal-
// controlled crossings carry their light id and link index.
func RenderConnections(assignments []connection.Assignment, crossings []planner.Crossing, links map[string][]signal.Link) string {
	linkIndex := map[string]int{}
	for tlID, tlLinks := range links {
		for _, l := range tlLinks {
			if l.Crossing != nil {
				linkIndex[tlID+"/"+builder.CrossingID(*l.Crossing)] = l.Index
			}
		}
	}

	var b strings.Builder
	b.WriteString("<connections>\n")

	for _, a := range assignments {
		b.WriteString(fmt.Sprintf(
			`  <connection from="%s" to="%s" fromLane="%d" toLane="%d"/>`,
			a.FromEdge, a.ToEdge, a.FromLane, a.ToLane))
		b.WriteString("\n")
	}

	for i := range crossings {
		c := &crossings[i]
		attrs := fmt.Sprintf(`id="%s" node="%s" edges="%s" width="%.3f"`,
			builder.CrossingID(*c), builder.ClusterNode(c.Pos), crossingEdges(c), c.Width)
		if c.Signalized {
			tlID := builder.ClusterNode(c.Pos)
			if idx, ok := linkIndex[tlID+"/"+builder.CrossingID(*c)]; ok {
				attrs += fmt.Sprintf(` tl="%s" linkIndex="%d"`, tlID, idx)
			}
		}
		b.WriteString("  <crossing " + attrs + "/>\n")
	}

	b.WriteString("</connections>\n")
	log.Infof("rendered %d connections and %d crossings", len(assignments), len(crossings))
	return b.String()
}

// crossingEdges lists the edges a crossing spans. A split half spans
// only its own carriageway; an unsplit main-road or mid-block crossing
// spans both.
func crossingEdges(c *planner.Crossing) string {
	switch c.Site {
	case planner.SiteMinorNorth:
		return builder.MinorEdge(c.Pos, true, spec.MinorNorth) + " " + builder.MinorEdge(c.Pos, false, spec.MinorNorth)
	case planner.SiteMinorSouth:
		return builder.MinorEdge(c.Pos, true, spec.MinorSouth) + " " + builder.MinorEdge(c.Pos, false, spec.MinorSouth)
	}
	eb := builder.SegmentEdge(spec.DirEB, c.SegWest, c.SegEast)
	wb := builder.SegmentEdge(spec.DirWB, c.SegWest, c.SegEast)
	switch c.Half {
	case planner.HalfEB:
		return eb
	case planner.HalfWB:
		return wb
	default:
		return eb + " " + wb
	}
}
