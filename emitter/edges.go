package emitter

import (
	"fmt"
	"strings"

	"github.com/corridor-tools/corridorgen/builder"
	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/spec"
)

// SpeedMPS converts the configured km/h default into the m/s value
// carried by every edge.
func SpeedMPS(defaults spec.Defaults) float64 {
	return float64(defaults.SpeedKmh) / 3.6
}

// RenderEdges renders the edge document: the resolved main-road
// segments in both directions, then the inbound and outbound edge of
// every minor arm.
func RenderEdges(cs *spec.CorridorSpec, clusters []planner.Cluster, segments []planner.SegmentLanes) string {
	speed := SpeedMPS(cs.Defaults)

	var b strings.Builder
	b.WriteString("<edges>\n")

	for _, seg := range segments {
		b.WriteString(fmt.Sprintf(
			`  <edge id="%s" from="%s" to="%s" numLanes="%d" speed="%.3f"/>`,
			builder.SegmentEdge(spec.DirEB, seg.West, seg.East),
			builder.MainNode(seg.West, spec.DirEB), builder.MainNode(seg.East, spec.DirEB),
			seg.EB, speed))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(
			`  <edge id="%s" from="%s" to="%s" numLanes="%d" speed="%.3f"/>`,
			builder.SegmentEdge(spec.DirWB, seg.West, seg.East),
			builder.MainNode(seg.East, spec.DirWB), builder.MainNode(seg.West, spec.DirWB),
			seg.WB, speed))
		b.WriteString("\n")
	}

	for i := range clusters {
		c := &clusters[i]
		if c.Junction == nil {
			continue
		}
		tpl, ok := cs.Template(c.Junction)
		if !ok {
			log.Warnf("junction at pos=%d references unknown template %q, minor edges skipped", c.Pos, c.Junction.Template)
			continue
		}
		for _, side := range junctionBranches(c.Junction) {
			attach := attachNode(c.Pos, side)
			b.WriteString(fmt.Sprintf(
				`  <edge id="%s" from="%s" to="%s" numLanes="%d" speed="%.3f"/>`,
				builder.MinorEdge(c.Pos, true, side),
				builder.MinorEndNode(c.Pos, side), attach,
				tpl.MinorLanesToMain, speed))
			b.WriteString("\n")
			b.WriteString(fmt.Sprintf(
				`  <edge id="%s" from="%s" to="%s" numLanes="%d" speed="%.3f"/>`,
				builder.MinorEdge(c.Pos, false, side),
				attach, builder.MinorEndNode(c.Pos, side),
				tpl.MinorLanesFromMain, speed))
			b.WriteString("\n")
		}
	}

	b.WriteString("</edges>\n")
	log.Infof("rendered edges for %d segments", len(segments))
	return b.String()
}

// attachNode picks the main-road node a minor arm joins: the
// carriageway nearest the arm, so the north arm meets the eastbound
// (north) node.
func attachNode(pos int, side spec.MinorSide) string {
	if side == spec.MinorNorth {
		return builder.MainNode(pos, spec.DirEB)
	}
	return builder.MainNode(pos, spec.DirWB)
}
