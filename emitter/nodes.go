// Package emitter renders the planned corridor into the four plainXML
// documents consumed by network compilation: nodes, edges, connections
// with crossings, and traffic light programs. Output is line-oriented
// and fully deterministic for a given input.
package emitter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/corridor-tools/corridorgen/builder"
	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/spec"
)

// carriagewayY returns the axis offsets of the two carriageways. The
// corridor centerline is y=0; eastbound runs the north (positive)
// half.
func carriagewayY(main spec.MainRoad) (eb, wb float64) {
	return main.CenterGapM / 2, -main.CenterGapM / 2
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// RenderNodes renders the node document: one node per carriageway per
// breakpoint, a join directive collapsing each interior breakpoint
// pair into its cluster node, and the dead-end nodes of minor arms.
func RenderNodes(main spec.MainRoad, defaults spec.Defaults, clusters []planner.Cluster, breakpoints []planner.Breakpoint) string {
	yEB, yWB := carriagewayY(main)
	positions := planner.Positions(breakpoints)
	gridMax := 0
	if len(positions) > 0 {
		gridMax = positions[len(positions)-1]
	}

	signalized := map[int]bool{}
	for i := range clusters {
		if clusters[i].Signalized() {
			signalized[clusters[i].Pos] = true
		}
	}

	var b strings.Builder
	b.WriteString("<nodes>\n")

	mainNode := func(dir spec.MainDirection, pos int, y float64) string {
		attrs := fmt.Sprintf(`id="%s" x="%d" y="%s"`, builder.MainNode(pos, dir), pos, num(y))
		if signalized[pos] {
			attrs += fmt.Sprintf(` type="traffic_light" tl="%s"`, builder.ClusterNode(pos))
		}
		return "  <node " + attrs + "/>\n"
	}
	for _, pos := range positions {
		b.WriteString(mainNode(spec.DirEB, pos, yEB))
		b.WriteString(mainNode(spec.DirWB, pos, yWB))
	}

	for _, bp := range breakpoints {
		if bp.Pos == 0 || bp.Pos == gridMax {
			continue
		}
		attrs := fmt.Sprintf(`id="%s" x="%d" y="0" nodes="%s %s"`,
			builder.ClusterNode(bp.Pos), bp.Pos,
			builder.MainNode(bp.Pos, spec.DirEB), builder.MainNode(bp.Pos, spec.DirWB))
		if signalized[bp.Pos] {
			attrs += fmt.Sprintf(` type="traffic_light" tl="%s"`, builder.ClusterNode(bp.Pos))
		}
		reasons := strings.Join(lo.Map(bp.Reasons, func(r planner.Reason, _ int) string { return string(r) }), ",")
		b.WriteString(fmt.Sprintf("  <join %s/>  <!-- reasons: %s -->\n", attrs, reasons))
	}

	for i := range clusters {
		c := &clusters[i]
		if c.Junction == nil {
			continue
		}
		for _, side := range junctionBranches(c.Junction) {
			y := defaults.MinorRoadLengthM
			if side == spec.MinorSouth {
				y = -y
			}
			b.WriteString(fmt.Sprintf(`  <node id="%s" x="%d" y="%d"/>`,
				builder.MinorEndNode(c.Pos, side), c.Pos, y))
			b.WriteString("\n")
		}
	}

	b.WriteString("</nodes>\n")
	log.Infof("rendered nodes for %d breakpoints", len(positions))
	return b.String()
}

func junctionBranches(ev *spec.Event) []spec.MinorSide {
	if ev.Kind == spec.EventCross {
		return []spec.MinorSide{spec.MinorNorth, spec.MinorSouth}
	}
	return []spec.MinorSide{ev.Branch}
}
