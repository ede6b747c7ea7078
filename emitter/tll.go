package emitter

import (
	"fmt"
	"strings"

	"github.com/corridor-tools/corridorgen/signal"
)

const tllHeader = `<tlLogics version="1.20" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" ` +
	`xsi:noNamespaceSchemaLocation="http://sumo.dlr.de/xsd/tllogic_file.xsd">`

// RenderTLL renders the traffic light document: one static program
// per signalized cluster followed by the controlled-connection
// bindings that give each connection its state-string slot.
func RenderTLL(programs []signal.Program) string {
	var b strings.Builder
	b.WriteString(tllHeader)
	b.WriteString("\n")

	for _, p := range programs {
		b.WriteString(fmt.Sprintf(
			`    <tlLogic id="%s" type="static" programID="0" offset="%d">`, p.TLID, p.Offset))
		b.WriteString("\n")
		for _, phase := range p.Phases {
			b.WriteString(fmt.Sprintf(
				`        <phase duration="%d" state="%s"/>`, phase.DurationS, phase.State))
			b.WriteString("\n")
		}
		b.WriteString("    </tlLogic>\n")
	}

	for _, p := range programs {
		for _, l := range p.Links {
			if l.Vehicle == nil {
				continue
			}
			b.WriteString(fmt.Sprintf(
				`    <connection from="%s" to="%s" fromLane="%d" toLane="%d" tl="%s" linkIndex="%d"/>`,
				l.Vehicle.FromEdge, l.Vehicle.ToEdge, l.Vehicle.FromLane, l.Vehicle.ToLane, p.TLID, l.Index))
			b.WriteString("\n")
		}
	}

	b.WriteString("</tlLogics>\n")
	log.Infof("rendered %d traffic light programs", len(programs))
	return b.String()
}
