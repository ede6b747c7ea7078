package spec

import (
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v2"

	"github.com/corridor-tools/corridorgen/errs"
)

// supportedVersionPrefix gates the document format. Minor revisions
// within the major line are accepted.
const supportedVersionPrefix = "1."

// Load reads and resolves a corridor specification file.
func Load(path string) (*CorridorSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.SchemaError{Field: path, Reason: err.Error()}
	}
	return Parse(raw)
}

// Parse decodes a YAML corridor document, resolves template and
// profile references into lookup maps, parses phase tokens and runs
// the non-positional semantic checks. Position checks (raw range,
// snapping) belong to the planner.
func Parse(raw []byte) (*CorridorSpec, error) {
	var doc Document
	if err := yaml.UnmarshalStrict(raw, &doc); err != nil {
		return nil, &errs.SchemaError{Field: "document", Reason: err.Error()}
	}
	if !strings.HasPrefix(doc.Version, supportedVersionPrefix) {
		return nil, &errs.SchemaError{
			Field:  "version",
			Reason: fmt.Sprintf("unsupported version %q (expected %s*)", doc.Version, supportedVersionPrefix),
		}
	}
	if doc.Snap.StepM < 1 {
		return nil, &errs.ConfigError{Entity: "snap.step_m", Reason: fmt.Sprintf("must be >= 1 (got %d)", doc.Snap.StepM)}
	}
	switch doc.Snap.TieBreak {
	case TieBreakTowardLower, TieBreakTowardHigher:
	default:
		return nil, &errs.ConfigError{Entity: "snap.tie_break", Reason: fmt.Sprintf("unknown policy %q", doc.Snap.TieBreak)}
	}
	if doc.MainRoad.LengthM <= 0 {
		return nil, &errs.ConfigError{Entity: "main_road.length_m", Reason: "must be positive"}
	}
	if doc.MainRoad.Lanes < 1 {
		return nil, &errs.ConfigError{Entity: "main_road.lanes", Reason: "must be >= 1"}
	}

	templates, err := resolveTemplates(&doc)
	if err != nil {
		return nil, err
	}
	profiles, err := resolveProfiles(&doc)
	if err != nil {
		return nil, err
	}

	cs := &CorridorSpec{
		Version:   doc.Version,
		Snap:      doc.Snap,
		Defaults:  doc.Defaults,
		MainRoad:  doc.MainRoad,
		Templates: templates,
		Profiles:  profiles,
		Events:    make([]Event, len(doc.Layout)),
	}
	for i := range doc.Layout {
		ev := doc.Layout[i]
		ev.Index = i
		cs.Events[i] = ev
	}
	if err := validateEvents(cs); err != nil {
		return nil, err
	}
	log.Infof("spec loaded: %d event(s), %d template(s), %d profile kind(s)",
		len(cs.Events), len(cs.Templates), len(cs.Profiles))
	return cs, nil
}

func resolveTemplates(doc *Document) (map[string]JunctionTemplate, error) {
	templates := make(map[string]JunctionTemplate)
	sections := []struct {
		kind EventKind
		list []JunctionTemplate
	}{
		{EventTee, doc.JunctionTemplates.Tee},
		{EventCross, doc.JunctionTemplates.Cross},
	}
	for _, sec := range sections {
		for _, tpl := range sec.list {
			if _, dup := templates[tpl.ID]; dup {
				return nil, &errs.ConfigError{
					Entity: "junction_templates." + tpl.ID,
					Reason: "duplicate template id",
				}
			}
			if tpl.MainApproachBeginM < 0 {
				return nil, &errs.ConfigError{
					Entity: "junction_templates." + tpl.ID,
					Reason: fmt.Sprintf("main_approach_begin_m must be >= 0 (got %d)", tpl.MainApproachBeginM),
				}
			}
			if tpl.MinorLanesToMain < 1 || tpl.MinorLanesFromMain < 1 {
				return nil, &errs.ConfigError{
					Entity: "junction_templates." + tpl.ID,
					Reason: "minor lane counts must be >= 1",
				}
			}
			tpl.Kind = sec.kind
			templates[tpl.ID] = tpl
		}
	}
	return templates, nil
}

func resolveProfiles(doc *Document) (map[EventKind]map[string]SignalProfile, error) {
	profiles := map[EventKind]map[string]SignalProfile{
		EventTee:      {},
		EventCross:    {},
		EventMidblock: {},
	}
	sections := []struct {
		kind EventKind
		list []SignalProfile
	}{
		{EventTee, doc.SignalProfiles.Tee},
		{EventCross, doc.SignalProfiles.Cross},
		{EventMidblock, doc.SignalProfiles.Midblock},
	}
	for _, sec := range sections {
		for _, p := range sec.list {
			entity := fmt.Sprintf("signal_profiles.%s.%s", sec.kind, p.ID)
			if _, dup := profiles[sec.kind][p.ID]; dup {
				return nil, &errs.ConfigError{Entity: entity, Reason: "duplicate profile id within kind"}
			}
			if p.CycleS <= 0 {
				return nil, &errs.ConfigError{Entity: entity, Reason: "cycle_s must be positive"}
			}
			if p.YellowDurationS < 0 || p.YellowDurationS >= p.CycleS {
				return nil, &errs.ConfigError{
					Entity: entity,
					Reason: fmt.Sprintf("yellow_duration_s=%d must satisfy 0 <= value < cycle_s=%d", p.YellowDurationS, p.CycleS),
				}
			}
			if sec.kind == EventMidblock && p.PedEarlyCutoffS != 0 {
				return nil, &errs.ConfigError{Entity: entity, Reason: "ped_early_cutoff_s is only valid for intersections"}
			}
			if p.PedEarlyCutoffS < 0 || p.PedEarlyCutoffS >= p.CycleS {
				return nil, &errs.ConfigError{
					Entity: entity,
					Reason: fmt.Sprintf("ped_early_cutoff_s=%d must satisfy 0 <= value < cycle_s=%d", p.PedEarlyCutoffS, p.CycleS),
				}
			}
			sum := 0
			for pi := range p.Phases {
				phase := &p.Phases[pi]
				if phase.DurationS <= 0 {
					return nil, &errs.ConfigError{
						Entity: entity,
						Reason: fmt.Sprintf("phase %d duration_s must be positive", pi),
					}
				}
				phase.Selectors = make([]PhaseSelector, 0, len(phase.Allow))
				for _, token := range phase.Allow {
					sel, err := ParsePhaseToken(token)
					if err != nil {
						return nil, &errs.ConfigError{Entity: entity, Reason: err.Error()}
					}
					phase.Selectors = append(phase.Selectors, sel)
				}
				sum += phase.DurationS
			}
			// The precondition every signal program must satisfy before
			// any resolution starts.
			if sum != p.CycleS {
				return nil, &errs.ConfigError{
					Entity: entity,
					Reason: fmt.Sprintf("sum(phase durations)=%d != cycle_s=%d", sum, p.CycleS),
				}
			}
			p.Kind = sec.kind
			profiles[sec.kind][p.ID] = p
		}
	}
	log.Infof("signal profiles: tee=%d cross=%d xwalk_midblock=%d",
		len(profiles[EventTee]), len(profiles[EventCross]), len(profiles[EventMidblock]))
	return profiles, nil
}

// validateEvents runs the non-positional semantic checks over the
// layout: reference integrity, branch validity and signal flag
// consistency. Mirrors the external checker's contract so the planner
// may assume a well-formed graph.
func validateEvents(cs *CorridorSpec) error {
	for i := range cs.Events {
		ev := &cs.Events[i]
		entity := fmt.Sprintf("layout[%d]", i)
		switch ev.Kind {
		case EventTee, EventCross, EventMidblock:
		default:
			return &errs.SchemaError{Field: entity, Reason: fmt.Sprintf("unknown event type %q", ev.Kind)}
		}
		if ev.Kind.IsJunction() {
			if _, ok := cs.Templates[ev.Template]; !ok {
				return &errs.ConfigError{
					Entity: entity,
					Reason: fmt.Sprintf("junction template %q missing or unknown", ev.Template),
				}
			}
			if cs.Templates[ev.Template].Kind != ev.Kind {
				return &errs.ConfigError{
					Entity: entity,
					Reason: fmt.Sprintf("template %q declared for kind %s, referenced by %s", ev.Template, cs.Templates[ev.Template].Kind, ev.Kind),
				}
			}
			if ev.Kind == EventTee && ev.Branch != MinorNorth && ev.Branch != MinorSouth {
				return &errs.SchemaError{Field: entity + ".branch", Reason: fmt.Sprintf("must be north or south (got %q)", ev.Branch)}
			}
		}
		if ev.Signalized && ev.Signal == nil {
			return &errs.SchemaError{Field: entity, Reason: "signalized=true requires a signal reference"}
		}
		if !ev.Signalized && ev.Signal != nil {
			return &errs.SchemaError{Field: entity, Reason: "signal reference requires signalized=true"}
		}
		if ev.Signalized {
			if _, ok := cs.Profile(ev); !ok {
				return &errs.ConfigError{
					Entity: entity,
					Reason: fmt.Sprintf("unknown signal profile %q for kind %s", ev.Signal.ProfileID, ev.Kind),
				}
			}
		}
		if ev.TwoStageTLLControl != nil {
			if !ev.Signalized || !ev.RefugeIslandOnMain {
				return &errs.ConfigError{
					Entity: entity,
					Reason: "two_stage_tll_control requires signalized=true and refuge_island_on_main=true",
				}
			}
		}
	}

	// Ambient sanity: warn on unreferenced templates, they are usually
	// a sign of a stale document.
	used := lo.SliceToMap(cs.Events, func(ev Event) (string, struct{}) {
		return ev.Template, struct{}{}
	})
	for id := range cs.Templates {
		if _, ok := used[id]; !ok {
			log.Warnf("junction template %q is never referenced", id)
		}
	}
	return nil
}
