package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corridor-tools/corridorgen/errs"
	"github.com/corridor-tools/corridorgen/planner"
	"github.com/corridor-tools/corridorgen/spec"
)

func TestSnap(t *testing.T) {
	lower := spec.SnapRule{StepM: 5, TieBreak: spec.TieBreakTowardLower}
	higher := spec.SnapRule{StepM: 5, TieBreak: spec.TieBreakTowardHigher}

	// nearest multiple wins regardless of policy
	assert.Equal(t, 120, planner.Snap(121.0, lower))
	assert.Equal(t, 120, planner.Snap(121.0, higher))
	assert.Equal(t, 125, planner.Snap(123.7, lower))

	// exact midpoint resolves by policy
	assert.Equal(t, 120, planner.Snap(122.5, lower))
	assert.Equal(t, 125, planner.Snap(122.5, higher))

	// exact multiple is a fixed point
	assert.Equal(t, 120, planner.Snap(120.0, lower))
	assert.Equal(t, 0, planner.Snap(0.0, higher))
}

func TestGridMax(t *testing.T) {
	assert.Equal(t, 495, planner.GridMax(497, 5))
	assert.Equal(t, 495, planner.GridMax(495, 5))
	assert.Equal(t, 500, planner.GridMax(500, 5))
	assert.Equal(t, 0, planner.GridMax(4, 5))
}

func TestSnapDistance(t *testing.T) {
	assert.Equal(t, 50, planner.SnapDistance(50, 5))
	assert.Equal(t, 50, planner.SnapDistance(52, 5))
	assert.Equal(t, 55, planner.SnapDistance(53, 5))
	assert.Equal(t, 0, planner.SnapDistance(0, 5))
	assert.Equal(t, 0, planner.SnapDistance(-3, 5))
}

func TestSnapChecked(t *testing.T) {
	main := spec.MainRoad{LengthM: 497, Lanes: 2}
	rule := spec.SnapRule{StepM: 5, TieBreak: spec.TieBreakTowardLower}

	pos, err := planner.SnapChecked(122.5, 0, "tee", main, rule)
	assert.NoError(t, err)
	assert.Equal(t, 120, pos)

	// raw positions beyond gridMax but within length clamp to gridMax
	pos, err = planner.SnapChecked(496.9, 1, "xwalk_midblock", main, rule)
	assert.NoError(t, err)
	assert.Equal(t, 495, pos)

	// outside [0, length] is fatal
	_, err = planner.SnapChecked(-0.1, 2, "tee", main, rule)
	var rangeErr *errs.RangeError
	assert.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 2, rangeErr.Index)

	_, err = planner.SnapChecked(497.5, 3, "cross", main, rule)
	assert.ErrorAs(t, err, &rangeErr)
}

func TestSnapEvents(t *testing.T) {
	cs := &spec.CorridorSpec{
		MainRoad: spec.MainRoad{LengthM: 500, Lanes: 2},
		Snap:     spec.SnapRule{StepM: 10, TieBreak: spec.TieBreakTowardHigher},
		Events: []spec.Event{
			{Kind: spec.EventTee, PosM: 123, Index: 0},
			{Kind: spec.EventMidblock, PosM: 245, Index: 1},
		},
	}
	events, err := planner.SnapEvents(cs)
	assert.NoError(t, err)
	assert.Equal(t, 120, events[0].SnappedPos)
	assert.Equal(t, 250, events[1].SnappedPos)
	// source events must stay untouched
	assert.Equal(t, 0, cs.Events[0].SnappedPos)
}
