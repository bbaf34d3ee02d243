// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/board-report/internal/pipeline"
	"github.com/pdiddy/board-report/pkg/types"
)

func TestPrintProgress(t *testing.T) {
	events := make(chan pipeline.Event, 8)
	events <- pipeline.Event{Kind: pipeline.EventStepStarted, Step: "classify"}
	events <- pipeline.Event{Kind: pipeline.EventStepDone, Step: "classify"}
	events <- pipeline.Event{Kind: pipeline.EventTotalSteps, Total: 2}
	events <- pipeline.Event{Kind: pipeline.EventStepDone, Step: "faulty_pins"}
	events <- pipeline.Event{Kind: pipeline.EventStepDone, Step: "generate_report"}
	close(events)

	var buf bytes.Buffer
	printProgress(&buf, events)
	out := buf.String()
	assert.Contains(t, out, "classify...")
	assert.Contains(t, out, "[2/2]")
	assert.Equal(t, 1, strings.Count(out, "["))
	assert.NotContains(t, out, "[3/2]")
}

func TestMarkReference(t *testing.T) {
	b := &types.Board{Elements: []types.Element{{Pins: []types.Pin{
		{Measurements: []types.Measurement{{}}},
		{},
	}}}}
	markReference(b)
	assert.True(t, b.Elements[0].Pins[0].Measurements[0].IsReference)
}
