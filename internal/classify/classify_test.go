// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/board-report/internal/ivc"
	"github.com/pdiddy/board-report/pkg/types"
)

func ptr(f float64) *float64 { return &f }

func curve() types.IVCurve {
	return types.IVCurve{
		Voltages: []float64{-1, -0.5, 0, 0.5, 1},
		Currents: []float64{-0.01, -0.005, 0, 0.005, 0.01},
	}
}

func meas(ref bool) types.Measurement {
	return types.Measurement{
		Settings:    types.MeasurementSettings{InternalResistance: 100, MaxVoltage: 5},
		IVC:         curve(),
		IsReference: ref,
	}
}

// constComparator returns the same raw value for every pair and records
// the noise it was called with.
type constComparator struct {
	raw   float64
	noise [][2]float64
}

func (c *constComparator) Compare(_, _ types.IVCurve, v, i float64) (float64, error) {
	c.noise = append(c.noise, [2]float64{v, i})
	return c.raw, nil
}

// gridBoard builds an elements x pins board where every pin has the given
// measurements.
func gridBoard(elements, pins int, ms ...types.Measurement) *types.Board {
	b := &types.Board{}
	for e := 0; e < elements; e++ {
		el := types.Element{Name: "E"}
		for p := 0; p < pins; p++ {
			pin := types.Pin{X: float64(p), Y: float64(e)}
			for _, m := range ms {
				pin.Measurements = append(pin.Measurements, m.Clone())
			}
			el.Pins = append(el.Pins, pin)
		}
		b.Elements = append(b.Elements, el)
	}
	return b
}

func TestPins_IdenticalCurvesAreLowScore(t *testing.T) {
	b := gridBoard(1, 1, meas(false), meas(true))
	recs, err := Pins(context.Background(), b, Options{
		Scope:      types.WholeBoardScope(),
		Tolerance:  ptr(20),
		Mode:       types.ModeTest,
		Comparator: ivc.New(),
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].Score)
	assert.Equal(t, 0.0, *recs[0].Score)
	assert.Equal(t, types.PinTestLowScore, recs[0].Type)
	assert.Empty(t, FaultyPins(recs, ptr(20)))
}

func TestPins_GlobalIndexCountsUnselectedPins(t *testing.T) {
	b := gridBoard(2, 3, meas(false))
	recs, err := Pins(context.Background(), b, Options{
		Scope: types.Scope{Pins: []int{4}},
		Mode:  types.ModeTest,
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 4, recs[0].TotalPinIndex)
	assert.Equal(t, 1, recs[0].ElementIndex)
	assert.Equal(t, 1, recs[0].PinIndex)

	all, err := Pins(context.Background(), b, Options{Scope: types.WholeBoardScope(), Mode: types.ModeTest})
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i, r := range all {
		assert.Equal(t, i, r.TotalPinIndex)
	}
}

func TestPins_ScopeSelection(t *testing.T) {
	b := gridBoard(3, 2, meas(false))
	tests := []struct {
		name  string
		scope types.Scope
		want  []int
	}{
		{name: "whole board wins", scope: types.Scope{WholeBoard: true, Elements: []int{0}}, want: []int{0, 1, 2, 3, 4, 5}},
		{name: "elements", scope: types.Scope{Elements: []int{2}}, want: []int{4, 5}},
		{name: "pins", scope: types.Scope{Pins: []int{0, 3}}, want: []int{0, 3}},
		{name: "union", scope: types.Scope{Elements: []int{0}, Pins: []int{5}}, want: []int{0, 1, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := Pins(context.Background(), b, Options{Scope: tt.scope, Mode: types.ModeTest})
			require.NoError(t, err)
			var got []int
			for _, r := range recs {
				got = append(got, r.TotalPinIndex)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPins_NoiseOverridesFollowAccountedIndex(t *testing.T) {
	b := gridBoard(1, 3, meas(false), meas(true))
	cmp := &constComparator{raw: 0.5}
	_, err := Pins(context.Background(), b, Options{
		Scope: types.Scope{Pins: []int{1, 2}},
		Mode:  types.ModeTest,
		NoiseAmplitudes: []*types.NoiseAmplitude{
			{Voltage: 1, Current: 2},
			nil,
		},
		Comparator: cmp,
	})
	require.NoError(t, err)
	require.Len(t, cmp.noise, 2)
	assert.Equal(t, [2]float64{1, 2}, cmp.noise[0], "pin 1 is the first accounted pin")
	assert.InDelta(t, 0.25, cmp.noise[1][0], 1e-12)
	assert.InDelta(t, 2.5, cmp.noise[1][1], 1e-12)
}

func TestPins_MalformedNoiseOverrideFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		override types.NoiseAmplitude
	}{
		{name: "zero", override: types.NoiseAmplitude{}},
		{name: "negative voltage", override: types.NoiseAmplitude{Voltage: -1, Current: 2}},
		{name: "NaN current", override: types.NoiseAmplitude{Voltage: 1, Current: math.NaN()}},
		{name: "infinite voltage", override: types.NoiseAmplitude{Voltage: math.Inf(1), Current: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := &constComparator{raw: 0.1}
			override := tt.override
			recs, err := Pins(context.Background(), gridBoard(1, 1, meas(false), meas(true)), Options{
				Scope:           types.WholeBoardScope(),
				Mode:            types.ModeTest,
				NoiseAmplitudes: []*types.NoiseAmplitude{&override},
				Comparator:      cmp,
			})
			require.NoError(t, err)
			require.Len(t, recs, 1)
			require.Len(t, cmp.noise, 1)
			assert.InDelta(t, 0.25, cmp.noise[0][0], 1e-12)
			assert.InDelta(t, 2.5, cmp.noise[0][1], 1e-12)
		})
	}
}

func TestPins_RejectsMalformedUnifiedPins(t *testing.T) {
	tests := []struct {
		name string
		ms   []types.Measurement
	}{
		{name: "two test measurements", ms: []types.Measurement{meas(false), meas(false)}},
		{name: "two reference measurements", ms: []types.Measurement{meas(true), meas(true)}},
		{name: "three measurements", ms: []types.Measurement{meas(false), meas(true), meas(false)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := gridBoard(1, 2, meas(false), meas(true))
			b.Elements[0].Pins[1].Measurements = tt.ms
			cmp := &constComparator{raw: 0.5}
			recs, err := Pins(context.Background(), b, Options{
				Scope:      types.WholeBoardScope(),
				Tolerance:  ptr(1),
				Mode:       types.ModeTest,
				Comparator: cmp,
			})
			require.ErrorIs(t, err, ErrInvalidPin)
			assert.Contains(t, err.Error(), "0_1")
			assert.Nil(t, recs)
		})
	}
}

func TestPins_ComparesTestAgainstReference(t *testing.T) {
	b := gridBoard(1, 1)
	test, ref := meas(false), meas(true)
	ref.IVC = types.IVCurve{Voltages: []float64{9}, Currents: []float64{9}}
	b.Elements[0].Pins[0].Measurements = []types.Measurement{ref, test}

	var gotA, gotB types.IVCurve
	_, err := Pins(context.Background(), b, Options{
		Scope: types.WholeBoardScope(),
		Mode:  types.ModeTest,
		Comparator: ComparatorFunc(func(x, y types.IVCurve, _, _ float64) (float64, error) {
			gotA, gotB = x, y
			return 0, nil
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, test.IVC, gotA, "first curve is the test measurement")
	assert.Equal(t, ref.IVC, gotB)
}

func TestPins_ScoreRounding(t *testing.T) {
	b := gridBoard(1, 1, meas(false), meas(true))
	recs, err := Pins(context.Background(), b, Options{
		Scope:      types.WholeBoardScope(),
		Tolerance:  ptr(12.3),
		Mode:       types.ModeTest,
		Comparator: &constComparator{raw: 0.12345},
	})
	require.NoError(t, err)
	assert.Equal(t, 12.3, *recs[0].Score)
	assert.Equal(t, types.PinTestHighScore, recs[0].Type, "score equal to tolerance is high")
	assert.Empty(t, FaultyPins(recs, ptr(12.3)), "score equal to tolerance is not faulty")
}

func TestPins_NoToleranceIsLowScore(t *testing.T) {
	b := gridBoard(1, 1, meas(false), meas(true))
	recs, err := Pins(context.Background(), b, Options{
		Scope:      types.WholeBoardScope(),
		Mode:       types.ModeTest,
		Comparator: &constComparator{raw: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, types.PinTestLowScore, recs[0].Type)
	assert.Nil(t, FaultyPins(recs, nil))
}

func TestPins_ComparatorError(t *testing.T) {
	b := gridBoard(1, 1, meas(false), meas(true))
	boom := errors.New("boom")
	_, err := Pins(context.Background(), b, Options{
		Scope: types.WholeBoardScope(),
		Mode:  types.ModeTest,
		Comparator: ComparatorFunc(func(_, _ types.IVCurve, _, _ float64) (float64, error) {
			return 0, boom
		}),
	})
	assert.ErrorIs(t, err, boom)
}

func TestPins_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Pins(ctx, gridBoard(1, 1, meas(false)), Options{Scope: types.WholeBoardScope(), Mode: types.ModeTest})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPins_RejectsAutoMode(t *testing.T) {
	_, err := Pins(context.Background(), gridBoard(1, 1), Options{Scope: types.WholeBoardScope(), Mode: types.ModeAuto})
	assert.Error(t, err)
}

func TestPinType(t *testing.T) {
	tests := []struct {
		name   string
		mode   types.ReportMode
		n      int
		score  *float64
		tol    *float64
		isLoss bool
		want   types.PinType
	}{
		{name: "test empty", mode: types.ModeTest, n: 1, want: types.PinTestEmpty},
		{name: "test no measurements", mode: types.ModeTest, n: 0, want: types.PinTestEmpty},
		{name: "test high", mode: types.ModeTest, n: 2, score: ptr(30), tol: ptr(20), want: types.PinTestHighScore},
		{name: "test equal is high", mode: types.ModeTest, n: 2, score: ptr(20), tol: ptr(20), want: types.PinTestHighScore},
		{name: "test low", mode: types.ModeTest, n: 2, score: ptr(10), tol: ptr(20), want: types.PinTestLowScore},
		{name: "test no tolerance", mode: types.ModeTest, n: 2, score: ptr(99), want: types.PinTestLowScore},
		{name: "reference empty", mode: types.ModeReference, n: 0, want: types.PinReferenceEmpty},
		{name: "reference loss", mode: types.ModeReference, n: 1, isLoss: true, want: types.PinReferenceLoss},
		{name: "reference not empty", mode: types.ModeReference, n: 1, want: types.PinReferenceNotEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PinType(tt.mode, tt.n, tt.score, tt.tol, tt.isLoss))
		})
	}
}

func TestDetectMode(t *testing.T) {
	ctx := context.Background()

	mode, err := DetectMode(ctx, gridBoard(1, 2, meas(true)))
	require.NoError(t, err)
	assert.Equal(t, types.ModeReference, mode)

	mixed := gridBoard(2, 2, meas(true))
	mixed.Elements[1].Pins[1].Measurements = append(mixed.Elements[1].Pins[1].Measurements, meas(false))
	mode, err = DetectMode(ctx, mixed)
	require.NoError(t, err)
	assert.Equal(t, types.ModeTest, mode)

	mode, err = DetectMode(ctx, &types.Board{})
	require.NoError(t, err)
	assert.Equal(t, types.ModeReference, mode)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = DetectMode(cancelled, mixed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNoiseAmplitudes(t *testing.T) {
	v, c := NoiseAmplitudes(types.Pin{})
	assert.Equal(t, 0.6, v)
	assert.Equal(t, 0.2, c)

	v, c = NoiseAmplitudes(types.Pin{Measurements: []types.Measurement{meas(false)}})
	assert.InDelta(t, 0.25, v, 1e-12)
	assert.InDelta(t, 2.5, c, 1e-12)
}

func TestElementsNumberAndScores(t *testing.T) {
	recs := []types.PinRecord{
		{ElementIndex: 0, Score: ptr(1)},
		{ElementIndex: 0},
		{ElementIndex: 3, Score: ptr(50)},
	}
	assert.Equal(t, 2, ElementsNumber(recs))
	assert.Equal(t, []float64{1, 50}, Scores(recs))
	assert.Equal(t, 0, ElementsNumber(nil))
}

func TestFaultyPins_StrictThreshold(t *testing.T) {
	recs := []types.PinRecord{
		{TotalPinIndex: 0, Score: ptr(19.9)},
		{TotalPinIndex: 1, Score: ptr(20)},
		{TotalPinIndex: 2, Score: ptr(20.1)},
		{TotalPinIndex: 3},
	}
	got := FaultyPins(recs, ptr(20))
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].TotalPinIndex)
}
