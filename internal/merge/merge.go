// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge combines a test board and a reference board into one
// unified board whose pins carry both measurements, and splits a unified
// board back into its two roles.
package merge

import (
	"errors"
	"fmt"

	"github.com/pdiddy/board-report/pkg/types"
)

// ErrStructureMismatch is returned when the two boards differ in element
// or pin counts.
var ErrStructureMismatch = errors.New("boards have different structure")

// MismatchError describes where two boards diverge. Element is -1 when the
// element counts differ.
type MismatchError struct {
	Element   int
	TestCount int
	RefCount  int
}

func (e *MismatchError) Error() string {
	if e.Element < 0 {
		return fmt.Sprintf("%s: test board has %d elements, reference board has %d",
			ErrStructureMismatch, e.TestCount, e.RefCount)
	}
	return fmt.Sprintf("%s: element %d has %d pins on test board, %d on reference board",
		ErrStructureMismatch, e.Element, e.TestCount, e.RefCount)
}

func (e *MismatchError) Unwrap() error { return ErrStructureMismatch }

// Boards builds a unified board from test and ref. Each unified pin holds a
// copy of the test pin's first measurement marked as test and, when ref is
// not nil, a copy of the reference pin's first measurement marked as
// reference. Image and PCB metadata come from the test board. Neither input
// is modified.
func Boards(test, ref *types.Board) (*types.Board, error) {
	if test == nil {
		return nil, errors.New("test board is required")
	}
	if ref != nil {
		if err := checkStructure(test, ref); err != nil {
			return nil, err
		}
	}

	out := &types.Board{
		Elements:  make([]types.Element, len(test.Elements)),
		ImagePath: test.ImagePath,
		Image:     test.Image,
	}
	if test.PCB != nil {
		pcb := *test.PCB
		out.PCB = &pcb
	}

	for ei, te := range test.Elements {
		elem := types.Element{
			Name:    te.Name,
			Package: te.Package,
			Pins:    make([]types.Pin, len(te.Pins)),
		}
		for pi, tp := range te.Pins {
			pin := copyPin(tp)
			if len(tp.Measurements) > 0 {
				m := tp.Measurements[0].Clone()
				m.IsReference = false
				pin.Measurements = append(pin.Measurements, m)
			}
			if ref != nil {
				rp := ref.Elements[ei].Pins[pi]
				if len(rp.Measurements) > 0 {
					m := rp.Measurements[0].Clone()
					m.IsReference = true
					pin.Measurements = append(pin.Measurements, m)
				}
			}
			elem.Pins[pi] = pin
		}
		out.Elements[ei] = elem
	}
	return out, nil
}

// Split recovers single-role boards from a unified board. The test board
// keeps every pin with its non-reference measurement; the reference board
// keeps every pin with its reference measurement. Both share the unified
// board's image and a copy of its PCB metadata.
func Split(board *types.Board) (test, ref *types.Board) {
	test = shell(board)
	ref = shell(board)
	for _, e := range board.Elements {
		te := types.Element{Name: e.Name, Package: e.Package, Pins: make([]types.Pin, len(e.Pins))}
		re := types.Element{Name: e.Name, Package: e.Package, Pins: make([]types.Pin, len(e.Pins))}
		for pi, p := range e.Pins {
			tp, rp := copyPin(p), copyPin(p)
			for _, m := range p.Measurements {
				c := m.Clone()
				if m.IsReference {
					c.IsReference = false
					rp.Measurements = append(rp.Measurements, c)
				} else {
					tp.Measurements = append(tp.Measurements, c)
				}
			}
			te.Pins[pi] = tp
			re.Pins[pi] = rp
		}
		test.Elements = append(test.Elements, te)
		ref.Elements = append(ref.Elements, re)
	}
	return test, ref
}

func checkStructure(test, ref *types.Board) error {
	if len(test.Elements) != len(ref.Elements) {
		return &MismatchError{Element: -1, TestCount: len(test.Elements), RefCount: len(ref.Elements)}
	}
	for i := range test.Elements {
		tn, rn := len(test.Elements[i].Pins), len(ref.Elements[i].Pins)
		if tn != rn {
			return &MismatchError{Element: i, TestCount: tn, RefCount: rn}
		}
	}
	return nil
}

// copyPin copies a pin without its measurements.
func copyPin(p types.Pin) types.Pin {
	out := types.Pin{
		X:       p.X,
		Y:       p.Y,
		Comment: p.Comment,
		IsLoss:  p.IsLoss,
	}
	if p.MultiplexerOutput != nil {
		mo := *p.MultiplexerOutput
		out.MultiplexerOutput = &mo
	}
	return out
}

func shell(b *types.Board) *types.Board {
	out := &types.Board{ImagePath: b.ImagePath, Image: b.Image}
	if b.PCB != nil {
		pcb := *b.PCB
		out.PCB = &pcb
	}
	return out
}
