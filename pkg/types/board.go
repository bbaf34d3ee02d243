// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data types for board-report: boards,
// pins, measurements, classified pin records, and report configuration.
package types

import "image"

// IVCurve is a sampled current-voltage signature. Currents are in amperes,
// voltages in volts. Both slices have the same length.
type IVCurve struct {
	Currents []float64 `json:"currents" yaml:"currents"`
	Voltages []float64 `json:"voltages" yaml:"voltages"`
}

// Len returns the number of samples in the curve.
func (c IVCurve) Len() int {
	if len(c.Currents) < len(c.Voltages) {
		return len(c.Currents)
	}
	return len(c.Voltages)
}

// Clone returns a deep copy of the curve.
func (c IVCurve) Clone() IVCurve {
	return IVCurve{
		Currents: append([]float64(nil), c.Currents...),
		Voltages: append([]float64(nil), c.Voltages...),
	}
}

// MeasurementSettings holds the tester parameters a curve was taken with.
type MeasurementSettings struct {
	// SamplingRate is the ADC sampling rate in Hz.
	SamplingRate float64 `json:"sampling_rate" yaml:"sampling_rate"`

	// InternalResistance is the probe's internal resistance in ohms.
	InternalResistance float64 `json:"internal_resistance" yaml:"internal_resistance"`

	// ProbeSignalFrequency is the probe signal frequency in Hz.
	ProbeSignalFrequency float64 `json:"probe_signal_frequency" yaml:"probe_signal_frequency"`

	// MaxVoltage is the probe signal amplitude in volts.
	MaxVoltage float64 `json:"max_voltage" yaml:"max_voltage"`
}

// Measurement is one IV-curve taken on a pin.
type Measurement struct {
	Settings    MeasurementSettings `json:"settings" yaml:"settings"`
	IVC         IVCurve             `json:"ivc" yaml:"ivc"`
	IsReference bool                `json:"is_reference" yaml:"is_reference"`
	IsDynamic   bool                `json:"is_dynamic,omitempty" yaml:"is_dynamic,omitempty"`
	Comment     string              `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Clone returns a deep copy of the measurement.
func (m Measurement) Clone() Measurement {
	c := m
	c.IVC = m.IVC.Clone()
	return c
}

// MultiplexerOutput addresses the tester multiplexer line a pin is wired to.
type MultiplexerOutput struct {
	ModuleNumber  int `json:"module_number" yaml:"module_number"`
	ChannelNumber int `json:"channel_number" yaml:"channel_number"`
}

// Pin is a probe point on an element.
type Pin struct {
	X                 float64            `json:"x" yaml:"x"`
	Y                 float64            `json:"y" yaml:"y"`
	Comment           string             `json:"comment,omitempty" yaml:"comment,omitempty"`
	MultiplexerOutput *MultiplexerOutput `json:"multiplexer_output,omitempty" yaml:"multiplexer_output,omitempty"`

	// IsLoss marks a pin whose reference measurement was lost.
	IsLoss bool `json:"is_loss,omitempty" yaml:"is_loss,omitempty"`

	// Measurements holds up to two measurements: one test and one reference.
	Measurements []Measurement `json:"measurements" yaml:"measurements"`
}

// Element is a component on the board.
type Element struct {
	Name    string `json:"name" yaml:"name"`
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
	Pins    []Pin  `json:"pins" yaml:"pins"`
}

// PCBInfo describes the printed circuit board itself.
type PCBInfo struct {
	Name        string  `json:"pcb_name" yaml:"pcb_name"`
	Comment     string  `json:"comment,omitempty" yaml:"comment,omitempty"`
	PixelsPerCm float64 `json:"pixels_per_cm,omitempty" yaml:"pixels_per_cm,omitempty"`
}

// Board is a full inspection board: elements, their pins and measurements,
// optional PCB metadata, and an optional photograph.
type Board struct {
	Elements []Element `json:"elements" yaml:"elements"`
	PCB      *PCBInfo  `json:"pcb,omitempty" yaml:"pcb,omitempty"`

	// ImagePath is the photograph path as stored in the board file.
	ImagePath string `json:"image,omitempty" yaml:"image,omitempty"`

	// Image is the decoded photograph. It is not serialized.
	Image image.Image `json:"-" yaml:"-"`
}

// PinsNumber returns the total number of pins across all elements.
func (b *Board) PinsNumber() int {
	n := 0
	for _, e := range b.Elements {
		n += len(e.Pins)
	}
	return n
}
