// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// PinType is the classification outcome of a pin.
type PinType string

const (
	PinReferenceEmpty    PinType = "reference_empty"
	PinReferenceLoss     PinType = "reference_loss"
	PinReferenceNotEmpty PinType = "reference_not_empty"
	PinTestEmpty         PinType = "test_empty"
	PinTestHighScore     PinType = "test_high_score"
	PinTestLowScore      PinType = "test_low_score"
)

var pinColors = map[PinType]string{
	PinReferenceEmpty:    "#f0f",
	PinReferenceLoss:     "#ff9900",
	PinReferenceNotEmpty: "#0f0",
	PinTestEmpty:         "#f0f",
	PinTestHighScore:     "#f00",
	PinTestLowScore:      "#0f0",
}

// Color returns the marker color for the pin type as a CSS hex string.
func (t PinType) Color() string {
	if c, ok := pinColors[t]; ok {
		return c
	}
	return "#000"
}

// ReportMode selects how pins are classified.
type ReportMode string

const (
	// ModeAuto picks test or reference from the board's measurements.
	ModeAuto      ReportMode = "auto"
	ModeTest      ReportMode = "test"
	ModeReference ReportMode = "reference"
)

// ParseReportMode converts a string to a ReportMode.
func ParseReportMode(s string) (ReportMode, error) {
	switch m := ReportMode(s); m {
	case ModeAuto, ModeTest, ModeReference:
		return m, nil
	case "":
		return ModeAuto, nil
	}
	return "", fmt.Errorf("unknown report mode %q (want auto, test, or reference)", s)
}

// ReportType identifies one of the generated HTML pages.
type ReportType string

const (
	ReportMap   ReportType = "map"
	ReportFull  ReportType = "full"
	ReportShort ReportType = "short"
)

// FileName returns the page file name inside the report directory.
func (t ReportType) FileName() string {
	switch t {
	case ReportMap:
		return "full_img.html"
	case ReportFull:
		return "report_full.html"
	default:
		return "report.html"
	}
}

// ScalingType selects the axis ranges of per-pin IV-curve plots.
type ScalingType string

const (
	// ScalingAuto uses 1.2 times the largest absolute sample of both curves.
	ScalingAuto ScalingType = "auto"

	// ScalingEyePointP10 derives ranges from the probe settings.
	ScalingEyePointP10 ScalingType = "eyepoint_p10"

	// ScalingUserDefined uses the per-pin scales from the configuration.
	ScalingUserDefined ScalingType = "user_defined"
)

// PinRecord is the classified view of one selected pin. Records are not
// modified after classification.
type PinRecord struct {
	ElementName       string             `json:"element_name" yaml:"element_name"`
	ElementIndex      int                `json:"element_index" yaml:"element_index"`
	PinIndex          int                `json:"pin_index" yaml:"pin_index"`
	X                 float64            `json:"x" yaml:"x"`
	Y                 float64            `json:"y" yaml:"y"`
	Measurements      []Measurement      `json:"measurements" yaml:"measurements"`
	Score             *float64           `json:"score,omitempty" yaml:"score,omitempty"`
	Type              PinType            `json:"pin_type" yaml:"pin_type"`
	TotalPinIndex     int                `json:"total_pin_index" yaml:"total_pin_index"`
	Comment           string             `json:"comment,omitempty" yaml:"comment,omitempty"`
	MultiplexerOutput *MultiplexerOutput `json:"multiplexer_output,omitempty" yaml:"multiplexer_output,omitempty"`
}

// Name returns the "<element>_<pin>" key used in file names and page anchors.
func (r PinRecord) Name() string {
	return fmt.Sprintf("%d_%d", r.ElementIndex, r.PinIndex)
}

// TestMeasurement returns the non-reference measurement, if any.
func (r PinRecord) TestMeasurement() (Measurement, bool) {
	for _, m := range r.Measurements {
		if !m.IsReference {
			return m, true
		}
	}
	return Measurement{}, false
}

// ReferenceMeasurement returns the reference measurement, if any.
func (r PinRecord) ReferenceMeasurement() (Measurement, bool) {
	for _, m := range r.Measurements {
		if m.IsReference {
			return m, true
		}
	}
	return Measurement{}, false
}
