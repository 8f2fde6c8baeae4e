package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes pushed on the /diag stream.
const (
	PixelIndex     = "PIXEL.INDEX"
	PatternUnknown = "PATTERN.UNKNOWN"
	PatternChanged = "PATTERN.CHANGED"
	WeatherFetch   = "WEATHER.FETCH"
	SettingsSaved  = "SETTINGS.SAVED"
	DriverWrite    = "DRIVER.WRITE"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Sink receives diagnostics. The api hub implements it.
type Sink interface {
	Push(d Diagnostic)
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Push(Diagnostic) {}

func IndexOutOfRange(index, count int) Diagnostic {
	return Diagnostic{
		Severity: Warn,
		Code:     PixelIndex,
		Summary:  "Pixel index out of range",
		LikelyCauses: []string{
			"client assumes a longer strip than led_count",
			"client uses 1-based indices",
		},
		SuggestedFixes: []string{"query /api/status for the pixel count"},
		Evidence:       map[string]any{"index": index, "count": count},
	}
}

func UnknownPattern(id int) Diagnostic {
	return Diagnostic{
		Severity:       Warn,
		Code:           PatternUnknown,
		Summary:        "Unknown pattern id",
		SuggestedFixes: []string{"GET /api/patterns lists the valid ids"},
		Evidence:       map[string]any{"pattern": id},
	}
}

func WeatherFailed(err error) Diagnostic {
	return Diagnostic{
		Severity: Err,
		Code:     WeatherFetch,
		Summary:  "Weather refresh failed",
		Detail:   err.Error(),
		LikelyCauses: []string{
			"invalid or missing api_key",
			"unknown city or no network",
		},
	}
}

func DriverFailed(err error) Diagnostic {
	return Diagnostic{
		Severity: Err,
		Code:     DriverWrite,
		Summary:  "Driver writes failing",
		Detail:   err.Error(),
		LikelyCauses: []string{
			"serial bridge unplugged or reset",
			"SPI port claimed by another process",
		},
	}
}
