// Package shot defines the core domain model for clip analysis: the clip
// and analysis records persisted in Aurora, the shot classification
// enumerations shared between the worker and the API surface, and the
// override logic that lets a user correct a model prediction.
package shot

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an analysis row.
// pending → processing → success|failed; terminal states never rewind.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is an absorbing state.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransition reports whether moving from s to next preserves the
// monotonic lifecycle: forward only, and never out of a terminal state.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusProcessing || next.Terminal()
	case StatusProcessing:
		return next.Terminal()
	}
	return false
}

// Type is the range category of a shot attempt, based on shooter position
// at release.
type Type string

const (
	TypeLayUp        Type = "lay_up"
	TypeInPaint      Type = "in_paint"
	TypeMidRange     Type = "mid_range"
	TypeThreePointer Type = "three_pointer"
	TypeFreeThrow    Type = "free_throw"
)

// Result is the outcome of a shot attempt.
type Result string

const (
	ResultMake Result = "make"
	ResultMiss Result = "miss"
)

// Types lists every valid shot range category.
var Types = []Type{TypeLayUp, TypeInPaint, TypeMidRange, TypeThreePointer, TypeFreeThrow}

// Results lists every valid shot outcome.
var Results = []Result{ResultMake, ResultMiss}

// ParseType normalizes a model-emitted range label (e.g. "LAY_UP", " mid_range ")
// to its canonical Type. Returns false for anything outside the enumeration,
// including the model's explicit null for clips with no clear attempt.
func ParseType(raw string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	for _, v := range Types {
		if t == v {
			return v, true
		}
	}
	return "", false
}

// ParseResult normalizes a model-emitted make/miss label to its canonical Result.
func ParseResult(raw string) (Result, bool) {
	r := Result(strings.ToLower(strings.TrimSpace(raw)))
	for _, v := range Results {
		if r == v {
			return v, true
		}
	}
	return "", false
}

// OverrideField names an analysis field a user may correct.
type OverrideField string

const (
	FieldShotType OverrideField = "shot_type"
	FieldResult   OverrideField = "result"
)

// ValidateOverride checks a field name against the fixed override set and the
// value against that field's enumeration. Returns a client-safe error.
func ValidateOverride(field, value string) error {
	switch OverrideField(field) {
	case FieldShotType:
		if _, ok := ParseType(value); !ok {
			return fmt.Errorf("override_value %q is not a valid shot_type (valid: lay_up, in_paint, mid_range, three_pointer, free_throw)", value)
		}
	case FieldResult:
		if _, ok := ParseResult(value); !ok {
			return fmt.Errorf("override_value %q is not a valid result (valid: make, miss)", value)
		}
	default:
		return fmt.Errorf("field_name %q is not overridable (valid: shot_type, result)", field)
	}
	return nil
}

// Clip is an uploaded video reference. Immutable after creation.
type Clip struct {
	ID              string    `json:"id"`
	StorageKey      string    `json:"storage_key"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// Analysis is the model's classification of a clip, created pending and
// mutated exactly once to a terminal state by the inference worker.
type Analysis struct {
	ID          string     `json:"id"`
	ClipID      string     `json:"clip_id"`
	Status      Status     `json:"status"`
	ShotType    *Type      `json:"shot_type,omitempty"`
	Result      *Result    `json:"result,omitempty"`
	Confidence  *float64   `json:"confidence,omitempty"`
	TipsText    string     `json:"tips_text,omitempty"`
	ErrorMsg    string     `json:"error_msg,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Override is a user correction to a single analysis field.
// At most one exists per (analysis, field); upserts keep the latest value.
type Override struct {
	ID            string        `json:"id"`
	AnalysisID    string        `json:"analysis_id"`
	FieldName     OverrideField `json:"field_name"`
	OriginalValue *string       `json:"original_value,omitempty"`
	OverrideValue string        `json:"override_value"`
	CreatedAt     time.Time     `json:"created_at"`
}

// EffectiveShotType returns the display value for the shot type: the override
// when one exists, otherwise the model prediction, otherwise "".
func (a *Analysis) EffectiveShotType(overrides []Override) string {
	if v, ok := overrideValue(overrides, FieldShotType); ok {
		return v
	}
	if a.ShotType != nil {
		return string(*a.ShotType)
	}
	return ""
}

// EffectiveResult returns the display value for make/miss, preferring the
// override over the model prediction.
func (a *Analysis) EffectiveResult(overrides []Override) string {
	if v, ok := overrideValue(overrides, FieldResult); ok {
		return v
	}
	if a.Result != nil {
		return string(*a.Result)
	}
	return ""
}

func overrideValue(overrides []Override, field OverrideField) (string, bool) {
	for _, o := range overrides {
		if o.FieldName == field {
			return o.OverrideValue, true
		}
	}
	return "", false
}
