// Package events publishes correction events to EventBridge when a user
// overrides a model prediction. Downstream rules route them into the
// fine-tuning data lake; the override endpoint treats emission as best-effort
// and never fails a request over it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/ids"
	"github.com/hoopcoach/shot-coach/internal/shot"
)

const (
	source     = "shot-coach"
	detailType = "PredictionCorrected"
)

// eventBridgeAPI is the slice of the EventBridge client the emitter uses.
type eventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Correction is the event detail recorded when a user disagrees with the model.
type Correction struct {
	CorrectionID  string    `json:"correction_id"`
	AnalysisID    string    `json:"analysis_id"`
	ClipID        string    `json:"clip_id"`
	FieldName     string    `json:"field_name"`
	OriginalValue *string   `json:"original_value"`
	OverrideValue string    `json:"override_value"`
	CorrectedAt   time.Time `json:"corrected_at"`
}

// Emitter publishes corrections to an EventBridge bus.
type Emitter struct {
	client eventBridgeAPI
	bus    string
}

// NewEmitter creates an Emitter for the given bus name. An empty bus name
// targets the account default bus.
func NewEmitter(client eventBridgeAPI, bus string) *Emitter {
	return &Emitter{client: client, bus: bus}
}

// EmitCorrection publishes a PredictionCorrected event for the override.
func (e *Emitter) EmitCorrection(ctx context.Context, clipID string, o *shot.Override) error {
	c := Correction{
		CorrectionID:  ids.New("corr-"),
		AnalysisID:    o.AnalysisID,
		ClipID:        clipID,
		FieldName:     string(o.FieldName),
		OriginalValue: o.OriginalValue,
		OverrideValue: o.OverrideValue,
		CorrectedAt:   time.Now().UTC(),
	}
	detail, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal Correction: %w", err)
	}

	entry := eventbridgetypes.PutEventsRequestEntry{
		Source:     aws.String(source),
		DetailType: aws.String(detailType),
		Detail:     aws.String(string(detail)),
	}
	if e.bus != "" {
		entry.EventBusName = aws.String(e.bus)
	}

	result, err := e.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []eventbridgetypes.PutEventsRequestEntry{entry},
	})
	if err != nil {
		log.Error().Err(err).Str("analysisId", o.AnalysisID).Str("fieldName", string(o.FieldName)).Msg("EventBridge PutEvents failed")
		return fmt.Errorf("PutEvents: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, ent := range result.Entries {
			if ent.ErrorCode != nil || ent.ErrorMessage != nil {
				log.Error().
					Int("index", i).
					Str("errorCode", aws.ToString(ent.ErrorCode)).
					Str("errorMessage", aws.ToString(ent.ErrorMessage)).
					Str("analysisId", o.AnalysisID).
					Msg("EventBridge PutEvents entry failed")
				return fmt.Errorf("PutEvents entry %d failed: %s - %s", i, aws.ToString(ent.ErrorCode), aws.ToString(ent.ErrorMessage))
			}
		}
	}

	log.Debug().Str("analysisId", o.AnalysisID).Str("fieldName", string(o.FieldName)).Msg("Correction emitted to EventBridge")
	return nil
}
