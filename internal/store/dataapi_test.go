package store

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	rdsdatatypes "github.com/aws/aws-sdk-go-v2/service/rdsdata/types"

	"github.com/hoopcoach/shot-coach/internal/shot"
)

// fakeDataAPI records every ExecuteStatement call and replays canned outputs.
type fakeDataAPI struct {
	calls   []*rdsdata.ExecuteStatementInput
	outputs []*rdsdata.ExecuteStatementOutput
	err     error
}

func (f *fakeDataAPI) ExecuteStatement(ctx context.Context, params *rdsdata.ExecuteStatementInput, optFns ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	out := &rdsdata.ExecuteStatementOutput{}
	if len(f.outputs) > 0 {
		out = f.outputs[0]
		f.outputs = f.outputs[1:]
	}
	return out, nil
}

func cols(names ...string) []rdsdatatypes.ColumnMetadata {
	meta := make([]rdsdatatypes.ColumnMetadata, len(names))
	for i, n := range names {
		meta[i] = rdsdatatypes.ColumnMetadata{Name: aws.String(n)}
	}
	return meta
}

func str(v string) rdsdatatypes.Field  { return &rdsdatatypes.FieldMemberStringValue{Value: v} }
func dbl(v float64) rdsdatatypes.Field { return &rdsdatatypes.FieldMemberDoubleValue{Value: v} }
func null() rdsdatatypes.Field         { return &rdsdatatypes.FieldMemberIsNull{Value: true} }

func paramValue(t *testing.T, input *rdsdata.ExecuteStatementInput, name string) rdsdatatypes.Field {
	t.Helper()
	for _, p := range input.Parameters {
		if aws.ToString(p.Name) == name {
			return p.Value
		}
	}
	t.Fatalf("parameter %s not found", name)
	return nil
}

func TestGetAnalysis_NotFound(t *testing.T) {
	fake := &fakeDataAPI{outputs: []*rdsdata.ExecuteStatementOutput{{}}}
	s := NewDataAPIStore(fake, "cluster", "secret", "shotcoach")

	a, err := s.GetAnalysis(context.Background(), "5b30ea2c-9f0f-4a9e-8c3a-000000000001")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if a != nil {
		t.Errorf("expected nil analysis for missing row, got %+v", a)
	}
}

func TestGetAnalysis_MapsRow(t *testing.T) {
	fake := &fakeDataAPI{outputs: []*rdsdata.ExecuteStatementOutput{{
		ColumnMetadata: cols("id", "clip_id", "status", "shot_type", "result", "confidence",
			"tips_text", "error_msg", "created_at", "started_at", "completed_at"),
		Records: [][]rdsdatatypes.Field{{
			str("a-1"), str("c-1"), str("success"), str("three_pointer"), str("make"), dbl(0.91),
			str("Hold your follow-through."), str(""), str("2026-08-20 10:00:00"), str("2026-08-20 10:00:01"), str("2026-08-20 10:00:05.123456"),
		}},
	}}}
	s := NewDataAPIStore(fake, "cluster", "secret", "shotcoach")

	a, err := s.GetAnalysis(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if a.Status != shot.StatusSuccess {
		t.Errorf("status = %s, want success", a.Status)
	}
	if a.ShotType == nil || *a.ShotType != shot.TypeThreePointer {
		t.Errorf("shot_type = %v, want three_pointer", a.ShotType)
	}
	if a.Result == nil || *a.Result != shot.ResultMake {
		t.Errorf("result = %v, want make", a.Result)
	}
	if a.Confidence == nil || *a.Confidence != 0.91 {
		t.Errorf("confidence = %v, want 0.91", a.Confidence)
	}
	if a.StartedAt == nil || a.CompletedAt == nil {
		t.Error("expected started_at and completed_at to be set")
	}
	if a.CompletedAt.Nanosecond() != 123456000 {
		t.Errorf("completed_at fractional seconds lost: %v", a.CompletedAt)
	}
}

func TestGetAnalysis_PendingHasNullFields(t *testing.T) {
	fake := &fakeDataAPI{outputs: []*rdsdata.ExecuteStatementOutput{{
		ColumnMetadata: cols("id", "clip_id", "status", "shot_type", "result", "confidence",
			"tips_text", "error_msg", "created_at", "started_at", "completed_at"),
		Records: [][]rdsdatatypes.Field{{
			str("a-1"), str("c-1"), str("pending"), null(), null(), null(),
			str(""), str(""), str("2026-08-20 10:00:00"), null(), null(),
		}},
	}}}
	s := NewDataAPIStore(fake, "cluster", "secret", "shotcoach")

	a, err := s.GetAnalysis(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if a.ShotType != nil || a.Result != nil || a.Confidence != nil {
		t.Errorf("pending analysis should have nil classification fields: %+v", a)
	}
	if a.StartedAt != nil || a.CompletedAt != nil {
		t.Errorf("pending analysis should have nil timestamps: %+v", a)
	}
}

func TestStartAnalysis_GuardsPendingOnly(t *testing.T) {
	fake := &fakeDataAPI{outputs: []*rdsdata.ExecuteStatementOutput{{NumberOfRecordsUpdated: 0}}}
	s := NewDataAPIStore(fake, "cluster", "secret", "shotcoach")

	err := s.StartAnalysis(context.Background(), "a-1")
	if err == nil {
		t.Fatal("expected error when no pending row was updated")
	}
	sql := aws.ToString(fake.calls[0].Sql)
	if !strings.Contains(sql, "status = 'pending'") {
		t.Errorf("StartAnalysis must only touch pending rows, sql: %s", sql)
	}
}

func TestCompleteAnalysis_SkipsTerminalRows(t *testing.T) {
	fake := &fakeDataAPI{outputs: []*rdsdata.ExecuteStatementOutput{{NumberOfRecordsUpdated: 1}}}
	s := NewDataAPIStore(fake, "cluster", "secret", "shotcoach")

	st := shot.TypeLayUp
	res := shot.ResultMiss
	err := s.CompleteAnalysis(context.Background(), "a-1", Outcome{
		ShotType:   &st,
		Result:     &res,
		Confidence: 0.75,
		TipsText:   "Use the backboard.",
	})
	if err != nil {
		t.Fatalf("CompleteAnalysis: %v", err)
	}

	sql := aws.ToString(fake.calls[0].Sql)
	if !strings.Contains(sql, "NOT IN ('success', 'failed')") {
		t.Errorf("CompleteAnalysis must guard against rewriting terminal rows, sql: %s", sql)
	}
	if v, ok := paramValue(t, fake.calls[0], "shot_type").(*rdsdatatypes.FieldMemberStringValue); !ok || v.Value != "lay_up" {
		t.Errorf("shot_type param = %v, want lay_up", paramValue(t, fake.calls[0], "shot_type"))
	}
}

func TestFailAnalysis_RecordsErrorMessage(t *testing.T) {
	fake := &fakeDataAPI{outputs: []*rdsdata.ExecuteStatementOutput{{NumberOfRecordsUpdated: 1}}}
	s := NewDataAPIStore(fake, "cluster", "secret", "shotcoach")

	if err := s.FailAnalysis(context.Background(), "a-1", "model returned no JSON"); err != nil {
		t.Fatalf("FailAnalysis: %v", err)
	}
	sql := aws.ToString(fake.calls[0].Sql)
	if !strings.Contains(sql, "status = 'failed'") || !strings.Contains(sql, "completed_at = NOW()") {
		t.Errorf("FailAnalysis must set failed status and completion time, sql: %s", sql)
	}
	if v, ok := paramValue(t, fake.calls[0], "error_msg").(*rdsdatatypes.FieldMemberStringValue); !ok || v.Value != "model returned no JSON" {
		t.Errorf("error_msg param = %v", paramValue(t, fake.calls[0], "error_msg"))
	}
}

func TestUpsertOverride_UsesOnConflict(t *testing.T) {
	orig := "miss"
	fake := &fakeDataAPI{outputs: []*rdsdata.ExecuteStatementOutput{{
		ColumnMetadata: cols("id", "analysis_id", "field_name", "original_value", "override_value", "created_at"),
		Records: [][]rdsdatatypes.Field{{
			str("o-1"), str("a-1"), str("result"), str("miss"), str("make"), str("2026-08-20 10:00:00"),
		}},
	}}}
	s := NewDataAPIStore(fake, "cluster", "secret", "shotcoach")

	o, err := s.UpsertOverride(context.Background(), &shot.Override{
		AnalysisID:    "a-1",
		FieldName:     shot.FieldResult,
		OriginalValue: &orig,
		OverrideValue: "make",
	})
	if err != nil {
		t.Fatalf("UpsertOverride: %v", err)
	}
	if o.OverrideValue != "make" || o.FieldName != shot.FieldResult {
		t.Errorf("unexpected override row: %+v", o)
	}

	sql := aws.ToString(fake.calls[0].Sql)
	if !strings.Contains(sql, "ON CONFLICT (analysis_id, field_name) DO UPDATE") {
		t.Errorf("upsert must rely on the (analysis_id, field_name) unique constraint, sql: %s", sql)
	}
}

func TestCreateClip_ReturnsInsertedRow(t *testing.T) {
	fake := &fakeDataAPI{outputs: []*rdsdata.ExecuteStatementOutput{{
		ColumnMetadata: cols("id", "storage_key", "duration_seconds", "created_at"),
		Records: [][]rdsdatatypes.Field{{
			str("c-1"), str("5b30ea2c-9f0f-4a9e-8c3a-000000000001/clip.mov"), dbl(7.5), str("2026-08-20 10:00:00"),
		}},
	}}}
	s := NewDataAPIStore(fake, "cluster", "secret", "shotcoach")

	c, err := s.CreateClip(context.Background(), "5b30ea2c-9f0f-4a9e-8c3a-000000000001/clip.mov", 7.5)
	if err != nil {
		t.Fatalf("CreateClip: %v", err)
	}
	if c.DurationSeconds != 7.5 {
		t.Errorf("duration = %v, want 7.5", c.DurationSeconds)
	}
	if v, ok := paramValue(t, fake.calls[0], "id").(*rdsdatatypes.FieldMemberStringValue); !ok || v.Value == "" {
		t.Error("expected generated clip id parameter")
	}
}
