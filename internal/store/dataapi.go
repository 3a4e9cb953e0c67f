package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	rdsdatatypes "github.com/aws/aws-sdk-go-v2/service/rdsdata/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hoopcoach/shot-coach/internal/shot"
)

// dataAPI is the slice of the rdsdata client the store uses. Tests substitute
// a fake; production passes *rdsdata.Client.
type dataAPI interface {
	ExecuteStatement(ctx context.Context, params *rdsdata.ExecuteStatementInput, optFns ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error)
}

// DataAPIStore implements Store over the Aurora RDS Data API.
type DataAPIStore struct {
	client     dataAPI
	clusterARN string
	secretARN  string
	database   string
}

// NewDataAPIStore creates a DataAPIStore for the given cluster and database.
func NewDataAPIStore(client dataAPI, clusterARN, secretARN, database string) *DataAPIStore {
	return &DataAPIStore{
		client:     client,
		clusterARN: clusterARN,
		secretARN:  secretARN,
		database:   database,
	}
}

const (
	clipCols     = "id, storage_key, duration_seconds, created_at"
	analysisCols = "id, clip_id, status, shot_type, result, confidence, tips_text, error_msg, created_at, started_at, completed_at"
	overrideCols = "id, analysis_id, field_name, original_value, override_value, created_at"
)

func (s *DataAPIStore) execute(ctx context.Context, sql string, params []rdsdatatypes.SqlParameter) (*rdsdata.ExecuteStatementOutput, error) {
	return s.client.ExecuteStatement(ctx, &rdsdata.ExecuteStatementInput{
		ResourceArn:           aws.String(s.clusterARN),
		SecretArn:             aws.String(s.secretARN),
		Database:              aws.String(s.database),
		Sql:                   aws.String(sql),
		Parameters:            params,
		IncludeResultMetadata: true,
	})
}

// query runs sql and maps the result records to column-name keyed rows.
func (s *DataAPIStore) query(ctx context.Context, sql string, params []rdsdatatypes.SqlParameter) ([]map[string]interface{}, error) {
	result, err := s.execute(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]interface{}, 0, len(result.Records))
	for _, rec := range result.Records {
		row := make(map[string]interface{})
		for i, col := range result.ColumnMetadata {
			if i >= len(rec) {
				break
			}
			name := aws.ToString(col.Name)
			switch v := rec[i].(type) {
			case *rdsdatatypes.FieldMemberStringValue:
				row[name] = v.Value
			case *rdsdatatypes.FieldMemberLongValue:
				row[name] = v.Value
			case *rdsdatatypes.FieldMemberDoubleValue:
				row[name] = v.Value
			case *rdsdatatypes.FieldMemberBooleanValue:
				row[name] = v.Value
			case *rdsdatatypes.FieldMemberIsNull:
				row[name] = nil
			default:
				row[name] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func strParam(name, value string) rdsdatatypes.SqlParameter {
	return rdsdatatypes.SqlParameter{Name: aws.String(name), Value: &rdsdatatypes.FieldMemberStringValue{Value: value}}
}

func doubleParam(name string, value float64) rdsdatatypes.SqlParameter {
	return rdsdatatypes.SqlParameter{Name: aws.String(name), Value: &rdsdatatypes.FieldMemberDoubleValue{Value: value}}
}

func nullableStrParam(name string, value *string) rdsdatatypes.SqlParameter {
	if value == nil {
		return rdsdatatypes.SqlParameter{Name: aws.String(name), Value: &rdsdatatypes.FieldMemberIsNull{Value: true}}
	}
	return strParam(name, *value)
}

func (s *DataAPIStore) CreateClip(ctx context.Context, storageKey string, durationSeconds float64) (*shot.Clip, error) {
	sql := `INSERT INTO clips (id, storage_key, duration_seconds, created_at)
		VALUES (:id::uuid, :storage_key, :duration_seconds, NOW())
		RETURNING ` + clipCols
	params := []rdsdatatypes.SqlParameter{
		strParam("id", uuid.NewString()),
		strParam("storage_key", storageKey),
		doubleParam("duration_seconds", durationSeconds),
	}
	rows, err := s.query(ctx, sql, params)
	if err != nil {
		log.Error().Err(err).Str("storageKey", storageKey).Msg("CreateClip failed")
		return nil, fmt.Errorf("CreateClip: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CreateClip: insert returned no row")
	}
	return rowToClip(rows[0])
}

func (s *DataAPIStore) GetClip(ctx context.Context, id string) (*shot.Clip, error) {
	sql := `SELECT ` + clipCols + ` FROM clips WHERE id = :id::uuid`
	rows, err := s.query(ctx, sql, []rdsdatatypes.SqlParameter{strParam("id", id)})
	if err != nil {
		return nil, fmt.Errorf("GetClip %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToClip(rows[0])
}

func (s *DataAPIStore) CreateAnalysis(ctx context.Context, clipID string) (*shot.Analysis, error) {
	sql := `INSERT INTO analysis (id, clip_id, status, created_at)
		VALUES (:id::uuid, :clip_id::uuid, 'pending', NOW())
		RETURNING ` + analysisCols
	params := []rdsdatatypes.SqlParameter{
		strParam("id", uuid.NewString()),
		strParam("clip_id", clipID),
	}
	rows, err := s.query(ctx, sql, params)
	if err != nil {
		log.Error().Err(err).Str("clipId", clipID).Msg("CreateAnalysis failed")
		return nil, fmt.Errorf("CreateAnalysis: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CreateAnalysis: insert returned no row")
	}
	return rowToAnalysis(rows[0])
}

func (s *DataAPIStore) GetAnalysis(ctx context.Context, id string) (*shot.Analysis, error) {
	sql := `SELECT ` + analysisCols + ` FROM analysis WHERE id = :id::uuid`
	rows, err := s.query(ctx, sql, []rdsdatatypes.SqlParameter{strParam("id", id)})
	if err != nil {
		return nil, fmt.Errorf("GetAnalysis %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToAnalysis(rows[0])
}

func (s *DataAPIStore) LatestAnalysisForClip(ctx context.Context, clipID string) (*shot.Analysis, error) {
	sql := `SELECT ` + analysisCols + ` FROM analysis WHERE clip_id = :clip_id::uuid
		ORDER BY created_at DESC LIMIT 1`
	rows, err := s.query(ctx, sql, []rdsdatatypes.SqlParameter{strParam("clip_id", clipID)})
	if err != nil {
		return nil, fmt.Errorf("LatestAnalysisForClip %s: %w", clipID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToAnalysis(rows[0])
}

func (s *DataAPIStore) StartAnalysis(ctx context.Context, id string) error {
	sql := `UPDATE analysis SET status = 'processing', started_at = NOW()
		WHERE id = :id::uuid AND status = 'pending'`
	result, err := s.execute(ctx, sql, []rdsdatatypes.SqlParameter{strParam("id", id)})
	if err != nil {
		log.Error().Err(err).Str("analysisId", id).Msg("StartAnalysis failed")
		return fmt.Errorf("StartAnalysis %s: %w", id, err)
	}
	if result.NumberOfRecordsUpdated == 0 {
		return fmt.Errorf("StartAnalysis %s: analysis not found or not pending", id)
	}
	return nil
}

func (s *DataAPIStore) CompleteAnalysis(ctx context.Context, id string, outcome Outcome) error {
	sql := `UPDATE analysis SET status = 'success', shot_type = :shot_type, result = :result,
			confidence = :confidence, tips_text = :tips_text, completed_at = NOW()
		WHERE id = :id::uuid AND status NOT IN ('success', 'failed')`
	var shotType, result *string
	if outcome.ShotType != nil {
		v := string(*outcome.ShotType)
		shotType = &v
	}
	if outcome.Result != nil {
		v := string(*outcome.Result)
		result = &v
	}
	params := []rdsdatatypes.SqlParameter{
		strParam("id", id),
		nullableStrParam("shot_type", shotType),
		nullableStrParam("result", result),
		doubleParam("confidence", outcome.Confidence),
		strParam("tips_text", outcome.TipsText),
	}
	out, err := s.execute(ctx, sql, params)
	if err != nil {
		log.Error().Err(err).Str("analysisId", id).Msg("CompleteAnalysis failed")
		return fmt.Errorf("CompleteAnalysis %s: %w", id, err)
	}
	if out.NumberOfRecordsUpdated == 0 {
		return fmt.Errorf("CompleteAnalysis %s: analysis not found or already terminal", id)
	}
	return nil
}

func (s *DataAPIStore) FailAnalysis(ctx context.Context, id string, errMsg string) error {
	sql := `UPDATE analysis SET status = 'failed', error_msg = :error_msg, completed_at = NOW()
		WHERE id = :id::uuid AND status NOT IN ('success', 'failed')`
	params := []rdsdatatypes.SqlParameter{
		strParam("id", id),
		strParam("error_msg", errMsg),
	}
	out, err := s.execute(ctx, sql, params)
	if err != nil {
		log.Error().Err(err).Str("analysisId", id).Msg("FailAnalysis failed")
		return fmt.Errorf("FailAnalysis %s: %w", id, err)
	}
	if out.NumberOfRecordsUpdated == 0 {
		return fmt.Errorf("FailAnalysis %s: analysis not found or already terminal", id)
	}
	return nil
}

func (s *DataAPIStore) UpsertOverride(ctx context.Context, o *shot.Override) (*shot.Override, error) {
	sql := `INSERT INTO analysis_overrides (id, analysis_id, field_name, original_value, override_value, created_at)
		VALUES (:id::uuid, :analysis_id::uuid, :field_name, :original_value, :override_value, NOW())
		ON CONFLICT (analysis_id, field_name) DO UPDATE SET
			original_value = EXCLUDED.original_value, override_value = EXCLUDED.override_value, created_at = EXCLUDED.created_at
		RETURNING ` + overrideCols
	params := []rdsdatatypes.SqlParameter{
		strParam("id", uuid.NewString()),
		strParam("analysis_id", o.AnalysisID),
		strParam("field_name", string(o.FieldName)),
		nullableStrParam("original_value", o.OriginalValue),
		strParam("override_value", o.OverrideValue),
	}
	rows, err := s.query(ctx, sql, params)
	if err != nil {
		log.Error().Err(err).Str("analysisId", o.AnalysisID).Str("fieldName", string(o.FieldName)).Msg("UpsertOverride failed")
		return nil, fmt.Errorf("UpsertOverride: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("UpsertOverride: upsert returned no row")
	}
	return rowToOverride(rows[0])
}

func (s *DataAPIStore) ListOverrides(ctx context.Context, analysisID string) ([]shot.Override, error) {
	sql := `SELECT ` + overrideCols + ` FROM analysis_overrides
		WHERE analysis_id = :analysis_id::uuid ORDER BY field_name`
	rows, err := s.query(ctx, sql, []rdsdatatypes.SqlParameter{strParam("analysis_id", analysisID)})
	if err != nil {
		return nil, fmt.Errorf("ListOverrides %s: %w", analysisID, err)
	}
	overrides := make([]shot.Override, 0, len(rows))
	for _, row := range rows {
		o, err := rowToOverride(row)
		if err != nil {
			return nil, fmt.Errorf("ListOverrides %s: %w", analysisID, err)
		}
		overrides = append(overrides, *o)
	}
	return overrides, nil
}

// Timestamp layouts the Data API returns for timestamptz columns.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func rowString(row map[string]interface{}, key string) string {
	s, _ := row[key].(string)
	return s
}

func rowNullableString(row map[string]interface{}, key string) *string {
	if s, ok := row[key].(string); ok {
		return &s
	}
	return nil
}

func rowFloat(row map[string]interface{}, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func rowNullableFloat(row map[string]interface{}, key string) *float64 {
	if row[key] == nil {
		return nil
	}
	v := rowFloat(row, key)
	return &v
}

func rowTime(row map[string]interface{}, key string) (time.Time, error) {
	s, ok := row[key].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("column %s: expected timestamp string, got %T", key, row[key])
	}
	return parseTimestamp(s)
}

func rowNullableTime(row map[string]interface{}, key string) (*time.Time, error) {
	if row[key] == nil {
		return nil, nil
	}
	t, err := rowTime(row, key)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func rowToClip(row map[string]interface{}) (*shot.Clip, error) {
	createdAt, err := rowTime(row, "created_at")
	if err != nil {
		return nil, fmt.Errorf("clip row: %w", err)
	}
	return &shot.Clip{
		ID:              rowString(row, "id"),
		StorageKey:      rowString(row, "storage_key"),
		DurationSeconds: rowFloat(row, "duration_seconds"),
		CreatedAt:       createdAt,
	}, nil
}

func rowToAnalysis(row map[string]interface{}) (*shot.Analysis, error) {
	createdAt, err := rowTime(row, "created_at")
	if err != nil {
		return nil, fmt.Errorf("analysis row: %w", err)
	}
	startedAt, err := rowNullableTime(row, "started_at")
	if err != nil {
		return nil, fmt.Errorf("analysis row: %w", err)
	}
	completedAt, err := rowNullableTime(row, "completed_at")
	if err != nil {
		return nil, fmt.Errorf("analysis row: %w", err)
	}
	a := &shot.Analysis{
		ID:          rowString(row, "id"),
		ClipID:      rowString(row, "clip_id"),
		Status:      shot.Status(rowString(row, "status")),
		Confidence:  rowNullableFloat(row, "confidence"),
		TipsText:    rowString(row, "tips_text"),
		ErrorMsg:    rowString(row, "error_msg"),
		CreatedAt:   createdAt,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}
	if s := rowNullableString(row, "shot_type"); s != nil {
		t := shot.Type(*s)
		a.ShotType = &t
	}
	if s := rowNullableString(row, "result"); s != nil {
		r := shot.Result(*s)
		a.Result = &r
	}
	return a, nil
}

func rowToOverride(row map[string]interface{}) (*shot.Override, error) {
	createdAt, err := rowTime(row, "created_at")
	if err != nil {
		return nil, fmt.Errorf("override row: %w", err)
	}
	return &shot.Override{
		ID:            rowString(row, "id"),
		AnalysisID:    rowString(row, "analysis_id"),
		FieldName:     shot.OverrideField(rowString(row, "field_name")),
		OriginalValue: rowNullableString(row, "original_value"),
		OverrideValue: rowString(row, "override_value"),
		CreatedAt:     createdAt,
	}, nil
}
