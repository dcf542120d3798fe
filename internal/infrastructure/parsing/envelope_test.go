package parsing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeParserParseComplete(t *testing.T) {
	parser := NewEnvelopeParser(nil)

	content := []byte(`{
		"fields": {
			"identity_name": "Acme Supplies Ltd",
			"identity_code": "ACME-001",
			"source_name": "north-branch-scanner",
			"issue_date": "2026-03-15",
			"due_date": "2026-04-15",
			"total_amount": "1250.50",
			"tax_amount": "250.10"
		},
		"raw_lines": ["line one", "line two", "line three"],
		"parsed_records": 3
	}`)

	doc, err := parser.Parse(context.Background(), content, "north-branch")
	require.NoError(t, err)

	assert.Equal(t, "Acme Supplies Ltd", doc.Fields.IdentityName)
	assert.Equal(t, "ACME-001", doc.Fields.IdentityCode)
	assert.Equal(t, "north-branch-scanner", doc.Fields.SourceName)
	require.NotNil(t, doc.Fields.IssueDate)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *doc.Fields.IssueDate)
	require.NotNil(t, doc.Fields.TotalAmount)
	assert.True(t, doc.Fields.TotalAmount.Equal(decimal.RequireFromString("1250.50")))
	require.NotNil(t, doc.Fields.TaxAmount)
	assert.True(t, doc.Fields.TaxAmount.Equal(decimal.RequireFromString("250.10")))
	assert.Equal(t, []string{"line one", "line two", "line three"}, doc.RawUnits)
	assert.Equal(t, 3, doc.ParsedRecords)
	assert.True(t, doc.Fields.IsComplete())
}

func TestEnvelopeParserMissingFieldsAreReportedNotErrors(t *testing.T) {
	parser := NewEnvelopeParser(nil)

	content := []byte(`{
		"fields": {
			"identity_name": "Acme Supplies Ltd",
			"source_name": "north-branch-scanner"
		},
		"raw_lines": ["line one"]
	}`)

	doc, err := parser.Parse(context.Background(), content, "north-branch")
	require.NoError(t, err)

	missing := doc.Fields.MissingFields()
	assert.Contains(t, missing, "identity_code")
	assert.Contains(t, missing, "issue_date")
	assert.Contains(t, missing, "due_date")
	assert.Contains(t, missing, "total_amount")
	assert.Contains(t, missing, "tax_amount")
	assert.NotContains(t, missing, "identity_name")
}

func TestEnvelopeParserDefaultsParsedRecordsToLineCount(t *testing.T) {
	parser := NewEnvelopeParser(nil)

	content := []byte(`{
		"fields": {"identity_name": "Acme"},
		"raw_lines": ["a", "b"]
	}`)

	doc, err := parser.Parse(context.Background(), content, "")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.ParsedRecords)
}

func TestEnvelopeParserRFC3339Dates(t *testing.T) {
	parser := NewEnvelopeParser(nil)

	content := []byte(`{
		"fields": {"issue_date": "2026-03-15T10:30:00Z"},
		"raw_lines": []
	}`)

	doc, err := parser.Parse(context.Background(), content, "")
	require.NoError(t, err)
	require.NotNil(t, doc.Fields.IssueDate)
	assert.Equal(t, 10, doc.Fields.IssueDate.Hour())
}

func TestEnvelopeParserRejectsMalformedInput(t *testing.T) {
	parser := NewEnvelopeParser(nil)

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "PDF-1.4 binary junk"},
		{"unknown field", `{"fields": {}, "raw_lines": [], "extra": true}`},
		{"bad date", `{"fields": {"issue_date": "15/03/2026"}, "raw_lines": []}`},
		{"bad amount", `{"fields": {"total_amount": "12,50"}, "raw_lines": []}`},
		{"negative parsed_records", `{"fields": {}, "raw_lines": [], "parsed_records": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(context.Background(), []byte(tt.content), "src")
			assert.Error(t, err)
		})
	}
}

func TestEnvelopeParserHonorsContextCancellation(t *testing.T) {
	parser := NewEnvelopeParser(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parser.Parse(ctx, []byte(`{"fields": {}, "raw_lines": []}`), "src")
	assert.ErrorIs(t, err, context.Canceled)
}
