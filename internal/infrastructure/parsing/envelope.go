// Package parsing adapts upstream extraction output to the intake pipeline.
//
// The service does not parse document layouts itself; sources run their own
// extraction and deliver a JSON envelope with the extracted field snapshot
// and the raw content lines. This package decodes that envelope.
package parsing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	intakeapp "github.com/docintake/backend/internal/application/intake"
	"github.com/docintake/backend/internal/domain/intake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// envelope is the wire format produced by upstream extractors.
type envelope struct {
	Fields        envelopeFields `json:"fields"`
	RawLines      []string       `json:"raw_lines"`
	ParsedRecords *int           `json:"parsed_records"`
}

type envelopeFields struct {
	IdentityName string `json:"identity_name"`
	IdentityCode string `json:"identity_code"`
	SourceName   string `json:"source_name"`
	IssueDate    string `json:"issue_date"`
	DueDate      string `json:"due_date"`
	TotalAmount  string `json:"total_amount"`
	TaxAmount    string `json:"tax_amount"`
}

// EnvelopeParser implements intakeapp.DocumentParser for the extraction
// envelope format. Absent fields are reported through the ParsedFields
// snapshot so the pipeline can route the document to review; only a
// malformed envelope is an error.
type EnvelopeParser struct {
	logger *zap.Logger
}

var _ intakeapp.DocumentParser = (*EnvelopeParser)(nil)

// NewEnvelopeParser creates a new EnvelopeParser
func NewEnvelopeParser(logger *zap.Logger) *EnvelopeParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnvelopeParser{logger: logger}
}

// Parse decodes the extraction envelope from content
func (p *EnvelopeParser) Parse(ctx context.Context, content []byte, sourceHint string) (*intakeapp.ParsedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var env envelope
	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&env); err != nil {
		p.logger.Warn("Malformed extraction envelope",
			zap.String("source", sourceHint),
			zap.Error(err))
		return nil, fmt.Errorf("malformed extraction envelope: %w", err)
	}

	fields := intake.ParsedFields{
		IdentityName: env.Fields.IdentityName,
		IdentityCode: env.Fields.IdentityCode,
		SourceName:   env.Fields.SourceName,
	}

	var err error
	if fields.IssueDate, err = parseDate(env.Fields.IssueDate); err != nil {
		return nil, fmt.Errorf("invalid issue_date: %w", err)
	}
	if fields.DueDate, err = parseDate(env.Fields.DueDate); err != nil {
		return nil, fmt.Errorf("invalid due_date: %w", err)
	}
	if fields.TotalAmount, err = parseAmount(env.Fields.TotalAmount); err != nil {
		return nil, fmt.Errorf("invalid total_amount: %w", err)
	}
	if fields.TaxAmount, err = parseAmount(env.Fields.TaxAmount); err != nil {
		return nil, fmt.Errorf("invalid tax_amount: %w", err)
	}

	parsedRecords := len(env.RawLines)
	if env.ParsedRecords != nil {
		if *env.ParsedRecords < 0 {
			return nil, fmt.Errorf("invalid parsed_records: %d", *env.ParsedRecords)
		}
		parsedRecords = *env.ParsedRecords
	}

	return &intakeapp.ParsedDocument{
		Fields:        fields,
		RawUnits:      env.RawLines,
		ParsedRecords: parsedRecords,
	}, nil
}

// dateFormats are accepted in order; extractors emit plain dates but some
// include a full timestamp.
var dateFormats = []string{"2006-01-02", time.RFC3339}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", value)
}

func parseAmount(value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
