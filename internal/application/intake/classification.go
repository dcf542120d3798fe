package intakeapp

import (
	"strings"

	"github.com/docintake/backend/internal/domain/intake"
)

// categoryRule is one deterministic keyword rule. Rules are evaluated in
// order; the first rule whose every keyword appears in the haystack wins.
type categoryRule struct {
	category   intake.DocumentCategory
	keywords   []string
	confidence float64
}

// Strong rules carry enough signal to clear the review threshold; the
// single-keyword fallbacks deliberately score below it so that weakly
// signalled documents land in front of a human.
var categoryRules = []categoryRule{
	{intake.CategoryBankStatement, []string{"bank", "statement"}, 0.99},
	{intake.CategoryPOSReport, []string{"pos", "report"}, 0.99},
	{intake.CategoryInvoice, []string{"invoice"}, 0.99},
	{intake.CategoryBankStatement, []string{"statement"}, 0.80},
	{intake.CategoryPOSReport, []string{"pos"}, 0.80},
	{intake.CategoryBankStatement, []string{"bank"}, 0.70},
}

// ClassifyExplicit wraps a caller-supplied category with full confidence
func ClassifyExplicit(category intake.DocumentCategory) intake.ClassificationResult {
	return intake.ClassificationResult{Category: category, Confidence: 1.0}
}

// ClassifyHeuristic guesses a category from the parsed identity and source
// fields. When no rule fires the result is CategoryOther with a confidence
// low enough to guarantee review routing.
func ClassifyHeuristic(fields *intake.ParsedFields, fileName string) intake.ClassificationResult {
	haystack := strings.ToLower(strings.Join([]string{
		fields.SourceName,
		fields.IdentityName,
		fileName,
	}, " "))

	for _, rule := range categoryRules {
		if matchesAll(haystack, rule.keywords) {
			return intake.ClassificationResult{Category: rule.category, Confidence: rule.confidence}
		}
	}
	return intake.ClassificationResult{Category: intake.CategoryOther, Confidence: 0.5}
}

func matchesAll(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(haystack, kw) {
			return false
		}
	}
	return true
}
