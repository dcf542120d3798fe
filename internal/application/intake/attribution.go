package intakeapp

import (
	"strings"

	"github.com/docintake/backend/internal/domain/intake"
)

// DefaultMinConfidence is the attribution/classification threshold below
// which a transaction is routed to human review.
const DefaultMinConfidence = 0.98

// normalizeIdentity lowercases and collapses all whitespace so that case
// and spacing differences never block an exact match.
func normalizeIdentity(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// AttributionScore computes the deterministic match confidence between a
// parsed identity and a directory candidate:
//   - exact code match: 1.0
//   - case/whitespace-normalized exact name match: 1.0
//   - substring containment either way: 0.9
//   - otherwise: Jaccard token-set overlap of the names, scaled into [0, 0.7]
//
// The scaled overlap keeps fuzzy matches strictly below the substring tier
// so they can never outrank a containment match.
func AttributionScore(candidate EntityCandidate, identityName, identityCode string) float64 {
	code := strings.TrimSpace(identityCode)
	if code != "" && strings.EqualFold(strings.TrimSpace(candidate.Code), code) {
		return 1.0
	}

	name := normalizeIdentity(identityName)
	candName := normalizeIdentity(candidate.Name)
	if name == "" || candName == "" {
		return 0
	}
	if name == candName {
		return 1.0
	}
	if strings.Contains(candName, name) || strings.Contains(name, candName) {
		return 0.9
	}
	return 0.7 * tokenSetOverlap(name, candName)
}

// tokenSetOverlap returns the Jaccard similarity of the two names' token sets
func tokenSetOverlap(a, b string) float64 {
	tokensA := make(map[string]struct{})
	for _, tok := range strings.Fields(a) {
		tokensA[tok] = struct{}{}
	}
	tokensB := make(map[string]struct{})
	for _, tok := range strings.Fields(b) {
		tokensB[tok] = struct{}{}
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	return float64(intersection) / float64(union)
}

// SelectCandidate scores every candidate and returns the best one. Ties are
// broken by directory order, so the result is deterministic for a given
// candidate list.
func SelectCandidate(candidates []EntityCandidate, identityName, identityCode string) (*intake.AttributionResult, bool) {
	var best *intake.AttributionResult
	for _, candidate := range candidates {
		score := AttributionScore(candidate, identityName, identityCode)
		if best == nil || score > best.Confidence {
			best = &intake.AttributionResult{
				EntityID:   candidate.ID,
				EntityName: candidate.Name,
				EntityCode: candidate.Code,
				Confidence: score,
			}
		}
	}
	return best, best != nil
}
