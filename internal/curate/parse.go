package curate

import (
	"encoding/json"
	"strings"
)

var requiredKeys = []string{"intro", "curated_links", "summaries", "commentary", "trends"}

// ParseResponse decodes a model response. Anything that is not a JSON object with all
// five required keys becomes RawFallback{body}. Lists longer than the maxima are cut.
func ParseResponse(body string, maxArticles, maxTrends int) Result {
	clean := stripCodeFence(body)

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &keys); err != nil {
		return RawFallback{RawText: body}
	}
	for _, key := range requiredKeys {
		if _, ok := keys[key]; !ok {
			return RawFallback{RawText: body}
		}
	}

	var result CurationResult
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		return RawFallback{RawText: body}
	}

	if maxArticles >= 0 && len(result.CuratedLinks) > maxArticles {
		result.CuratedLinks = result.CuratedLinks[:maxArticles]
	}
	if maxTrends >= 0 && len(result.Trends) > maxTrends {
		result.Trends = result.Trends[:maxTrends]
	}
	return Curated{CurationResult: result}
}

// stripCodeFence removes a surrounding ```json fence if the model added one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
