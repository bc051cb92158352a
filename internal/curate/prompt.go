package curate

import (
	"fmt"
	"newsroom/internal/core"
	"strings"

	"google.golang.org/genai"
)

// PromptInput is the already ranked and truncated prompt material.
type PromptInput struct {
	Articles      []core.Article
	Topics        []string
	Trends        []core.TrendItem
	StyleExcerpts []string
	MaxArticles   int
	MaxTrends     int
}

// BuildPrompt assembles the single curation prompt. Articles and trends appear
// numbered in the order given.
func BuildPrompt(in PromptInput) string {
	var sb strings.Builder

	sb.WriteString("You are an expert newsletter curator writing on behalf of the reader's own newsletter.\n\n")

	sb.WriteString("STYLE EXAMPLES:\n")
	sb.WriteString("Mimic the voice, tone and sentence rhythm of these excerpts from the author's previous writing. Do not copy them.\n")
	for _, excerpt := range in.StyleExcerpts {
		sb.WriteString("---\n")
		sb.WriteString(strings.TrimSpace(excerpt))
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "TOPICS: %s\n\n", strings.Join(in.Topics, ", "))

	sb.WriteString("OUTPUT FORMAT:\n")
	sb.WriteString("Respond with a single JSON object and nothing else. No markdown, no code fences.\n")
	sb.WriteString("Use double quotes for every key and string value. Use exactly these field names:\n")
	sb.WriteString("{\n")
	sb.WriteString(`  "intro": "2-3 sentence opening",` + "\n")
	fmt.Fprintf(&sb, `  "curated_links": [{"title": "...", "summary": "...", "source": "...", "link": "..."}] (at most %d, in the order of the articles below),`+"\n", in.MaxArticles)
	sb.WriteString(`  "summaries": [{"topic": "...", "blurb": "..."}] (one per topic),` + "\n")
	sb.WriteString(`  "commentary": "short editorial take tying the stories together",` + "\n")
	fmt.Fprintf(&sb, `  "trends": [{"title": "...", "explainer": "...", "link": "..."}] (at most %d, in the order of the trends below)`+"\n", in.MaxTrends)
	sb.WriteString("}\n\n")

	sb.WriteString("ARTICLES (ranked by relevance):\n")
	if len(in.Articles) == 0 {
		sb.WriteString("No articles were found. Return an empty curated_links list.\n")
	}
	for i, a := range in.Articles {
		fmt.Fprintf(&sb, "%d. Title: %s\n", i+1, a.Title)
		fmt.Fprintf(&sb, "   Source: %s\n", a.Source)
		fmt.Fprintf(&sb, "   Content: %s\n", a.Content)
	}
	sb.WriteString("\n")

	sb.WriteString("TRENDS TO WATCH:\n")
	if len(in.Trends) == 0 {
		sb.WriteString("No trends available. Return an empty trends list.\n")
	}
	for i, t := range in.Trends {
		fmt.Fprintf(&sb, "%d. Title: %s\n", i+1, t.Title)
		fmt.Fprintf(&sb, "   Summary: %s\n", t.Summary)
		fmt.Fprintf(&sb, "   Link: %s\n", t.Link)
	}

	return sb.String()
}

// ResponseSchema returns the Gemini response_schema matching CurationResult.
func ResponseSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"intro": str("Short opening paragraph in the author's voice"),
			"curated_links": {
				Type:        genai.TypeArray,
				Description: "Recommended articles in ranking order",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":   str("Article title"),
						"summary": str("One or two sentence summary"),
						"source":  str("Publication or site name"),
						"link":    str("Article URL"),
					},
					Required: []string{"title", "summary", "source", "link"},
				},
			},
			"summaries": {
				Type:        genai.TypeArray,
				Description: "One blurb per subscribed topic",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"topic": str("Topic name"),
						"blurb": str("What happened in this topic"),
					},
					Required: []string{"topic", "blurb"},
				},
			},
			"commentary": str("Editorial commentary"),
			"trends": {
				Type:        genai.TypeArray,
				Description: "Trends to watch in the order given",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":     str("Trend title"),
						"explainer": str("Short explainer"),
						"link":      str("Trend URL"),
					},
					Required: []string{"title", "explainer", "link"},
				},
			},
		},
		Required:         requiredKeys,
		PropertyOrdering: requiredKeys,
	}
}
