package narrative

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// stripHTML removes markup some models emit, keeping line structure.
// Text without tags is returned unchanged.
func stripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, div, h1, h2, h3, h4, tr").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})
	doc.Find("script, style").Remove()
	return doc.Text()
}

var markdownMarks = strings.NewReplacer("**", "", "__", "", "*", "", "#", "", "`", "")

// cleanLines strips markup and returns the non-blank lines, trimmed.
func cleanLines(s string) []string {
	s = markdownMarks.Replace(stripHTML(s))
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Clean turns model output into a single paragraph of plain text.
func Clean(s string) string {
	return strings.Join(cleanLines(s), " ")
}

var listMarker = regexp.MustCompile(`^(\d+[.)]|[-•])\s*`)

// ParseList extracts list items from model output: numbering and bullets
// removed, items of at most minLen characters dropped.
func ParseList(s string, minLen int) []string {
	var items []string
	for _, line := range cleanLines(s) {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if runeLen(line) > minLen {
			items = append(items, line)
		}
	}
	return items
}

var jsonArray = regexp.MustCompile(`(?s)\[.*\]`)

// ParseRecommendations extracts the JSON array of recommendations from
// model output, which may wrap it in prose or code fences. Priorities are
// upper-cased, MEDIUM when missing; entries without a description are
// dropped.
func ParseRecommendations(s string) ([]Recommendation, bool) {
	raw := jsonArray.FindString(s)
	if raw == "" {
		return nil, false
	}
	var recs []Recommendation
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, false
	}
	var out []Recommendation
	for _, r := range recs {
		r.Description = Clean(r.Description)
		r.Impact = Clean(r.Impact)
		if r.Description == "" {
			continue
		}
		r.Priority = strings.ToUpper(strings.TrimSpace(r.Priority))
		if r.Priority == "" {
			r.Priority = PriorityMedium
		}
		out = append(out, r)
	}
	return out, len(out) > 0
}

func runeLen(s string) int { return len([]rune(s)) }
