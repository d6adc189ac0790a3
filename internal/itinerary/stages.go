// README: Ordered parse stages that try to recover an itinerary document from model text.
package itinerary

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	dayListOpener         = regexp.MustCompile(`"days"\s*:\s*\[`)
	recommendationsOpener = regexp.MustCompile(`"recommendations"\s*:\s*\[`)
	totalCostField        = regexp.MustCompile(`"total_cost"\s*:\s*"?(-?\d+(?:\.\d+)?)`)
	fencedBlock           = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\\r?\\n?(.*?)```")
	trailingComma         = regexp.MustCompile(`,\s*([\]}])`)
	lineBreaks            = regexp.MustCompile(`[\r\n\t]+`)
)

var (
	// errDeclined means the stage does not apply to this text at all.
	errDeclined     = errors.New("stage not applicable")
	errNoDayList    = errors.New("document has no days array")
	errNoFragments  = errors.New("no day fragment survived")
	errUndatedStart = errors.New("fragment does not start with a dated day")
)

// document is the intermediate shape every stage produces.
type document struct {
	Days            []DayPlan `json:"days"`
	TotalCost       Number    `json:"total_cost"`
	Recommendations TextList  `json:"recommendations"`
}

type stage struct {
	name  string
	parse func(raw string) (*document, error)
}

func defaultStages() []stage {
	return []stage{
		{name: "fragments", parse: parseFragments},
		{name: "direct", parse: parseDirect},
		{name: "fenced", parse: parseFenced},
		{name: "brace_span", parse: parseBraceSpan},
		{name: "repair", parse: parseRepaired},
	}
}

// decodeDocument parses text as a JSON object that has a days array.
func decodeDocument(text string) (*document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return nil, err
	}
	days, ok := top["days"]
	if !ok || !strings.HasPrefix(strings.TrimSpace(string(days)), "[") {
		return nil, errNoDayList
	}
	var doc document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func parseDirect(raw string) (*document, error) {
	return decodeDocument(strings.TrimSpace(raw))
}

func parseFenced(raw string) (*document, error) {
	blocks := fencedBlock.FindAllStringSubmatch(raw, -1)
	if len(blocks) == 0 {
		return nil, errDeclined
	}
	var lastErr error
	for _, b := range blocks {
		doc, err := decodeDocument(strings.TrimSpace(b[1]))
		if err == nil {
			return doc, nil
		}
		if lastErr == nil || errors.Is(err, errNoDayList) {
			lastErr = err
		}
	}
	return nil, lastErr
}

func parseBraceSpan(raw string) (*document, error) {
	span, ok := braceSpan(raw)
	if !ok {
		return nil, errDeclined
	}
	span = lineBreaks.ReplaceAllString(span, " ")
	span = trailingComma.ReplaceAllString(span, "$1")
	return decodeDocument(span)
}

func parseRepaired(raw string) (*document, error) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return nil, errDeclined
	}
	span := raw[start:]
	if end := strings.LastIndex(span, "}"); end >= 0 {
		span = span[:end+1]
	}
	repaired, err := jsonrepair.JSONRepair(span)
	if err != nil {
		return nil, err
	}
	return decodeDocument(repaired)
}

// parseFragments handles responses that open the days array more than once.
// Whole-document parsing would keep only the last array, so each one is cut
// out by bracket depth and the dated ones are concatenated in text order.
func parseFragments(raw string) (*document, error) {
	openers := topLevelOpeners(raw, dayListOpener.FindAllStringIndex(raw, -1))
	if len(openers) < 2 {
		return nil, errDeclined
	}
	var days []DayPlan
	for _, loc := range openers {
		span, ok := arraySpan(raw, loc[1]-1)
		if !ok {
			continue
		}
		fragment, err := decodeDayFragment(span)
		if err != nil {
			continue
		}
		days = append(days, fragment...)
	}
	if len(days) == 0 {
		return nil, errNoFragments
	}

	doc := &document{Days: days}
	if m := totalCostField.FindStringSubmatch(raw); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			doc.TotalCost = Number(f)
		}
	}
	if loc := recommendationsOpener.FindStringIndex(raw); loc != nil {
		if span, ok := arraySpan(raw, loc[1]-1); ok {
			var recs TextList
			if err := json.Unmarshal([]byte(span), &recs); err == nil {
				doc.Recommendations = recs
			}
		}
	}
	return doc, nil
}

func decodeDayFragment(span string) ([]DayPlan, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(span), &items); err != nil {
		return nil, err
	}
	if len(items) == 0 || !hasDate(items[0]) {
		return nil, errUndatedStart
	}
	var days []DayPlan
	if err := json.Unmarshal([]byte(span), &days); err != nil {
		return nil, err
	}
	return days, nil
}

func hasDate(item json.RawMessage) bool {
	var day struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(item, &day); err != nil {
		return false
	}
	return strings.TrimSpace(day.Date) != ""
}

// topLevelOpeners keeps the matches whose key sits directly in a top-level
// object, so a "days" key nested inside an activity is not a fragment.
func topLevelOpeners(text string, matches [][]int) [][]int {
	var kept [][]int
	depth := 0
	inString, escaped := false, false
	next := 0
	for i := 0; i < len(text) && next < len(matches); i++ {
		if i == matches[next][0] {
			if !inString && depth == 1 {
				kept = append(kept, matches[next])
			}
			next++
		}
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return kept
}

// arraySpan returns text[open:close+1] where close is the bracket that brings
// the depth back to zero. Brackets inside string literals are ignored.
func arraySpan(text string, open int) (string, bool) {
	if open < 0 || open >= len(text) || text[open] != '[' {
		return "", false
	}
	depth := 1
	inString, escaped := false, false
	for i := open + 1; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[open : i+1], true
			}
		}
	}
	return "", false
}

func braceSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
