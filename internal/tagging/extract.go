package tagging

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spec-kit/ticket-intake/internal/domain"
	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

// Strategy locates one candidate JSON object in raw model output.
// Locate reports false when the strategy finds nothing to try.
type Strategy struct {
	Name   string
	Locate func(raw string) (string, bool)
}

var (
	strictPattern = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(strictOpen) + `\s*(\{.*?\})\s*` + regexp.QuoteMeta(strictClose))
	loosePattern  = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(looseOpen) + `\s*(\{.*?\})\s*` + regexp.QuoteMeta(looseClose))
	bracePattern  = regexp.MustCompile(`(?s)\{.*\}`)
)

// Strategies is the fixed extraction order. Each strategy gets exactly one
// candidate; an unparseable candidate moves on to the next strategy rather
// than retrying a narrower match.
var Strategies = []Strategy{
	{Name: "strict_delimiters", Locate: submatch(strictPattern)},
	{Name: "loose_delimiters", Locate: submatch(loosePattern)},
	{Name: "first_brace_span", Locate: func(raw string) (string, bool) {
		m := bracePattern.FindString(raw)
		return m, m != ""
	}},
}

func submatch(re *regexp.Regexp) func(string) (string, bool) {
	return func(raw string) (string, bool) {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			return "", false
		}
		return m[1], true
	}
}

// Extraction is the outcome of a successful ExtractTags call.
type Extraction struct {
	Tags     domain.Tags
	Strategy string
}

var errNoCandidate = errors.New("no strategy located a JSON object")

// ExtractTags runs Strategies in order and normalizes the first candidate that
// parses as a JSON object. It fails with an EXTRACTION_FAILED error otherwise.
func ExtractTags(raw string) (Extraction, error) {
	var failures []string
	for _, s := range Strategies {
		candidate, ok := s.Locate(raw)
		if !ok {
			continue
		}
		obj, err := parseObject(candidate)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", s.Name, err))
			continue
		}
		return Extraction{Tags: normalize(obj), Strategy: s.Name}, nil
	}

	cause := errNoCandidate
	if len(failures) > 0 {
		cause = errors.New(strings.Join(failures, "; "))
	}
	return Extraction{}, apperrors.NewExtractionError("failed to extract tags from model output", cause)
}

func parseObject(candidate string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("not a JSON object")
	}
	return obj, nil
}

// normalize keeps the five known tag keys. Missing, null, non-string and blank
// values all become unknown.
func normalize(obj map[string]any) domain.Tags {
	var tags domain.Tags
	for _, key := range domain.TagKeys {
		s, ok := obj[key].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		tags.Set(key, &s)
	}
	return tags
}
