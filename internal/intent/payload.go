package intent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Payload is what an oracle returns: either Raw text that still has to be
// parsed, or an already Structured record.
type Payload interface {
	isPayload()
}

// Raw is an unparsed oracle response, expected to hold a JSON object.
type Raw string

// Structured is a record the oracle already decoded.
type Structured Record

func (Raw) isPayload()        {}
func (Structured) isPayload() {}

// Record mirrors the oracle's field set before cleaning.
type Record struct {
	Intent  string `json:"intent"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Parse decodes a Raw payload. Models sometimes wrap JSON in markdown fences
// or vary key case; both are tolerated, and an exact lowercase key wins over
// its case variants. Non-string scalars are stringified and
// null or composite values become empty.
func Parse(raw Raw) (Record, error) {
	text := stripFences(string(raw))
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Record{}, fmt.Errorf("invalid oracle payload: %w", err)
	}
	lookup := make(map[string]any, len(fields))
	for k, v := range fields {
		key := strings.ToLower(strings.TrimSpace(k))
		if _, exact := fields[key]; exact && key != k {
			continue
		}
		lookup[key] = v
	}
	return Record{
		Intent:  scalar(lookup["intent"]),
		To:      scalar(lookup["to"]),
		Subject: scalar(lookup["subject"]),
		Body:    scalar(lookup["body"]),
	}, nil
}

// Normalize turns any payload into a canonical Intent. An unparseable Raw
// payload yields Unknown. Upgrade rules are not applied here.
func Normalize(p Payload) Intent {
	var rec Record
	switch v := p.(type) {
	case Raw:
		parsed, err := Parse(v)
		if err != nil {
			return Unknown()
		}
		rec = parsed
	case Structured:
		rec = Record(v)
	default:
		return Unknown()
	}
	return Intent{
		Kind:    ParseKind(rec.Intent),
		To:      clean(rec.To),
		Subject: clean(rec.Subject),
		Body:    clean(rec.Body),
	}
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
