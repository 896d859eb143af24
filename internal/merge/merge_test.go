package merge

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResultsPlainText(t *testing.T) {
	payloads := []string{
		`[{"start":0,"end":5,"text":"hello"},{"start":5,"end":10,"text":"world"}]`,
		`[{"start":0,"end":3,"text":"again"}]`,
	}
	got := Results(payloads, false)
	want := "hello\nworld\nagain"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResultsWithSpeakers(t *testing.T) {
	payloads := []string{
		`[{"start":0,"end":5,"text":"hello","speaker":"A"},{"start":5,"end":8,"text":"hi"}]`,
	}
	got := Results(payloads, true)
	want := "A: hello\nhi"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResultsKeepsUnparsableVerbatim(t *testing.T) {
	payloads := []string{
		`[{"start":0,"end":5,"text":"hello"}]`,
		"plain transcript text",
	}
	got := Results(payloads, false)
	if got != "hello\nplain transcript text" {
		t.Fatalf("unparsable payload must survive verbatim, got %q", got)
	}
}

func TestJSONResultsOffsetRealignment(t *testing.T) {
	payloads := []string{
		`[{"start":0,"end":5,"text":"a"},{"start":5,"end":10,"text":"b"}]`,
		`[{"start":0,"end":3,"text":"c"}]`,
	}
	got, err := JSONResults(payloads, nil)
	if err != nil {
		t.Fatalf("JSONResults returned error: %v", err)
	}

	var merged []Utterance
	if err := json.Unmarshal([]byte(got), &merged); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	want := []Utterance{
		{Start: 0, End: 5, Text: "a"},
		{Start: 5, End: 10, Text: "b"},
		{Start: 10, End: 13, Text: "c"},
	}
	if len(merged) != len(want) {
		t.Fatalf("expected %d utterances, got %d", len(want), len(merged))
	}
	for i, u := range want {
		if merged[i] != u {
			t.Fatalf("utterance %d: expected %+v, got %+v", i, u, merged[i])
		}
	}
	for i := 1; i < len(merged); i++ {
		if merged[i].Start < merged[i-1].Start {
			t.Fatalf("timestamps must be non-decreasing, got %v after %v", merged[i].Start, merged[i-1].Start)
		}
	}
}

func TestJSONResultsSkipDoesNotAdvanceOffset(t *testing.T) {
	payloads := []string{
		`[{"start":0,"end":5,"text":"a"}]`,
		"garbage",
		`[{"start":0,"end":2,"text":"b"}]`,
	}
	var skipped []int
	got, err := JSONResults(payloads, func(index int, err error) {
		if err == nil {
			t.Fatal("skip callback must carry the parse error")
		}
		skipped = append(skipped, index)
	})
	if err != nil {
		t.Fatalf("JSONResults returned error: %v", err)
	}
	if len(skipped) != 1 || skipped[0] != 1 {
		t.Fatalf("expected payload 1 reported skipped, got %v", skipped)
	}

	var merged []Utterance
	if err := json.Unmarshal([]byte(got), &merged); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(merged))
	}
	if merged[1].Start != 5 || merged[1].End != 7 {
		t.Fatalf("skipped payload must not advance offset, got %+v", merged[1])
	}
}

func TestJSONResultsEmptyInput(t *testing.T) {
	got, err := JSONResults(nil, nil)
	if err != nil {
		t.Fatalf("JSONResults returned error: %v", err)
	}
	if strings.TrimSpace(got) != "[]" {
		t.Fatalf("expected empty array, got %q", got)
	}
}

func TestJSONResultsPrettyPrinted(t *testing.T) {
	got, err := JSONResults([]string{`[{"start":0,"end":1,"text":"a"}]`}, nil)
	if err != nil {
		t.Fatalf("JSONResults returned error: %v", err)
	}
	if !strings.Contains(got, "\n  {") {
		t.Fatalf("expected 2-space indented output, got %q", got)
	}
}
