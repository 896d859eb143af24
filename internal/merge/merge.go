package merge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Utterance is one timed span of recognized speech as returned by the
// transcription service. Start and End are seconds from the segment start.
type Utterance struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// SkipFunc is notified when a payload cannot be parsed as an utterance list
// and has to be dropped from structured output.
type SkipFunc func(index int, err error)

// Results merges payloads into plain text, one utterance per line, in segment
// order. A payload that does not parse as an utterance list is kept verbatim
// rather than lost. The speaker prefix is applied only when the utterance
// carries a non-empty speaker name: the decoded form cannot distinguish an
// empty name from an absent one, so both read as absent.
func Results(payloads []string, includeSpeaker bool) string {
	var lines []string
	for _, payload := range payloads {
		utterances, err := parseUtterances(payload)
		if err != nil {
			lines = append(lines, payload)
			continue
		}
		for _, u := range utterances {
			if includeSpeaker && u.Speaker != "" {
				lines = append(lines, u.Speaker+": "+u.Text)
				continue
			}
			lines = append(lines, u.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// JSONResults merges payloads into a single utterance array with timestamps
// shifted onto the full-source timeline. The running offset advances to the
// last shifted end of each parsed payload, so utterance times are
// monotonically non-decreasing across segment boundaries. A payload that
// fails to parse is reported through onSkip and dropped without advancing
// the offset.
func JSONResults(payloads []string, onSkip SkipFunc) (string, error) {
	merged := make([]Utterance, 0)
	var offset float64
	for i, payload := range payloads {
		utterances, err := parseUtterances(payload)
		if err != nil {
			if onSkip != nil {
				onSkip(i, err)
			}
			continue
		}
		for _, u := range utterances {
			u.Start += offset
			u.End += offset
			merged = append(merged, u)
		}
		if len(utterances) > 0 {
			offset = merged[len(merged)-1].End
		}
	}

	encoded, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return "", fmt.Errorf("merge: encode merged utterances: %w", err)
	}
	return string(encoded), nil
}

func parseUtterances(payload string) ([]Utterance, error) {
	var utterances []Utterance
	if err := json.Unmarshal([]byte(payload), &utterances); err != nil {
		return nil, fmt.Errorf("merge: parse utterance list: %w", err)
	}
	return utterances, nil
}
