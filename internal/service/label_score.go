package service

import (
	"encoding/json"
	"fmt"
)

// LabelScore pairs a candidate label with its probability. It is encoded as
// a two element JSON array: ["cat", 0.93].
type LabelScore struct {
	Label string
	Score float64
}

func (ls LabelScore) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{ls.Label, ls.Score})
}

func (ls *LabelScore) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("label score: expected 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &ls.Label); err != nil {
		return fmt.Errorf("label score: label: %w", err)
	}
	if err := json.Unmarshal(pair[1], &ls.Score); err != nil {
		return fmt.Errorf("label score: score: %w", err)
	}
	return nil
}
