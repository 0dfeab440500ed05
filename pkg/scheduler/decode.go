package scheduler

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeEntries converts loosely typed entry maps (as produced by parsing a
// YAML or JSON batch document) into typed Entries. Unknown keys are an
// error so a misspelled field fails loudly instead of silently registering a
// half-empty function.
func DecodeEntries(raw []map[string]any) ([]Entry, error) {
	entries := make([]Entry, 0, len(raw))
	for i, m := range raw {
		var entry Entry
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &entry,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(m); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
