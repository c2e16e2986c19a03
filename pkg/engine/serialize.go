package engine

import (
	"encoding/json"
	"fmt"

	"github.com/cloudbun/floatbox/pkg/schema"
)

// serializedIndex is the wire form of a SoTIndex: the record list in
// insertion order plus the stats computed at build time. The maps are
// rebuilt on the receiving side, which reproduces the same first-wins
// decisions and name-list order because the list order is preserved.
type serializedIndex struct {
	Records []*schema.SoTRecord `json:"records"`
	Stats   IndexStats          `json:"stats"`
}

// SerializeSoTIndex renders the index as a JSON payload for transport to
// isolated worker instances that cannot share memory.
func SerializeSoTIndex(index *SoTIndex) (string, error) {
	data, err := json.Marshal(serializedIndex{
		Records: index.records,
		Stats:   index.Stats,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize SoT index: %w", err)
	}
	return string(data), nil
}

// DeserializeSoTIndex rehydrates an index from its JSON payload. The
// shipped stats are restored verbatim rather than recomputed.
func DeserializeSoTIndex(data []byte) (*SoTIndex, error) {
	var si serializedIndex
	if err := json.Unmarshal(data, &si); err != nil {
		return nil, fmt.Errorf("failed to deserialize SoT index: %w", err)
	}

	index := BuildSoTIndex(si.Records)
	index.Stats = si.Stats
	return index, nil
}
