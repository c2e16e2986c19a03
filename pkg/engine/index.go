// Package engine holds the identity-resolution core: the SoT index, the
// join cascade, conflict detection, risk scoring, and the per-worker
// facade. The package is pure: bytes and configuration in, structured
// results out.
package engine

import (
	"github.com/cloudbun/floatbox/pkg/schema"
)

// SoTIndex is the read-only lookup structure built from the roster. It is
// immutable after construction; matched results hold references into it.
type SoTIndex struct {
	ByEmail      map[string]*schema.SoTRecord   `json:"byEmail"`
	ByEmployeeID map[string]*schema.SoTRecord   `json:"byEmployeeId"`
	ByName       map[string][]*schema.SoTRecord `json:"byName"`
	Stats        IndexStats                     `json:"stats"`

	// records keeps insertion order so serialization reproduces the exact
	// first-wins decisions and name-list ordering on rehydration.
	records []*schema.SoTRecord
}

// IndexStats are the aggregate roster statistics.
type IndexStats struct {
	TotalRecords    int `json:"totalRecords"`
	ActiveCount     int `json:"activeCount"`
	TerminatedCount int `json:"terminatedCount"`
	UniqueEmails    int `json:"uniqueEmails"`
}

// BuildSoTIndex constructs the three-way index from an ordered record list.
// ByEmail and ByEmployeeID keep the first occurrence of a duplicate key;
// ByName preserves every record in insertion order.
func BuildSoTIndex(records []*schema.SoTRecord) *SoTIndex {
	index := &SoTIndex{
		ByEmail:      make(map[string]*schema.SoTRecord, len(records)),
		ByEmployeeID: make(map[string]*schema.SoTRecord, len(records)),
		ByName:       make(map[string][]*schema.SoTRecord),
		records:      records,
	}

	for _, rec := range records {
		if rec.Email != "" {
			if _, exists := index.ByEmail[rec.Email]; !exists {
				index.ByEmail[rec.Email] = rec
			}
		}

		if rec.EmployeeID != "" {
			if _, exists := index.ByEmployeeID[rec.EmployeeID]; !exists {
				index.ByEmployeeID[rec.EmployeeID] = rec
			}
		}

		if rec.NormalizedName != "" {
			index.ByName[rec.NormalizedName] = append(index.ByName[rec.NormalizedName], rec)
		}

		// Anything that is not explicitly terminated (active, leave,
		// contractor, empty) counts toward the active total.
		if rec.EmploymentStatus == "terminated" {
			index.Stats.TerminatedCount++
		} else {
			index.Stats.ActiveCount++
		}
	}

	index.Stats.TotalRecords = len(records)
	index.Stats.UniqueEmails = len(index.ByEmail)

	return index
}

// Records returns the indexed records in insertion order.
func (idx *SoTIndex) Records() []*schema.SoTRecord {
	return idx.records
}
