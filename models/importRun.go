package models

import (
	"strconv"
	"time"
)

// ImportRun aggregates every batch of one logical upload. The ingestion path
// is its only writer.
type ImportRun struct {
	ID              uint            `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;size:64;not null" json:"business_id"`
	Kind            EntityKind      `gorm:"index;size:20;not null" json:"kind"`
	FileName        string          `gorm:"size:255" json:"file_name"`
	SourceObjectKey string          `gorm:"size:512" json:"source_object_key"`
	Status          ImportRunStatus `gorm:"index;size:20;not null" json:"status"`
	Processed       int             `gorm:"not null;default:0" json:"processed"`
	Skipped         int             `gorm:"not null;default:0" json:"skipped"`
	ErrorCount      int             `gorm:"not null;default:0" json:"error_count"`
	BatchCount      int             `gorm:"not null;default:0" json:"batch_count"`
	FailureReason   string          `gorm:"type:text" json:"failure_reason,omitempty"`
	StartedAt       *time.Time      `json:"started_at"`
	FinishedAt      *time.Time      `json:"finished_at"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ImportRunTotals are the counters a batch adds, or a caller's final figures.
type ImportRunTotals struct {
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	ErrorCount int `json:"error_count"`
}

func (r ImportRun) GetBusinessId() string {
	return r.BusinessId
}

func (r ImportRun) GetCursor() string {
	return strconv.FormatUint(uint64(r.ID), 10)
}

func (r ImportRun) Totals() ImportRunTotals {
	return ImportRunTotals{Processed: r.Processed, Skipped: r.Skipped, ErrorCount: r.ErrorCount}
}

type ImportRunsEdge Edge[ImportRun]
type ImportRunsConnection struct {
	Edges    []*ImportRunsEdge `json:"edges"`
	PageInfo *PageInfo         `json:"pageInfo"`
}
