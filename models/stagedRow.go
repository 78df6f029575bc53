package models

import (
	"time"
)

// StagedRow holds one uploaded row until a reviewer approves or rejects it.
// Approved is nil while pending.
type StagedRow struct {
	ID              string     `gorm:"primary_key;size:36" json:"id"`
	BusinessId      string     `gorm:"index;size:64;not null" json:"business_id"`
	Kind            EntityKind `gorm:"index;size:20;not null" json:"kind"`
	ImportRunId     uint       `gorm:"index;not null" json:"import_run_id"`
	RowIndex        int        `gorm:"not null" json:"row_index"`
	Payload         RowPayload `gorm:"type:json" json:"payload"`
	NormalizedName  string     `gorm:"size:255" json:"normalized_name"`
	FirstToken      string     `gorm:"size:100" json:"first_token"`
	MatchedEntityId *int       `json:"matched_entity_id"`
	Approved        *bool      `gorm:"index" json:"approved"`
	CommittedAt     *time.Time `json:"committed_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r StagedRow) GetBusinessId() string {
	return r.BusinessId
}

// GetCursor is "created_at|id"; created_at in UTC RFC3339 with nanoseconds.
func (r StagedRow) GetCursor() string {
	return r.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + r.ID
}

func (r StagedRow) ApprovalState() ApprovalFilter {
	switch {
	case r.Approved == nil:
		return ApprovalFilterPending
	case *r.Approved:
		return ApprovalFilterApproved
	default:
		return ApprovalFilterRejected
	}
}

type StagedRowsEdge Edge[StagedRow]
type StagedRowsConnection struct {
	Edges    []*StagedRowsEdge `json:"edges"`
	PageInfo *PageInfo         `json:"pageInfo"`
}
