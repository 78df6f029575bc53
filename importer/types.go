package importer

import (
	"github.com/mmdatafocus/catalog_backend/matching"
	"github.com/mmdatafocus/catalog_backend/models"
)

// IncomingRow is one uploaded record. Index is its position in the batch.
type IncomingRow struct {
	Index  int
	Fields models.RowPayload
}

func rowsFromMaps(raw []map[string]interface{}) []IncomingRow {
	rows := make([]IncomingRow, 0, len(raw))
	for i, fields := range raw {
		rows = append(rows, IncomingRow{Index: i, Fields: models.RowPayload(fields)})
	}
	return rows
}

// RowError attributes a failure to a 1-based row number.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

/* validate */

type ValidateRequest struct {
	Rows []map[string]interface{} `json:"rows" binding:"required,min=1"`
}

type RowVerdict struct {
	Row             int                   `json:"row"`
	Name            string                `json:"name"`
	Verdict         matching.VerdictKind  `json:"verdict"`
	SuggestedAction matching.Action       `json:"suggested_action,omitempty"`
	Match           *models.CatalogEntity `json:"match,omitempty"`
	Score           *float64              `json:"score,omitempty"`
	Message         string                `json:"message,omitempty"`
}

type ValidationTotals struct {
	Total      int `json:"total"`
	Exact      int `json:"exact"`
	FirstToken int `json:"first_token"`
	Fuzzy      int `json:"fuzzy"`
	New        int `json:"new"`
	Errors     int `json:"errors"`
}

type ValidationReport struct {
	Kind    models.EntityKind       `json:"kind"`
	Rows    []RowVerdict            `json:"rows"`
	Totals  ValidationTotals        `json:"totals"`
	Catalog []*models.CatalogEntity `json:"catalog"`
}

/* stage */

type StageRequest struct {
	Rows             []map[string]interface{} `json:"rows" binding:"required,min=1"`
	ConfirmedMatches map[string]int           `json:"confirmed_matches"`
	FileName         string                   `json:"file_name" binding:"max=255"`
	FirstBatch       bool                     `json:"first_batch"`
	LastBatch        bool                     `json:"last_batch"`
	RunId            *uint                    `json:"run_id"`
	Totals           *models.ImportRunTotals  `json:"totals"`
	SourceObjectKey  string                   `json:"source_object_key" binding:"max=512"`
}

// StageBatch is a StageRequest after input checks.
type StageBatch struct {
	Rows             []IncomingRow
	ConfirmedMatches map[int]int
	FileName         string
	FirstBatch       bool
	LastBatch        bool
	RunId            *uint
	Totals           *models.ImportRunTotals
	SourceObjectKey  string
}

type StageResult struct {
	Processed int                    `json:"processed"`
	Skipped   int                    `json:"skipped"`
	Errors    []RowError             `json:"errors"`
	RunId     uint                   `json:"run_id"`
	RunStatus models.ImportRunStatus `json:"run_status"`
}

/* approve */

type ApproveRequest struct {
	Ids      []string `json:"ids"`
	Id       string   `json:"id"`
	Approved *bool    `json:"approved" binding:"required"`
	RunId    *uint    `json:"run_id"`
}

type ApproveResult struct {
	Updated int64 `json:"updated"`
}

/* commit */

type CommitRequest struct {
	Rows            []map[string]interface{} `json:"rows" binding:"required,min=1"`
	ContinueOnError bool                     `json:"continue_on_error"`
}

type CommitRunRequest struct {
	ContinueOnError bool `json:"continue_on_error"`
}

type CommitOptions struct {
	ContinueOnError bool
}

type CommitResult struct {
	Inserted  int        `json:"inserted"`
	Updated   int        `json:"updated"`
	Linked    int        `json:"linked"`
	Skipped   int        `json:"skipped"`
	Committed int        `json:"committed,omitempty"`
	Errors    []RowError `json:"errors,omitempty"`
}

/* runs */

type FailRunRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

/* parse */

type ParseResult struct {
	FileName        string                   `json:"file_name"`
	Headers         []string                 `json:"headers"`
	Rows            []map[string]interface{} `json:"rows"`
	SourceObjectKey string                   `json:"source_object_key,omitempty"`
}
