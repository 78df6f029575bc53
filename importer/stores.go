package importer

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/catalog_backend/models"
)

var (
	ErrRunNotFound      = errors.New("import run not found")
	ErrRunNotInProgress = errors.New("import run is not in progress")
	ErrRunLocked        = errors.New("import run is being written by another batch")
	ErrRunIdRequired    = errors.New("run_id is required unless first_batch is set")

	// ErrConfirmedMatchMissing aborts a run commit whose reviewed match was
	// deleted after staging.
	ErrConfirmedMatchMissing = errors.New("confirmed match no longer exists")
)

// CatalogAccessor reads and writes canonical entities. Find* return nil, nil
// when nothing matches.
type CatalogAccessor interface {
	PageEntities(ctx context.Context, businessId string, kind models.EntityKind, afterId int, limit int) ([]*models.CatalogEntity, error)
	FindByName(ctx context.Context, businessId string, kind models.EntityKind, name string) (*models.CatalogEntity, error)
	FindById(ctx context.Context, businessId string, id int) (*models.CatalogEntity, error)
	InsertEntity(ctx context.Context, entity *models.CatalogEntity) error
	UpdateEntity(ctx context.Context, businessId string, id int, attrs map[string]interface{}) error
}

type StagedRowFilter struct {
	BusinessId string
	Kind       models.EntityKind
	Status     models.ApprovalFilter
	RunId      *uint
}

// StagingStore persists rows awaiting review.
type StagingStore interface {
	InsertStagedRow(ctx context.Context, row *models.StagedRow) error
	ListStagedRows(ctx context.Context, filter StagedRowFilter, limit int, after *string) (*models.StagedRowsConnection, error)
	// SetApproval updates rows in ids ∩ kind ∩ runId and returns how many rows
	// matched, so repeating a call reports the same count.
	SetApproval(ctx context.Context, businessId string, kind models.EntityKind, ids []string, runId *uint, approved bool) (int64, error)
	ListCommittable(ctx context.Context, businessId string, runId uint) ([]*models.StagedRow, error)
	MarkCommitted(ctx context.Context, businessId string, id string, at time.Time) error
}

// RunStore owns import_runs. Mutations of a run that is not in progress
// return ErrRunNotInProgress; unknown ids return ErrRunNotFound.
type RunStore interface {
	CreateRun(ctx context.Context, run *models.ImportRun) error
	GetRun(ctx context.Context, businessId string, id uint) (*models.ImportRun, error)
	ListRuns(ctx context.Context, businessId string, kind models.EntityKind, limit int, after *string) (*models.ImportRunsConnection, error)
	AddBatch(ctx context.Context, businessId string, id uint, delta models.ImportRunTotals) error
	CompleteRun(ctx context.Context, businessId string, id uint, totals models.ImportRunTotals, at time.Time) error
	FailRun(ctx context.Context, businessId string, id uint, reason string, at time.Time) error
}

// LinkAccessor checks and inserts rows of the many-to-many link tables.
type LinkAccessor interface {
	LinkExists(ctx context.Context, table string, where map[string]interface{}) (bool, error)
	InsertLink(ctx context.Context, table string, row map[string]interface{}) error
}
