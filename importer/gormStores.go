package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/mmdatafocus/catalog_backend/utils"
	"gorm.io/gorm"
)

// GormStore implements every store interface on one gorm handle.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var (
	_ CatalogAccessor = (*GormStore)(nil)
	_ StagingStore    = (*GormStore)(nil)
	_ RunStore        = (*GormStore)(nil)
	_ LinkAccessor    = (*GormStore)(nil)
)

/* catalog */

func (s *GormStore) PageEntities(ctx context.Context, businessId string, kind models.EntityKind, afterId int, limit int) ([]*models.CatalogEntity, error) {
	var entities []*models.CatalogEntity
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND kind = ? AND id > ?", businessId, kind, afterId).
		Order("id").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}

func (s *GormStore) FindByName(ctx context.Context, businessId string, kind models.EntityKind, name string) (*models.CatalogEntity, error) {
	var entity models.CatalogEntity
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND kind = ? AND name = ?", businessId, kind, name).
		Take(&entity).Error
	if err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

func (s *GormStore) FindById(ctx context.Context, businessId string, id int) (*models.CatalogEntity, error) {
	var entity models.CatalogEntity
	err := s.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessId).
		Take(&entity).Error
	if err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

func (s *GormStore) InsertEntity(ctx context.Context, entity *models.CatalogEntity) error {
	return s.db.WithContext(ctx).Create(entity).Error
}

func (s *GormStore) UpdateEntity(ctx context.Context, businessId string, id int, attrs map[string]interface{}) error {
	if len(attrs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.CatalogEntity{}).
		Where("id = ? AND business_id = ?", id, businessId).
		Updates(attrs).Error
}

/* staging */

func (s *GormStore) InsertStagedRow(ctx context.Context, row *models.StagedRow) error {
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *GormStore) ListStagedRows(ctx context.Context, filter StagedRowFilter, limit int, after *string) (*models.StagedRowsConnection, error) {
	dbCtx := s.db.WithContext(ctx).
		Model(&models.StagedRow{}).
		Where("business_id = ? AND kind = ?", filter.BusinessId, filter.Kind)

	switch filter.Status {
	case models.ApprovalFilterApproved:
		dbCtx = dbCtx.Where("approved = ?", true)
	case models.ApprovalFilterRejected:
		dbCtx = dbCtx.Where("approved = ?", false)
	case models.ApprovalFilterPending:
		dbCtx = dbCtx.Where("approved IS NULL")
	}
	if filter.RunId != nil {
		dbCtx = dbCtx.Where("import_run_id = ?", *filter.RunId)
	}

	edges, pageInfo, err := models.FetchPageCompositeCursor[models.StagedRow](dbCtx, limit, after, "created_at", "id", parseCursorTime)
	if err != nil {
		return nil, err
	}
	conn := &models.StagedRowsConnection{
		Edges:    make([]*models.StagedRowsEdge, 0, len(edges)),
		PageInfo: pageInfo,
	}
	for _, edge := range edges {
		e := models.StagedRowsEdge(edge)
		conn.Edges = append(conn.Edges, &e)
	}
	return conn, nil
}

func parseCursorTime(v string) (interface{}, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func (s *GormStore) SetApproval(ctx context.Context, businessId string, kind models.EntityKind, ids []string, runId *uint, approved bool) (int64, error) {
	cond := "kind = ? AND id IN ?"
	args := []interface{}{kind, utils.UniqueSlice(ids)}
	if runId != nil {
		cond += " AND import_run_id = ?"
		args = append(args, *runId)
	}

	matched, err := utils.ResourceCountWhere[models.StagedRow](ctx, s.db, businessId, cond, args...)
	if err != nil {
		return 0, err
	}
	if matched == 0 {
		return 0, nil
	}

	err = s.db.WithContext(ctx).
		Model(&models.StagedRow{}).
		Where("business_id = ?", businessId).
		Where(cond, args...).
		Updates(map[string]interface{}{
			"approved":   approved,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return 0, err
	}
	return matched, nil
}

func (s *GormStore) ListCommittable(ctx context.Context, businessId string, runId uint) ([]*models.StagedRow, error) {
	var rows []*models.StagedRow
	err := s.db.WithContext(ctx).
		Where("business_id = ? AND import_run_id = ? AND approved = ? AND committed_at IS NULL", businessId, runId, true).
		Order("row_index").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *GormStore) MarkCommitted(ctx context.Context, businessId string, id string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.StagedRow{}).
		Where("id = ? AND business_id = ?", id, businessId).
		Updates(map[string]interface{}{
			"committed_at": at,
			"updated_at":   at,
		}).Error
}

/* runs */

func (s *GormStore) CreateRun(ctx context.Context, run *models.ImportRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormStore) GetRun(ctx context.Context, businessId string, id uint) (*models.ImportRun, error) {
	var run models.ImportRun
	err := s.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessId).
		Take(&run).Error
	if err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

func (s *GormStore) ListRuns(ctx context.Context, businessId string, kind models.EntityKind, limit int, after *string) (*models.ImportRunsConnection, error) {
	dbCtx := s.db.WithContext(ctx).
		Model(&models.ImportRun{}).
		Where("business_id = ?", businessId)
	if kind != "" {
		dbCtx = dbCtx.Where("kind = ?", kind)
	}

	edges, pageInfo, err := models.FetchPagePureCursor[models.ImportRun](dbCtx, limit, after, "id", "<")
	if err != nil {
		return nil, err
	}
	conn := &models.ImportRunsConnection{
		Edges:    make([]*models.ImportRunsEdge, 0, len(edges)),
		PageInfo: pageInfo,
	}
	for _, edge := range edges {
		e := models.ImportRunsEdge(edge)
		conn.Edges = append(conn.Edges, &e)
	}
	return conn, nil
}

func (s *GormStore) AddBatch(ctx context.Context, businessId string, id uint, delta models.ImportRunTotals) error {
	return s.updateInProgressRun(ctx, businessId, id, map[string]interface{}{
		"processed":   gorm.Expr("processed + ?", delta.Processed),
		"skipped":     gorm.Expr("skipped + ?", delta.Skipped),
		"error_count": gorm.Expr("error_count + ?", delta.ErrorCount),
		"batch_count": gorm.Expr("batch_count + ?", 1),
		"updated_at":  time.Now(),
	})
}

func (s *GormStore) CompleteRun(ctx context.Context, businessId string, id uint, totals models.ImportRunTotals, at time.Time) error {
	return s.updateInProgressRun(ctx, businessId, id, map[string]interface{}{
		"status":      models.ImportRunStatusCompleted,
		"processed":   totals.Processed,
		"skipped":     totals.Skipped,
		"error_count": totals.ErrorCount,
		"finished_at": at,
		"updated_at":  at,
	})
}

func (s *GormStore) FailRun(ctx context.Context, businessId string, id uint, reason string, at time.Time) error {
	return s.updateInProgressRun(ctx, businessId, id, map[string]interface{}{
		"status":         models.ImportRunStatusFailed,
		"failure_reason": reason,
		"finished_at":    at,
		"updated_at":     at,
	})
}

// updateInProgressRun applies values only while the run is in progress; a
// miss is resolved into ErrRunNotFound or ErrRunNotInProgress.
func (s *GormStore) updateInProgressRun(ctx context.Context, businessId string, id uint, values map[string]interface{}) error {
	res := s.db.WithContext(ctx).
		Model(&models.ImportRun{}).
		Where("id = ? AND business_id = ? AND status = ?", id, businessId, models.ImportRunStatusInProgress).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := s.GetRun(ctx, businessId, id); err != nil {
		return err
	}
	return ErrRunNotInProgress
}

/* links */

func (s *GormStore) LinkExists(ctx context.Context, table string, where map[string]interface{}) (bool, error) {
	model, ok := models.LinkModel(table)
	if !ok {
		return false, fmt.Errorf("unknown link table %q", table)
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(model).Where(where).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) InsertLink(ctx context.Context, table string, row map[string]interface{}) error {
	model, ok := models.LinkModel(table)
	if !ok {
		return fmt.Errorf("unknown link table %q", table)
	}
	values := make(map[string]interface{}, len(row)+1)
	for k, v := range row {
		values[k] = v
	}
	if _, set := values["created_at"]; !set {
		values["created_at"] = time.Now()
	}
	return s.db.WithContext(ctx).Model(model).Create(values).Error
}
