package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmdatafocus/catalog_backend/config"
	"github.com/mmdatafocus/catalog_backend/matching"
	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/mmdatafocus/catalog_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Stage persists one batch of rows and advances its import run. The first
// batch of an upload creates the run; every later batch must carry its id.
// A row that fails to stage is reported and the batch continues.
func (s *Service) Stage(ctx context.Context, businessId string, kind models.EntityKind, batch StageBatch) (*StageResult, error) {
	ctx, span := tracer.Start(ctx, "importer.Stage")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)), attribute.Int("rows", len(batch.Rows)))

	result, err := s.stage(ctx, businessId, kind, batch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("run_id", int64(result.RunId)))
	return result, nil
}

func (s *Service) stage(ctx context.Context, businessId string, kind models.EntityKind, batch StageBatch) (*StageResult, error) {
	run, err := s.resolveRun(ctx, businessId, kind, batch)
	if err != nil {
		return nil, err
	}

	release, err := s.lockRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	plan := PlanFor(kind)
	result := &StageResult{RunId: run.ID, Errors: make([]RowError, 0)}
	for _, row := range batch.Rows {
		name, _ := plan.Name(row.Fields)
		if trimName(name) == "" {
			result.Skipped++
			continue
		}

		staged := &models.StagedRow{
			ID:             uuid.NewString(),
			BusinessId:     businessId,
			Kind:           kind,
			ImportRunId:    run.ID,
			RowIndex:       row.Index,
			Payload:        row.Fields,
			NormalizedName: matching.Normalize(name),
			FirstToken:     matching.FirstSignificantToken(name),
		}
		if entityId, ok := batch.ConfirmedMatches[row.Index]; ok {
			if err := s.checkConfirmedMatch(ctx, businessId, kind, entityId); err != nil {
				result.Errors = append(result.Errors, RowError{Row: row.Index + 1, Message: err.Error()})
				continue
			}
			staged.MatchedEntityId = &entityId
		}

		if err := s.Staging.InsertStagedRow(ctx, staged); err != nil {
			config.LogError(s.logger(), moduleName, "Stage", "InsertStagedRow", staged.RowIndex, err)
			result.Errors = append(result.Errors, RowError{Row: row.Index + 1, Message: err.Error()})
			continue
		}
		result.Processed++
	}

	delta := models.ImportRunTotals{Processed: result.Processed, Skipped: result.Skipped, ErrorCount: len(result.Errors)}
	if err := s.Runs.AddBatch(ctx, businessId, run.ID, delta); err != nil {
		return nil, fmt.Errorf("update import run %d: %w", run.ID, err)
	}
	result.RunStatus = models.ImportRunStatusInProgress

	if batch.LastBatch {
		finished, err := s.completeRun(ctx, businessId, run.ID, batch.Totals)
		if err != nil {
			return nil, err
		}
		result.RunStatus = finished.Status
	}

	s.logger().WithFields(logrus.Fields{
		"module":      moduleName,
		"business_id": businessId,
		"kind":        kind,
		"run_id":      run.ID,
		"processed":   result.Processed,
		"skipped":     result.Skipped,
		"errors":      len(result.Errors),
		"last_batch":  batch.LastBatch,
	}).Info("import batch staged")
	return result, nil
}

// resolveRun creates the run for a first batch without an id, otherwise
// loads the run and requires it to still accept batches.
func (s *Service) resolveRun(ctx context.Context, businessId string, kind models.EntityKind, batch StageBatch) (*models.ImportRun, error) {
	if batch.RunId == nil {
		if !batch.FirstBatch {
			return nil, ErrRunIdRequired
		}
		now := s.now()
		run := &models.ImportRun{
			BusinessId:      businessId,
			Kind:            kind,
			FileName:        batch.FileName,
			SourceObjectKey: batch.SourceObjectKey,
			Status:          models.ImportRunStatusInProgress,
			StartedAt:       &now,
		}
		if err := s.Runs.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("create import run: %w", err)
		}
		return run, nil
	}

	run, err := s.Runs.GetRun(ctx, businessId, *batch.RunId)
	if err != nil {
		return nil, err
	}
	if run.Kind != kind {
		return nil, fmt.Errorf("import run %d is a %s import: %w", run.ID, run.Kind, ErrRunNotInProgress)
	}
	if run.Status != models.ImportRunStatusInProgress {
		return nil, ErrRunNotInProgress
	}
	return run, nil
}

// completeRun finalizes with the caller's totals when given, otherwise with
// the counters accumulated over every batch.
func (s *Service) completeRun(ctx context.Context, businessId string, runId uint, totals *models.ImportRunTotals) (*models.ImportRun, error) {
	final := totals
	if final == nil {
		run, err := s.Runs.GetRun(ctx, businessId, runId)
		if err != nil {
			return nil, err
		}
		t := run.Totals()
		final = &t
	}
	if err := s.Runs.CompleteRun(ctx, businessId, runId, *final, s.now()); err != nil {
		return nil, fmt.Errorf("complete import run %d: %w", runId, err)
	}
	run, err := s.Runs.GetRun(ctx, businessId, runId)
	if err != nil {
		return nil, err
	}
	s.publishFinalized(ctx, run)
	return run, nil
}

func (s *Service) checkConfirmedMatch(ctx context.Context, businessId string, kind models.EntityKind, entityId int) error {
	entity, err := s.Catalog.FindById(ctx, businessId, entityId)
	if err != nil {
		return err
	}
	if entity == nil || entity.Kind != kind {
		return fmt.Errorf("confirmed match %d is not a %s", entityId, kind)
	}
	return nil
}

// FailRun marks an in-progress run failed. Terminal runs are left as they are.
func (s *Service) FailRun(ctx context.Context, businessId string, runId uint, reason string) (*models.ImportRun, error) {
	run, err := s.Runs.GetRun(ctx, businessId, runId)
	if err != nil {
		return nil, err
	}
	if run.Status.IsTerminal() {
		return nil, ErrRunNotInProgress
	}

	release, err := s.lockRun(ctx, runId)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.Runs.FailRun(ctx, businessId, runId, reason, s.now()); err != nil {
		return nil, err
	}
	run, err = s.Runs.GetRun(ctx, businessId, runId)
	if err != nil {
		return nil, err
	}
	s.logger().WithFields(logrus.Fields{
		"module":      moduleName,
		"business_id": businessId,
		"run_id":      runId,
		"reason":      reason,
	}).Warn("import run failed")
	s.publishFinalized(ctx, run)
	return run, nil
}

func (s *Service) GetRun(ctx context.Context, businessId string, runId uint) (*models.ImportRun, error) {
	return s.Runs.GetRun(ctx, businessId, runId)
}

func (s *Service) ListRuns(ctx context.Context, businessId string, kind models.EntityKind, limit int, after *string) (*models.ImportRunsConnection, error) {
	return s.Runs.ListRuns(ctx, businessId, kind, clampLimit(limit), after)
}

func (s *Service) ListStaged(ctx context.Context, filter StagedRowFilter, limit int, after *string) (*models.StagedRowsConnection, error) {
	return s.Staging.ListStagedRows(ctx, filter, clampLimit(limit), after)
}

// Approve sets the approval flag on ids ∩ kind (∩ runId when given). The
// count reports matched rows, so repeating a call is a visible no-op.
func (s *Service) Approve(ctx context.Context, businessId string, kind models.EntityKind, ids []string, runId *uint, approved bool) (int64, error) {
	ids = utils.UniqueSlice(ids)
	if len(ids) == 0 {
		return 0, errors.New("ids are required")
	}
	updated, err := s.Staging.SetApproval(ctx, businessId, kind, ids, runId, approved)
	if err != nil {
		return 0, err
	}
	reviewer, _ := utils.GetUsernameFromContext(ctx)
	s.logger().WithFields(logrus.Fields{
		"module":      moduleName,
		"business_id": businessId,
		"kind":        kind,
		"reviewed_by": reviewer,
		"requested":   len(ids),
		"updated":     updated,
		"approved":    approved,
	}).Info("staged rows reviewed")
	return updated, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}
