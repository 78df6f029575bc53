package importer

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/mmdatafocus/catalog_backend/config"
	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/mmdatafocus/catalog_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type rowOutcome struct {
	inserted bool
	updated  bool
	skipped  bool
	linked   int
}

func (r *CommitResult) add(o rowOutcome) {
	switch {
	case o.skipped:
		r.Skipped++
	case o.inserted:
		r.Inserted++
	case o.updated:
		r.Updated++
	}
	r.Linked += o.linked
}

// committer carries one commit call's state across rows.
type committer struct {
	s          *Service
	businessId string
	plan       CommitPlan
	touched    map[models.EntityKind]bool
}

// Commit upserts every row of kind into the catalog and creates its links.
// By default the first store error stops the loop and is returned; rows
// before it stay written. With ContinueOnError the error is recorded against
// the row and the loop goes on.
func (s *Service) Commit(ctx context.Context, businessId string, kind models.EntityKind, rows []IncomingRow, opts CommitOptions) (*CommitResult, error) {
	ctx, span := tracer.Start(ctx, "importer.Commit")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(kind)), attribute.Int("rows", len(rows)))

	c := s.newCommitter(businessId, kind)
	defer s.invalidateCatalogs(ctx, businessId, c.touched)

	result := &CommitResult{}
	for _, row := range rows {
		outcome, err := c.commitRow(ctx, row.Fields)
		if err != nil {
			if !opts.ContinueOnError {
				err = fmt.Errorf("row %d: %w", row.Index+1, err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				config.LogError(s.logger(), moduleName, "Commit", "commitRow", row.Index+1, err)
				return nil, err
			}
			result.Errors = append(result.Errors, RowError{Row: row.Index + 1, Message: err.Error()})
			continue
		}
		result.add(outcome)
	}

	s.logCommit("import rows committed", businessId, kind, 0, result)
	return result, nil
}

// CommitRun commits the approved, not yet committed rows of a run in row
// order and stamps each one. A reviewer's confirmed match replaces the
// uploaded name so the row updates that entity.
func (s *Service) CommitRun(ctx context.Context, businessId string, runId uint, opts CommitOptions) (*CommitResult, error) {
	ctx, span := tracer.Start(ctx, "importer.CommitRun")
	defer span.End()
	span.SetAttributes(attribute.Int64("run_id", int64(runId)))

	result, err := s.commitRun(ctx, businessId, runId, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (s *Service) commitRun(ctx context.Context, businessId string, runId uint, opts CommitOptions) (*CommitResult, error) {
	run, err := s.Runs.GetRun(ctx, businessId, runId)
	if err != nil {
		return nil, err
	}
	if run.Status == models.ImportRunStatusFailed {
		return nil, ErrRunNotInProgress
	}

	release, err := s.lockRun(ctx, runId)
	if err != nil {
		return nil, err
	}
	defer release()

	staged, err := s.Staging.ListCommittable(ctx, businessId, runId)
	if err != nil {
		return nil, fmt.Errorf("list approved rows of run %d: %w", runId, err)
	}

	c := s.newCommitter(businessId, run.Kind)
	defer s.invalidateCatalogs(ctx, businessId, c.touched)

	result := &CommitResult{}
	for _, row := range staged {
		outcome, err := c.commitStagedRow(ctx, row)
		if err == nil {
			err = s.Staging.MarkCommitted(ctx, businessId, row.ID, s.now())
		}
		if err != nil {
			if !opts.ContinueOnError {
				err = fmt.Errorf("row %d: %w", row.RowIndex+1, err)
				config.LogError(s.logger(), moduleName, "CommitRun", "commitStagedRow", row.ID, err)
				return nil, err
			}
			result.Errors = append(result.Errors, RowError{Row: row.RowIndex + 1, Message: err.Error()})
			continue
		}
		result.add(outcome)
		result.Committed++
	}

	s.logCommit("import run committed", businessId, run.Kind, runId, result)
	return result, nil
}

func (s *Service) newCommitter(businessId string, kind models.EntityKind) *committer {
	return &committer{
		s:          s,
		businessId: businessId,
		plan:       PlanFor(kind),
		touched:    make(map[models.EntityKind]bool),
	}
}

func (c *committer) commitStagedRow(ctx context.Context, row *models.StagedRow) (rowOutcome, error) {
	fields := maps.Clone(row.Payload)
	if fields == nil {
		fields = models.RowPayload{}
	}
	if row.MatchedEntityId != nil {
		entity, err := c.s.Catalog.FindById(ctx, c.businessId, *row.MatchedEntityId)
		if err != nil {
			return rowOutcome{}, err
		}
		if entity == nil {
			return rowOutcome{}, fmt.Errorf("entity %d: %w", *row.MatchedEntityId, ErrConfirmedMatchMissing)
		}
		c.plan.SetName(fields, entity.Name)
	}
	return c.commitRow(ctx, fields)
}

func (c *committer) commitRow(ctx context.Context, fields models.RowPayload) (rowOutcome, error) {
	name, _ := c.plan.Name(fields)
	name = trimName(name)
	if name == "" {
		return rowOutcome{skipped: true}, nil
	}

	attrs := c.attributes(fields)
	entity, created, err := c.s.GetOrCreate(ctx, c.businessId, c.plan.Kind, name, attrs)
	if err != nil {
		return rowOutcome{}, err
	}
	c.touched[c.plan.Kind] = true

	outcome := rowOutcome{inserted: created}
	if !created {
		values := make(map[string]interface{}, len(attrs)+1)
		for column, value := range attrs {
			values[column] = value
		}
		values["updated_at"] = c.s.now()
		if err := c.s.Catalog.UpdateEntity(ctx, c.businessId, entity.ID, values); err != nil {
			return rowOutcome{}, fmt.Errorf("update %s %q: %w", c.plan.Kind, name, err)
		}
		outcome.updated = true
	}

	for _, link := range c.plan.Links {
		n, err := c.linkAll(ctx, entity.ID, link, fields.Text(link.Field))
		if err != nil {
			return rowOutcome{}, err
		}
		outcome.linked += n
	}
	return outcome, nil
}

// attributes reads every attribute of the plan; an absent field clears the column.
func (c *committer) attributes(fields models.RowPayload) map[string]string {
	attrs := make(map[string]string, len(c.plan.Attrs))
	for _, a := range c.plan.Attrs {
		v := strings.TrimSpace(fields.Text(a.Field))
		if a.Phone {
			v = utils.FormatPhoneNumber(v, c.s.PhoneRegion)
		}
		attrs[a.Column] = v
	}
	return attrs
}

func (c *committer) linkAll(ctx context.Context, ownerId int, link linkPlan, list string) (int, error) {
	linked := 0
	for _, targetName := range utils.SplitAndTrim(list) {
		target, _, err := c.s.GetOrCreate(ctx, c.businessId, link.TargetKind, targetName, nil)
		if err != nil {
			return linked, err
		}
		c.touched[link.TargetKind] = true

		row := map[string]interface{}{
			"business_id":     c.businessId,
			link.OwnerColumn:  ownerId,
			link.TargetColumn: target.ID,
		}
		added, err := c.s.LinkIfMissing(ctx, link.Table, row, []string{link.OwnerColumn, link.TargetColumn})
		if err != nil {
			return linked, err
		}
		if added {
			linked++
		}
	}
	return linked, nil
}

func (s *Service) logCommit(msg string, businessId string, kind models.EntityKind, runId uint, result *CommitResult) {
	fields := logrus.Fields{
		"module":      moduleName,
		"business_id": businessId,
		"kind":        kind,
		"inserted":    result.Inserted,
		"updated":     result.Updated,
		"linked":      result.Linked,
		"skipped":     result.Skipped,
		"errors":      len(result.Errors),
	}
	if runId > 0 {
		fields["run_id"] = runId
		fields["committed"] = result.Committed
	}
	s.logger().WithFields(fields).Info(msg)
}
