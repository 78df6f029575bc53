package importer

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/mmdatafocus/catalog_backend/utils"
)

// GetOrCreate returns the entity of kind named name, inserting it with attrs
// when absent. A unique-key conflict on insert means another writer won the
// race, so the row is read again. At most ConflictRetries inserts are tried and
// every failed one is followed by a read.
func (s *Service) GetOrCreate(ctx context.Context, businessId string, kind models.EntityKind, name string, attrs map[string]string) (*models.CatalogEntity, bool, error) {
	retries := s.ConflictRetries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		existing, err := s.Catalog.FindByName(ctx, businessId, kind, name)
		if err != nil {
			return nil, false, fmt.Errorf("find %s %q: %w", kind, name, err)
		}
		if existing != nil {
			return existing, false, nil
		}
		if attempt == retries {
			break
		}

		entity := &models.CatalogEntity{BusinessId: businessId, Kind: kind, Name: name}
		for column, value := range attrs {
			entity.SetAttribute(column, value)
		}
		err = s.Catalog.InsertEntity(ctx, entity)
		if err == nil {
			return entity, true, nil
		}
		if !utils.IsDuplicateKeyErr(err) {
			return nil, false, fmt.Errorf("insert %s %q: %w", kind, name, err)
		}
		lastErr = err
	}
	return nil, false, fmt.Errorf("insert %s %q: conflict persisted after %d attempts: %w", kind, name, retries, lastErr)
}

// LinkIfMissing inserts row into table unless a row with the same values in
// uniqueColumns exists. It reports whether a new link was written; losing an
// insert race counts as already linked.
func (s *Service) LinkIfMissing(ctx context.Context, table string, row map[string]interface{}, uniqueColumns []string) (bool, error) {
	where := make(map[string]interface{}, len(uniqueColumns))
	for _, col := range uniqueColumns {
		v, ok := row[col]
		if !ok {
			return false, fmt.Errorf("link %s: missing column %s", table, col)
		}
		where[col] = v
	}

	exists, err := s.Links.LinkExists(ctx, table, where)
	if err != nil {
		return false, fmt.Errorf("check link %s: %w", table, err)
	}
	if exists {
		return false, nil
	}
	if err := s.Links.InsertLink(ctx, table, row); err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert link %s: %w", table, err)
	}
	return true, nil
}
