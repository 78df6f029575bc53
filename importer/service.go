package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/catalog_backend/config"
	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/mmdatafocus/catalog_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("catalog_backend/importer")

const moduleName = "importer"

// Service wires the stores to the matching, staging and commit logic. Every
// method runs rows strictly in order on the caller's goroutine.
type Service struct {
	Catalog CatalogAccessor
	Staging StagingStore
	Runs    RunStore
	Links   LinkAccessor
	Events  EventPublisher
	Locker  RunLocker

	Threshold       float64
	PageSize        int
	IndexMinCatalog int
	IndexFallback   int
	ConflictRetries int
	PhoneRegion     string
	ArchiveUploads  bool
	Upload          ObjectUploader

	Logger *logrus.Logger
	Now    func() time.Time
}

// NewService builds a Service on db with settings from the environment.
func NewService(db *gorm.DB) *Service {
	store := NewGormStore(db)
	return &Service{
		Catalog:         store,
		Staging:         store,
		Runs:            store,
		Links:           store,
		Events:          NewEventPublisher(),
		Locker:          redisRunLocker{},
		Threshold:       config.MatchThreshold(),
		PageSize:        config.CatalogPageSize(),
		IndexMinCatalog: config.MatchIndexMinCatalog(),
		IndexFallback:   config.MatchIndexFallback(),
		ConflictRetries: config.CommitConflictRetries(),
		PhoneRegion:     config.PhoneCountryCode(),
		ArchiveUploads:  config.ArchiveUploads() && utils.GetStorageProvider() == utils.StorageProviderGCS,
		Logger:          config.GetLogger(),
		Now:             time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) logger() *logrus.Logger {
	if s.Logger == nil {
		return config.GetLogger()
	}
	return s.Logger
}

// LoadCatalog reads every entity of kind page by page. A redis snapshot is
// used when CATALOG_CACHE_TTL_SECONDS is set. Any read error fails the call:
// the classifier needs the whole catalog to find the global best.
func (s *Service) LoadCatalog(ctx context.Context, businessId string, kind models.EntityKind) ([]*models.CatalogEntity, error) {
	cached, err := utils.RetrieveRedisList[models.CatalogEntity](ctx, businessId, string(kind))
	if err != nil {
		config.LogError(s.logger(), moduleName, "LoadCatalog", "RetrieveRedisList", kind, err)
	} else if cached != nil {
		return cached, nil
	}

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = config.DefaultCatalogPageSize
	}
	catalog := make([]*models.CatalogEntity, 0)
	afterId := 0
	for {
		page, err := s.Catalog.PageEntities(ctx, businessId, kind, afterId, pageSize)
		if err != nil {
			return nil, fmt.Errorf("load %s catalog: %w", kind, err)
		}
		catalog = append(catalog, page...)
		if len(page) < pageSize {
			break
		}
		afterId = page[len(page)-1].ID
	}

	if err := utils.StoreRedisList(ctx, catalog, businessId, string(kind)); err != nil {
		config.LogError(s.logger(), moduleName, "LoadCatalog", "StoreRedisList", kind, err)
	}
	return catalog, nil
}

// invalidateCatalogs drops the redis snapshot of every kind a commit touched.
func (s *Service) invalidateCatalogs(ctx context.Context, businessId string, kinds map[models.EntityKind]bool) {
	if len(kinds) == 0 {
		return
	}
	scopes := make([]string, 0, len(kinds))
	for k := range kinds {
		scopes = append(scopes, string(k))
	}
	// the request context may already be cancelled after an aborted commit
	if err := utils.RemoveRedisList[models.CatalogEntity](context.WithoutCancel(ctx), businessId, scopes...); err != nil {
		config.LogError(s.logger(), moduleName, "invalidateCatalogs", "RemoveRedisList", scopes, err)
	}
}

// lockRun takes the single-writer lock for a run.
func (s *Service) lockRun(ctx context.Context, runId uint) (func(), error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	release, err := s.Locker.LockRun(ctx, runId)
	if err != nil {
		if errors.Is(err, utils.ErrLockNotObtained) {
			return nil, ErrRunLocked
		}
		return nil, fmt.Errorf("lock import run %d: %w", runId, err)
	}
	return release, nil
}
