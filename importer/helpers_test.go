package importer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testBusiness = "biz-1"

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestDB opens a private in-memory database. The clock advances one
// second per call so created_at ordering is deterministic.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	var tick int64
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return testEpoch.Add(time.Duration(atomic.AddInt64(&tick, 1)) * time.Second)
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to ":memory:" is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db := newTestDB(t)
	svc := NewService(db)
	events := &recordingPublisher{}
	svc.Events = events
	svc.Locker = nil
	svc.Threshold = 0.75
	svc.PageSize = 2
	svc.IndexMinCatalog = 0
	svc.ConflictRetries = 3
	svc.PhoneRegion = "MM"
	svc.ArchiveUploads = false
	svc.Now = func() time.Time { return testEpoch }
	return svc, db, events
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []RunEvent
}

func (p *recordingPublisher) PublishRunEvent(_ context.Context, event RunEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Events() []RunEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RunEvent(nil), p.events...)
}

func rows(fields ...map[string]interface{}) []IncomingRow {
	return rowsFromMaps(fields)
}

func row(kv ...string) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func mustEntity(t *testing.T, db *gorm.DB, kind models.EntityKind, name string) *models.CatalogEntity {
	t.Helper()
	var e models.CatalogEntity
	require.NoError(t, db.Where("business_id = ? AND kind = ? AND name = ?", testBusiness, kind, name).Take(&e).Error)
	return &e
}

func uintPtr(v uint) *uint { return &v }
