package importer

import (
	"context"
	"testing"
	"time"

	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/mmdatafocus/catalog_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStore_CatalogLookups(t *testing.T) {
	store := NewGormStore(newTestDB(t))
	ctx := context.Background()

	found, err := store.FindByName(ctx, testBusiness, models.EntityKindBrand, "Acme")
	require.NoError(t, err)
	assert.Nil(t, found)

	acme := &models.CatalogEntity{BusinessId: testBusiness, Kind: models.EntityKindBrand, Name: "Acme"}
	require.NoError(t, store.InsertEntity(ctx, acme))
	require.NotZero(t, acme.ID)

	dup := &models.CatalogEntity{BusinessId: testBusiness, Kind: models.EntityKindBrand, Name: "Acme"}
	err = store.InsertEntity(ctx, dup)
	require.Error(t, err)
	assert.True(t, utils.IsDuplicateKeyErr(err))

	// same name, other kind or other tenant, is a different entity
	require.NoError(t, store.InsertEntity(ctx, &models.CatalogEntity{BusinessId: testBusiness, Kind: models.EntityKindSupplier, Name: "Acme"}))
	require.NoError(t, store.InsertEntity(ctx, &models.CatalogEntity{BusinessId: "biz-2", Kind: models.EntityKindBrand, Name: "Acme"}))

	found, err = store.FindByName(ctx, testBusiness, models.EntityKindBrand, "Acme")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, acme.ID, found.ID)

	byId, err := store.FindById(ctx, "biz-2", acme.ID)
	require.NoError(t, err)
	assert.Nil(t, byId)

	require.NoError(t, store.UpdateEntity(ctx, testBusiness, acme.ID, map[string]interface{}{"url": "https://acme.example"}))
	byId, err = store.FindById(ctx, testBusiness, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example", byId.Url)
}

func TestGormStore_PageEntitiesWalksKindInIdOrder(t *testing.T) {
	store := NewGormStore(newTestDB(t))
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, store.InsertEntity(ctx, &models.CatalogEntity{BusinessId: testBusiness, Kind: models.EntityKindState, Name: name}))
	}
	require.NoError(t, store.InsertEntity(ctx, &models.CatalogEntity{BusinessId: testBusiness, Kind: models.EntityKindBrand, Name: "X"}))

	page, err := store.PageEntities(ctx, testBusiness, models.EntityKindState, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "A", page[0].Name)

	page, err = store.PageEntities(ctx, testBusiness, models.EntityKindState, page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "C", page[0].Name)
}

func TestService_LoadCatalogReadsEveryPage(t *testing.T) {
	svc, db, _ := newTestService(t)
	store := NewGormStore(db)
	ctx := context.Background()
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		require.NoError(t, store.InsertEntity(ctx, &models.CatalogEntity{BusinessId: testBusiness, Kind: models.EntityKindBrand, Name: name}))
	}

	catalog, err := svc.LoadCatalog(ctx, testBusiness, models.EntityKindBrand)
	require.NoError(t, err)
	assert.Len(t, catalog, 5)
}

func TestGormStore_RunLifecycle(t *testing.T) {
	store := NewGormStore(newTestDB(t))
	ctx := context.Background()

	_, err := store.GetRun(ctx, testBusiness, 1)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, store.AddBatch(ctx, testBusiness, 1, models.ImportRunTotals{}), ErrRunNotFound)

	run := &models.ImportRun{BusinessId: testBusiness, Kind: models.EntityKindBrand, Status: models.ImportRunStatusInProgress}
	require.NoError(t, store.CreateRun(ctx, run))

	require.NoError(t, store.AddBatch(ctx, testBusiness, run.ID, models.ImportRunTotals{Processed: 2, Skipped: 1}))
	require.NoError(t, store.AddBatch(ctx, testBusiness, run.ID, models.ImportRunTotals{Processed: 3, ErrorCount: 1}))

	got, err := store.GetRun(ctx, testBusiness, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportRunTotals{Processed: 5, Skipped: 1, ErrorCount: 1}, got.Totals())
	assert.Equal(t, 2, got.BatchCount)

	finished := testEpoch.Add(time.Hour)
	require.NoError(t, store.CompleteRun(ctx, testBusiness, run.ID, got.Totals(), finished))
	got, err = store.GetRun(ctx, testBusiness, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportRunStatusCompleted, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, finished.Equal(*got.FinishedAt))

	assert.ErrorIs(t, store.AddBatch(ctx, testBusiness, run.ID, models.ImportRunTotals{Processed: 1}), ErrRunNotInProgress)
	assert.ErrorIs(t, store.FailRun(ctx, testBusiness, run.ID, "late", finished), ErrRunNotInProgress)
}

func TestGormStore_ListRunsNewestFirst(t *testing.T) {
	store := NewGormStore(newTestDB(t))
	ctx := context.Background()
	for _, kind := range []models.EntityKind{models.EntityKindBrand, models.EntityKindSupplier, models.EntityKindBrand} {
		require.NoError(t, store.CreateRun(ctx, &models.ImportRun{BusinessId: testBusiness, Kind: kind, Status: models.ImportRunStatusInProgress}))
	}

	conn, err := store.ListRuns(ctx, testBusiness, "", 2, nil)
	require.NoError(t, err)
	require.Len(t, conn.Edges, 2)
	assert.EqualValues(t, 3, conn.Edges[0].Node.ID)
	assert.True(t, *conn.PageInfo.HasNextPage)

	next, err := store.ListRuns(ctx, testBusiness, "", 2, &conn.PageInfo.EndCursor)
	require.NoError(t, err)
	require.Len(t, next.Edges, 1)
	assert.EqualValues(t, 1, next.Edges[0].Node.ID)
	assert.False(t, *next.PageInfo.HasNextPage)

	brands, err := store.ListRuns(ctx, testBusiness, models.EntityKindBrand, 10, nil)
	require.NoError(t, err)
	assert.Len(t, brands.Edges, 2)
}

func TestGormStore_StagedRowsPageByCreatedAt(t *testing.T) {
	store := NewGormStore(newTestDB(t))
	ctx := context.Background()
	ids := []string{"c0000000-0000-0000-0000-000000000000", "a0000000-0000-0000-0000-000000000000", "b0000000-0000-0000-0000-000000000000"}
	for i, id := range ids {
		require.NoError(t, store.InsertStagedRow(ctx, &models.StagedRow{
			ID: id, BusinessId: testBusiness, Kind: models.EntityKindBrand, ImportRunId: 1, RowIndex: i,
			Payload: models.RowPayload{"brand_name": id},
		}))
	}

	filter := StagedRowFilter{BusinessId: testBusiness, Kind: models.EntityKindBrand}
	page, err := store.ListStagedRows(ctx, filter, 2, nil)
	require.NoError(t, err)
	require.Len(t, page.Edges, 2)
	assert.Equal(t, ids[0], page.Edges[0].Node.ID)
	assert.Equal(t, ids[1], page.Edges[1].Node.ID)
	assert.True(t, *page.PageInfo.HasNextPage)

	rest, err := store.ListStagedRows(ctx, filter, 2, &page.PageInfo.EndCursor)
	require.NoError(t, err)
	require.Len(t, rest.Edges, 1)
	assert.Equal(t, ids[2], rest.Edges[0].Node.ID)
	assert.Equal(t, ids[2], rest.Edges[0].Node.Payload["brand_name"])
}

func TestGormStore_MarkCommittedRemovesFromCommittable(t *testing.T) {
	store := NewGormStore(newTestDB(t))
	ctx := context.Background()
	for i, id := range []string{"r1", "r2"} {
		require.NoError(t, store.InsertStagedRow(ctx, &models.StagedRow{
			ID: id, BusinessId: testBusiness, Kind: models.EntityKindBrand, ImportRunId: 7, RowIndex: 1 - i, Approved: utils.NewTrue(),
		}))
	}

	committable, err := store.ListCommittable(ctx, testBusiness, 7)
	require.NoError(t, err)
	require.Len(t, committable, 2)
	assert.Equal(t, "r2", committable[0].ID)

	require.NoError(t, store.MarkCommitted(ctx, testBusiness, "r2", testEpoch))
	committable, err = store.ListCommittable(ctx, testBusiness, 7)
	require.NoError(t, err)
	require.Len(t, committable, 1)
	assert.Equal(t, "r1", committable[0].ID)
}

func TestGormStore_UnknownLinkTable(t *testing.T) {
	store := NewGormStore(newTestDB(t))
	_, err := store.LinkExists(context.Background(), "brand_widgets", map[string]interface{}{"brand_id": 1})
	assert.Error(t, err)
	assert.Error(t, store.InsertLink(context.Background(), "brand_widgets", map[string]interface{}{"brand_id": 1}))
}
