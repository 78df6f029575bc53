package importer

import (
	"context"
	"testing"

	"github.com/mmdatafocus/catalog_backend/matching"
	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_IndexedPathAgreesWithFullScan(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Commit(ctx, testBusiness, models.EntityKindBrand,
		rows(row("brand_name", "Acme Spirits"), row("brand_name", "Glenlivet Company"), row("brand_name", "Macallan")),
		CommitOptions{})
	require.NoError(t, err)

	in := rows(
		row("brand_name", "Acme Spirit"),
		row("brand_name", "The Glenlivet Co"),
		row("brand_name", "Macalan"),
		row("brand_name", "Zyx Corp"),
	)
	scan, err := svc.Validate(ctx, testBusiness, models.EntityKindBrand, in)
	require.NoError(t, err)

	svc.IndexMinCatalog = 1
	svc.IndexFallback = -1
	indexed, err := svc.Validate(ctx, testBusiness, models.EntityKindBrand, in)
	require.NoError(t, err)

	require.Len(t, indexed.Rows, len(scan.Rows))
	for i := range scan.Rows {
		assert.Equal(t, scan.Rows[i].Verdict, indexed.Rows[i].Verdict, "row %d", i+1)
		assert.Equal(t, scan.Rows[i].Score, indexed.Rows[i].Score, "row %d", i+1)
	}
	assert.Equal(t, matching.VerdictFuzzy, scan.Rows[2].Verdict)
	assert.Equal(t, "Macallan", scan.Rows[2].Match.Name)
}

func TestValidate_NonStringNameIsInvalid(t *testing.T) {
	svc, _, _ := newTestService(t)

	report, err := svc.Validate(context.Background(), testBusiness, models.EntityKindState,
		rowsFromMaps([]map[string]interface{}{{"state_name": 42.0}, {"state_name": "  "}}))
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, matching.VerdictInvalid, report.Rows[0].Verdict)
	assert.Equal(t, "missing state_name", report.Rows[0].Message)
	assert.Equal(t, matching.VerdictInvalid, report.Rows[1].Verdict)
	assert.Equal(t, 2, report.Totals.Errors)
	assert.Empty(t, report.Catalog)
}
