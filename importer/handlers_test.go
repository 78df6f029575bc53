package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/mmdatafocus/catalog_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService(t)
	return routerFor(svc), svc
}

func routerFor(svc *Service) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if biz := c.GetHeader("X-Business-Id"); biz != "" {
			c.Request = c.Request.WithContext(utils.SetBusinessIdInContext(c.Request.Context(), biz))
		}
		c.Next()
	})
	RegisterRoutes(r, func() *Service { return svc })
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Business-Id", testBusiness)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHandlers_RejectBadInputBeforeStoreAccess(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/imports/brand/validate", bytes.NewBufferString(`{"rows":[{"brand_name":"A"}]}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/imports/widget/validate", map[string]interface{}{"rows": []map[string]string{{"name": "A"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/imports/brand/validate", map[string]interface{}{"rows": []map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "invalid request", body["error"])
	assert.Contains(t, body["fields"], "Rows")

	w = doJSON(t, r, http.MethodPost, "/imports/brand/stage", map[string]interface{}{
		"rows":              []map[string]string{{"brand_name": "A"}},
		"first_batch":       true,
		"confirmed_matches": map[string]int{"first": 1},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/imports/brand/stage", map[string]interface{}{"rows": []map[string]string{{"brand_name": "A"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/imports/brand/staged/approve", map[string]interface{}{"approved": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/imports/brand/staged/approve", map[string]interface{}{"ids": []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/imports/brand/staged?status=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/imports/runs/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_ValidateReportsVerdictsAndTotals(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/imports/brand/commit", map[string]interface{}{
		"rows": []map[string]string{{"brand_name": "Acme Spirits"}, {"brand_name": "Glenlivet Company"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/imports/brand/validate", map[string]interface{}{
		"rows": []map[string]interface{}{
			{"brand_name": "Acme Spirits"},
			{"brand_name": "Acme Spirit"},
			{"brand_name": "The Glenlivet Co"},
			{"brand_name": "Zyx Corp"},
			{"brand_url": "https://nameless.example"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode[ValidationReport](t, w)
	assert.Equal(t, ValidationTotals{Total: 5, Exact: 1, FirstToken: 1, Fuzzy: 1, New: 1, Errors: 1}, report.Totals)
	assert.Len(t, report.Catalog, 2)

	assert.Equal(t, "exact", string(report.Rows[0].Verdict))
	assert.Equal(t, "update", string(report.Rows[0].SuggestedAction))
	assert.Equal(t, "fuzzy", string(report.Rows[1].Verdict))
	require.NotNil(t, report.Rows[1].Match)
	assert.Equal(t, "Acme Spirits", report.Rows[1].Match.Name)
	assert.Equal(t, "first-token", string(report.Rows[2].Verdict))
	require.NotNil(t, report.Rows[2].Score)
	assert.Equal(t, 0.95, *report.Rows[2].Score)
	assert.Equal(t, "new", string(report.Rows[3].Verdict))
	assert.Nil(t, report.Rows[3].Match)
	assert.Equal(t, "invalid", string(report.Rows[4].Verdict))
	assert.Equal(t, 5, report.Rows[4].Row)
	assert.Contains(t, report.Rows[4].Message, "brand_name")
}

func TestHandlers_StageApproveCommitRun(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/imports/brand/stage", map[string]interface{}{
		"rows":        []map[string]string{{"brand_name": "Acme", "brand_categories": "spirits,wine"}, {"brand_name": ""}},
		"file_name":   "brands.csv",
		"first_batch": true,
		"last_batch":  true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	staged := decode[StageResult](t, w)
	assert.Equal(t, 1, staged.Processed)
	assert.Equal(t, 1, staged.Skipped)
	assert.Equal(t, models.ImportRunStatusCompleted, staged.RunStatus)

	w = doJSON(t, r, http.MethodGet, "/imports/brand/staged?status=pending&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	conn := decode[models.StagedRowsConnection](t, w)
	require.Len(t, conn.Edges, 1)
	id := conn.Edges[0].Node.ID

	w = doJSON(t, r, http.MethodPost, "/imports/brand/staged/approve", map[string]interface{}{"id": id, "approved": true, "run_id": staged.RunId})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode[ApproveResult](t, w).Updated)

	w = doJSON(t, r, http.MethodPost, "/imports/runs/"+itoa(staged.RunId)+"/commit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	committed := decode[CommitResult](t, w)
	assert.Equal(t, 1, committed.Inserted)
	assert.Equal(t, 2, committed.Linked)
	assert.Equal(t, 1, committed.Committed)

	w = doJSON(t, r, http.MethodGet, "/imports/runs/"+itoa(staged.RunId), nil)
	require.Equal(t, http.StatusOK, w.Code)
	run := decode[models.ImportRun](t, w)
	assert.Equal(t, "brands.csv", run.FileName)

	w = doJSON(t, r, http.MethodGet, "/imports/runs?kind=brand", nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[models.ImportRunsConnection](t, w)
	assert.Len(t, runs.Edges, 1)
}

func TestHandlers_RunStateConflicts(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/imports/runs/77", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/imports/brand/stage", map[string]interface{}{
		"rows": []map[string]string{{"brand_name": "Acme"}}, "first_batch": true, "last_batch": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	runId := decode[StageResult](t, w).RunId

	w = doJSON(t, r, http.MethodPost, "/imports/brand/stage", map[string]interface{}{
		"rows": []map[string]string{{"brand_name": "Late"}}, "run_id": runId,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/imports/runs/"+itoa(runId)+"/fail", map[string]string{"reason": "x"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandlers_FailRunWithoutBody(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/imports/supplier/stage", map[string]interface{}{
		"rows": []map[string]string{{"supplier_name": "Acme Supply"}}, "first_batch": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	runId := decode[StageResult](t, w).RunId

	req := httptest.NewRequest(http.MethodPost, "/imports/runs/"+itoa(runId)+"/fail", nil)
	req.Header.Set("X-Business-Id", testBusiness)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.ImportRunStatusFailed, decode[models.ImportRun](t, rec).Status)
}

func TestHandlers_ParseUpload(t *testing.T) {
	r, _ := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "brands.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Brand Name,Brand URL\nAcme,https://acme.example\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/imports/brand/parse", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Business-Id", testBusiness)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	parsed := decode[ParseResult](t, w)
	assert.Equal(t, []string{"brand_name", "brand_url"}, parsed.Headers)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "Acme", parsed.Rows[0]["brand_name"])
	assert.Empty(t, parsed.SourceObjectKey)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func TestHandlers_CommitRunWithDeletedConfirmedMatchIsServerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, db, _ := newTestService(t)
	r := routerFor(svc)
	ctx := context.Background()

	_, err := svc.Commit(ctx, testBusiness, models.EntityKindBrand, rows(row("brand_name", "Glenlivet Company")), CommitOptions{})
	require.NoError(t, err)
	target := mustEntity(t, db, models.EntityKindBrand, "Glenlivet Company")

	staged, err := svc.Stage(ctx, testBusiness, models.EntityKindBrand, StageBatch{
		Rows:             rows(row("brand_name", "The Glenlivet Co")),
		ConfirmedMatches: map[int]int{0: target.ID},
		FirstBatch:       true,
		LastBatch:        true,
	})
	require.NoError(t, err)
	require.Empty(t, staged.Errors)
	var stagedRows []models.StagedRow
	require.NoError(t, db.Find(&stagedRows).Error)
	require.Len(t, stagedRows, 1)
	_, err = svc.Approve(ctx, testBusiness, models.EntityKindBrand, []string{stagedRows[0].ID}, nil, true)
	require.NoError(t, err)
	require.NoError(t, db.Delete(&models.CatalogEntity{}, target.ID).Error)

	w := doJSON(t, r, http.MethodPost, "/imports/runs/"+itoa(staged.RunId)+"/commit", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), ErrConfirmedMatchMissing.Error())

	_, err = svc.CommitRun(ctx, testBusiness, staged.RunId, CommitOptions{})
	assert.ErrorIs(t, err, ErrConfirmedMatchMissing)
}
