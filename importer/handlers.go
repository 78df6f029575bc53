package importer

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/catalog_backend/config"
	"github.com/mmdatafocus/catalog_backend/models"
	"github.com/mmdatafocus/catalog_backend/utils"
)

// ServiceFactory builds the service per request, once the database is up.
type ServiceFactory func() *Service

// DefaultServiceFactory binds a Service to the shared database handle.
func DefaultServiceFactory() *Service {
	return NewService(config.GetDB())
}

// RegisterRoutes mounts every import endpoint under /imports.
func RegisterRoutes(r gin.IRouter, newService ServiceFactory) {
	g := r.Group("/imports")

	// static segments before :kind
	g.GET("/runs", ListRunsHandler(newService))
	g.GET("/runs/:id", GetRunHandler(newService))
	g.POST("/runs/:id/fail", FailRunHandler(newService))
	g.POST("/runs/:id/commit", CommitRunHandler(newService))

	g.POST("/:kind/parse", ParseHandler(newService))
	g.POST("/:kind/validate", ValidateHandler(newService))
	g.POST("/:kind/stage", StageHandler(newService))
	g.GET("/:kind/staged", ListStagedHandler(newService))
	g.POST("/:kind/staged/approve", ApproveHandler(newService))
	g.POST("/:kind/commit", CommitHandler(newService))
}

func ValidateHandler(newService ServiceFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, kind, ok := tenantAndKind(c)
		if !ok {
			return
		}
		var req ValidateRequest
		if !bindJSON(c, &req) {
			return
		}

		report, err := newService().Validate(c.Request.Context(), businessId, kind, rowsFromMaps(req.Rows))
		if err != nil {
			respondError(c, "ValidateHandler", err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func StageHandler(newService ServiceFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, kind, ok := tenantAndKind(c)
		if !ok {
			return
		}
		var req StageRequest
		if !bindJSON(c, &req) {
			return
		}
		batch, err := parseStageRequest(req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := newService().Stage(c.Request.Context(), businessId, kind, *batch)
		if err != nil {
			respondError(c, "StageHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// parseStageRequest converts the JSON row-index keys of confirmed_matches.
func parseStageRequest(req StageRequest) (*StageBatch, error) {
	matches := make(map[int]int, len(req.ConfirmedMatches))
	for key, entityId := range req.ConfirmedMatches {
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || idx < 0 {
			return nil, errors.New("confirmed_matches keys must be row indexes")
		}
		if entityId <= 0 {
			return nil, errors.New("confirmed_matches values must be entity ids")
		}
		matches[idx] = entityId
	}
	if req.RunId == nil && !req.FirstBatch {
		return nil, ErrRunIdRequired
	}
	return &StageBatch{
		Rows:             rowsFromMaps(req.Rows),
		ConfirmedMatches: matches,
		FileName:         strings.TrimSpace(req.FileName),
		FirstBatch:       req.FirstBatch,
		LastBatch:        req.LastBatch,
		RunId:            req.RunId,
		Totals:           req.Totals,
		SourceObjectKey:  req.SourceObjectKey,
	}, nil
}

func ListStagedHandler(newService ServiceFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, kind, ok := tenantAndKind(c)
		if !ok {
			return
		}
		status, err := models.ParseApprovalFilter(c.Query("status"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		runId, ok := optionalRunIdQuery(c)
		if !ok {
			return
		}
		limit, ok := limitQuery(c)
		if !ok {
			return
		}

		filter := StagedRowFilter{BusinessId: businessId, Kind: kind, Status: status, RunId: runId}
		conn, err := newService().ListStaged(c.Request.Context(), filter, limit, afterQuery(c))
		if err != nil {
			respondError(c, "ListStagedHandler", err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func ApproveHandler(newService ServiceFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, kind, ok := tenantAndKind(c)
		if !ok {
			return
		}
		var req ApproveRequest
		if !bindJSON(c, &req) {
			return
		}
		ids := append([]string(nil), req.Ids...)
		if id := strings.TrimSpace(req.Id); id != "" {
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ids or id is required"})
			return
		}

		updated, err := newService().Approve(c.Request.Context(), businessId, kind, ids, req.RunId, *req.Approved)
		if err != nil {
			respondError(c, "ApproveHandler", err)
			return
		}
		c.JSON(http.StatusOK, ApproveResult{Updated: updated})
	}
}

func CommitHandler(newService ServiceFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, kind, ok := tenantAndKind(c)
		if !ok {
			return
		}
		var req CommitRequest
		if !bindJSON(c, &req) {
			return
		}

		opts := CommitOptions{ContinueOnError: req.ContinueOnError}
		result, err := newService().Commit(c.Request.Context(), businessId, kind, rowsFromMaps(req.Rows), opts)
		if err != nil {
			respondError(c, "CommitHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func ListRunsHandler(newService ServiceFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, ok := tenant(c)
		if !ok {
			return
		}
		var kind models.EntityKind
		if v := c.Query("kind"); v != "" {
			parsed, err := models.ParseEntityKind(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			kind = parsed
		}
		limit, ok := limitQuery(c)
		if !ok {
			return
		}

		conn, err := newService().ListRuns(c.Request.Context(), businessId, kind, limit, afterQuery(c))
		if err != nil {
			respondError(c, "ListRunsHandler", err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func GetRunHandler(newService ServiceFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, runId, ok := tenantAndRunId(c)
		if !ok {
			return
		}
		run, err := newService().GetRun(c.Request.Context(), businessId, runId)
		if err != nil {
			respondError(c, "GetRunHandler", err)
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

func FailRunHandler(newService ServiceFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, runId, ok := tenantAndRunId(c)
		if !ok {
			return
		}
		var req FailRunRequest
		if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
			return
		}

		run, err := newService().FailRun(c.Request.Context(), businessId, runId, strings.TrimSpace(req.Reason))
		if err != nil {
			respondError(c, "FailRunHandler", err)
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

func CommitRunHandler(newService ServiceFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, runId, ok := tenantAndRunId(c)
		if !ok {
			return
		}
		var req CommitRunRequest
		if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
			return
		}

		opts := CommitOptions{ContinueOnError: req.ContinueOnError}
		result, err := newService().CommitRun(c.Request.Context(), businessId, runId, opts)
		if err != nil {
			respondError(c, "CommitRunHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func ParseHandler(newService ServiceFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId, kind, ok := tenantAndKind(c)
		if !ok {
			return
		}
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		if fh.Size > MaxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file"})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, MaxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file"})
			return
		}

		result, err := newService().ParseUpload(c.Request.Context(), businessId, kind, fh.Filename, data)
		if err != nil {
			if errors.Is(err, ErrUnsupportedFile) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			respondError(c, "ParseHandler", err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

/* request helpers */

func tenant(c *gin.Context) (string, bool) {
	businessId, ok := utils.GetBusinessIdFromContext(c.Request.Context())
	if !ok || businessId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "business id is required"})
		return "", false
	}
	return businessId, true
}

func tenantAndKind(c *gin.Context) (string, models.EntityKind, bool) {
	businessId, ok := tenant(c)
	if !ok {
		return "", "", false
	}
	kind, err := models.ParseEntityKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", "", false
	}
	return businessId, kind, true
}

func tenantAndRunId(c *gin.Context) (string, uint, bool) {
	businessId, ok := tenant(c)
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return "", 0, false
	}
	return businessId, uint(id), true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if fields := utils.ProcessValidationErrors(err); len(fields) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": fields})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

func optionalRunIdQuery(c *gin.Context) (*uint, bool) {
	v := strings.TrimSpace(c.Query("run_id"))
	if v == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run_id"})
		return nil, false
	}
	runId := uint(id)
	return &runId, true
}

func limitQuery(c *gin.Context) (int, bool) {
	v := strings.TrimSpace(c.Query("limit"))
	if v == "" {
		return DefaultListLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, false
	}
	return n, true
}

func afterQuery(c *gin.Context) *string {
	if v := strings.TrimSpace(c.Query("after")); v != "" {
		return &v
	}
	return nil
}

// respondError maps service errors onto status codes and logs the 5xx ones.
func respondError(c *gin.Context, funcName string, err error) {
	switch {
	case errors.Is(err, ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRunNotInProgress), errors.Is(err, ErrRunLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRunIdRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		businessId, _ := utils.GetBusinessIdFromContext(c.Request.Context())
		config.LogError(config.GetLogger(), moduleName, funcName, c.FullPath(), businessId, err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
