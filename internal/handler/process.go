package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diary-service/internal/artifact"
	"diary-service/internal/jsonsafe"
	"diary-service/internal/loader"
	"diary-service/internal/models"
	"diary-service/internal/pipeline"
)

const sampleSize = 3

// Handler handles diary processing and artifact retrieval requests.
type Handler struct {
	loader    *loader.Loader
	cleaner   *pipeline.Cleaner
	store     *artifact.Store
	publisher artifact.Publisher
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(l *loader.Loader, c *pipeline.Cleaner, s *artifact.Store, p artifact.Publisher, logger *zap.Logger) *Handler {
	return &Handler{loader: l, cleaner: c, store: s, publisher: p, logger: logger}
}

// ProcessRequest is the JSON body alternative to a multipart upload.
type ProcessRequest struct {
	Source string `json:"source" binding:"required"`
}

// Process cleans a site diary export.
// POST /api/v1/process — multipart field "file", or JSON {"source": "..."}.
func (h *Handler) Process(c *gin.Context) {
	table, src, ok := h.loadTable(c)
	if !ok {
		return
	}

	result, err := h.cleaner.Run(table)
	if err != nil {
		h.respondPipelineError(c, src, err)
		return
	}

	cleanedHandle, err := h.publisher.Publish("cleaned", result.Cleaned)
	if err != nil {
		h.logger.Error("Failed to persist cleaned artifact", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist artifacts"})
		return
	}
	filteredHandle, err := h.publisher.Publish("filtered", result.DedupRemoved)
	if err != nil {
		h.logger.Error("Failed to persist filtered artifact", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist artifacts"})
		return
	}

	resp := gin.H{
		"num_cleaned_rows":    len(result.Cleaned),
		"num_filtered_rows":   len(result.DedupRemoved),
		"num_pruned_rows":     len(result.PrunedRows),
		"categories_retained": result.CategoriesRetained,
		"categories_removed":  result.CategoriesRemoved,
		"sample_cleaned":      payload(result.Cleaned, sampleSize),
		"sample_filtered":     payload(result.DedupRemoved, sampleSize),
		"cleaned_artifact":    cleanedHandle,
		"filtered_artifact":   filteredHandle,
	}
	if c.Query("full") == "true" {
		resp["cleaned"] = payload(result.Cleaned, len(result.Cleaned))
		resp["filtered"] = payload(result.DedupRemoved, len(result.DedupRemoved))
		resp["pruned"] = payload(result.PrunedRows, len(result.PrunedRows))
	}
	c.JSON(http.StatusOK, resp)
}

// loadTable resolves the request's source bytes: an uploaded file takes
// precedence, otherwise the JSON body must name a path or URL. On failure it
// writes the error response itself and returns ok=false.
func (h *Handler) loadTable(c *gin.Context) (*models.Table, string, bool) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errorBody("fetch", file.Filename, err.Error())})
			return nil, "", false
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errorBody("fetch", file.Filename, err.Error())})
			return nil, "", false
		}

		table, err := h.loader.Decode(data, file.Filename)
		if err != nil {
			h.respondPipelineError(c, file.Filename, err)
			return nil, "", false
		}
		return table, file.Filename, true
	}

	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": errorBody("invalid_request", "", err.Error()),
		})
		return nil, "", false
	}

	table, err := h.loader.Load(c.Request.Context(), req.Source)
	if err != nil {
		h.respondPipelineError(c, req.Source, err)
		return nil, "", false
	}
	return table, req.Source, true
}

func (h *Handler) respondPipelineError(c *gin.Context, source string, err error) {
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		h.logger.Warn("Load failed",
			zap.String("source", loadErr.Source),
			zap.String("kind", loadErr.Kind),
			zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": errorBody(loadErr.Kind, loadErr.Source, err.Error()),
		})
		return
	}

	var valErr *pipeline.ValidationError
	if errors.As(err, &valErr) {
		h.logger.Warn("Validation failed",
			zap.String("source", source),
			zap.Strings("missing_columns", valErr.MissingColumns))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           errorBody("missing_columns", source, err.Error()),
			"missing_columns": valErr.MissingColumns,
		})
		return
	}

	h.logger.Error("Processing failed", zap.String("source", source), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
}

func errorBody(kind, source, message string) gin.H {
	return gin.H{"kind": kind, "source": source, "message": message}
}

func payload(records models.RecordSet, n int) []map[string]any {
	if n > len(records) {
		n = len(records)
	}
	maps := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		maps[i] = records[i].Map()
	}
	return jsonsafe.Records(maps)
}
