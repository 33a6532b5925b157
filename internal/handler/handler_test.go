package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"diary-service/internal/artifact"
	"diary-service/internal/handler"
	"diary-service/internal/loader"
	"diary-service/internal/pipeline"
)

const csvFixture = "From,Until,Ring,Category,Description,Shift,Duration,Ignore Entry,Internal Use Only\n" +
	"07:00,15:00,R1,Excavation,dig,Day Shift,45 mins,false,false\n" +
	"07:00,15:00,R1,Excavation,dig,Night Shift,30,false,false\n" + // dup on composite key
	"15:00,23:00,R1,Excavation,survey walls,Night Shift - extended,approx 30,false,false\n" +
	"15:00,23:00,R2,Survey,rare entry,Morning,unspecified,false,false\n" +
	"08:00,16:00,R2,Excavation,ignored entry,Day,10,true,false\n"

func newTestRouter(t *testing.T) (*gin.Engine, *artifact.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	store, err := artifact.NewStore(t.TempDir(), time.Minute, logger)
	require.NoError(t, err)

	h := handler.NewHandler(
		loader.New(logger),
		pipeline.NewCleaner(pipeline.Config{MinCategoryCount: 2}, logger),
		store,
		artifact.NewPublisher(artifact.TransportLink, "/api/v1/artifacts", store),
		logger,
	)

	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/process", h.Process)
	api.GET("/artifacts", h.ListArtifacts)
	api.GET("/artifacts/:name", h.GetArtifact)
	router.GET("/health", h.HealthCheck)
	return router, store
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func doJSON(t *testing.T, router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, url, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestProcessUpload(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartBody(t, "diary.csv", csvFixture)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		NumCleanedRows     int              `json:"num_cleaned_rows"`
		NumFilteredRows    int              `json:"num_filtered_rows"`
		NumPrunedRows      int              `json:"num_pruned_rows"`
		CategoriesRetained []string         `json:"categories_retained"`
		CategoriesRemoved  []string         `json:"categories_removed"`
		SampleCleaned      []map[string]any `json:"sample_cleaned"`
		SampleFiltered     []map[string]any `json:"sample_filtered"`
		CleanedArtifact    string           `json:"cleaned_artifact"`
		FilteredArtifact   string           `json:"filtered_artifact"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 2, resp.NumCleanedRows)
	assert.Equal(t, 1, resp.NumFilteredRows) // the composite-key duplicate
	assert.Equal(t, 1, resp.NumPrunedRows)   // the lone Survey row
	assert.Equal(t, []string{"Excavation"}, resp.CategoriesRetained)
	assert.Equal(t, []string{"Survey"}, resp.CategoriesRemoved)
	assert.Regexp(t, `^/api/v1/artifacts/cleaned-[0-9a-f-]+\.csv$`, resp.CleanedArtifact)
	assert.Regexp(t, `^/api/v1/artifacts/filtered-[0-9a-f-]+\.csv$`, resp.FilteredArtifact)

	require.NotEmpty(t, resp.SampleCleaned)
	first := resp.SampleCleaned[0]
	assert.Equal(t, "Day", first["Shift_Type"])
	assert.Equal(t, 45.0, first["Duration_min"])
	assert.Equal(t, false, first["Ignore Entry"])

	// The dedup loser keeps its own Shift value.
	require.Len(t, resp.SampleFiltered, 1)
	assert.Equal(t, "Night Shift", resp.SampleFiltered[0]["Shift"])
}

func TestProcessSource(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("local path source", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "diary.csv")
		require.NoError(t, os.WriteFile(path, []byte(csvFixture), 0o644))

		rec := doJSON(t, router, http.MethodPost, "/api/v1/process", gin.H{"source": path})
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("missing source field is a structured bad request", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/process", gin.H{})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp struct {
			Error struct {
				Kind    string `json:"kind"`
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "invalid_request", resp.Error.Kind)
		assert.NotEmpty(t, resp.Error.Message)
	})

	t.Run("undecodable upload is unprocessable and names the source", func(t *testing.T) {
		body, contentType := multipartBody(t, "mystery.bin", "\x00\x01\x02")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/process", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var resp struct {
			Error struct {
				Kind   string `json:"kind"`
				Source string `json:"source"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "unsupported_format", resp.Error.Kind)
		assert.Equal(t, "mystery.bin", resp.Error.Source)
	})

	t.Run("missing columns is a validation error", func(t *testing.T) {
		body, contentType := multipartBody(t, "partial.csv", "From,Until\n1,2\n")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/process", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp struct {
			MissingColumns []string `json:"missing_columns"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.MissingColumns, "Category")
		assert.Contains(t, resp.MissingColumns, "Ignore Entry")
	})
}

func TestArtifactEndpoints(t *testing.T) {
	router, store := newTestRouter(t)

	body, contentType := multipartBody(t, "diary.csv", csvFixture)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		CleanedArtifact string `json:"cleaned_artifact"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	artifactName := path.Base(resp.CleanedArtifact)

	t.Run("download returns csv with attachment headers", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, resp.CleanedArtifact, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), artifactName)
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	})

	t.Run("list shows the live artifacts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/artifacts", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Equal(t, 2, list.Count)
	})

	t.Run("expired artifact is not found", func(t *testing.T) {
		old := time.Now().Add(-2 * time.Minute)
		require.NoError(t, os.Chtimes(filepath.Join(store.Dir(), artifactName), old, old))

		rec := doJSON(t, router, http.MethodGet, resp.CleanedArtifact, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown artifact is not found", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/artifacts/ghost.csv", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
