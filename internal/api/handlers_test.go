package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/xuri/excelize/v2"

	"github.com/io-crosscheck/backend/internal/models"
	"github.com/io-crosscheck/backend/internal/report"
	"github.com/io-crosscheck/backend/internal/session"
	"github.com/io-crosscheck/backend/internal/storage"
	"github.com/io-crosscheck/backend/internal/testutil"
)

const apiTestPLCCSV = `TYPE,SCOPE,NAME,DESCRIPTION,DATATYPE,SPECIFIER
TAG,,Rack0:I,"","AB:1756_IF8:I:0",""
COMMENT,,Rack0:I,"HLSTL5A","","Rack0:I.DATA[5].7"
TAG,,E300_P621:I,"","AB:E300:I:0",""
`

const apiTestIOListCSV = `Panel,Rack,Group,Slot,Channel,PLC IO Address,IO Tag,Device Tag
CP-1,0,,5,7,Rack0:I.Data[5].7,HLSTL5A,HLSTL5A
CP-1,,,,,,P621_RUN,P621
CP-2,5,,1,1,Rack5:I.Data[1].1,Spare,
`

const apiTestL5X = `<?xml version="1.0" encoding="UTF-8"?>
<RSLogix5000Content SchemaRevision="1.0" TargetName="Plant1">
  <Controller Name="Plant1">
    <Tags>
      <Tag Name="MSG_To_Deod" TagType="Alias" AliasFor="N100_W[4]"/>
      <Tag Name="Deod_Level" TagType="Alias" AliasFor="Deod_Data.Level"/>
    </Tags>
  </Controller>
</RSLogix5000Content>`

type apiFixture struct {
	e *echo.Echo
	h *Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	h := NewHandler(store, session.NewManagerWithTempDir(t.TempDir()), "test")
	RegisterRoutes(e, h)

	return &apiFixture{e: e, h: h}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) upload(t *testing.T, filename, content string) *models.FileInfo {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var info models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	return &info
}

func (f *apiFixture) startRun(t *testing.T) string {
	t.Helper()

	plc := f.upload(t, "plc.csv", apiTestPLCCSV)
	require.Equal(t, models.FileKindPLCCSV, plc.Kind)
	iolist := f.upload(t, "iolist.csv", apiTestIOListCSV)
	require.Equal(t, models.FileKindIOListCSV, iolist.Kind)

	rec := f.do(t, http.MethodPost, "/api/crosscheck", map[string]string{
		"plcFileId":    plc.ID,
		"ioListFileId": iolist.ID,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var run models.CrosscheckRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	require.NotEmpty(t, run.ID)
	return run.ID
}

func (f *apiFixture) waitForRun(t *testing.T, runID string) models.CrosscheckRun {
	t.Helper()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+runID+"/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var run models.CrosscheckRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		if run.Status == models.RunStatusComplete || run.Status == models.RunStatusError {
			return run
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("run did not finish in time")
	return models.CrosscheckRun{}
}

func TestHandleHealth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
	require.Contains(t, rec.Body.String(), `"version":"test"`)
}

func TestFileEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	info := f.upload(t, "plc.csv", apiTestPLCCSV)

	t.Run("get", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/files/"+info.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), info.ID)
	})

	t.Run("recent", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/files/recent", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var files []*models.FileInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
		require.Len(t, files, 1)
	})

	t.Run("rename", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/api/files/"+info.ID, map[string]string{"name": "export.csv"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "export.csv")

		rec = f.do(t, http.MethodPut, "/api/files/"+info.ID, map[string]string{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	})

	t.Run("delete", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, "/api/files/"+info.ID, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/files/"+info.ID, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), "NOT_FOUND")
	})
}

func TestStartCrosscheckValidation(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("missing fields", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/crosscheck", map[string]string{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "plcFileId")
	})

	t.Run("unknown file id", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/crosscheck", map[string]string{
			"plcFileId":    "nope",
			"ioListFileId": "nope",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong input kind", func(t *testing.T) {
		l5x := f.upload(t, "plant.L5X", "<RSLogix5000Content/>")
		iolist := f.upload(t, "iolist.csv", apiTestIOListCSV)

		rec := f.do(t, http.MethodPost, "/api/crosscheck", map[string]string{
			"plcFileId":    l5x.ID,
			"ioListFileId": iolist.ID,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "tag export")
	})
}

func TestCrosscheckRunEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	runID := f.startRun(t)

	run := f.waitForRun(t, runID)
	require.Equal(t, models.RunStatusComplete, run.Status)
	require.Equal(t, 3, run.DeviceCount)

	t.Run("results", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+runID+"/results?page=1&pageSize=10", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Results []*models.MatchResult `json:"results"`
			Total   int                   `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, run.ResultCount, resp.Total)
		require.Len(t, resp.Results, run.ResultCount)
	})

	t.Run("results filtered", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+runID+"/results?classification=Spare", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Results []*models.MatchResult `json:"results"`
			Total   int                   `json:"total"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Total)
		require.Equal(t, models.ClassSpare, resp.Results[0].Classification)
	})

	t.Run("results msgpack", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+runID+"/results/msgpack", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

		var resp map[string]interface{}
		require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &resp))
		require.EqualValues(t, run.ResultCount, resp["total"])
	})

	t.Run("summary", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+runID+"/summary", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var summary struct {
			Total            int            `json:"total"`
			ByClassification map[string]int `json:"byClassification"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
		require.Equal(t, run.ResultCount, summary.Total)
		require.Equal(t, 1, summary.ByClassification[string(models.ClassSpare)])
	})

	t.Run("review", func(t *testing.T) {
		rec := f.do(t, http.MethodPut,
			fmt.Sprintf("/api/crosscheck/%s/results/0/review", runID),
			map[string]string{"reviewer": "jsmith"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "jsmith")

		rec = f.do(t, http.MethodPut,
			fmt.Sprintf("/api/crosscheck/%s/results/999/review", runID),
			map[string]string{"reviewer": "jsmith"})
		require.Equal(t, http.StatusNotFound, rec.Code)

		rec = f.do(t, http.MethodPut,
			fmt.Sprintf("/api/crosscheck/%s/results/0/review", runID),
			map[string]string{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("keepalive", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/crosscheck/"+runID+"/keepalive", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/api/crosscheck/missing/keepalive", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRunReportFormats(t *testing.T) {
	f := newAPIFixture(t)
	runID := f.startRun(t)
	f.waitForRun(t, runID)

	t.Run("xlsx default", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+runID+"/report", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "crosscheck_report.xlsx")

		wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer wb.Close()
		require.Contains(t, wb.GetSheetList(), "Verification Detail")
	})

	t.Run("html", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+runID+"/report?format=html", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>"))
		require.Contains(t, rec.Body.String(), "HLSTL5A")
	})

	t.Run("markdown", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+runID+"/report?format=markdown", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "# IO Crosscheck Summary")
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+runID+"/report?format=pdf", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown run", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/missing/report", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEnrichedRunAliasSurfacing(t *testing.T) {
	f := newAPIFixture(t)

	plc := f.upload(t, "plc.csv", apiTestPLCCSV)
	iolist := f.upload(t, "iolist.csv", apiTestIOListCSV)
	l5x := f.upload(t, "plant.L5X", apiTestL5X)
	require.Equal(t, models.FileKindL5X, l5x.Kind)

	rec := f.do(t, http.MethodPost, "/api/crosscheck", map[string]string{
		"plcFileId":    plc.ID,
		"ioListFileId": iolist.ID,
		"l5xFileId":    l5x.ID,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started models.CrosscheckRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	run := f.waitForRun(t, started.ID)
	require.Equal(t, models.RunStatusComplete, run.Status)
	require.True(t, run.Enriched)

	t.Run("summary carries alias buckets", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+started.ID+"/summary", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var summary report.Summary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
		require.Len(t, summary.MsgTags, 1)
		require.Equal(t, "MSG_To_Deod", summary.MsgTags[0].Name)
		require.Equal(t, "WRITE", summary.MsgTags[0].Direction)
		require.Len(t, summary.ConsumedTags, 1)
		require.Equal(t, "Deod_Level", summary.ConsumedTags[0].Name)
	})

	t.Run("xlsx report gets the alias sheet", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+started.ID+"/report", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer wb.Close()
		require.Contains(t, wb.GetSheetList(), "L5X Aliases")
	})

	t.Run("markdown report lists aliases", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/crosscheck/"+started.ID+"/report?format=markdown", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "## MSG Communication Aliases")
		require.Contains(t, rec.Body.String(), "| MSG_To_Deod | N100_W[4] | WRITE |")
		require.Contains(t, rec.Body.String(), "## Consumed Tags")
		require.Contains(t, rec.Body.String(), "| Deod_Level | Deod_Data.Level |")
	})
}

func TestHandlerStorageFailures(t *testing.T) {
	store := testutil.NewMockStorage()
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, NewHandler(store, session.NewManagerWithTempDir(t.TempDir()), "test"))
	f := &apiFixture{e: e}

	t.Run("upload failure is an internal error", func(t *testing.T) {
		store.SaveErr = errors.New("disk full")
		defer func() { store.SaveErr = nil }()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "plc.csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(apiTestPLCCSV))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
		req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
		require.Contains(t, rec.Body.String(), "disk full")
	})

	t.Run("list failure is an internal error", func(t *testing.T) {
		store.ListErr = errors.New("index corrupt")
		defer func() { store.ListErr = nil }()

		rec := f.do(t, http.MethodGet, "/api/files/recent", nil)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("missing multipart field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/files/upload", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "BAD_REQUEST")
	})
}
