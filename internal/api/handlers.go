package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/io-crosscheck/backend/internal/models"
	"github.com/io-crosscheck/backend/internal/report"
	"github.com/io-crosscheck/backend/internal/session"
	"github.com/io-crosscheck/backend/internal/storage"
)

// Handler handles API requests.
type Handler struct {
	store   storage.Store
	runs    *session.Manager
	version string
}

// NewHandler creates a new API handler.
func NewHandler(store storage.Store, runs *session.Manager, version string) *Handler {
	return &Handler{
		store:   store,
		runs:    runs,
		version: version,
	}
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleUploadFile accepts a multipart upload and saves it to storage.
// The stored metadata carries the sniffed input kind so the client can
// verify it picked the right file before starting a run.
func (h *Handler) HandleUploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("multipart field 'file' is required", err)
	}

	src, err := fh.Open()
	if err != nil {
		return NewBadRequestError("could not open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(fh.Filename, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleRecentFiles returns a list of recently uploaded files.
func (h *Handler) HandleRecentFiles(c echo.Context) error {
	files, err := h.store.List(20)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	if files == nil {
		files = []*models.FileInfo{}
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file.
func (h *Handler) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile removes a file from storage.
func (h *Handler) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile updates the name of a file.
func (h *Handler) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return NewNotFoundError("file", id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleStartCrosscheck resolves the uploaded inputs and launches a run.
func (h *Handler) HandleStartCrosscheck(c echo.Context) error {
	var req struct {
		PLCFileID    string `json:"plcFileId"`
		IOListFileID string `json:"ioListFileId"`
		L5XFileID    string `json:"l5xFileId"`
		RulesFileID  string `json:"rulesFileId"`
		Sheet        string `json:"sheet"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.PLCFileID == "" {
		return NewValidationError("plcFileId")
	}
	if req.IOListFileID == "" {
		return NewValidationError("ioListFileId")
	}

	plcInfo, plcPath, err := h.resolveFile(req.PLCFileID)
	if err != nil {
		return err
	}
	if plcInfo.Kind != models.FileKindPLCCSV && plcInfo.Kind != models.FileKindUnknown {
		return NewBadRequestError(
			fmt.Sprintf("file %q does not look like an RSLogix tag export", plcInfo.Name), nil)
	}

	ioInfo, ioPath, err := h.resolveFile(req.IOListFileID)
	if err != nil {
		return err
	}

	files := session.RunFiles{
		PLCPath:    plcPath,
		IOListPath: ioPath,
		IOListKind: ioInfo.Kind,
		Sheet:      req.Sheet,
	}

	if req.L5XFileID != "" {
		if _, files.L5XPath, err = h.resolveFile(req.L5XFileID); err != nil {
			return err
		}
	}
	if req.RulesFileID != "" {
		if _, files.RulesPath, err = h.resolveFile(req.RulesFileID); err != nil {
			return err
		}
	}

	run, err := h.runs.StartRun(req.PLCFileID, req.IOListFileID, files)
	if err != nil {
		return NewInternalError("failed to start crosscheck", err)
	}

	return c.JSON(http.StatusAccepted, run)
}

// resolveFile looks up an upload id and returns its metadata and path.
func (h *Handler) resolveFile(id string) (*models.FileInfo, string, error) {
	info, err := h.store.Get(id)
	if err != nil {
		return nil, "", NewNotFoundError("file", id)
	}
	path, err := h.store.GetFilePath(id)
	if err != nil {
		return nil, "", NewInternalError(fmt.Sprintf("failed to resolve path for %s", id), err)
	}
	return info, path, nil
}

// HandleRunStatus returns the status of a crosscheck run.
func (h *Handler) HandleRunStatus(c echo.Context) error {
	id := c.Param("runId")
	run, ok := h.runs.GetRun(id)
	if !ok {
		return NewNotFoundError("run", id)
	}
	// Touch so an actively polled run is not cleaned up.
	h.runs.TouchRun(id)
	return c.JSON(http.StatusOK, run)
}

// HandleRunResults returns paginated, filtered results for a completed run.
func (h *Handler) HandleRunResults(c echo.Context) error {
	id := c.Param("runId")
	page, pageSize := paging(c, 100)
	params := resultQuery(c)

	start := time.Now()
	results, total, ok := h.runs.QueryResults(c.Request().Context(), id, params, page, pageSize)
	if !ok {
		return NewNotFoundError("run", id)
	}
	h.runs.TouchRun(id)
	fmt.Printf("[API] Results: run=%s page=%d done in %v (returning %d/%d)\n",
		id[:min(8, len(id))], page, time.Since(start), len(results), total)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"results":  results,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// HandleRunResultsMsgpack returns paginated results in MessagePack format,
// which is substantially smaller than JSON for large runs.
func (h *Handler) HandleRunResultsMsgpack(c echo.Context) error {
	id := c.Param("runId")
	page, pageSize := paging(c, 1000)
	params := resultQuery(c)

	results, total, ok := h.runs.QueryResults(c.Request().Context(), id, params, page, pageSize)
	if !ok {
		return NewNotFoundError("run", id)
	}
	h.runs.TouchRun(id)

	data, err := msgpack.Marshal(map[string]interface{}{
		"results":  results,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleRunSummary returns per-classification counts for a completed run.
func (h *Handler) HandleRunSummary(c echo.Context) error {
	id := c.Param("runId")
	counts, total, conflicts, ok := h.runs.Summary(c.Request().Context(), id)
	if !ok {
		return NewNotFoundError("run", id)
	}
	h.runs.TouchRun(id)

	summary := report.Summary{
		Total:            total,
		Conflicts:        conflicts,
		ByClassification: counts,
	}
	if msgTags, consumedTags, ok := h.runs.AliasDetail(id); ok {
		summary.MsgTags = msgTags
		summary.ConsumedTags = consumedTags
	}
	return c.JSON(http.StatusOK, summary)
}

// HandleRunReport streams a rendered report. Format is selected by the
// "format" query parameter: xlsx (default), html, or markdown.
func (h *Handler) HandleRunReport(c echo.Context) error {
	id := c.Param("runId")

	results, ok := h.runs.AllResults(c.Request().Context(), id)
	if !ok {
		return NewNotFoundError("run", id)
	}
	h.runs.TouchRun(id)
	summary := report.BuildSummary(results)
	if msgTags, consumedTags, ok := h.runs.AliasDetail(id); ok {
		summary.MsgTags = msgTags
		summary.ConsumedTags = consumedTags
	}

	format := c.QueryParam("format")
	if format == "" {
		format = "xlsx"
	}

	var buf bytes.Buffer
	var contentType, filename string
	var err error

	switch format {
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "crosscheck_report.xlsx"
		err = report.WriteXLSX(results, summary, &buf)
	case "html":
		contentType = "text/html; charset=utf-8"
		filename = "crosscheck_report.html"
		err = report.WriteHTML(results, summary, &buf)
	case "markdown":
		contentType = "text/markdown; charset=utf-8"
		filename = "crosscheck_report.md"
		err = report.WriteMarkdown(results, summary, &buf)
	default:
		return NewBadRequestError(fmt.Sprintf("unknown report format: %s", format), nil)
	}
	if err != nil {
		return NewInternalError("failed to generate report", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

// HandleSetReview records reviewer sign-off on one result.
func (h *Handler) HandleSetReview(c echo.Context) error {
	id := c.Param("runId")
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		return NewValidationError("index")
	}

	var req struct {
		Reviewer  string `json:"reviewer"`
		Timestamp string `json:"timestamp"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Reviewer == "" {
		return NewValidationError("reviewer")
	}
	if req.Timestamp == "" {
		req.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	if err := h.runs.SetReview(c.Request().Context(), id, idx, req.Reviewer, req.Timestamp); err != nil {
		return NewNotFoundError("result", fmt.Sprintf("%s/%d", id, idx))
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":    "reviewed",
		"reviewer":  req.Reviewer,
		"timestamp": req.Timestamp,
	})
}

// HandleRunKeepAlive lets clients explicitly keep a run alive while a
// reviewer has the results open without paging through them.
func (h *Handler) HandleRunKeepAlive(c echo.Context) error {
	id := c.Param("runId")
	if !h.runs.TouchRun(id) {
		return NewNotFoundError("run", id)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func paging(c echo.Context, defaultPageSize int) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > 5000 {
		pageSize = 5000
	}
	return page, pageSize
}

func resultQuery(c echo.Context) session.ResultQuery {
	return session.ResultQuery{
		Classification: c.QueryParam("classification"),
		ConflictOnly:   c.QueryParam("conflict") == "true",
		Search:         c.QueryParam("search"),
	}
}
