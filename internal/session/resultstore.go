package session

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marcboeker/go-duckdb"

	"github.com/io-crosscheck/backend/internal/models"
)

// ResultStore persists the finalized results of one crosscheck run in a
// DuckDB file. Plant-scale runs are a few thousand rows, so every query
// is plain OFFSET paging; the store exists so results survive in one
// queryable place (filter, search, summary, review write-through)
// instead of being re-filtered in memory per request.
type ResultStore struct {
	db     *sql.DB
	dbPath string
	count  int

	countCache   map[string]int
	countCacheMu sync.RWMutex
}

// NewResultStore creates the backing database for a run in tempDir.
func NewResultStore(tempDir, runID string) (*ResultStore, error) {
	return NewResultStoreAtPath(filepath.Join(tempDir, fmt.Sprintf("run_%s.duckdb", runID)))
}

// NewResultStoreAtPath creates a result store at a specific path.
func NewResultStoreAtPath(dbPath string) (*ResultStore, error) {
	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='512MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE results (
			idx             INTEGER PRIMARY KEY,
			strategy_id     TINYINT NOT NULL,
			confidence      VARCHAR,
			classification  VARCHAR NOT NULL,
			conflict        BOOLEAN NOT NULL,
			io_tag          VARCHAR,
			device_tag      VARCHAR,
			plc_address     VARCHAR,
			panel           VARCHAR,
			source_row      INTEGER,
			plc_name        VARCHAR,
			plc_description VARCHAR,
			plc_specifier   VARCHAR,
			plc_record_type VARCHAR,
			source_line     INTEGER,
			audit           VARCHAR,
			sources         VARCHAR,
			reviewer        VARCHAR,
			review_ts       VARCHAR
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("create results table: %w", err)
	}

	return &ResultStore{
		db:         db,
		dbPath:     dbPath,
		countCache: make(map[string]int),
	}, nil
}

// InsertResults writes the full result set through the native Appender.
// The index column is the result's position in engine output order, which
// is what the review endpoint addresses rows by.
func (rs *ResultStore) InsertResults(results []*models.MatchResult) error {
	conn, err := rs.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("cast to duckdb.Conn failed")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "results")
		if err != nil {
			return fmt.Errorf("create appender: %w", err)
		}
		defer appender.Close()

		for i, r := range results {
			var ioTag, deviceTag, plcAddress, panel string
			var sourceRow int32
			if r.IODevice != nil {
				ioTag = r.IODevice.IOTag
				deviceTag = r.IODevice.DeviceTag
				plcAddress = r.IODevice.PLCAddress
				panel = r.IODevice.Panel
				sourceRow = int32(r.IODevice.SourceRow)
			}

			var plcName, plcDesc, plcSpec, plcRecord string
			var sourceLine int32
			if r.PLCTag != nil {
				plcName = r.PLCTag.Name
				plcDesc = r.PLCTag.Description
				plcSpec = r.PLCTag.Specifier
				plcRecord = string(r.PLCTag.RecordType)
				sourceLine = int32(r.PLCTag.SourceLine)
			}

			err := appender.AppendRow(
				int32(i),
				int8(r.StrategyID),
				string(r.Confidence),
				string(r.Classification),
				r.ConflictFlag,
				ioTag,
				deviceTag,
				plcAddress,
				panel,
				sourceRow,
				plcName,
				plcDesc,
				plcSpec,
				plcRecord,
				sourceLine,
				strings.Join(r.AuditTrail, "\n"),
				strings.Join(r.Sources, ","),
				r.Reviewer,
				r.ReviewTimestamp,
			)
			if err != nil {
				return fmt.Errorf("append row %d: %w", i, err)
			}
		}

		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}

	rs.count += len(results)
	rs.ClearCountCache()
	return nil
}

// Finalize creates the query indexes after bulk insert.
func (rs *ResultStore) Finalize() error {
	if _, err := rs.db.Exec("CREATE INDEX idx_class ON results(classification)"); err != nil {
		return fmt.Errorf("idx_class creation failed: %w", err)
	}
	return nil
}

// Len returns the number of stored results.
func (rs *ResultStore) Len() int {
	return rs.count
}

// ResultQuery defines filters for result queries.
type ResultQuery struct {
	Classification string
	ConflictOnly   bool
	Search         string
}

// Query returns filtered and paginated results plus the filtered total.
func (rs *ResultStore) Query(ctx context.Context, params ResultQuery, page, pageSize int) ([]*models.MatchResult, int, error) {
	where, args := buildWhereClause(params)

	cacheKey := where + "\x00" + strings.Join(argStrings(args), "\x00")
	rs.countCacheMu.RLock()
	total, found := rs.countCache[cacheKey]
	rs.countCacheMu.RUnlock()

	if !found {
		countQuery := "SELECT COUNT(*) FROM results"
		if where != "" {
			countQuery += " WHERE " + where
		}
		if err := rs.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count query failed: %w", err)
		}
		rs.countCacheMu.Lock()
		rs.countCache[cacheKey] = total
		rs.countCacheMu.Unlock()
	}

	if total == 0 {
		return []*models.MatchResult{}, 0, nil
	}

	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}

	query := selectColumns + " FROM results"
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" ORDER BY idx LIMIT %d OFFSET %d", pageSize, offset)

	rows, err := rs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	results := make([]*models.MatchResult, 0, pageSize)
	for rows.Next() {
		r, _, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// Get returns a single result by its engine-order index.
func (rs *ResultStore) Get(ctx context.Context, idx int) (*models.MatchResult, error) {
	rows, err := rs.db.QueryContext(ctx, selectColumns+" FROM results WHERE idx = ?", idx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("result %d not found", idx)
	}
	r, _, err := scanResult(rows)
	return r, err
}

// All returns every stored result in engine order.
func (rs *ResultStore) All(ctx context.Context) ([]*models.MatchResult, error) {
	rows, err := rs.db.QueryContext(ctx, selectColumns+" FROM results ORDER BY idx")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*models.MatchResult, 0, rs.count)
	for rows.Next() {
		r, _, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Summary returns per-classification counts plus total and conflict count.
func (rs *ResultStore) Summary(ctx context.Context) (map[string]int, int, int, error) {
	counts := make(map[string]int)

	rows, err := rs.db.QueryContext(ctx,
		"SELECT classification, COUNT(*) FROM results GROUP BY classification")
	if err != nil {
		return nil, 0, 0, fmt.Errorf("summary query failed: %w", err)
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var class string
		var n int
		if err := rows.Scan(&class, &n); err != nil {
			return nil, 0, 0, err
		}
		counts[class] = n
		total += n
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	var conflicts int
	if err := rs.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM results WHERE conflict").Scan(&conflicts); err != nil {
		return nil, 0, 0, err
	}

	return counts, total, conflicts, nil
}

// SetReview writes reviewer sign-off for one result.
func (rs *ResultStore) SetReview(ctx context.Context, idx int, reviewer, timestamp string) error {
	res, err := rs.db.ExecContext(ctx,
		"UPDATE results SET reviewer = ?, review_ts = ? WHERE idx = ?", reviewer, timestamp, idx)
	if err != nil {
		return fmt.Errorf("review update failed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("result %d not found", idx)
	}
	return nil
}

// ClearCountCache drops cached filter counts after data changes.
func (rs *ResultStore) ClearCountCache() {
	rs.countCacheMu.Lock()
	rs.countCache = make(map[string]int)
	rs.countCacheMu.Unlock()
}

// Close closes the database and removes the backing file.
func (rs *ResultStore) Close() error {
	if rs.db != nil {
		rs.db.Close()
	}
	if rs.dbPath != "" {
		os.Remove(rs.dbPath)
	}
	return nil
}

const selectColumns = `SELECT idx, strategy_id, confidence, classification, conflict,
	io_tag, device_tag, plc_address, panel, source_row,
	plc_name, plc_description, plc_specifier, plc_record_type, source_line,
	audit, sources, reviewer, review_ts`

func buildWhereClause(params ResultQuery) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if params.Classification != "" {
		clauses = append(clauses, "classification = ?")
		args = append(args, params.Classification)
	}
	if params.ConflictOnly {
		clauses = append(clauses, "conflict")
	}
	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		clauses = append(clauses, "(io_tag ILIKE ? OR device_tag ILIKE ? OR plc_address ILIKE ? OR plc_name ILIKE ? OR plc_description ILIKE ?)")
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}

	return strings.Join(clauses, " AND "), args
}

func argStrings(args []interface{}) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = fmt.Sprintf("%v", a)
	}
	return out
}

func scanResult(rows *sql.Rows) (*models.MatchResult, int, error) {
	var idx, strategyID, sourceRow, sourceLine int
	var confidence, classification string
	var conflict bool
	var ioTag, deviceTag, plcAddress, panel sql.NullString
	var plcName, plcDesc, plcSpec, plcRecord sql.NullString
	var audit, sources, reviewer, reviewTs sql.NullString

	err := rows.Scan(&idx, &strategyID, &confidence, &classification, &conflict,
		&ioTag, &deviceTag, &plcAddress, &panel, &sourceRow,
		&plcName, &plcDesc, &plcSpec, &plcRecord, &sourceLine,
		&audit, &sources, &reviewer, &reviewTs)
	if err != nil {
		return nil, 0, err
	}

	result := &models.MatchResult{
		StrategyID:      strategyID,
		Confidence:      models.Confidence(confidence),
		Classification:  models.Classification(classification),
		ConflictFlag:    conflict,
		Reviewer:        reviewer.String,
		ReviewTimestamp: reviewTs.String,
	}
	if audit.String != "" {
		result.AuditTrail = strings.Split(audit.String, "\n")
	}
	if sources.String != "" {
		result.Sources = strings.Split(sources.String, ",")
	}
	if ioTag.String != "" || deviceTag.String != "" || plcAddress.String != "" {
		result.IODevice = &models.IODevice{
			IOTag:      ioTag.String,
			DeviceTag:  deviceTag.String,
			PLCAddress: plcAddress.String,
			Panel:      panel.String,
			SourceRow:  sourceRow,
		}
	}
	if plcName.String != "" {
		result.PLCTag = &models.PLCTag{
			RecordType:  models.RecordType(plcRecord.String),
			Name:        plcName.String,
			Description: plcDesc.String,
			Specifier:   plcSpec.String,
			SourceLine:  sourceLine,
		}
	}
	return result, idx, nil
}
