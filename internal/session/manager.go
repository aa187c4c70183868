package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/io-crosscheck/backend/internal/crosscheck"
	"github.com/io-crosscheck/backend/internal/models"
	"github.com/io-crosscheck/backend/internal/parser"
)

// MaxRuns limits concurrent crosscheck runs held in memory.
const MaxRuns = 10

// RunMaxAge is how long completed runs are kept before cleanup.
const RunMaxAge = 30 * time.Minute

// RunKeepAliveWindow protects recently accessed runs from cleanup.
const RunKeepAliveWindow = 5 * time.Minute

// RunFiles carries the resolved input file paths for one run. The API
// layer resolves upload ids to paths before calling StartRun.
type RunFiles struct {
	PLCPath    string
	IOListPath string
	IOListKind models.FileKind
	Sheet      string
	L5XPath    string // optional
	RulesPath  string // optional
}

// RunState holds one run's metadata and its DuckDB-backed results.
// MsgTags and ConsumedTags are the alias buckets captured from the L5X
// during enrichment; nil when the run had no L5X input.
type RunState struct {
	Run          *models.CrosscheckRun
	Store        *ResultStore
	MsgTags      []models.AliasTag
	ConsumedTags []models.AliasTag
	LastAccessed time.Time
}

// Manager owns active crosscheck runs. Each run executes in a
// background goroutine; handlers poll status and query results through
// the manager.
type Manager struct {
	runs    map[string]*RunState
	mu      sync.RWMutex
	tempDir string
}

// NewManager creates a manager using CROSSCHECK_TEMP_DIR, defaulting to
// ./data/temp.
func NewManager() *Manager {
	tempDir := os.Getenv("CROSSCHECK_TEMP_DIR")
	if tempDir == "" {
		tempDir = "./data/temp"
	}
	os.MkdirAll(tempDir, 0755)
	return NewManagerWithTempDir(tempDir)
}

// NewManagerWithTempDir creates a manager with a specific temp directory.
func NewManagerWithTempDir(tempDir string) *Manager {
	return &Manager{
		runs:    make(map[string]*RunState),
		tempDir: tempDir,
	}
}

// StartRun registers a run and launches the crosscheck in the background.
func (m *Manager) StartRun(plcFileID, ioListFileID string, files RunFiles) (*models.CrosscheckRun, error) {
	m.cleanupOldRunsIfNeeded()

	runID := uuid.New().String()
	run := models.NewCrosscheckRun(runID, plcFileID, ioListFileID)
	run.Sheet = files.Sheet
	run.Status = models.RunStatusRunning
	run.StartTime = time.Now().UnixMilli()

	m.mu.Lock()
	m.runs[runID] = &RunState{
		Run:          run,
		LastAccessed: time.Now(),
	}
	m.mu.Unlock()

	go m.runCrosscheck(runID, files)

	return run, nil
}

func (m *Manager) runCrosscheck(runID string, files RunFiles) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Run %s] PANIC recovered: %v\n", runID[:8], r)
			m.updateRunError(runID, fmt.Sprintf("crosscheck panicked: %v", r))
		}
	}()

	start := time.Now()
	fmt.Printf("[Run %s] Starting crosscheck: plc=%s iolist=%s\n", runID[:8], files.PLCPath, files.IOListPath)

	var rules *models.CrosscheckRules
	if files.RulesPath != "" {
		var err error
		rules, err = parser.ParseCrosscheckRules(files.RulesPath)
		if err != nil {
			m.updateRunError(runID, fmt.Sprintf("rules parse failed: %v", err))
			return
		}
		fmt.Printf("[Run %s] Rules overlay: %d suffixes, %d catalog patterns\n",
			runID[:8], len(rules.StripSuffixes), len(rules.IOCatalogPatterns))
	}

	tags, err := parser.ParsePLCCSV(files.PLCPath)
	if err != nil {
		m.updateRunError(runID, fmt.Sprintf("plc export parse failed: %v", err))
		return
	}
	for _, tag := range tags {
		tag.Category = crosscheck.ClassifyTag(tag)
	}
	m.updateProgress(runID, 20, func(run *models.CrosscheckRun) {
		run.TagCount = len(tags)
	})
	fmt.Printf("[Run %s] PLC export: %d records\n", runID[:8], len(tags))

	var devices []*models.IODevice
	if files.IOListKind == models.FileKindIOListCSV {
		data, err := os.ReadFile(files.IOListPath)
		if err == nil {
			devices, err = parser.ParseIOListCSV(data)
		}
		if err != nil {
			m.updateRunError(runID, fmt.Sprintf("io list parse failed: %v", err))
			return
		}
	} else {
		devices, err = parser.ParseIOList(files.IOListPath, files.Sheet)
		if err != nil {
			m.updateRunError(runID, fmt.Sprintf("io list parse failed: %v", err))
			return
		}
	}
	m.updateProgress(runID, 40, func(run *models.CrosscheckRun) {
		run.DeviceCount = len(devices)
	})
	fmt.Printf("[Run %s] IO list: %d devices\n", runID[:8], len(devices))

	var project *models.L5XProject
	if files.L5XPath != "" {
		project, err = parser.ParseL5X(files.L5XPath)
		if err != nil {
			m.updateRunError(runID, fmt.Sprintf("l5x parse failed: %v", err))
			return
		}
		fmt.Printf("[Run %s] L5X: %d aliases, %d modules, %d logic refs\n",
			runID[:8], len(project.Aliases), len(project.Modules), len(project.LogicReferences))
	}
	m.updateProgress(runID, 50, nil)

	engine := crosscheck.NewEngineWithRules(rules)
	results := engine.Run(devices, tags)
	m.updateProgress(runID, 75, nil)

	enriched := false
	var msgTags, consumedTags []models.AliasTag
	if project != nil {
		enrichment := crosscheck.ExtractEnrichmentWithRules(project, rules)
		results = crosscheck.EnrichResults(results, enrichment)
		msgTags = enrichment.MsgTags
		consumedTags = enrichment.ConsumedTags
		enriched = true
		fmt.Printf("[Run %s] Enrichment: %d MSG aliases, %d consumed tags\n",
			runID[:8], len(msgTags), len(consumedTags))
	}
	m.updateProgress(runID, 85, nil)

	store, err := NewResultStore(m.tempDir, runID)
	if err != nil {
		m.updateRunError(runID, fmt.Sprintf("result storage failed: %v", err))
		return
	}
	if err := store.InsertResults(results); err != nil {
		store.Close()
		m.updateRunError(runID, fmt.Sprintf("result insert failed: %v", err))
		return
	}
	if err := store.Finalize(); err != nil {
		store.Close()
		m.updateRunError(runID, fmt.Sprintf("result finalize failed: %v", err))
		return
	}

	conflicts := 0
	for _, r := range results {
		if r.ConflictFlag {
			conflicts++
		}
	}
	elapsed := time.Since(start).Milliseconds()
	fmt.Printf("[Run %s] Complete: %d results, %d conflicts in %dms\n",
		runID[:8], len(results), conflicts, elapsed)

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.runs[runID]
	if !ok {
		store.Close()
		return
	}

	state.Store = store
	state.MsgTags = msgTags
	state.ConsumedTags = consumedTags
	state.Run.Status = models.RunStatusComplete
	state.Run.Progress = 100
	state.Run.ResultCount = len(results)
	state.Run.ConflictCount = conflicts
	state.Run.Enriched = enriched
	state.Run.ProcessingTimeMs = elapsed
	state.Run.EndTime = time.Now().UnixMilli()
}

func (m *Manager) updateProgress(runID string, progress float64, apply func(*models.CrosscheckRun)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.runs[runID]
	if !ok {
		return
	}
	state.Run.Progress = progress
	if apply != nil {
		apply(state.Run)
	}
}

func (m *Manager) updateRunError(runID, reason string) {
	fmt.Printf("[Run %s] ERROR: %s\n", runID[:8], reason)

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.runs[runID]
	if !ok {
		return
	}
	state.Run.Status = models.RunStatusError
	state.Run.Error = reason
	state.Run.EndTime = time.Now().UnixMilli()
}

// GetRun returns a run by id.
func (m *Manager) GetRun(id string) (*models.CrosscheckRun, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.runs[id]
	if !ok {
		return nil, false
	}
	return state.Run, true
}

// TouchRun updates the LastAccessed timestamp so an actively viewed run
// is not cleaned up.
func (m *Manager) TouchRun(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.runs[id]
	if !ok {
		return false
	}
	state.LastAccessed = time.Now()
	return true
}

// QueryResults returns filtered, paginated results for a completed run.
func (m *Manager) QueryResults(ctx context.Context, id string, params ResultQuery, page, pageSize int) ([]*models.MatchResult, int, bool) {
	store, ok := m.storeFor(id)
	if !ok {
		return nil, 0, false
	}
	results, total, err := store.Query(ctx, params, page, pageSize)
	if err != nil {
		fmt.Printf("[Manager] QueryResults error: %v\n", err)
		return nil, 0, false
	}
	return results, total, true
}

// AllResults returns a run's full result set in engine order.
func (m *Manager) AllResults(ctx context.Context, id string) ([]*models.MatchResult, bool) {
	store, ok := m.storeFor(id)
	if !ok {
		return nil, false
	}
	results, err := store.All(ctx)
	if err != nil {
		fmt.Printf("[Manager] AllResults error: %v\n", err)
		return nil, false
	}
	return results, true
}

// Summary returns per-classification counts for a completed run.
func (m *Manager) Summary(ctx context.Context, id string) (map[string]int, int, int, bool) {
	store, ok := m.storeFor(id)
	if !ok {
		return nil, 0, 0, false
	}
	counts, total, conflicts, err := store.Summary(ctx)
	if err != nil {
		fmt.Printf("[Manager] Summary error: %v\n", err)
		return nil, 0, 0, false
	}
	return counts, total, conflicts, true
}

// AliasDetail returns the MSG and consumed alias buckets captured
// during a run's enrichment pass. Both are nil for non-enriched runs.
func (m *Manager) AliasDetail(id string) ([]models.AliasTag, []models.AliasTag, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.runs[id]
	if !ok {
		return nil, nil, false
	}
	return state.MsgTags, state.ConsumedTags, true
}

// SetReview writes reviewer sign-off for one result of a run.
func (m *Manager) SetReview(ctx context.Context, id string, idx int, reviewer, timestamp string) error {
	store, ok := m.storeFor(id)
	if !ok {
		return fmt.Errorf("run not found or not complete: %s", id)
	}
	return store.SetReview(ctx, idx, reviewer, timestamp)
}

func (m *Manager) storeFor(id string) (*ResultStore, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.runs[id]
	if !ok || state.Store == nil {
		return nil, false
	}
	return state.Store, true
}

// cleanupOldRunsIfNeeded evicts finished runs when at capacity.
func (m *Manager) cleanupOldRunsIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.runs) < MaxRuns {
		return
	}

	toFree := len(m.runs) - MaxRuns + 1
	deleted := 0
	for id, state := range m.runs {
		if deleted >= toFree {
			break
		}
		if state.Run.Status != models.RunStatusComplete &&
			state.Run.Status != models.RunStatusError {
			continue
		}
		if state.Store != nil {
			state.Store.Close()
		}
		delete(m.runs, id)
		deleted++
		fmt.Printf("[Manager] Evicted run %s to free capacity\n", id[:8])
	}
}

// CleanupOldRuns removes finished runs older than maxAge, keeping any
// accessed within RunKeepAliveWindow.
func (m *Manager) CleanupOldRuns(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-RunKeepAliveWindow)

	for id, state := range m.runs {
		if state.Run.Status != models.RunStatusComplete &&
			state.Run.Status != models.RunStatusError {
			continue
		}
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			if state.Store != nil {
				state.Store.Close()
			}
			delete(m.runs, id)
			fmt.Printf("[Manager] Cleaned up aged run %s (last accessed %s ago)\n",
				id[:8], time.Since(state.LastAccessed).Round(time.Second))
		}
	}
}
