package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/io-crosscheck/backend/internal/models"
)

const testPLCCSV = `TYPE,SCOPE,NAME,DESCRIPTION,DATATYPE,SPECIFIER
TAG,,Rack0:I,"","AB:1756_IF8:I:0",""
COMMENT,,Rack0:I,"HLSTL5A","","Rack0:I.DATA[5].7"
TAG,,E300_P621:I,"","AB:E300:I:0",""
TAG,,VFD_M999:I,"","AB:PowerFlex:I:0",""
`

const testIOListCSV = `Panel,Rack,Group,Slot,Channel,PLC IO Address,IO Tag,Device Tag
CP-1,0,,5,7,Rack0:I.Data[5].7,HLSTL5A,HLSTL5A
CP-1,,,,,,P621_RUN,P621
CP-2,5,,1,1,Rack5:I.Data[1].1,Spare,
`

func writeRunInputs(t *testing.T) RunFiles {
	t.Helper()
	dir := t.TempDir()

	plcPath := filepath.Join(dir, "plc.csv")
	require.NoError(t, os.WriteFile(plcPath, []byte(testPLCCSV), 0644))

	ioPath := filepath.Join(dir, "iolist.csv")
	require.NoError(t, os.WriteFile(ioPath, []byte(testIOListCSV), 0644))

	return RunFiles{
		PLCPath:    plcPath,
		IOListPath: ioPath,
		IOListKind: models.FileKindIOListCSV,
	}
}

func waitForRun(t *testing.T, m *Manager, id string) *models.CrosscheckRun {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		run, ok := m.GetRun(id)
		require.True(t, ok)
		if run.Status == models.RunStatusComplete || run.Status == models.RunStatusError {
			return run
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("run did not finish in time")
	return nil
}

func TestManagerRunLifecycle(t *testing.T) {
	m := NewManagerWithTempDir(t.TempDir())
	files := writeRunInputs(t)

	run, err := m.StartRun("plc-file", "io-file", files)
	require.NoError(t, err)
	require.Equal(t, models.RunStatusRunning, run.Status)

	run = waitForRun(t, m, run.ID)
	require.Equal(t, models.RunStatusComplete, run.Status)
	require.Equal(t, float64(100), run.Progress)
	require.Equal(t, 4, run.TagCount)
	require.Equal(t, 3, run.DeviceCount)
	// 3 device results plus the leftover VFD_M999 PLC Only result.
	require.Equal(t, 4, run.ResultCount)
	require.False(t, run.Enriched)

	ctx := context.Background()

	results, total, ok := m.QueryResults(ctx, run.ID, ResultQuery{}, 1, 50)
	require.True(t, ok)
	require.Equal(t, 4, total)
	require.Len(t, results, 4)

	counts, sumTotal, _, ok := m.Summary(ctx, run.ID)
	require.True(t, ok)
	require.Equal(t, 4, sumTotal)
	require.Equal(t, 1, counts[string(models.ClassSpare)])
	require.Equal(t, 1, counts[string(models.ClassPLCOnly)])

	require.NoError(t, m.SetReview(ctx, run.ID, 0, "jsmith", "2026-08-23T10:00:00Z"))
	reviewed, _, ok := m.QueryResults(ctx, run.ID, ResultQuery{Classification: string(models.ClassBoth)}, 1, 10)
	require.True(t, ok)
	require.Len(t, reviewed, 1)
	require.Equal(t, "jsmith", reviewed[0].Reviewer)
}

const testL5X = `<?xml version="1.0" encoding="UTF-8"?>
<RSLogix5000Content SchemaRevision="1.0" TargetName="Plant1">
  <Controller Name="Plant1">
    <Tags>
      <Tag Name="HLSTL5A" TagType="Alias" AliasFor="Rack0:I.Data[5].7"/>
      <Tag Name="MSG_To_Deod" TagType="Alias" AliasFor="N100_W[4]"/>
      <Tag Name="Deod_Level" TagType="Alias" AliasFor="Deod_Data.Level"/>
    </Tags>
  </Controller>
</RSLogix5000Content>`

func TestManagerRunAliasDetail(t *testing.T) {
	m := NewManagerWithTempDir(t.TempDir())
	files := writeRunInputs(t)

	l5xPath := filepath.Join(t.TempDir(), "project.l5x")
	require.NoError(t, os.WriteFile(l5xPath, []byte(testL5X), 0644))
	files.L5XPath = l5xPath

	run, err := m.StartRun("plc-file", "io-file", files)
	require.NoError(t, err)
	run = waitForRun(t, m, run.ID)
	require.Equal(t, models.RunStatusComplete, run.Status)
	require.True(t, run.Enriched)

	msgTags, consumedTags, ok := m.AliasDetail(run.ID)
	require.True(t, ok)
	require.Len(t, msgTags, 1)
	require.Equal(t, "MSG_To_Deod", msgTags[0].Name)
	require.Equal(t, "N100_W[4]", msgTags[0].AliasFor)
	require.Equal(t, "WRITE", msgTags[0].Direction)
	require.Len(t, consumedTags, 1)
	require.Equal(t, "Deod_Level", consumedTags[0].Name)
	require.Equal(t, "Deod_Data.Level", consumedTags[0].AliasFor)

	_, _, ok = m.AliasDetail("no-such-run")
	require.False(t, ok)
}

func TestManagerRunAliasDetailWithoutL5X(t *testing.T) {
	m := NewManagerWithTempDir(t.TempDir())
	files := writeRunInputs(t)

	run, err := m.StartRun("plc-file", "io-file", files)
	require.NoError(t, err)
	run = waitForRun(t, m, run.ID)
	require.False(t, run.Enriched)

	msgTags, consumedTags, ok := m.AliasDetail(run.ID)
	require.True(t, ok)
	require.Empty(t, msgTags)
	require.Empty(t, consumedTags)
}

func TestManagerRunErrorOnMissingInput(t *testing.T) {
	m := NewManagerWithTempDir(t.TempDir())
	files := writeRunInputs(t)
	files.PLCPath = filepath.Join(t.TempDir(), "missing.csv")

	run, err := m.StartRun("plc-file", "io-file", files)
	require.NoError(t, err)

	run = waitForRun(t, m, run.ID)
	require.Equal(t, models.RunStatusError, run.Status)
	require.Contains(t, run.Error, "plc export parse failed")

	_, _, ok := m.QueryResults(context.Background(), run.ID, ResultQuery{}, 1, 10)
	require.False(t, ok)
}

func TestManagerCleanupOldRuns(t *testing.T) {
	m := NewManagerWithTempDir(t.TempDir())
	files := writeRunInputs(t)

	run, err := m.StartRun("plc-file", "io-file", files)
	require.NoError(t, err)
	waitForRun(t, m, run.ID)

	// A recently touched run survives cleanup.
	require.True(t, m.TouchRun(run.ID))
	m.CleanupOldRuns(RunMaxAge)
	_, ok := m.GetRun(run.ID)
	require.True(t, ok)

	// Age it out past both windows.
	m.mu.Lock()
	m.runs[run.ID].LastAccessed = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	m.CleanupOldRuns(30 * time.Minute)
	_, ok = m.GetRun(run.ID)
	require.False(t, ok)
}
