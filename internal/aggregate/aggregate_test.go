package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vam876/lllmscanner/internal/model"
	"github.com/vam876/lllmscanner/internal/storage"
)

func result(ip string, port int, vuln string) model.ScanResult {
	return model.ScanResult{
		IP:            ip,
		Port:          port,
		Service:       "Ollama",
		Status:        "Vulnerable",
		Vulnerability: vuln,
		Timestamp:     "2025-06-01T10:00:00Z",
	}
}

func TestStartSessionResetsState(t *testing.T) {
	a := New(storage.NewMemory())

	a.OnResult(result("10.0.0.1", 80, "x"))

	id, ok := a.StartSession("192.168.1.5", model.TargetSingle)
	require.True(t, ok)
	require.NotEmpty(t, id)

	snap := a.Snapshot()
	assert.True(t, snap.Running)
	assert.Zero(t, snap.ProgressPercent)
	assert.Empty(t, snap.Results)
	assert.Equal(t, "192.168.1.5", snap.Target)
	assert.Equal(t, model.TargetSingle, snap.TargetType)
}

func TestStartSessionIsNoOpWhileRunning(t *testing.T) {
	a := New(storage.NewMemory())

	first, ok := a.StartSession("192.168.1.5", model.TargetSingle)
	require.True(t, ok)

	second, ok := a.StartSession("192.168.1.6", model.TargetSingle)
	assert.False(t, ok)
	assert.Empty(t, second)

	// состояние первой сессии не тронуто
	snap := a.Snapshot()
	assert.Equal(t, first, snap.SessionID)
	assert.Equal(t, "192.168.1.5", snap.Target)
}

func TestSessionIDsUniqueForIdenticalTargets(t *testing.T) {
	a := New(storage.NewMemory())

	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		id, ok := a.StartSession("192.168.1.5", model.TargetSingle)
		require.True(t, ok)
		_, dup := seen[id]
		require.False(t, dup, "duplicate session id %q", id)
		seen[id] = struct{}{}
		a.Cancel()
	}
}

func TestOnResultFirstWriteWins(t *testing.T) {
	a := New(storage.NewMemory())
	a.StartSession("192.168.1.5", model.TargetSingle)

	first := result("192.168.1.5", 11434, "Ollama unauthorized access")
	dup := first
	dup.Details = "re-announced while scanning other hosts"

	assert.True(t, a.OnResult(first))
	assert.False(t, a.OnResult(dup))
	assert.True(t, a.OnResult(result("192.168.1.5", 8000, "vLLM unauthorized access")))

	snap := a.Snapshot()
	require.Len(t, snap.Results, 2)
	assert.Empty(t, snap.Results[0].Details) // выжил первый вариант
}

func TestOnProgressClampsAndStopsAtHundred(t *testing.T) {
	a := New(storage.NewMemory())
	a.StartSession("192.168.1.5", model.TargetSingle)

	a.OnProgress(-10, "192.168.1.5")
	assert.Zero(t, a.Snapshot().ProgressPercent)

	a.OnProgress(250, "192.168.1.5")
	snap := a.Snapshot()
	assert.Equal(t, float64(100), snap.ProgressPercent)
	assert.False(t, snap.Running)
}

func TestProgressCompleteRace(t *testing.T) {
	a := New(storage.NewMemory())
	a.StartSession("10.0.0.1", model.TargetSingle)

	// терминальный сигнал пришёл прогрессом раньше scan_complete
	a.OnProgress(100, "10.0.0.1")
	assert.False(t, a.Snapshot().Running)

	// поздний complete(0) не должен заново открыть running
	a.OnComplete(0)
	snap := a.Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, float64(100), snap.ProgressPercent)
}

func TestOnCompleteReportsFindings(t *testing.T) {
	a := New(storage.NewMemory())
	a.StartSession("192.168.1.5", model.TargetSingle)
	a.OnResult(result("192.168.1.5", 11434, "Ollama unauthorized access"))

	assert.True(t, a.OnComplete(1))
	snap := a.Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, float64(100), snap.ProgressPercent)
	assert.Len(t, snap.Results, 1)
}

func TestOnCompleteZeroClearsResults(t *testing.T) {
	a := New(storage.NewMemory())
	a.StartSession("192.168.1.5", model.TargetSingle)
	a.OnResult(result("192.168.1.5", 11434, "x"))

	assert.False(t, a.OnComplete(0))
	assert.Empty(t, a.Snapshot().Results)
}

func TestCancelKeepsAcceptingLateResults(t *testing.T) {
	a := New(storage.NewMemory())
	a.StartSession("192.168.1.0/24", model.TargetCIDR)

	assert.True(t, a.Cancel())
	assert.False(t, a.Cancel()) // повторная отмена — уже нечего отменять

	// отмена локальная: движок мог дослать результат
	assert.True(t, a.OnResult(result("192.168.1.7", 1234, "llama.cpp unauthorized access")))
	assert.False(t, a.OnResult(result("192.168.1.7", 1234, "llama.cpp unauthorized access")))
	assert.Len(t, a.Snapshot().Results, 1)
}

func TestRestoreAfterRestart(t *testing.T) {
	kv := storage.NewMemory()

	a := New(kv)
	a.StartSession("192.168.1.5", model.TargetRange)
	a.OnResult(result("192.168.1.5", 11434, "Ollama unauthorized access"))
	require.True(t, a.OnComplete(1))
	sessionID := a.Snapshot().SessionID

	// "рестарт процесса": новый агрегатор над тем же KV
	b := New(kv)
	require.NoError(t, b.Restore())

	snap := b.Snapshot()
	assert.False(t, snap.Running)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, 11434, snap.Results[0].Port)
	assert.Equal(t, sessionID, snap.SessionID)
	assert.Equal(t, "192.168.1.5", snap.Target)
	assert.Equal(t, model.TargetRange, snap.TargetType)

	// поздний дубль после рестарта всё ещё гасится
	assert.False(t, b.OnResult(result("192.168.1.5", 11434, "Ollama unauthorized access")))
}

func TestRestoreCorruptBlobFallsBackToEmpty(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Set("currentScanResults", "{not json"))

	a := New(kv)
	err := a.Restore()

	var perr *storage.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, a.Snapshot().Results)
}
