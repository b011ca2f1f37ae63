package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vam876/lllmscanner/internal/model"
)

func TestAppendDeduplicatesWithinWindow(t *testing.T) {
	f := New(5, time.Second)
	defer f.Close()

	assert.True(t, f.Append("scan started", model.LevelInfo))
	assert.False(t, f.Append("scan started", model.LevelInfo))
	require.Len(t, f.Entries(), 1)

	// та же строка, другой тип — уже не дубль
	assert.True(t, f.Append("scan started", model.LevelWarning))
	require.Len(t, f.Entries(), 2)
}

func TestAppendWindowIsRecencyBiased(t *testing.T) {
	f := New(5, time.Second)
	defer f.Close()

	require.True(t, f.Append("repeat me", model.LevelInfo))
	for i := 0; i < 5; i++ {
		require.True(t, f.Append(fmt.Sprintf("filler %d", i), model.LevelInfo))
	}

	// оригинал уже выпал из окна последних 5
	assert.True(t, f.Append("repeat me", model.LevelInfo))
	assert.Len(t, f.Entries(), 7)
}

func TestClearResetsLog(t *testing.T) {
	f := New(5, time.Second)
	defer f.Close()

	f.Append("one", model.LevelInfo)
	f.Append("two", model.LevelError)
	f.Clear()
	assert.Empty(t, f.Entries())

	// после очистки дедуп-окно тоже пустое
	assert.True(t, f.Append("one", model.LevelInfo))
}

func TestNotifyReplacesCurrent(t *testing.T) {
	f := New(5, time.Minute)
	defer f.Close()

	f.Notify("first", model.LevelInfo)
	f.Notify("second", model.LevelError)

	n, ok := f.Current()
	require.True(t, ok)
	assert.Equal(t, "second", n.Message)
	assert.Equal(t, model.LevelError, n.Type)
}

func TestNotifyExpires(t *testing.T) {
	f := New(5, 30*time.Millisecond)
	defer f.Close()

	f.Notify("transient", model.LevelSuccess)
	_, ok := f.Current()
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := f.Current()
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestStaleTimerDoesNotClearNewerNotification(t *testing.T) {
	f := New(5, 40*time.Millisecond)
	defer f.Close()

	f.Notify("old", model.LevelInfo)
	time.Sleep(20 * time.Millisecond)
	f.Notify("new", model.LevelInfo)

	// таймер первого уведомления уже не должен стереть второе
	time.Sleep(25 * time.Millisecond)
	n, ok := f.Current()
	require.True(t, ok)
	assert.Equal(t, "new", n.Message)
}

func TestDismissHidesNotification(t *testing.T) {
	f := New(5, time.Minute)
	defer f.Close()

	f.Notify("visible", model.LevelInfo)
	f.Dismiss()
	_, ok := f.Current()
	assert.False(t, ok)
}
