package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T, sessions, lines int) (*Journal, *time.Time) {
	t.Helper()
	j, err := New(sessions, lines)
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	j.now = func() time.Time { return now }
	return j, &now
}

func TestJournal_AppendAndContent(t *testing.T) {
	j, _ := newTestJournal(t, 10, 10)
	j.Append("u1", RoleUser, "你好")
	j.Append("u1", RoleAssistant, "你好呀")
	j.Append("u1", RoleUser, "  ")
	j.Append("u1", RoleUser, "$@$系统通知，非聊天：截图")

	assert.Equal(t, "[2024-05-01 12:00:00] 主人说：你好\n[2024-05-01 12:00:00] 我说：你好呀", j.Content("u1"))
	assert.Empty(t, j.Content("u2"))
}

func TestJournal_MaxLines(t *testing.T) {
	j, _ := newTestJournal(t, 10, 3)
	for i := 0; i < 5; i++ {
		j.Append("u1", RoleUser, fmt.Sprintf("m%d", i))
	}
	lines := j.Lines("u1")
	require.Len(t, lines, 3)
	assert.Equal(t, "m2", lines[0].Text)
	assert.Equal(t, "m4", lines[2].Text)
}

func TestJournal_EvictsLeastRecentlyUsed(t *testing.T) {
	j, _ := newTestJournal(t, 2, 10)
	j.Append("a", RoleUser, "1")
	j.Append("b", RoleUser, "1")
	j.Lines("a")
	j.Append("c", RoleUser, "1")

	assert.Equal(t, 2, j.Len())
	assert.NotEmpty(t, j.Lines("a"))
	assert.Empty(t, j.Lines("b"))
}

func TestJournal_Prune(t *testing.T) {
	j, now := newTestJournal(t, 10, 10)
	j.Append("old", RoleUser, "1")
	*now = now.Add(time.Hour)
	j.Append("new", RoleUser, "1")

	assert.Equal(t, 1, j.Prune(30*time.Minute))
	assert.Empty(t, j.Lines("old"))
	assert.NotEmpty(t, j.Lines("new"))
}

func TestJournal_Concurrent(t *testing.T) {
	j, err := New(10, 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 50; k++ {
				j.Append("shared", RoleUser, "x")
			}
		}()
	}
	wg.Wait()
	assert.Len(t, j.Lines("shared"), 400)
}
