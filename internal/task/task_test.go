package task

import (
	"testing"

	"github.com/code-100-precent/lingecho-vadasr/pkg/history"
	"github.com/code-100-precent/lingecho-vadasr/pkg/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticStats []voice.Stats

func (s staticStats) Stats() []voice.Stats { return s }

func TestLogSessionStats(t *testing.T) {
	stats := []voice.Stats{
		{ID: "a", Frames: 10, Utterances: 1},
		{ID: "b", Frames: 5},
	}
	assert.Equal(t, int64(15), LogSessionStats(zap.NewNop(), stats))
	assert.Zero(t, LogSessionStats(zap.NewNop(), nil))
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(nil)
	j, err := history.New(4, 4)
	require.NoError(t, err)

	assert.NoError(t, s.AddSessionStats("@every 1m", staticStats{}))
	assert.Error(t, s.AddSessionStats("not a schedule", staticStats{}))
	assert.NoError(t, s.AddJournalPruner(j, 0))

	s.Start()
	s.Stop()
}
