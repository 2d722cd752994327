package vad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameInterval = 32 * time.Millisecond

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) tick() time.Time {
	c.t = c.t.Add(frameInterval)
	return c.t
}

func taggedFrame(tag byte) []byte {
	frame := make([]byte, FrameBytes)
	frame[0] = tag
	return frame
}

func TestVoteWindow(t *testing.T) {
	w := NewVoteWindow(3)
	w.Push(true)
	w.Push(true)
	assert.Equal(t, 2, w.Count())
	assert.Equal(t, 2, w.Len())

	w.Push(false)
	w.Push(false)
	assert.Equal(t, 1, w.Count())
	assert.Equal(t, 3, w.Len())

	w.Reset()
	assert.Zero(t, w.Count())
	assert.Zero(t, w.Len())
}

func TestTurnDetector_SilentFramesNoEvent(t *testing.T) {
	d := NewTurnDetector(DefaultDetectorConfig())
	clk := &fakeClock{t: time.Unix(0, 0)}

	for i := 0; i < 3; i++ {
		ev := d.Process(taggedFrame(byte(i)), false, clk.tick())
		assert.Equal(t, EventNone, ev.Type)
	}
	assert.Equal(t, Silent, d.State())
	assert.Zero(t, d.Buffered())
}

func TestTurnDetector_SpeechThenSilence(t *testing.T) {
	d := NewTurnDetector(DefaultDetectorConfig())
	clk := &fakeClock{t: time.Unix(0, 0)}

	var (
		starts, finishes int
		startIdx         = -1
		finish           Event
		finishIdx        int
		sent             [][]byte
	)
	total := 8 + int((2500*time.Millisecond)/frameInterval)
	for i := 0; i < total; i++ {
		frame := taggedFrame(byte(i))
		sent = append(sent, frame)
		ev := d.Process(frame, i < 8, clk.tick())
		switch ev.Type {
		case EventStart:
			starts++
			startIdx = i
		case EventFinish:
			finishes++
			finish = ev
			finishIdx = i
		}
	}

	require.Equal(t, 1, starts)
	require.Equal(t, 1, finishes)
	assert.Equal(t, 5, startIdx)
	assert.Equal(t, Silent, d.State())

	require.NotNil(t, finish.Utterance)
	frames := finish.Utterance.Frames
	require.Len(t, frames, finishIdx-startIdx+1)
	for k, f := range frames {
		assert.Equal(t, sent[startIdx+k], f)
	}
	assert.True(t, finish.Utterance.End.After(finish.Utterance.Start))
}

// 静音计时从投票窗口跌破阈值时开始（第5个静音帧），不是从第一个静音帧开始
func TestTurnDetector_SilenceTimerStartsWhenVotesDrop(t *testing.T) {
	tests := []struct {
		name          string
		silentFrames  int
		wantFinishes  int
		wantState     TurnState
		wantFinishIdx int
	}{
		{"8帧语音加1.6s静音仍在说话", 50, 0, Speaking, -1},
		{"第51个静音帧仍未结束", 51, 0, Speaking, -1},
		{"第52个静音帧结束", 52, 1, Silent, 8 + 51},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewTurnDetector(DefaultDetectorConfig())
			clk := &fakeClock{t: time.Unix(0, 0)}

			var starts, finishes int
			finishIdx := -1
			for i := 0; i < 8+tt.silentFrames; i++ {
				switch d.Process(taggedFrame(byte(i)), i < 8, clk.tick()).Type {
				case EventStart:
					starts++
				case EventFinish:
					finishes++
					finishIdx = i
				}
			}

			assert.Equal(t, 1, starts)
			assert.Equal(t, tt.wantFinishes, finishes)
			assert.Equal(t, tt.wantState, d.State())
			assert.Equal(t, tt.wantFinishIdx, finishIdx)
		})
	}
}

func TestTurnDetector_SpeakingWheneverWindowHasEnoughVotes(t *testing.T) {
	pattern := []bool{
		true, false, true, true, false, true, true, true, false, false,
		true, true, false, true, true, true, false, true, false, true,
		false, false, false, true, true, true, true, true, true, false,
	}
	d := NewTurnDetector(DefaultDetectorConfig())
	clk := &fakeClock{t: time.Unix(0, 0)}

	for i, speech := range pattern {
		d.Process(taggedFrame(byte(i)), speech, clk.tick())

		lo := i - 9
		if lo < 0 {
			lo = 0
		}
		votes := 0
		for _, v := range pattern[lo : i+1] {
			if v {
				votes++
			}
		}
		if votes >= 6 {
			assert.Equal(t, Speaking, d.State(), "frame %d", i)
		}
	}
}

func TestTurnDetector_PauseResetsSilenceTimer(t *testing.T) {
	d := NewTurnDetector(DefaultDetectorConfig())
	clk := &fakeClock{t: time.Unix(0, 0)}

	feed := func(n int, speech bool) (finishes int) {
		for i := 0; i < n; i++ {
			if d.Process(taggedFrame(0), speech, clk.tick()).Type == EventFinish {
				finishes++
			}
		}
		return
	}

	feed(10, true)
	// 1.0s 停顿，不足以结束
	assert.Zero(t, feed(31, false))
	assert.Equal(t, Speaking, d.State())
	feed(10, true)
	assert.Zero(t, feed(31, false))
	assert.Equal(t, Speaking, d.State())
	assert.Equal(t, 1, feed(40, false))
	assert.Equal(t, Silent, d.State())
}

func TestTurnDetector_ResetDropsUtterance(t *testing.T) {
	d := NewTurnDetector(DefaultDetectorConfig())
	clk := &fakeClock{t: time.Unix(0, 0)}
	for i := 0; i < 8; i++ {
		d.Process(taggedFrame(byte(i)), true, clk.tick())
	}
	require.Equal(t, Speaking, d.State())

	d.Reset()
	assert.Equal(t, Silent, d.State())
	assert.Zero(t, d.Buffered())

	for i := 0; i < 100; i++ {
		ev := d.Process(taggedFrame(0), false, clk.tick())
		assert.Equal(t, EventNone, ev.Type)
	}
}
