package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, Load())

	cfg := GlobalConfig
	assert.Equal(t, ":5001", cfg.Addr)
	assert.Equal(t, "/vad_asr", cfg.WSPath)
	assert.Equal(t, 8, cfg.WorkerPoolSize)
	assert.Equal(t, 10, cfg.VAD.WindowSize)
	assert.Equal(t, 6, cfg.VAD.MinVoiceFrames)
	assert.Equal(t, 1500*time.Millisecond, cfg.VAD.SilenceThreshold)
	assert.InDelta(t, 0.6, cfg.VAD.Threshold, 1e-9)
	assert.Equal(t, "volcengine", cfg.ASR.Vendor)
	assert.Equal(t, 200, cfg.ASR.ChunkMs)
	assert.Equal(t, "user123", cfg.DefaultUserID)
	assert.False(t, cfg.RedisEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ADDR", ":6000")
	t.Setenv("VAD_SILENCE_THRESHOLD", "2s")
	t.Setenv("VAD_THRESHOLD", "0.5")
	t.Setenv("WORKER_POOL_SIZE", "4")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("ASR_VENDOR", "whisper")
	require.NoError(t, Load())

	cfg := GlobalConfig
	assert.Equal(t, ":6000", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.VAD.SilenceThreshold)
	assert.InDelta(t, 0.5, cfg.VAD.Threshold, 1e-9)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, "whisper", cfg.ASR.Vendor)
}

func TestLoad_CorrectionWords(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ASR_REPLACE_WORDS", `{"苹果":"Apple"}`)
	t.Setenv("ASR_FUZZY_WORDS", "灵犀 小爱")
	require.NoError(t, Load())

	assert.Equal(t, map[string]string{"苹果": "Apple"}, GlobalConfig.ASR.ReplaceWords)
	assert.Equal(t, []string{"灵犀", "小爱"}, GlobalConfig.ASR.FuzzyWords)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
