package notification

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{"正常通知", `{"text":"开饭了","origin":"a","sentAt":1}`, "开饭了", false},
		{"空文本", `{"text":"","origin":"a"}`, "", true},
		{"非法JSON", `not json`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.Text)
		})
	}

	encoded, err := EncodeEnvelope(Envelope{Text: "你好", Origin: "x"})
	require.NoError(t, err)
	env, err := DecodeEnvelope(encoded)
	require.NoError(t, err)
	assert.Equal(t, "x", env.Origin)
}

func TestNewRelay_Defaults(t *testing.T) {
	r := NewRelay(RelayConfig{Addr: "localhost:0"}, nil)
	defer r.Close()
	assert.Equal(t, "lingecho:notify", r.channel)
	assert.NotEmpty(t, r.Instance())
}

// 需要真实 Redis：REDIS_TEST_ADDR=localhost:6379
func TestRelay_PublishSubscribe(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	r := NewRelay(RelayConfig{Addr: addr, Channel: "lingecho:test:" + time.Now().Format("150405.000")}, nil)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Ping(ctx))

	got := make(chan string, 1)
	go func() {
		_ = r.Run(ctx, func(text string) int {
			got <- text
			return 1
		})
	}()

	// 订阅建立之前的发布会丢失，重复发布直到收到
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case text := <-got:
			assert.Equal(t, "跨实例", text)
			return
		case <-tick.C:
			require.NoError(t, r.Publish(ctx, "跨实例"))
		case <-ctx.Done():
			t.Fatal("no notification received")
		}
	}
}
