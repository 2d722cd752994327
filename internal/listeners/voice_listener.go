package listeners

import (
	"sort"
	"sync"

	"github.com/code-100-precent/lingecho-vadasr/pkg/events"
	"go.uber.org/zap"
)

// VoiceListener 订阅语音会话事件，记录日志并按类型计数
type VoiceListener struct {
	logger *zap.Logger

	mu     sync.Mutex
	counts map[string]int64
}

// InitVoiceListeners 在总线上注册监听器
func InitVoiceListeners(bus *events.EventBus, logger *zap.Logger) *VoiceListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &VoiceListener{logger: logger, counts: make(map[string]int64)}
	bus.Subscribe(events.Wildcard, l.handle)
	logger.Info("voice module listener is already")
	return l
}

func (l *VoiceListener) handle(ev events.Event) error {
	l.mu.Lock()
	l.counts[ev.Type]++
	l.mu.Unlock()

	fields := []zap.Field{zap.String("event", ev.Type), zap.Any("data", ev.Data)}
	switch ev.Type {
	case events.ASRFailed:
		l.logger.Warn("voice event", fields...)
	case events.VoiceConnected, events.VoiceDisconnected, events.NotificationSent:
		l.logger.Info("voice event", fields...)
	default:
		l.logger.Debug("voice event", fields...)
	}
	return nil
}

// Counts 各类事件的累计次数
func (l *VoiceListener) Counts() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int64, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// Types 出现过的事件类型，按字母序
func (l *VoiceListener) Types() []string {
	counts := l.Counts()
	types := make([]string, 0, len(counts))
	for k := range counts {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}
