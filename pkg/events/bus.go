package events

import (
	"sync"
	"time"

	"github.com/code-100-precent/lingecho-vadasr/pkg/logger"
	"go.uber.org/zap"
)

// 语音会话事件类型
const (
	VoiceConnected    = "voice.connected"
	VoiceDisconnected = "voice.disconnected"
	TurnStarted       = "voice.turn.started"
	TurnFinished      = "voice.turn.finished"
	ASRCompleted      = "voice.asr.completed"
	ASRFailed         = "voice.asr.failed"
	ReplySent         = "voice.reply.sent"
	NotificationSent  = "voice.notification"

	// Wildcard 订阅全部事件
	Wildcard = "*"
)

// Event 系统事件
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
	Source    string         `json:"source"`
}

// EventHandler 事件处理器
type EventHandler func(event Event) error

// EventBus 事件总线，处理器异步执行
type EventBus struct {
	handlers       map[string][]EventHandler
	publishedTypes map[string]time.Time
	mu             sync.RWMutex
}

var globalEventBus *EventBus
var once sync.Once

// NewEventBus 创建独立的事件总线
func NewEventBus() *EventBus {
	return &EventBus{
		handlers:       make(map[string][]EventHandler),
		publishedTypes: make(map[string]time.Time),
	}
}

// GetEventBus 获取全局事件总线实例
func GetEventBus() *EventBus {
	once.Do(func() {
		globalEventBus = NewEventBus()
	})
	return globalEventBus
}

// Subscribe 订阅事件
func (bus *EventBus) Subscribe(eventType string, handler EventHandler) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.handlers[eventType] = append(bus.handlers[eventType], handler)
	logger.Debug("Event handler subscribed", zap.String("eventType", eventType))
}

// Unsubscribe 移除该类型的全部处理器
func (bus *EventBus) Unsubscribe(eventType string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.handlers, eventType)
}

// Publish 发布事件
func (bus *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	bus.mu.Lock()
	if _, exists := bus.publishedTypes[event.Type]; !exists {
		bus.publishedTypes[event.Type] = event.Timestamp
	}
	handlers := make([]EventHandler, 0, len(bus.handlers[event.Type])+len(bus.handlers[Wildcard]))
	handlers = append(handlers, bus.handlers[event.Type]...)
	handlers = append(handlers, bus.handlers[Wildcard]...)
	bus.mu.Unlock()

	for _, handler := range handlers {
		go func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Event handler panicked",
						zap.String("eventType", event.Type),
						zap.Any("panic", r))
				}
			}()
			if err := h(event); err != nil {
				logger.Error("Event handler failed",
					zap.String("eventType", event.Type),
					zap.Error(err))
			}
		}(handler)
	}
}

// GetPublishedEventTypes 获取所有发布过的事件类型
func (bus *EventBus) GetPublishedEventTypes() map[string]time.Time {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	result := make(map[string]time.Time, len(bus.publishedTypes))
	for k, v := range bus.publishedTypes {
		result[k] = v
	}
	return result
}

// PublishEvent 便捷方法：发布到全局总线
func PublishEvent(eventType string, data map[string]any, source string) {
	GetEventBus().Publish(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Source:    source,
	})
}
