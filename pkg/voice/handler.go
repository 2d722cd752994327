package voice

import (
	"context"
	"errors"
	"time"

	"github.com/code-100-precent/lingecho-vadasr/pkg/events"
	"github.com/code-100-precent/lingecho-vadasr/pkg/history"
	"github.com/code-100-precent/lingecho-vadasr/pkg/metrics"
	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer"
	"github.com/code-100-precent/lingecho-vadasr/pkg/reply"
	"github.com/code-100-precent/lingecho-vadasr/pkg/vad"
	"github.com/code-100-precent/lingecho-vadasr/pkg/voice/errhandler"
	"github.com/code-100-precent/lingecho-vadasr/pkg/voice/message"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn 会话需要的连接能力，*websocket.Conn 满足
type Conn interface {
	message.Conn
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Notifier 跨实例通知中继，为空时只在本实例广播
type Notifier interface {
	Publish(ctx context.Context, text string) error
}

// ClientInfo 连接建立时从请求中取得的客户端信息
type ClientInfo struct {
	UserID     string
	RemoteAddr string
}

// Options 处理器依赖
type Options struct {
	Classifier *vad.Classifier
	Detector   vad.DetectorConfig
	Recognizer recognizer.Recognizer
	Pipeline   reply.Pipeline
	Sink       reply.EventSink
	Journal    *history.Journal
	Registry   *Registry
	Pool       *Pool
	Notifier   Notifier
	Metrics    *metrics.Metrics
	Bus        *events.EventBus
	Logger     *zap.Logger

	QueueSize     int
	ReplyTimeout  time.Duration
	DefaultUserID string
	Now           func() time.Time
}

// Handler 语音连接处理器，所有连接共享
type Handler struct {
	classifier   *vad.Classifier
	detectorCfg  vad.DetectorConfig
	recognizer   recognizer.Recognizer
	pipeline     reply.Pipeline
	sink         reply.EventSink
	journal      *history.Journal
	registry     *Registry
	pool         *Pool
	notifier     Notifier
	metrics      *metrics.Metrics
	bus          *events.EventBus
	logger       *zap.Logger
	errs         *errhandler.Handler
	queueSize    int
	replyTimeout time.Duration
	defaultUser  string
	now          func() time.Time
}

// NewHandler 创建处理器，Classifier Recognizer Pipeline 必填
func NewHandler(opts Options) (*Handler, error) {
	if opts.Classifier == nil {
		return nil, errors.New("voice: classifier is required")
	}
	if opts.Recognizer == nil {
		return nil, errors.New("voice: recognizer is required")
	}
	if opts.Pipeline == nil {
		return nil, errors.New("voice: reply pipeline is required")
	}

	h := &Handler{
		classifier:   opts.Classifier,
		detectorCfg:  opts.Detector,
		recognizer:   opts.Recognizer,
		pipeline:     opts.Pipeline,
		sink:         opts.Sink,
		journal:      opts.Journal,
		registry:     opts.Registry,
		pool:         opts.Pool,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		bus:          opts.Bus,
		logger:       opts.Logger,
		queueSize:    opts.QueueSize,
		replyTimeout: opts.ReplyTimeout,
		defaultUser:  opts.DefaultUserID,
		now:          opts.Now,
	}
	if h.detectorCfg.WindowSize == 0 {
		h.detectorCfg = vad.DefaultDetectorConfig()
	}
	if h.sink == nil {
		h.sink = reply.NopSink{}
	}
	if h.journal == nil {
		j, err := history.New(1024, 200)
		if err != nil {
			return nil, err
		}
		h.journal = j
	}
	if h.registry == nil {
		h.registry = NewRegistry()
	}
	if h.metrics == nil {
		h.metrics = metrics.NewMetrics("vadasr")
	}
	if h.pool == nil {
		h.pool = NewPool(8, h.metrics.SetPoolInFlight)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.queueSize <= 0 {
		h.queueSize = DefaultQueueSize
	}
	if h.replyTimeout <= 0 {
		h.replyTimeout = DefaultReplyTimeout
	}
	if h.defaultUser == "" {
		h.defaultUser = DefaultUserID
	}
	if h.now == nil {
		h.now = time.Now
	}
	h.errs = errhandler.NewHandler(h.logger)
	return h, nil
}

// Registry 当前连接集合
func (h *Handler) Registry() *Registry {
	return h.registry
}

// Journal 对话记录
func (h *Handler) Journal() *history.Journal {
	return h.journal
}

// Notify 推送通知：配置了中继时经中继分发，否则直接广播到本实例
func (h *Handler) Notify(ctx context.Context, text string) error {
	if h.notifier != nil {
		return h.notifier.Publish(ctx, text)
	}
	h.Broadcast(text)
	return nil
}

// Broadcast 本实例广播，返回送达的连接数
func (h *Handler) Broadcast(text string) int {
	n := h.registry.BroadcastChat(text)
	h.logger.Info("通知已广播", zap.Int("sessions", n))
	if h.bus != nil {
		h.bus.Publish(events.Event{
			Type:   events.NotificationSent,
			Data:   map[string]any{"sessions": n},
			Source: "voice",
		})
	}
	return n
}

// Stats 全部会话的统计快照
func (h *Handler) Stats() []Stats {
	now := h.now()
	sessions := h.registry.Snapshot()
	out := make([]Stats, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Stats(now))
	}
	return out
}

// HandleWebSocket 处理一个连接直到断开，ctx 取消时主动关闭连接
func (h *Handler) HandleWebSocket(ctx context.Context, conn Conn, info ClientInfo) {
	s := h.newSession(ctx, conn, info)
	h.registry.Add(s)
	h.metrics.RecordConnectionOpened()
	s.publish(events.VoiceConnected, map[string]any{"remoteAddr": info.RemoteAddr})
	s.logger.Info("✅ 客户端连接，开始监听音频", zap.String("remoteAddr", info.RemoteAddr))

	go s.runTasks()
	go func() {
		<-s.ctx.Done()
		_ = conn.Close()
	}()

	err := h.readLoop(s, conn)
	h.closeSession(s, err)
}

func (h *Handler) newSession(ctx context.Context, conn Conn, info ClientInfo) *Session {
	id := uuid.NewString()
	userID := info.UserID
	if userID == "" {
		userID = h.defaultUser
	}
	sctx, cancel := context.WithCancel(ctx)
	logger := h.logger.With(zap.String("sessionId", id), zap.String("userId", userID))

	writer := message.NewWriter(conn, logger)
	writer.OnDrop = func(string) { h.metrics.RecordLateResultDropped() }
	writer.OnOverflow = h.metrics.RecordOutboundOverflow

	s := &Session{
		ID:         id,
		UserID:     userID,
		RemoteAddr: info.RemoteAddr,
		CreatedAt:  h.now(),
		h:          h,
		ctx:        sctx,
		cancel:     cancel,
		writer:     writer,
		logger:     logger,
		vadState:   vad.NewState(),
		detector:   vad.NewTurnDetector(h.detectorCfg),
		tasks:      make(chan task, h.queueSize),
		tasksDone:  make(chan struct{}),
	}
	s.touch()
	return s
}

func (h *Handler) readLoop(s *Session, conn Conn) error {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		switch mt {
		case websocket.BinaryMessage:
			s.handleAudio(data)
		case websocket.TextMessage:
			s.handleText(data)
		}
	}
}

// closeSession 在接收协程里执行，未完成的发言直接丢弃
func (h *Handler) closeSession(s *Session, reason error) {
	s.cancel()
	s.detector.Reset()
	h.registry.Remove(s.ID)
	_ = s.writer.Close()
	h.metrics.RecordConnectionClosed()

	if f, ok := h.pipeline.(reply.Forgetter); ok && !h.userOnline(s.UserID) {
		f.Forget(s.UserID)
	}

	fields := []zap.Field{zap.Int64("frames", s.frames.Load()), zap.Int64("utterances", s.utterances.Load())}
	if reason != nil && !websocket.IsCloseError(reason, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		fields = append(fields, zap.Error(reason))
	}
	s.logger.Info("⚠️ 关闭", fields...)
	s.publish(events.VoiceDisconnected, nil)
}

func (h *Handler) userOnline(userID string) bool {
	for _, other := range h.registry.Snapshot() {
		if other.UserID == userID {
			return true
		}
	}
	return false
}
