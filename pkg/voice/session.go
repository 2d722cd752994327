package voice

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/code-100-precent/lingecho-vadasr/pkg/events"
	"github.com/code-100-precent/lingecho-vadasr/pkg/history"
	"github.com/code-100-precent/lingecho-vadasr/pkg/media"
	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer"
	"github.com/code-100-precent/lingecho-vadasr/pkg/reply"
	"github.com/code-100-precent/lingecho-vadasr/pkg/vad"
	"github.com/code-100-precent/lingecho-vadasr/pkg/voice/errhandler"
	"github.com/code-100-precent/lingecho-vadasr/pkg/voice/message"
	"go.uber.org/zap"
)

// task 会话任务，按入队顺序在单个消费协程里执行
type task struct {
	name string
	run  func(ctx context.Context)
}

// inbound 客户端文本消息
type inbound struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Image string `json:"image"`
}

// Session 一个客户端连接的会话状态
type Session struct {
	ID         string
	UserID     string
	RemoteAddr string
	CreatedAt  time.Time

	h      *Handler
	ctx    context.Context
	cancel context.CancelFunc
	writer *message.Writer
	logger *zap.Logger

	// 以下两个字段只在接收协程里访问
	vadState vad.State
	detector *vad.TurnDetector

	tasks     chan task
	tasksDone chan struct{}

	frames     atomic.Int64
	utterances atomic.Int64
	lastActive atomic.Int64
}

// Stats 会话统计快照
type Stats struct {
	ID         string
	UserID     string
	RemoteAddr string
	Frames     int64
	Utterances int64
	Age        time.Duration
	Idle       time.Duration
}

// Writer 会话的下行写入器
func (s *Session) Writer() *message.Writer {
	return s.writer
}

// Context 连接断开时取消
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Stats(now time.Time) Stats {
	return Stats{
		ID:         s.ID,
		UserID:     s.UserID,
		RemoteAddr: s.RemoteAddr,
		Frames:     s.frames.Load(),
		Utterances: s.utterances.Load(),
		Age:        now.Sub(s.CreatedAt),
		Idle:       now.Sub(time.Unix(0, s.lastActive.Load())),
	}
}

func (s *Session) touch() {
	s.lastActive.Store(s.h.now().UnixNano())
}

// handleAudio 接收协程调用，不做任何阻塞操作
func (s *Session) handleAudio(frame []byte) {
	s.touch()
	s.frames.Add(1)

	if len(frame) == 0 || len(frame)%2 != 0 {
		s.h.metrics.RecordFrame(frameKindInvalid)
		s.logger.Debug("丢弃非法音频帧", zap.Int("size", len(frame)))
		return
	}

	speech, next := s.h.classifier.Classify(frame, s.vadState)
	s.vadState = next
	switch {
	case len(frame) != vad.FrameBytes:
		s.h.metrics.RecordFrame(frameKindInvalid)
	case speech:
		s.h.metrics.RecordFrame(frameKindSpeech)
	default:
		s.h.metrics.RecordFrame(frameKindNonSpeech)
	}

	ev := s.detector.Process(frame, speech, s.h.now())
	switch ev.Type {
	case vad.EventStart:
		s.logger.Info(">>> start speaking")
		_ = s.writer.SendStart()
		s.publish(events.TurnStarted, nil)
	case vad.EventFinish:
		utt := ev.Utterance
		s.logger.Info("<<< end speaking, ASR",
			zap.Int("frames", len(utt.Frames)),
			zap.Duration("duration", utt.Duration()))
		_ = s.writer.SendFinish()
		s.utterances.Add(1)
		s.h.metrics.RecordUtterance(utt.Duration())
		s.publish(events.TurnFinished, map[string]any{"durationMs": utt.Duration().Milliseconds()})
		s.enqueue("recognize", func(ctx context.Context) {
			s.recognize(ctx, utt)
		})
	}
}

// handleText 文本消息分发，解析失败的消息直接忽略
func (s *Session) handleText(raw []byte) {
	s.touch()

	var msg inbound
	if err := sonic.Unmarshal(raw, &msg); err != nil || msg.Label == "" {
		s.logger.Debug("忽略无法解析的文本消息", zap.Int("size", len(raw)))
		return
	}

	switch msg.Label {
	case LabelTextInput:
		text := strings.TrimSpace(msg.Text)
		s.logger.Info("[on_message] text_input", zap.String("text", text))
		if text == "" {
			return
		}
		s.enqueue(LabelTextInput, func(ctx context.Context) {
			s.respond(ctx, text)
		})
	case LabelHistoryRequest:
		_ = s.writer.SendHistory(s.h.journal.Content(s.UserID))
	case LabelNotification:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return
		}
		s.enqueue(LabelNotification, func(ctx context.Context) {
			if err := s.h.Notify(ctx, text); err != nil {
				s.logger.Warn("通知发送失败", zap.Error(err))
			}
		})
	case LabelScreenshotResult:
		if msg.Image == "" {
			_ = s.writer.SendError(ErrMsgEmptyImage)
			return
		}
		s.enqueue(msg.Label, func(ctx context.Context) {
			s.forwardEvent(ctx, msg.Label, raw)
		})
	default:
		label := msg.Label
		s.enqueue(label, func(ctx context.Context) {
			s.forwardEvent(ctx, label, raw)
		})
	}
}

// enqueue 非阻塞入队，队列满时丢弃并告知客户端
func (s *Session) enqueue(name string, run func(ctx context.Context)) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.tasks <- task{name: name, run: run}:
		return true
	default:
		s.h.metrics.RecordTaskDropped()
		s.logger.Warn("任务队列已满，丢弃任务", zap.String("task", name))
		_ = s.writer.SendError(ErrMsgBusy)
		return false
	}
}

func (s *Session) runTasks() {
	defer close(s.tasksDone)
	for {
		select {
		case <-s.ctx.Done():
			return
		case t := <-s.tasks:
			s.runTask(t)
		}
	}
}

func (s *Session) runTask(t task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("会话任务panic", zap.String("task", t.name), zap.Any("panic", r))
		}
	}()
	t.run(s.ctx)
}

// recognize 识别一段发言，成功后进入回复流程
func (s *Session) recognize(ctx context.Context, utt *media.Utterance) {
	vendor := string(s.h.recognizer.Vendor())
	wav, err := utt.WAV()
	if err != nil {
		e := s.h.errs.HandleError(err, errhandler.ServiceASR, zap.String("sessionId", s.ID))
		_ = s.writer.SendError(e.Message)
		return
	}

	var res *recognizer.Result
	start := time.Now()
	err = s.h.pool.Do(ctx, func(ctx context.Context) error {
		var rerr error
		res, rerr = s.h.recognizer.Recognize(ctx, wav)
		return rerr
	})
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		s.h.metrics.RecordASR(vendor, "canceled", elapsed)
		s.h.metrics.RecordLateResultDropped()
		s.logger.Debug("连接已关闭，丢弃识别结果")
		return
	}
	if err != nil {
		s.h.metrics.RecordASR(vendor, "error", elapsed)
		e := s.h.errs.HandleError(err, errhandler.ServiceASR, zap.String("sessionId", s.ID))
		s.publish(events.ASRFailed, map[string]any{"error": err.Error()})
		_ = s.writer.SendError(e.Message)
		return
	}

	text := ""
	if res != nil {
		text = strings.TrimSpace(res.Text)
	}
	if text == "" {
		s.h.metrics.RecordASR(vendor, "empty", elapsed)
		s.logger.Info("[ASR] 结果为空")
		_ = s.writer.SendError(errhandler.UserMessage(errhandler.ServiceASR))
		return
	}

	s.h.metrics.RecordASR(vendor, "ok", elapsed)
	s.logger.Info("[ASR] "+text, zap.Duration("elapsed", elapsed))
	s.publish(events.ASRCompleted, map[string]any{"text": text, "vendor": vendor})
	s.respond(ctx, text)
}

// respond 记录用户文本，生成回复并推送
func (s *Session) respond(ctx context.Context, text string) {
	s.h.journal.Append(s.UserID, history.RoleUser, text)

	var answer string
	start := time.Now()
	err := s.h.pool.Do(ctx, func(ctx context.Context) error {
		rctx, cancel := context.WithTimeout(ctx, s.h.replyTimeout)
		defer cancel()
		var rerr error
		answer, rerr = s.h.pipeline.GenerateReply(rctx, text, s.UserID)
		return rerr
	})
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		s.h.metrics.RecordLateResultDropped()
		return
	}
	if err != nil {
		s.h.metrics.RecordReply("error", elapsed)
		e := s.h.errs.HandleError(err, errhandler.ServiceReply, zap.String("sessionId", s.ID))
		_ = s.writer.SendError(e.Message)
		return
	}

	s.h.metrics.RecordReply("ok", elapsed)
	s.h.journal.Append(s.UserID, history.RoleAssistant, answer)
	_ = s.writer.SendChat(answer)
	s.publish(events.ReplySent, map[string]any{"chars": len([]rune(answer))})
}

// forwardEvent 透传客户端事件
func (s *Session) forwardEvent(ctx context.Context, label string, raw []byte) {
	var answer string
	err := s.h.pool.Do(ctx, func(ctx context.Context) error {
		var ferr error
		answer, ferr = s.h.sink.HandleEvent(ctx, reply.EventSource{SessionID: s.ID, UserID: s.UserID}, label, raw)
		return ferr
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		e := s.h.errs.HandleError(err, errhandler.ServiceEvent,
			zap.String("sessionId", s.ID), zap.String("label", label))
		_ = s.writer.SendError(e.Message)
		return
	}
	if answer != "" {
		_ = s.writer.SendChat(answer)
	}
}

func (s *Session) publish(eventType string, data map[string]any) {
	if s.h.bus == nil {
		return
	}
	if data == nil {
		data = make(map[string]any, 2)
	}
	data["sessionId"] = s.ID
	data["userId"] = s.UserID
	s.h.bus.Publish(events.Event{Type: eventType, Data: data, Source: "voice"})
}
