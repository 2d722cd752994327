package message

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// WriterBufferSize 消息写入器缓冲区大小
	WriterBufferSize = 100
	// WriteTimeout 单条消息写超时
	WriteTimeout = 10 * time.Second
)

// 下行消息标签
const (
	LabelStart   = "start"
	LabelFinish  = "finish"
	LabelChat    = "chat"
	LabelError   = "error"
	LabelHistory = "history"
)

// ErrBufferFull 写缓冲区已满，消息被丢弃
var ErrBufferFull = errors.New("message: writer buffer full")

// Conn 写入器需要的连接能力，*websocket.Conn 满足
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// Writer 异步消息写入器
// Close 之后的所有发送都会被丢弃，迟到的识别结果不会写到已关闭的连接上
type Writer struct {
	conn    Conn
	logger  *zap.Logger
	msgChan chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool

	// OnDrop 连接关闭后被丢弃的消息回调，可为空
	OnDrop func(label string)
	// OnOverflow 缓冲区满被丢弃的消息回调，可为空
	OnOverflow func(label string)
}

// NewWriter 创建消息写入器
func NewWriter(conn Conn, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		conn:    conn,
		logger:  logger,
		msgChan: make(chan []byte, WriterBufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// Alive 连接是否仍可写
func (w *Writer) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed
}

// Done 写入器关闭或写失败时关闭
func (w *Writer) Done() <-chan struct{} {
	return w.ctx.Done()
}

// Close 关闭写入器，丢弃尚未写出的消息
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case msg := <-w.msgChan:
			_ = w.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					w.logger.Debug("WebSocket连接已关闭，停止写入文本消息", zap.Error(err))
				} else {
					w.logger.Warn("写入WebSocket消息失败", zap.Error(err))
				}
				w.cancel()
				w.mu.Lock()
				w.closed = true
				w.mu.Unlock()
				return
			}
		}
	}
}

// SendStart 检测到开始说话
func (w *Writer) SendStart() error {
	return w.sendJSON(LabelStart, map[string]any{"label": LabelStart})
}

// SendFinish 检测到说话结束
func (w *Writer) SendFinish() error {
	return w.sendJSON(LabelFinish, map[string]any{"label": LabelFinish})
}

// SendChat 发送回复文本
func (w *Writer) SendChat(reply string) error {
	return w.sendJSON(LabelChat, map[string]any{"label": LabelChat, "reply": reply})
}

// SendError 发送错误消息，连接保持
func (w *Writer) SendError(message string) error {
	return w.sendJSON(LabelError, map[string]any{"label": LabelError, "error": message})
}

// SendHistory 发送对话记录
func (w *Writer) SendHistory(content string) error {
	return w.sendJSON(LabelHistory, map[string]any{"label": LabelHistory, "content": content})
}

// sendJSON 序列化并入队（异步，非阻塞）
func (w *Writer) sendJSON(label string, data map[string]any) error {
	message, err := sonic.Marshal(data)
	if err != nil {
		w.logger.Error("序列化消息失败", zap.Error(err))
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		if w.OnDrop != nil {
			w.OnDrop(label)
		}
		w.logger.Debug("连接已关闭，丢弃消息", zap.String("label", label))
		return nil
	}
	select {
	case w.msgChan <- message:
		return nil
	default:
		if w.OnOverflow != nil {
			w.OnOverflow(label)
		}
		w.logger.Warn("消息缓冲区已满，丢弃消息", zap.String("label", label))
		return ErrBufferFull
	}
}
