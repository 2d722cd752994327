package volcasr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// RecognitionResult 一次识别的最终结果
type RecognitionResult struct {
	Text       string
	ReqID      string
	Sequence   int
	Final      bool
	Utterances []Utterance
	Duration   time.Duration
}

// Client 每次 Recognize 建立一条独立连接，可被多个协程并发使用
type Client struct {
	config Config
	dialer *websocket.Dialer
}

func NewClient(config Config) *Client {
	return &Client{
		config: config.withDefaults(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Config 生效配置
func (c *Client) Config() Config {
	return c.config
}

// NewAuthHeader v2 接口鉴权头
func NewAuthHeader(token string) http.Header {
	header := http.Header{}
	header.Set("Authorization", "Bearer; "+token)
	return header
}

// Recognize 握手、分块发送整段音频，然后读取直到终结帧
func (c *Client) Recognize(ctx context.Context, audio []byte) (*RecognitionResult, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	start := time.Now()
	reqID := uuid.New().String()
	log := logrus.WithFields(logrus.Fields{
		"reqid":   reqID,
		"cluster": c.config.Cluster,
		"bytes":   len(audio),
	})

	conn, resp, err := c.dialer.DialContext(ctx, c.config.URL, NewAuthHeader(c.config.Token))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if resp != nil {
			log = log.WithField("status", resp.StatusCode)
		}
		log.WithError(err).Error("volcasr: dial websocket failed")
		return nil, fmt.Errorf("%w: %v", ErrDial, err)
	}
	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			log = log.WithField("traceId", logID)
		}
	}
	defer conn.Close()

	// ctx 取消时关闭连接，打断阻塞中的读写
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := c.send(ctx, conn, reqID, audio, log); err != nil {
		return nil, err
	}

	result, err := c.receive(ctx, conn, log)
	if err != nil {
		return nil, err
	}
	result.ReqID = reqID
	result.Duration = time.Since(start)

	_ = conn.SetWriteDeadline(time.Now().Add(c.config.SendTimeout))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	log.WithFields(logrus.Fields{
		"text":     result.Text,
		"duration": result.Duration.String(),
	}).Info("volcasr: recognition finished")
	return result, nil
}

func (c *Client) send(ctx context.Context, conn *websocket.Conn, reqID string, audio []byte, log *logrus.Entry) error {
	handshake, err := NewFullClientRequest(c.config, reqID)
	if err != nil {
		return fmt.Errorf("volcasr: build handshake: %w", err)
	}
	if err := c.write(conn, handshake); err != nil {
		return c.transportError(ctx, err, log, "send handshake")
	}

	chunkSize := c.config.ChunkSize()
	if chunkSize <= 0 {
		chunkSize = len(audio)
	}
	seq := 1
	for offset := 0; offset < len(audio); offset += chunkSize {
		end := offset + chunkSize
		last := end >= len(audio)
		if last {
			end = len(audio)
		}
		seq++
		msg, err := NewAudioOnlyRequest(audio[offset:end], last)
		if err != nil {
			return fmt.Errorf("volcasr: build audio frame: %w", err)
		}
		if err := c.write(conn, msg); err != nil {
			return c.transportError(ctx, err, log, "send audio")
		}
		if last {
			log.WithField("seq", -seq).Debug("volcasr: sent final audio chunk")
		}
	}
	return nil
}

func (c *Client) receive(ctx context.Context, conn *websocket.Conn, log *logrus.Entry) (*RecognitionResult, error) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, c.transportError(ctx, err, log, "read response")
		}

		resp, err := ParseResponse(msg)
		if err != nil {
			log.WithError(err).Warn("volcasr: bad response")
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"type":     resp.MessageType.String(),
			"code":     resp.Code,
			"sequence": resp.Sequence,
		}).Debug("volcasr: response")

		if resp.IsTerminal() {
			return &RecognitionResult{
				Text:       resp.Text(),
				Sequence:   resp.Sequence,
				Final:      true,
				Utterances: firstUtterances(resp),
			}, nil
		}
	}
}

func (c *Client) write(conn *websocket.Conn, msg []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.SendTimeout))
	return conn.WriteMessage(websocket.BinaryMessage, msg)
}

// transportError 把底层错误归类为 ctx 错误、超时或连接关闭
func (c *Client) transportError(ctx context.Context, err error, log *logrus.Entry, operation string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		log.WithField("operation", operation).Warn("volcasr: timed out")
		if operation == "read response" {
			return ErrNoResult
		}
		return fmt.Errorf("%w: %s timed out", ErrConnClosed, operation)
	}
	if !isNormalCloseError(err) {
		log.WithError(err).WithField("operation", operation).Error("volcasr: connection error occurred")
	}
	return fmt.Errorf("%w: %v", ErrConnClosed, err)
}

// isNormalCloseError checks if the error is a normal WebSocket close error
func isNormalCloseError(err error) bool {
	var closeError *websocket.CloseError
	if errors.As(err, &closeError) {
		switch closeError.Code {
		case websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived:
			return true
		}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}

func firstUtterances(resp *Response) []Utterance {
	if len(resp.Results) == 0 {
		return nil
	}
	return resp.Results[0].Utterances
}
