package vad

import (
	"time"

	"github.com/code-100-precent/lingecho-vadasr/pkg/media"
)

// TurnState 说话状态
type TurnState int

const (
	Silent TurnState = iota
	Speaking
)

func (s TurnState) String() string {
	if s == Speaking {
		return "speaking"
	}
	return "silent"
}

// EventType 状态机输出事件
type EventType int

const (
	EventNone EventType = iota
	EventStart
	EventFinish
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventFinish:
		return "finish"
	default:
		return "none"
	}
}

// Event Process 的结果，Finish 时携带完整发言
type Event struct {
	Type      EventType
	Utterance *media.Utterance
}

// DetectorConfig 轮次检测参数
type DetectorConfig struct {
	WindowSize       int
	MinVoiceFrames   int
	SilenceThreshold time.Duration
	Format           media.AudioFormat
}

// DefaultDetectorConfig 窗口10帧、至少6帧语音、静音1.5秒
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		WindowSize:       10,
		MinVoiceFrames:   6,
		SilenceThreshold: 1500 * time.Millisecond,
		Format:           media.DefaultAudioFormat(),
	}
}

// TurnDetector 把逐帧判定平滑为发言起止事件
// 每条连接一个实例，只在接收协程中使用
type TurnDetector struct {
	cfg          DetectorConfig
	window       *VoteWindow
	buffer       *media.UtteranceBuffer
	state        TurnState
	startedAt    time.Time
	silenceStart time.Time
}

// NewTurnDetector 创建检测器，零值字段取默认
func NewTurnDetector(cfg DetectorConfig) *TurnDetector {
	def := DefaultDetectorConfig()
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.MinVoiceFrames <= 0 {
		cfg.MinVoiceFrames = def.MinVoiceFrames
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = def.SilenceThreshold
	}
	if cfg.Format.SampleRate == 0 {
		cfg.Format = def.Format
	}
	return &TurnDetector{
		cfg:    cfg,
		window: NewVoteWindow(cfg.WindowSize),
		buffer: media.NewUtteranceBuffer(cfg.Format),
	}
}

// State 当前状态
func (d *TurnDetector) State() TurnState { return d.state }

// Buffered 当前发言已缓存的帧数
func (d *TurnDetector) Buffered() int { return d.buffer.Len() }

// Process 输入一帧及其判定，返回触发的事件
func (d *TurnDetector) Process(frame []byte, isSpeech bool, now time.Time) Event {
	d.window.Push(isSpeech)
	speakingNow := d.window.Count() >= d.cfg.MinVoiceFrames

	if d.state == Silent {
		if !speakingNow {
			return Event{Type: EventNone}
		}
		d.state = Speaking
		d.buffer.Reset()
		d.buffer.Append(frame)
		d.startedAt = now
		d.silenceStart = time.Time{}
		return Event{Type: EventStart}
	}

	d.buffer.Append(frame)
	if speakingNow {
		d.silenceStart = time.Time{}
		return Event{Type: EventNone}
	}
	if d.silenceStart.IsZero() {
		d.silenceStart = now
	}
	if now.Sub(d.silenceStart) < d.cfg.SilenceThreshold {
		return Event{Type: EventNone}
	}

	utt := &media.Utterance{
		Format: d.cfg.Format,
		Frames: d.buffer.Frames(),
		Start:  d.startedAt,
		End:    now,
	}
	d.state = Silent
	d.buffer.Reset()
	d.silenceStart = time.Time{}
	d.startedAt = time.Time{}
	return Event{Type: EventFinish, Utterance: utt}
}

// Reset 丢弃未完成的发言，不产生 finish
func (d *TurnDetector) Reset() {
	d.state = Silent
	d.buffer.Reset()
	d.window.Reset()
	d.silenceStart = time.Time{}
	d.startedAt = time.Time{}
}
