package voice

import "time"

// 上行消息标签
const (
	LabelTextInput        = "text_input"
	LabelHistoryRequest   = "history_request"
	LabelNotification     = "notification"
	LabelScreenshotResult = "screenshot_result"
)

const (
	// DefaultQueueSize 单个会话待执行任务上限
	DefaultQueueSize = 32
	// DefaultReplyTimeout 单次回复生成超时
	DefaultReplyTimeout = 30 * time.Second
	// DefaultUserID 客户端未声明身份时的对话归属
	DefaultUserID = "user123"

	frameKindSpeech    = "speech"
	frameKindNonSpeech = "non_speech"
	frameKindInvalid   = "invalid"
)

// 返回给客户端的错误文本
const (
	ErrMsgEmptyImage = "empty image"
	ErrMsgBusy       = "busy"
)
