package volcasr

import (
	"fmt"

	"github.com/bytedance/sonic"
)

type Response struct {
	Reqid    string   `json:"reqid"`
	Code     int      `json:"code"`
	Message  string   `json:"message"`
	Sequence int      `json:"sequence"`
	Results  []Result `json:"result,omitempty"`

	MessageType MessageType `json:"-"`
}

type Result struct {
	Text       string      `json:"text"`
	Confidence int         `json:"confidence"`
	Language   string      `json:"language,omitempty"`
	Utterances []Utterance `json:"utterances,omitempty"`
}

type Utterance struct {
	Text      string `json:"text"`
	StartTime int    `json:"start_time"`
	EndTime   int    `json:"end_time"`
	Definite  bool   `json:"definite"`
}

// IsTerminal 只有 code==1000 且 sequence<0 才是最终结果
func (r *Response) IsTerminal() bool {
	return r.Code == SuccessCode && r.Sequence < 0
}

// Text 首个候选的文本
func (r *Response) Text() string {
	if len(r.Results) == 0 {
		return ""
	}
	return r.Results[0].Text
}

// ServerError 服务端错误帧
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("volcasr: server response error code: %d msg: %s", e.Code, e.Message)
}

func (e *ServerError) Unwrap() error { return ErrServerError }

// ParseResponse 解码一条服务端消息
// 错误帧返回 *ServerError，不带payload的ack返回只有 Sequence 的响应
func ParseResponse(msg []byte) (*Response, error) {
	f, err := DecodeFrame(msg)
	if err != nil {
		return nil, err
	}
	resp := &Response{MessageType: f.Header.MessageType}

	if f.Header.MessageType == ServerErrorResponse {
		if len(f.Payload) > 0 {
			// 非 JSON、解析失败或没有 message 时保留原始内容
			if f.Header.Serialization != JSON || sonic.Unmarshal(f.Payload, resp) != nil || resp.Message == "" {
				resp.Message = string(f.Payload)
			}
		}
		resp.MessageType = ServerErrorResponse
		resp.Code = int(f.Code)
		return resp, &ServerError{Code: int(f.Code), Message: resp.Message}
	}

	if f.Header.MessageType == ServerAck {
		resp.Sequence = int(f.Sequence)
	}
	if len(f.Payload) == 0 || f.Header.Serialization != JSON {
		return resp, nil
	}
	if err := sonic.Unmarshal(f.Payload, resp); err != nil {
		return nil, fmt.Errorf("%w: invalid json payload: %v", ErrMalformedFrame, err)
	}
	resp.MessageType = f.Header.MessageType
	return resp, nil
}
