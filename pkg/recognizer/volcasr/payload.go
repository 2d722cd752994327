package volcasr

import (
	"github.com/bytedance/sonic"
)

type AppMeta struct {
	AppID   string `json:"appid"`
	Token   string `json:"token"`
	Cluster string `json:"cluster"`
}

type UserMeta struct {
	UID string `json:"uid"`
}

type AudioMeta struct {
	Format  string `json:"format"`
	Codec   string `json:"codec"`
	Rate    int    `json:"rate"`
	Bits    int    `json:"bits"`
	Channel int    `json:"channel"`
}

type RequestMeta struct {
	ReqID          string `json:"reqid"`
	Sequence       int    `json:"sequence"`
	NBest          int    `json:"nbest"`
	ShowUtterances bool   `json:"show_utterances"`
	WorkFlow       string `json:"workflow,omitempty"`
	ResultType     string `json:"result_type,omitempty"`
}

// AsrRequestPayload 握手请求体
type AsrRequestPayload struct {
	App     AppMeta     `json:"app"`
	User    UserMeta    `json:"user"`
	Audio   AudioMeta   `json:"audio"`
	Request RequestMeta `json:"request"`
}

// NewRequestPayload builds the handshake body for one recognition
func NewRequestPayload(cfg Config, reqID string) AsrRequestPayload {
	return AsrRequestPayload{
		App:   AppMeta{AppID: cfg.AppID, Token: cfg.Token, Cluster: cfg.Cluster},
		User:  UserMeta{UID: cfg.UID},
		Audio: AudioMeta{Format: cfg.Format, Codec: cfg.Codec, Rate: cfg.Rate, Bits: cfg.Bits, Channel: cfg.Channel},
		Request: RequestMeta{
			ReqID:          reqID,
			Sequence:       1,
			NBest:          1,
			ShowUtterances: true,
			WorkFlow:       cfg.WorkFlow,
			ResultType:     cfg.ResultType,
		},
	}
}

// NewFullClientRequest 握手帧：type=1 JSON gzip
func NewFullClientRequest(cfg Config, reqID string) ([]byte, error) {
	body, err := sonic.Marshal(NewRequestPayload(cfg, reqID))
	if err != nil {
		return nil, err
	}
	return EncodeFrame(DefaultHeader(), body)
}

// NewAudioOnlyRequest 音频帧：type=2 raw gzip，最后一块带 LastChunk
func NewAudioOnlyRequest(chunk []byte, last bool) ([]byte, error) {
	h := DefaultHeader().
		WithMessageType(AudioOnlyRequest).
		WithSerialization(NoSerialization)
	if last {
		h = h.WithFlags(LastChunk)
	}
	return EncodeFrame(h, chunk)
}
