package volcasr

import "time"

// Config 火山引擎 v2 流式识别配置
type Config struct {
	URL     string `json:"url" yaml:"url" default:"wss://openspeech.bytedance.com/api/v2/asr"`
	AppID   string `json:"appId" yaml:"app_id"`
	Token   string `json:"token" yaml:"token"`
	Cluster string `json:"cluster" yaml:"cluster" default:"volcengine_input_common"`
	UID     string `json:"uid" yaml:"uid"`

	// 音频描述，整段WAV（含头）按块发送
	Format  string `json:"format" yaml:"format" default:"wav"`
	Codec   string `json:"codec" yaml:"codec" default:"raw"`
	Rate    int    `json:"rate" yaml:"rate" default:"16000"`
	Bits    int    `json:"bits" yaml:"bits" default:"16"`
	Channel int    `json:"channel" yaml:"channel" default:"1"`

	WorkFlow   string `json:"workFlow" yaml:"work_flow"`
	ResultType string `json:"resultType" yaml:"result_type"`

	ChunkMs     int           `json:"chunkMs" yaml:"chunk_ms" default:"200"`
	SendTimeout time.Duration `json:"sendTimeout" yaml:"send_timeout"`
	ReadTimeout time.Duration `json:"readTimeout" yaml:"read_timeout"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		URL:         "wss://openspeech.bytedance.com/api/v2/asr",
		Cluster:     "volcengine_input_common",
		UID:         "user123",
		Format:      "wav",
		Codec:       "raw",
		Rate:        16000,
		Bits:        16,
		Channel:     1,
		ChunkMs:     200,
		SendTimeout: 5 * time.Second,
		ReadTimeout: 10 * time.Second,
	}
}

// withDefaults fills zero values from DefaultConfig
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.URL == "" {
		c.URL = def.URL
	}
	if c.Cluster == "" {
		c.Cluster = def.Cluster
	}
	if c.UID == "" {
		c.UID = def.UID
	}
	if c.Format == "" {
		c.Format = def.Format
	}
	if c.Codec == "" {
		c.Codec = def.Codec
	}
	if c.Rate <= 0 {
		c.Rate = def.Rate
	}
	if c.Bits <= 0 {
		c.Bits = def.Bits
	}
	if c.Channel <= 0 {
		c.Channel = def.Channel
	}
	if c.ChunkMs <= 0 {
		c.ChunkMs = def.ChunkMs
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = def.SendTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	return c
}

// ChunkSize calculates the chunk size based on audio format and chunk duration
func (c Config) ChunkSize() int {
	bytesPerMs := (c.Bits / 8) * c.Channel * c.Rate / 1000
	return bytesPerMs * c.ChunkMs
}
