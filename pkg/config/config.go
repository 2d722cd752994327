package config

import (
	"log"
	"os"
	"time"

	"github.com/code-100-precent/lingecho-vadasr/pkg/logger"
	"github.com/code-100-precent/lingecho-vadasr/pkg/utils"
	"github.com/spf13/cast"
)

// Config System CommonConfig
type Config struct {
	ServerName string `env:"SERVER_NAME"`
	Addr       string `env:"ADDR"`
	Mode       string `env:"MODE"`
	WSPath     string `env:"WS_PATH"`
	APIPrefix  string `env:"API_PREFIX"`
	Log        logger.LogConfig

	VAD   VADConfig
	ASR   ASRConfig
	Reply ReplyConfig

	// 识别/回复任务的全局并发上限
	WorkerPoolSize int `env:"WORKER_POOL_SIZE"`

	HistoryMaxSessions int `env:"HISTORY_MAX_SESSIONS"`
	HistoryMaxLines    int `env:"HISTORY_MAX_LINES"`

	// 跨实例通知中继
	RedisEnabled  bool   `env:"REDIS_ENABLED"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
	NotifyChannel string `env:"NOTIFY_CHANNEL"`

	WSRateLimit   string `env:"WS_RATE_LIMIT"`
	StatsSchedule string `env:"STATS_SCHEDULE"`
	// 为空时 /api/notify 只接受内网请求
	NotifyToken string `env:"NOTIFY_TOKEN"`

	// 会话
	DefaultUserID string        `env:"DEFAULT_USER_ID"`
	QueueSize     int           `env:"SESSION_QUEUE_SIZE"`
	JournalIdle   time.Duration `env:"JOURNAL_IDLE"`
}

// VADConfig 语音活动检测配置
type VADConfig struct {
	Backend          string        `env:"VAD_BACKEND"` // silero | energy
	ModelPath        string        `env:"VAD_MODEL_PATH"`
	RuntimeLib       string        `env:"ONNXRUNTIME_LIB"`
	Threshold        float64       `env:"VAD_THRESHOLD"`
	EnergyThreshold  float64       `env:"VAD_ENERGY_THRESHOLD"`
	WindowSize       int           `env:"VAD_WINDOW_SIZE"`
	MinVoiceFrames   int           `env:"VAD_MIN_VOICE_FRAMES"`
	SilenceThreshold time.Duration `env:"VAD_SILENCE_THRESHOLD"`
}

// ASRConfig 流式识别服务配置
type ASRConfig struct {
	Vendor      string        `env:"ASR_VENDOR"` // volcengine | whisper
	URL         string        `env:"ASR_URL"`
	AppID       string        `env:"ASR_APP_ID"`
	Token       string        `env:"ASR_TOKEN"`
	Cluster     string        `env:"ASR_CLUSTER"`
	UID         string        `env:"ASR_UID"`
	ChunkMs     int           `env:"ASR_CHUNK_MS"`
	SendTimeout time.Duration `env:"ASR_SEND_TIMEOUT"`
	ReadTimeout time.Duration `env:"ASR_READ_TIMEOUT"`
	MaxRetries  int           `env:"ASR_MAX_RETRIES"`

	WhisperApiKey   string `env:"WHISPER_API_KEY"`
	WhisperBaseURL  string `env:"WHISPER_BASE_URL"`
	WhisperModel    string `env:"WHISPER_MODEL"`
	WhisperLanguage string `env:"WHISPER_LANGUAGE"`

	// 识别文本纠错，REPLACE 为 JSON 对象，FUZZY 为空格分隔的词表
	ReplaceWords map[string]string `env:"ASR_REPLACE_WORDS"`
	FuzzyWords   []string          `env:"ASR_FUZZY_WORDS"`
}

// ReplyConfig 回复生成协作方配置
type ReplyConfig struct {
	Provider        string        `env:"REPLY_PROVIDER"` // openai | dify
	LLMApiKey       string        `env:"LLM_API_KEY"`
	LLMBaseURL      string        `env:"LLM_BASE_URL"`
	LLMModel        string        `env:"LLM_MODEL"`
	SystemPrompt    string        `env:"LLM_SYSTEM_PROMPT"`
	DifyApiKey      string        `env:"DIFY_API_KEY"`
	DifyApiURL      string        `env:"DIFY_API_URL"`
	DifyTimeout     time.Duration `env:"DIFY_TIMEOUT"`
	EventWebhookURL string        `env:"EVENT_WEBHOOK_URL"`
	Timeout         time.Duration `env:"REPLY_TIMEOUT"`
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件（如果不存在也不报错，使用默认值）
	env := os.Getenv("APP_ENV")
	if err := utils.LoadEnv(env); err != nil {
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}

	// 2. 加载全局配置（所有配置都有默认值，确保无.env文件也能启动）
	GlobalConfig = &Config{
		ServerName: getStringOrDefault("SERVER_NAME", "lingecho-vadasr"),
		Addr:       getStringOrDefault("ADDR", ":5001"),
		Mode:       getStringOrDefault("MODE", "development"),
		WSPath:     getStringOrDefault("WS_PATH", "/vad_asr"),
		APIPrefix:  getStringOrDefault("API_PREFIX", "/api"),
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		VAD: VADConfig{
			Backend:          getStringOrDefault("VAD_BACKEND", "silero"),
			ModelPath:        getStringOrDefault("VAD_MODEL_PATH", "silero_vad_16k.onnx"),
			RuntimeLib:       getStringOrDefault("ONNXRUNTIME_LIB", ""),
			Threshold:        getFloatOrDefault("VAD_THRESHOLD", 0.6),
			EnergyThreshold:  getFloatOrDefault("VAD_ENERGY_THRESHOLD", 500),
			WindowSize:       getIntOrDefault("VAD_WINDOW_SIZE", 10),
			MinVoiceFrames:   getIntOrDefault("VAD_MIN_VOICE_FRAMES", 6),
			SilenceThreshold: getDurationOrDefault("VAD_SILENCE_THRESHOLD", 1500*time.Millisecond),
		},
		ASR: ASRConfig{
			Vendor:      getStringOrDefault("ASR_VENDOR", "volcengine"),
			URL:         getStringOrDefault("ASR_URL", "wss://openspeech.bytedance.com/api/v2/asr"),
			AppID:       getStringOrDefault("ASR_APP_ID", ""),
			Token:       getStringOrDefault("ASR_TOKEN", ""),
			Cluster:     getStringOrDefault("ASR_CLUSTER", "volcengine_input_common"),
			UID:         getStringOrDefault("ASR_UID", "user123"),
			ChunkMs:     getIntOrDefault("ASR_CHUNK_MS", 200),
			SendTimeout: getDurationOrDefault("ASR_SEND_TIMEOUT", 5*time.Second),
			ReadTimeout: getDurationOrDefault("ASR_READ_TIMEOUT", 10*time.Second),
			MaxRetries:  getIntOrDefault("ASR_MAX_RETRIES", 1),

			WhisperApiKey:   getStringOrDefault("WHISPER_API_KEY", ""),
			WhisperBaseURL:  getStringOrDefault("WHISPER_BASE_URL", ""),
			WhisperModel:    getStringOrDefault("WHISPER_MODEL", "whisper-1"),
			WhisperLanguage: getStringOrDefault("WHISPER_LANGUAGE", "zh"),

			ReplaceWords: cast.ToStringMapString(utils.GetEnv("ASR_REPLACE_WORDS")),
			FuzzyWords:   cast.ToStringSlice(utils.GetEnv("ASR_FUZZY_WORDS")),
		},
		Reply: ReplyConfig{
			Provider:        getStringOrDefault("REPLY_PROVIDER", "openai"),
			LLMApiKey:       getStringOrDefault("LLM_API_KEY", ""),
			LLMBaseURL:      getStringOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
			LLMModel:        getStringOrDefault("LLM_MODEL", "gpt-4o-mini"),
			SystemPrompt:    getStringOrDefault("LLM_SYSTEM_PROMPT", ""),
			DifyApiKey:      getStringOrDefault("DIFY_API_KEY", ""),
			DifyApiURL:      getStringOrDefault("DIFY_API_URL", "https://api.dify.ai/v1/chat-messages"),
			DifyTimeout:     getDurationOrDefault("DIFY_TIMEOUT", 10*time.Second),
			EventWebhookURL: getStringOrDefault("EVENT_WEBHOOK_URL", ""),
			Timeout:         getDurationOrDefault("REPLY_TIMEOUT", 30*time.Second),
		},
		WorkerPoolSize:     getIntOrDefault("WORKER_POOL_SIZE", 8),
		HistoryMaxSessions: getIntOrDefault("HISTORY_MAX_SESSIONS", 1024),
		HistoryMaxLines:    getIntOrDefault("HISTORY_MAX_LINES", 200),
		RedisEnabled:       getBoolOrDefault("REDIS_ENABLED", false),
		RedisAddr:          getStringOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getStringOrDefault("REDIS_PASSWORD", ""),
		RedisDB:            getIntOrDefault("REDIS_DB", 0),
		NotifyChannel:      getStringOrDefault("NOTIFY_CHANNEL", "lingecho:notify"),
		WSRateLimit:        getStringOrDefault("WS_RATE_LIMIT", "60-M"),
		StatsSchedule:      getStringOrDefault("STATS_SCHEDULE", "@every 1m"),
		NotifyToken:        getStringOrDefault("NOTIFY_TOKEN", ""),
		DefaultUserID:      getStringOrDefault("DEFAULT_USER_ID", "user123"),
		QueueSize:          getIntOrDefault("SESSION_QUEUE_SIZE", 32),
		JournalIdle:        getDurationOrDefault("JOURNAL_IDLE", 24*time.Hour),
	}
	return nil
}

// getStringOrDefault 获取环境变量值，如果为空则返回默认值
func getStringOrDefault(key, defaultValue string) string {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolOrDefault 获取布尔环境变量值，如果为空则返回默认值
func getBoolOrDefault(key string, defaultValue bool) bool {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return utils.GetBoolEnv(key)
}

// getIntOrDefault 获取整数环境变量值，如果为空则返回默认值
func getIntOrDefault(key string, defaultValue int) int {
	value := utils.GetIntEnv(key)
	if value == 0 {
		return defaultValue
	}
	return int(value)
}

// getFloatOrDefault 获取浮点环境变量值，如果为空则返回默认值
func getFloatOrDefault(key string, defaultValue float64) float64 {
	value := utils.GetFloatEnv(key)
	if value == 0 {
		return defaultValue
	}
	return value
}

// getDurationOrDefault 获取时长环境变量值，如果为空则返回默认值
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := utils.GetDurationEnv(key)
	if value <= 0 {
		return defaultValue
	}
	return value
}
