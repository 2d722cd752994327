package notification

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RelayConfig Redis 通知中继配置
type RelayConfig struct {
	Addr         string
	Password     string
	DB           int
	Channel      string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
}

// Envelope 频道上传输的通知
type Envelope struct {
	Text   string `json:"text"`
	Origin string `json:"origin"`
	SentAt int64  `json:"sentAt"`
}

// DeliverFunc 把通知推送到本实例的连接，返回送达数
type DeliverFunc func(text string) int

// Relay 多实例部署时通过 Redis pub/sub 分发通知
// 每个实例都订阅同一频道，包括发布者自己
type Relay struct {
	client   *redis.Client
	channel  string
	instance string
	logger   *zap.Logger
}

// NewRelay 创建中继，不会立即建立连接
func NewRelay(cfg RelayConfig, logger *zap.Logger) *Relay {
	if cfg.Channel == "" {
		cfg.Channel = "lingecho:notify"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
	})
	return &Relay{
		client:   client,
		channel:  cfg.Channel,
		instance: uuid.NewString(),
		logger:   logger,
	}
}

// Instance 本实例标识
func (r *Relay) Instance() string {
	return r.instance
}

// Ping 检查 Redis 连通性
func (r *Relay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Publish 发布通知到频道
func (r *Relay) Publish(ctx context.Context, text string) error {
	payload, err := EncodeEnvelope(Envelope{Text: text, Origin: r.instance, SentAt: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Run 订阅频道并把收到的通知交给 deliver，直到 ctx 取消
func (r *Relay) Run(ctx context.Context, deliver DeliverFunc) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// 等待订阅确认，连不上时直接返回
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	r.logger.Info("通知中继已订阅", zap.String("channel", r.channel), zap.String("instance", r.instance))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("notification: subscription closed")
			}
			env, err := DecodeEnvelope(msg.Payload)
			if err != nil {
				r.logger.Warn("忽略无法解析的通知", zap.Error(err))
				continue
			}
			n := deliver(env.Text)
			r.logger.Debug("通知已分发",
				zap.String("origin", env.Origin),
				zap.Int("sessions", n))
		}
	}
}

// Close 关闭 Redis 客户端
func (r *Relay) Close() error {
	return r.client.Close()
}

func EncodeEnvelope(env Envelope) (string, error) {
	b, err := sonic.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeEnvelope 空文本视为非法
func DecodeEnvelope(payload string) (Envelope, error) {
	var env Envelope
	if err := sonic.UnmarshalString(payload, &env); err != nil {
		return Envelope{}, err
	}
	if env.Text == "" {
		return Envelope{}, errors.New("notification: empty text")
	}
	return env, nil
}
