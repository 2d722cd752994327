package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers "github.com/code-100-precent/lingecho-vadasr/internal/handler"
	"github.com/code-100-precent/lingecho-vadasr/internal/listeners"
	"github.com/code-100-precent/lingecho-vadasr/internal/task"
	"github.com/code-100-precent/lingecho-vadasr/pkg/config"
	"github.com/code-100-precent/lingecho-vadasr/pkg/events"
	"github.com/code-100-precent/lingecho-vadasr/pkg/history"
	"github.com/code-100-precent/lingecho-vadasr/pkg/logger"
	"github.com/code-100-precent/lingecho-vadasr/pkg/metrics"
	"github.com/code-100-precent/lingecho-vadasr/pkg/notification"
	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer"
	"github.com/code-100-precent/lingecho-vadasr/pkg/recognizer/volcasr"
	"github.com/code-100-precent/lingecho-vadasr/pkg/reply"
	"github.com/code-100-precent/lingecho-vadasr/pkg/vad"
	"github.com/code-100-precent/lingecho-vadasr/pkg/voice"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Parse Command Line Parameters
	mode := flag.String("mode", "", "running environment (development, test, production)")
	addrFlag := flag.String("addr", "", "HTTP serve address, overrides ADDR")
	flag.Parse()

	// 2. Set Environment Variables
	if *mode != "" {
		os.Setenv("APP_ENV", *mode)
	}

	// 3. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}
	cfg := config.GlobalConfig
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	// 4. Load Log Configuration
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("checked config -- addr: ", zap.String("addr", cfg.Addr), zap.String("path", cfg.WSPath))
	logger.Info("checked config -- mode: ", zap.String("mode", cfg.Mode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.NewMetrics("vadasr")
	bus := events.GetEventBus()
	listener := listeners.InitVoiceListeners(bus, logger.Named("events"))

	// 5. VAD
	model, err := newVADModel(cfg.VAD)
	if err != nil {
		return err
	}
	defer model.Close()
	classifier := vad.NewClassifier(model, cfg.VAD.Threshold, logger.Named("vad"))

	// 6. Recognizer
	rec, err := recognizer.New(recognizer.Options{
		Vendor: recognizer.Vendor(cfg.ASR.Vendor),
		Volcengine: volcasr.Config{
			URL:         cfg.ASR.URL,
			AppID:       cfg.ASR.AppID,
			Token:       cfg.ASR.Token,
			Cluster:     cfg.ASR.Cluster,
			UID:         cfg.ASR.UID,
			ChunkMs:     cfg.ASR.ChunkMs,
			SendTimeout: cfg.ASR.SendTimeout,
			ReadTimeout: cfg.ASR.ReadTimeout,
		},
		Whisper: recognizer.WhisperOption{
			ApiKey:   cfg.ASR.WhisperApiKey,
			BaseURL:  cfg.ASR.WhisperBaseURL,
			Model:    cfg.ASR.WhisperModel,
			Language: cfg.ASR.WhisperLanguage,
		},
		MaxRetries: cfg.ASR.MaxRetries,
		Correction: recognizer.CorrectorOption{
			ReplaceWords: cfg.ASR.ReplaceWords,
			FuzzyWords:   cfg.ASR.FuzzyWords,
		},
	})
	if err != nil {
		return err
	}

	// 7. Reply pipeline
	journal, err := history.New(cfg.HistoryMaxSessions, cfg.HistoryMaxLines)
	if err != nil {
		return err
	}
	pipeline, err := newPipeline(cfg.Reply, journal)
	if err != nil {
		return err
	}
	var sink reply.EventSink = reply.NopSink{}
	if cfg.Reply.EventWebhookURL != "" {
		sink = reply.NewWebhookSink(cfg.Reply.EventWebhookURL, cfg.Reply.Timeout)
	}

	// 8. Notification relay
	var relay *notification.Relay
	var notifier voice.Notifier
	if cfg.RedisEnabled {
		relay = notification.NewRelay(notification.RelayConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.NotifyChannel,
		}, logger.Named("notify"))
		defer relay.Close()
		notifier = relay
	}

	// 9. Voice handler
	vh, err := voice.NewHandler(voice.Options{
		Classifier: classifier,
		Detector: vad.DetectorConfig{
			WindowSize:       cfg.VAD.WindowSize,
			MinVoiceFrames:   cfg.VAD.MinVoiceFrames,
			SilenceThreshold: cfg.VAD.SilenceThreshold,
		},
		Recognizer:    rec,
		Pipeline:      pipeline,
		Sink:          sink,
		Journal:       journal,
		Pool:          voice.NewPool(cfg.WorkerPoolSize, m.SetPoolInFlight),
		Notifier:      notifier,
		Metrics:       m,
		Bus:           bus,
		Logger:        logger.Named("voice"),
		QueueSize:     cfg.QueueSize,
		ReplyTimeout:  cfg.Reply.Timeout,
		DefaultUserID: cfg.DefaultUserID,
	})
	if err != nil {
		return err
	}

	// 10. Scheduled tasks
	scheduler := task.NewScheduler(logger.Named("task"))
	if err := scheduler.AddSessionStats(cfg.StatsSchedule, vh); err != nil {
		return err
	}
	if err := scheduler.AddJournalPruner(journal, cfg.JournalIdle); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	// 11. HTTP
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	if err := handlers.NewHandlers(cfg, vh, m, listener, logger.Named("http")).Register(engine); err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		// 连接的 ctx 跟随进程退出，长连接随之关闭
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("🚀 服务启动", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			return relay.Run(gctx, vh.Broadcast)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newVADModel(cfg config.VADConfig) (vad.Model, error) {
	if cfg.Backend == "energy" {
		logger.Info("using energy vad", zap.Float64("threshold", cfg.EnergyThreshold))
		return vad.NewEnergyModel(cfg.EnergyThreshold), nil
	}
	return vad.NewSileroModel(cfg.ModelPath, cfg.RuntimeLib, logger.Named("silero"))
}

func newPipeline(cfg config.ReplyConfig, journal *history.Journal) (reply.Pipeline, error) {
	switch cfg.Provider {
	case "dify":
		return reply.NewDifyPipeline(reply.DifyOption{
			ApiKey:  cfg.DifyApiKey,
			ApiURL:  cfg.DifyApiURL,
			Timeout: cfg.DifyTimeout,
		}, journal.Content, logger.Named("dify")), nil
	case "openai", "":
		return reply.NewOpenAIPipeline(reply.OpenAIOption{
			ApiKey:       cfg.LLMApiKey,
			BaseURL:      cfg.LLMBaseURL,
			Model:        cfg.LLMModel,
			SystemPrompt: cfg.SystemPrompt,
		}, logger.Named("openai"))
	default:
		return nil, errors.New("unsupported reply provider: " + cfg.Provider)
	}
}
