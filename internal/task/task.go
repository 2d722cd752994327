package task

import (
	"time"

	"github.com/code-100-precent/lingecho-vadasr/pkg/history"
	"github.com/code-100-precent/lingecho-vadasr/pkg/voice"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultJournalIdle 对话记录超过该时长未更新即清理
const DefaultJournalIdle = 24 * time.Hour

// StatsSource 提供会话统计
type StatsSource interface {
	Stats() []voice.Stats
}

// Scheduler 后台定时任务
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler 创建调度器，需要调用 Start
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{cron: cron.New(), logger: logger}
}

// AddSessionStats 定期输出在线会话统计
func (s *Scheduler) AddSessionStats(schedule string, src StatsSource) error {
	_, err := s.cron.AddFunc(schedule, func() {
		LogSessionStats(s.logger, src.Stats())
	})
	if err != nil {
		s.logger.Error("Failed to add session stats cron job", zap.Error(err))
		return err
	}
	s.logger.Info("Session stats task registered", zap.String("schedule", schedule))
	return nil
}

// AddJournalPruner 每小时清理长时间无更新的对话记录
func (s *Scheduler) AddJournalPruner(j *history.Journal, idle time.Duration) error {
	if idle <= 0 {
		idle = DefaultJournalIdle
	}
	schedule := "@hourly"
	_, err := s.cron.AddFunc(schedule, func() {
		if n := j.Prune(idle); n > 0 {
			s.logger.Info("Journal pruned", zap.Int("removed", n), zap.Int("remaining", j.Len()))
		}
	})
	if err != nil {
		s.logger.Error("Failed to add journal pruner cron job", zap.Error(err))
		return err
	}
	s.logger.Info("Journal pruner registered", zap.String("schedule", schedule), zap.Duration("idle", idle))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// LogSessionStats 汇总输出，返回帧总数
func LogSessionStats(logger *zap.Logger, stats []voice.Stats) int64 {
	var frames, utterances int64
	for _, st := range stats {
		frames += st.Frames
		utterances += st.Utterances
		logger.Debug("Session",
			zap.String("sessionId", st.ID),
			zap.String("userId", st.UserID),
			zap.Int64("frames", st.Frames),
			zap.Int64("utterances", st.Utterances),
			zap.Duration("age", st.Age),
			zap.Duration("idle", st.Idle))
	}
	logger.Info("Session stats",
		zap.Int("sessions", len(stats)),
		zap.Int64("frames", frames),
		zap.Int64("utterances", utterances))
	return frames
}
