package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/news-harvest/app/config"
	"github.com/lysyi3m/news-harvest/app/database"
)

const taskTimeout = 11 * time.Minute

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	processor   FeedProcessor
	configCache *config.ChannelConfigCache
	channelRepo database.ChannelRepository
	parserRepo  database.ParserRepository
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	channelRetries int
}

func NewScheduler(processor FeedProcessor, configCache *config.ChannelConfigCache,
	channelRepo database.ChannelRepository, parserRepo database.ParserRepository,
	interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if interval <= 0 {
		interval = time.Hour
	}

	return &Scheduler{
		processor:   processor,
		configCache: configCache,
		channelRepo: channelRepo,
		parserRepo:  parserRepo,
		interval:    interval,
		workerCount: max(workerCount, 1),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.EnqueueTask(NewProcessFeedsTask(false, s.processor)); err != nil {
					slog.Warn("Failed to enqueue ProcessFeedsTask", "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// SetChannelRetries sets how often a failed single-channel task is retried
// with backoff. Call it before Start.
func (s *Scheduler) SetChannelRetries(n int) {
	s.channelRetries = max(n, 0)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if task.GetType() == TaskTypeProcessChannel && task.GetRetryCount() == 0 {
		task.SetMaxRetries(s.channelRetries)
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// SyncChannel enqueues a sync of one channel seed, e.g. after a file change.
func (s *Scheduler) SyncChannel(channelConfig *config.ChannelConfig) {
	task := NewSyncChannelConfigTask(channelConfig, s.channelRepo, s.parserRepo)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue SyncChannelConfigTask", "channel", channelConfig.Key, "error", err)
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	if s.configCache == nil {
		return
	}

	configs := s.configCache.GetConfigs()
	if len(configs) == 0 {
		slog.Debug("No channel configurations found")
		return
	}

	slog.Debug("Syncing channel configurations", "count", len(configs))

	for _, channelConfig := range configs {
		s.SyncChannel(channelConfig)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		return
	}

	task.IncrementRetryCount()
	retryDelay := min(time.Duration(1<<uint(task.GetRetryCount()-1))*time.Second, 30*time.Second)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "channel", task.GetChannelName(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		select {
		case <-time.After(retryDelay):
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		}
		if retryErr := s.EnqueueTask(task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "error", retryErr)
		}
	}()
}
