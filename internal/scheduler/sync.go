package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loterias-bot/internal/api"
	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	"loterias-bot/internal/engine"
	"loterias-bot/internal/logger"
	"loterias-bot/internal/metrics"

	"github.com/robfig/cron/v3"
)

const (
	// defaultMaxCatchUp 一次同步最多补录的期数
	defaultMaxCatchUp = 20
	defaultTimeout    = 2 * time.Minute
)

// Fetcher 开奖结果来源
type Fetcher interface {
	FetchLatest(ctx context.Context, game config.Game) (*database.Draw, error)
	FetchContest(ctx context.Context, game config.Game, contest int) (*database.Draw, error)
}

// DrawRecorder 记录新开奖
type DrawRecorder interface {
	LatestDraw(key string) (*database.Draw, error)
	AddDraw(key string, draw database.Draw, source string) (*database.Draw, error)
}

// Notifier 新开奖通知
type Notifier interface {
	BroadcastNewDraw(game config.Game, draw *database.Draw) error
}

// Syncer 定时同步各游戏的开奖结果
type Syncer struct {
	cron     *cron.Cron
	games    []config.Game
	fetcher  Fetcher
	recorder DrawRecorder
	notifier Notifier
	metrics  *metrics.Collector

	MaxCatchUp int
	Timeout    time.Duration
}

// NewSyncer 创建同步器，notifier 和 collector 可以为nil
func NewSyncer(games []config.Game, fetcher Fetcher, recorder DrawRecorder, notifier Notifier, collector *metrics.Collector) *Syncer {
	cronLogger := cron.PrintfLogger(logger.Log)
	return &Syncer{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		games:      games,
		fetcher:    fetcher,
		recorder:   recorder,
		notifier:   notifier,
		metrics:    collector,
		MaxCatchUp: defaultMaxCatchUp,
		Timeout:    defaultTimeout,
	}
}

// Start 为每个配置了 api_slug 和 sync_schedule 的游戏注册定时任务并启动
func (s *Syncer) Start() (int, error) {
	scheduled := 0
	for _, game := range s.games {
		src := game.Source()
		if src.APISlug == "" || src.SyncSchedule == "" {
			continue
		}

		g := game
		_, err := s.cron.AddFunc(src.SyncSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
			defer cancel()
			if _, err := s.SyncGame(ctx, g); err != nil {
				logger.WithGame(g.Key()).Errorf("Scheduled sync failed: %v", err)
			}
		})
		if err != nil {
			return scheduled, fmt.Errorf("invalid sync_schedule %q for %s: %w", src.SyncSchedule, game.Key(), err)
		}
		scheduled++
	}

	s.cron.Start()
	logger.Infof("Result sync scheduled for %d games", scheduled)
	return scheduled, nil
}

// Stop 停止调度并等待正在运行的同步结束
func (s *Syncer) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Result sync stopped")
}

// SyncGame 补录本地最新期之后的所有开奖，返回新增期数
func (s *Syncer) SyncGame(ctx context.Context, game config.Game) (int, error) {
	log := logger.WithGame(game.Key())

	remote, err := s.fetcher.FetchLatest(ctx, game)
	if err != nil {
		s.recordError(game.Key())
		return 0, fmt.Errorf("failed to fetch latest result: %w", err)
	}

	local, err := s.recorder.LatestDraw(game.Key())
	if err != nil {
		s.recordError(game.Key())
		return 0, err
	}
	localContest := 0
	if local != nil {
		localContest = local.Contest
	}
	if remote.Contest <= localContest {
		log.Debugf("Already up to date at contest %d", localContest)
		return 0, nil
	}

	start := localContest + 1
	if limit := s.MaxCatchUp; limit > 0 && remote.Contest-localContest > limit {
		start = remote.Contest - limit + 1
		log.Warnf("Catching up only the last %d contests (%d..%d)", limit, start, remote.Contest)
	}

	added := 0
	for contest := start; contest <= remote.Contest; contest++ {
		draw := remote
		if contest != remote.Contest {
			draw, err = s.fetcher.FetchContest(ctx, game, contest)
			if errors.Is(err, api.ErrContestNotFound) {
				log.Warnf("Contest %d not available, skipping", contest)
				continue
			}
			if err != nil {
				s.recordError(game.Key())
				return added, fmt.Errorf("failed to fetch contest %d: %w", contest, err)
			}
		}

		stored, err := s.recorder.AddDraw(game.Key(), *draw, engine.SourceAPI)
		if err != nil {
			s.recordError(game.Key())
			return added, err
		}
		added++

		if s.notifier != nil {
			if err := s.notifier.BroadcastNewDraw(game, stored); err != nil {
				log.Warnf("Failed to broadcast draw %d: %v", stored.Contest, err)
			}
		}
	}

	log.Infof("Synced %d new draws up to contest %d", added, remote.Contest)
	return added, nil
}

// SyncAll 立即同步全部配置了接口的游戏
func (s *Syncer) SyncAll(ctx context.Context) int {
	total := 0
	for _, game := range s.games {
		if game.Source().APISlug == "" {
			continue
		}
		n, err := s.SyncGame(ctx, game)
		if err != nil {
			logger.WithGame(game.Key()).Warnf("Sync failed: %v", err)
		}
		total += n
	}
	return total
}

func (s *Syncer) recordError(game string) {
	if s.metrics != nil {
		s.metrics.RecordSyncError(game)
	}
}
