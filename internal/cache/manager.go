package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	"loterias-bot/internal/logger"
	"loterias-bot/internal/predictor"
)

const (
	historyPrefix   = "history:"
	frequencyPrefix = "frequency:"
	momentsPrefix   = "moments:"
)

// DrawSource 开奖历史数据源
type DrawSource interface {
	GetDraws(variant string) (*database.History, error)
}

// HistoryCache 按游戏缓存历史、频率表和和值分布，新开奖时显式失效
type HistoryCache struct {
	memory *MemoryCache
	source DrawSource
	ttl    time.Duration

	// 每个游戏的代数，OnNewDraw 时递增；加载期间代数变化的结果不写入缓存
	mu          sync.Mutex
	generations map[string]uint64
}

// NewHistoryCache 创建历史缓存
func NewHistoryCache(source DrawSource, ttl time.Duration, maxSize int) *HistoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	hc := &HistoryCache{
		memory:      NewMemoryCache(maxSize, 5*time.Minute),
		source:      source,
		ttl:         ttl,
		generations: make(map[string]uint64),
	}

	logger.Infof("History cache initialized (ttl %v)", ttl)
	return hc
}

// Close 关闭缓存
func (hc *HistoryCache) Close() {
	hc.memory.Close()
	logger.Info("History cache closed")
}

// GetHistory 获取某游戏的历史，每次返回独立副本
func (hc *HistoryCache) GetHistory(variant string) (*database.History, error) {
	var history database.History
	err := hc.memory.Get(historyPrefix+variant, &history)
	if err == nil {
		return &history, nil
	}
	if !errors.Is(err, ErrMiss) {
		logger.Warnf("Discarding unreadable history cache for %s: %v", variant, err)
	}

	gen := hc.generation(variant)
	loaded, err := hc.source.GetDraws(variant)
	if err != nil {
		return nil, err
	}
	hc.store(variant, gen, historyPrefix+variant, loaded)

	logger.WithGame(variant).Debugf("History loaded from store: %d draws", loaded.Len())
	return loaded, nil
}

// GetFrequency 获取频率表，未缓存时由历史计算
func (hc *HistoryCache) GetFrequency(game config.Game) (*predictor.FrequencyTable, error) {
	key := frequencyPrefix + game.Key()

	var table predictor.FrequencyTable
	if err := hc.memory.Get(key, &table); err == nil {
		return &table, nil
	}

	gen := hc.generation(game.Key())
	history, err := hc.GetHistory(game.Key())
	if err != nil {
		return nil, err
	}
	built, err := predictor.BuildFrequency(history, game)
	if err != nil {
		return nil, err
	}
	hc.store(game.Key(), gen, key, built)
	return built, nil
}

// GetMoments 获取和值均值与标准差
func (hc *HistoryCache) GetMoments(variant string) (predictor.Moments, error) {
	key := momentsPrefix + variant

	var moments predictor.Moments
	if err := hc.memory.Get(key, &moments); err == nil {
		return moments, nil
	}

	gen := hc.generation(variant)
	history, err := hc.GetHistory(variant)
	if err != nil {
		return predictor.Moments{}, err
	}
	moments, err = predictor.SumMoments(history)
	if err != nil {
		return predictor.Moments{}, err
	}
	hc.store(variant, gen, key, moments)
	return moments, nil
}

func (hc *HistoryCache) generation(variant string) uint64 {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.generations[variant]
}

// store 只有在加载期间没有新开奖时才写入
func (hc *HistoryCache) store(variant string, gen uint64, key string, value interface{}) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if hc.generations[variant] != gen {
		logger.WithGame(variant).Debugf("Skipping stale cache write for %s", key)
		return
	}
	if err := hc.memory.Set(key, value, hc.ttl); err != nil {
		logger.Warnf("Failed to cache %s: %v", key, err)
	}
}

// OnNewDraw 新开奖事件：失效该游戏的全部派生缓存
func (hc *HistoryCache) OnNewDraw(variant string) {
	hc.mu.Lock()
	hc.generations[variant]++
	hc.memory.Delete(historyPrefix+variant, frequencyPrefix+variant, momentsPrefix+variant)
	hc.mu.Unlock()
	logger.WithGame(variant).Info("Cache invalidated for new draw")
}

// GetStats 获取缓存统计信息
func (hc *HistoryCache) GetStats() map[string]interface{} {
	stats := hc.memory.Stats()
	return map[string]interface{}{
		"size":     stats.Size,
		"max_size": stats.MaxSize,
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"ttl":      fmt.Sprint(hc.ttl),
	}
}
