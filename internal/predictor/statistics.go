package predictor

import (
	"time"

	"loterias-bot/internal/database"
	"loterias-bot/internal/logger"

	"github.com/montanaflynn/stats"
)

// 得分移动平均窗口
const movingAverageWindow = 5

// 趋势方向
const (
	TrendImproving    = "improving"
	TrendDeclining    = "declining"
	TrendStable       = "stable"
	TrendInsufficient = "insufficient_data"
)

// BacktestSummary 回测统计信息
type BacktestSummary struct {
	Steps          int       `json:"steps"`
	MeanScore      float64   `json:"mean_score"`
	MaxScore       float64   `json:"max_score"`
	MinScore       float64   `json:"min_score"`
	StdDev         float64   `json:"std_dev"`
	OccurredCount  int       `json:"occurred_count"`
	MovingAverage  []float64 `json:"moving_average"`
	TrendDirection string    `json:"trend_direction"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Summarize 计算回测得分的统计信息，entries按步骤顺序
func Summarize(entries []database.BacktestEntry) BacktestSummary {
	summary := BacktestSummary{
		Steps:          len(entries),
		MovingAverage:  []float64{},
		TrendDirection: TrendInsufficient,
		GeneratedAt:    time.Now(),
	}
	if len(entries) == 0 {
		return summary
	}

	scores := make([]float64, len(entries))
	for i, e := range entries {
		scores[i] = e.Score
		if e.AlreadyOccurred {
			summary.OccurredCount++
		}
	}

	summary.MeanScore, _ = stats.Mean(scores)
	summary.MaxScore, _ = stats.Max(scores)
	summary.MinScore, _ = stats.Min(scores)
	if len(scores) > 1 {
		summary.StdDev, _ = stats.StandardDeviationSample(scores)
	}

	summary.MovingAverage = movingAverage(scores, movingAverageWindow)
	summary.TrendDirection = trendDirection(summary.MovingAverage)

	logger.Debugf("Backtest summary: steps=%d mean=%.2f trend=%s",
		summary.Steps, summary.MeanScore, summary.TrendDirection)
	return summary
}

// movingAverage 计算移动平均，数据不足一个窗口时返回空
func movingAverage(values []float64, window int) []float64 {
	if len(values) < window {
		return []float64{}
	}

	avg := make([]float64, 0, len(values)-window+1)
	for i := window - 1; i < len(values); i++ {
		mean, _ := stats.Mean(values[i-window+1 : i+1])
		avg = append(avg, mean)
	}
	return avg
}

// trendDirection 比较最后两个移动平均值，变化超过1个百分点才算升降
func trendDirection(avg []float64) string {
	if len(avg) < 2 {
		return TrendInsufficient
	}

	recent := avg[len(avg)-1]
	previous := avg[len(avg)-2]

	switch {
	case recent > previous+1:
		return TrendImproving
	case recent < previous-1:
		return TrendDeclining
	default:
		return TrendStable
	}
}
