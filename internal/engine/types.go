package engine

import (
	"time"

	"loterias-bot/internal/database"
	"loterias-bot/internal/predictor"
)

// 开奖来源
const (
	SourceManual = "manual"
	SourceAPI    = "api"
	SourceImport = "import"
)

// ModelOutcome 单个学习模型的结果，失败时Err非空
type ModelOutcome struct {
	Method string
	Scored *database.ScoredSuggestion
	Err    error
}

// SuggestionReport 一次建议生成的完整结果
type SuggestionReport struct {
	Game        string
	Latest      *database.Draw
	Statistical []database.ScoredSuggestion
	Models      []ModelOutcome
	GeneratedAt time.Time
}

// Suggestions 报告中全部成功生成的建议，统计建议在前
func (r *SuggestionReport) Suggestions() []*database.Suggestion {
	out := make([]*database.Suggestion, 0, len(r.Statistical)+len(r.Models))
	for _, s := range r.Statistical {
		out = append(out, s.Suggestion)
	}
	for _, m := range r.Models {
		if m.Err == nil && m.Scored != nil {
			out = append(out, m.Scored.Suggestion)
		}
	}
	return out
}

// BacktestReport 前向验证结果
type BacktestReport struct {
	Game    string
	Entries []database.BacktestEntry
	Ranked  []database.BacktestEntry
	Summary predictor.BacktestSummary
}

// NumberCount 号码及出现次数
type NumberCount struct {
	Number int `json:"number"`
	Count  int `json:"count"`
}

// Exploration 历史数据概览
type Exploration struct {
	Game          string
	Draws         int
	LastDraws     []database.Draw
	MostFrequent  []NumberCount
	LeastFrequent []NumberCount
	TotalNumbers  int
	UniqueNumbers int
	LastSum       int
	LastEven      int
	LastOdd       int
	Moments       predictor.Moments
}
