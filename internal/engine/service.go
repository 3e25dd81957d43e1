package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"
	"loterias-bot/internal/logger"
	"loterias-bot/internal/metrics"
	"loterias-bot/internal/predictor"
)

// 概览中展示的期数和号码个数
const (
	exploreLastDraws = 5
	exploreTopK      = 5
)

// ErrInvalidDraw 手动录入或同步的开奖不符合游戏规则
var ErrInvalidDraw = errors.New("invalid draw")

// ErrUnknownGame 未配置的游戏
var ErrUnknownGame = errors.New("unknown game")

// Store 开奖与建议的持久化
type Store interface {
	SaveDraw(variant string, draw *database.Draw) error
	SaveSuggestion(s *database.Suggestion) error
	GetSuggestions(variant string) ([]database.Suggestion, error)
	DeleteSuggestion(id string) (bool, error)
}

// HistoryProvider 带缓存的历史读取
type HistoryProvider interface {
	GetHistory(variant string) (*database.History, error)
	GetFrequency(game config.Game) (*predictor.FrequencyTable, error)
	GetMoments(variant string) (predictor.Moments, error)
	OnNewDraw(variant string)
}

// Spreadsheet 表格形式的历史文件
type Spreadsheet interface {
	LoadHistory(path string, game config.Game) (*database.History, error)
	AppendDraw(path string, game config.Game, draw database.Draw) error
}

// Options 引擎参数
type Options struct {
	StatisticalCount   int
	DefaultValidations int
	MaxValidations     int
	AppendToDataFile   bool
	Seed               int64
}

// Service 建议引擎
type Service struct {
	games     []config.Game
	store     Store
	history   HistoryProvider
	sheets    Spreadsheet
	models    *predictor.PredictorManager
	sampler   *predictor.StatisticalGenerator
	validator *predictor.Validator
	metrics   *metrics.Collector
	opts      Options
}

// NewService 创建引擎，sheets 和 collector 可以为nil
func NewService(games []config.Game, store Store, history HistoryProvider, sheets Spreadsheet,
	collector *metrics.Collector, opts Options) *Service {
	if opts.StatisticalCount <= 0 {
		opts.StatisticalCount = predictor.DefaultSuggestionCount
	}
	if opts.MaxValidations <= 0 {
		opts.MaxValidations = predictor.DefaultMaxValidations
	}
	if opts.DefaultValidations <= 0 || opts.DefaultValidations > opts.MaxValidations {
		opts.DefaultValidations = opts.MaxValidations
	}

	sampler := predictor.NewStatisticalGenerator()
	sampler.BaseSeed = opts.Seed

	return &Service{
		games:     games,
		store:     store,
		history:   history,
		sheets:    sheets,
		models:    predictor.NewPredictorManager(),
		sampler:   sampler,
		validator: predictor.NewValidator(opts.MaxValidations),
		metrics:   collector,
		opts:      opts,
	}
}

// Games 已配置的游戏
func (s *Service) Games() []config.Game {
	return s.games
}

// Options 生效的引擎参数
func (s *Service) Options() Options {
	return s.opts
}

// Game 按key或名称查找游戏
func (s *Service) Game(key string) (config.Game, error) {
	game, ok := config.FindGame(s.games, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, key)
	}
	return game, nil
}

// LatestDraw 最近一期开奖，没有历史时返回nil
func (s *Service) LatestDraw(key string) (*database.Draw, error) {
	game, err := s.Game(key)
	if err != nil {
		return nil, err
	}
	history, err := s.history.GetHistory(game.Key())
	if err != nil {
		return nil, err
	}
	if last, ok := history.Last(); ok {
		return &last, nil
	}
	return nil, nil
}

// Suggest 生成统计建议和各学习模型的建议，并以最近一期评分
func (s *Service) Suggest(ctx context.Context, key string) (*SuggestionReport, error) {
	game, err := s.Game(key)
	if err != nil {
		return nil, err
	}
	history, err := s.history.GetHistory(game.Key())
	if err != nil {
		return nil, err
	}
	last, ok := history.Last()
	if !ok {
		return nil, apperrors.NewInsufficientData(database.MethodStatistical, 1, 0)
	}

	freq, err := s.history.GetFrequency(game)
	if err != nil {
		return nil, err
	}
	moments, err := s.history.GetMoments(game.Key())
	if err != nil {
		return nil, err
	}

	table := history.Table()
	report := &SuggestionReport{Game: game.Key(), Latest: &last, GeneratedAt: time.Now()}

	for i, sample := range s.sampler.Generate(freq, game, moments, s.opts.StatisticalCount) {
		predictor.FillAuxiliary(sample.Suggestion, history, game, predictor.NewSeededSource(s.opts.Seed+int64(i)))
		scored := predictor.Score(sample.Suggestion, last.Numbers, table)
		scored.Constrained = sample.Constrained
		report.Statistical = append(report.Statistical, scored)
		s.recordSuggestion(game.Key(), database.MethodStatistical, sample.Constrained)
	}

	for _, name := range s.models.GetAvailablePredictors() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		suggestion, err := s.models.Predict(name, history, game)
		if s.metrics != nil {
			s.metrics.RecordModelRun(game.Key(), name, time.Since(start), err)
		}

		outcome := ModelOutcome{Method: name, Err: err}
		if err != nil {
			logger.WithGame(game.Key()).Warnf("Model %s failed: %v", name, err)
		} else {
			scored := predictor.Score(suggestion, last.Numbers, table)
			outcome.Scored = &scored
			s.recordSuggestion(game.Key(), name, false)
		}
		report.Models = append(report.Models, outcome)
	}

	logger.WithGame(game.Key()).Infof("Suggestion report ready: %d statistical, %d models",
		len(report.Statistical), len(report.Models))
	return report, nil
}

// Backtest 对多标签模型执行n步前向验证，n<=0时使用默认步数
func (s *Service) Backtest(ctx context.Context, key string, n int) (*BacktestReport, error) {
	game, err := s.Game(key)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = s.opts.DefaultValidations
	}
	history, err := s.history.GetHistory(game.Key())
	if err != nil {
		return nil, err
	}

	entries, err := s.validator.Validate(ctx, history.Table(), game, n)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		for _, e := range entries {
			s.metrics.RecordBacktestScore(game.Key(), e.Score)
		}
	}

	return &BacktestReport{
		Game:    game.Key(),
		Entries: entries,
		Ranked:  predictor.RankBacktest(entries),
		Summary: predictor.Summarize(entries),
	}, nil
}

// AddDraw 校验并记录一期新开奖，Contest为0时取下一期号
func (s *Service) AddDraw(key string, draw database.Draw, source string) (*database.Draw, error) {
	game, err := s.Game(key)
	if err != nil {
		return nil, err
	}
	if err := normalizeDraw(&draw, game); err != nil {
		return nil, err
	}

	history, err := s.history.GetHistory(game.Key())
	if err != nil {
		return nil, err
	}
	if last, ok := history.Last(); ok {
		if draw.Contest == 0 {
			draw.Contest = last.Contest + 1
		} else if draw.Contest <= last.Contest {
			return nil, fmt.Errorf("%w: contest %d is not after the latest recorded contest %d",
				ErrInvalidDraw, draw.Contest, last.Contest)
		}
	} else if draw.Contest == 0 {
		draw.Contest = 1
	}

	if err := s.store.SaveDraw(game.Key(), &draw); err != nil {
		return nil, err
	}
	s.history.OnNewDraw(game.Key())

	if s.opts.AppendToDataFile && s.sheets != nil && game.Source().DataFile != "" {
		if err := s.sheets.AppendDraw(game.Source().DataFile, game, draw); err != nil {
			logger.WithGame(game.Key()).Warnf("Failed to append draw to data file: %v", err)
		}
	}
	if s.metrics != nil {
		s.metrics.RecordDrawAdded(game.Key(), source, draw.Contest)
	}

	logger.WithGame(game.Key()).Infof("Draw %d added from %s: %s", draw.Contest, source, database.FormatNumbers(draw.Numbers))
	return &draw, nil
}

// normalizeDraw 排序并校验号码与附加字段
func normalizeDraw(draw *database.Draw, game config.Game) error {
	min, max := game.Range()

	if cg, ok := game.(config.IsColumnar); ok {
		if err := database.ValidateColumns(draw.Numbers, cg.Columns(), min, max); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDraw, err)
		}
	} else {
		draw.Numbers = database.SortedCopy(draw.Numbers)
		if err := database.ValidateSet(draw.Numbers, game.NumBalls(), min, max); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDraw, err)
		}
	}

	// 游戏具备的附加字段必须填写
	if g, ok := game.(config.HasBonusNumbers); ok {
		spec := g.BonusSpec()
		draw.Bonus = database.SortedCopy(draw.Bonus)
		if err := database.ValidateSet(draw.Bonus, spec.Count, spec.Min, spec.Max); err != nil {
			return fmt.Errorf("%w: bonus: %v", ErrInvalidDraw, err)
		}
	} else {
		draw.Bonus = nil
	}
	if _, ok := game.(config.HasTeamField); ok {
		draw.Team = strings.TrimSpace(draw.Team)
		if draw.Team == "" {
			return fmt.Errorf("%w: team is required", ErrInvalidDraw)
		}
	} else {
		draw.Team = ""
	}
	if _, ok := game.(config.HasMonthField); ok {
		if draw.Month < 1 || draw.Month > 12 {
			return fmt.Errorf("%w: month %d out of range [1, 12]", ErrInvalidDraw, draw.Month)
		}
	} else {
		draw.Month = 0
	}
	return nil
}

// SaveSuggestion 保存一条建议
func (s *Service) SaveSuggestion(suggestion *database.Suggestion) error {
	if _, err := s.Game(suggestion.Variant); err != nil {
		return err
	}
	if err := s.store.SaveSuggestion(suggestion); err != nil {
		return err
	}
	logger.WithGame(suggestion.Variant).Infof("Suggestion %s saved (%s)", suggestion.ID, suggestion.Method)
	return nil
}

// SavedSuggestions 某游戏已保存的建议，重新以最近一期评分
func (s *Service) SavedSuggestions(key string) ([]database.ScoredSuggestion, error) {
	game, err := s.Game(key)
	if err != nil {
		return nil, err
	}
	saved, err := s.store.GetSuggestions(game.Key())
	if err != nil {
		return nil, err
	}
	history, err := s.history.GetHistory(game.Key())
	if err != nil {
		return nil, err
	}

	var actual []int
	if last, ok := history.Last(); ok {
		actual = last.Numbers
	}
	table := history.Table()

	scored := make([]database.ScoredSuggestion, 0, len(saved))
	for i := range saved {
		if saved[i].Variant != game.Key() {
			continue
		}
		scored = append(scored, predictor.Score(&saved[i], actual, table))
	}
	return scored, nil
}

// DeleteSuggestion 删除已保存的建议
func (s *Service) DeleteSuggestion(id string) (bool, error) {
	return s.store.DeleteSuggestion(id)
}

// Frequency 号码频率表
func (s *Service) Frequency(key string) (*predictor.FrequencyTable, error) {
	game, err := s.Game(key)
	if err != nil {
		return nil, err
	}
	return s.history.GetFrequency(game)
}

// Explore 历史概览：最近几期、最热与最冷号码、最近一期和值与奇偶
func (s *Service) Explore(key string) (*Exploration, error) {
	game, err := s.Game(key)
	if err != nil {
		return nil, err
	}
	history, err := s.history.GetHistory(game.Key())
	if err != nil {
		return nil, err
	}
	freq, err := s.history.GetFrequency(game)
	if err != nil {
		return nil, err
	}
	moments, err := s.history.GetMoments(game.Key())
	if err != nil {
		return nil, err
	}

	from := history.Len() - exploreLastDraws
	if from < 0 {
		from = 0
	}

	ex := &Exploration{
		Game:          game.Key(),
		Draws:         history.Len(),
		LastDraws:     history.Window(from, history.Len()).Draws,
		MostFrequent:  numberCounts(freq, freq.Top(exploreTopK)),
		LeastFrequent: numberCounts(freq, freq.Bottom(exploreTopK)),
		Moments:       moments,
	}

	for _, c := range freq.Counts {
		ex.TotalNumbers += c
		if c > 0 {
			ex.UniqueNumbers++
		}
	}
	if last, ok := history.Last(); ok {
		ex.LastSum = database.CalculateSum(last.Numbers)
		ex.LastEven = database.CountEven(last.Numbers)
		ex.LastOdd = len(last.Numbers) - ex.LastEven
	}
	return ex, nil
}

func numberCounts(freq *predictor.FrequencyTable, nums []int) []NumberCount {
	out := make([]NumberCount, len(nums))
	for i, n := range nums {
		out[i] = NumberCount{Number: n, Count: freq.Count(n)}
	}
	return out
}

// ImportHistory 把表格文件中库里还没有的期号导入数据库
func (s *Service) ImportHistory(ctx context.Context, key string) (int, error) {
	game, err := s.Game(key)
	if err != nil {
		return 0, err
	}
	path := game.Source().DataFile
	if path == "" || s.sheets == nil {
		return 0, nil
	}

	loaded, err := s.sheets.LoadHistory(path, game)
	if err != nil {
		return 0, err
	}
	existing, err := s.history.GetHistory(game.Key())
	if err != nil {
		return 0, err
	}

	known := make(map[int]bool, existing.Len())
	for _, d := range existing.Draws {
		known[d.Contest] = true
	}

	imported := 0
	for i := range loaded.Draws {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		draw := loaded.Draws[i]
		if known[draw.Contest] {
			continue
		}
		if err := s.store.SaveDraw(game.Key(), &draw); err != nil {
			return imported, err
		}
		if s.metrics != nil {
			s.metrics.RecordDrawAdded(game.Key(), SourceImport, draw.Contest)
		}
		imported++
	}

	if imported > 0 {
		s.history.OnNewDraw(game.Key())
	}

	logger.WithGame(game.Key()).Infof("Imported %d of %d draws from %s", imported, loaded.Len(), path)
	return imported, nil
}

// ImportAll 导入所有配置了数据文件的游戏，单个失败只记录日志
func (s *Service) ImportAll(ctx context.Context) int {
	total := 0
	for _, game := range s.games {
		n, err := s.ImportHistory(ctx, game.Key())
		if err != nil {
			logger.WithGame(game.Key()).Warnf("History import failed: %v", err)
			continue
		}
		total += n
	}
	return total
}

func (s *Service) recordSuggestion(game, method string, constrained bool) {
	if s.metrics != nil {
		s.metrics.RecordSuggestion(game, method, constrained)
	}
}
