package config

import (
	"strings"

	apperrors "loterias-bot/internal/errors"
)

// 游戏类型
const (
	KindStandard = "standard"
	KindBonus    = "bonus"
	KindTeam     = "team"
	KindMonth    = "month"
	KindColumnar = "columnar"
)

// GameSpec YAML中的游戏配置
type GameSpec struct {
	Key          string     `yaml:"key"`
	Name         string     `yaml:"name"`
	Kind         string     `yaml:"kind"`
	MinNum       int        `yaml:"min_num"`
	MaxNum       int        `yaml:"max_num"`
	NumBolas     int        `yaml:"num_bolas"`
	Bonus        *BonusSpec `yaml:"bonus"`
	Teams        []string   `yaml:"teams"`
	Columns      int        `yaml:"columns"`
	APISlug      string     `yaml:"api_slug"`
	DataFile     string     `yaml:"data_file"`
	SyncSchedule string     `yaml:"sync_schedule"`
}

// BonusSpec 附加号码（例如三叶草）的数量和范围
type BonusSpec struct {
	Count int `yaml:"count"`
	Min   int `yaml:"min"`
	Max   int `yaml:"max"`
}

// Source 游戏数据来源
type Source struct {
	APISlug      string
	DataFile     string
	SyncSchedule string
}

// Game 所有游戏变体的公共接口
type Game interface {
	Key() string
	Name() string
	Range() (min, max int)
	NumBalls() int
	Source() Source
}

// HasBonusNumbers 带附加号码的游戏
type HasBonusNumbers interface {
	Game
	BonusSpec() BonusSpec
}

// HasTeamField 带球队字段的游戏
type HasTeamField interface {
	Game
	Teams() []string
}

// HasMonthField 带幸运月份字段的游戏
type HasMonthField interface {
	Game
	MonthField() bool
}

// IsColumnar 按列独立开奖的游戏
type IsColumnar interface {
	Game
	Columns() int
}

type baseGame struct {
	key      string
	name     string
	min      int
	max      int
	numBolas int
	source   Source
}

func (g baseGame) Key() string { return g.key }
func (g baseGame) Name() string { return g.name }
func (g baseGame) Range() (int, int) { return g.min, g.max }
func (g baseGame) NumBalls() int { return g.numBolas }
func (g baseGame) Source() Source { return g.source }

// SetGame 普通选号游戏
type SetGame struct{ baseGame }

// BonusGame 选号 + 附加号码
type BonusGame struct {
	baseGame
	bonus BonusSpec
}

func (g BonusGame) BonusSpec() BonusSpec { return g.bonus }

// TeamGame 选号 + 心仪球队
type TeamGame struct {
	baseGame
	teams []string
}

func (g TeamGame) Teams() []string {
	out := make([]string, len(g.teams))
	copy(out, g.teams)
	return out
}

// MonthGame 选号 + 幸运月份
type MonthGame struct{ baseGame }

func (g MonthGame) MonthField() bool { return true }

// ColumnGame 每列独立开出一个数字
type ColumnGame struct {
	baseGame
	columns int
}

func (g ColumnGame) Columns() int { return g.columns }

// RangeSize 号码范围内的数字个数
func RangeSize(g Game) int {
	min, max := g.Range()
	return max - min + 1
}

// BuildGame 根据配置构造游戏变体
func BuildGame(spec GameSpec) (Game, error) {
	key := strings.ToLower(strings.TrimSpace(spec.Key))
	if key == "" {
		return nil, apperrors.NewConfiguration(spec.Name, "key", "is required")
	}
	name := spec.Name
	if name == "" {
		name = spec.Key
	}
	if spec.MaxNum <= spec.MinNum {
		return nil, apperrors.NewConfiguration(key, "max_num", "must be greater than min_num")
	}

	base := baseGame{
		key:      key,
		name:     name,
		min:      spec.MinNum,
		max:      spec.MaxNum,
		numBolas: spec.NumBolas,
		source: Source{
			APISlug:      spec.APISlug,
			DataFile:     spec.DataFile,
			SyncSchedule: spec.SyncSchedule,
		},
	}

	kind := strings.ToLower(spec.Kind)
	if kind == "" {
		kind = KindStandard
	}

	if kind == KindColumnar {
		if spec.Columns <= 0 {
			return nil, apperrors.NewConfiguration(key, "columns", "columnar game needs a positive column count")
		}
		if spec.NumBolas != 0 && spec.NumBolas != spec.Columns {
			return nil, apperrors.NewConfiguration(key, "num_bolas", "must match columns for a columnar game")
		}
		base.numBolas = spec.Columns
		return ColumnGame{baseGame: base, columns: spec.Columns}, nil
	}

	if spec.NumBolas <= 0 {
		return nil, apperrors.NewConfiguration(key, "num_bolas", "must be positive")
	}
	if spec.NumBolas > spec.MaxNum-spec.MinNum+1 {
		return nil, apperrors.NewConfiguration(key, "num_bolas", "larger than the number range")
	}

	switch kind {
	case KindStandard:
		return SetGame{baseGame: base}, nil
	case KindBonus:
		if spec.Bonus == nil {
			return nil, apperrors.NewConfiguration(key, "bonus", "bonus game needs bonus count and range")
		}
		b := *spec.Bonus
		if b.Count <= 0 {
			return nil, apperrors.NewConfiguration(key, "bonus.count", "must be positive")
		}
		if b.Max <= b.Min || b.Count > b.Max-b.Min+1 {
			return nil, apperrors.NewConfiguration(key, "bonus.max", "bonus range too small for bonus count")
		}
		return BonusGame{baseGame: base, bonus: b}, nil
	case KindTeam:
		if len(spec.Teams) == 0 {
			return nil, apperrors.NewConfiguration(key, "teams", "team game needs a team roster")
		}
		return TeamGame{baseGame: base, teams: append([]string(nil), spec.Teams...)}, nil
	case KindMonth:
		return MonthGame{baseGame: base}, nil
	default:
		return nil, apperrors.NewConfiguration(key, "kind", "unknown game kind "+spec.Kind)
	}
}

// FindGame 按key查找游戏
func FindGame(games []Game, key string) (Game, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, g := range games {
		if g.Key() == key || strings.EqualFold(g.Name(), key) {
			return g, true
		}
	}
	return nil, false
}
