package predictor

import (
	"sort"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
)

// FillAuxiliary 按游戏能力补充附加号码、球队或幸运月份，在建议交给调用方之前调用
func FillAuxiliary(s *database.Suggestion, history *database.History, game config.Game, rng RandomSource) {
	if g, ok := game.(config.HasBonusNumbers); ok {
		s.Bonus = pickBonus(history, g.BonusSpec(), rng)
	}
	if g, ok := game.(config.HasTeamField); ok {
		s.Team = pickTeam(history, g.Teams(), rng)
	}
	if _, ok := game.(config.HasMonthField); ok {
		s.Month = pickMonth(history, rng)
	}
}

// BonusFrequency 附加号码出现次数
func BonusFrequency(history *database.History, spec config.BonusSpec) *FrequencyTable {
	table := NewFrequencyTable(spec.Min, spec.Max)
	if history == nil {
		return table
	}
	table.Variant = history.Variant
	table.Draws = history.Len()
	for _, d := range historyDraws(history) {
		for _, n := range d.Bonus {
			table.add(n)
		}
	}
	return table
}

// pickBonus 从附加号码的高频池中随机抽取不重复的Count个
func pickBonus(history *database.History, spec config.BonusSpec, rng RandomSource) []int {
	pool := BonusFrequency(history, spec).Top(spec.Count * poolFactor)

	picked := make([]int, 0, spec.Count)
	seen := make(map[int]bool, spec.Count)
	for attempt := 0; attempt < MaxSampleAttempts && len(picked) < spec.Count && len(pool) > 0; attempt++ {
		n := pool[rng.Intn(len(pool))]
		if !seen[n] {
			seen[n] = true
			picked = append(picked, n)
		}
	}
	return fillRandom(picked, spec.Count, spec.Min, spec.Max, rng)
}

// pickTeam 历史中出现最多的球队，次数相同取字母序靠前的；没有历史时从名单中随机选
func pickTeam(history *database.History, roster []string, rng RandomSource) string {
	counts := make(map[string]int)
	for _, d := range historyDraws(history) {
		if d.Team != "" {
			counts[d.Team]++
		}
	}
	if len(counts) == 0 {
		if len(roster) == 0 {
			return ""
		}
		return roster[rng.Intn(len(roster))]
	}

	teams := make([]string, 0, len(counts))
	for t := range counts {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	best := teams[0]
	for _, t := range teams[1:] {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best
}

// pickMonth 历史中出现最多的幸运月份，次数相同取较小的月份
func pickMonth(history *database.History, rng RandomSource) int {
	var counts [13]int
	seen := false
	for _, d := range historyDraws(history) {
		if d.Month >= 1 && d.Month <= 12 {
			counts[d.Month]++
			seen = true
		}
	}
	if !seen {
		return 1 + rng.Intn(12)
	}

	best := 1
	for m := 2; m <= 12; m++ {
		if counts[m] > counts[best] {
			best = m
		}
	}
	return best
}

func historyDraws(history *database.History) []database.Draw {
	if history == nil {
		return nil
	}
	return history.Draws
}
