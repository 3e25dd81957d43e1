package telegram

import (
	"errors"
	"fmt"
	"strings"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	"loterias-bot/internal/engine"
	apperrors "loterias-bot/internal/errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// 回测报告中列出的最佳步骤数
const backtestTopEntries = 5

const welcomeText = `🎲 Welcome to the Loterias suggestion bot!

I analyse past draws and suggest numbers with:
• 📊 Frequency and sum constrained sampling
• 🤖 Small neural network models
• 🔁 Walk-forward backtesting

Type /help to see the commands.

⚠️ Suggestions are for entertainment only. No method predicts a lottery.`

const helpText = `📖 Command Help:

/games - List the configured games
/latest <game> - Latest recorded draw
/explore <game> - Hot and cold numbers, recent draws
/suggest <game> - Generate suggestions (with save buttons)
/backtest <game> [steps] - Walk-forward validation
/saved <game> - Saved suggestions scored against the latest draw
/delete <id> - Delete a saved suggestion (allowed users)
/adddraw <game> <numbers> [bonus=a,b] [team=NAME] [month=N] - Record a draw (allowed users)

💡 Example: /adddraw megasena 4 5 30 33 41 52`

// formatGamesMessage 游戏列表
func (b *Bot) formatGamesMessage(games []config.Game) string {
	var builder strings.Builder

	builder.WriteString("🎮 *Games*\n\n")
	if len(games) == 0 {
		builder.WriteString("No games configured")
		return builder.String()
	}

	for _, g := range games {
		min, max := g.Range()
		builder.WriteString(fmt.Sprintf("`%s` %s: ", g.Key(), g.Name()))
		if cg, ok := g.(config.IsColumnar); ok {
			builder.WriteString(fmt.Sprintf("%d columns of %d-%d", cg.Columns(), min, max))
		} else {
			builder.WriteString(fmt.Sprintf("%d numbers from %d-%d", g.NumBalls(), min, max))
		}
		if bg, ok := g.(config.HasBonusNumbers); ok {
			spec := bg.BonusSpec()
			builder.WriteString(fmt.Sprintf(" + %d bonus from %d-%d", spec.Count, spec.Min, spec.Max))
		}
		if _, ok := g.(config.HasTeamField); ok {
			builder.WriteString(" + team")
		}
		if _, ok := g.(config.HasMonthField); ok {
			builder.WriteString(" + month")
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// formatDrawMessage 单期开奖
func (b *Bot) formatDrawMessage(game config.Game, draw *database.Draw) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("🎯 *%s*\n", game.Name()))
	if draw == nil {
		builder.WriteString("No draws recorded yet")
		return builder.String()
	}

	builder.WriteString(fmt.Sprintf("Contest: `%d`\n", draw.Contest))
	if !draw.DrawnAt.IsZero() {
		builder.WriteString(fmt.Sprintf("Date: `%s`\n", draw.DrawnAt.Format("02/01/2006")))
	}
	builder.WriteString(fmt.Sprintf("Numbers: `%s`\n", formatNumbers(draw.Numbers)))
	if len(draw.Bonus) > 0 {
		builder.WriteString(fmt.Sprintf("Bonus: `%s`\n", formatNumbers(draw.Bonus)))
	}
	if draw.Team != "" {
		builder.WriteString(fmt.Sprintf("Team: `%s`\n", draw.Team))
	}
	if draw.Month != 0 {
		builder.WriteString(fmt.Sprintf("Month: `%d`\n", draw.Month))
	}
	builder.WriteString(fmt.Sprintf("Sum: `%d`", database.CalculateSum(draw.Numbers)))
	return builder.String()
}

// formatExploreMessage 历史概览
func (b *Bot) formatExploreMessage(game config.Game, ex *engine.Exploration) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("🔍 *%s data exploration*\n\n", game.Name()))
	builder.WriteString(fmt.Sprintf("Draws: `%d`\n", ex.Draws))
	builder.WriteString(fmt.Sprintf("Numbers drawn: `%d` (%d distinct)\n", ex.TotalNumbers, ex.UniqueNumbers))
	builder.WriteString(fmt.Sprintf("Sum mean: `%.1f` ± `%.1f`\n\n", ex.Moments.Mean, ex.Moments.Std))

	builder.WriteString("🔥 *Most frequent*\n")
	builder.WriteString(formatCounts(ex.MostFrequent))
	builder.WriteString("\n🧊 *Least frequent*\n")
	builder.WriteString(formatCounts(ex.LeastFrequent))

	builder.WriteString(fmt.Sprintf("\n📅 *Last %d draws*\n", len(ex.LastDraws)))
	for _, d := range ex.LastDraws {
		builder.WriteString(fmt.Sprintf("`%d`: `%s`\n", d.Contest, formatNumbers(d.Numbers)))
	}

	builder.WriteString(fmt.Sprintf("\nLast draw sum `%d`, %d even / %d odd", ex.LastSum, ex.LastEven, ex.LastOdd))
	return builder.String()
}

func formatCounts(counts []engine.NumberCount) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("`%d` (%dx)", c.Number, c.Count)
	}
	return strings.Join(parts, ", ") + "\n"
}

// formatSuggestionReport 建议报告，按钮序号与 Suggestions() 的顺序一致
func (b *Bot) formatSuggestionReport(game config.Game, report *engine.SuggestionReport) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("🔮 *%s suggestions*\n", game.Name()))
	if report.Latest != nil {
		builder.WriteString(fmt.Sprintf("Scored against contest `%d`: `%s`\n", report.Latest.Contest, formatNumbers(report.Latest.Numbers)))
	}

	builder.WriteString("\n📊 *Statistical*\n")
	index := 1
	for _, s := range report.Statistical {
		builder.WriteString(fmt.Sprintf("%d. %s\n", index, formatScored(s)))
		if !s.Constrained {
			builder.WriteString("   _constraints relaxed_\n")
		}
		index++
	}

	builder.WriteString("\n🤖 *Models*\n")
	for _, m := range report.Models {
		if m.Err != nil {
			builder.WriteString(fmt.Sprintf("• %s: %s\n", m.Method, shortError(m.Err)))
			continue
		}
		builder.WriteString(fmt.Sprintf("%d. %s: %s\n", index, m.Method, formatScored(*m.Scored)))
		index++
	}

	builder.WriteString("\n💡 Hits are measured against the latest draw only")
	return builder.String()
}

// formatScored 一行建议：号码、附加字段、命中率和是否已开出过
func formatScored(s database.ScoredSuggestion) string {
	line := fmt.Sprintf("`%s`%s (%.0f%%)", formatNumbers(s.Suggestion.Numbers), formatAuxiliary(s.Suggestion), s.Accuracy*100)
	if s.AlreadyOccurred {
		line += " ⚠️ already drawn"
	}
	return line
}

func formatAuxiliary(s *database.Suggestion) string {
	var parts []string
	if len(s.Bonus) > 0 {
		parts = append(parts, "bonus "+formatNumbers(s.Bonus))
	}
	if s.Team != "" {
		parts = append(parts, s.Team)
	}
	if s.Month != 0 {
		parts = append(parts, fmt.Sprintf("month %d", s.Month))
	}
	if len(parts) == 0 {
		return ""
	}
	return " + `" + strings.Join(parts, " | ") + "`"
}

// saveKeyboard 每条建议一个保存按钮
func saveKeyboard(report *engine.SuggestionReport) (tgbotapi.InlineKeyboardMarkup, bool) {
	suggestions := report.Suggestions()
	if len(suggestions) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i := range suggestions {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("💾 %d", i+1), fmt.Sprintf("save:%d", i)))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

// formatBacktestMessage 回测结果
func (b *Bot) formatBacktestMessage(game config.Game, report *engine.BacktestReport) string {
	var builder strings.Builder
	summary := report.Summary

	builder.WriteString(fmt.Sprintf("🔁 *%s walk-forward validation*\n\n", game.Name()))
	builder.WriteString(fmt.Sprintf("Steps: `%d`\n", summary.Steps))
	builder.WriteString(fmt.Sprintf("Mean score: `%.1f%%` (min `%.1f%%`, max `%.1f%%`)\n", summary.MeanScore, summary.MinScore, summary.MaxScore))
	builder.WriteString(fmt.Sprintf("Std dev: `%.1f`\n", summary.StdDev))
	builder.WriteString(fmt.Sprintf("Already drawn: `%d`\n", summary.OccurredCount))
	builder.WriteString(fmt.Sprintf("Trend: `%s`\n", summary.TrendDirection))
	builder.WriteString(fmt.Sprintf("🏆 *Rating*: %s\n\n", calculatePerformanceRating(summary.MeanScore)))

	builder.WriteString("📋 *Best steps*\n")
	for i, e := range report.Ranked {
		if i >= backtestTopEntries {
			break
		}
		builder.WriteString(fmt.Sprintf("Step %d: `%s` vs `%s` (%.0f%%)", e.Step,
			formatNumbers(e.Suggestion.Numbers), formatNumbers(e.Actual), e.Score))
		if e.AlreadyOccurred {
			builder.WriteString(" ⚠️")
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// formatSavedMessage 已保存的建议
func (b *Bot) formatSavedMessage(game config.Game, saved []database.ScoredSuggestion) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("💾 *Saved suggestions for %s*\n\n", game.Name()))
	if len(saved) == 0 {
		builder.WriteString("No saved suggestions")
		return builder.String()
	}

	for i, s := range saved {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, formatScored(s)))
		builder.WriteString(fmt.Sprintf("   %s, %s\n", s.Suggestion.Method, s.Suggestion.CreatedAt.Format("2006-01-02 15:04")))
		builder.WriteString(fmt.Sprintf("   id `%s`\n", s.Suggestion.ID))
	}
	builder.WriteString("\n🗑 Delete with /delete <id>")
	return builder.String()
}

// calculatePerformanceRating 按平均命中率评级
func calculatePerformanceRating(score float64) string {
	switch {
	case score >= 50:
		return "🏆 Excellent (≥50%)"
	case score >= 30:
		return "🥇 Great (≥30%)"
	case score >= 20:
		return "🥈 Good (≥20%)"
	case score >= 10:
		return "🥉 Fair (≥10%)"
	default:
		return "📚 Random-like (<10%)"
	}
}

// formatErrorMessage 用户可见的错误提示
func formatErrorMessage(err error) string {
	if insufficient, ok := apperrors.AsInsufficientData(err); ok {
		return fmt.Sprintf("❌ Not enough history for %s: need at least `%d` draws, have `%d`.",
			insufficient.Model, insufficient.Required, insufficient.Got)
	}

	var cfgErr *apperrors.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		return fmt.Sprintf("❌ Not available for this game: `%s`", cfgErr.Reason)
	case errors.Is(err, engine.ErrUnknownGame):
		return "❌ Unknown game. Use /games to see the list."
	case errors.Is(err, engine.ErrInvalidDraw):
		return fmt.Sprintf("❌ `%s`", err.Error())
	case apperrors.IsDataUnavailable(err):
		return "❌ Draw history is unavailable, please try again later."
	default:
		return "❌ Something went wrong, please try again later."
	}
}

// shortError 模型失败原因的简短描述
func shortError(err error) string {
	if insufficient, ok := apperrors.AsInsufficientData(err); ok {
		return fmt.Sprintf("needs %d draws", insufficient.Required)
	}
	var cfgErr *apperrors.ConfigurationError
	if errors.As(err, &cfgErr) {
		return "not available for this game"
	}
	return "failed"
}

func formatNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}
