package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	"loterias-bot/internal/engine"
	"loterias-bot/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// 模型训练可能较慢，单次命令的上限
const commandTimeout = 2 * time.Minute

// Engine 机器人依赖的引擎操作
type Engine interface {
	Games() []config.Game
	Game(key string) (config.Game, error)
	LatestDraw(key string) (*database.Draw, error)
	Explore(key string) (*engine.Exploration, error)
	Suggest(ctx context.Context, key string) (*engine.SuggestionReport, error)
	Backtest(ctx context.Context, key string, n int) (*engine.BacktestReport, error)
	AddDraw(key string, draw database.Draw, source string) (*database.Draw, error)
	SaveSuggestion(s *database.Suggestion) error
	SavedSuggestions(key string) ([]database.ScoredSuggestion, error)
	DeleteSuggestion(id string) (bool, error)
}

// sender 发送消息的最小接口，测试中替换
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot Telegram机器人
type Bot struct {
	api           *tgbotapi.BotAPI
	sender        sender
	engine        Engine
	allowedUsers  map[int64]bool
	updateChannel tgbotapi.UpdatesChannel
	stopChannel   chan struct{}

	// 每个会话最近一次的建议报告，供保存按钮使用
	mu          sync.Mutex
	lastReports map[int64]*engine.SuggestionReport
}

// NewBot 创建新的Telegram机器人
func NewBot(cfg *config.Telegram, eng Engine) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	api.Debug = false
	logger.Infof("Telegram bot authorized on account: %s", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(cfg.Timeout.Seconds())

	b := newBot(api, eng, cfg.AllowedUsers)
	b.api = api
	b.updateChannel = api.GetUpdatesChan(u)
	return b, nil
}

func newBot(s sender, eng Engine, allowed []int64) *Bot {
	users := make(map[int64]bool, len(allowed))
	for _, id := range allowed {
		users[id] = true
	}
	return &Bot{
		sender:       s,
		engine:       eng,
		allowedUsers: users,
		stopChannel:  make(chan struct{}),
		lastReports:  make(map[int64]*engine.SuggestionReport),
	}
}

// Start 启动机器人
func (b *Bot) Start() {
	logger.Info("Starting Telegram bot...")

	go b.handleUpdates()
	logger.Info("Telegram bot started successfully")
}

// Stop 停止机器人
func (b *Bot) Stop() {
	logger.Info("Stopping Telegram bot...")
	close(b.stopChannel)
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}
	logger.Info("Telegram bot stopped")
}

// handleUpdates 处理更新，只响应私聊
func (b *Bot) handleUpdates() {
	for {
		select {
		case update, ok := <-b.updateChannel:
			if !ok {
				return
			}
			if update.Message != nil {
				if update.Message.Chat.IsPrivate() {
					go b.handleMessage(update.Message)
				}
			} else if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
				if update.CallbackQuery.Message.Chat.IsPrivate() {
					go b.handleCallbackQuery(update.CallbackQuery)
				}
			}
		case <-b.stopChannel:
			return
		}
	}
}

// authorized allowed_users 为空时只读命令不限制
func (b *Bot) authorized(user *tgbotapi.User) bool {
	if len(b.allowedUsers) == 0 {
		return true
	}
	return user != nil && b.allowedUsers[user.ID]
}

// canModify 修改共享数据（录入开奖、删除建议）必须在 allowed_users 中
func (b *Bot) canModify(user *tgbotapi.User) bool {
	return user != nil && b.allowedUsers[user.ID]
}

// requireModify 无权限时回复提示
func (b *Bot) requireModify(chatID int64, user *tgbotapi.User) bool {
	if b.canModify(user) {
		return true
	}
	logger.Warnf("Rejected write command from user %d", chatID)
	b.sendMessage(chatID, "⛔ Only allowed users can change shared data.")
	return false
}

// handleMessage 处理消息
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if !message.Chat.IsPrivate() {
		return
	}
	if !b.authorized(message.From) {
		logger.Warnf("Rejected message from unauthorized user %d", message.Chat.ID)
		b.sendMessage(message.Chat.ID, "⛔ You are not allowed to use this bot.")
		return
	}

	if message.IsCommand() {
		b.handleCommand(message)
	} else {
		b.sendMessage(message.Chat.ID, "Please use commands, type /help for help.")
	}
}

// handleCommand 处理命令
func (b *Bot) handleCommand(message *tgbotapi.Message) {
	command := message.Command()
	chatID := message.Chat.ID
	args := strings.Fields(message.CommandArguments())

	logger.Debugf("Received private command: %s %v from user: %d", command, args, chatID)

	switch command {
	case "start":
		b.sendMessage(chatID, welcomeText)
	case "help":
		b.sendMessage(chatID, helpText)
	case "games":
		b.sendMessage(chatID, b.formatGamesMessage(b.engine.Games()))
	case "latest":
		b.handleLatestCommand(chatID, args)
	case "explore":
		b.handleExploreCommand(chatID, args)
	case "suggest":
		b.handleSuggestCommand(chatID, args)
	case "backtest":
		b.handleBacktestCommand(chatID, args)
	case "saved":
		b.handleSavedCommand(chatID, args)
	case "delete":
		if b.requireModify(chatID, message.From) {
			b.handleDeleteCommand(chatID, args)
		}
	case "adddraw":
		if b.requireModify(chatID, message.From) {
			b.handleAddDrawCommand(chatID, args)
		}
	default:
		b.sendMessage(chatID, "Unknown command. Type /help to view available commands.")
	}
}

// gameArg 第一个参数是游戏
func (b *Bot) gameArg(chatID int64, args []string, usage string) (config.Game, bool) {
	if len(args) == 0 {
		b.sendMessage(chatID, fmt.Sprintf("Usage: `%s`\nSee /games for the game list.", usage))
		return nil, false
	}
	game, err := b.engine.Game(args[0])
	if err != nil {
		b.sendMessage(chatID, formatErrorMessage(err))
		return nil, false
	}
	return game, true
}

func (b *Bot) handleLatestCommand(chatID int64, args []string) {
	game, ok := b.gameArg(chatID, args, "/latest <game>")
	if !ok {
		return
	}
	draw, err := b.engine.LatestDraw(game.Key())
	if err != nil {
		b.replyError(chatID, "latest", err)
		return
	}
	b.sendMessage(chatID, b.formatDrawMessage(game, draw))
}

func (b *Bot) handleExploreCommand(chatID int64, args []string) {
	game, ok := b.gameArg(chatID, args, "/explore <game>")
	if !ok {
		return
	}
	ex, err := b.engine.Explore(game.Key())
	if err != nil {
		b.replyError(chatID, "explore", err)
		return
	}
	b.sendMessage(chatID, b.formatExploreMessage(game, ex))
}

func (b *Bot) handleSuggestCommand(chatID int64, args []string) {
	game, ok := b.gameArg(chatID, args, "/suggest <game>")
	if !ok {
		return
	}
	b.sendMessage(chatID, "⏳ Training models, this can take a moment...")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	report, err := b.engine.Suggest(ctx, game.Key())
	if err != nil {
		b.replyError(chatID, "suggest", err)
		return
	}

	b.mu.Lock()
	b.lastReports[chatID] = report
	b.mu.Unlock()

	msg := tgbotapi.NewMessage(chatID, b.formatSuggestionReport(game, report))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard, ok := saveKeyboard(report); ok {
		msg.ReplyMarkup = keyboard
	}
	b.send(msg)
}

func (b *Bot) handleBacktestCommand(chatID int64, args []string) {
	game, ok := b.gameArg(chatID, args, "/backtest <game> [steps]")
	if !ok {
		return
	}
	n := 0
	if len(args) > 1 {
		v, err := strconv.Atoi(args[1])
		if err != nil {
			b.sendMessage(chatID, "❌ Steps must be a number.")
			return
		}
		n = v
	}
	b.sendMessage(chatID, "⏳ Running walk-forward validation...")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	report, err := b.engine.Backtest(ctx, game.Key(), n)
	if err != nil {
		b.replyError(chatID, "backtest", err)
		return
	}
	b.sendMessage(chatID, b.formatBacktestMessage(game, report))
}

func (b *Bot) handleSavedCommand(chatID int64, args []string) {
	game, ok := b.gameArg(chatID, args, "/saved <game>")
	if !ok {
		return
	}
	saved, err := b.engine.SavedSuggestions(game.Key())
	if err != nil {
		b.replyError(chatID, "saved", err)
		return
	}
	b.sendMessage(chatID, b.formatSavedMessage(game, saved))
}

func (b *Bot) handleDeleteCommand(chatID int64, args []string) {
	if len(args) == 0 {
		b.sendMessage(chatID, "Usage: `/delete <id>`")
		return
	}
	b.deleteSuggestion(chatID, args[0])
}

func (b *Bot) deleteSuggestion(chatID int64, id string) {
	deleted, err := b.engine.DeleteSuggestion(id)
	if err != nil {
		b.replyError(chatID, "delete", err)
		return
	}
	if !deleted {
		b.sendMessage(chatID, "❌ Suggestion not found.")
		return
	}
	b.sendMessage(chatID, "🗑 Suggestion deleted.")
}

func (b *Bot) handleAddDrawCommand(chatID int64, args []string) {
	game, ok := b.gameArg(chatID, args, "/adddraw <game> <numbers> [bonus=a,b] [team=NAME] [month=N]")
	if !ok {
		return
	}
	draw, err := parseDrawArgs(args[1:])
	if err != nil {
		b.sendMessage(chatID, "❌ "+err.Error())
		return
	}

	added, err := b.engine.AddDraw(game.Key(), draw, engine.SourceManual)
	if err != nil {
		b.replyError(chatID, "adddraw", err)
		return
	}
	b.sendMessage(chatID, "✅ Draw added.\n\n"+b.formatDrawMessage(game, added))
}

// parseDrawArgs 解析 "1,5,12 23 34 45 bonus=2,5 team=SANTOS/SP month=8"
func parseDrawArgs(args []string) (database.Draw, error) {
	var (
		draw    database.Draw
		numbers []string
	)
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			numbers = append(numbers, arg)
			continue
		}
		switch strings.ToLower(key) {
		case "bonus", "trevos":
			bonus, err := database.ParseNumbers(value)
			if err != nil {
				return draw, err
			}
			draw.Bonus = bonus
		case "team", "time":
			draw.Team = strings.ToUpper(strings.ReplaceAll(value, "_", " "))
		case "month", "mes":
			draw.Month = database.ParseMonth(value)
			if draw.Month == 0 {
				return draw, fmt.Errorf("invalid month %q", value)
			}
		default:
			return draw, fmt.Errorf("unknown field %q", key)
		}
	}

	if len(numbers) == 0 {
		return draw, fmt.Errorf("no numbers given")
	}
	nums, err := database.ParseNumbers(strings.Join(numbers, " "))
	if err != nil {
		return draw, err
	}
	draw.Numbers = nums
	return draw, nil
}

// handleCallbackQuery 处理内联按钮
func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	answer := ""

	if !b.authorized(callback.From) {
		b.answerCallback(callback.ID, "⛔ Not allowed")
		return
	}

	logger.Debugf("Received private callback: %s from user: %d", callback.Data, chatID)

	action, value, _ := strings.Cut(callback.Data, ":")
	switch action {
	case "save":
		answer = b.saveFromReport(chatID, value)
	case "delete":
		if !b.canModify(callback.From) {
			answer = "⛔ Not allowed"
			break
		}
		b.deleteSuggestion(chatID, value)
	}

	b.answerCallback(callback.ID, answer)
}

// saveFromReport 保存最近报告中的第index条建议
func (b *Bot) saveFromReport(chatID int64, value string) string {
	index, err := strconv.Atoi(value)
	if err != nil {
		return "Invalid button"
	}

	b.mu.Lock()
	report := b.lastReports[chatID]
	b.mu.Unlock()
	if report == nil {
		return "Report expired, run /suggest again"
	}

	suggestions := report.Suggestions()
	if index < 0 || index >= len(suggestions) {
		return "Report expired, run /suggest again"
	}
	if err := b.engine.SaveSuggestion(suggestions[index]); err != nil {
		logger.Errorf("Failed to save suggestion: %v", err)
		return "❌ Failed to save"
	}
	return "💾 Saved"
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(id, text)); err != nil {
		logger.Debugf("Failed to answer callback: %v", err)
	}
}

// replyError 把引擎错误转换为用户可读的提示
func (b *Bot) replyError(chatID int64, command string, err error) {
	logger.Warnf("Command %s failed for %d: %v", command, chatID, err)
	b.sendMessage(chatID, formatErrorMessage(err))
}

// sendMessage 发送消息（仅发送给私聊）
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	// 正数ID为用户，负数为群组
	if msg.ChatID < 0 {
		logger.Debugf("Skipping message to group chat %d", msg.ChatID)
		return
	}
	if _, err := b.sender.Send(msg); err != nil {
		logger.Errorf("Failed to send message to user %d: %v", msg.ChatID, err)
	}
}

// BroadcastNewDraw 把新开奖推送给 allowed_users 中的用户
func (b *Bot) BroadcastNewDraw(game config.Game, draw *database.Draw) error {
	message := "🔔 *New draw*\n\n" + b.formatDrawMessage(game, draw)

	for userID := range b.allowedUsers {
		if userID > 0 {
			b.sendMessage(userID, message)
		}
	}

	logger.WithGame(game.Key()).Infof("Broadcasted draw %d to %d private users", draw.Contest, len(b.allowedUsers))
	return nil
}

// GetBotInfo 获取机器人信息
func (b *Bot) GetBotInfo() map[string]interface{} {
	if b.api == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}{
		"username":        b.api.Self.UserName,
		"id":              b.api.Self.ID,
		"first_name":      b.api.Self.FirstName,
		"is_bot":          b.api.Self.IsBot,
		"can_join_groups": b.api.Self.CanJoinGroups,
	}
}
