package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"
	"loterias-bot/internal/logger"

	"github.com/tidwall/gjson"
)

// ErrContestNotFound 接口没有该期开奖（通常是尚未开奖）
var ErrContestNotFound = errors.New("contest not found")

// Client 官方开奖结果接口客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryCount int
	retryDelay time.Duration
}

// NewClient 创建新的API客户端
func NewClient(cfg *config.API) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
	}
}

// FetchLatest 获取某游戏最新一期开奖
func (c *Client) FetchLatest(ctx context.Context, game config.Game) (*database.Draw, error) {
	slug, err := apiSlug(game)
	if err != nil {
		return nil, err
	}
	return c.fetch(ctx, game, fmt.Sprintf("%s/%s", c.baseURL, slug))
}

// FetchContest 获取某游戏指定期号的开奖
func (c *Client) FetchContest(ctx context.Context, game config.Game, contest int) (*database.Draw, error) {
	slug, err := apiSlug(game)
	if err != nil {
		return nil, err
	}
	return c.fetch(ctx, game, fmt.Sprintf("%s/%s/%d", c.baseURL, slug, contest))
}

func apiSlug(game config.Game) (string, error) {
	slug := game.Source().APISlug
	if slug == "" {
		return "", apperrors.NewConfiguration(game.Key(), "api_slug", "not configured")
	}
	return slug, nil
}

// fetch 带重试地请求并解析，重试间隔线性增长
func (c *Client) fetch(ctx context.Context, game config.Game, url string) (*database.Draw, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			logger.WithGame(game.Key()).Warnf("API request retry attempt %d/%d", attempt, c.retryCount)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		body, err := c.makeRequest(ctx, url)
		if err != nil {
			if errors.Is(err, ErrContestNotFound) || ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}

		return ParseDraw(body, game)
	}

	return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", url, c.retryCount+1, lastErr)
}

// makeRequest 执行HTTP请求
func (c *Client) makeRequest(ctx context.Context, url string) ([]byte, error) {
	logger.Debugf("Making API request to: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrContestNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// ParseDraw 将接口返回的JSON转换为开奖记录并按游戏规则校验
func ParseDraw(body []byte, game config.Game) (*database.Draw, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON in API response")
	}
	result := gjson.ParseBytes(body)

	contest := int(result.Get("numero").Int())
	if contest <= 0 {
		return nil, ErrContestNotFound
	}

	numbers, err := intList(result.Get("listaDezenas"))
	if err != nil {
		return nil, fmt.Errorf("contest %d: %w", contest, err)
	}

	min, max := game.Range()
	if cg, ok := game.(config.IsColumnar); ok {
		// 按列开奖保持列顺序
		err = database.ValidateColumns(numbers, cg.Columns(), min, max)
	} else {
		numbers = database.SortedCopy(numbers)
		err = database.ValidateSet(numbers, game.NumBalls(), min, max)
	}
	if err != nil {
		return nil, fmt.Errorf("contest %d: %w", contest, err)
	}

	draw := &database.Draw{Contest: contest, Numbers: numbers}

	if date := result.Get("dataApuracao").String(); date != "" {
		if t, err := time.Parse("02/01/2006", date); err == nil {
			draw.DrawnAt = t
		} else {
			logger.Debugf("Unrecognised draw date %q", date)
		}
	}

	if _, ok := game.(config.HasBonusNumbers); ok {
		if draw.Bonus, err = intList(result.Get("trevosSorteados")); err != nil {
			return nil, fmt.Errorf("contest %d bonus: %w", contest, err)
		}
		draw.Bonus = database.SortedCopy(draw.Bonus)
	}

	extra := strings.TrimSpace(result.Get("nomeTimeCoracaoMesSorte").String())
	if _, ok := game.(config.HasTeamField); ok {
		draw.Team = extra
	}
	if _, ok := game.(config.HasMonthField); ok {
		draw.Month = database.ParseMonth(extra)
	}

	return draw, nil
}

// intList 接口中的号码是字符串数组，例如 ["04","15"]
func intList(arr gjson.Result) ([]int, error) {
	if !arr.IsArray() {
		return nil, fmt.Errorf("missing number list")
	}
	var out []int
	for _, v := range arr.Array() {
		n, err := strconv.Atoi(strings.TrimSpace(v.String()))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", v.String())
		}
		out = append(out, n)
	}
	return out, nil
}

// HealthCheck 检查API健康状态
func (c *Client) HealthCheck(ctx context.Context, game config.Game) error {
	if _, err := c.FetchLatest(ctx, game); err != nil {
		return fmt.Errorf("API health check failed: %w", err)
	}

	logger.Debug("API health check passed")
	return nil
}

// GetAPIStats 获取API统计信息
func (c *Client) GetAPIStats() map[string]interface{} {
	return map[string]interface{}{
		"base_url":    c.baseURL,
		"timeout":     c.httpClient.Timeout,
		"retry_count": c.retryCount,
		"retry_delay": c.retryDelay,
	}
}
