package database

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 生成方式标签
const (
	MethodStatistical   = "statistical"
	MethodSumRegression = "sum-regression"
	MethodLinearSum     = "linear-sum"
	MethodMultiLabel    = "multi-label"
	MethodBacktest      = "backtest"
	MethodManual        = "manual"
)

// Draw 单期开奖结果
type Draw struct {
	Contest int       `json:"contest" db:"contest"`
	Numbers []int     `json:"numbers" db:"numbers"`
	Bonus   []int     `json:"bonus,omitempty" db:"bonus"`
	Team    string    `json:"team,omitempty" db:"team"`
	Month   int       `json:"month,omitempty" db:"month"`
	DrawnAt time.Time `json:"drawn_at" db:"drawn_at"`
}

// History 某一游戏按时间升序排列的历史开奖
type History struct {
	Variant string `json:"variant"`
	Draws   []Draw `json:"draws"`
}

// Len 历史期数
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Draws)
}

// Last 最近一期开奖
func (h *History) Last() (Draw, bool) {
	if h.Len() == 0 {
		return Draw{}, false
	}
	return h.Draws[len(h.Draws)-1], true
}

// Table 数值表视图：每行一期，每列一个号码
func (h *History) Table() [][]int {
	table := make([][]int, 0, h.Len())
	if h == nil {
		return table
	}
	for _, d := range h.Draws {
		row := make([]int, len(d.Numbers))
		copy(row, d.Numbers)
		table = append(table, row)
	}
	return table
}

// Window 返回 [from, to) 区间的历史副本
func (h *History) Window(from, to int) *History {
	draws := make([]Draw, to-from)
	copy(draws, h.Draws[from:to])
	return &History{Variant: h.Variant, Draws: draws}
}

// Suggestion 系统生成的候选号码，创建后不可修改
type Suggestion struct {
	ID        string    `json:"id" db:"id"`
	Variant   string    `json:"variant" db:"variant"`
	Method    string    `json:"method" db:"method"`
	Numbers   []int     `json:"numbers" db:"numbers"`
	Bonus     []int     `json:"bonus,omitempty" db:"bonus"`
	Team      string    `json:"team,omitempty" db:"team"`
	Month     int       `json:"month,omitempty" db:"month"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewSuggestion 创建建议号码
func NewSuggestion(variant, method string, numbers []int) *Suggestion {
	return &Suggestion{
		ID:        NewID(),
		Variant:   variant,
		Method:    method,
		Numbers:   append([]int(nil), numbers...),
		CreatedAt: time.Now(),
	}
}

// ScoredSuggestion 建议号码及其评分（派生值，不修改原建议）
type ScoredSuggestion struct {
	Suggestion      *Suggestion `json:"suggestion"`
	Accuracy        float64     `json:"accuracy"`
	AlreadyOccurred bool        `json:"already_occurred"`
	Constrained     bool        `json:"constrained,omitempty"`
}

// BacktestEntry 前向验证中的一步
type BacktestEntry struct {
	Step            int         `json:"step"`
	TrainEnd        int         `json:"train_end"`
	TestIndex       int         `json:"test_index"`
	TargetIndex     int         `json:"target_index"`
	Suggestion      *Suggestion `json:"suggestion"`
	Actual          []int       `json:"actual"`
	Score           float64     `json:"score"`
	AlreadyOccurred bool        `json:"already_occurred"`
}

var monthNames = map[string]int{
	"janeiro": 1, "fevereiro": 2, "março": 3, "marco": 3, "abril": 4, "maio": 5, "junho": 6,
	"julho": 7, "agosto": 8, "setembro": 9, "outubro": 10, "novembro": 11, "dezembro": 12,
}

// ParseMonth 月份可以是数字或葡萄牙语月份名，无法识别时返回0
func ParseMonth(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return n
	}
	return monthNames[s]
}

// NewID 生成建议ID（优先使用时间有序的UUIDv7）
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// ParseNumbers 解析号码字符串，支持逗号、空格、加号、横线分隔
func ParseNumbers(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '+' || r == '-' || r == ';' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("no numbers in %q", s)
	}

	nums := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("failed to parse number: %s", f)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

// FormatNumbers 格式化号码，逗号分隔
func FormatNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// CalculateSum 计算和值
func CalculateSum(nums []int) int {
	sum := 0
	for _, num := range nums {
		sum += num
	}
	return sum
}

// CountEven 统计偶数个数
func CountEven(nums []int) int {
	even := 0
	for _, n := range nums {
		if n%2 == 0 {
			even++
		}
	}
	return even
}

// SortedCopy 返回升序副本
func SortedCopy(nums []int) []int {
	out := append([]int(nil), nums...)
	sort.Ints(out)
	return out
}

// ValidateSet 校验号码集合：数量、范围、互不相同
func ValidateSet(nums []int, count, min, max int) error {
	if len(nums) != count {
		return fmt.Errorf("expected %d numbers, got %d", count, len(nums))
	}
	seen := make(map[int]bool, len(nums))
	for _, n := range nums {
		if n < min || n > max {
			return fmt.Errorf("number %d out of range [%d, %d]", n, min, max)
		}
		if seen[n] {
			return fmt.Errorf("duplicate number %d", n)
		}
		seen[n] = true
	}
	return nil
}

// ValidateColumns 校验按列号码：数量与范围，允许重复
func ValidateColumns(nums []int, columns, min, max int) error {
	if len(nums) != columns {
		return fmt.Errorf("expected %d columns, got %d", columns, len(nums))
	}
	for i, n := range nums {
		if n < min || n > max {
			return fmt.Errorf("column %d value %d out of range [%d, %d]", i+1, n, min, max)
		}
	}
	return nil
}
