package predictor

import (
	"sort"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"

	"github.com/montanaflynn/stats"
)

// FrequencyTable 号码出现次数，Counts[n-Min] 为号码n的次数，范围内每个号码都有一项
type FrequencyTable struct {
	Variant string `json:"variant"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Counts  []int  `json:"counts"`
	Draws   int    `json:"draws"`

	// Columns 按列游戏的每列频率，普通游戏为空
	Columns []*FrequencyTable `json:"columns,omitempty"`
}

// Moments 历史和值的均值与样本标准差
type Moments struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// NewFrequencyTable 创建全零频率表
func NewFrequencyTable(min, max int) *FrequencyTable {
	return &FrequencyTable{Min: min, Max: max, Counts: make([]int, max-min+1)}
}

// BuildFrequency 统计历史中每个号码的出现次数
func BuildFrequency(history *database.History, game config.Game) (*FrequencyTable, error) {
	if history.Len() == 0 {
		return nil, apperrors.NewInsufficientData("frequency", 1, 0)
	}

	min, max := game.Range()
	table := NewFrequencyTable(min, max)
	table.Variant = game.Key()
	table.Draws = history.Len()

	for _, d := range history.Draws {
		for _, n := range d.Numbers {
			table.add(n)
		}
	}

	if cg, ok := game.(config.IsColumnar); ok {
		table.Columns = make([]*FrequencyTable, cg.Columns())
		for c := range table.Columns {
			col := NewFrequencyTable(min, max)
			col.Variant = game.Key()
			col.Draws = history.Len()
			for _, d := range history.Draws {
				if c < len(d.Numbers) {
					col.add(d.Numbers[c])
				}
			}
			table.Columns[c] = col
		}
	}

	return table, nil
}

func (f *FrequencyTable) add(n int) {
	if n < f.Min || n > f.Max {
		return
	}
	f.Counts[n-f.Min]++
}

// Count 号码n的出现次数
func (f *FrequencyTable) Count(n int) int {
	if n < f.Min || n > f.Max {
		return 0
	}
	return f.Counts[n-f.Min]
}

// Ranked 按出现次数降序排列的号码，次数相同按号码升序
func (f *FrequencyTable) Ranked() []int {
	nums := f.numbers()
	sort.SliceStable(nums, func(i, j int) bool {
		return f.Count(nums[i]) > f.Count(nums[j])
	})
	return nums
}

// Top 出现最多的k个号码
func (f *FrequencyTable) Top(k int) []int {
	return head(f.Ranked(), k)
}

// Bottom 出现最少的k个号码，次数相同按号码升序
func (f *FrequencyTable) Bottom(k int) []int {
	nums := f.numbers()
	sort.SliceStable(nums, func(i, j int) bool {
		return f.Count(nums[i]) < f.Count(nums[j])
	})
	return head(nums, k)
}

func (f *FrequencyTable) numbers() []int {
	nums := make([]int, 0, len(f.Counts))
	for n := f.Min; n <= f.Max; n++ {
		nums = append(nums, n)
	}
	return nums
}

func head(nums []int, k int) []int {
	if k < 0 {
		k = 0
	}
	if k > len(nums) {
		k = len(nums)
	}
	return nums[:k]
}

// SumMoments 计算历史和值的均值和样本标准差
func SumMoments(history *database.History) (Moments, error) {
	if history.Len() == 0 {
		return Moments{}, apperrors.NewInsufficientData("sum-moments", 1, 0)
	}

	sums := make([]float64, 0, history.Len())
	for _, d := range history.Draws {
		sums = append(sums, float64(database.CalculateSum(d.Numbers)))
	}

	mean, err := stats.Mean(sums)
	if err != nil {
		return Moments{}, err
	}
	if len(sums) < 2 {
		return Moments{Mean: mean}, nil
	}
	std, err := stats.StandardDeviationSample(sums)
	if err != nil {
		return Moments{}, err
	}
	return Moments{Mean: mean, Std: std}, nil
}
