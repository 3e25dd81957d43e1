package predictor

import (
	"fmt"
	"math"

	"loterias-bot/internal/config"
	"loterias-bot/internal/database"
	apperrors "loterias-bot/internal/errors"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

// requireSetGame 学习模型只支持不按列开奖的游戏
func requireSetGame(game config.Game, model string) error {
	if _, ok := game.(config.IsColumnar); ok {
		return apperrors.NewConfiguration(game.Key(), "kind", model+" does not support per-column games")
	}
	return nil
}

// checkTable 校验每期号码个数与游戏一致
func checkTable(table [][]int, game config.Game) error {
	k := game.NumBalls()
	for i, row := range table {
		if len(row) != k {
			return fmt.Errorf("draw %d has %d numbers, %s expects %d", i, len(row), game.Key(), k)
		}
	}
	return nil
}

// scaleRow 将号码线性缩放到[0,1]，范围退化时全为0
func scaleRow(row []int, min, max int) []float64 {
	span := float64(max - min)
	out := make([]float64, len(row))
	if span <= 0 {
		return out
	}
	for i, n := range row {
		out[i] = float64(n-min) / span
	}
	return out
}

// featureMatrix 第from到to-1期作为特征
func featureMatrix(table [][]int, from, to, min, max int) *mat.Dense {
	cols := len(table[from])
	x := mat.NewDense(to-from, cols, nil)
	for i := from; i < to; i++ {
		x.SetRow(i-from, scaleRow(table[i], min, max))
	}
	return x
}

// membershipMatrix 第from到to-1期的号码编码为多热向量
func membershipMatrix(table [][]int, from, to, min, max int) *mat.Dense {
	width := max - min + 1
	y := mat.NewDense(to-from, width, nil)
	for i := from; i < to; i++ {
		for _, n := range table[i] {
			if n >= min && n <= max {
				y.Set(i-from, n-min, 1)
			}
		}
	}
	return y
}

// standardizer 目标值标准化
type standardizer struct {
	mean, std float64
}

func fitStandardizer(values []float64) standardizer {
	mean, _ := stats.Mean(values)
	std, _ := stats.StandardDeviationPopulation(values)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	return standardizer{mean: mean, std: std}
}

func (s standardizer) forward(v float64) float64 { return (v - s.mean) / s.std }
func (s standardizer) inverse(v float64) float64 { return v*s.std + s.mean }

// spreadAround 以predicted/k为中心生成k个连续整数，裁剪到范围内并去重
func spreadAround(predicted float64, k, min, max int) []int {
	center := int(math.Round(predicted / float64(k)))
	start := center - k/2

	out := make([]int, 0, k)
	seen := make(map[int]bool, k)
	for i := 0; i < k; i++ {
		n := start + i
		if n < min {
			n = min
		}
		if n > max {
			n = max
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func nextSums(table [][]int, from, to int) []float64 {
	out := make([]float64, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, float64(database.CalculateSum(table[i+1])))
	}
	return out
}

// regressionSamples 第i期 -> 第i+1期和值，最近一对（倒数第二期 -> 最近一期）不参与训练
func regressionSamples(table [][]int, min, max int) (*mat.Dense, []float64) {
	pairs := len(table) - 2
	return featureMatrix(table, 0, pairs, min, max), nextSums(table, 0, pairs)
}

// multiLabelSamples 全部相邻两期都作为样本
func multiLabelSamples(table [][]int, min, max int) (*mat.Dense, *mat.Dense) {
	pairs := len(table) - 1
	return featureMatrix(table, 0, pairs, min, max), membershipMatrix(table, 1, pairs+1, min, max)
}
