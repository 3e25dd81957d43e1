package neural

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func linearData(rows int) (*mat.Dense, *mat.Dense) {
	x := mat.NewDense(rows, 2, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		a := float64(i%7) / 7
		b := float64(i%5) / 5
		x.Set(i, 0, a)
		x.Set(i, 1, b)
		y.Set(i, 0, a+b)
	}
	return x, y
}

func TestNewRejectsBadShape(t *testing.T) {
	_, err := New(RegressorConfig(), 0, 1)
	assert.Error(t, err)

	cfg := RegressorConfig()
	cfg.Hidden = []int{8, 0}
	_, err = New(cfg, 2, 1)
	assert.Error(t, err)
}

func TestRegressorLearnsLinearTarget(t *testing.T) {
	x, y := linearData(70)

	cfg := RegressorConfig()
	cfg.BatchSize = 10
	net, err := New(cfg, 2, 1)
	require.NoError(t, err)
	require.NoError(t, net.Fit(x, y))

	require.NotEmpty(t, net.LossCurve)
	assert.LessOrEqual(t, net.Epochs(), 500)
	first := net.LossCurve[0]
	last := net.LossCurve[len(net.LossCurve)-1]
	assert.Less(t, last, first)

	out, err := net.PredictRow([]float64{0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 0.25)
}

func TestSameSeedSamePredictions(t *testing.T) {
	x, y := linearData(40)

	predict := func() float64 {
		net, err := New(RegressorConfig(), 2, 1)
		require.NoError(t, err)
		require.NoError(t, net.Fit(x, y))
		out, err := net.PredictRow([]float64{0.2, 0.8})
		require.NoError(t, err)
		return out[0]
	}

	assert.Equal(t, predict(), predict())
}

func TestClassifierOutputsAreProbabilities(t *testing.T) {
	rows := 30
	x := mat.NewDense(rows, 4, nil)
	y := mat.NewDense(rows, 4, nil)
	for i := 0; i < rows; i++ {
		hot := i % 4
		x.Set(i, hot, 1)
		y.Set(i, (hot+1)%4, 1)
	}

	cfg := ClassifierConfig()
	cfg.BatchSize = 5
	net, err := New(cfg, 4, 4)
	require.NoError(t, err)
	require.NoError(t, net.Fit(x, y))

	probs, err := net.PredictRow([]float64{1, 0, 0, 0})
	require.NoError(t, err)
	require.Len(t, probs, 4)
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
	assert.Greater(t, probs[1], probs[3])
}

func TestFitValidatesDimensions(t *testing.T) {
	net, err := New(RegressorConfig(), 3, 1)
	require.NoError(t, err)

	x, y := linearData(10)
	assert.Error(t, net.Fit(x, y))

	_, err = net.Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)

	assert.Error(t, net.Fit(mat.NewDense(2, 3, nil), mat.NewDense(3, 1, nil)))
}
