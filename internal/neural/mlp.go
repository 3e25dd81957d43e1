package neural

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Activation 输出层激活函数
type Activation int

const (
	Identity Activation = iota
	Logistic
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
	probClip    = 1e-10
)

// Config 网络与训练参数
type Config struct {
	Hidden        []int
	MaxIter       int
	LearningRate  float64
	Alpha         float64
	BatchSize     int
	Tol           float64
	NIterNoChange int
	Seed          int64
	Output        Activation
}

// RegressorConfig 和值回归使用的默认参数
func RegressorConfig() Config {
	return Config{
		Hidden:        []int{32, 16},
		MaxIter:       500,
		LearningRate:  1e-3,
		Alpha:         1e-4,
		Tol:           1e-4,
		NIterNoChange: 10,
		Output:        Identity,
	}
}

// ClassifierConfig 多标签分类使用的默认参数
func ClassifierConfig() Config {
	return Config{
		Hidden:        []int{64, 32},
		MaxIter:       300,
		LearningRate:  1e-3,
		Alpha:         1e-4,
		Tol:           1e-4,
		NIterNoChange: 10,
		Output:        Logistic,
	}
}

type layer struct {
	w      *mat.Dense
	b      []float64
	mw, vw []float64
	mb, vb []float64
}

// Network 前馈网络
type Network struct {
	cfg    Config
	nIn    int
	nOut   int
	layers []*layer
	rng    *rand.Rand
	step   int

	// LossCurve 每个epoch的平均损失
	LossCurve []float64
}

// New 创建网络并用Glorot均匀分布初始化权重
func New(cfg Config, nIn, nOut int) (*Network, error) {
	if nIn <= 0 || nOut <= 0 {
		return nil, fmt.Errorf("invalid network shape %d -> %d", nIn, nOut)
	}
	for _, h := range cfg.Hidden {
		if h <= 0 {
			return nil, fmt.Errorf("invalid hidden layer size %d", h)
		}
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 200
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 1e-3
	}
	if cfg.NIterNoChange <= 0 {
		cfg.NIterNoChange = 10
	}

	net := &Network{
		cfg:  cfg,
		nIn:  nIn,
		nOut: nOut,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}

	sizes := append([]int{nIn}, cfg.Hidden...)
	sizes = append(sizes, nOut)
	for i := 0; i < len(sizes)-1; i++ {
		fanIn, fanOut := sizes[i], sizes[i+1]
		factor := 6.0
		if i == len(sizes)-2 && cfg.Output == Logistic {
			factor = 2.0
		}
		bound := math.Sqrt(factor / float64(fanIn+fanOut))

		w := mat.NewDense(fanIn, fanOut, nil)
		raw := w.RawMatrix().Data
		for k := range raw {
			raw[k] = net.uniform(bound)
		}
		b := make([]float64, fanOut)
		for k := range b {
			b[k] = net.uniform(bound)
		}

		net.layers = append(net.layers, &layer{
			w:  w,
			b:  b,
			mw: make([]float64, len(raw)),
			vw: make([]float64, len(raw)),
			mb: make([]float64, fanOut),
			vb: make([]float64, fanOut),
		})
	}
	return net, nil
}

func (n *Network) uniform(bound float64) float64 {
	return (n.rng.Float64()*2 - 1) * bound
}

// Fit 小批量Adam训练，损失连续NIterNoChange个epoch未改善Tol时提前停止
func (n *Network) Fit(x, y *mat.Dense) error {
	rows, cols := x.Dims()
	yRows, yCols := y.Dims()
	if cols != n.nIn {
		return fmt.Errorf("input has %d features, network expects %d", cols, n.nIn)
	}
	if yCols != n.nOut {
		return fmt.Errorf("target has %d outputs, network expects %d", yCols, n.nOut)
	}
	if rows != yRows {
		return fmt.Errorf("input has %d rows but target has %d", rows, yRows)
	}
	if rows == 0 {
		return fmt.Errorf("empty training set")
	}

	batch := n.cfg.BatchSize
	if batch <= 0 {
		batch = 200
	}
	if batch > rows {
		batch = rows
	}

	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}

	best := math.Inf(1)
	noImprove := 0
	n.LossCurve = n.LossCurve[:0]

	for epoch := 0; epoch < n.cfg.MaxIter; epoch++ {
		n.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		total := 0.0
		for start := 0; start < rows; start += batch {
			end := start + batch
			if end > rows {
				end = rows
			}
			xb := gatherRows(x, order[start:end])
			yb := gatherRows(y, order[start:end])
			total += n.trainBatch(xb, yb) * float64(end-start)
		}
		loss := total / float64(rows)
		n.LossCurve = append(n.LossCurve, loss)

		if loss > best-n.cfg.Tol {
			noImprove++
		} else {
			noImprove = 0
		}
		if loss < best {
			best = loss
		}
		if noImprove > n.cfg.NIterNoChange {
			break
		}
	}
	return nil
}

// Predict 前向计算
func (n *Network) Predict(x *mat.Dense) (*mat.Dense, error) {
	_, cols := x.Dims()
	if cols != n.nIn {
		return nil, fmt.Errorf("input has %d features, network expects %d", cols, n.nIn)
	}
	acts := n.forward(x)
	return acts[len(acts)-1], nil
}

// PredictRow 单行输入的便捷方法
func (n *Network) PredictRow(row []float64) ([]float64, error) {
	out, err := n.Predict(mat.NewDense(1, len(row), append([]float64(nil), row...)))
	if err != nil {
		return nil, err
	}
	return mat.Row(nil, 0, out), nil
}

// Epochs 实际训练的epoch数
func (n *Network) Epochs() int {
	return len(n.LossCurve)
}

func (n *Network) forward(x *mat.Dense) []*mat.Dense {
	acts := make([]*mat.Dense, 0, len(n.layers)+1)
	acts = append(acts, x)
	last := len(n.layers) - 1

	for i, l := range n.layers {
		z := &mat.Dense{}
		z.Mul(acts[i], l.w)
		bias := l.b
		output := i == last
		act := n.cfg.Output
		z.Apply(func(_, j int, v float64) float64 {
			v += bias[j]
			if !output {
				if v < 0 {
					return 0
				}
				return v
			}
			if act == Logistic {
				return 1 / (1 + math.Exp(-v))
			}
			return v
		}, z)
		acts = append(acts, z)
	}
	return acts
}

// trainBatch 一次前向+反向传播+Adam更新，返回该批次损失
func (n *Network) trainBatch(xb, yb *mat.Dense) float64 {
	acts := n.forward(xb)
	out := acts[len(acts)-1]
	bs, outCols := out.Dims()
	size := float64(bs)

	loss := 0.0
	delta := mat.NewDense(bs, outCols, nil)
	for r := 0; r < bs; r++ {
		for c := 0; c < outCols; c++ {
			p := out.At(r, c)
			t := yb.At(r, c)
			if n.cfg.Output == Logistic {
				pc := math.Min(math.Max(p, probClip), 1-probClip)
				loss -= t*math.Log(pc) + (1-t)*math.Log(1-pc)
			} else {
				loss += (p - t) * (p - t) / 2
			}
			delta.Set(r, c, (p-t)/size)
		}
	}
	if n.cfg.Output == Logistic {
		loss /= size
	} else {
		loss /= size * float64(outCols)
	}

	l2 := 0.0
	for _, l := range n.layers {
		for _, w := range l.w.RawMatrix().Data {
			l2 += w * w
		}
	}
	loss += 0.5 * n.cfg.Alpha * l2 / size

	gradsW := make([]*mat.Dense, len(n.layers))
	gradsB := make([][]float64, len(n.layers))
	for i := len(n.layers) - 1; i >= 0; i-- {
		l := n.layers[i]

		gw := &mat.Dense{}
		gw.Mul(acts[i].T(), delta)
		wRaw := l.w.RawMatrix().Data
		gwRaw := gw.RawMatrix().Data
		for k := range gwRaw {
			gwRaw[k] += n.cfg.Alpha * wRaw[k] / size
		}
		gradsW[i] = gw

		_, dc := delta.Dims()
		gb := make([]float64, dc)
		for r := 0; r < bs; r++ {
			for c := 0; c < dc; c++ {
				gb[c] += delta.At(r, c)
			}
		}
		gradsB[i] = gb

		if i > 0 {
			prev := &mat.Dense{}
			prev.Mul(delta, l.w.T())
			hidden := acts[i]
			prev.Apply(func(r, c int, v float64) float64 {
				if hidden.At(r, c) <= 0 {
					return 0
				}
				return v
			}, prev)
			delta = prev
		}
	}

	n.step++
	lr := n.cfg.LearningRate * math.Sqrt(1-math.Pow(adamBeta2, float64(n.step))) /
		(1 - math.Pow(adamBeta1, float64(n.step)))
	for i, l := range n.layers {
		adam(l.w.RawMatrix().Data, gradsW[i].RawMatrix().Data, l.mw, l.vw, lr)
		adam(l.b, gradsB[i], l.mb, l.vb, lr)
	}

	return loss
}

func adam(params, grads, m, v []float64, lr float64) {
	for k, g := range grads {
		m[k] = adamBeta1*m[k] + (1-adamBeta1)*g
		v[k] = adamBeta2*v[k] + (1-adamBeta2)*g*g
		params[k] -= lr * m[k] / (math.Sqrt(v[k]) + adamEpsilon)
	}
}

func gatherRows(src *mat.Dense, idx []int) *mat.Dense {
	_, cols := src.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for r, i := range idx {
		out.SetRow(r, src.RawRowView(i))
	}
	return out
}
