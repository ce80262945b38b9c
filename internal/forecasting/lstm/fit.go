package lstm

import (
	"context"
	"fmt"
	"math"
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

type adam struct {
	lr float64
	t  int
}

func (a *adam) step(params []*param) {
	a.t++
	bc1 := 1 - math.Pow(adamBeta1, float64(a.t))
	bc2 := 1 - math.Pow(adamBeta2, float64(a.t))
	for _, p := range params {
		if p.m == nil {
			p.m = make([]float64, len(p.w))
			p.v = make([]float64, len(p.w))
		}
		for i, g := range p.g {
			p.m[i] = adamBeta1*p.m[i] + (1-adamBeta1)*g
			p.v[i] = adamBeta2*p.v[i] + (1-adamBeta2)*g*g
			p.w[i] -= a.lr * (p.m[i] / bc1) / (math.Sqrt(p.v[i]/bc2) + adamEpsilon)
		}
	}
}

// Fit trains the network on (X[k] -> y[k]) pairs minimising mean squared error.
// Each X[k] must hold exactly WindowSize values. The context is checked between
// epochs; a cancelled run returns the history so far with the context error.
func (n *Network) Fit(ctx context.Context, X [][]float64, y []float64, cfg FitConfig) (History, error) {
	var hist History
	if err := cfg.Validate(); err != nil {
		return hist, fmt.Errorf("invalid fit config: %w", err)
	}
	if len(X) == 0 {
		return hist, fmt.Errorf("no training samples")
	}
	if len(X) != len(y) {
		return hist, fmt.Errorf("got %d inputs but %d targets", len(X), len(y))
	}
	for k, x := range X {
		if len(x) != n.cfg.Window {
			return hist, fmt.Errorf("sample %d has %d steps, network expects %d", k, len(x), n.cfg.Window)
		}
	}

	tp := n.newTape()
	opt := &adam{lr: cfg.LearningRate}
	params := n.params()
	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return hist, err
		}
		if cfg.Shuffle {
			n.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		var sum float64
		for start := 0; start < len(order); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			n.zeroGrad()
			scale := 2 / float64(end-start)
			for _, k := range order[start:end] {
				diff := n.forwardTrain(tp, X[k], true) - y[k]
				sum += diff * diff
				n.backwardTrain(tp, scale*diff)
			}
			opt.step(params)
		}

		loss := sum / float64(len(X))
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return hist, fmt.Errorf("training diverged at epoch %d", epoch+1)
		}
		hist.Loss = append(hist.Loss, loss)
	}
	return hist, nil
}
