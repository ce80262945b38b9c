package lstm

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Network is a stacked LSTM regressor over a fixed-length univariate window.
// Predict does not mutate the network, so a trained Network may be shared by
// concurrent forecasts. Fit must not run concurrently with anything else.
type Network struct {
	cfg    Config
	layers []*lstmLayer
	denseW *param // units of the last layer
	denseB *param // 1
	rng    *rand.Rand
}

// New builds an untrained network. A zero seed draws one from the clock.
func New(cfg Config, seed uint64) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid network config: %w", err)
	}
	n := &Network{cfg: cfg, rng: newRand(seed)}
	in := 1
	for _, units := range cfg.Units {
		n.layers = append(n.layers, newLSTMLayer(in, units, n.rng))
		in = units
	}
	n.denseW = newParam(in)
	n.denseB = newParam(1)
	glorotUniform(n.denseW.w, in, 1, n.rng)
	return n, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Config returns the architecture the network was built with.
func (n *Network) Config() Config {
	cfg := n.cfg
	cfg.Units = append([]int(nil), n.cfg.Units...)
	return cfg
}

// WindowSize returns the number of input steps.
func (n *Network) WindowSize() int {
	return n.cfg.Window
}

func (n *Network) params() []*param {
	ps := make([]*param, 0, 3*len(n.layers)+2)
	for _, l := range n.layers {
		ps = append(ps, l.params()...)
	}
	return append(ps, n.denseW, n.denseB)
}

func (n *Network) zeroGrad() {
	for _, p := range n.params() {
		p.zeroGrad()
	}
}

// Predict runs inference (dropout disabled) over one window. It allocates its
// state per call, so it is safe for concurrent use.
func (n *Network) Predict(window []float64) (float64, error) {
	return n.Predictor()(window)
}

// Predictor returns a predict function that reuses its state buffers between
// calls. The function must not be shared between goroutines.
func (n *Network) Predictor() func(window []float64) (float64, error) {
	maxUnits := 0
	for _, u := range n.cfg.Units {
		if u > maxUnits {
			maxUnits = u
		}
	}
	z := make([]float64, 4*maxUnits)
	hs := make([][]float64, len(n.layers))
	cs := make([][]float64, len(n.layers))
	for i, l := range n.layers {
		hs[i] = make([]float64, l.units)
		cs[i] = make([]float64, l.units)
	}

	return func(window []float64) (float64, error) {
		if len(window) != n.cfg.Window {
			return 0, fmt.Errorf("window has %d steps, network expects %d", len(window), n.cfg.Window)
		}
		for i := range hs {
			clear(hs[i])
			clear(cs[i])
		}
		var x [1]float64
		for _, v := range window {
			x[0] = v
			input := x[:]
			for i, l := range n.layers {
				l.step(z[:4*l.units], input, hs[i], cs[i])
				input = hs[i]
			}
		}
		return n.dense(hs[len(hs)-1]), nil
	}
}

func (n *Network) dense(x []float64) float64 {
	s := n.denseB.w[0]
	for j, v := range x {
		s += n.denseW.w[j] * v
	}
	return s
}

// tape holds every buffer one training sample needs, reused across samples.
type tape struct {
	input [][]float64   // steps x 1
	lt    []*layerTape  // per layer
	masks [][][]float64 // per layer, steps x units
	outs  [][][]float64 // per layer dropped outputs, steps x units
	dh    [][][]float64 // per layer gradient w.r.t. outputs; last layer only at the final step
	dxs   [][][]float64 // per layer gradient w.r.t. inputs (nil for the first layer)
}

func (n *Network) newTape() *tape {
	steps := n.cfg.Window
	last := len(n.layers) - 1
	tp := &tape{input: matrix(steps, 1)}
	for i, l := range n.layers {
		tp.lt = append(tp.lt, newLayerTape(steps, l.units))
		tp.masks = append(tp.masks, matrix(steps, l.units))
		tp.outs = append(tp.outs, matrix(steps, l.units))
		if i == last {
			dh := make([][]float64, steps)
			dh[steps-1] = make([]float64, l.units)
			tp.dh = append(tp.dh, dh)
		} else {
			tp.dh = append(tp.dh, matrix(steps, l.units))
		}
		if i == 0 {
			tp.dxs = append(tp.dxs, nil)
		} else {
			tp.dxs = append(tp.dxs, matrix(steps, l.in))
		}
	}
	return tp
}

// forwardTrain runs one sample through the network recording the tape.
// With train set, inverted dropout masks are drawn from the network's rng.
func (n *Network) forwardTrain(tp *tape, window []float64, train bool) float64 {
	steps := n.cfg.Window
	last := len(n.layers) - 1
	p := n.cfg.Dropout
	keep := 1 / (1 - p)

	for t, v := range window {
		tp.input[t][0] = v
	}
	xs := tp.input
	for i, l := range n.layers {
		l.forward(tp.lt[i], xs)
		from := 0
		if i == last {
			from = steps - 1 // only the final output reaches the dense layer
		}
		for t := from; t < steps; t++ {
			h, mask, out := tp.lt[i].h[t+1], tp.masks[i][t], tp.outs[i][t]
			for j := range h {
				m := 1.0
				if train && p > 0 {
					if n.rng.Float64() < p {
						m = 0
					} else {
						m = keep
					}
				}
				mask[j] = m
				out[j] = h[j] * m
			}
		}
		xs = tp.outs[i]
	}
	return n.dense(tp.outs[last][steps-1])
}

// backwardTrain accumulates gradients for the sample recorded in tp given
// dy, the loss gradient w.r.t. the network output.
func (n *Network) backwardTrain(tp *tape, dy float64) {
	steps := n.cfg.Window
	last := len(n.layers) - 1

	final := tp.outs[last][steps-1]
	for j, v := range final {
		n.denseW.g[j] += dy * v
	}
	n.denseB.g[0] += dy

	dh, mask := tp.dh[last][steps-1], tp.masks[last][steps-1]
	for j := range dh {
		dh[j] = dy * n.denseW.w[j] * mask[j]
	}

	for i := last; i >= 0; i-- {
		xs := tp.input
		if i > 0 {
			xs = tp.outs[i-1]
		}
		n.layers[i].backward(tp.lt[i], xs, tp.dh[i], tp.dxs[i])
		if i == 0 {
			break
		}
		prevMask, prevDh := tp.masks[i-1], tp.dh[i-1]
		for t := 0; t < steps; t++ {
			dx := tp.dxs[i][t]
			for j := range dx {
				prevDh[t][j] = dx[j] * prevMask[t][j]
			}
		}
	}
}
