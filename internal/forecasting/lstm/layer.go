package lstm

import (
	"math"
	"math/rand/v2"
)

// lstmLayer holds the weights of one LSTM layer. Gate blocks are ordered
// input, forget, cell candidate, output, each `units` rows tall.
type lstmLayer struct {
	in, units int
	w         *param // 4*units x in
	u         *param // 4*units x units
	b         *param // 4*units
}

func newLSTMLayer(in, units int, r *rand.Rand) *lstmLayer {
	rows := 4 * units
	l := &lstmLayer{
		in:    in,
		units: units,
		w:     newParam(rows * in),
		u:     newParam(rows * units),
		b:     newParam(rows),
	}
	glorotUniform(l.w.w, in, rows, r)
	orthogonal(l.u.w, rows, units, r)
	for j := units; j < 2*units; j++ {
		l.b.w[j] = 1 // forget-gate bias
	}
	return l
}

func (l *lstmLayer) params() []*param {
	return []*param{l.w, l.u, l.b}
}

// preactivate computes z = W x + U h + b.
func (l *lstmLayer) preactivate(z, x, h []float64) {
	in, units := l.in, l.units
	W, U, b := l.w.w, l.u.w, l.b.w
	for k := 0; k < 4*units; k++ {
		s := b[k]
		row := W[k*in : (k+1)*in]
		for j, xv := range x {
			s += row[j] * xv
		}
		urow := U[k*units : (k+1)*units]
		for j, hv := range h {
			s += urow[j] * hv
		}
		z[k] = s
	}
}

// activate applies the gate nonlinearities to z in place.
func activate(z []float64, units int) {
	for k := 0; k < 2*units; k++ {
		z[k] = sigmoid(z[k])
	}
	for k := 2 * units; k < 3*units; k++ {
		z[k] = math.Tanh(z[k])
	}
	for k := 3 * units; k < 4*units; k++ {
		z[k] = sigmoid(z[k])
	}
}

// step advances the state (h, c) by one input x, in place. z is scratch of length 4*units.
func (l *lstmLayer) step(z, x, h, c []float64) {
	units := l.units
	l.preactivate(z, x, h)
	activate(z, units)
	for j := 0; j < units; j++ {
		i, f, g, o := z[j], z[units+j], z[2*units+j], z[3*units+j]
		c[j] = f*c[j] + i*g
		h[j] = o * math.Tanh(c[j])
	}
}

// layerTape records one layer's forward pass for backpropagation.
// h and c have T+1 entries; index 0 is the zero initial state.
type layerTape struct {
	h, c   [][]float64
	gates  [][]float64 // activated i, f, g, o per step
	tc     [][]float64 // tanh(c) per step
	dz     []float64
	dhNext []float64
	dcNext []float64
}

func newLayerTape(steps, units int) *layerTape {
	return &layerTape{
		h:      matrix(steps+1, units),
		c:      matrix(steps+1, units),
		gates:  matrix(steps, 4*units),
		tc:     matrix(steps, units),
		dz:     make([]float64, 4*units),
		dhNext: make([]float64, units),
		dcNext: make([]float64, units),
	}
}

func matrix(rows, cols int) [][]float64 {
	backing := make([]float64, rows*cols)
	m := make([][]float64, rows)
	for i := range m {
		m[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

// forward runs the layer over xs, recording every step in tp.
func (l *lstmLayer) forward(tp *layerTape, xs [][]float64) {
	units := l.units
	for t, x := range xs {
		z := tp.gates[t]
		cPrev, c := tp.c[t], tp.c[t+1]
		h, tc := tp.h[t+1], tp.tc[t]
		l.preactivate(z, x, tp.h[t])
		activate(z, units)
		for j := 0; j < units; j++ {
			i, f, g, o := z[j], z[units+j], z[2*units+j], z[3*units+j]
			c[j] = f*cPrev[j] + i*g
			tc[j] = math.Tanh(c[j])
			h[j] = o * tc[j]
		}
	}
}

// backward propagates dhExt (gradient w.r.t. each step's output; nil rows are
// zero) through time, accumulating weight gradients. If dxs is non-nil it
// receives the gradient w.r.t. each step's input.
func (l *lstmLayer) backward(tp *layerTape, xs, dhExt, dxs [][]float64) {
	in, units := l.in, l.units
	W, U := l.w.w, l.u.w
	gW, gU, gb := l.w.g, l.u.g, l.b.g
	dz, dhNext, dcNext := tp.dz, tp.dhNext, tp.dcNext
	for j := range dhNext {
		dhNext[j] = 0
		dcNext[j] = 0
	}

	for t := len(xs) - 1; t >= 0; t-- {
		gates, tc, cPrev, hPrev := tp.gates[t], tp.tc[t], tp.c[t], tp.h[t]
		ext := dhExt[t]
		for j := 0; j < units; j++ {
			dh := dhNext[j]
			if ext != nil {
				dh += ext[j]
			}
			i, f, g, o := gates[j], gates[units+j], gates[2*units+j], gates[3*units+j]
			dc := dcNext[j] + dh*o*(1-tc[j]*tc[j])
			dcNext[j] = dc * f
			dz[j] = dc * g * i * (1 - i)
			dz[units+j] = dc * cPrev[j] * f * (1 - f)
			dz[2*units+j] = dc * i * (1 - g*g)
			dz[3*units+j] = dh * tc[j] * o * (1 - o)
		}

		for j := range dhNext {
			dhNext[j] = 0
		}
		var dx []float64
		if dxs != nil {
			dx = dxs[t]
			for j := range dx {
				dx[j] = 0
			}
		}
		x := xs[t]
		for k := 0; k < 4*units; k++ {
			d := dz[k]
			if d == 0 {
				continue
			}
			gb[k] += d
			wrow, gwrow := W[k*in:(k+1)*in], gW[k*in:(k+1)*in]
			for j, xv := range x {
				gwrow[j] += d * xv
				if dx != nil {
					dx[j] += d * wrow[j]
				}
			}
			urow, gurow := U[k*units:(k+1)*units], gU[k*units:(k+1)*units]
			for j, hv := range hPrev {
				gurow[j] += d * hv
				dhNext[j] += d * urow[j]
			}
		}
	}
}
