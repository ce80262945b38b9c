package lstm

import "fmt"

// Snapshot is the serialisable form of a Network's architecture and weights.
type Snapshot struct {
	Config Config         `json:"config"`
	Layers []LayerWeights `json:"layers"`
	Dense  DenseWeights   `json:"dense"`
}

// LayerWeights holds one LSTM layer, row-major with gate blocks i, f, c, o.
type LayerWeights struct {
	Kernel    []float64 `json:"kernel"`    // 4*units x in
	Recurrent []float64 `json:"recurrent"` // 4*units x units
	Bias      []float64 `json:"bias"`      // 4*units
}

// DenseWeights holds the output layer.
type DenseWeights struct {
	Kernel []float64 `json:"kernel"`
	Bias   float64   `json:"bias"`
}

// Snapshot copies the network's weights.
func (n *Network) Snapshot() Snapshot {
	s := Snapshot{Config: n.Config()}
	for _, l := range n.layers {
		s.Layers = append(s.Layers, LayerWeights{
			Kernel:    append([]float64(nil), l.w.w...),
			Recurrent: append([]float64(nil), l.u.w...),
			Bias:      append([]float64(nil), l.b.w...),
		})
	}
	s.Dense = DenseWeights{
		Kernel: append([]float64(nil), n.denseW.w...),
		Bias:   n.denseB.w[0],
	}
	return s
}

// FromSnapshot rebuilds a network, checking every tensor against the architecture.
func FromSnapshot(s Snapshot) (*Network, error) {
	n, err := New(s.Config, 0)
	if err != nil {
		return nil, err
	}
	if len(s.Layers) != len(n.layers) {
		return nil, fmt.Errorf("snapshot has %d layers, config declares %d", len(s.Layers), len(n.layers))
	}
	for i, l := range n.layers {
		lw := s.Layers[i]
		if err := load(l.w, lw.Kernel, "kernel", i); err != nil {
			return nil, err
		}
		if err := load(l.u, lw.Recurrent, "recurrent", i); err != nil {
			return nil, err
		}
		if err := load(l.b, lw.Bias, "bias", i); err != nil {
			return nil, err
		}
	}
	if err := load(n.denseW, s.Dense.Kernel, "dense kernel", len(n.layers)); err != nil {
		return nil, err
	}
	n.denseB.w[0] = s.Dense.Bias
	return n, nil
}

func load(p *param, values []float64, name string, layer int) error {
	if len(values) != len(p.w) {
		return fmt.Errorf("layer %d %s has %d values, want %d", layer, name, len(values), len(p.w))
	}
	copy(p.w, values)
	return nil
}
