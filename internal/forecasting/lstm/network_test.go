package lstm

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "zero window", cfg: Config{Window: 0, Units: []int{4}}, wantErr: true},
		{name: "no layers", cfg: Config{Window: 3}, wantErr: true},
		{name: "negative units", cfg: Config{Window: 3, Units: []int{4, -1}}, wantErr: true},
		{name: "dropout one", cfg: Config{Window: 3, Units: []int{4}, Dropout: 1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew_ForgetBiasAndShapes(t *testing.T) {
	n, err := New(Config{Window: 4, Units: []int{3, 2}}, 1)
	require.NoError(t, err)

	require.Len(t, n.layers, 2)
	assert.Len(t, n.layers[0].w.w, 4*3*1)
	assert.Len(t, n.layers[1].w.w, 4*2*3)
	assert.Len(t, n.layers[1].u.w, 4*2*2)
	assert.Len(t, n.denseW.w, 2)
	assert.Equal(t, []float64{0, 0, 0, 1, 1, 1, 0, 0, 0, 0, 0, 0}, n.layers[0].b.w)
}

func TestOrthogonalInit(t *testing.T) {
	n, err := New(Config{Window: 2, Units: []int{5}}, 3)
	require.NoError(t, err)

	// Columns of the recurrent kernel are orthonormal.
	u := n.layers[0].u.w
	rows, cols := 20, 5
	for a := 0; a < cols; a++ {
		for b := 0; b < cols; b++ {
			var dot float64
			for i := 0; i < rows; i++ {
				dot += u[i*cols+a] * u[i*cols+b]
			}
			want := 0.0
			if a == b {
				want = 1
			}
			assert.InDelta(t, want, dot, 1e-9)
		}
	}
}

func TestPredict_WindowMismatch(t *testing.T) {
	n, err := New(Config{Window: 4, Units: []int{3}}, 1)
	require.NoError(t, err)

	_, err = n.Predict([]float64{0.1, 0.2})
	assert.Error(t, err)
}

func TestPredictor_MatchesPredictWithoutAllocating(t *testing.T) {
	n, err := New(Config{Window: 5, Units: []int{4, 3}, Dropout: 0.2}, 13)
	require.NoError(t, err)
	windows := [][]float64{
		{0.2, 0.4, 0.1, 0.9, 0.6},
		{0.9, 0.8, 0.7, 0.6, 0.5},
		{0.2, 0.4, 0.1, 0.9, 0.6},
	}

	predict := n.Predictor()
	for _, w := range windows {
		want, err := n.Predict(w)
		require.NoError(t, err)
		got, err := predict(w)
		require.NoError(t, err)
		assert.Equal(t, want, got, "state must not carry over between calls")
	}

	_, err = predict([]float64{0.1})
	assert.Error(t, err)

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = predict(windows[0])
	})
	assert.Zero(t, allocs)
}

func TestForwardTrainMatchesPredictWithoutDropout(t *testing.T) {
	n, err := New(Config{Window: 5, Units: []int{4, 3}, Dropout: 0.2}, 11)
	require.NoError(t, err)
	window := []float64{0.2, 0.4, 0.1, 0.9, 0.6}

	want, err := n.Predict(window)
	require.NoError(t, err)
	got := n.forwardTrain(n.newTape(), window, false)
	assert.InDelta(t, want, got, 1e-12)
}

func TestBackward_GradientCheck(t *testing.T) {
	n, err := New(Config{Window: 4, Units: []int{3, 2}, Dropout: 0}, 7)
	require.NoError(t, err)
	window := []float64{0.1, 0.5, 0.3, 0.8}
	target := 0.4

	tp := n.newTape()
	n.zeroGrad()
	pred := n.forwardTrain(tp, window, false)
	n.backwardTrain(tp, 2*(pred-target))

	loss := func() float64 {
		out, err := n.Predict(window)
		require.NoError(t, err)
		return (out - target) * (out - target)
	}

	const eps = 1e-6
	for pi, p := range n.params() {
		analytic := append([]float64(nil), p.g...)
		for i := range p.w {
			orig := p.w[i]
			p.w[i] = orig + eps
			plus := loss()
			p.w[i] = orig - eps
			minus := loss()
			p.w[i] = orig

			numeric := (plus - minus) / (2 * eps)
			assert.InDelta(t, numeric, analytic[i], 1e-6+1e-4*math.Abs(numeric), "param %d index %d", pi, i)
		}
	}
}

func sineSamples(count, window int) ([][]float64, []float64) {
	series := make([]float64, count+window)
	for i := range series {
		series[i] = 0.5 + 0.4*math.Sin(float64(i)*0.3)
	}
	X := make([][]float64, count)
	y := make([]float64, count)
	for i := 0; i < count; i++ {
		X[i] = series[i : i+window]
		y[i] = series[i+window]
	}
	return X, y
}

func meanSquaredError(t *testing.T, n *Network, X [][]float64, y []float64) float64 {
	t.Helper()
	var sum float64
	for i := range X {
		p, err := n.Predict(X[i])
		require.NoError(t, err)
		sum += (p - y[i]) * (p - y[i])
	}
	return sum / float64(len(X))
}

func TestFit_ReducesLoss(t *testing.T) {
	n, err := New(Config{Window: 5, Units: []int{8}, Dropout: 0}, 42)
	require.NoError(t, err)
	X, y := sineSamples(120, 5)

	before := meanSquaredError(t, n, X, y)
	hist, err := n.Fit(context.Background(), X, y, FitConfig{Epochs: 30, BatchSize: 16, LearningRate: 0.01, Shuffle: true})
	require.NoError(t, err)
	after := meanSquaredError(t, n, X, y)

	assert.Len(t, hist.Loss, 30)
	assert.Less(t, after, before)
	assert.Less(t, hist.Final(), hist.Loss[0])
}

func TestFit_WithDropoutRuns(t *testing.T) {
	n, err := New(Config{Window: 6, Units: []int{4, 4}, Dropout: 0.2}, 5)
	require.NoError(t, err)
	X, y := sineSamples(40, 6)

	hist, err := n.Fit(context.Background(), X, y, FitConfig{Epochs: 2, BatchSize: 32, LearningRate: 0.001, Shuffle: true})
	require.NoError(t, err)
	assert.Len(t, hist.Loss, 2)
	for _, l := range hist.Loss {
		assert.False(t, math.IsNaN(l))
	}
}

func TestFit_InvalidInput(t *testing.T) {
	n, err := New(Config{Window: 3, Units: []int{2}}, 1)
	require.NoError(t, err)
	fc := DefaultFitConfig()

	_, err = n.Fit(context.Background(), nil, nil, fc)
	assert.Error(t, err)

	_, err = n.Fit(context.Background(), [][]float64{{1, 2, 3}}, []float64{1, 2}, fc)
	assert.Error(t, err)

	_, err = n.Fit(context.Background(), [][]float64{{1, 2}}, []float64{1}, fc)
	assert.Error(t, err)

	_, err = n.Fit(context.Background(), [][]float64{{1, 2, 3}}, []float64{1}, FitConfig{Epochs: 0, BatchSize: 1, LearningRate: 0.1})
	assert.Error(t, err)
}

func TestFit_CancelledContext(t *testing.T) {
	n, err := New(Config{Window: 3, Units: []int{2}}, 1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hist, err := n.Fit(ctx, [][]float64{{0.1, 0.2, 0.3}}, []float64{0.4}, DefaultFitConfig())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, hist.Loss)
}

func TestSnapshot_RestoresPredictions(t *testing.T) {
	n, err := New(Config{Window: 4, Units: []int{3, 3}, Dropout: 0.2}, 9)
	require.NoError(t, err)
	window := []float64{0.3, 0.1, 0.7, 0.5}

	want, err := n.Predict(window)
	require.NoError(t, err)

	restored, err := FromSnapshot(n.Snapshot())
	require.NoError(t, err)
	got, err := restored.Predict(window)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, n.Config(), restored.Config())
}

func TestFromSnapshot_ShapeMismatch(t *testing.T) {
	n, err := New(Config{Window: 4, Units: []int{3}}, 9)
	require.NoError(t, err)

	s := n.Snapshot()
	s.Layers[0].Recurrent = s.Layers[0].Recurrent[:5]
	_, err = FromSnapshot(s)
	assert.Error(t, err)

	s = n.Snapshot()
	s.Layers = nil
	_, err = FromSnapshot(s)
	assert.Error(t, err)
}
