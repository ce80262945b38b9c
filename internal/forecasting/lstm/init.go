package lstm

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// param is one trainable tensor stored flat, row-major.
type param struct {
	w    []float64 // values
	g    []float64 // accumulated gradient
	m, v []float64 // Adam moments, allocated on first step
}

func newParam(n int) *param {
	return &param{w: make([]float64, n), g: make([]float64, n)}
}

func (p *param) zeroGrad() {
	for i := range p.g {
		p.g[i] = 0
	}
}

// glorotUniform fills dst with U(-limit, limit), limit = sqrt(6 / (fanIn + fanOut)).
func glorotUniform(dst []float64, fanIn, fanOut int, r *rand.Rand) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range dst {
		dst[i] = (2*r.Float64() - 1) * limit
	}
}

// orthogonal fills dst (rows x cols, rows >= cols) with the first cols columns
// of the Q factor of a Gaussian matrix, sign-corrected by diag(R).
func orthogonal(dst []float64, rows, cols int, r *rand.Rand) {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	var qr mat.QR
	qr.Factorize(mat.NewDense(rows, cols, data))

	var q, rr mat.Dense
	qr.QTo(&q)
	qr.RTo(&rr)

	for j := 0; j < cols; j++ {
		sign := 1.0
		if rr.At(j, j) < 0 {
			sign = -1
		}
		for i := 0; i < rows; i++ {
			dst[i*cols+j] = sign * q.At(i, j)
		}
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
