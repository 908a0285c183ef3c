package mathutil

import "math"

// LogZero represents log(0), used as negative infinity in log-domain arithmetic.
const LogZero = -1e30

// LogAdd returns log(exp(a) + exp(b)) in a numerically stable way.
// Uses threshold-based early exit to skip expensive exp/log1p when the
// smaller value contributes less than float64 precision (exp(-36) ≈ 2.3e-16).
func LogAdd(a, b float64) float64 {
	if a > b {
		if b == LogZero {
			return a
		}
		d := b - a
		if d < -36.0 {
			return a
		}
		return a + math.Log1p(math.Exp(d))
	}
	if a == LogZero {
		return b
	}
	d := a - b
	if d < -36.0 {
		return b
	}
	return b + math.Log1p(math.Exp(d))
}

// LogSumExp returns log(sum(exp(xs))) over a slice in a numerically stable way.
func LogSumExp(xs []float64) float64 {
	maxVal := math.Inf(-1)
	for _, x := range xs {
		if x > maxVal {
			maxVal = x
		}
	}
	if math.IsInf(maxVal, -1) {
		return LogZero
	}
	sum := 0.0
	for _, x := range xs {
		sum += math.Exp(x - maxVal)
	}
	return maxVal + math.Log(sum)
}

// LogSoftmaxRow converts one row of raw scores to log-probabilities in place:
// row[v] = row[v] - max - log(sum(exp(row - max))).
// Applying it to a row that is already a log-softmax output is a no-op up to
// floating point noise.
func LogSoftmaxRow(row []float64) {
	if len(row) == 0 {
		return
	}
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	for _, v := range row {
		sum += math.Exp(v - maxVal)
	}
	logSum := maxVal + math.Log(sum)
	for i := range row {
		row[i] -= logSum
	}
}
