package stats

import "math"

// Welford tracks running mean and population variance without storing the
// individual values. Numerically stable where the naive sum-of-squares
// formulation cancels catastrophically.
type Welford struct {
	Count int
	Mean  float64
	m2    float64
}

// Add folds one value into the running statistics.
func (w *Welford) Add(value float64) {
	w.Count++
	delta := value - w.Mean
	w.Mean += delta / float64(w.Count)
	delta2 := value - w.Mean
	w.m2 += delta * delta2
}

// Variance is the population variance, 0 until two values have been seen.
func (w *Welford) Variance() float64 {
	if w.Count <= 1 {
		return 0
	}
	return w.m2 / float64(w.Count)
}

// Std is the population standard deviation.
func (w *Welford) Std() float64 {
	return math.Sqrt(w.Variance())
}
