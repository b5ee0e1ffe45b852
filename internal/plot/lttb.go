package plot

// lttbIndices selects `target` indices from values using Largest Triangle
// Three Buckets: the first and last points are always kept, interior points
// are split into target-2 equal-width index buckets, and each bucket keeps
// the point forming the largest triangle with the previously selected point
// and the centroid of the next bucket. First maximum encountered wins ties.
func lttbIndices(values []float64, target int) []int {
	n := len(values)
	if n <= target || target <= 2 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	selected := make([]int, 0, target)
	selected = append(selected, 0)
	bucketSize := float64(n-2) / float64(target-2)

	for b := 0; b < target-2; b++ {
		lo := int(1 + float64(b)*bucketSize)
		hi := int(1 + float64(b+1)*bucketSize)
		if hi > n-1 {
			hi = n - 1
		}
		if lo >= hi {
			selected = append(selected, hi)
			continue
		}

		nextLo := int(1 + float64(b+1)*bucketSize)
		nextHi := int(1 + float64(b+2)*bucketSize)
		if nextHi > n {
			nextHi = n
		}
		if nextLo >= nextHi {
			nextHi = n
		}
		var cx, cy float64
		for i := nextLo; i < nextHi; i++ {
			cx += float64(i)
			cy += values[i]
		}
		span := nextHi - nextLo
		if span < 1 {
			span = 1
		}
		cx /= float64(span)
		cy /= float64(span)

		prev := selected[len(selected)-1]
		px, py := float64(prev), values[prev]

		bestIdx := lo
		bestArea := -1.0
		for i := lo; i < hi; i++ {
			area := (float64(i)-px)*(cy-py) - (cx-px)*(values[i]-py)
			if area < 0 {
				area = -area
			}
			if area > bestArea {
				bestArea = area
				bestIdx = i
			}
		}
		selected = append(selected, bestIdx)
	}

	selected = append(selected, n-1)
	return selected
}
