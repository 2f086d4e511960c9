package sample

// Downsample reduces a series to at most maxPoints points for display.
// Uses simple decimation and always keeps the newest point.
// Destination-based: reuses dst slices if they have sufficient capacity,
// otherwise allocates new ones.
func Downsample(dst Series, src Series, maxPoints int) Series {
	n := src.Len()
	if maxPoints <= 0 || n <= maxPoints {
		dst.Time = copyInto(dst.Time, src.Time)
		dst.Weight = copyInto(dst.Weight, src.Weight)
		dst.Speed = copyInto(dst.Speed, src.Speed)
		return dst
	}

	dst.Time = reset(dst.Time, maxPoints)
	dst.Weight = reset(dst.Weight, maxPoints)
	dst.Speed = reset(dst.Speed, maxPoints)

	// Calculate step size for decimation
	step := float64(n-1) / float64(maxPoints-1)
	for i := range maxPoints {
		idx := n - 1
		if i < maxPoints-1 {
			idx = int(float64(i) * step)
		}
		dst.Time = append(dst.Time, src.Time[idx])
		dst.Weight = append(dst.Weight, src.Weight[idx])
		dst.Speed = append(dst.Speed, src.Speed[idx])
	}

	return dst
}

func copyInto(dst, src []float64) []float64 {
	if cap(dst) >= len(src) {
		dst = dst[:len(src)]
	} else {
		dst = make([]float64, len(src))
	}
	copy(dst, src)
	return dst
}

func reset(dst []float64, capacity int) []float64 {
	if cap(dst) >= capacity {
		return dst[:0]
	}
	return make([]float64, 0, capacity)
}
