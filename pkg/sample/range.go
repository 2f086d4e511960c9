package sample

import "gonum.org/v1/gonum/floats"

// Range is a closed interval of values on a plot axis.
type Range struct {
	Min, Max float64
}

// Span returns Max-Min.
func (r Range) Span() float64 {
	return r.Max - r.Min
}

// Extent returns the smallest range holding all values. ok is false for an
// empty slice.
func Extent(values []float64) (r Range, ok bool) {
	if len(values) == 0 {
		return Range{}, false
	}
	return Range{Min: floats.Min(values), Max: floats.Max(values)}, true
}

// Pad widens the range by frac of its span on both sides. A range of zero
// span is treated as one unit wide.
func (r Range) Pad(frac float64) Range {
	span := r.Span()
	if span == 0 {
		span = 1
	}
	m := span * frac
	return Range{Min: r.Min - m, Max: r.Max + m}
}

// AtLeast extends Max so that the range spans at least width.
func (r Range) AtLeast(width float64) Range {
	if r.Span() < width {
		r.Max = r.Min + width
	}
	return r
}
