package feature

import "math"

func distance(a, b Landmark) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// polygonArea computes the absolute shoelace area of a polygon in the x/y
// plane. Returns 0 for degenerate input.
func polygonArea(pts []Landmark) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += pts[i].X * pts[j].Y
		area -= pts[j].X * pts[i].Y
	}
	return math.Abs(area) * 0.5
}

// meanContourCurvature averages, over all polygon vertices, the interior
// angle subtended at the vertex by its two neighbours (x/y plane only).
// Degenerate vertices (a zero-length edge) contribute nothing; an empty
// angle set yields 0.
func meanContourCurvature(pts []Landmark) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	sum := 0.0
	count := 0
	for i := 0; i < n; i++ {
		prev := pts[(i-1+n)%n]
		curr := pts[i]
		next := pts[(i+1)%n]

		v1x := prev.X - curr.X
		v1y := prev.Y - curr.Y
		v2x := next.X - curr.X
		v2y := next.Y - curr.Y

		n1 := math.Sqrt(v1x*v1x + v1y*v1y)
		n2 := math.Sqrt(v2x*v2x + v2y*v2y)
		if n1 < 1e-6 || n2 < 1e-6 {
			continue
		}

		cos := (v1x*v2x + v1y*v2y) / (n1 * n2)
		if cos > 1 {
			cos = 1
		} else if cos < -1 {
			cos = -1
		}
		sum += math.Acos(cos)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
