package analytics

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// ErrTooFewSamples is returned when there are fewer points than requested clusters.
var ErrTooFewSamples = errors.New("fewer samples than clusters")

// kmeans partitions points into k groups with k-means++ seeding from a fixed seed followed by
// Lloyd iterations. The same input always yields the same labels.
func kmeans(points [][]float64, k int, seed uint64, maxIter int) ([]int, error) {
	if k <= 0 {
		return nil, errors.New("cluster count must be positive")
	}
	if len(points) < k {
		return nil, ErrTooFewSamples
	}
	if maxIter <= 0 {
		maxIter = 300
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	centroids := seedCentroids(points, k, rng)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := nearest(p, centroids)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		recompute(points, labels, centroids)
	}
	return labels, nil
}

func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := sqDistance(p, centroids[nearest(p, centroids)])
			dist[i] = d
			total += d
		}

		next := 0
		if total == 0 {
			// all remaining points coincide with a centroid
			next = rng.IntN(len(points))
		} else {
			target := rng.Float64() * total
			for i, d := range dist {
				if d == 0 {
					continue
				}
				target -= d
				if target <= 0 {
					next = i
					break
				}
				next = i
			}
		}
		centroids = append(centroids, clone(points[next]))
	}
	return centroids
}

func recompute(points [][]float64, labels []int, centroids [][]float64) {
	dims := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, p := range points {
		c := labels[i]
		counts[c]++
		floats.Add(sums[c], p)
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		floats.ScaleTo(centroids[c], 1/float64(counts[c]), sums[c])
	}
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDistance(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
