// README: Small seeded k-means used by the cluster reposition strategy.
package reposition

import (
	"math/rand"

	"taxisim/internal/types"
)

// kMeans runs Lloyd's algorithm over the points and returns a cluster label
// per point. Centroids are seeded from the rng so runs with the same seed
// label identically. k must be >= 1 and <= len(points).
func kMeans(points []types.Point, k int, rng *rand.Rand, maxIterations int) []int {
	labels := make([]int, len(points))
	if k <= 1 || len(points) == 0 {
		return labels
	}

	// Initial centroids: k distinct points chosen by a seeded permutation.
	perm := rng.Perm(len(points))
	centroids := make([]types.Point, k)
	for i := 0; i < k; i++ {
		centroids[i] = points[perm[i]]
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := 0
			bestDist := p.DistanceTo(centroids[0])
			for c := 1; c < k; c++ {
				if d := p.DistanceTo(centroids[c]); d < bestDist {
					bestDist = d
					best = c
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([]types.Point, k)
		counts := make([]int, k)
		for i, p := range points {
			c := labels[i]
			sums[c].X += p.X
			sums[c].Y += p.Y
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// empty cluster keeps its old centroid
				continue
			}
			centroids[c] = types.Point{X: sums[c].X / float64(counts[c]), Y: sums[c].Y / float64(counts[c])}
		}
	}
	return labels
}
