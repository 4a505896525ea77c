package classify

import (
	"fmt"
	"math"
	"math/rand"
)

// clusterSeed fixes the k-means initialization so repeated runs over the same
// batch produce the same clusters.
const clusterSeed = 42

const maxIterations = 100

// kmeans partitions points into k clusters and returns the cluster index for
// each point. Identical points collapsing onto the same centroid is fine:
// clusters may end up empty and callers skip them.
func kmeans(points [][]float64, k int) ([]int, error) {
	if k <= 0 {
		return nil, fmt.Errorf("classify: cluster count must be positive, got %d", k)
	}
	if len(points) < k {
		return nil, fmt.Errorf("classify: %d points cannot form %d clusters", len(points), k)
	}
	dims := len(points[0])
	for _, p := range points {
		if len(p) != dims {
			return nil, fmt.Errorf("classify: inconsistent vector dimensions")
		}
	}

	rng := rand.New(rand.NewSource(clusterSeed))

	// Initialize centroids from k distinct point indices.
	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(len(points))[:k] {
		centroids[i] = append([]float64(nil), points[idx]...)
	}

	assignments := make([]int, len(points))
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearest(p, centroids)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids; empty clusters keep their previous position.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, dims)
		}
		for i, p := range points {
			c := assignments[i]
			counts[c]++
			for j, v := range p {
				sums[c][j] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}
	return assignments, nil
}

func nearest(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for c, centroid := range centroids {
		var dist float64
		for j, v := range p {
			d := v - centroid[j]
			dist += d * d
		}
		if dist < bestDist {
			bestDist = dist
			best = c
		}
	}
	return best
}
