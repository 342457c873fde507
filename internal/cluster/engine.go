// Package cluster groups spatially co-located field candidates.
package cluster

import (
	"log/slog"
	"math"

	"github.com/formpipe/formpipe/internal/entity"
)

// Defaults for the density parameters. Both formulas are heuristics and
// can be overridden per Engine instance.
const (
	DefaultMinEpsilon     = 50.0
	DefaultEpsilonDivisor = 10.0
	DefaultMinPointsRatio = 5
	DefaultMinClusterSize = 2
)

// Engine runs a density-based clustering pass over field positions and
// enriches cluster members with references to their neighbors.
type Engine struct {
	// MinEpsilon floors the derived neighborhood radius, in position units.
	MinEpsilon float64
	// EpsilonDivisor scales the mean pairwise distance down to a radius.
	EpsilonDivisor float64
	// MinPointsRatio derives the minimum cluster density from field count.
	MinPointsRatio int

	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		MinEpsilon:     DefaultMinEpsilon,
		EpsilonDivisor: DefaultEpsilonDivisor,
		MinPointsRatio: DefaultMinPointsRatio,
		logger:         logger,
	}
}

// Cluster labels every field with a cluster id (or the unclustered label)
// and fills RelatedFields for cluster members. It never fails the caller:
// with fewer than two positioned fields, or on degenerate geometry, all
// fields simply stay unclustered.
func (e *Engine) Cluster(fields []entity.FieldCandidate) []entity.FieldCandidate {
	for i := range fields {
		fields[i].Cluster = entity.UnclusteredLabel
		fields[i].RelatedFields = nil
	}

	// Only positioned fields participate in geometry.
	idx := make([]int, 0, len(fields))
	for i := range fields {
		if fields[i].Position != nil {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		e.logger.Info("cluster.skipped", "positioned_fields", len(idx))
		return fields
	}

	points := make([]entity.Position, len(idx))
	for k, i := range idx {
		points[k] = *fields[i].Position
	}

	eps := e.deriveEpsilon(points)
	// Density scales with the document's full field count, not just the
	// positioned subset.
	minPts := len(fields) / e.MinPointsRatio
	if minPts < DefaultMinClusterSize {
		minPts = DefaultMinClusterSize
	}

	labels := dbscan(points, eps, minPts)

	// Demote any label that ended up owned by a single field; a cluster of
	// one is just noise.
	counts := make(map[int]int)
	for _, l := range labels {
		if l != entity.UnclusteredLabel {
			counts[l]++
		}
	}
	members := make(map[int][]int)
	for k, l := range labels {
		if l == entity.UnclusteredLabel || counts[l] < DefaultMinClusterSize {
			continue
		}
		fields[idx[k]].Cluster = l
		members[l] = append(members[l], idx[k])
	}

	for _, ms := range members {
		for _, i := range ms {
			related := make([]string, 0, len(ms)-1)
			for _, j := range ms {
				if j != i {
					related = append(related, fields[j].FieldName)
				}
			}
			fields[i].RelatedFields = related
		}
	}

	e.logger.Info("cluster.done",
		"fields", len(fields),
		"positioned", len(idx),
		"clusters", len(members),
		"epsilon", eps,
		"min_points", minPts,
	)
	return fields
}

// deriveEpsilon scales the mean pairwise Euclidean distance down and
// floors it so sparse pages still form neighborhoods.
func (e *Engine) deriveEpsilon(points []entity.Position) float64 {
	var sum float64
	var pairs int
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			sum += euclidean(points[i], points[j])
			pairs++
		}
	}
	if pairs == 0 {
		return e.MinEpsilon
	}
	eps := math.Round(sum / float64(pairs) / e.EpsilonDivisor)
	if eps < e.MinEpsilon {
		eps = e.MinEpsilon
	}
	return eps
}

func euclidean(a, b entity.Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// dbscan labels each point with a non-negative cluster id or the noise
// label. Neighborhoods count the point itself, so minPts is also the
// smallest possible cluster size.
func dbscan(points []entity.Position, eps float64, minPts int) []int {
	const (
		unvisited = -2
		noise     = entity.UnclusteredLabel
	)

	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	neighborsOf := func(p int) []int {
		var ns []int
		for q := range points {
			if euclidean(points[p], points[q]) <= eps {
				ns = append(ns, q)
			}
		}
		return ns
	}

	cluster := 0
	for p := range points {
		if labels[p] != unvisited {
			continue
		}
		neighbors := neighborsOf(p)
		if len(neighbors) < minPts {
			labels[p] = noise
			continue
		}

		labels[p] = cluster
		queue := append([]int(nil), neighbors...)
		for len(queue) > 0 {
			q := queue[0]
			queue = queue[1:]
			if labels[q] == noise {
				labels[q] = cluster // border point reclaimed from noise
			}
			if labels[q] != unvisited {
				continue
			}
			labels[q] = cluster
			qn := neighborsOf(q)
			if len(qn) >= minPts {
				queue = append(queue, qn...)
			}
		}
		cluster++
	}

	for i := range labels {
		if labels[i] == unvisited {
			labels[i] = noise
		}
	}
	return labels
}
