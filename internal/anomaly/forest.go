package anomaly

import (
	"math"
	"math/rand/v2"
	"slices"
)

const eulerGamma = 0.5772156649015329

// Node is one cell of a flattened partition tree. Leaves carry Feature == -1
// and the count of training points left unseparated there.
type Node struct {
	Feature int32
	Split   float64
	Left    int32
	Right   int32
	Size    int32
}

// Tree is a single randomized binary partition tree stored as a node array
// with index links, root at index 0.
type Tree struct {
	Nodes []Node
}

// Forest is the fitted ensemble plus the calibration recorded at fit time.
// Offset is the score_samples percentile matching the contamination fraction;
// Decision values below zero read as anomalous.
type Forest struct {
	Trees         []Tree
	SubsampleSize int
	Contamination float64
	Offset        float64
}

// fitForest grows the ensemble over standardized rows and calibrates Offset
// from the training score distribution.
func fitForest(rng *rand.Rand, rows [][3]float64, trees, psi int, contamination float64) *Forest {
	f := &Forest{
		SubsampleSize: psi,
		Contamination: contamination,
	}
	maxDepth := depthLimit(psi)
	f.Trees = make([]Tree, trees)
	for i := range f.Trees {
		sample := rng.Perm(len(rows))[:psi]
		nodes := make([]Node, 0, 2*psi)
		grow(rng, rows, sample, 0, maxDepth, &nodes)
		f.Trees[i] = Tree{Nodes: nodes}
	}

	scores := make([]float64, len(rows))
	for i, r := range rows {
		scores[i] = f.scoreSample(r)
	}
	slices.Sort(scores)
	f.Offset = percentile(scores, 100*contamination)
	return f
}

// grow appends the subtree isolating rows[idx] and returns its root index.
// A node becomes a leaf when a single point remains, the depth cap is hit,
// or every feature is constant across the remaining points.
func grow(rng *rand.Rand, rows [][3]float64, idx []int, depth, maxDepth int, nodes *[]Node) int32 {
	me := int32(len(*nodes))
	*nodes = append(*nodes, Node{Feature: -1, Left: -1, Right: -1, Size: int32(len(idx))})
	if len(idx) <= 1 || depth >= maxDepth {
		return me
	}

	var lo, hi [3]float64
	for j := 0; j < 3; j++ {
		lo[j], hi[j] = math.Inf(1), math.Inf(-1)
	}
	for _, i := range idx {
		for j := 0; j < 3; j++ {
			v := rows[i][j]
			if v < lo[j] {
				lo[j] = v
			}
			if v > hi[j] {
				hi[j] = v
			}
		}
	}
	var splittable [3]int32
	nc := 0
	for j := 0; j < 3; j++ {
		if hi[j] > lo[j] {
			splittable[nc] = int32(j)
			nc++
		}
	}
	if nc == 0 {
		return me
	}

	f := splittable[rng.IntN(nc)]
	split := lo[f] + rng.Float64()*(hi[f]-lo[f])

	var left, right []int
	for _, i := range idx {
		if rows[i][f] <= split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := grow(rng, rows, left, depth+1, maxDepth, nodes)
	r := grow(rng, rows, right, depth+1, maxDepth, nodes)
	(*nodes)[me] = Node{Feature: f, Split: split, Left: l, Right: r, Size: int32(len(idx))}
	return me
}

// depthLimit caps tree height at ceil(log2(psi)).
func depthLimit(psi int) int {
	if psi < 2 {
		psi = 2
	}
	return int(math.Ceil(math.Log2(float64(psi))))
}

// pathLength walks one standardized row to its leaf and returns the edge
// count plus the average-path correction for the leaf's population.
func (t *Tree) pathLength(row [3]float64) float64 {
	depth := 0.0
	i := int32(0)
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return depth + averagePathLength(float64(n.Size))
		}
		if row[n.Feature] <= n.Split {
			i = n.Left
		} else {
			i = n.Right
		}
		depth++
	}
}

// scoreSample returns the raw sample score in [-1, 0): the negated
// 2^(-E[h]/c(psi)). Values near -1 read as anomalous.
func (f *Forest) scoreSample(row [3]float64) float64 {
	total := 0.0
	for i := range f.Trees {
		total += f.Trees[i].pathLength(row)
	}
	denom := float64(len(f.Trees)) * averagePathLength(float64(f.SubsampleSize))
	return -math.Exp2(-total / denom)
}

// Decision is the calibrated score reported to callers: the raw sample score
// minus the fitted Offset. Negative values are anomalous.
func (f *Forest) Decision(row [3]float64) float64 {
	return f.scoreSample(row) - f.Offset
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// binary search over n points, using H(k) = ln(k) + eulerGamma.
func averagePathLength(n float64) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		return 2*(math.Log(n-1)+eulerGamma) - 2*(n-1)/n
	}
}

// percentile interpolates linearly between order statistics, matching the
// convention the offline trainer used to calibrate the threshold.
func percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := (float64(n) - 1) * q / 100
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
