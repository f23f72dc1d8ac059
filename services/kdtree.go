package services

import "gonum.org/v1/gonum/spatial/kdtree"

// facilityPoint is a raw (lat, lon) pair tagged with its position in the
// facility table.
type facilityPoint struct {
	lat, lon float64
	idx      int
}

func (p facilityPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(facilityPoint)
	if d == 0 {
		return p.lat - q.lat
	}
	return p.lon - q.lon
}

func (p facilityPoint) Dims() int { return 2 }

// Distance is the squared Euclidean distance in degrees.
func (p facilityPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(facilityPoint)
	dlat, dlon := p.lat-q.lat, p.lon-q.lon
	return dlat*dlat + dlon*dlon
}

type facilityPoints []facilityPoint

func (p facilityPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p facilityPoints) Len() int                      { return len(p) }
func (p facilityPoints) Pivot(d kdtree.Dim) int {
	return facilityPlane{Dim: d, facilityPoints: p}.Pivot()
}
func (p facilityPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// facilityPlane sorts points along one dimension while the tree is built.
type facilityPlane struct {
	kdtree.Dim
	facilityPoints
}

func (p facilityPlane) Less(i, j int) bool {
	return p.facilityPoints[i].Compare(p.facilityPoints[j], p.Dim) < 0
}
func (p facilityPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p facilityPlane) Slice(start, end int) kdtree.SortSlicer {
	p.facilityPoints = p.facilityPoints[start:end]
	return p
}
func (p facilityPlane) Swap(i, j int) {
	p.facilityPoints[i], p.facilityPoints[j] = p.facilityPoints[j], p.facilityPoints[i]
}

// kdTree answers Euclidean nearest-neighbour lookups over raw (lat, lon)
// points. Equal distances resolve to the lowest point index, so results
// match a linear scan in input order.
type kdTree struct {
	tree *kdtree.Tree
	size int
}

func newKDTree(pts [][2]float64) *kdTree {
	fp := make(facilityPoints, len(pts))
	for i, p := range pts {
		fp[i] = facilityPoint{lat: p[0], lon: p[1], idx: i}
	}
	t := &kdTree{size: len(pts)}
	if len(fp) > 0 {
		t.tree = kdtree.New(fp, false)
	}
	return t
}

// nearest returns the index of the closest point to q and the squared
// Euclidean distance to it. It returns -1 on an empty tree.
func (t *kdTree) nearest(q [2]float64) (int, float64) {
	if t.size == 0 {
		return -1, 0
	}
	query := facilityPoint{lat: q[0], lon: q[1], idx: -1}
	_, best := t.tree.Nearest(query)

	// collect every point at the best distance so ties pick the lowest index
	keep := kdtree.NewDistKeeper(best)
	t.tree.NearestSet(keep, query)

	idx := -1
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		if p := c.Comparable.(facilityPoint); idx < 0 || p.idx < idx {
			idx = p.idx
		}
	}
	return idx, best
}
