// Package network — kdtree is a static 2-d tree over node coordinates used
// for nearest-node snapping.
package network

import (
	"sort"

	"taxisim/internal/types"
)

type kdNode struct {
	node        types.NodeID
	point       types.Point
	left, right *kdNode
}

type kdTree struct {
	root *kdNode
}

func newKDTree(coords []types.Point) *kdTree {
	items := make([]kdNode, len(coords))
	for i, p := range coords {
		items[i] = kdNode{node: types.NodeID(i), point: p}
	}
	refs := make([]*kdNode, len(items))
	for i := range items {
		refs[i] = &items[i]
	}
	return &kdTree{root: buildKD(refs, 0)}
}

func buildKD(refs []*kdNode, depth int) *kdNode {
	if len(refs) == 0 {
		return nil
	}
	axis := depth % 2
	sort.Slice(refs, func(i, j int) bool {
		if axis == 0 {
			if refs[i].point.X != refs[j].point.X {
				return refs[i].point.X < refs[j].point.X
			}
		} else {
			if refs[i].point.Y != refs[j].point.Y {
				return refs[i].point.Y < refs[j].point.Y
			}
		}
		return refs[i].node < refs[j].node
	})
	mid := len(refs) / 2
	n := refs[mid]
	n.left = buildKD(refs[:mid], depth+1)
	n.right = buildKD(refs[mid+1:], depth+1)
	return n
}

func (t *kdTree) nearest(p types.Point) types.NodeID {
	best := t.root
	bestDist := best.point.DistanceTo(p)
	t.search(t.root, p, 0, &best, &bestDist)
	return best.node
}

func (t *kdTree) search(n *kdNode, p types.Point, depth int, best **kdNode, bestDist *float64) {
	if n == nil {
		return
	}
	d := n.point.DistanceTo(p)
	if d < *bestDist || (d == *bestDist && n.node < (*best).node) {
		*best = n
		*bestDist = d
	}
	axis := depth % 2
	var diff float64
	if axis == 0 {
		diff = p.X - n.point.X
	} else {
		diff = p.Y - n.point.Y
	}
	near, far := n.left, n.right
	if diff > 0 {
		near, far = n.right, n.left
	}
	t.search(near, p, depth+1, best, bestDist)
	if diff*diff <= (*bestDist)*(*bestDist) {
		t.search(far, p, depth+1, best, bestDist)
	}
}
