/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package surface

import (
	"gosketchcad/internal/entity"
	"gosketchcad/internal/geom"
)

// The stroke network: nodes are stroke endpoints merged within the close
// tolerance, edges are the strokes themselves with their full point chain.

type node struct {
	p     geom.Point3D
	edges []int
}

type edge struct {
	id       entity.ID
	pts      []geom.Point3D
	from, to int
}

type step struct {
	edge    int
	forward bool
}

type network struct {
	tol   float64
	nodes []node
	edges []edge
}

// nodeFor returns the node within tol of p, creating one when none is near.
func (n *network) nodeFor(p geom.Point3D) int {
	for i, nd := range n.nodes {
		if nd.p.Dist(p) < n.tol {
			return i
		}
	}
	n.nodes = append(n.nodes, node{p: p})
	return len(n.nodes) - 1
}

// addEdge inserts a stroke and returns its index, or -1 for strokes that
// start and end on the same node.
func (n *network) addEdge(id entity.ID, pts []geom.Point3D) int {
	from := n.nodeFor(pts[0])
	to := n.nodeFor(pts[len(pts)-1])
	if from == to {
		return -1
	}
	n.edges = append(n.edges, edge{id: id, pts: pts, from: from, to: to})
	idx := len(n.edges) - 1
	n.nodes[from].edges = append(n.nodes[from].edges, idx)
	n.nodes[to].edges = append(n.nodes[to].edges, idx)
	return idx
}

// findCycle searches for a simple cycle through the committed stroke. A
// breadth-first walk from the stroke's far end back to its start yields the
// shortest closing path; ties go to the stroke drawn first. Every node is
// expanded at most once, so the cost stays linear in the network size.
func (s *Synthesizer) findCycle(committed entity.Entity, all []entity.Entity) ([]geom.Point3D, []entity.ID) {
	n := &network{tol: s.CloseTolerance}
	root := n.addEdge(committed.ID(), committed.Path())
	if root < 0 {
		return nil, nil
	}
	for _, e := range all {
		if e == nil || e.ID() == committed.ID() || !e.Visible() || !openStroke(e) {
			continue
		}
		pts := e.Path()
		if len(pts) < 2 || entity.IsClosed(pts, s.CloseTolerance) {
			continue
		}
		valid := true
		for _, p := range pts {
			if !p.Valid() {
				valid = false
				break
			}
		}
		if valid {
			n.addEdge(e.ID(), pts)
		}
	}

	c := n.edges[root]
	// via[i] is the step that first reached node i; depth counts edges.
	via := make([]step, len(n.nodes))
	depth := make([]int, len(n.nodes))
	seen := make([]bool, len(n.nodes))
	seen[c.to] = true
	queue := []int{c.to}
	for len(queue) > 0 {
		at := queue[0]
		queue = queue[1:]
		// the closing edge plus the root must stay within the bound
		if depth[at]+2 > s.MaxCycleEdges {
			continue
		}
		for _, ei := range n.nodes[at].edges {
			if ei == root {
				continue
			}
			e := n.edges[ei]
			fwd := e.from == at
			next := e.to
			if !fwd {
				next = e.from
			}
			if next == c.from {
				loop, ids := n.assemble(c, via, at, step{edge: ei, forward: fwd})
				if geom.DistinctCount(loop, s.CloseTolerance) >= 3 {
					return loop, ids
				}
				continue
			}
			if seen[next] {
				continue
			}
			seen[next] = true
			via[next] = step{edge: ei, forward: fwd}
			depth[next] = depth[at] + 1
			queue = append(queue, next)
		}
	}
	return nil, nil
}

// assemble walks the via chain back from at to the root's far end and
// returns the loop starting with the root stroke.
func (n *network) assemble(root edge, via []step, at int, last step) ([]geom.Point3D, []entity.ID) {
	path := []step{last}
	for at != root.to {
		st := via[at]
		path = append(path, st)
		e := n.edges[st.edge]
		if st.forward {
			at = e.from
		} else {
			at = e.to
		}
	}
	loop := append([]geom.Point3D(nil), root.pts...)
	ids := []entity.ID{root.id}
	for i := len(path) - 1; i >= 0; i-- {
		st := path[i]
		e := n.edges[st.edge]
		pts := e.pts
		if !st.forward {
			pts = reversed(pts)
		}
		loop = append(loop, pts[1:]...)
		ids = append(ids, e.id)
	}
	// the walk ends where the committed stroke started
	return loop[:len(loop)-1], ids
}

func reversed(pts []geom.Point3D) []geom.Point3D {
	out := make([]geom.Point3D, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
