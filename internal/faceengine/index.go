package faceengine

import (
	"github.com/coder/hnsw"

	"github.com/kozaktomas/doorlock/internal/constants"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

// searchWidth is the minimum number of graph neighbors re-ranked by exact
// distance.
const searchWidth = 4

// templateIndex is an HNSW graph over one version of the gallery.
type templateIndex struct {
	graph *hnsw.Graph[int]
	// version holds the identity of each template embedding the graph was built from.
	version []*float32
}

func buildIndex(templates []gallery.Template) *templateIndex {
	g := hnsw.NewGraph[int]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors)
	g.EfSearch = constants.HNSWEfSearch
	g.Distance = hnsw.CosineDistance

	dims := 0
	for _, t := range templates {
		if len(t.Embedding) == 0 {
			continue
		}
		if dims == 0 {
			dims = len(t.Embedding)
		}
		if len(t.Embedding) != dims {
			continue
		}
		g.Add(hnsw.MakeNode(t.ID, []float32(t.Embedding)))
	}

	return &templateIndex{graph: g, version: templateVersion(templates)}
}

// templateVersion identifies a gallery state by the backing arrays of its
// embeddings. Enrolled embeddings are private copies, so any enroll or
// delete changes the result.
func templateVersion(templates []gallery.Template) []*float32 {
	v := make([]*float32, len(templates))
	for i, t := range templates {
		if len(t.Embedding) > 0 {
			v[i] = &t.Embedding[0]
		}
	}
	return v
}

func (x *templateIndex) matches(templates []gallery.Template) bool {
	if len(x.version) != len(templates) {
		return false
	}
	for i, t := range templates {
		var p *float32
		if len(t.Embedding) > 0 {
			p = &t.Embedding[0]
		}
		if x.version[i] != p {
			return false
		}
	}
	return true
}

// nearest returns up to k candidate template ids close to the query.
func (x *templateIndex) nearest(query gallery.Embedding, k int) []int {
	if k <= 0 || x.graph.Len() == 0 || x.graph.Dims() != len(query) {
		return nil
	}
	nodes := x.graph.Search([]float32(query), k)
	ids := make([]int, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Key
	}
	return ids
}
