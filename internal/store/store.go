// Package store is an in-memory graph store with ordered listings, so that
// graphs built on it render the same way every time.
package store

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dominikbraun/graph"
)

// CustomStore is a graph.Store whose vertex properties can be edited in place.
type CustomStore[K cmp.Ordered, T any] interface {
	graph.Store[K, T]
	UpdateVertex(k K, options ...func(*graph.VertexProperties)) error
}

type MemoryStore[K cmp.Ordered, T any] struct {
	lock             sync.RWMutex
	vertices         map[K]T
	vertexProperties map[K]*graph.VertexProperties

	outEdges map[K]map[K]graph.Edge[K] // source -> target
	inEdges  map[K]map[K]graph.Edge[K] // target -> source
}

func NewMemoryStore[K cmp.Ordered, T any]() CustomStore[K, T] {
	return &MemoryStore[K, T]{
		vertices:         make(map[K]T),
		vertexProperties: make(map[K]*graph.VertexProperties),
		outEdges:         make(map[K]map[K]graph.Edge[K]),
		inEdges:          make(map[K]map[K]graph.Edge[K]),
	}
}

func (s *MemoryStore[K, T]) AddVertex(k K, t T, p graph.VertexProperties) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; ok {
		return graph.ErrVertexAlreadyExists
	}
	if p.Attributes == nil {
		p.Attributes = make(map[string]string)
	}

	s.vertices[k] = t
	s.vertexProperties[k] = &p

	return nil
}

// ListVertices returns the vertex hashes in ascending order.
func (s *MemoryStore[K, T]) ListVertices() ([]K, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	hashes := make([]K, 0, len(s.vertices))
	for k := range s.vertices {
		hashes = append(hashes, k)
	}
	slices.Sort(hashes)

	return hashes, nil
}

func (s *MemoryStore[K, T]) VertexCount() (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.vertices), nil
}

func (s *MemoryStore[K, T]) Vertex(k K) (T, graph.VertexProperties, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.vertices[k]
	if !ok {
		return v, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	return v, *s.vertexProperties[k], nil
}

// UpdateVertex applies options to the stored properties of k.
func (s *MemoryStore[K, T]) UpdateVertex(k K, options ...func(*graph.VertexProperties)) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	p, ok := s.vertexProperties[k]
	if !ok {
		return graph.ErrVertexNotFound
	}
	for _, opt := range options {
		opt(p)
	}

	return nil
}

func (s *MemoryStore[K, T]) RemoveVertex(k K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; !ok {
		return graph.ErrVertexNotFound
	}
	if len(s.inEdges[k]) > 0 || len(s.outEdges[k]) > 0 {
		return graph.ErrVertexHasEdges
	}

	delete(s.inEdges, k)
	delete(s.outEdges, k)
	delete(s.vertices, k)
	delete(s.vertexProperties, k)

	return nil
}

func (s *MemoryStore[K, T]) AddEdge(sourceHash, targetHash K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.outEdges[sourceHash]; !ok {
		s.outEdges[sourceHash] = make(map[K]graph.Edge[K])
	}
	s.outEdges[sourceHash][targetHash] = edge

	if _, ok := s.inEdges[targetHash]; !ok {
		s.inEdges[targetHash] = make(map[K]graph.Edge[K])
	}
	s.inEdges[targetHash][sourceHash] = edge

	return nil
}

func (s *MemoryStore[K, T]) UpdateEdge(sourceHash, targetHash K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.outEdges[sourceHash][targetHash]; !ok {
		return graph.ErrEdgeNotFound
	}
	s.outEdges[sourceHash][targetHash] = edge
	s.inEdges[targetHash][sourceHash] = edge

	return nil
}

func (s *MemoryStore[K, T]) RemoveEdge(sourceHash, targetHash K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.inEdges[targetHash], sourceHash)
	delete(s.outEdges[sourceHash], targetHash)

	return nil
}

func (s *MemoryStore[K, T]) Edge(sourceHash, targetHash K) (graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	edge, ok := s.outEdges[sourceHash][targetHash]
	if !ok {
		return graph.Edge[K]{}, graph.ErrEdgeNotFound
	}

	return edge, nil
}

// ListEdges returns edges ordered by source then target.
func (s *MemoryStore[K, T]) ListEdges() ([]graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]graph.Edge[K], 0)
	for _, edges := range s.outEdges {
		for _, edge := range edges {
			res = append(res, edge)
		}
	}
	slices.SortFunc(res, func(a, b graph.Edge[K]) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}

		return cmp.Compare(a.Target, b.Target)
	})

	return res, nil
}

var _ CustomStore[string, string] = (*MemoryStore[string, string])(nil)
