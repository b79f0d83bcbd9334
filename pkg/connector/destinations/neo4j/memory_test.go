package neo4j

import (
	"context"
	"sync"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
)

type nodeKey struct {
	label string
	id    string
}

type edgeKey struct {
	from nodeKey
	typ  string
	to   nodeKey
}

// memoryGraph applies merges to an in-memory graph with the same semantics
// as the Cypher statements the driver writer sends.
type memoryGraph struct {
	mu        sync.Mutex
	nodes     map[nodeKey]map[string]any
	edges     map[edgeKey]int
	nodeCalls int
	edgeCalls int
	failNext  []error
	closed    bool
}

func newMemoryGraph() *memoryGraph {
	return &memoryGraph{
		nodes: make(map[nodeKey]map[string]any),
		edges: make(map[edgeKey]int),
	}
}

func (m *memoryGraph) popErr() error {
	if len(m.failNext) == 0 {
		return nil
	}
	err := m.failNext[0]
	m.failNext = m.failNext[1:]
	return err
}

func (m *memoryGraph) VerifyConnectivity(context.Context) error { return nil }

func (m *memoryGraph) MergeNode(_ context.Context, label, id string, props map[string]any, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodeCalls++
	if err := m.popErr(); err != nil {
		return err
	}

	key := nodeKey{label, id}
	n, ok := m.nodes[key]
	if !ok {
		n = map[string]any{"_id": id}
		m.nodes[key] = n
	}
	for k, v := range props {
		n[k] = v
	}
	n["data"] = data
	return nil
}

func (m *memoryGraph) MergeEdge(_ context.Context, label, sourceID string, rule config.RelationshipRule, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edgeCalls++
	if err := m.popErr(); err != nil {
		return err
	}

	from := nodeKey{label, sourceID}
	if _, ok := m.nodes[from]; !ok {
		// MATCH found nothing, so nothing is merged.
		return nil
	}
	to := nodeKey{rule.TargetLabel, targetID}
	target, ok := m.nodes[to]
	if !ok {
		target = map[string]any{"_id": targetID}
		m.nodes[to] = target
	}
	target[rule.TargetField] = targetID
	m.edges[edgeKey{from, rule.RelationshipType, to}] = 1
	return nil
}

func (m *memoryGraph) Close(context.Context) error {
	m.closed = true
	return nil
}

func (m *memoryGraph) countLabel(label string) int {
	n := 0
	for k := range m.nodes {
		if k.label == label {
			n++
		}
	}
	return n
}
