package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sieve-kg/sieve/pkg/common"
)

// Graph is the aggregate of all nodes and edges for one run. It is the sole
// source of truth for downstream export; JSON views are derived read-only
// snapshots.
//
// All mutation goes through Apply, which holds the single writer lock, so
// at most one mutation is outstanding at any time.
type Graph struct {
	mu sync.Mutex

	nodes     map[string]*common.GraphNode
	nodeOrder []string
	edges     map[string]*common.GraphEdge
	edgeOrder []string

	// projectNodes maps project_id to the lexicographically least Project
	// node ID accepted for that project, so the binding depends only on the
	// set of applied hypotheses. hypothesisNodes maps every applied
	// hypothesis to the node it created or merged into, which is how links_to
	// references are resolved without a second construction pass.
	projectNodes    map[string]string
	hypothesisNodes map[string]string

	// specs is the canonical set of derived edges, keyed by their unresolved
	// endpoints. The edges map is recomputed from it after every Apply, so an
	// edge always reflects the current bindings. pending holds the specs that
	// did not resolve on the last pass.
	specs     []edgeSpec
	specIndex map[string]int
	pending   []edgeSpec
}

// nodeRef is a not-yet-resolved endpoint of a derived edge. Exactly one
// field is set.
type nodeRef struct {
	nodeID       string
	projectID    string
	hypothesisID string
}

type edgeSpec struct {
	from        nodeRef
	to          nodeRef
	relation    common.Relation
	evidenceIDs []string
}

// MutationResult reports what one Apply call changed.
type MutationResult struct {
	NodeID      string
	CreatedNode bool
	EdgesAdded  int
}

// DanglingLink describes a derived edge whose endpoint never materialized,
// e.g. a links_to reference to a hypothesis that was rejected. The node
// itself was still added; only the edge is missing.
type DanglingLink struct {
	NodeID    string
	Relation  common.Relation
	Reference string
}

func New() *Graph {
	return &Graph{
		nodes:           make(map[string]*common.GraphNode),
		edges:           make(map[string]*common.GraphEdge),
		projectNodes:    make(map[string]string),
		hypothesisNodes: make(map[string]string),
		specIndex:       make(map[string]int),
	}
}

// Apply incorporates one accepted hypothesis into the graph. Node creation
// is idempotent on (kind, normalized text): a repeated claim merges its
// evidence and source lists instead of duplicating the node.
//
// Apply returns an error only when the hypothesis would violate the
// non-empty evidence invariant; the caller routes such hypotheses to the
// rejection ledger instead.
func (g *Graph) Apply(hypothesis common.Hypothesis) (*MutationResult, error) {
	if len(hypothesis.EvidenceIDs) == 0 {
		return nil, fmt.Errorf("hypothesis %s has no evidence", hypothesis.HypothesisID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	nodeID := NodeKey(string(hypothesis.Kind), hypothesis.Text)
	result := &MutationResult{NodeID: nodeID}

	node, exists := g.nodes[nodeID]
	if !exists {
		node = &common.GraphNode{
			NodeID:        nodeID,
			Kind:          hypothesis.Kind,
			CanonicalText: NormalizeText(hypothesis.Text),
		}
		g.nodes[nodeID] = node
		g.nodeOrder = append(g.nodeOrder, nodeID)
		result.CreatedNode = true
	}
	node.EvidenceIDs = appendUnique(node.EvidenceIDs, hypothesis.EvidenceIDs...)
	node.SourceHypothesisIDs = appendUnique(node.SourceHypothesisIDs, hypothesis.HypothesisID)
	if node.Phase == "" && hypothesis.Phase != "" {
		node.Phase = hypothesis.Phase
	}

	g.hypothesisNodes[hypothesis.HypothesisID] = nodeID
	if hypothesis.Kind == common.KindProject {
		if current, ok := g.projectNodes[hypothesis.ProjectID]; !ok || nodeID < current {
			g.projectNodes[hypothesis.ProjectID] = nodeID
		}
	}

	for _, spec := range deriveEdges(hypothesis, nodeID) {
		g.addSpec(spec)
	}
	before := len(g.edges)
	g.resolveEdges()
	result.EdgesAdded = len(g.edges) - before

	return result, nil
}

// deriveEdges applies the fixed, kind-driven derivation rules. Endpoints
// that depend on other hypotheses are left as references and resolved
// against the graph's indexes.
func deriveEdges(hypothesis common.Hypothesis, nodeID string) []edgeSpec {
	switch hypothesis.Kind {
	case common.KindTopic:
		return []edgeSpec{{
			from:        nodeRef{projectID: hypothesis.ProjectID},
			to:          nodeRef{nodeID: nodeID},
			relation:    common.RelationHasTopic,
			evidenceIDs: hypothesis.EvidenceIDs,
		}}
	case common.KindChallenge:
		return []edgeSpec{{
			from:        nodeRef{projectID: hypothesis.ProjectID},
			to:          nodeRef{nodeID: nodeID},
			relation:    common.RelationFacedChallenge,
			evidenceIDs: hypothesis.EvidenceIDs,
		}}
	case common.KindResolution:
		if hypothesis.LinksTo == "" {
			return nil
		}
		return []edgeSpec{{
			from:        nodeRef{hypothesisID: hypothesis.LinksTo},
			to:          nodeRef{nodeID: nodeID},
			relation:    common.RelationResolvedBy,
			evidenceIDs: hypothesis.EvidenceIDs,
		}}
	case common.KindProject:
		if hypothesis.LinksTo == "" {
			return nil
		}
		return []edgeSpec{{
			from:        nodeRef{nodeID: nodeID},
			to:          nodeRef{hypothesisID: hypothesis.LinksTo},
			relation:    common.RelationPartOf,
			evidenceIDs: hypothesis.EvidenceIDs,
		}}
	}
	return nil
}

func (g *Graph) resolveRef(ref nodeRef) (string, bool) {
	switch {
	case ref.nodeID != "":
		_, ok := g.nodes[ref.nodeID]
		return ref.nodeID, ok
	case ref.projectID != "":
		id, ok := g.projectNodes[ref.projectID]
		return id, ok
	case ref.hypothesisID != "":
		id, ok := g.hypothesisNodes[ref.hypothesisID]
		return id, ok
	}
	return "", false
}

// upsertEdge resolves both endpoints and creates or merges the edge.
// Returns false when an endpoint is not resolvable yet.
func (g *Graph) upsertEdge(spec edgeSpec) bool {
	fromID, ok := g.resolveRef(spec.from)
	if !ok {
		return false
	}
	toID, ok := g.resolveRef(spec.to)
	if !ok {
		return false
	}

	key := fromID + "|" + toID + "|" + string(spec.relation)
	edge, exists := g.edges[key]
	if !exists {
		edge = &common.GraphEdge{
			FromNode: fromID,
			ToNode:   toID,
			Relation: spec.relation,
		}
		g.edges[key] = edge
		g.edgeOrder = append(g.edgeOrder, key)
	}
	edge.EvidenceIDs = appendUnique(edge.EvidenceIDs, spec.evidenceIDs...)
	return true
}

func refKey(ref nodeRef) string {
	switch {
	case ref.nodeID != "":
		return "n:" + ref.nodeID
	case ref.projectID != "":
		return "p:" + ref.projectID
	}
	return "h:" + ref.hypothesisID
}

// addSpec records a derived edge, merging evidence when the same edge was
// already derived by another hypothesis.
func (g *Graph) addSpec(spec edgeSpec) {
	key := refKey(spec.from) + "|" + refKey(spec.to) + "|" + string(spec.relation)
	if i, ok := g.specIndex[key]; ok {
		g.specs[i].evidenceIDs = appendUnique(g.specs[i].evidenceIDs, spec.evidenceIDs...)
		return
	}
	g.specIndex[key] = len(g.specs)
	g.specs = append(g.specs, spec)
}

// resolveEdges recomputes the edge set from the recorded specs. Running the
// full set after every Apply makes the edges a function of the applied
// hypotheses alone: a Topic applied before its Project still gets its
// HAS_TOPIC edge once the Project node appears, and a later Project node
// that wins the project binding re-points the edges that reference it.
func (g *Graph) resolveEdges() {
	g.edges = make(map[string]*common.GraphEdge, len(g.specs))
	g.edgeOrder = g.edgeOrder[:0]
	g.pending = g.pending[:0]
	for _, spec := range g.specs {
		if !g.upsertEdge(spec) {
			g.pending = append(g.pending, spec)
		}
	}
}

// Dangling returns the derived edges that never resolved. Callers log these
// as non-fatal warnings at the end of a run.
func (g *Graph) Dangling() []DanglingLink {
	g.mu.Lock()
	defer g.mu.Unlock()

	links := make([]DanglingLink, 0, len(g.pending))
	for _, spec := range g.pending {
		link := DanglingLink{Relation: spec.relation}
		if spec.from.nodeID != "" {
			link.NodeID = spec.from.nodeID
		} else {
			link.NodeID = spec.to.nodeID
		}
		switch {
		case spec.from.projectID != "":
			link.Reference = spec.from.projectID
		case spec.from.hypothesisID != "":
			link.Reference = spec.from.hypothesisID
		case spec.to.hypothesisID != "":
			link.Reference = spec.to.hypothesisID
		}
		links = append(links, link)
	}
	return links
}

// Nodes returns a copy of all nodes, sorted by node ID.
func (g *Graph) Nodes() []common.GraphNode {
	g.mu.Lock()
	defer g.mu.Unlock()

	nodes := make([]common.GraphNode, 0, len(g.nodes))
	for _, id := range g.nodeOrder {
		nodes = append(nodes, *g.nodes[id])
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID < nodes[j].NodeID })
	return nodes
}

// Edges returns a copy of all edges, sorted by (from, relation, to).
func (g *Graph) Edges() []common.GraphEdge {
	g.mu.Lock()
	defer g.mu.Unlock()

	edges := make([]common.GraphEdge, 0, len(g.edges))
	for _, key := range g.edgeOrder {
		edges = append(edges, *g.edges[key])
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].FromNode != edges[j].FromNode {
			return edges[i].FromNode < edges[j].FromNode
		}
		if edges[i].Relation != edges[j].Relation {
			return edges[i].Relation < edges[j].Relation
		}
		return edges[i].ToNode < edges[j].ToNode
	})
	return edges
}

func appendUnique(existing []string, values ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		existing = append(existing, v)
	}
	return existing
}
