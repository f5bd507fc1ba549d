package trust

import (
	"strings"

	"github.com/sieve-kg/sieve/pkg/common"
	"github.com/sieve-kg/sieve/pkg/evidence"
	"github.com/sieve-kg/sieve/pkg/graph"
	"github.com/sieve-kg/sieve/pkg/ledger"
)

// Default component weights. When a component is null (no ground truth
// supplied) the remaining weights are renormalized so the aggregate is not
// silently penalized for missing baselines.
const (
	weightTraceability      = 0.35
	weightCompleteness      = 0.25
	weightPhaseAccuracy     = 0.20
	weightAntiHallucination = 0.20
)

// Score computes the trust report for a finished run. It is a pure function
// of its inputs: identical graph, ledger, store and baseline always yield an
// identical report.
//
// A "fact" is one node or one edge. A fact is traceable when every id in
// its evidence list resolves in the evidence store. Completeness and phase
// accuracy are nil without a baseline, never fabricated.
func Score(g *graph.Graph, l *ledger.Ledger, store evidence.Store, baseline *common.Baseline) common.TrustScoreReport {
	nodes := g.Nodes()
	edges := g.Edges()

	totalFacts := len(nodes) + len(edges)
	traceableFacts := 0
	for _, node := range nodes {
		if evidenceResolves(store, node.EvidenceIDs) {
			traceableFacts++
		}
	}
	for _, edge := range edges {
		if evidenceResolves(store, edge.EvidenceIDs) {
			traceableFacts++
		}
	}

	report := common.TrustScoreReport{
		TotalFacts:     totalFacts,
		TraceableFacts: traceableFacts,
		RejectedFacts:  l.Len(),
	}

	// An empty graph has nothing traceable but also nothing hallucinated.
	traceability := 0.0
	antiHallucination := 1.0
	if totalFacts > 0 {
		traceability = float64(traceableFacts) / float64(totalFacts)
		antiHallucination = 1.0 - float64(totalFacts-traceableFacts)/float64(totalFacts)
	}
	report.Traceability = clampPtr(traceability)
	report.AntiHallucination = clampPtr(antiHallucination)

	if baseline != nil && baseline.ExpectedFactCount > 0 {
		completeness := float64(totalFacts) / float64(baseline.ExpectedFactCount)
		if completeness > 1.0 {
			completeness = 1.0
		}
		report.Completeness = clampPtr(completeness)
	}

	if baseline != nil && len(baseline.Phases) > 0 {
		if accuracy, ok := phaseAccuracy(nodes, baseline.Phases); ok {
			report.PhaseAccuracy = clampPtr(accuracy)
		}
	}

	report.Weights = renormalizedWeights(report)
	aggregate := 0.0
	if report.Traceability != nil {
		aggregate += report.Weights["traceability"] * *report.Traceability
	}
	if report.Completeness != nil {
		aggregate += report.Weights["completeness"] * *report.Completeness
	}
	if report.PhaseAccuracy != nil {
		aggregate += report.Weights["phase_accuracy"] * *report.PhaseAccuracy
	}
	if report.AntiHallucination != nil {
		aggregate += report.Weights["anti_hallucination"] * *report.AntiHallucination
	}
	report.TrustScore = clamp(aggregate)

	return report
}

func evidenceResolves(store evidence.Store, ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if _, ok := store.Resolve(id); !ok {
			return false
		}
	}
	return true
}

// phaseAccuracy compares project node phases against the ground-truth map.
// Only baseline entries whose node exists in the graph are counted; ok is
// false when no entry was comparable.
func phaseAccuracy(nodes []common.GraphNode, expected map[string]string) (float64, bool) {
	byID := make(map[string]common.GraphNode, len(nodes))
	for _, node := range nodes {
		byID[node.NodeID] = node
	}

	compared := 0
	matched := 0
	for nodeID, phase := range expected {
		node, ok := byID[nodeID]
		if !ok {
			continue
		}
		compared++
		if strings.EqualFold(node.Phase, phase) {
			matched++
		}
	}
	if compared == 0 {
		return 0, false
	}
	return float64(matched) / float64(compared), true
}

// renormalizedWeights returns the weights actually used: the default weight
// of each defined component, scaled so the defined weights sum to 1.0.
func renormalizedWeights(report common.TrustScoreReport) map[string]float64 {
	defined := map[string]float64{}
	if report.Traceability != nil {
		defined["traceability"] = weightTraceability
	}
	if report.Completeness != nil {
		defined["completeness"] = weightCompleteness
	}
	if report.PhaseAccuracy != nil {
		defined["phase_accuracy"] = weightPhaseAccuracy
	}
	if report.AntiHallucination != nil {
		defined["anti_hallucination"] = weightAntiHallucination
	}

	total := 0.0
	for _, w := range defined {
		total += w
	}
	if total == 0 {
		return defined
	}
	for name, w := range defined {
		defined[name] = w / total
	}
	return defined
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampPtr(v float64) *float64 {
	clamped := clamp(v)
	return &clamped
}
