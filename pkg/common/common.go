package common

// HypothesisKind identifies the shape of claim a hypothesis asserts.
// The set is closed; unknown kinds are rejected at the input boundary.
type HypothesisKind string

const (
	KindProject    HypothesisKind = "Project"
	KindTopic      HypothesisKind = "Topic"
	KindChallenge  HypothesisKind = "Challenge"
	KindResolution HypothesisKind = "Resolution"
)

// ValidKind reports whether k is one of the closed set of hypothesis kinds.
func ValidKind(k HypothesisKind) bool {
	switch k {
	case KindProject, KindTopic, KindChallenge, KindResolution:
		return true
	}
	return false
}

// Relation is the type of an edge between two graph nodes. Edge derivation
// is fixed per hypothesis kind so the graph structure stays deterministic.
type Relation string

const (
	RelationHasTopic       Relation = "HAS_TOPIC"
	RelationFacedChallenge Relation = "FACED_CHALLENGE"
	RelationResolvedBy     Relation = "RESOLVED_BY"
	RelationPartOf         Relation = "PART_OF"
)

// Rejection reasons recorded in the ledger. Infrastructure reasons
// (verification_unavailable) are kept distinguishable from substantive
// rejections so a later run can reprocess them.
const (
	ReasonMalformedInput     = "malformed_input"
	ReasonNoEvidence         = "no_evidence"
	ReasonEvidenceNotFound   = "evidence_not_found"
	ReasonNotSupported       = "not_supported_by_evidence"
	ReasonUnavailable        = "verification_unavailable"
	ReasonInvariantViolation = "invariant_violation"
)

// Document is an immutable source unit owned by the evidence store.
// Documents are created during ingestion and never mutated or deleted
// during a pipeline run.
type Document struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ProjectGroup is a named cluster of document IDs representing one topical
// thread. Groups are produced by an external clustering step and are
// read-only input to the engine.
type ProjectGroup struct {
	ProjectID   string       `json:"project_id"`
	Name        string       `json:"name"`
	DocumentIDs []string     `json:"document_ids"`
	Hypotheses  []Hypothesis `json:"hypotheses"`
}

// Hypothesis is an unverified claim about a project group. Hypotheses are
// produced externally, consumed exactly once by the verifier and never
// mutated.
//
// LinksTo optionally references another hypothesis, e.g. a resolution
// referencing the challenge it resolves, or a sub-project referencing its
// parent project. Phase is only meaningful for Project hypotheses.
type Hypothesis struct {
	HypothesisID string         `json:"hypothesis_id"`
	ProjectID    string         `json:"project_id"`
	Kind         HypothesisKind `json:"kind"`
	Text         string         `json:"text"`
	EvidenceIDs  []string       `json:"evidence_ids"`
	LinksTo      string         `json:"links_to,omitempty"`
	Phase        string         `json:"phase,omitempty"`
}

// Verdict is the verifier's output for one hypothesis.
//
// Accepted == true implies the hypothesis cited at least one evidence ID and
// every cited ID resolved in the evidence store.
type Verdict struct {
	HypothesisID string  `json:"hypothesis_id"`
	Accepted     bool    `json:"accepted"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason,omitempty"`
	Justification string `json:"justification,omitempty"`
}

// GraphNode is a durable, deduplicated fact. Nodes are created on the first
// accepted hypothesis of a given (kind, canonical text) and afterwards only
// grow: evidence and source-hypothesis lists merge monotonically, entries
// are never removed.
//
// EvidenceIDs preserves first-seen order without duplicates and is always a
// non-empty subset of IDs present in the evidence store.
type GraphNode struct {
	NodeID              string         `json:"id"`
	Kind                HypothesisKind `json:"kind"`
	CanonicalText       string         `json:"text"`
	Phase               string         `json:"phase,omitempty"`
	EvidenceIDs         []string       `json:"evidence_ids"`
	SourceHypothesisIDs []string       `json:"source_hypothesis_ids"`
}

// GraphEdge is a typed relationship between two nodes, deduplicated by
// (from, to, relation). Repeated derivation merges evidence the same way
// node merges do.
type GraphEdge struct {
	FromNode    string   `json:"from"`
	ToNode      string   `json:"to"`
	Relation    Relation `json:"relation"`
	EvidenceIDs []string `json:"evidence_ids"`
}

// RejectedFact pairs a hypothesis with its rejection verdict. Records are
// created once and never mutated or deleted; together they form the
// permanent audit trail of the run.
type RejectedFact struct {
	HypothesisID  string `json:"hypothesis_id"`
	ProjectID     string `json:"project_id"`
	Reason        string `json:"reason"`
	Justification string `json:"justification,omitempty"`
}

// TrustScoreReport is a derived, stateless quality report over a finished
// graph, its rejection ledger and the evidence store. Component scores are
// nil when the data required to compute them was not supplied; the weights
// map records the renormalized weights actually used for the aggregate.
type TrustScoreReport struct {
	TrustScore        float64            `json:"trust_score"`
	Traceability      *float64           `json:"traceability"`
	Completeness      *float64           `json:"completeness"`
	PhaseAccuracy     *float64           `json:"phase_accuracy"`
	AntiHallucination *float64           `json:"anti_hallucination"`
	Weights           map[string]float64 `json:"weights"`
	TotalFacts        int                `json:"total_facts"`
	TraceableFacts    int                `json:"traceable_facts"`
	RejectedFacts     int                `json:"rejected_facts"`
}

// Baseline carries optional ground-truth inputs for the trust scorer.
// ExpectedFactCount <= 0 means no completeness baseline. Phases maps project
// node IDs to their expected phase; an empty map means no phase ground
// truth.
type Baseline struct {
	ExpectedFactCount int               `json:"expected_fact_count,omitempty"`
	Phases            map[string]string `json:"phases,omitempty"`
}
