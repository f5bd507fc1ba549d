package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sieve-kg/sieve/internal/util"
	"github.com/sieve-kg/sieve/pkg/common"
	"github.com/sieve-kg/sieve/pkg/evidence"
	"github.com/sieve-kg/sieve/pkg/logger"
	"github.com/sieve-kg/sieve/pkg/oracle"
)

// Verifier checks hypotheses against their cited evidence through the
// oracle. It never mutates the graph or ledger; it only produces verdicts
// for the orchestrator to route.
//
// A Verifier should be created using NewVerifier.
type Verifier struct {
	store  evidence.Store
	oracle oracle.Client

	callTimeout       time.Duration
	maxRetries        int
	backoffBase       time.Duration
	maxEvidenceTokens int
	tokenEncoder      string
}

// NewVerifierParams defines the configuration for creating a Verifier.
//
// CallTimeout bounds each oracle call (default 30s). MaxRetries is the
// number of retries after the first failed attempt (default 2); a negative
// value disables retries entirely. Backoff between retries is exponential
// starting at BackoffBase (default 1s).
// MaxEvidenceTokens caps each evidence document sent to the oracle
// (default 512, encoder o200k_base).
type NewVerifierParams struct {
	Store  evidence.Store
	Oracle oracle.Client

	CallTimeout       time.Duration
	MaxRetries        int
	BackoffBase       time.Duration
	MaxEvidenceTokens int
	TokenEncoder      string
}

// NewVerifier creates a Verifier with the provided configuration.
func NewVerifier(params NewVerifierParams) (*Verifier, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("verifier requires an evidence store")
	}
	if params.Oracle == nil {
		return nil, fmt.Errorf("verifier requires an oracle client")
	}

	v := &Verifier{
		store:             params.Store,
		oracle:            params.Oracle,
		callTimeout:       params.CallTimeout,
		maxRetries:        params.MaxRetries,
		backoffBase:       params.BackoffBase,
		maxEvidenceTokens: params.MaxEvidenceTokens,
		tokenEncoder:      params.TokenEncoder,
	}
	if v.callTimeout <= 0 {
		v.callTimeout = 30 * time.Second
	}
	if v.maxRetries < 0 {
		v.maxRetries = 0
	} else if v.maxRetries == 0 {
		v.maxRetries = 2
	}
	if v.backoffBase <= 0 {
		v.backoffBase = time.Second
	}
	if v.maxEvidenceTokens <= 0 {
		v.maxEvidenceTokens = 512
	}
	if v.tokenEncoder == "" {
		v.tokenEncoder = "o200k_base"
	}
	return v, nil
}

// Verify produces a verdict for one hypothesis.
//
// Hypotheses without evidence are rejected without consulting the oracle.
// Unresolvable evidence IDs reject with evidence_not_found. Oracle failures
// are retried with backoff and, once exhausted, fall back to the
// conservative verification_unavailable rejection: an unverifiable fact
// never enters the graph.
func (v *Verifier) Verify(ctx context.Context, hypothesis common.Hypothesis) common.Verdict {
	verdict := common.Verdict{
		HypothesisID: hypothesis.HypothesisID,
	}

	if len(hypothesis.EvidenceIDs) == 0 {
		verdict.Reason = common.ReasonNoEvidence
		return verdict
	}

	docs := make([]*common.Document, 0, len(hypothesis.EvidenceIDs))
	var missing []string
	for _, id := range hypothesis.EvidenceIDs {
		doc, ok := v.store.Resolve(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		docs = append(docs, doc)
	}
	if len(missing) > 0 {
		verdict.Reason = common.ReasonEvidenceNotFound
		verdict.Justification = fmt.Sprintf("unresolved evidence ids: %s", strings.Join(missing, ", "))
		return verdict
	}

	evidenceTexts, err := v.buildEvidenceTexts(docs)
	if err != nil {
		verdict.Reason = common.ReasonUnavailable
		verdict.Justification = err.Error()
		return verdict
	}

	judgment, err := util.RetryWithBackoff(ctx, v.maxRetries+1, v.backoffBase, func(ctx context.Context) (*oracle.Judgment, error) {
		callCtx, cancel := context.WithTimeout(ctx, v.callTimeout)
		defer cancel()
		return v.oracle.Ask(callCtx, hypothesis.Text, evidenceTexts)
	})
	if err != nil {
		logger.Warn("[Verify] Oracle unavailable, rejecting conservatively",
			"hypothesis_id", hypothesis.HypothesisID, "err", err)
		verdict.Reason = common.ReasonUnavailable
		verdict.Justification = err.Error()
		return verdict
	}

	verdict.Accepted = judgment.Supported
	verdict.Confidence = judgment.Confidence
	verdict.Justification = judgment.Justification
	if judgment.Supported {
		if verdict.Confidence == 0 {
			verdict.Confidence = 1.0
		}
	} else {
		verdict.Reason = common.ReasonNotSupported
	}

	return verdict
}

// buildEvidenceTexts renders resolved documents as labeled, token-capped
// prompt blocks, preserving the citation order.
func (v *Verifier) buildEvidenceTexts(docs []*common.Document) ([]string, error) {
	enc, err := tiktoken.GetEncoding(v.tokenEncoder)
	if err != nil {
		return nil, fmt.Errorf("failed to load token encoder: %w", err)
	}

	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		text := doc.Text
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) > v.maxEvidenceTokens {
			text = enc.Decode(tokens[:v.maxEvidenceTokens])
		}
		texts = append(texts, fmt.Sprintf("Document %s:\n%s", doc.ID, text))
	}
	return texts, nil
}
