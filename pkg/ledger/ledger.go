package ledger

import (
	"sync"

	"github.com/sieve-kg/sieve/pkg/common"
)

// Ledger is the append-only record of every non-accepted hypothesis of a
// run. Entries are keyed by hypothesis ID; re-recording the same ID is a
// no-op so retried pipeline runs stay tolerant. There is no deletion or
// mutation operation.
type Ledger struct {
	mu      sync.Mutex
	entries []common.RejectedFact
	seen    map[string]struct{}
}

func New() *Ledger {
	return &Ledger{
		seen: make(map[string]struct{}),
	}
}

// Record appends one rejection. The verdict's reason is required; when a
// substantive justification exists it is carried alongside for audit.
func (l *Ledger) Record(hypothesis common.Hypothesis, verdict common.Verdict) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[hypothesis.HypothesisID]; ok {
		return
	}
	l.seen[hypothesis.HypothesisID] = struct{}{}
	l.entries = append(l.entries, common.RejectedFact{
		HypothesisID:  hypothesis.HypothesisID,
		ProjectID:     hypothesis.ProjectID,
		Reason:        verdict.Reason,
		Justification: verdict.Justification,
	})
}

// RecordFact appends an already-shaped rejection, used for records produced
// before verification, e.g. malformed input rejected at the boundary.
func (l *Ledger) RecordFact(fact common.RejectedFact) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[fact.HypothesisID]; ok {
		return
	}
	l.seen[fact.HypothesisID] = struct{}{}
	l.entries = append(l.entries, fact)
}

// ByReason counts ledger entries per rejection reason.
func (l *Ledger) ByReason() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[string]int)
	for _, entry := range l.entries {
		counts[entry.Reason]++
	}
	return counts
}

// All returns the entries in recording order, for audit export.
func (l *Ledger) All() []common.RejectedFact {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]common.RejectedFact, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// Len reports the number of recorded rejections.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
