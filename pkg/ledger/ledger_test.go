package ledger

import (
	"testing"

	"github.com/sieve-kg/sieve/pkg/common"
)

func TestRecordAndQuery(t *testing.T) {
	l := New()
	l.Record(
		common.Hypothesis{HypothesisID: "h1", ProjectID: "p1"},
		common.Verdict{HypothesisID: "h1", Reason: common.ReasonNoEvidence},
	)
	l.Record(
		common.Hypothesis{HypothesisID: "h2", ProjectID: "p1"},
		common.Verdict{HypothesisID: "h2", Reason: common.ReasonNotSupported, Justification: "not mentioned"},
	)
	l.Record(
		common.Hypothesis{HypothesisID: "h3", ProjectID: "p2"},
		common.Verdict{HypothesisID: "h3", Reason: common.ReasonNoEvidence},
	)

	if l.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", l.Len())
	}

	counts := l.ByReason()
	if counts[common.ReasonNoEvidence] != 2 || counts[common.ReasonNotSupported] != 1 {
		t.Fatalf("unexpected reason counts %v", counts)
	}

	all := l.All()
	if all[0].HypothesisID != "h1" || all[2].HypothesisID != "h3" {
		t.Fatalf("expected recording order to be preserved, got %+v", all)
	}
	if all[1].Justification != "not mentioned" {
		t.Fatalf("expected justification to be carried, got %+v", all[1])
	}
}

func TestRecordIdempotent(t *testing.T) {
	l := New()
	h := common.Hypothesis{HypothesisID: "h1", ProjectID: "p1"}
	l.Record(h, common.Verdict{HypothesisID: "h1", Reason: common.ReasonNoEvidence})
	l.Record(h, common.Verdict{HypothesisID: "h1", Reason: common.ReasonUnavailable})

	if l.Len() != 1 {
		t.Fatalf("expected re-recording to be a no-op, got %d entries", l.Len())
	}
	if l.All()[0].Reason != common.ReasonNoEvidence {
		t.Fatalf("expected the first record to win, got %+v", l.All()[0])
	}
}

func TestRecordFact(t *testing.T) {
	l := New()
	l.RecordFact(common.RejectedFact{
		HypothesisID: "h1",
		ProjectID:    "p1",
		Reason:       common.ReasonMalformedInput,
	})
	l.Record(
		common.Hypothesis{HypothesisID: "h1", ProjectID: "p1"},
		common.Verdict{HypothesisID: "h1", Reason: common.ReasonNoEvidence},
	)

	if l.Len() != 1 {
		t.Fatalf("expected boundary record to dedupe against verdict record, got %d", l.Len())
	}
	if l.All()[0].Reason != common.ReasonMalformedInput {
		t.Fatalf("unexpected entry %+v", l.All()[0])
	}
}
