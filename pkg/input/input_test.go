package input

import (
	"testing"

	"github.com/sieve-kg/sieve/pkg/common"
)

func TestParse_ValidRun(t *testing.T) {
	data := []byte(`{
		"projects": [
			{
				"project_id": "proj_1",
				"name": "Website Redesign",
				"document_ids": ["doc_1", "doc_2"],
				"hypotheses": [
					{
						"hypothesis_id": "hyp_1",
						"project_id": "proj_1",
						"kind": "Project",
						"text": "Website Redesign",
						"evidence_ids": ["doc_1"],
						"phase": "Execution"
					},
					{
						"hypothesis_id": "hyp_2",
						"project_id": "proj_1",
						"kind": "Topic",
						"text": "Brand Guidelines",
						"evidence_ids": ["doc_1", "doc_1", "doc_2"]
					}
				]
			}
		]
	}`)

	run, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(run.Projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(run.Projects))
	}
	if len(run.Malformed) != 0 {
		t.Fatalf("expected no malformed records, got %d", len(run.Malformed))
	}

	hyps := run.Projects[0].Hypotheses
	if len(hyps) != 2 {
		t.Fatalf("expected 2 hypotheses, got %d", len(hyps))
	}
	if hyps[0].Phase != "Execution" {
		t.Fatalf("expected phase to survive parsing, got %q", hyps[0].Phase)
	}
	if len(hyps[1].EvidenceIDs) != 2 {
		t.Fatalf("expected duplicate evidence ids collapsed, got %v", hyps[1].EvidenceIDs)
	}
}

func TestParse_MalformedHypothesesDoNotAbortRun(t *testing.T) {
	data := []byte(`{
		"projects": [
			{
				"project_id": "proj_1",
				"name": "Run",
				"document_ids": ["doc_1"],
				"hypotheses": [
					{"hypothesis_id": "hyp_1", "project_id": "proj_1", "kind": "Rumor", "text": "x"},
					{"hypothesis_id": "hyp_2", "project_id": "proj_1", "kind": "Topic"},
					{"hypothesis_id": "hyp_3", "project_id": "proj_other", "kind": "Topic", "text": "y"},
					{"hypothesis_id": "hyp_4", "project_id": "proj_1", "kind": "Topic", "text": "ok", "evidence_ids": ["doc_1"]}
				]
			}
		]
	}`)

	run, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(run.Malformed) != 3 {
		t.Fatalf("expected 3 malformed records, got %d", len(run.Malformed))
	}
	for _, m := range run.Malformed {
		if m.Reason != common.ReasonMalformedInput {
			t.Fatalf("expected reason %q, got %q", common.ReasonMalformedInput, m.Reason)
		}
	}
	if len(run.Projects[0].Hypotheses) != 1 {
		t.Fatalf("expected 1 valid hypothesis, got %d", len(run.Projects[0].Hypotheses))
	}
}

func TestParse_PhaseOnNonProjectIsMalformed(t *testing.T) {
	data := []byte(`{
		"projects": [
			{
				"project_id": "proj_1",
				"document_ids": ["doc_1"],
				"hypotheses": [
					{"hypothesis_id": "hyp_1", "project_id": "proj_1", "kind": "Topic", "text": "t", "phase": "Planning"}
				]
			}
		]
	}`)

	run, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(run.Malformed) != 1 {
		t.Fatalf("expected 1 malformed record, got %d", len(run.Malformed))
	}
}

func TestParse_InvalidProjectGroupIsFatal(t *testing.T) {
	data := []byte(`{"projects": [{"project_id": "proj_1", "document_ids": []}]}`)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected error for project group without documents")
	}
}

func TestParse_EmptyRunIsValid(t *testing.T) {
	run, err := Parse([]byte(`{"projects": []}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(run.Projects) != 0 || len(run.Malformed) != 0 {
		t.Fatalf("expected an empty run, got %+v", run)
	}
}
