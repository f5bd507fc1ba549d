package input

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator"

	"github.com/sieve-kg/sieve/pkg/common"
)

// RunInput is one pipeline run: the project groups with their hypothesis
// queues, in submission order, plus the hypotheses that failed schema
// validation at the boundary. Malformed records never abort the run; they
// are routed straight to the rejection ledger.
type RunInput struct {
	Projects  []common.ProjectGroup
	Malformed []common.RejectedFact
}

type runDocument struct {
	Projects []projectRecord `json:"projects"`
}

type projectRecord struct {
	ProjectID   string             `json:"project_id" validate:"required"`
	Name        string             `json:"name"`
	DocumentIDs []string           `json:"document_ids" validate:"required,min=1"`
	Hypotheses  []hypothesisRecord `json:"hypotheses"`
}

type hypothesisRecord struct {
	HypothesisID string   `json:"hypothesis_id" validate:"required"`
	ProjectID    string   `json:"project_id" validate:"required"`
	Kind         string   `json:"kind" validate:"required"`
	Text         string   `json:"text" validate:"required"`
	EvidenceIDs  []string `json:"evidence_ids"`
	LinksTo      string   `json:"links_to"`
	Phase        string   `json:"phase"`
}

var validate = validator.New()

// Parse decodes and validates a run document. A top-level decode failure or
// an invalid project group is an infrastructure error; an invalid hypothesis
// is recorded in Malformed and the rest of the run continues. A document
// with no projects is a valid empty run.
func Parse(data []byte) (*RunInput, error) {
	var doc runDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse run input: %w", err)
	}

	run := &RunInput{}
	for i, p := range doc.Projects {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("invalid project group %d (%s): %w", i, p.ProjectID, err)
		}

		group := common.ProjectGroup{
			ProjectID:   p.ProjectID,
			Name:        p.Name,
			DocumentIDs: p.DocumentIDs,
		}
		for _, h := range p.Hypotheses {
			hyp, reason := buildHypothesis(h, p.ProjectID)
			if reason != "" {
				run.Malformed = append(run.Malformed, common.RejectedFact{
					HypothesisID:  h.HypothesisID,
					ProjectID:     p.ProjectID,
					Reason:        common.ReasonMalformedInput,
					Justification: reason,
				})
				continue
			}
			group.Hypotheses = append(group.Hypotheses, *hyp)
		}
		run.Projects = append(run.Projects, group)
	}

	return run, nil
}

// LoadFile reads a run document from disk.
func LoadFile(path string) (*RunInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run input %s: %w", path, err)
	}
	return Parse(data)
}

func buildHypothesis(h hypothesisRecord, projectID string) (*common.Hypothesis, string) {
	if err := validate.Struct(h); err != nil {
		return nil, fmt.Sprintf("missing required fields: %v", err)
	}
	kind := common.HypothesisKind(h.Kind)
	if !common.ValidKind(kind) {
		return nil, fmt.Sprintf("unknown kind %q", h.Kind)
	}
	if h.ProjectID != projectID {
		return nil, fmt.Sprintf("hypothesis project_id %q does not match group %q", h.ProjectID, projectID)
	}
	if h.Phase != "" && kind != common.KindProject {
		return nil, fmt.Sprintf("phase is only valid on Project hypotheses, found on %s", h.Kind)
	}

	return &common.Hypothesis{
		HypothesisID: h.HypothesisID,
		ProjectID:    h.ProjectID,
		Kind:         kind,
		Text:         h.Text,
		EvidenceIDs:  dedupeIDs(h.EvidenceIDs),
		LinksTo:      h.LinksTo,
		Phase:        h.Phase,
	}, ""
}

// dedupeIDs removes duplicate evidence references while preserving the
// citation order.
func dedupeIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// LoadBaseline reads an optional ground-truth baseline. An empty path means
// no baseline was supplied.
func LoadBaseline(path string) (*common.Baseline, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline %s: %w", path, err)
	}
	return ParseBaseline(data)
}

// ParseBaseline decodes a ground-truth baseline document.
func ParseBaseline(data []byte) (*common.Baseline, error) {
	var baseline common.Baseline
	if err := json.Unmarshal(data, &baseline); err != nil {
		return nil, fmt.Errorf("failed to parse baseline: %w", err)
	}
	return &baseline, nil
}
