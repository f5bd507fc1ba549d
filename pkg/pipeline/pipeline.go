package pipeline

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sieve-kg/sieve/pkg/common"
	"github.com/sieve-kg/sieve/pkg/evidence"
	"github.com/sieve-kg/sieve/pkg/graph"
	"github.com/sieve-kg/sieve/pkg/input"
	"github.com/sieve-kg/sieve/pkg/ledger"
	"github.com/sieve-kg/sieve/pkg/logger"
	"github.com/sieve-kg/sieve/pkg/trust"
	"github.com/sieve-kg/sieve/pkg/verify"
)

const defaultParallelProjects = 8

// Pipeline orchestrates one run: it verifies every hypothesis, routes
// accepted ones into the graph and rejected ones into the ledger, then
// scores the result.
//
// A Pipeline should be created using NewPipeline.
type Pipeline struct {
	store            evidence.Store
	verifier         *verify.Verifier
	parallelProjects int
}

// NewPipelineParams defines the configuration for creating a Pipeline.
// ParallelProjects bounds how many projects are processed concurrently
// (default 8); this is also the upper bound on in-flight oracle calls,
// since hypotheses within a project are strictly sequential.
type NewPipelineParams struct {
	Store            evidence.Store
	Verifier         *verify.Verifier
	ParallelProjects int
}

func NewPipeline(params NewPipelineParams) (*Pipeline, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("pipeline requires an evidence store")
	}
	if params.Verifier == nil {
		return nil, fmt.Errorf("pipeline requires a verifier")
	}
	parallel := params.ParallelProjects
	if parallel <= 0 {
		parallel = defaultParallelProjects
	}
	return &Pipeline{
		store:            params.Store,
		verifier:         params.Verifier,
		parallelProjects: parallel,
	}, nil
}

// RunResult is the outcome of a completed run: the three export artifacts
// plus the run identifier.
type RunResult struct {
	RunID      string
	Graph      graph.Export
	Rejections []common.RejectedFact
	Trust      common.TrustScoreReport
}

// Run processes all project groups of one input. Hypothesis-level failures
// are recorded in the ledger and never fail the run; Run returns an error
// only when the run as a whole cannot proceed.
func (p *Pipeline) Run(ctx context.Context, runInput *input.RunInput, baseline *common.Baseline) (*RunResult, error) {
	runID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run ID: %w", err)
	}

	g := graph.New()
	l := ledger.New()

	for _, fact := range runInput.Malformed {
		l.RecordFact(fact)
	}

	logger.Info("[Pipeline] Starting run",
		"run_id", runID,
		"projects", len(runInput.Projects),
		"documents", p.store.Len())

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.parallelProjects)
	for _, project := range runInput.Projects {
		pr := project
		eg.Go(func() error {
			return p.processProject(egCtx, pr, g, l)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, link := range g.Dangling() {
		logger.Warn("[Pipeline] Dangling reference, edge skipped",
			"run_id", runID,
			"node_id", link.NodeID,
			"relation", link.Relation,
			"reference", link.Reference)
	}

	export := g.Export()
	report := trust.Score(g, l, p.store, baseline)

	logger.Info("[Pipeline] Run completed",
		"run_id", runID,
		"nodes", export.Stats.NodeCount,
		"edges", export.Stats.EdgeCount,
		"rejections", l.Len(),
		"trust_score", report.TrustScore)

	return &RunResult{
		RunID:      runID,
		Graph:      export,
		Rejections: l.All(),
		Trust:      report,
	}, nil
}

// processProject verifies a project's hypotheses strictly in submission
// order. Sequential processing within a project means a links_to target is
// normally already in the graph when its referrer arrives.
func (p *Pipeline) processProject(ctx context.Context, project common.ProjectGroup, g *graph.Graph, l *ledger.Ledger) error {
	accepted := 0
	for _, hypothesis := range project.Hypotheses {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		verdict := p.verifier.Verify(ctx, hypothesis)
		if !verdict.Accepted {
			l.Record(hypothesis, verdict)
			continue
		}

		if _, err := g.Apply(hypothesis); err != nil {
			logger.Error("[Pipeline] Graph rejected accepted hypothesis",
				"hypothesis_id", hypothesis.HypothesisID, "err", err)
			l.Record(hypothesis, common.Verdict{
				HypothesisID:  hypothesis.HypothesisID,
				Reason:        common.ReasonInvariantViolation,
				Justification: err.Error(),
			})
			continue
		}
		accepted++
	}

	logger.Debug("[Pipeline] Project processed",
		"project_id", project.ProjectID,
		"hypotheses", len(project.Hypotheses),
		"accepted", accepted)
	return nil
}
