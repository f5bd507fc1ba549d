package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sieve-kg/sieve/internal/queue"
	"github.com/sieve-kg/sieve/internal/util"
	"github.com/sieve-kg/sieve/pkg/evidence"
	"github.com/sieve-kg/sieve/pkg/input"
	"github.com/sieve-kg/sieve/pkg/logger"
	"github.com/sieve-kg/sieve/pkg/logger/console"
	"github.com/sieve-kg/sieve/pkg/oracle"
	ooracle "github.com/sieve-kg/sieve/pkg/oracle/ollama"
	goracle "github.com/sieve-kg/sieve/pkg/oracle/openai"
	"github.com/sieve-kg/sieve/pkg/pipeline"
	runpgx "github.com/sieve-kg/sieve/pkg/store/pgx"
	"github.com/sieve-kg/sieve/pkg/verify"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	inputPath := flag.String("input", "", "Path to the hypothesis input file")
	evidencePath := flag.String("evidence", "", "Path to the evidence store file")
	baselinePath := flag.String("baseline", "", "Optional path to a ground-truth baseline file")
	outputDir := flag.String("output", "out", "Directory the run artifacts are written to")
	parallel := flag.Int("parallel", int(util.GetEnvNumeric("PARALLEL_PROJECTS", 8)), "Maximum projects processed concurrently")
	enqueue := flag.Bool("enqueue", false, "Publish a verify job to the worker queue instead of running locally")
	inputKey := flag.String("input-key", "", "S3 key of the hypothesis input (with -enqueue)")
	evidenceKey := flag.String("evidence-key", "", "S3 key of the evidence store (with -enqueue)")
	baselineKey := flag.String("baseline-key", "", "Optional S3 key of the baseline (with -enqueue)")
	outputPrefix := flag.String("output-prefix", "", "S3 prefix for the artifacts (with -enqueue)")
	listRuns := flag.Bool("list-runs", false, "List persisted runs and exit")
	showRun := flag.String("show-run", "", "Show one persisted run with its rejection counts and exit")
	flag.Parse()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listRuns || *showRun != "" {
		queryRuns(ctx, *showRun)
		return
	}

	if *enqueue {
		enqueueRun(*inputKey, *evidenceKey, *baselineKey, *outputPrefix)
		return
	}

	if *inputPath == "" || *evidencePath == "" {
		logger.Fatal("Both -input and -evidence are required")
	}

	store, err := evidence.LoadFile(*evidencePath)
	if err != nil {
		logger.Fatal("Failed to load evidence store", "err", err)
	}
	runInput, err := input.LoadFile(*inputPath)
	if err != nil {
		logger.Fatal("Failed to load run input", "err", err)
	}
	baseline, err := input.LoadBaseline(*baselinePath)
	if err != nil {
		logger.Fatal("Failed to load baseline", "err", err)
	}

	oracleClient := newOracleClient()

	verifier, err := verify.NewVerifier(verify.NewVerifierParams{
		Store:  store,
		Oracle: oracleClient,
	})
	if err != nil {
		logger.Fatal("Failed to create verifier", "err", err)
	}
	p, err := pipeline.NewPipeline(pipeline.NewPipelineParams{
		Store:            store,
		Verifier:         verifier,
		ParallelProjects: *parallel,
	})
	if err != nil {
		logger.Fatal("Failed to create pipeline", "err", err)
	}

	result, err := p.Run(ctx, runInput, baseline)
	if err != nil {
		logger.Fatal("Run failed", "err", err)
	}

	if err := pipeline.WriteArtifacts(result, *outputDir); err != nil {
		logger.Fatal("Failed to write artifacts", "err", err)
	}

	persistRun(ctx, result)

	metrics := oracleClient.GetMetrics()
	logger.Info("Oracle metrics",
		"calls", metrics.Calls,
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"duration_ms", metrics.DurationMs)
	logger.Info("Artifacts written", "run_id", result.RunID, "output", *outputDir)
}

// newOracleClient builds the oracle backend selected by ORACLE_ADAPTER.
func newOracleClient() oracle.Client {
	adapter := util.GetEnv("ORACLE_ADAPTER")
	switch adapter {
	case "ollama":
		client, err := ooracle.NewOracleClient(ooracle.NewOracleClientParams{
			Model:   util.GetEnv("ORACLE_MODEL"),
			BaseURL: util.GetEnv("ORACLE_URL"),
			ApiKey:  util.GetEnv("ORACLE_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("ORACLE_MAX_CONCURRENT", 1)),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama oracle client", "err", err)
		}
		return client
	default:
		return goracle.NewOracleClient(goracle.NewOracleClientParams{
			Model:   util.GetEnv("ORACLE_MODEL"),
			BaseURL: util.GetEnv("ORACLE_URL"),
			ApiKey:  util.GetEnv("ORACLE_KEY"),
		})
	}
}

// persistRun saves the run to Postgres when DATABASE_URL is configured.
func persistRun(ctx context.Context, result *pipeline.RunResult) {
	databaseURL := util.GetEnv("DATABASE_URL")
	if databaseURL == "" {
		return
	}

	if err := runpgx.Migrate(databaseURL); err != nil {
		logger.Error("Failed to apply migrations", "err", err)
		return
	}

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "err", err)
		return
	}
	defer conn.Close()

	runStore := runpgx.NewRunDBStorageWithConnection(conn)
	if err := runStore.SaveRun(ctx, result); err != nil {
		logger.Error("Failed to persist run", "run_id", result.RunID, "err", err)
		return
	}
	logger.Info("Run persisted", "run_id", result.RunID)
}

// queryRuns lists persisted runs, or shows one run with its per-reason
// rejection counts when runID is set.
func queryRuns(ctx context.Context, runID string) {
	databaseURL := util.GetEnv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL is required to query persisted runs")
	}
	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()
	runStore := runpgx.NewRunDBStorageWithConnection(conn)

	if runID != "" {
		summary, err := runStore.GetRun(ctx, runID)
		if err != nil {
			logger.Fatal("Failed to load run", "err", err)
		}
		counts, err := runStore.CountRejectionsByReason(ctx, runID)
		if err != nil {
			logger.Fatal("Failed to count rejections", "err", err)
		}
		logger.Info("Run",
			"run_id", summary.RunID,
			"created_at", summary.CreatedAt,
			"nodes", summary.NodeCount,
			"edges", summary.EdgeCount,
			"rejections", summary.RejectionCount,
			"trust_score", summary.TrustScore)
		for reason, count := range counts {
			logger.Info("Rejections", "reason", reason, "count", count)
		}
		return
	}

	summaries, err := runStore.ListRuns(ctx, 0)
	if err != nil {
		logger.Fatal("Failed to list runs", "err", err)
	}
	for _, summary := range summaries {
		logger.Info("Run",
			"run_id", summary.RunID,
			"created_at", summary.CreatedAt,
			"nodes", summary.NodeCount,
			"edges", summary.EdgeCount,
			"rejections", summary.RejectionCount,
			"trust_score", summary.TrustScore)
	}
	logger.Info("Runs listed", "count", len(summaries))
}

// enqueueRun publishes a verify job for the worker instead of running the
// pipeline in-process.
func enqueueRun(inputKey, evidenceKey, baselineKey, outputPrefix string) {
	if inputKey == "" || evidenceKey == "" || outputPrefix == "" {
		logger.Fatal("-enqueue requires -input-key, -evidence-key and -output-prefix")
	}

	msg := queue.VerifyRunMsg{
		Message:      "Queued verify run",
		InputKey:     inputKey,
		EvidenceKey:  evidenceKey,
		BaselineKey:  baselineKey,
		OutputPrefix: outputPrefix,
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		logger.Fatal("Failed to marshal verify message", "err", err)
	}

	conn := queue.Init()
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.VerifyQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}
	if err := queue.PublishFIFO(ch, queue.VerifyQueue, msgBytes); err != nil {
		logger.Fatal("Failed to publish verify job", "err", err)
	}
	logger.Info("Verify job published", "queue", queue.VerifyQueue, "input_key", inputKey)
}
