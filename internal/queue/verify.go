package queue

import (
	"context"
	"encoding/json"
	"fmt"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sieve-kg/sieve/internal/storage"
	"github.com/sieve-kg/sieve/internal/util"
	"github.com/sieve-kg/sieve/pkg/common"
	"github.com/sieve-kg/sieve/pkg/evidence"
	"github.com/sieve-kg/sieve/pkg/input"
	"github.com/sieve-kg/sieve/pkg/leaselock"
	"github.com/sieve-kg/sieve/pkg/logger"
	"github.com/sieve-kg/sieve/pkg/oracle"
	"github.com/sieve-kg/sieve/pkg/pipeline"
	runpgx "github.com/sieve-kg/sieve/pkg/store/pgx"
	"github.com/sieve-kg/sieve/pkg/verify"
)

// VerifyRunMsg is the payload of a verify_queue job. Keys reference objects
// in the configured S3 bucket; artifacts land under OutputPrefix.
type VerifyRunMsg struct {
	Message      string `json:"message"`
	InputKey     string `json:"input_key"`
	EvidenceKey  string `json:"evidence_key"`
	BaselineKey  string `json:"baseline_key,omitempty"`
	OutputPrefix string `json:"output_prefix"`
}

// ProcessVerifyMessage runs one queued verification job end to end:
// download the hypothesis and evidence inputs, run the pipeline, upload the
// three artifacts. A returned error sends the message to the retry queue.
func ProcessVerifyMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	oracleClient oracle.Client,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(VerifyRunMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("failed to parse verify message: %w", err)
	}
	if data.InputKey == "" || data.EvidenceKey == "" || data.OutputPrefix == "" {
		return fmt.Errorf("verify message missing input_key, evidence_key or output_prefix")
	}

	// A redelivered message must not process the same run twice at once.
	if conn != nil {
		locks := leaselock.New(conn)
		return locks.WithLease(ctx, "verify:"+data.OutputPrefix, leaselock.Options{}, func(ctx context.Context) error {
			return processVerifyRun(ctx, s3Client, oracleClient, conn, data)
		})
	}
	return processVerifyRun(ctx, s3Client, oracleClient, conn, data)
}

func processVerifyRun(
	ctx context.Context,
	s3Client *awss3.Client,
	oracleClient oracle.Client,
	conn *pgxpool.Pool,
	data *VerifyRunMsg,
) error {
	evidenceData, err := storage.GetFile(ctx, s3Client, data.EvidenceKey)
	if err != nil {
		return err
	}
	store, err := evidence.Parse(evidenceData)
	if err != nil {
		return err
	}

	inputData, err := storage.GetFile(ctx, s3Client, data.InputKey)
	if err != nil {
		return err
	}
	runInput, err := input.Parse(inputData)
	if err != nil {
		return err
	}

	var baseline *common.Baseline
	if data.BaselineKey != "" {
		baselineData, err := storage.GetFile(ctx, s3Client, data.BaselineKey)
		if err != nil {
			return err
		}
		baseline, err = input.ParseBaseline(baselineData)
		if err != nil {
			return err
		}
	}

	verifier, err := verify.NewVerifier(verify.NewVerifierParams{
		Store:  store,
		Oracle: oracleClient,
	})
	if err != nil {
		return err
	}
	p, err := pipeline.NewPipeline(pipeline.NewPipelineParams{
		Store:            store,
		Verifier:         verifier,
		ParallelProjects: int(util.GetEnvNumeric("PARALLEL_PROJECTS", 8)),
	})
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, runInput, baseline)
	if err != nil {
		return err
	}

	artifacts, err := pipeline.MarshalArtifacts(result)
	if err != nil {
		return err
	}
	for name, payload := range artifacts {
		key, err := storage.PutJSON(ctx, s3Client, data.OutputPrefix, name, payload)
		if err != nil {
			return err
		}
		logger.Debug("[Queue] Uploaded artifact", "run_id", result.RunID, "key", key)
	}

	if conn != nil {
		runStore := runpgx.NewRunDBStorageWithConnection(conn)
		if err := runStore.SaveRun(ctx, result); err != nil {
			logger.Error("[Queue] Failed to persist run", "run_id", result.RunID, "err", err)
		}
	}

	logger.Info("[Queue] Verify run completed",
		"run_id", result.RunID,
		"nodes", result.Graph.Stats.NodeCount,
		"edges", result.Graph.Stats.EdgeCount,
		"rejections", len(result.Rejections))
	return nil
}
