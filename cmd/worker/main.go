package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sieve-kg/sieve/internal/queue"
	"github.com/sieve-kg/sieve/internal/storage"
	"github.com/sieve-kg/sieve/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sieve-kg/sieve/pkg/logger"
	"github.com/sieve-kg/sieve/pkg/logger/console"
	"github.com/sieve-kg/sieve/pkg/oracle"
	ooracle "github.com/sieve-kg/sieve/pkg/oracle/ollama"
	goracle "github.com/sieve-kg/sieve/pkg/oracle/openai"
	runpgx "github.com/sieve-kg/sieve/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init s3 client
	client := storage.NewS3Client(ctx)

	// Oracle client
	adapter := util.GetEnv("ORACLE_ADAPTER")
	var oracleClient oracle.Client

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
		oracleClient = client
	default:
		oracleClient = goracle.NewOracleClient(goracle.NewOracleClientParams{
			Model:   util.GetEnv("ORACLE_MODEL"),
			BaseURL: util.GetEnv("ORACLE_URL"),
			ApiKey:  util.GetEnv("ORACLE_KEY"),
		})
	}

	// Init pgx client when persistence is configured
	var pgConn *pgxpool.Pool
	if databaseURL := util.GetEnv("DATABASE_URL"); databaseURL != "" {
		if err := runpgx.Migrate(databaseURL); err != nil {
			logger.Fatal("Failed to apply migrations", "err", err)
		}
		conn, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			logger.Fatal("Unable to connect to database", "err", err)
		}
		defer conn.Close()
		pgConn = conn
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.VerifyQueue}
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	logger.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one run is processed
	// at a time; parallelism lives inside the pipeline.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.VerifyQueue,
		fmt.Sprintf("%s_consumer", queue.VerifyQueue),
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.VerifyQueue, "err", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed", "queue", queue.VerifyQueue)
					return
				}

				startTime := time.Now()
				logger.Info("Received message", "queue", queue.VerifyQueue)

				processingErr := queue.ProcessVerifyMessage(ctx, client, oracleClient, pgConn, string(msg.Body))

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", queue.VerifyQueue, "err", processingErr)
					handleProcessingError(consumerCh, msg, queue.VerifyQueue)
				} else {
					err = msg.Ack(false)
					if err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", queue.VerifyQueue)
				}

				metrics := oracleClient.GetMetrics()
				oracleDuration := time.Duration(metrics.DurationMs) * time.Millisecond
				logger.Info(
					"Oracle metrics",
					"calls", metrics.Calls,
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration", formatDuration(oracleDuration),
				)

				logger.Info(
					"Processing time",
					"duration", formatDuration(time.Since(startTime)),
				)
				logger.Info("Waiting for next message")
				oracleClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// If message has been retried 10 times, send to dead-letter
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "text/plain",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "text/plain",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
