package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brpay/pix-gateway/internal/acquirer"
	"github.com/brpay/pix-gateway/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background worker pools",
	Long:  `Start and manage worker pools, currently the acquirer settlement simulator`,
}

var acquirerWorkerCmd = &cobra.Command{
	Use:   "acquirer",
	Short: "Start the acquirer settlement simulator",
	Long:  `Start the settlement simulator worker pool that posts signed callbacks to the gateway webhook`,
	Run: func(cmd *cobra.Command, args []string) {
		startAcquirerWorker()
	},
}

var (
	maxWorkers   int
	jobQueueSize int
	apiURL       string
	apiKey       string
	webhookURL   string
)

func startAcquirerWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logger.LoggerWrapper()

	acquirerConfig := acquirer.Config{
		APIURL:         getStringFlag(apiURL, config.Acquirer.APIURL),
		APIKey:         getStringFlag(apiKey, config.Acquirer.APIKey),
		WebhookURL:     getStringFlag(webhookURL, config.Acquirer.WebhookURL),
		WebhookSecret:  config.Acquirer.WebhookSecret,
		RequestTimeout: config.Acquirer.RequestTimeout,
		MaxWorkers:     getIntFlag(maxWorkers, config.Acquirer.MaxWorkers),
		JobQueueSize:   getIntFlag(jobQueueSize, config.Acquirer.JobQueueSize),
		Simulate:       true,
	}

	logger.Info("starting acquirer worker",
		"max_workers", acquirerConfig.MaxWorkers,
		"job_queue_size", acquirerConfig.JobQueueSize,
		"api_url", acquirerConfig.APIURL,
		"webhook_url", acquirerConfig.WebhookURL)

	client := acquirer.NewClient(acquirerConfig, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("acquirer worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	logger.Info("received signal, shutting down acquirer worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		client.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		logger.Info("acquirer worker pool shutdown complete")
	case <-ctx.Done():
		logger.Warn("shutdown timeout reached, forcing exit")
	}
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	acquirerWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	acquirerWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	acquirerWorkerCmd.Flags().StringVar(&apiURL, "api-url", "", "Acquirer API URL (overrides config)")
	acquirerWorkerCmd.Flags().StringVar(&apiKey, "api-key", "", "Acquirer API key (overrides config)")
	acquirerWorkerCmd.Flags().StringVar(&webhookURL, "webhook-url", "", "Webhook callback URL (overrides config)")

	workerCmd.AddCommand(acquirerWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
