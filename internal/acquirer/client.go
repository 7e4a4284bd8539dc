package acquirer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	acquirertypes "github.com/brpay/pix-gateway/internal/core/datamodel/acquirer"
	"github.com/shopspring/decimal"
)

type SettlementJob struct {
	ChargeID string
	TxID     string
	Amount   decimal.Decimal
}

type Worker struct {
	ID         int
	WorkerPool chan chan SettlementJob
	JobChannel chan SettlementJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan SettlementJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan SettlementJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(SettlementJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {

			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing job", "worker_id", w.ID, "charge_id", job.ChargeID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Client registers PIX charges with the acquirer. When simulation is enabled
// it also drives a background worker pool that settles charges after a short
// delay by posting a signed callback to our own webhook endpoint, which lets
// the full settlement path run without a real acquirer.
type Client struct {
	apiURL         string
	apiKey         string
	webhookURL     string
	webhookSecret  string
	requestTimeout time.Duration
	simulate       bool
	logger         *slog.Logger

	jobQueue   chan SettlementJob
	workerPool chan chan SettlementJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type Config struct {
	APIURL         string
	APIKey         string
	WebhookURL     string
	WebhookSecret  string
	RequestTimeout time.Duration
	MaxWorkers     int
	JobQueueSize   int
	Simulate       bool
}

func NewClient(config Config, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	client := &Client{
		apiURL:         config.APIURL,
		apiKey:         config.APIKey,
		webhookURL:     config.WebhookURL,
		webhookSecret:  config.WebhookSecret,
		requestTimeout: config.RequestTimeout,
		simulate:       config.Simulate,
		logger:         logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan SettlementJob, jobQueueSize),
		workerPool: make(chan chan SettlementJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	if client.simulate {
		client.startWorkerPool()
	}

	return client
}

func (c *Client) startWorkerPool() {
	c.once.Do(func() {

		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.processSettlementJob)
		}

		c.wg.Add(1)
		go c.dispatch()

		c.logger.Info("acquirer settlement simulator started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

func (c *Client) dispatch() {
	defer c.wg.Done()

	for {
		select {
		case job := <-c.jobQueue:

			select {
			case jobChannel := <-c.workerPool:

				select {
				case jobChannel <- job:

				case <-c.ctx.Done():
					c.logger.Info("dispatcher shutting down")
					return
				}
			case <-c.ctx.Done():
				c.logger.Info("dispatcher shutting down")
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("dispatcher shutting down")
			return
		}
	}
}

func (c *Client) Shutdown() {
	c.logger.Info("shutting down acquirer client")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("acquirer client shutdown complete")
}

// CreateCharge registers a cob with the acquirer and returns its txid plus
// the BR Code the payer scans. When the acquirer is unreachable in simulation
// mode, a local txid is issued and settlement happens through the simulator.
func (c *Client) CreateCharge(ctx context.Context, chargeID string, amount decimal.Decimal, expiresAt time.Time) (string, string, error) {
	req := &acquirertypes.ChargeRequest{
		ChargeID:  chargeID,
		Amount:    amount,
		Currency:  "BRL",
		ExpiresAt: expiresAt,
	}
	if err := req.Validate(); err != nil {
		c.logger.Error("charge request validation failed", "error", err)
		return "", "", fmt.Errorf("validation error: %w", err)
	}

	txid, brCode, err := c.registerCharge(ctx, req)
	if err != nil {
		if !c.simulate {
			return "", "", err
		}
		c.logger.Warn("charge registration failed, issuing local txid",
			"charge_id", chargeID,
			"error", err)
		txid = fmt.Sprintf("pixsim_%s", strings.ReplaceAll(chargeID, "-", ""))
		brCode = buildBRCode(txid, amount)
	}

	if c.simulate {
		job := SettlementJob{ChargeID: chargeID, TxID: txid, Amount: amount}

		select {
		case c.jobQueue <- job:
			c.logger.Info("settlement simulation queued",
				"charge_id", chargeID,
				"txid", txid,
				"queue_length", len(c.jobQueue))
		default:
			c.logger.Warn("simulation queue full, charge will stay pending until expiry",
				"charge_id", chargeID,
				"queue_capacity", cap(c.jobQueue))
		}
	}

	return txid, brCode, nil
}

func (c *Client) registerCharge(ctx context.Context, req *acquirertypes.ChargeRequest) (string, string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal charge request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, "POST", c.apiURL+"/v1/charges", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	client := &http.Client{Timeout: c.requestTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", fmt.Errorf("acquirer API returned status %d", resp.StatusCode)
	}

	var apiResponse acquirertypes.ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", "", fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info("charge registered with acquirer",
		"charge_id", req.ChargeID,
		"txid", apiResponse.Data.TxID,
		"status", apiResponse.Data.Status)

	return apiResponse.Data.TxID, apiResponse.Data.BRCode, nil
}

// GetCharge polls the acquirer for a charge's current status.
func (c *Client) GetCharge(ctx context.Context, txid string) (*acquirertypes.ChargeResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1/charges/%s", c.apiURL, txid)
	req, err := http.NewRequestWithContext(reqCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	client := &http.Client{Timeout: c.requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get charge status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("acquirer API returned status %d", resp.StatusCode)
	}

	var apiResponse acquirertypes.ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &apiResponse, nil
}

func (c *Client) processSettlementJob(job SettlementJob) {
	c.logger.Info("simulating settlement", "charge_id", job.ChargeID, "txid", job.TxID)

	delay := time.Duration(1+rand.Intn(4)) * time.Second

	select {
	case <-time.After(delay):

	case <-c.ctx.Done():
		c.logger.Info("settlement job cancelled", "charge_id", job.ChargeID)
		return
	}

	status := acquirertypes.WebhookStatusConfirmed
	failureReason := ""
	if rand.Float32() >= 0.9 {
		status = acquirertypes.WebhookStatusFailed
		failureReason = "payer rejected charge"
	}

	c.sendWebhookCallback(job.TxID, status, job.Amount, failureReason)
}

func (c *Client) sendWebhookCallback(txid, status string, amount decimal.Decimal, failureReason string) {

	select {
	case <-c.ctx.Done():
		c.logger.Info("webhook callback cancelled", "txid", txid)
		return
	default:

	}

	payload := acquirertypes.WebhookPayload{
		TxID:          txid,
		Status:        status,
		Amount:        amount,
		FailureReason: failureReason,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("simulation: failed to marshal callback", "error", err)
		return
	}

	c.logger.Info("simulation: sending webhook callback",
		"txid", txid,
		"status", status,
		"webhook_url", c.webhookURL)

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		c.logger.Error("simulation: failed to create webhook request",
			"error", err,
			"txid", txid)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, SignPayload(jsonData, c.webhookSecret))

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		c.logger.Error("simulation: webhook callback failed",
			"error", err,
			"txid", txid)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		c.logger.Info("simulation: webhook callback delivered",
			"txid", txid,
			"status_code", resp.StatusCode)
	} else {
		c.logger.Warn("simulation: webhook callback error",
			"txid", txid,
			"status_code", resp.StatusCode)
	}
}

// buildBRCode assembles a minimal static EMV payload for locally issued
// charges. Real BR Codes come from the acquirer.
func buildBRCode(txid string, amount decimal.Decimal) string {
	merchant := "br.gov.bcb.pix"
	value := amount.StringFixed(2)
	return fmt.Sprintf("00020126%02d0014%s52040000530398654%02d%s5802BR62%02d05%02d%s6304",
		len(merchant)+18, merchant, len(value), value, len(txid)+9, len(txid), txid)
}
