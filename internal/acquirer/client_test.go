package acquirer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	acquirertypes "github.com/brpay/pix-gateway/internal/core/datamodel/acquirer"
	"github.com/brpay/pix-gateway/pkg/logger"
)

var _ = ginkgo.Describe("Acquirer client", func() {
	var lg = logger.LoggerWrapper()

	ginkgo.Describe("CreateCharge", func() {
		ginkgo.It("registers the charge and returns the acquirer txid and BR Code", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gomega.Expect(r.Method).To(gomega.Equal("POST"))
				gomega.Expect(r.URL.Path).To(gomega.Equal("/v1/charges"))
				gomega.Expect(r.Header.Get("Authorization")).To(gomega.Equal("Bearer test-key"))

				var req acquirertypes.ChargeRequest
				gomega.Expect(json.NewDecoder(r.Body).Decode(&req)).To(gomega.Succeed())
				gomega.Expect(req.Currency).To(gomega.Equal("BRL"))

				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(acquirertypes.ChargeResponse{
					Data: acquirertypes.ChargeData{
						TxID:   "E12345678202608301200abcdef",
						BRCode: "00020126580014br.gov.bcb.pix",
						Status: "ATIVA",
					},
				})
			}))
			defer server.Close()

			client := NewClient(Config{
				APIURL:         server.URL,
				APIKey:         "test-key",
				RequestTimeout: 2 * time.Second,
			}, lg)
			defer client.Shutdown()

			txid, brCode, err := client.CreateCharge(context.Background(), "e3b0c442-0000-4000-8000-000000000001", decimal.RequireFromString("150.00"), time.Now().Add(time.Hour))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(txid).To(gomega.Equal("E12345678202608301200abcdef"))
			gomega.Expect(brCode).To(gomega.Equal("00020126580014br.gov.bcb.pix"))
		})

		ginkgo.It("fails when the acquirer rejects the charge and simulation is off", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer server.Close()

			client := NewClient(Config{
				APIURL:         server.URL,
				RequestTimeout: 2 * time.Second,
			}, lg)
			defer client.Shutdown()

			_, _, err := client.CreateCharge(context.Background(), "e3b0c442-0000-4000-8000-000000000002", decimal.RequireFromString("10.00"), time.Now().Add(time.Hour))

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("status 502"))
		})

		ginkgo.It("issues a local txid when the acquirer is unreachable in simulation mode", func() {
			client := NewClient(Config{
				APIURL:         "http://127.0.0.1:1",
				RequestTimeout: 200 * time.Millisecond,
				Simulate:       true,
				MaxWorkers:     1,
				JobQueueSize:   1,
			}, lg)
			defer client.Shutdown()

			chargeID := "e3b0c442-0000-4000-8000-000000000003"
			txid, brCode, err := client.CreateCharge(context.Background(), chargeID, decimal.RequireFromString("49.90"), time.Now().Add(time.Hour))

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(txid).To(gomega.Equal("pixsim_" + strings.ReplaceAll(chargeID, "-", "")))
			gomega.Expect(brCode).To(gomega.ContainSubstring("br.gov.bcb.pix"))
			gomega.Expect(brCode).To(gomega.ContainSubstring(txid))
		})

		ginkgo.It("rejects an invalid charge request before calling the acquirer", func() {
			client := NewClient(Config{
				APIURL:         "http://127.0.0.1:1",
				RequestTimeout: time.Second,
			}, lg)
			defer client.Shutdown()

			_, _, err := client.CreateCharge(context.Background(), "", decimal.Zero, time.Now().Add(time.Hour))

			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("validation"))
		})
	})

	ginkgo.Describe("GetCharge", func() {
		ginkgo.It("returns the charge status from the acquirer", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gomega.Expect(r.URL.Path).To(gomega.Equal("/v1/charges/E123"))
				json.NewEncoder(w).Encode(acquirertypes.ChargeResponse{
					Data: acquirertypes.ChargeData{TxID: "E123", Status: "CONCLUIDA"},
				})
			}))
			defer server.Close()

			client := NewClient(Config{APIURL: server.URL, RequestTimeout: 2 * time.Second}, lg)
			defer client.Shutdown()

			resp, err := client.GetCharge(context.Background(), "E123")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(resp.Data.Status).To(gomega.BeEquivalentTo("CONCLUIDA"))
		})

		ginkgo.It("surfaces non-200 responses as errors", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			client := NewClient(Config{APIURL: server.URL, RequestTimeout: 2 * time.Second}, lg)
			defer client.Shutdown()

			_, err := client.GetCharge(context.Background(), "unknown")

			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})
})
