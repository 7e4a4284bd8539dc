package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestLogger(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Logger Suite")
}

var _ = ginkgo.Describe("Logger", func() {
	ginkgo.DescribeTable("parses configured levels",
		func(level string, want slog.Level) {
			gomega.Expect(parseLevel(level)).To(gomega.Equal(want))
		},
		ginkgo.Entry("debug", "debug", slog.LevelDebug),
		ginkgo.Entry("info", "info", slog.LevelInfo),
		ginkgo.Entry("warn", "warn", slog.LevelWarn),
		ginkgo.Entry("error", "error", slog.LevelError),
		ginkgo.Entry("unknown defaults to info", "verbose", slog.LevelInfo),
	)

	ginkgo.It("round-trips a request-scoped logger through context", func() {
		ctx := With(context.Background(), "traceID", "abc-123")
		gomega.Expect(From(ctx)).NotTo(gomega.BeIdenticalTo(LoggerWrapper()))
	})

	ginkgo.It("falls back to the process logger for a bare context", func() {
		gomega.Expect(From(context.Background())).To(gomega.BeIdenticalTo(LoggerWrapper()))
	})
})
