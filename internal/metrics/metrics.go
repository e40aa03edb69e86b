// Package metrics holds the Prometheus collectors of the conversion
// pipeline and the optional /metrics endpoint.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// ReadsTotal counts queries emitted, by format.
	ReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alnstream_reads_total",
		Help: "Queries emitted by the alignment parsers",
	}, []string{"format"})

	// MatchesTotal counts canonical match lines emitted.
	MatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alnstream_matches_total",
		Help: "Canonical match lines emitted",
	}, []string{"format"})

	// UnalignedTotal counts queries without a retained match.
	UnalignedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alnstream_unaligned_total",
		Help: "Queries emitted without any match",
	}, []string{"format"})

	// RecordErrorsTotal counts malformed records that were skipped.
	RecordErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alnstream_record_errors_total",
		Help: "Malformed alignment records skipped",
	}, []string{"format"})

	// FilesTotal counts processed files by result (ok, failed).
	FilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alnstream_files_total",
		Help: "Alignment files processed by result",
	}, []string{"result"})

	// FileDuration tracks the wall time of one file.
	FileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alnstream_file_duration_seconds",
		Help:    "Time to convert one alignment file",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~44min
	})

	// SinkRowsTotal counts rows written to external stores.
	SinkRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alnstream_sink_rows_total",
		Help: "Rows written to external sinks",
	}, []string{"sink"})
)

// Serve exposes the default registry on addr until ctx is done. An empty
// addr disables the endpoint.
func Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
}
