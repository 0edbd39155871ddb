package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "sigrelay_messages_total", Help: "Messages received"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sigrelay_signals_total", Help: "Signals extracted"},
		[]string{"source"},
	)
	RejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sigrelay_rejected_total", Help: "Messages that produced no signal"},
		[]string{"reason"},
	)
)

const (
	ReasonNoMatch   = "no_match"
	ReasonMalformed = "malformed"
	ReasonStore     = "store"
)

func init() {
	prometheus.MustRegister(MessagesTotal, SignalsTotal, RejectedTotal)
}

// Serve exposes /metrics until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
