// Package instrument exposes hopper counters to Prometheus.
package instrument

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-i2p/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

var (
	packagesConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hopper_consumed_packages_total",
			Help: "Number of outbound packages encrypted and handed to the transport",
		},
	)
	packagesRelayed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hopper_relayed_packages_total",
			Help: "Number of packages stripped of one layer and forwarded",
		},
	)
	packagesDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hopper_delivered_packages_total",
			Help: "Number of packages delivered to a local component",
		},
		[]string{"component"},
	)
	packagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hopper_dropped_packages_total",
			Help: "Number of packages dropped, by reason",
		},
		[]string{"reason"},
	)
	relayFees = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hopper_relay_fees_total",
			Help: "Sum of relay fees reported to the accountant",
		},
	)
)

func init() {
	prometheus.MustRegister(packagesConsumed)
	prometheus.MustRegister(packagesRelayed)
	prometheus.MustRegister(packagesDelivered)
	prometheus.MustRegister(packagesDropped)
	prometheus.MustRegister(relayFees)
}

// PackageConsumed counts one outbound package.
func PackageConsumed() {
	packagesConsumed.Inc()
}

// PackageRelayed counts one forwarded package and its fee.
func PackageRelayed(fee uint64) {
	packagesRelayed.Inc()
	relayFees.Add(float64(fee))
}

// PackageDelivered counts one local delivery.
func PackageDelivered(component string) {
	packagesDelivered.WithLabelValues(component).Inc()
}

// PackageDropped counts one dropped package.
func PackageDropped(reason string) {
	packagesDropped.WithLabelValues(reason).Inc()
}

// Handler returns the HTTP handler serving registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("metrics server shutdown failed")
		}
	}()

	log.WithFields(logger.Fields{
		"at":      "instrument.Serve",
		"address": addr,
	}).Info("serving metrics")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return oops.Wrapf(err, "metrics server on %s", addr)
	}
	return nil
}
