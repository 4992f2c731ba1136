package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type AirdropMetrics struct {
	campaignsCreated prometheus.Counter
	claims           *prometheus.CounterVec
	claimFailures    *prometheus.CounterVec
	sweeps           prometheus.Counter
}

var (
	airdropOnce     sync.Once
	airdropRegistry *AirdropMetrics
)

func Airdrop() *AirdropMetrics {
	airdropOnce.Do(func() {
		airdropRegistry = &AirdropMetrics{
			campaignsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "airdrop_campaigns_created_total",
				Help: "Count of campaigns created and funded.",
			}),
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "airdrop_claims_total",
				Help: "Count of successful claims by token.",
			}, []string{"token"}),
			claimFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "airdrop_claim_failures_total",
				Help: "Count of rejected claim attempts by reason.",
			}, []string{"reason"}),
			sweeps: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "airdrop_sweeps_total",
				Help: "Count of closure sweeps executed.",
			}),
		}
		prometheus.MustRegister(
			airdropRegistry.campaignsCreated,
			airdropRegistry.claims,
			airdropRegistry.claimFailures,
			airdropRegistry.sweeps,
		)
	})
	return airdropRegistry
}

func (m *AirdropMetrics) RecordCampaignCreated() {
	if m == nil {
		return
	}
	m.campaignsCreated.Inc()
}

func (m *AirdropMetrics) RecordClaim(token string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToUpper(token))
	if normalized == "" {
		normalized = "UNKNOWN"
	}
	m.claims.WithLabelValues(normalized).Inc()
}

func (m *AirdropMetrics) RecordClaimFailure(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.claimFailures.WithLabelValues(reason).Inc()
}

func (m *AirdropMetrics) RecordSweep() {
	if m == nil {
		return
	}
	m.sweeps.Inc()
}
