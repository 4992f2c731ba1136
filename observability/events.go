package observability

import (
	"log/slog"

	"merkledrop/core/events"
	"merkledrop/core/types"
	"merkledrop/native/airdrop"
	"merkledrop/observability/metrics"
)

type payloadEvent interface {
	Event() *types.Event
}

type metricsEmitter struct{}

// NewMetricsEmitter returns an emitter that feeds the Prometheus registry
// from the ledger's structured events.
func NewMetricsEmitter() events.Emitter {
	return metricsEmitter{}
}

func (metricsEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	switch evt.EventType() {
	case airdrop.EventTypeCampaignCreated:
		metrics.Airdrop().RecordCampaignCreated()
	case airdrop.EventTypeTokensClaimed:
		token := ""
		if payload, ok := evt.(payloadEvent); ok {
			if e := payload.Event(); e != nil {
				token = e.Attributes["token"]
			}
		}
		metrics.Airdrop().RecordClaim(token)
	case airdrop.EventTypeCampaignClosed:
		metrics.Airdrop().RecordSweep()
	}
}

type logEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter returns an emitter that writes every ledger event to the
// structured log.
func NewLogEmitter(logger *slog.Logger) events.Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return logEmitter{logger: logger}
}

func (l logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	args := make([]any, 0, 8)
	if payload, ok := evt.(payloadEvent); ok {
		if e := payload.Event(); e != nil {
			for k, v := range e.Attributes {
				args = append(args, slog.String(k, v))
			}
		}
	}
	l.logger.Info(evt.EventType(), args...)
}
