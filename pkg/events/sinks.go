package events

import (
	"context"
	"encoding/hex"
	"sync"

	"go.uber.org/zap"

	"github.com/rango-exchange/router-middleware/internal/metrics"
)

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) {}

// MultiSink fans one emission out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Emit(ctx, ev)
	}
}

// LogSink writes every event as a structured log line.
type LogSink struct {
	Logger *zap.Logger
}

func (s *LogSink) Emit(_ context.Context, ev Event) {
	switch e := ev.(type) {
	case SwapCompleted:
		s.Logger.Info("Swap completed",
			zap.String("request_id", hex.EncodeToString(e.RequestID)),
			zap.String("from_token", e.FromToken.Hex()),
			zap.String("to_token", e.ToToken.Hex()),
			zap.String("amount_in", e.AmountIn.String()),
			zap.String("output", e.Output.String()),
			zap.String("receiver", e.Receiver.Hex()),
			zap.String("dapp_name", e.DAppName),
			zap.Uint16("dapp_tag", e.DAppTag))
	case FeeApplied:
		s.Logger.Info("Fee applied",
			zap.String("token", e.Token.Hex()),
			zap.String("recipient", e.Recipient.Hex()),
			zap.String("amount", e.Amount.String()),
			zap.String("fee_type", e.FeeType),
			zap.Uint16("dapp_tag", e.DAppTag))
	case BridgeInitiated:
		s.Logger.Info("Bridge initiated",
			zap.String("request_id", hex.EncodeToString(e.RequestID)),
			zap.String("token", e.Token.Hex()),
			zap.String("amount", e.Amount.String()),
			zap.String("dapp_name", e.DAppName),
			zap.Uint16("dapp_tag", e.DAppTag))
	case BridgeCompleted:
		s.Logger.Info("Bridge completed",
			zap.String("request_id", hex.EncodeToString(e.RequestID)),
			zap.String("token", e.Token.Hex()),
			zap.String("original_sender", e.OriginalSender.Hex()),
			zap.String("recipient", e.Recipient.Hex()),
			zap.String("amount", e.Amount.String()),
			zap.String("status", e.Status),
			zap.Uint16("dapp_tag", e.DAppTag))
	case DAppCallbackResult:
		s.Logger.Info("dApp callback result",
			zap.String("request_id", hex.EncodeToString(e.RequestID)),
			zap.String("dapp", e.DApp.Hex()),
			zap.Bool("ok", e.OK),
			zap.String("reason", e.Reason))
	default:
		s.Logger.Info("Event emitted", zap.String("event_type", ev.EventType()))
	}
}

// MetricsSink increments prometheus counters per event.
type MetricsSink struct{}

func (MetricsSink) Emit(_ context.Context, ev Event) {
	switch e := ev.(type) {
	case SwapCompleted:
		metrics.SwapsTotal.WithLabelValues("completed").Inc()
	case FeeApplied:
		metrics.FeesDisbursed.WithLabelValues(e.FeeType).Inc()
	case BridgeInitiated:
		metrics.BridgesInitiated.Inc()
	case BridgeCompleted:
		metrics.SettlementsTotal.WithLabelValues(e.Status).Inc()
	case DAppCallbackResult:
		status := "ok"
		if !e.OK {
			status = "failed"
		}
		metrics.DAppCallbacks.WithLabelValues(status).Inc()
	}
}

// MemorySink retains events in order; used by tests and the events API.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemorySink) Emit(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
