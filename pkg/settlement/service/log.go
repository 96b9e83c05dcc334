package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rango-exchange/router-middleware/pkg/settlement"
)

const serviceName = "SettlementService"

const logPayloadMaxLen = 64

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the settlement Service.
// It logs method entry/exit, duration and errors.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

// Settle wraps the service method with logging
func (ls *logService) Settle(
	ctx context.Context,
	req *settlement.SettleRequest,
) (resp *settlement.SettleResponse, err error) {
	start := time.Now()

	ls.logger.Info("Settle started",
		zap.String("service", serviceName),
		zap.String("method", "Settle"),
		zap.String("token", req.Token),
		zap.String("amount", req.Amount),
		zap.String("payload", truncateString(req.Payload, logPayloadMaxLen)),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Settle failed",
				zap.String("service", serviceName),
				zap.String("method", "Settle"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Settle completed",
				zap.String("service", serviceName),
				zap.String("method", "Settle"),
				zap.String("request_id", resp.RequestID),
				zap.String("status", resp.Status),
				zap.String("token", resp.Token),
				zap.String("amount", resp.Amount),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Settle(ctx, req)
}

// Swap wraps the service method with logging
func (ls *logService) Swap(
	ctx context.Context,
	req *settlement.SwapRequest,
) (resp *settlement.SwapResponse, err error) {
	start := time.Now()

	ls.logger.Info("Swap started",
		zap.String("service", serviceName),
		zap.String("method", "Swap"),
		zap.String("caller", req.Caller),
		zap.String("from_token", req.FromToken),
		zap.String("to_token", req.ToToken),
		zap.String("amount_in", req.AmountIn),
		zap.Int("legs", len(req.Legs)),
		zap.String("dapp_name", req.DAppName),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Swap failed",
				zap.String("service", serviceName),
				zap.String("method", "Swap"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Swap completed",
				zap.String("service", serviceName),
				zap.String("method", "Swap"),
				zap.String("request_id", resp.RequestID),
				zap.String("output", resp.Output),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Swap(ctx, req)
}

// Events wraps the service method with logging
func (ls *logService) Events(
	ctx context.Context,
	requestID string,
	limit int,
) (records []settlement.EventRecord, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Events failed",
				zap.String("service", serviceName),
				zap.String("method", "Events"),
				zap.String("request_id", requestID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Debug("Events completed",
				zap.String("service", serviceName),
				zap.String("method", "Events"),
				zap.String("request_id", requestID),
				zap.Int("count", len(records)),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Events(ctx, requestID, limit)
}

// truncateString limits string length for logging to prevent log spam
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
