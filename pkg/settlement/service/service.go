package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/rango-exchange/router-middleware/pkg/app/errors"
	"github.com/rango-exchange/router-middleware/pkg/fees"
	"github.com/rango-exchange/router-middleware/pkg/guard"
	"github.com/rango-exchange/router-middleware/pkg/interchain"
	"github.com/rango-exchange/router-middleware/pkg/registry"
	"github.com/rango-exchange/router-middleware/pkg/settlement"
	"github.com/rango-exchange/router-middleware/pkg/store/dao"
	"github.com/rango-exchange/router-middleware/pkg/swapper"
)

var (
	ErrMessagingNotWhitelisted = errors.New("destination dApp not whitelisted for messaging")
)

// EventStore is the narrow data-access interface for the settlement history.
// Defined here to keep the settlement service decoupled from store
// implementation details.
type EventStore interface {
	ListEvents(ctx context.Context, requestID string, limit int) ([]*dao.SettlementEventDao, error)
}

// Service defines the interface for the settlement business logic
type Service interface {
	Settle(ctx context.Context, req *settlement.SettleRequest) (*settlement.SettleResponse, error)
	Swap(ctx context.Context, req *settlement.SwapRequest) (*settlement.SwapResponse, error)
	Events(ctx context.Context, requestID string, limit int) ([]settlement.EventRecord, error)
}

type settlementService struct {
	dispatcher *interchain.Dispatcher
	executor   *swapper.Executor
	registry   registry.Registry
	events     EventStore
	logger     *zap.Logger
}

// NewService creates a new settlement service
func NewService(
	dispatcher *interchain.Dispatcher,
	executor *swapper.Executor,
	reg registry.Registry,
	events EventStore,
	logger *zap.Logger,
) Service {
	return &settlementService{
		dispatcher: dispatcher,
		executor:   executor,
		registry:   reg,
		events:     events,
		logger:     logger,
	}
}

// Settle decodes an incoming bridge envelope and hands it to the dispatcher.
//
// The settlement process:
//  1. Parses the delivered token, amount and hex payload
//  2. Decodes the ABI envelope into a message
//  3. Rejects messages targeting a non-whitelisted messaging dApp
//  4. Runs the dispatcher, which executes the action fail-open
//
// Returns the delivered token, amount and status. An error here means no
// funds moved: envelope faults and configuration faults are rejected before
// or instead of delivery.
func (s *settlementService) Settle(
	ctx context.Context,
	req *settlement.SettleRequest,
) (*settlement.SettleResponse, error) {
	token, err := parseAddress(req.Token, "token")
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return nil, err
	}
	payload, err := parseHex(req.Payload, "payload")
	if err != nil {
		return nil, err
	}

	msg, err := interchain.DecodeMessage(payload)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "undecodable settlement payload")
	}

	// The dApp messaging whitelist is checked up front: a settlement that
	// would deliver into an unapproved receiver contract never starts.
	if msg.DAppDestContract != (common.Address{}) &&
		!s.registry.IsMessagingContractWhitelisted(msg.DAppDestContract) {
		return nil, apperrors.ForbiddenError(ErrMessagingNotWhitelisted,
			"destination dApp not whitelisted for messaging")
	}

	res, err := s.dispatcher.SettleIncoming(ctx, token, amount, msg)
	if err != nil {
		return nil, mapCoreError(err, "settlement failed")
	}

	return &settlement.SettleResponse{
		RequestID: hexString(msg.RequestID),
		Status:    res.Status.String(),
		Token:     res.Token.Hex(),
		Amount:    res.Amount.String(),
	}, nil
}

// Swap runs a source-side swap route for the caller. A missing request ID is
// replaced with a generated one so the event history always correlates.
func (s *settlementService) Swap(
	ctx context.Context,
	req *settlement.SwapRequest,
) (*settlement.SwapResponse, error) {
	requestID, err := resolveRequestID(req.RequestID)
	if err != nil {
		return nil, err
	}
	caller, err := parseAddress(req.Caller, "caller")
	if err != nil {
		return nil, err
	}
	attached, err := parseOptionalAmount(req.AttachedValue, "attached_value")
	if err != nil {
		return nil, err
	}

	swapReq, err := buildSwapRequest(requestID, req)
	if err != nil {
		return nil, err
	}
	calls, err := buildCalls(req.Legs)
	if err != nil {
		return nil, err
	}

	results, output, err := s.executor.RunSwap(ctx, caller, attached, *swapReq, calls, nil)
	if err != nil {
		return nil, mapCoreError(err, "swap failed")
	}

	encoded := make([]string, 0, len(results))
	for _, r := range results {
		encoded = append(encoded, hexString(r))
	}
	return &settlement.SwapResponse{
		RequestID: hexString(requestID),
		Output:    output.String(),
		Results:   encoded,
	}, nil
}

// Events returns the persisted settlement history, newest first, optionally
// filtered by request ID.
func (s *settlementService) Events(
	ctx context.Context,
	requestID string,
	limit int,
) ([]settlement.EventRecord, error) {
	rows, err := s.events.ListEvents(ctx, requestID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	records := make([]settlement.EventRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, settlement.EventRecord{
			ID:        row.ID,
			RequestID: row.RequestID,
			EventType: row.EventType,
			Token:     row.Token,
			Recipient: row.Recipient,
			Amount:    row.Amount.String(),
			Status:    row.Status,
			FeeType:   row.FeeType,
			DAppTag:   row.DAppTag,
			Detail:    row.Detail,
			CreatedAt: row.CreatedAt.Format(time.RFC3339),
		})
	}
	return records, nil
}

// Helper methods

// buildSwapRequest converts the API request into the executor's form.
func buildSwapRequest(requestID []byte, req *settlement.SwapRequest) (*swapper.SwapRequest, error) {
	fromToken, err := parseAddress(req.FromToken, "from_token")
	if err != nil {
		return nil, err
	}
	toToken, err := parseAddress(req.ToToken, "to_token")
	if err != nil {
		return nil, err
	}
	amountIn, err := parseAmount(req.AmountIn, "amount_in")
	if err != nil {
		return nil, err
	}
	minOut, err := parseAmount(req.MinimumAmountExpected, "minimum_amount_expected")
	if err != nil {
		return nil, err
	}
	totalFee, err := parseOptionalAmount(req.TotalFee, "total_fee")
	if err != nil {
		return nil, err
	}

	breakdown := make([]fees.AffiliateFee, 0, len(req.Fees))
	for i, f := range req.Fees {
		recipient, err := parseAddress(f.Recipient, fmt.Sprintf("fees[%d].recipient", i))
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(f.Amount, fmt.Sprintf("fees[%d].amount", i))
		if err != nil {
			return nil, err
		}
		breakdown = append(breakdown, fees.AffiliateFee{
			Recipient: recipient,
			Amount:    amount,
			FeeType:   f.FeeType,
		})
	}

	return &swapper.SwapRequest{
		RequestID:             requestID,
		FromToken:             fromToken,
		ToToken:               toToken,
		AmountIn:              amountIn,
		MinimumAmountExpected: minOut,
		Fees:                  breakdown,
		TotalFee:              totalFee,
		FeeFromInputToken:     req.FeeFromInputToken,
		DAppTag:               req.DAppTag,
		DAppName:              req.DAppName,
	}, nil
}

func buildCalls(legs []settlement.SwapLeg) ([]swapper.Call, error) {
	calls := make([]swapper.Call, 0, len(legs))
	for i, leg := range legs {
		spender, err := parseAddress(leg.Spender, fmt.Sprintf("legs[%d].spender", i))
		if err != nil {
			return nil, err
		}
		target, err := parseAddress(leg.Target, fmt.Sprintf("legs[%d].target", i))
		if err != nil {
			return nil, err
		}
		fromToken, err := parseAddress(leg.FromToken, fmt.Sprintf("legs[%d].from_token", i))
		if err != nil {
			return nil, err
		}
		toToken, err := parseAddress(leg.ToToken, fmt.Sprintf("legs[%d].to_token", i))
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount(leg.Amount, fmt.Sprintf("legs[%d].amount", i))
		if err != nil {
			return nil, err
		}
		callData, err := parseHex(leg.CallData, fmt.Sprintf("legs[%d].call_data", i))
		if err != nil {
			return nil, err
		}
		calls = append(calls, swapper.Call{
			Spender:               spender,
			Target:                target,
			SwapFromToken:         fromToken,
			SwapToToken:           toToken,
			NeedsTransferFromUser: leg.NeedsTransferFromUser,
			Amount:                amount,
			CallData:              callData,
		})
	}
	return calls, nil
}

// resolveRequestID decodes a hex request ID, or generates one when absent.
func resolveRequestID(s string) ([]byte, error) {
	if s == "" {
		id := uuid.New()
		return id[:], nil
	}
	return parseHex(s, "request_id")
}

// mapCoreError translates core errors into service error categories.
// Whitelist rejections are authorization faults, re-entrancy is a conflict
// and the declared-input faults are bad requests; everything else is internal.
func mapCoreError(err error, message string) error {
	switch {
	case errors.Is(err, guard.ErrReentrantCall):
		return apperrors.ConflictError(err, "another custody-bearing operation is in progress")
	case errors.Is(err, interchain.ErrContractNotWhitelisted),
		errors.Is(err, swapper.ErrTargetNotWhitelisted):
		return apperrors.ForbiddenError(err, message)
	case errors.Is(err, interchain.ErrPathTooShort),
		errors.Is(err, interchain.ErrTokenMismatch),
		errors.Is(err, fees.ErrInvalidFeeTotal),
		errors.Is(err, swapper.ErrInsufficientValue),
		errors.Is(err, swapper.ErrOutputBelowMinimum):
		return apperrors.BadRequestError(err, message)
	default:
		return fmt.Errorf("%s: %w", message, err)
	}
}

func parseAddress(s, field string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, apperrors.BadRequestError(nil, fmt.Sprintf("%s is not a valid address", field))
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, apperrors.BadRequestError(nil, fmt.Sprintf("%s is not a valid amount", field))
	}
	return v, nil
}

func parseOptionalAmount(s, field string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	return parseAmount(s, field)
}

func parseHex(s, field string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, apperrors.BadRequestError(err, fmt.Sprintf("%s is not valid hex", field))
	}
	return raw, nil
}

func hexString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return "0x" + hex.EncodeToString(b)
}
