// Package settlement defines the request and response types of the router's
// settlement API: incoming bridge settlements, source-side swaps and the
// settlement event history.
package settlement

// SettleRequest submits an incoming bridge envelope for settlement. The
// payload is the hex-encoded ABI envelope as produced by the source chain;
// token and amount describe what the bridge actually delivered.
type SettleRequest struct {
	Token   string `json:"token" validate:"required,eth_addr"`
	Amount  string `json:"amount" validate:"required"`
	Payload string `json:"payload" validate:"required"`
}

// SettleResponse reports the settlement outcome. Status is the settlement
// status string, token and amount describe what was delivered to the
// recipient (or refunded).
type SettleResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
}

// FeeEntry is one share of a declared fee breakdown.
type FeeEntry struct {
	Recipient string `json:"recipient" validate:"required,eth_addr"`
	Amount    string `json:"amount" validate:"required"`
	FeeType   string `json:"fee_type"`
}

// SwapLeg is one external call of a swap route.
type SwapLeg struct {
	Spender               string `json:"spender" validate:"required,eth_addr"`
	Target                string `json:"target" validate:"required,eth_addr"`
	FromToken             string `json:"from_token" validate:"required,eth_addr"`
	ToToken               string `json:"to_token" validate:"required,eth_addr"`
	NeedsTransferFromUser bool   `json:"needs_transfer_from_user"`
	Amount                string `json:"amount" validate:"required"`
	CallData              string `json:"call_data" validate:"required"`
}

// SwapRequest runs a swap route against the router's custody on behalf of
// caller. RequestID is optional; one is generated when absent.
type SwapRequest struct {
	RequestID string `json:"request_id"`

	Caller        string `json:"caller" validate:"required,eth_addr"`
	AttachedValue string `json:"attached_value"`

	FromToken             string `json:"from_token" validate:"required,eth_addr"`
	ToToken               string `json:"to_token" validate:"required,eth_addr"`
	AmountIn              string `json:"amount_in" validate:"required"`
	MinimumAmountExpected string `json:"minimum_amount_expected" validate:"required"`

	Fees              []FeeEntry `json:"fees" validate:"dive"`
	TotalFee          string     `json:"total_fee"`
	FeeFromInputToken bool       `json:"fee_from_input_token"`

	Legs []SwapLeg `json:"legs" validate:"required,min=1,dive"`

	DAppTag  uint16 `json:"dapp_tag"`
	DAppName string `json:"dapp_name"`
}

// SwapResponse reports the measured swap output. Results carries the raw
// return data of each leg, hex encoded, in execution order.
type SwapResponse struct {
	RequestID string   `json:"request_id"`
	Output    string   `json:"output"`
	Results   []string `json:"results"`
}

// EventRecord is one persisted settlement event.
type EventRecord struct {
	ID        int64  `json:"id"`
	RequestID string `json:"request_id,omitempty"`
	EventType string `json:"event_type"`
	Token     string `json:"token,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Status    string `json:"status,omitempty"`
	FeeType   string `json:"fee_type,omitempty"`
	DAppTag   int32  `json:"dapp_tag,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}
