package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a payment or payout tracked against the gateway.
// Payments and payouts share one shape; payout-only fields stay null for
// payments.
type Transaction struct {
	LocalReference    string              `json:"order_reference"`
	GatewayID         string              `json:"gateway_id,omitempty"`
	Kind              Kind                `json:"kind"`
	Status            Status              `json:"status"`
	Amount            decimal.Decimal     `json:"amount"`
	Currency          Currency            `json:"currency"`
	CounterpartyPhone string              `json:"phone_number"`
	Channel           string              `json:"channel,omitempty"`
	ChannelProvider   string              `json:"channel_provider,omitempty"`
	Fee               decimal.NullDecimal `json:"fee,omitempty"`
	BeneficiaryAmount decimal.NullDecimal `json:"beneficiary_amount,omitempty"`
	Exchanged         bool                `json:"exchanged,omitempty"`
	ExchangeRate      decimal.NullDecimal `json:"exchange_rate,omitempty"`
	Message           string              `json:"message,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
}

// Terminal reports whether the transaction reached a final status
func (t *Transaction) Terminal() bool {
	return IsTerminal(t.Kind, t.Status)
}

// Successful reports whether the transaction completed with money moved
func (t *Transaction) Successful() bool {
	return IsSuccessful(t.Kind, t.Status)
}
