package clickpesa

import "github.com/shopspring/decimal"

// API endpoint paths
const (
	endpointGenerateToken = "/third-parties/generate-token"
	endpointPreviewUSSD   = "/third-parties/payments/preview-ussd-push-request"
	endpointInitiateUSSD  = "/third-parties/payments/initiate-ussd-push-request"
	endpointQueryPayment  = "/third-parties/payments/"
	endpointPreviewPayout = "/third-parties/payouts/preview-mobile-money-payout"
	endpointCreatePayout  = "/third-parties/payouts/create-mobile-money-payout"
	endpointQueryPayout   = "/third-parties/payouts/"
	endpointBalance       = "/third-parties/account/balance"
)

// MethodAvailable marks a usable collection method in preview responses
const MethodAvailable = "AVAILABLE"

// PaymentRequest is the payload for previewing or initiating a USSD-push
// collection. Amounts travel as strings on the payment endpoints.
type PaymentRequest struct {
	Amount             decimal.Decimal
	Currency           string
	OrderReference     string
	PhoneNumber        string
	FetchSenderDetails bool
}

// PaymentMethod describes one collection method returned by a preview
type PaymentMethod struct {
	Name   string          `json:"name"`
	Status string          `json:"status"`
	Fee    decimal.Decimal `json:"fee"`
}

// PreviewPaymentResponse lists available methods and optional sender details
type PreviewPaymentResponse struct {
	ActiveMethods []PaymentMethod `json:"activeMethods"`
	Sender        *SenderDetails  `json:"sender,omitempty"`
}

// SenderDetails identifies the paying customer, when requested
type SenderDetails struct {
	Name  string `json:"senderName"`
	Phone string `json:"senderPhoneNumber"`
}

// PaymentResponse is the gateway's view of a collection transaction
type PaymentResponse struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	Channel           string          `json:"channel"`
	ChannelProvider   string          `json:"channelProvider"`
	OrderReference    string          `json:"orderReference"`
	PaymentReference  string          `json:"paymentReference"`
	CollectedAmount   decimal.Decimal `json:"collectedAmount"`
	CollectedCurrency string          `json:"collectedCurrency"`
	Message           string          `json:"message"`
	Customer          *CustomerInfo   `json:"customer,omitempty"`
	CreatedAt         string          `json:"createdAt"`
	UpdatedAt         string          `json:"updatedAt"`
}

// CustomerInfo carries customer details on status responses
type CustomerInfo struct {
	Name  string `json:"customerName"`
	Email string `json:"customerEmail"`
}

// PayoutRequest is the payload for previewing or creating a mobile-money
// payout. Amounts travel as numbers on the payout endpoints.
type PayoutRequest struct {
	Amount         decimal.Decimal
	PhoneNumber    string
	Currency       string
	OrderReference string
	Channel        string
}

// ExchangeDetails describes a currency conversion applied to a payout
type ExchangeDetails struct {
	SourceCurrency string          `json:"sourceCurrency"`
	TargetCurrency string          `json:"targetCurrency"`
	SourceAmount   decimal.Decimal `json:"sourceAmount"`
	Rate           decimal.Decimal `json:"rate"`
}

// PreviewPayoutResponse reports fees, balance coverage and exchange data
// for a prospective payout.
type PreviewPayoutResponse struct {
	Amount          decimal.Decimal  `json:"amount"`
	Balance         decimal.Decimal  `json:"balance"`
	Fee             decimal.Decimal  `json:"fee"`
	ChannelProvider string           `json:"channelProvider"`
	Exchanged       bool             `json:"exchanged"`
	Exchange        *ExchangeDetails `json:"exchange,omitempty"`
	PayoutFeeBearer string           `json:"payoutFeeBearer"`
}

// Beneficiary identifies the payout recipient
type Beneficiary struct {
	Amount        decimal.Decimal `json:"amount"`
	AccountNumber string          `json:"accountNumber"`
	AccountName   string          `json:"accountName"`
}

// PayoutResponse is the gateway's view of a disbursement transaction
type PayoutResponse struct {
	ID              string           `json:"id"`
	OrderReference  string           `json:"orderReference"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	Fee             decimal.Decimal  `json:"fee"`
	Exchanged       bool             `json:"exchanged"`
	Exchange        *ExchangeDetails `json:"exchange,omitempty"`
	Status          string           `json:"status"`
	Channel         string           `json:"channel"`
	ChannelProvider string           `json:"channelProvider"`
	TransferType    string           `json:"transferType"`
	Notes           string           `json:"notes"`
	Beneficiary     *Beneficiary     `json:"beneficiary,omitempty"`
	CreatedAt       string           `json:"createdAt"`
	UpdatedAt       string           `json:"updatedAt"`
}

// BalanceResponse reports the merchant account balance
type BalanceResponse struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}
