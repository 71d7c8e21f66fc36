package service

import (
	"context"

	"github.com/tzpesa/pesa-service/internal/integrations/clickpesa"
)

// Gateway is the slice of the ClickPesa client the orchestrators and the
// reconciler consume. Satisfied by *clickpesa.Client.
type Gateway interface {
	PreviewPayment(ctx context.Context, r clickpesa.PaymentRequest) (*clickpesa.PreviewPaymentResponse, error)
	InitiatePayment(ctx context.Context, r clickpesa.PaymentRequest) (*clickpesa.PaymentResponse, error)
	QueryPayment(ctx context.Context, orderReference string) (*clickpesa.PaymentResponse, error)
	PreviewPayout(ctx context.Context, r clickpesa.PayoutRequest) (*clickpesa.PreviewPayoutResponse, error)
	CreatePayout(ctx context.Context, r clickpesa.PayoutRequest) (*clickpesa.PayoutResponse, error)
	QueryPayout(ctx context.Context, orderReference string) (*clickpesa.PayoutResponse, error)
	GetBalance(ctx context.Context) (*clickpesa.BalanceResponse, error)
}
