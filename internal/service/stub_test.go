package service

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tzpesa/pesa-service/internal/integrations/clickpesa"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// stubGateway implements Gateway with per-call hooks and call counters
type stubGateway struct {
	previewPaymentFn func(r clickpesa.PaymentRequest) (*clickpesa.PreviewPaymentResponse, error)
	initiatePayFn    func(r clickpesa.PaymentRequest) (*clickpesa.PaymentResponse, error)
	queryPaymentFn   func(ref string) (*clickpesa.PaymentResponse, error)
	previewPayoutFn  func(r clickpesa.PayoutRequest) (*clickpesa.PreviewPayoutResponse, error)
	createPayoutFn   func(r clickpesa.PayoutRequest) (*clickpesa.PayoutResponse, error)
	queryPayoutFn    func(ref string) (*clickpesa.PayoutResponse, error)

	previewPaymentCalls int32
	initiateCalls       int32
	queryPaymentCalls   int32
	previewPayoutCalls  int32
	createPayoutCalls   int32
	queryPayoutCalls    int32
}

func (g *stubGateway) PreviewPayment(ctx context.Context, r clickpesa.PaymentRequest) (*clickpesa.PreviewPaymentResponse, error) {
	atomic.AddInt32(&g.previewPaymentCalls, 1)
	if g.previewPaymentFn != nil {
		return g.previewPaymentFn(r)
	}
	return &clickpesa.PreviewPaymentResponse{
		ActiveMethods: []clickpesa.PaymentMethod{{Name: "MPESA", Status: clickpesa.MethodAvailable}},
	}, nil
}

func (g *stubGateway) InitiatePayment(ctx context.Context, r clickpesa.PaymentRequest) (*clickpesa.PaymentResponse, error) {
	atomic.AddInt32(&g.initiateCalls, 1)
	if g.initiatePayFn != nil {
		return g.initiatePayFn(r)
	}
	return &clickpesa.PaymentResponse{ID: "gw-payment", OrderReference: r.OrderReference, Status: "PROCESSING"}, nil
}

func (g *stubGateway) QueryPayment(ctx context.Context, ref string) (*clickpesa.PaymentResponse, error) {
	atomic.AddInt32(&g.queryPaymentCalls, 1)
	if g.queryPaymentFn != nil {
		return g.queryPaymentFn(ref)
	}
	return &clickpesa.PaymentResponse{ID: "gw-payment", OrderReference: ref, Status: "PROCESSING"}, nil
}

func (g *stubGateway) PreviewPayout(ctx context.Context, r clickpesa.PayoutRequest) (*clickpesa.PreviewPayoutResponse, error) {
	atomic.AddInt32(&g.previewPayoutCalls, 1)
	if g.previewPayoutFn != nil {
		return g.previewPayoutFn(r)
	}
	return &clickpesa.PreviewPayoutResponse{
		Amount:  r.Amount,
		Balance: decimal.NewFromInt(1_000_000),
		Fee:     decimal.NewFromInt(500),
	}, nil
}

func (g *stubGateway) CreatePayout(ctx context.Context, r clickpesa.PayoutRequest) (*clickpesa.PayoutResponse, error) {
	atomic.AddInt32(&g.createPayoutCalls, 1)
	if g.createPayoutFn != nil {
		return g.createPayoutFn(r)
	}
	return &clickpesa.PayoutResponse{ID: "gw-payout", OrderReference: r.OrderReference, Status: "AUTHORIZED"}, nil
}

func (g *stubGateway) QueryPayout(ctx context.Context, ref string) (*clickpesa.PayoutResponse, error) {
	atomic.AddInt32(&g.queryPayoutCalls, 1)
	if g.queryPayoutFn != nil {
		return g.queryPayoutFn(ref)
	}
	return &clickpesa.PayoutResponse{ID: "gw-payout", OrderReference: ref, Status: "PROCESSING"}, nil
}

func (g *stubGateway) GetBalance(ctx context.Context) (*clickpesa.BalanceResponse, error) {
	return &clickpesa.BalanceResponse{Currency: "TZS", Balance: decimal.NewFromInt(1_000_000)}, nil
}

// recordingSubscriber collects delivered events
type recordingSubscriber struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSubscriber) HandleStatusChange(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSubscriber) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
