package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KarimBkr/MyTsango/internal/audit"
	auditmemory "github.com/KarimBkr/MyTsango/internal/audit/store/memory"
	kycmetrics "github.com/KarimBkr/MyTsango/internal/kyc/metrics"
	kycstore "github.com/KarimBkr/MyTsango/internal/kyc/store"
	"github.com/KarimBkr/MyTsango/internal/notification"
	"github.com/KarimBkr/MyTsango/internal/payment"
	paymentmetrics "github.com/KarimBkr/MyTsango/internal/payment/metrics"
	"github.com/KarimBkr/MyTsango/internal/payment/mocks"
	"github.com/KarimBkr/MyTsango/internal/payment/provider"
	paymentstore "github.com/KarimBkr/MyTsango/internal/payment/store"
	"github.com/KarimBkr/MyTsango/internal/platform/config"
	"github.com/KarimBkr/MyTsango/internal/recon"
	"github.com/KarimBkr/MyTsango/internal/recon/signature"
	"github.com/KarimBkr/MyTsango/internal/recon/subjects"
	"github.com/KarimBkr/MyTsango/pkg/testutil"
)

type countingRecorder struct {
	requests map[string]int
	failures map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{requests: map[string]int{}, failures: map[string]int{}}
}

func (c *countingRecorder) IncRequest(endpoint string)            { c.requests[endpoint]++ }
func (c *countingRecorder) IncSuccess(string)                     {}
func (c *countingRecorder) IncFailure(reason string)              { c.failures[reason]++ }
func (c *countingRecorder) IncUnhandled(string)                   {}
func (c *countingRecorder) ObserveDuration(string, time.Duration) {}

type HandlerSuite struct {
	suite.Suite
	ctx          context.Context
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	store        *paymentstore.InMemoryStore
	recorder     *countingRecorder
	router       chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.mockProvider = mocks.NewMockProvider(s.ctrl)
	s.store = paymentstore.NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditPub := audit.NewPublisher(auditmemory.NewInMemoryStore(), nil, logger)

	applier := recon.NewApplier(
		subjects.New(kycstore.NewInMemoryStore(), s.store),
		nil,
		auditPub,
		notification.NewLogNotifier(logger),
		(*kycmetrics.Metrics)(nil),
		(*paymentmetrics.Metrics)(nil),
		logger,
	)
	service := payment.NewService(s.store, s.mockProvider, auditPub, nil, logger, 5, 500)

	// Bypassed signature mode: handler tests cannot produce Stripe-signed
	// payloads. Signature enforcement itself is covered by the stripe-go
	// library.
	stripeClient := provider.NewClient(config.StripeConfig{}, signature.Bypassed)
	s.recorder = newCountingRecorder()
	h := New(service, applier, stripeClient, s.recorder, logger)

	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterWebhooks(s.router)
}

func (s *HandlerSuite) TestCreate() {
	s.mockProvider.EXPECT().
		CreateIntent(gomock.Any(), int64(5000), gomock.Any(), gomock.Any()).
		Return(&payment.Intent{ID: "pi-1", ClientSecret: "pi-1_secret"}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/circles/circle-1/payments",
		map[string]int64{"amount": 50})
	rr := testutil.DoRequest(s.router, testutil.WithUserID(req, "user-1"))

	s.Equal(http.StatusCreated, rr.Code)
	s.Contains(rr.Body.String(), `"clientSecret":"pi-1_secret"`)
	s.Contains(rr.Body.String(), `"status":"PENDING"`)
}

func (s *HandlerSuite) TestCreateInvalidAmount() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/circles/circle-1/payments",
		map[string]int64{"amount": 1000})
	rr := testutil.DoRequest(s.router, testutil.WithUserID(req, "user-1"))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestCreateWithoutIdentity() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/circles/circle-1/payments",
		map[string]int64{"amount": 50})
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *HandlerSuite) TestStatus() {
	s.mockProvider.EXPECT().
		CreateIntent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&payment.Intent{ID: "pi-1", ClientSecret: "cs"}, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/circles/circle-1/payments",
		map[string]int64{"amount": 50})
	rr := testutil.DoRequest(s.router, testutil.WithUserID(req, "user-1"))
	s.Require().Equal(http.StatusCreated, rr.Code)

	stored, err := s.store.GetByIntentID(s.ctx, "pi-1")
	s.Require().NoError(err)

	statusReq := testutil.NewRequest(s.T(), http.MethodGet, "/payments/"+stored.ID.String())
	rr = testutil.DoRequest(s.router, testutil.WithUserID(statusReq, "user-1"))
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"status":"PENDING"`)
	s.Contains(rr.Body.String(), `"circleId":"circle-1"`)
}

func (s *HandlerSuite) TestStatusInvalidID() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/payments/not-a-uuid")
	rr := testutil.DoRequest(s.router, testutil.WithUserID(req, "user-1"))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) seedPayment(intentID, userID string) {
	s.Require().NoError(s.store.Create(s.ctx, &payment.Subject{
		CircleID:    "circle-1",
		UserID:      userID,
		IntentID:    intentID,
		AmountCents: 5000,
		Status:      payment.StatusPending,
	}))
}

func (s *HandlerSuite) TestWebhookSucceeded() {
	s.seedPayment("pi_1", "user-1")

	body := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/stripe", body)

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"success":true`)

	stored, err := s.store.GetByIntentID(s.ctx, "pi_1")
	s.Require().NoError(err)
	s.Equal(payment.StatusSucceeded, stored.Status)
	s.Equal("evt_1", stored.LastEventID)
}

func (s *HandlerSuite) TestWebhookSucceededWithExpandedCharge() {
	s.seedPayment("pi_1", "user-1")

	body := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","latest_charge":{"id":"ch_1","receipt_url":"https://pay.stripe.com/receipts/r_1"}}}}`
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/stripe", body)

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusOK, rr.Code)

	stored, err := s.store.GetByIntentID(s.ctx, "pi_1")
	s.Require().NoError(err)
	s.Equal(payment.StatusSucceeded, stored.Status)
	s.Equal("https://pay.stripe.com/receipts/r_1", stored.ReceiptURL)
}

func (s *HandlerSuite) TestWebhookDuplicateEvent() {
	s.seedPayment("pi_1", "user-1")

	body := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`
	for i := 0; i < 2; i++ {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/stripe", body)
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusOK, rr.Code)
	}

	stored, err := s.store.GetByIntentID(s.ctx, "pi_1")
	s.Require().NoError(err)
	s.Equal(payment.StatusSucceeded, stored.Status)
}

func (s *HandlerSuite) TestWebhookFailed() {
	s.seedPayment("pi_1", "user-1")

	body := `{"id":"evt_1","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_1"}}}`
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/stripe", body)

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusOK, rr.Code)

	stored, err := s.store.GetByIntentID(s.ctx, "pi_1")
	s.Require().NoError(err)
	s.Equal(payment.StatusFailed, stored.Status)
}

func (s *HandlerSuite) TestWebhookMalformedEnvelope() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/stripe", `{"id":`)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)

	// Rejected deliveries still move the request and failure counters.
	s.Equal(1, s.recorder.requests["webhook"])
	s.Equal(1, s.recorder.failures["invalid_signature"])
}

func (s *HandlerSuite) TestWebhookUnhandledType() {
	s.seedPayment("pi_1", "user-1")

	body := `{"id":"evt_1","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/stripe", body)

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusOK, rr.Code)

	stored, err := s.store.GetByIntentID(s.ctx, "pi_1")
	s.Require().NoError(err)
	s.Equal(payment.StatusPending, stored.Status)
}
