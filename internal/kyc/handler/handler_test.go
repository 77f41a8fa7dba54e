package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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
	"github.com/KarimBkr/MyTsango/internal/kyc"
	kycmetrics "github.com/KarimBkr/MyTsango/internal/kyc/metrics"
	"github.com/KarimBkr/MyTsango/internal/kyc/mocks"
	kycstore "github.com/KarimBkr/MyTsango/internal/kyc/store"
	"github.com/KarimBkr/MyTsango/internal/notification"
	paymentmetrics "github.com/KarimBkr/MyTsango/internal/payment/metrics"
	paymentstore "github.com/KarimBkr/MyTsango/internal/payment/store"
	"github.com/KarimBkr/MyTsango/internal/recon"
	"github.com/KarimBkr/MyTsango/internal/recon/signature"
	"github.com/KarimBkr/MyTsango/internal/recon/subjects"
	"github.com/KarimBkr/MyTsango/pkg/testutil"
)

const webhookSecret = "test-webhook-secret"

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
	ctx      context.Context
	ctrl     *gomock.Controller
	provider *mocks.MockProvider
	store    *kycstore.InMemoryStore
	recorder *countingRecorder
	router   chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.provider = mocks.NewMockProvider(s.ctrl)
	s.store = kycstore.NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditPub := audit.NewPublisher(auditmemory.NewInMemoryStore(), nil, logger)

	applier := recon.NewApplier(
		subjects.New(s.store, paymentstore.NewInMemoryStore()),
		nil,
		auditPub,
		notification.NewLogNotifier(logger),
		(*kycmetrics.Metrics)(nil),
		(*paymentmetrics.Metrics)(nil),
		logger,
	)
	service := kyc.NewService(s.store, s.provider, auditPub, nil, logger)
	s.recorder = newCountingRecorder()
	h := New(service, applier, signature.NewVerifier(webhookSecret, signature.Enforced), s.recorder, logger)

	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterWebhooks(s.router)
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *HandlerSuite) TestStart() {
	s.provider.EXPECT().CreateApplicant(gomock.Any(), "user-1").Return("app-1", nil)
	s.provider.EXPECT().CreateAccessToken(gomock.Any(), "user-1").Return("sdk-token", nil)

	req := testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodPost, "/kyc/start"), "user-1")
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"applicantId":"app-1"`)
	s.Contains(rr.Body.String(), `"token":"sdk-token"`)
}

func (s *HandlerSuite) TestStartWithoutIdentity() {
	req := testutil.NewRequest(s.T(), http.MethodPost, "/kyc/start")
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *HandlerSuite) TestStatusNeverStarted() {
	req := testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/kyc/status"), "user-1")
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"status":"NONE"`)
}

func (s *HandlerSuite) seedSubject(applicantID, userID string) {
	s.Require().NoError(s.store.Create(s.ctx, &kyc.Subject{
		UserID:      userID,
		ApplicantID: applicantID,
		Status:      kyc.StatusPending,
	}))
}

func (s *HandlerSuite) TestWebhookApproves() {
	s.seedSubject("app-1", "user-1")

	payload := []byte(`{"applicantId":"app-1","correlationId":"req-1","type":"applicantReviewed","reviewStatus":"completed","reviewResult":{"reviewAnswer":"GREEN"}}`)
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/sumsub", string(payload))
	req.Header.Set(SignatureHeader, sign(payload))

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"success":true`)

	stored, err := s.store.GetByApplicantID(s.ctx, "app-1")
	s.Require().NoError(err)
	s.Equal(kyc.StatusApproved, stored.Status)
	s.Equal("req-1", stored.LastEventID)
}

func (s *HandlerSuite) TestWebhookBadSignature() {
	s.seedSubject("app-1", "user-1")

	payload := []byte(`{"applicantId":"app-1","reviewResult":{"reviewAnswer":"GREEN"}}`)
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/sumsub", string(payload))
	req.Header.Set(SignatureHeader, "deadbeef")

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rr.Code)

	stored, err := s.store.GetByApplicantID(s.ctx, "app-1")
	s.Require().NoError(err)
	s.Equal(kyc.StatusPending, stored.Status)

	s.Equal(1, s.recorder.requests["webhook"])
	s.Equal(1, s.recorder.failures["invalid_signature"])
}

func (s *HandlerSuite) TestWebhookMissingSignature() {
	payload := []byte(`{"applicantId":"app-1"}`)
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/sumsub", string(payload))

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
	s.Equal(1, s.recorder.failures["invalid_signature"])
}

func (s *HandlerSuite) TestWebhookMalformedPayload() {
	payload := []byte(`{"applicantId":`)
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/sumsub", string(payload))
	req.Header.Set(SignatureHeader, sign(payload))

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal(1, s.recorder.failures["malformed_payload"])
}

func (s *HandlerSuite) TestWebhookMissingApplicant() {
	payload := []byte(`{"reviewStatus":"pending"}`)
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/sumsub", string(payload))
	req.Header.Set(SignatureHeader, sign(payload))

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestWebhookUnknownApplicantAcknowledged() {
	payload := []byte(`{"applicantId":"app-unknown","reviewResult":{"reviewAnswer":"GREEN"}}`)
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/webhooks/sumsub", string(payload))
	req.Header.Set(SignatureHeader, sign(payload))

	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusOK, rr.Code)
}
