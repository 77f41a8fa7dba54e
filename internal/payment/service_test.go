package payment_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KarimBkr/MyTsango/internal/audit"
	auditmemory "github.com/KarimBkr/MyTsango/internal/audit/store/memory"
	"github.com/KarimBkr/MyTsango/internal/payment"
	"github.com/KarimBkr/MyTsango/internal/payment/mocks"
	paymentstore "github.com/KarimBkr/MyTsango/internal/payment/store"
	"github.com/KarimBkr/MyTsango/pkg/apperrors"
)

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	ctrl       *gomock.Controller
	provider   *mocks.MockProvider
	store      *paymentstore.InMemoryStore
	auditStore *auditmemory.InMemoryStore
	service    *payment.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.provider = mocks.NewMockProvider(s.ctrl)
	s.store = paymentstore.NewInMemoryStore()
	s.auditStore = auditmemory.NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = payment.NewService(s.store, s.provider,
		audit.NewPublisher(s.auditStore, nil, logger), nil, logger, 5, 500)
}

func (s *ServiceSuite) TestCreate() {
	s.provider.EXPECT().
		CreateIntent(gomock.Any(), int64(5000), "Circle circle-1 contribution",
			map[string]string{"circleId": "circle-1", "userId": "user-1"}).
		Return(&payment.Intent{ID: "pi-1", ClientSecret: "pi-1_secret"}, nil)

	result, err := s.service.Create(s.ctx, "circle-1", "user-1", 50)
	s.Require().NoError(err)
	s.Equal("pi-1", result.IntentID)
	s.Equal("pi-1_secret", result.ClientSecret)
	s.Equal(payment.StatusPending, result.Status)

	stored, err := s.store.GetByIntentID(s.ctx, "pi-1")
	s.Require().NoError(err)
	s.Equal(int64(5000), stored.AmountCents)
	s.Equal(payment.StatusPending, stored.Status)

	entries, err := s.auditStore.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionPaymentCreated, entries[0].Action)
}

func (s *ServiceSuite) TestCreateAmountOutOfBounds() {
	// No provider expectation: validation must run before any external call.
	for _, amount := range []int64{0, 4, 501, -10} {
		_, err := s.service.Create(s.ctx, "circle-1", "user-1", amount)
		s.Require().Error(err, "amount %d", amount)
		s.True(apperrors.HasCode(err, apperrors.CodeInvalidInput), "amount %d", amount)
	}
}

func (s *ServiceSuite) TestCreateBoundaryAmounts() {
	s.provider.EXPECT().
		CreateIntent(gomock.Any(), int64(500), gomock.Any(), gomock.Any()).
		Return(&payment.Intent{ID: "pi-min", ClientSecret: "cs"}, nil)
	s.provider.EXPECT().
		CreateIntent(gomock.Any(), int64(50000), gomock.Any(), gomock.Any()).
		Return(&payment.Intent{ID: "pi-max", ClientSecret: "cs"}, nil)

	_, err := s.service.Create(s.ctx, "circle-1", "user-1", 5)
	s.NoError(err)
	_, err = s.service.Create(s.ctx, "circle-1", "user-2", 500)
	s.NoError(err)
}

func (s *ServiceSuite) TestCreateProviderDown() {
	s.provider.EXPECT().
		CreateIntent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connect: timeout"))

	_, err := s.service.Create(s.ctx, "circle-1", "user-1", 50)
	s.Require().Error(err)
	s.True(apperrors.HasCode(err, apperrors.CodeUnavailable))
}

func (s *ServiceSuite) TestStatusScopedToOwner() {
	s.provider.EXPECT().
		CreateIntent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&payment.Intent{ID: "pi-1", ClientSecret: "cs"}, nil)

	created, err := s.service.Create(s.ctx, "circle-1", "user-1", 50)
	s.Require().NoError(err)

	result, err := s.service.Status(s.ctx, created.PaymentID, "user-1")
	s.Require().NoError(err)
	s.Equal(payment.StatusPending, result.Status)
	s.Equal("circle-1", result.CircleID)

	// Another user's read must look like a missing record.
	_, err = s.service.Status(s.ctx, created.PaymentID, "user-2")
	s.Require().Error(err)
	s.True(apperrors.HasCode(err, apperrors.CodeNotFound))
}
