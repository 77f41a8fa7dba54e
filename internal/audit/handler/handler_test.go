package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/KarimBkr/MyTsango/internal/audit"
	auditmemory "github.com/KarimBkr/MyTsango/internal/audit/store/memory"
	"github.com/KarimBkr/MyTsango/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctx       context.Context
	publisher *audit.Publisher
	router    chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.publisher = audit.NewPublisher(auditmemory.NewInMemoryStore(), nil, logger)

	s.router = chi.NewRouter()
	New(s.publisher, logger).Register(s.router)
}

func (s *HandlerSuite) TestListOwnEntries() {
	s.Require().NoError(s.publisher.Emit(s.ctx, audit.Entry{
		UserID: "user-1",
		Action: audit.ActionKYCStarted,
	}))
	s.Require().NoError(s.publisher.Emit(s.ctx, audit.Entry{
		UserID:  "user-1",
		Action:  audit.ActionPaymentCreated,
		Details: []byte(`{"amount":5000}`),
	}))
	s.Require().NoError(s.publisher.Emit(s.ctx, audit.Entry{
		UserID: "user-2",
		Action: audit.ActionKYCStarted,
	}))

	req := testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/audit"), "user-1")
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"action":"kyc_started"`)
	s.Contains(rr.Body.String(), `"action":"payment_created"`)
	s.Contains(rr.Body.String(), `"details":{"amount":5000}`)
}

func (s *HandlerSuite) TestListScopedToCaller() {
	s.Require().NoError(s.publisher.Emit(s.ctx, audit.Entry{
		UserID: "user-2",
		Action: audit.ActionKYCApproved,
	}))

	req := testutil.WithUserID(testutil.NewRequest(s.T(), http.MethodGet, "/audit"), "user-1")
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"entries":[]`)
}

func (s *HandlerSuite) TestListWithoutIdentity() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/audit")
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
}
