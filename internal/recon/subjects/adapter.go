// Package subjects bridges the domain stores to the reconciliation engine's
// persistence port, translating between the engine's subject view and the
// verification and payment records.
package subjects

import (
	"context"
	"fmt"

	"github.com/KarimBkr/MyTsango/internal/kyc"
	"github.com/KarimBkr/MyTsango/internal/payment"
	"github.com/KarimBkr/MyTsango/internal/recon"
)

// Adapter implements recon.SubjectStore over the kyc and payment stores.
type Adapter struct {
	verifications kyc.Store
	payments      payment.Store
}

func New(verifications kyc.Store, payments payment.Store) *Adapter {
	return &Adapter{verifications: verifications, payments: payments}
}

func (a *Adapter) Find(ctx context.Context, kind recon.Kind, key string) (*recon.Subject, error) {
	switch kind {
	case recon.KindVerification:
		s, err := a.verifications.GetByApplicantID(ctx, key)
		if err != nil {
			return nil, err
		}
		return &recon.Subject{
			Kind:        kind,
			Key:         key,
			RefID:       s.ID.String(),
			UserID:      s.UserID,
			Status:      recon.Status(s.Status),
			LastEventID: s.LastEventID,
		}, nil
	case recon.KindPayment:
		s, err := a.payments.GetByIntentID(ctx, key)
		if err != nil {
			return nil, err
		}
		return &recon.Subject{
			Kind:        kind,
			Key:         key,
			RefID:       s.ID.String(),
			UserID:      s.UserID,
			Status:      recon.Status(s.Status),
			LastEventID: s.LastEventID,
		}, nil
	default:
		return nil, fmt.Errorf("unknown subject kind %q", kind)
	}
}

func (a *Adapter) Apply(ctx context.Context, u recon.Update) (bool, error) {
	switch u.Kind {
	case recon.KindVerification:
		return a.verifications.ApplyReview(ctx, kyc.ApplyReviewParams{
			ApplicantID:  u.Key,
			ExpectStatus: kyc.Status(u.FromStatus),
			NewStatus:    kyc.Status(u.NewStatus),
			ReviewStatus: u.ReviewStatus,
			ReviewResult: u.Detail,
			RejectReason: u.RejectReason,
			EventID:      u.EventID,
			At:           u.OccurredAt,
		})
	case recon.KindPayment:
		return a.payments.ApplyOutcome(ctx, payment.ApplyOutcomeParams{
			IntentID:     u.Key,
			ExpectStatus: payment.Status(u.FromStatus),
			NewStatus:    payment.Status(u.NewStatus),
			EventID:      u.EventID,
			ReceiptURL:   u.ReceiptURL,
			Detail:       u.Detail,
			At:           u.OccurredAt,
		})
	default:
		return false, fmt.Errorf("unknown subject kind %q", u.Kind)
	}
}
