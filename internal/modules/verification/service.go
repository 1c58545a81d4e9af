// README: COD verification gate: short-lived one-time codes guarding
// admission of cash-on-delivery orders into the assignable pool.
package verification

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"go.uber.org/zap"

	"kedai/internal/config"
	"kedai/internal/fault"
	"kedai/internal/metrics"
	"kedai/internal/modules/order"
	"kedai/internal/types"
)

type Service struct {
	store  order.Store
	orders *order.Service
	cfg    config.OTPConfig
	log    *zap.SugaredLogger
}

func NewService(store order.Store, orders *order.Service, cfg config.OTPConfig, log *zap.SugaredLogger) *Service {
	return &Service{store: store, orders: orders, cfg: cfg, log: log}
}

type GenerateCommand struct {
	OrderID int64
	Actor   types.Principal
}

// Issued reports the outcome of code generation. Trusted customers never
// see a code: their order is admitted immediately.
type Issued struct {
	Trusted   bool
	Code      string
	ExpiresAt time.Time
}

// Generate issues a fresh code for a COD order, replacing any earlier one.
// Customers with enough completed orders bypass the code entirely.
func (s *Service) Generate(ctx context.Context, cmd GenerateCommand) (*Issued, error) {
	var issued *Issued
	err := s.store.Lease(ctx, cmd.OrderID, func(ctx context.Context, uow order.UnitOfWork) error {
		o := uow.Order()
		if err := guardActor(o, cmd.Actor); err != nil {
			return err
		}
		if o.PaymentMethod != order.PaymentCOD {
			return fault.New(fault.PreconditionFailed, "verification applies to cash on delivery orders only")
		}
		if o.Status != order.StatusWaitingConfirmation {
			return fault.Newf(fault.PreconditionFailed, "order in %s does not need verification", o.Status)
		}

		now := time.Now()
		cust, err := uow.Customer(ctx, o.CustomerID)
		if err != nil {
			return err
		}
		if cust.CompletedOrders >= int64(s.cfg.TrustedOrderCount) {
			if err := uow.PutVerificationRecord(ctx, &order.VerificationRecord{
				OrderID:   o.ID,
				Verified:  true,
				Trusted:   true,
				CreatedAt: now,
			}); err != nil {
				return err
			}
			if err := s.orders.Apply(ctx, uow, order.StatusConfirmed, types.System, "trusted customer auto-admitted", nil); err != nil {
				return err
			}
			issued = &Issued{Trusted: true}
			return nil
		}

		code, err := sixDigitCode()
		if err != nil {
			return fault.Wrap(err)
		}
		expires := now.Add(s.cfg.TTL)
		if err := uow.PutVerificationRecord(ctx, &order.VerificationRecord{
			OrderID:   o.ID,
			Code:      code,
			ExpiresAt: expires,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		issued = &Issued{Code: code, ExpiresAt: expires}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if issued.Trusted {
		s.log.Infow("trusted customer admitted", "order_id", cmd.OrderID)
	} else {
		// The code itself stays out of the logs.
		s.log.Infow("verification code issued", "order_id", cmd.OrderID, "expires_at", issued.ExpiresAt)
	}
	return issued, nil
}

type VerifyCommand struct {
	OrderID int64
	Actor   types.Principal
	Code    string
}

// Verify checks a submitted code against the live record. Mismatches burn
// an attempt and are committed even though the call fails; expiry or
// attempt exhaustion require a fresh code. A match admits the order into
// the assignable pool.
func (s *Service) Verify(ctx context.Context, cmd VerifyCommand) error {
	var verr error
	err := s.store.Lease(ctx, cmd.OrderID, func(ctx context.Context, uow order.UnitOfWork) error {
		o := uow.Order()
		if err := guardActor(o, cmd.Actor); err != nil {
			return err
		}
		rec, err := uow.VerificationRecord(ctx)
		if err != nil {
			return err
		}
		if rec == nil {
			return fault.New(fault.PreconditionFailed, "no verification code issued for this order")
		}
		if rec.Verified {
			return fault.New(fault.PreconditionFailed, "order already verified")
		}
		if time.Now().After(rec.ExpiresAt) {
			metrics.OTPVerificationsTotal.WithLabelValues("expired").Inc()
			return fault.New(fault.ExpiredOrExhausted, "verification code expired, request a new one")
		}
		if rec.Attempts >= s.cfg.MaxAttempts {
			metrics.OTPVerificationsTotal.WithLabelValues("exhausted").Inc()
			return fault.New(fault.ExpiredOrExhausted, "too many attempts, request a new code")
		}
		if cmd.Code != rec.Code {
			rec.Attempts++
			if err := uow.PutVerificationRecord(ctx, rec); err != nil {
				return err
			}
			remaining := s.cfg.MaxAttempts - rec.Attempts
			metrics.OTPVerificationsTotal.WithLabelValues("mismatch").Inc()
			// The burned attempt must commit, so the failure is surfaced
			// outside the unit of work.
			verr = fault.Newf(fault.PreconditionFailed, "incorrect code, %d attempts remaining", remaining)
			return nil
		}

		rec.Verified = true
		if err := uow.PutVerificationRecord(ctx, rec); err != nil {
			return err
		}
		metrics.OTPVerificationsTotal.WithLabelValues("ok").Inc()
		return s.orders.Apply(ctx, uow, order.StatusConfirmed, types.System, "cash on delivery verified", nil)
	})
	if err != nil {
		return err
	}
	if verr == nil {
		s.log.Infow("cash on delivery verified", "order_id", cmd.OrderID)
	}
	return verr
}

func guardActor(o *order.Order, actor types.Principal) error {
	switch actor.Role {
	case types.RoleAdmin:
		return nil
	case types.RoleCustomer:
		if o.CustomerID == actor.ID {
			return nil
		}
		return fault.New(fault.NotOwner, "not your order")
	}
	return fault.New(fault.Forbidden, "verification is customer- or admin-driven")
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := n.Int64()
	digits := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		digits[i] = byte('0' + code%10)
		code /= 10
	}
	return string(digits), nil
}
