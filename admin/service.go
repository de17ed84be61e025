// Package admin is the boundary between the outer tier and the reseller
// engine. It accepts raw string identifiers and request bodies, validates
// them, and answers every call with a Result envelope.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// Service exposes engine operations to administrative callers.
type Service struct {
	engine   *reseller.Engine
	validate *validator.Validate
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for recovered panics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a Service over engine.
func New(engine *reseller.Engine, opts ...Option) *Service {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	s := &Service{
		engine:   engine,
		validate: v,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Register creates a pending reseller.
func (s *Service) Register(ctx context.Context, actor reseller.Actor, req RegisterRequest) Result[*account.Reseller] {
	return run(s, "register", func() (*account.Reseller, []error, error) {
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		r, err := s.engine.Register(ctx, actor, reseller.RegisterInput{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		})
		return r, nil, err
	})
}

// Approve approves a pending or rejected reseller.
func (s *Service) Approve(ctx context.Context, actor reseller.Actor, resellerID string, req ApproveRequest) Result[*reseller.ApprovalResult] {
	return run(s, "approve", func() (*reseller.ApprovalResult, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		in := reseller.ApproveInput{
			GracePeriodDays: req.GracePeriodDays,
			NumberLimit:     req.NumberLimit,
			ValidityDate:    req.ValidityDate,
		}
		if req.WalletBalance != "" {
			if in.WalletBalance, err = s.money("wallet_balance", req.WalletBalance); err != nil {
				return nil, nil, err
			}
		}
		res, err := s.engine.Approve(ctx, actor, rid, in)
		if err != nil {
			return nil, nil, err
		}
		return res, res.Warnings, nil
	})
}

// Reject rejects a pending reseller.
func (s *Service) Reject(ctx context.Context, actor reseller.Actor, resellerID string, req ReasonRequest) Result[*account.Reseller] {
	return run(s, "reject", func() (*account.Reseller, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		r, err := s.engine.Reject(ctx, actor, rid, req.Reason)
		return r, nil, err
	})
}

// Suspend suspends an approved reseller.
func (s *Service) Suspend(ctx context.Context, actor reseller.Actor, resellerID string, req ReasonRequest) Result[*reseller.TransitionResult] {
	return run(s, "suspend", func() (*reseller.TransitionResult, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		res, err := s.engine.Suspend(ctx, actor, rid, req.Reason)
		if err != nil {
			return nil, nil, err
		}
		return res, res.Warnings, nil
	})
}

// Reactivate lifts a suspension.
func (s *Service) Reactivate(ctx context.Context, actor reseller.Actor, resellerID string) Result[*reseller.TransitionResult] {
	return run(s, "reactivate", func() (*reseller.TransitionResult, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		res, err := s.engine.Reactivate(ctx, actor, rid)
		if err != nil {
			return nil, nil, err
		}
		return res, res.Warnings, nil
	})
}

// SetActive toggles the administrative active flag.
func (s *Service) SetActive(ctx context.Context, actor reseller.Actor, resellerID string, req StatusRequest) Result[*account.Reseller] {
	return run(s, "set active", func() (*account.Reseller, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		r, err := s.engine.SetActive(ctx, actor, rid, *req.Active)
		return r, nil, err
	})
}

// GetReseller returns a reseller.
func (s *Service) GetReseller(ctx context.Context, resellerID string) Result[*account.Reseller] {
	return run(s, "get reseller", func() (*account.Reseller, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		r, err := s.engine.GetReseller(ctx, rid)
		return r, nil, err
	})
}

// ListResellers lists resellers, optionally filtered by state.
func (s *Service) ListResellers(ctx context.Context, req ListResellersRequest) Result[[]*account.Reseller] {
	return run(s, "list resellers", func() ([]*account.Reseller, []error, error) {
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		list, err := s.engine.ListResellers(ctx, account.ListOpts{
			State:  account.State(req.State),
			Limit:  req.Limit,
			Offset: req.Offset,
		})
		return list, nil, err
	})
}

// ──────────────────────────────────────────────────
// Wallet and validity
// ──────────────────────────────────────────────────

// Recharge credits a reseller wallet and moves its validity window.
func (s *Service) Recharge(ctx context.Context, actor reseller.Actor, resellerID string, req RechargeRequest) Result[*reseller.RechargeResult] {
	return run(s, "recharge", func() (*reseller.RechargeResult, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		amount, err := s.money("amount", req.Amount)
		if err != nil {
			return nil, nil, err
		}
		res, err := s.engine.Recharge(ctx, actor, rid, reseller.RechargeInput{
			Amount:       amount,
			Description:  req.Description,
			Reference:    req.Reference,
			ValidityDate: req.ValidityDate,
		})
		if err != nil {
			return nil, nil, err
		}
		return res, res.Warnings, nil
	})
}

// Debit charges a reseller wallet.
func (s *Service) Debit(ctx context.Context, actor reseller.Actor, resellerID string, req DebitRequest) Result[*reseller.Posting] {
	return run(s, "debit", func() (*reseller.Posting, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		amount, err := s.money("amount", req.Amount)
		if err != nil {
			return nil, nil, err
		}
		p, err := s.engine.Debit(ctx, actor, rid, reseller.DebitInput{
			Amount:      amount,
			Description: req.Description,
			Reference:   req.Reference,
		})
		return p, nil, err
	})
}

// GetWallet returns the wallet of a reseller.
func (s *Service) GetWallet(ctx context.Context, resellerID string) Result[*wallet.Wallet] {
	return run(s, "get wallet", func() (*wallet.Wallet, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		w, err := s.engine.GetWallet(ctx, rid)
		return w, nil, err
	})
}

// ListTransactions returns a wallet statement, newest first.
func (s *Service) ListTransactions(ctx context.Context, walletID string, req ListTransactionsRequest) Result[[]*wallet.Transaction] {
	return run(s, "list transactions", func() ([]*wallet.Transaction, []error, error) {
		wid, err := reseller.ValidateID("wallet_id", walletID, id.PrefixWallet)
		if err != nil {
			return nil, nil, err
		}
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		list, err := s.engine.ListTransactions(ctx, wid, wallet.ListOpts{
			Type:   wallet.TxnType(req.Type),
			Limit:  req.Limit,
			Offset: req.Offset,
		})
		return list, nil, err
	})
}

// UpdateValidity sets an explicit validity end date.
func (s *Service) UpdateValidity(ctx context.Context, actor reseller.Actor, resellerID string, req ValidityRequest) Result[*validity.Record] {
	return run(s, "update validity", func() (*validity.Record, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		rec, err := s.engine.UpdateValidity(ctx, actor, rid, req.EndDate)
		return rec, nil, err
	})
}

// GetValidity returns the validity record of a reseller.
func (s *Service) GetValidity(ctx context.Context, resellerID string) Result[*validity.Record] {
	return run(s, "get validity", func() (*validity.Record, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		rec, err := s.engine.GetValidity(ctx, rid)
		return rec, nil, err
	})
}

// ListValidityHistory returns the validity history of a reseller, newest first.
func (s *Service) ListValidityHistory(ctx context.Context, resellerID string, req ListHistoryRequest) Result[[]*validity.History] {
	return run(s, "list validity history", func() ([]*validity.History, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		list, err := s.engine.ListValidityHistory(ctx, rid, validity.ListOpts{
			Action: validity.Action(req.Action),
			Limit:  req.Limit,
			Offset: req.Offset,
		})
		return list, nil, err
	})
}

// ──────────────────────────────────────────────────
// Number limits
// ──────────────────────────────────────────────────

// SetNumberLimit writes the virtual number cap of a reseller.
func (s *Service) SetNumberLimit(ctx context.Context, actor reseller.Actor, resellerID string, req NumberLimitRequest) Result[*numberlimit.Limit] {
	return run(s, "set number limit", func() (*numberlimit.Limit, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		if err := s.check(req); err != nil {
			return nil, nil, err
		}
		l, err := s.engine.SetNumberLimit(ctx, actor, rid, *req.MaxVirtualNumbers)
		return l, nil, err
	})
}

// GetNumberLimit returns the virtual number cap of a reseller.
func (s *Service) GetNumberLimit(ctx context.Context, resellerID string) Result[*numberlimit.Limit] {
	return run(s, "get number limit", func() (*numberlimit.Limit, []error, error) {
		rid, err := reseller.ValidateID("reseller_id", resellerID, id.PrefixReseller)
		if err != nil {
			return nil, nil, err
		}
		l, err := s.engine.GetNumberLimit(ctx, rid)
		return l, nil, err
	})
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// run executes fn and folds its outcome into a Result. A panic becomes a
// failed result instead of unwinding into the caller.
func run[T any](s *Service, op string, fn func() (T, []error, error)) (res Result[T]) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("admin: operation panicked",
				"op", op,
				"panic", fmt.Sprint(p),
			)
			res = Result[T]{
				message: fmt.Sprintf("%s: internal error", op),
				kind:    reseller.KindUnknown,
			}
		}
	}()

	v, warnings, err := fn()
	if err != nil {
		return Fail[T](err)
	}
	return OK(v, warnings...)
}

// check validates a request body and reports the first failing field as a
// reseller.ValidationError.
func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return reseller.ValidationError{Field: "request", Message: err.Error()}
	}
	fe := verrs[0]
	return reseller.ValidationError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be an email address"
	case "numeric":
		return "must be a decimal amount"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
}

// money parses a decimal string in the engine currency.
func (s *Service) money(field, raw string) (types.Money, error) {
	m, err := types.Parse(raw, s.engine.Currency())
	if err != nil {
		return types.Money{}, reseller.ValidationError{Field: field, Message: "must be a decimal amount"}
	}
	return m, nil
}
