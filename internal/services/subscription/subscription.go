// Package subscription implements plan status reporting, the tier catalogue
// and the Paystack-backed upgrade flow: initialize a checkout session,
// record a pending transaction, then verify and apply the plan change.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bizflowhq/bizflow-backend/internal/lib/days"
	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/paystack"
)

// ErrPaymentNotSettled is returned by VerifyUpgrade when the gateway still
// reports the transaction as unsettled.
var ErrPaymentNotSettled = errors.New("payment is not settled yet")

type SubscriptionRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	UpdateSubscription(ctx context.Context, userUID, plan, status string, start, end *time.Time) error
	CreateTransaction(ctx context.Context, tx models.SubscriptionTransaction) (int, error)
	GetTransactionByReference(ctx context.Context, userUID, reference string) (*models.SubscriptionTransaction, error)
	GetTransactionOwner(ctx context.Context, reference string) (string, error)
	FinalizeTransaction(ctx context.Context, reference, status string, paidAt time.Time) error
	ListTransactions(ctx context.Context, userUID string, limit, offset int) ([]*models.SubscriptionTransaction, error)
	SetUsageCount(ctx context.Context, userUID, feature string, cycleStart time.Time, count, limit int) error
}

type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResponse, error)
}

// Status is the real-time subscription snapshot returned to the client.
type Status struct {
	Plan          string         `json:"plan"`
	Status        string         `json:"status"`
	EndDate       *time.Time     `json:"end_date,omitempty"`
	DaysRemaining int            `json:"days_remaining"`
	TimeRemaining string         `json:"time_remaining"`
	Warning       *days.Warning  `json:"warning,omitempty"`
	Limits        map[string]int `json:"limits"`
}

// Checkout is the result of initializing an upgrade payment.
type Checkout struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	AmountKobo       int64  `json:"amount_kobo"`
	Plan             string `json:"plan"`
}

type SubscriptionService struct {
	repo    SubscriptionRepository
	gateway PaymentGateway
	log     *slog.Logger
}

func New(repo SubscriptionRepository, gateway PaymentGateway, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:    repo,
		gateway: gateway,
		log:     log,
	}
}

// GetStatus computes the user's subscription state against the clock: whole
// days remaining, a formatted countdown for the UI and at most one
// expiration warning. Expiry observed here is reported but not persisted;
// the downgrade job owns the state transition.
func (s *SubscriptionService) GetStatus(ctx context.Context, userUID string) (*Status, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	plan := models.PlanByName(user.SubscriptionPlan)
	result := &Status{
		Plan:   plan.Name,
		Status: user.SubscriptionStatus,
		Limits: plan.Limits,
	}

	end := user.SubscriptionEndDate
	if end == nil {
		end = user.TrialEndDate
	}
	if end == nil {
		return result, nil
	}

	now := time.Now().UTC()
	result.EndDate = end
	result.DaysRemaining = days.RemainingDays(now, *end)
	result.TimeRemaining = days.FormatRemaining(now, *end)
	if days.IsExpired(now, *end) {
		result.Status = models.StatusExpired
	} else {
		result.Warning = days.WarningFor(result.DaysRemaining)
	}
	return result, nil
}

// ListPlans returns the tier catalogue in ascending price order.
func (s *SubscriptionService) ListPlans(_ context.Context) []models.Plan {
	return []models.Plan{
		models.Plans[models.PlanFree],
		models.Plans[models.PlanWeekly],
		models.Plans[models.PlanMonthly],
		models.Plans[models.PlanYearly],
	}
}

// InitializeUpgrade starts a Paystack checkout session for a paid plan and
// records a pending transaction under a fresh reference.
func (s *SubscriptionService) InitializeUpgrade(ctx context.Context, userUID string, req models.DummyUpgrade) (*Checkout, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	plan, ok := models.Plans[req.Plan]
	if !ok || plan.PriceKobo == 0 {
		return nil, fmt.Errorf("plan %q is not purchasable", req.Plan)
	}

	reference := uuid.New().String()
	resp, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:     user.Email,
		Amount:    plan.PriceKobo,
		Reference: reference,
		Metadata: map[string]string{
			"user_uid": userUID,
			"plan":     plan.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment: %w", err)
	}

	_, err = s.repo.CreateTransaction(ctx, models.SubscriptionTransaction{
		UserUID:    userUID,
		Reference:  reference,
		Plan:       plan.Name,
		AmountKobo: plan.PriceKobo,
		Status:     models.TxPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.log.Info("initialized plan upgrade",
		slog.String("user_uid", userUID),
		slog.String("plan", plan.Name),
		slog.String("reference", reference))

	return &Checkout{
		Reference:        reference,
		AuthorizationURL: resp.Data.AuthorizationURL,
		AccessCode:       resp.Data.AccessCode,
		AmountKobo:       plan.PriceKobo,
		Plan:             plan.Name,
	}, nil
}

// VerifyUpgrade confirms a payment with the gateway and applies the plan:
// activation, a usage counter reset for the running cycle and transaction
// finalization. A renewal of an unexpired subscription extends from the
// current end date, so no paid time is lost. Finalization only touches
// pending transactions, which makes replayed verifications harmless.
func (s *SubscriptionService) VerifyUpgrade(ctx context.Context, userUID string, req models.DummyVerify) (*Status, error) {
	tx, err := s.repo.GetTransactionByReference(ctx, userUID, req.Reference)
	if err != nil {
		return nil, fmt.Errorf("unknown transaction reference: %w", err)
	}

	if tx.Status == models.TxPending {
		resp, err := s.gateway.VerifyTransaction(ctx, req.Reference)
		if err != nil {
			return nil, fmt.Errorf("failed to verify payment: %w", err)
		}
		if resp.Data.Status != "success" {
			return nil, ErrPaymentNotSettled
		}
		if err := s.applyPlan(ctx, userUID, tx.Plan, req.Reference); err != nil {
			return nil, err
		}
	}

	return s.GetStatus(ctx, userUID)
}

// ApplySettledPayment activates the plan behind an already-confirmed
// payment, used by the webhook path where the gateway has told us the
// charge succeeded.
func (s *SubscriptionService) ApplySettledPayment(ctx context.Context, userUID, reference string) error {
	tx, err := s.repo.GetTransactionByReference(ctx, userUID, reference)
	if err != nil {
		return fmt.Errorf("unknown transaction reference: %w", err)
	}
	if tx.Status != models.TxPending {
		return nil
	}
	return s.applyPlan(ctx, userUID, tx.Plan, reference)
}

func (s *SubscriptionService) applyPlan(ctx context.Context, userUID, planName, reference string) error {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	plan := models.PlanByName(planName)

	now := time.Now().UTC()
	start := now
	base := now
	if user.SubscriptionEndDate != nil && user.SubscriptionEndDate.After(now) &&
		user.SubscriptionPlan == plan.Name {
		base = *user.SubscriptionEndDate
	}
	end := days.EndDate(base, plan.DurationDays)

	if err := s.repo.UpdateSubscription(ctx, userUID, plan.Name, models.StatusActive, &start, &end); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	// A plan change opens a fresh quota cycle: counters restart at zero
	// with the new plan's limits, so quota consumed on the old tier does
	// not carry into the paid one.
	cycleStart := days.CycleStart(now)
	for _, feature := range []string{models.FeatureInvoices, models.FeatureSales, models.FeatureExpenses} {
		if err := s.repo.SetUsageCount(ctx, userUID, feature, cycleStart, 0, plan.Limits[feature]); err != nil {
			return fmt.Errorf("failed to reset usage counters: %w", err)
		}
	}

	if err := s.repo.FinalizeTransaction(ctx, reference, models.TxSuccess, now); err != nil {
		return fmt.Errorf("failed to finalize transaction: %w", err)
	}

	s.log.Info("applied plan upgrade",
		slog.String("user_uid", userUID),
		slog.String("plan", plan.Name),
		slog.Time("end_date", end))
	return nil
}

// FindTransactionOwner resolves which user initiated the transaction with
// the given gateway reference. Used by the webhook path, which has no
// authenticated user on the request.
func (s *SubscriptionService) FindTransactionOwner(ctx context.Context, reference string) (string, error) {
	return s.repo.GetTransactionOwner(ctx, reference)
}

// ListTransactions returns the user's payment history, newest first.
func (s *SubscriptionService) ListTransactions(ctx context.Context, userUID string, limit, offset int) ([]*models.SubscriptionTransaction, error) {
	return s.repo.ListTransactions(ctx, userUID, limit, offset)
}
