package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mek0124/momentum/internal/apperror"
	"github.com/mek0124/momentum/internal/cache"
	"github.com/mek0124/momentum/internal/config"
	"github.com/mek0124/momentum/internal/models"
	"github.com/mek0124/momentum/internal/worker"

	"github.com/gofrs/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Webhook event types this service reconciles. Everything else is
// acknowledged and ignored so the processor stops retrying.
const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionDeleted = "customer.subscription.deleted"
)

const subscriptionCacheTTL = 15 * time.Minute

type SubscriptionStatus struct {
	IsSubscribed bool   `json:"is_subscribed"`
	Plan         string `json:"plan"`
}

type CheckoutSession struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	CheckoutURL string `json:"checkout_url"`
}

// JobQueue is the slice of the worker the reconciler needs; nil disables
// notifications.
type JobQueue interface {
	Enqueue(ctx context.Context, queue string, job *worker.Job) error
}

type BillingService interface {
	Status(db *gorm.DB, userID uuid.UUID) (SubscriptionStatus, error)
	CreateCheckoutSession(user *models.User) (CheckoutSession, error)
	HandleWebhook(db *gorm.DB, payload []byte, sigHeader string) error
	Cancel(db *gorm.DB, user *models.User) error
}

// BillingServiceImpl keeps the subscription flag consistent with the
// payment processor. Both webhook transitions are idempotent assignments
// on a single boolean, so at-least-once, out-of-order delivery needs no
// dedup storage: replaying an event writes the value already present.
type BillingServiceImpl struct {
	cfg     config.BillingConfig
	baseURL string
	users   UserService
	cache   *cache.RedisCache
	jobs    JobQueue
	log     *zap.Logger

	// swapped out by tests; production uses the Stripe API
	newCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewBillingService(cfg config.BillingConfig, baseURL string, users UserService, cacheInstance *cache.RedisCache, jobs JobQueue, log *zap.Logger) *BillingServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	stripe.Key = cfg.StripeSecretKey

	return &BillingServiceImpl{
		cfg:                cfg,
		baseURL:            baseURL,
		users:              users,
		cache:              cacheInstance,
		jobs:               jobs,
		log:                log,
		newCheckoutSession: session.New,
	}
}

// SetCheckoutCreator overrides the Stripe call; tests hand in a stub to
// stay off the network.
func (s *BillingServiceImpl) SetCheckoutCreator(fn func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)) {
	s.newCheckoutSession = fn
}

func subscriptionKey(userID uuid.UUID) string {
	return fmt.Sprintf("subscription:%s", userID)
}

func (s *BillingServiceImpl) Status(db *gorm.DB, userID uuid.UUID) (SubscriptionStatus, error) {
	if s.cache != nil {
		var cached SubscriptionStatus
		if err := s.cache.Get(subscriptionKey(userID), &cached); err == nil {
			return cached, nil
		}
	}

	user, err := s.users.GetByID(db, userID)
	if err != nil {
		return SubscriptionStatus{}, err
	}

	status := SubscriptionStatus{IsSubscribed: user.IsSubscribed, Plan: user.Plan()}
	if s.cache != nil {
		_ = s.cache.Set(subscriptionKey(userID), status, subscriptionCacheTTL)
	}
	return status, nil
}

func (s *BillingServiceImpl) CreateCheckoutSession(user *models.User) (CheckoutSession, error) {
	if s.cfg.StripeSecretKey == "" || s.cfg.StripePriceID == "" {
		return CheckoutSession{}, apperror.New(apperror.BillingConfig,
			"billing is not configured, contact the administrator")
	}
	if user.IsSubscribed {
		return CheckoutSession{}, apperror.New(apperror.Conflict, "user already has an active subscription")
	}

	params := &stripe.CheckoutSessionParams{
		// The username doubles as the processor-side customer email; the
		// subscription-deleted webhook correlates on it (see HandleWebhook).
		CustomerEmail:      stripe.String(user.Username),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.baseURL + "/subscription/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.baseURL + "/subscription/cancel"),
	}
	params.AddMetadata("user_id", user.ID.String())

	sess, err := s.newCheckoutSession(params)
	if err != nil {
		return CheckoutSession{}, apperror.Wrap(apperror.Internal, "failed to create checkout session", err)
	}

	return CheckoutSession{
		Status:      "checkout_created",
		Message:     "Checkout session created",
		CheckoutURL: sess.URL,
	}, nil
}

// HandleWebhook authenticates the raw payload and drives the per-user
// state machine. Once the signature checks out, every outcome is a
// success from the processor's point of view: unknown event types and
// correlations that resolve to no user are acknowledged no-ops, because
// surfacing them as errors would only trigger pointless retries.
func (s *BillingServiceImpl) HandleWebhook(db *gorm.DB, payload []byte, sigHeader string) error {
	if s.cfg.StripeWebhookSecret == "" {
		return apperror.New(apperror.BillingConfig, "webhook secret is not configured")
	}
	if sigHeader == "" {
		return apperror.New(apperror.SignatureInvalid, "missing webhook signature")
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return apperror.Wrap(apperror.SignatureInvalid, "webhook verification failed", err)
	}

	switch string(event.Type) {
	case eventCheckoutCompleted:
		return s.applyCheckoutCompleted(db, event.Data.Raw)
	case eventSubscriptionDeleted:
		return s.applySubscriptionDeleted(db, event.Data.Raw)
	default:
		s.log.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
		return nil
	}
}

func (s *BillingServiceImpl) applyCheckoutCompleted(db *gorm.DB, raw json.RawMessage) error {
	var data struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		s.log.Warn("undecodable checkout event", zap.Error(err))
		return nil
	}

	userID, err := uuid.FromString(data.Metadata["user_id"])
	if err != nil {
		s.log.Warn("checkout event without usable user_id metadata")
		return nil
	}

	user, err := s.users.GetByID(db, userID)
	if err != nil {
		if apperror.IsKind(err, apperror.NotFound) {
			s.log.Warn("checkout event for unknown user", zap.String("user_id", userID.String()))
			return nil
		}
		return err
	}

	if err := s.users.SetSubscribed(db, user.ID, true); err != nil {
		return err
	}
	s.afterTransition(user, true)
	return nil
}

func (s *BillingServiceImpl) applySubscriptionDeleted(db *gorm.DB, raw json.RawMessage) error {
	var data struct {
		CustomerEmail string `json:"customer_email"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		s.log.Warn("undecodable subscription event", zap.Error(err))
		return nil
	}
	if data.CustomerEmail == "" {
		return nil
	}

	// Correlates the processor's customer email against the username set
	// at checkout time. Persisting the Stripe customer ID on the user
	// would be the sturdier key; recorded as a known weak link.
	user, err := s.users.GetByUsername(db, data.CustomerEmail)
	if err != nil {
		if apperror.IsKind(err, apperror.NotFound) {
			s.log.Warn("subscription event for unknown customer", zap.String("customer_email", data.CustomerEmail))
			return nil
		}
		return err
	}

	if err := s.users.SetSubscribed(db, user.ID, false); err != nil {
		return err
	}
	s.afterTransition(user, false)
	return nil
}

// Cancel clears the flag locally. It does not call back into the payment
// processor; the stored subscription keeps billing until it lapses there.
func (s *BillingServiceImpl) Cancel(db *gorm.DB, user *models.User) error {
	if !user.IsSubscribed {
		return apperror.New(apperror.Conflict, "no active subscription found")
	}

	if err := s.users.SetSubscribed(db, user.ID, false); err != nil {
		return err
	}
	s.afterTransition(user, false)
	return nil
}

func (s *BillingServiceImpl) afterTransition(user *models.User, subscribed bool) {
	if s.cache != nil {
		_ = s.cache.Delete(subscriptionKey(user.ID))
	}
	if s.jobs != nil {
		job := &worker.Job{
			Type: worker.JobTypeSubscriptionNotice,
			Payload: map[string]interface{}{
				"user_id":    user.ID.String(),
				"username":   user.Username,
				"subscribed": subscribed,
			},
		}
		if err := s.jobs.Enqueue(context.Background(), "default", job); err != nil {
			s.log.Warn("failed to enqueue subscription notice", zap.Error(err))
		}
	}
	s.log.Info("subscription flag updated",
		zap.String("user_id", user.ID.String()),
		zap.Bool("subscribed", subscribed),
	)
}
