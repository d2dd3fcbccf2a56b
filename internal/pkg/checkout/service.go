package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/payment"
	"github.com/ManuelReschke/PayFox/internal/pkg/webhook"
	"gorm.io/gorm"
)

// Service owns order creation: it persists the local order, creates the
// provider-side order and stores the provider order id before the caller
// proceeds to client-side payment collection. Everything after that point
// belongs to the webhook pipeline.
type Service struct {
	db   *gorm.DB
	repo webhook.Repository

	// NewClient builds the provider client for a resolved key pair.
	// Overridable in tests.
	NewClient func(keyID, keySecret string) *payment.RazorpayClient
}

// NewService creates a checkout service from a GORM DB handle.
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:        db,
		repo:      webhook.NewRepository(db),
		NewClient: payment.NewRazorpayClient,
	}
}

// CreateOrder creates a pending local order plus its provider order.
func (s *Service) CreateOrder(ctx context.Context, amountCents int64, customerEmail string, notes map[string]string) (*models.Order, *payment.ProviderOrder, error) {
	email := strings.TrimSpace(customerEmail)
	if amountCents <= 0 {
		return nil, nil, fmt.Errorf("order amount must be positive, got %d", amountCents)
	}

	order := &models.Order{
		CustomerEmail:    email,
		TotalAmountCents: amountCents,
		Status:           models.OrderStatusPending,
	}
	if len(notes) > 0 {
		if encoded, err := json.Marshal(notes); err == nil {
			order.NotesJSON = string(encoded)
		}
	}
	if err := s.db.Create(order).Error; err != nil {
		return nil, nil, fmt.Errorf("create order: %w", err)
	}

	cfg, err := s.repo.GetDeveloperConfig()
	if err != nil {
		return nil, nil, err
	}
	keyID, keySecret := webhook.ResolveRazorpayKeys(cfg)

	providerNotes := map[string]string{"order_id": order.ID}
	for k, v := range notes {
		providerNotes[k] = v
	}
	providerOrder, err := s.NewClient(keyID, keySecret).CreateOrder(ctx, amountCents, order.ID, providerNotes)
	if err != nil {
		return nil, nil, fmt.Errorf("create provider order: %w", err)
	}

	order.RazorpayOrderID = providerOrder.ID
	if err := s.db.Model(order).Update("razorpay_order_id", providerOrder.ID).Error; err != nil {
		return nil, nil, fmt.Errorf("store provider order id: %w", err)
	}
	return order, providerOrder, nil
}
