package webhook

import (
	"errors"

	"github.com/ManuelReschke/PayFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the webhook service.
type Repository interface {
	GetOrderByProviderOrderID(providerOrderID string) (*models.Order, error)
	GetOrderByProviderPaymentID(providerPaymentID string) (*models.Order, error)
	SaveOrder(order *models.Order) error
	// UpsertTransaction creates or updates the transaction identified by
	// (order_id, reference) and reports whether a new row was created.
	UpsertTransaction(txn *models.Transaction) (bool, error)
	// CreateTransactionIfAbsent inserts only when no row exists for the
	// (order_id, reference) key; an existing row is never overwritten.
	CreateTransactionIfAbsent(txn *models.Transaction) (bool, error)
	CreateWebhookLog(entry *models.WebhookLog) error
	GetWebhookLog(id uint) (*models.WebhookLog, error)
	ListWebhookLogs(offset, limit int) ([]models.WebhookLog, error)
	BumpReplayCount(id uint) error
	GetDeveloperConfig() (*models.DeveloperConfig, error)
	SaveDeveloperConfig(cfg *models.DeveloperConfig) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a webhook repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetOrderByProviderOrderID(providerOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("razorpay_order_id = ?", providerOrderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) GetOrderByProviderPaymentID(providerPaymentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.Where("razorpay_payment_id = ?", providerPaymentID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) SaveOrder(order *models.Order) error {
	return r.db.Save(order).Error
}

func (r *gormRepository) UpsertTransaction(txn *models.Transaction) (bool, error) {
	var existing models.Transaction
	err := r.db.Where("order_id = ? AND reference = ?", txn.OrderID, txn.Reference).
		First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	created := false
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// A concurrent delivery may have inserted the row between the read
		// and this write; the unique index turns that race into an update.
		tx := r.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "order_id"},
				{Name: "reference"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"payload_json",
				"amount_cents",
				"kind",
				"updated_at",
			}),
		}).Create(txn)
		if tx.Error != nil {
			return false, tx.Error
		}
		created = tx.RowsAffected == 1
	} else {
		updates := map[string]interface{}{
			"status":       txn.Status,
			"payload_json": txn.PayloadJSON,
			"amount_cents": txn.AmountCents,
			"kind":         txn.Kind,
		}
		if err := r.db.Model(&models.Transaction{}).
			Where("id = ?", existing.ID).
			Updates(updates).Error; err != nil {
			return false, err
		}
	}

	// Ensure ID and timestamps are populated after the upsert.
	if err := r.db.Where("order_id = ? AND reference = ?", txn.OrderID, txn.Reference).
		First(txn).Error; err != nil {
		return false, err
	}
	return created, nil
}

func (r *gormRepository) CreateTransactionIfAbsent(txn *models.Transaction) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "order_id"},
			{Name: "reference"},
		},
		DoNothing: true,
	}).Create(txn)
	if tx.Error != nil {
		return false, tx.Error
	}

	created := tx.RowsAffected > 0
	if err := r.db.Where("order_id = ? AND reference = ?", txn.OrderID, txn.Reference).
		First(txn).Error; err != nil {
		return false, err
	}
	return created, nil
}

func (r *gormRepository) CreateWebhookLog(entry *models.WebhookLog) error {
	return r.db.Create(entry).Error
}

func (r *gormRepository) GetWebhookLog(id uint) (*models.WebhookLog, error) {
	var entry models.WebhookLog
	err := r.db.First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *gormRepository) ListWebhookLogs(offset, limit int) ([]models.WebhookLog, error) {
	var entries []models.WebhookLog
	err := r.db.Order("received_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}

func (r *gormRepository) BumpReplayCount(id uint) error {
	// Single SQL increment so concurrent replays never lose updates.
	return r.db.Model(&models.WebhookLog{}).
		Where("id = ?", id).
		UpdateColumn("replay_count", gorm.Expr("replay_count + ?", 1)).Error
}

func (r *gormRepository) GetDeveloperConfig() (*models.DeveloperConfig, error) {
	var cfg models.DeveloperConfig
	err := r.db.First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.DeveloperConfig{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *gormRepository) SaveDeveloperConfig(cfg *models.DeveloperConfig) error {
	if cfg.ID != 0 {
		return r.db.Save(cfg).Error
	}

	var existing models.DeveloperConfig
	err := r.db.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(cfg).Error
	}
	if err != nil {
		return err
	}
	cfg.ID = existing.ID
	return r.db.Save(cfg).Error
}
