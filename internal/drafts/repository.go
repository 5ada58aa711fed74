package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDraftNotFound is returned when a draft id does not exist.
var ErrDraftNotFound = errors.New("draft not found")

type Repository interface {
	// CreateDraft persists a draft with its legs and items in one
	// transaction.
	CreateDraft(ctx context.Context, draft *DraftCheckout) error

	// GetByID loads a draft with legs and items eagerly.
	GetByID(ctx context.Context, id uuid.UUID) (*DraftCheckout, error)

	// CancelActiveForSession cancels every non-terminal draft of a session,
	// optionally sparing one. Returns how many were cancelled.
	CancelActiveForSession(ctx context.Context, sessionToken string, except *uuid.UUID) (int64, error)

	// ExpireSessionDrafts marks every still pending/paying draft of a
	// session as expired. Status is re-checked inside the transaction so a
	// concurrently finalized draft is left alone.
	ExpireSessionDrafts(ctx context.Context, sessionToken string) (int64, error)

	// SetPaying moves a pending draft to paying and records the payment
	// provider and intent id.
	SetPaying(ctx context.Context, id uuid.UUID, provider, intentID string) (*DraftCheckout, error)

	// ApplyCoupon records a coupon and the recomputed totals on a pending
	// draft.
	ApplyCoupon(ctx context.Context, id uuid.UUID, code string, discount, total float64) (*DraftCheckout, error)

	// FindOverdue lists session tokens of drafts whose expires_at has
	// passed while still pending/paying. Used by the safety-net sweeper.
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateDraft(ctx context.Context, draft *DraftCheckout) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(draft).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*DraftCheckout, error) {
	var draft DraftCheckout
	err := r.db.WithContext(ctx).
		Preload("Legs.Items").
		Preload("Legs").
		First(&draft, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return &draft, nil
}

func (r *repository) CancelActiveForSession(ctx context.Context, sessionToken string, except *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).Model(&DraftCheckout{}).
		Where("session_token = ? AND status IN ?", sessionToken, []string{StatusPending, StatusPaying})
	if except != nil {
		query = query.Where("id <> ?", *except)
	}
	result := query.Updates(map[string]interface{}{
		"status":     StatusCancelled,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cancel session drafts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repository) ExpireSessionDrafts(ctx context.Context, sessionToken string) (int64, error) {
	var expired int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		err := tx.Model(&DraftCheckout{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_token = ? AND status IN ?", sessionToken, []string{StatusPending, StatusPaying}).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		result := tx.Model(&DraftCheckout{}).
			Where("id IN ? AND status IN ?", ids, []string{StatusPending, StatusPaying}).
			Updates(map[string]interface{}{
				"status":     StatusExpired,
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		expired = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to expire session drafts: %w", err)
	}
	return expired, nil
}

func (r *repository) SetPaying(ctx context.Context, id uuid.UUID, provider, intentID string) (*DraftCheckout, error) {
	var draft DraftCheckout
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&draft, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDraftNotFound
			}
			return err
		}
		if draft.Status != StatusPending && draft.Status != StatusPaying {
			return fmt.Errorf("draft is %s: %w", draft.Status, ErrDraftNotActive)
		}
		return tx.Model(&draft).Updates(map[string]interface{}{
			"status":            StatusPaying,
			"payment_provider":  provider,
			"payment_intent_id": intentID,
			"updated_at":        time.Now().UTC(),
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) || errors.Is(err, ErrDraftNotActive) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to begin payment: %w", err)
	}
	return &draft, nil
}

func (r *repository) ApplyCoupon(ctx context.Context, id uuid.UUID, code string, discount, total float64) (*DraftCheckout, error) {
	var draft DraftCheckout
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&draft, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDraftNotFound
			}
			return err
		}
		if draft.Status != StatusPending {
			return fmt.Errorf("draft is %s: %w", draft.Status, ErrDraftNotActive)
		}
		return tx.Model(&draft).Updates(map[string]interface{}{
			"coupon_code": code,
			"discount":    discount,
			"total":       total,
			"updated_at":  time.Now().UTC(),
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) || errors.Is(err, ErrDraftNotActive) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to apply coupon: %w", err)
	}
	return &draft, nil
}

func (r *repository) FindOverdue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&DraftCheckout{}).
		Distinct("session_token").
		Where("status IN ? AND expires_at < ?", []string{StatusPending, StatusPaying}, now).
		Limit(limit).
		Pluck("session_token", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue drafts: %w", err)
	}
	return tokens, nil
}
