package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"buildline/internal/domain"
	"buildline/internal/models"
)

var (
	ErrNotFound = errors.New("payment not found")
	// ErrStaleTransition is returned when a transition targets a payment that
	// already settled in a conflicting terminal state.
	ErrStaleTransition = errors.New("stale payment transition")
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByExternalRef(ref string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("external_ref = ?", ref).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByRefContains locates a payment whose external ref contains the given
// fragment. Charge-failure events only carry a partial reference.
func (r *PaymentRepository) GetByRefContains(fragment string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("external_ref LIKE ?", "%"+fragment+"%").First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SetExternalRef swaps the synthetic placeholder ref for the gateway's real one.
func (r *PaymentRepository) SetExternalRef(id uint, ref string) error {
	return r.db.Model(&models.Payment{}).Where("id = ?", id).Update("external_ref", ref).Error
}

// MarkVerified transitions PENDING → VERIFIED with a single conditional write,
// so concurrent calls for the same id are linearizable: exactly one caller
// observes alreadyVerified=false. A payment already VERIFIED reports
// alreadyVerified=true and nothing is mutated; an EXPIRED or FAILED payment
// rejects the transition with ErrStaleTransition.
func (r *PaymentRepository) MarkVerified(id uint) (alreadyVerified bool, err error) {
	now := time.Now()
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentPending).
		Updates(map[string]interface{}{"status": domain.PaymentVerified, "verified_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return false, nil
	}
	p, err := r.GetByID(id)
	if err != nil {
		return false, err
	}
	if p.Status == domain.PaymentVerified {
		return true, nil
	}
	return false, ErrStaleTransition
}

// MarkExpired transitions PENDING → EXPIRED. Already EXPIRED or FAILED is a
// no-op; VERIFIED rejects with ErrStaleTransition so a late expiry signal can
// never undo a verification.
func (r *PaymentRepository) MarkExpired(id uint) error {
	return r.markTerminal(id, domain.PaymentExpired)
}

// MarkFailed transitions PENDING → FAILED under the same rules as MarkExpired.
func (r *PaymentRepository) MarkFailed(id uint) error {
	return r.markTerminal(id, domain.PaymentFailed)
}

func (r *PaymentRepository) markTerminal(id uint, status string) error {
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, domain.PaymentPending).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	p, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if p.Status == domain.PaymentVerified {
		return ErrStaleTransition
	}
	// already EXPIRED or FAILED: duplicate delivery, nothing to do
	return nil
}
