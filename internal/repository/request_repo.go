package repository

import (
	"errors"

	"gorm.io/gorm"

	"buildline/internal/models"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(req *models.Request) error {
	return r.db.Create(req).Error
}

// GetByPaymentID returns the request linked to a payment, or nil when the
// payment has not been dispatched yet.
func (r *RequestRepository) GetByPaymentID(paymentID uint) (*models.Request, error) {
	var req models.Request
	if err := r.db.Where("payment_id = ?", paymentID).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}
