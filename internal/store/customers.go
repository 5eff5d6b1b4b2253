package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"seating-backend/internal/apperr"
	"seating-backend/internal/model"
	"seating-backend/internal/parse"
)

// FindOrCreateCustomer resolves a customer by the exact (first, last, phone)
// triple. Names are trimmed and compared case-insensitively; no other
// matching is attempted, so patrons sharing a phone stay distinct. A provided
// email replaces the stored one on a hit.
func (s *gormStore) FindOrCreateCustomer(ctx context.Context, firstName, lastName, phone string, email *string) (int64, error) {
	phone, err := parse.ValidatePhone(phone)
	if err != nil {
		return 0, err
	}
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" {
		return 0, apperr.Field(apperr.ErrInvalidArgument, "first_name", "first name must not be empty")
	}
	if lastName == "" {
		return 0, apperr.Field(apperr.ErrInvalidArgument, "last_name", "last name must not be empty")
	}
	email = trimmedOrNil(email)

	var id int64
	err = s.runTx(ctx, "find_or_create_customer", func(tx *gorm.DB, _ *txLocks) error {
		var existing model.Customer
		err := tx.Where("LOWER(first_name) = LOWER(?) AND LOWER(last_name) = LOWER(?) AND phone_number = ?",
			firstName, lastName, phone).
			Order("id").
			First(&existing).Error
		switch {
		case err == nil:
			id = existing.ID
			if email != nil && (existing.Email == nil || *existing.Email != *email) {
				return tx.Model(&existing).Update("email", *email).Error
			}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		customer := model.Customer{
			FirstName:   firstName,
			LastName:    lastName,
			PhoneNumber: phone,
			Email:       email,
		}
		if err := tx.Create(&customer).Error; err != nil {
			return err
		}
		id = customer.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *gormStore) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	var customer model.Customer
	err := s.db.WithContext(ctx).First(&customer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("customer", id)
	}
	if err != nil {
		return nil, classify(err, "get_customer")
	}
	return &customer, nil
}
