package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "splitledger/internal/errors"
)

// storeErr maps a gorm error onto the AppError taxonomy. AppErrors pass
// through untouched, which lets transaction closures return them directly.
func storeErr(err error, notFound, duplicate *apperrors.AppError) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if notFound != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	if duplicate != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Wrap(duplicate, err)
	}
	return apperrors.Wrap(apperrors.ErrPersistence, err)
}
