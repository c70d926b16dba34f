package database

import (
	"errors"
	"fmt"

	"quizonomy/internal/apperr"

	"gorm.io/gorm"
)

// StoreErr maps a gorm error to the application sentinels. It relies on
// TranslateError being set so unique violations surface as
// gorm.ErrDuplicatedKey.
func StoreErr(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, apperr.ErrConflict)
	default:
		return fmt.Errorf("%s: %w: %v", op, apperr.ErrStoreUnavailable, err)
	}
}
