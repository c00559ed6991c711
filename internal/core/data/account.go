package data

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Account is the owning entity for a fleet of devices.
type Account struct {
	ID          uint64 `gorm:"primaryKey"`
	AccountID   string `gorm:"unique; not null"`
	Description string
	Active      bool `gorm:"default:true"`
	CreatedAt   time.Time
}

// FindAccountByAccountID searches for an account with the specified account id,
// returning the *Account instance if found or nil if there is no match.
func FindAccountByAccountID(db *gorm.DB, accountID string) (*Account, error) {
	var account Account
	err := db.Where("account_id = ?", accountID).First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// CreateAccount persists the Account record to the database.
func CreateAccount(db *gorm.DB, account *Account) error {
	return db.Create(account).Error
}
