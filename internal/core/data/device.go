package data

import (
	"errors"

	"gorm.io/gorm"
)

// Device is one tracked GPS unit. UniqueID is the fully prefixed identifier
// (for example "imei_123456789012345") under which inbound telemetry is
// matched to this record; DeviceCode names the device communication server
// that handles the unit's protocol.
type Device struct {
	ID          uint64 `gorm:"primaryKey"`
	AccountID   string `gorm:"not null; index"`
	DeviceID    string `gorm:"not null"`
	UniqueID    string `gorm:"unique; not null"`
	DeviceCode  string
	Description string
	Active      bool `gorm:"default:true"`

	// Command-dispatch accounting. MaxPingCount <= 0 means unlimited.
	TotalPingCount int
	MaxPingCount   int
	LastPingTime   int64

	Account Account `gorm:"foreignKey:AccountID;references:AccountID"`
}

// FindDeviceByUniqueID searches for the device registered under the fully
// prefixed unique id, returning the *Device instance (with its Account
// association loaded) if found or nil if there is no match.
func FindDeviceByUniqueID(db *gorm.DB, uniqueID string) (*Device, error) {
	var device Device
	err := db.Preload("Account").Where("unique_id = ?", uniqueID).First(&device).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &device, nil
}

// FindDevice searches for a device by its account/device id pair, returning
// the *Device instance if found or nil if there is no match.
func FindDevice(db *gorm.DB, accountID, deviceID string) (*Device, error) {
	var device Device
	err := db.Preload("Account").
		Where("account_id = ? AND device_id = ?", accountID, deviceID).
		First(&device).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &device, nil
}

// CreateDevice persists the Device record to the database.
func CreateDevice(db *gorm.DB, device *Device) error {
	return db.Create(device).Error
}

// IncrementPingCount bumps the device's dispatched-command counter and
// persists the new count along with the dispatch timestamp.
func IncrementPingCount(db *gorm.DB, device *Device, timestamp int64) error {
	device.TotalPingCount++
	device.LastPingTime = timestamp
	return db.Model(device).Updates(map[string]interface{}{
		"total_ping_count": device.TotalPingCount,
		"last_ping_time":   device.LastPingTime,
	}).Error
}
