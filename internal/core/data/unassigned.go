package data

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// UnassignedDevice records a sighting of a mobile id that could not be
// matched to any known device, so an operator can assign it later.
type UnassignedDevice struct {
	ID         uint64 `gorm:"primaryKey"`
	ServerName string `gorm:"index"`
	MobileID   string `gorm:"index"`
	IPAddress  string
	IsDuplex   bool
	Latitude   float64
	Longitude  float64
	FirstSeen  time.Time
	LastSeen   time.Time
}

// RecordUnassignedDevice upserts a sighting keyed by (serverName, mobileID):
// repeated sightings of the same unit update the existing row rather than
// accumulating one row per inbound packet.
func RecordUnassignedDevice(
	db *gorm.DB,
	serverName, mobileID, ipAddress string,
	isDuplex bool,
	lat, lon float64,
) error {
	now := time.Now()

	var existing UnassignedDevice
	err := db.Where("server_name = ? AND mobile_id = ?", serverName, mobileID).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return db.Create(&UnassignedDevice{
			ServerName: serverName,
			MobileID:   mobileID,
			IPAddress:  ipAddress,
			IsDuplex:   isDuplex,
			Latitude:   lat,
			Longitude:  lon,
			FirstSeen:  now,
			LastSeen:   now,
		}).Error
	}

	return db.Model(&existing).Updates(map[string]interface{}{
		"ip_address": ipAddress,
		"is_duplex":  isDuplex,
		"latitude":   lat,
		"longitude":  lon,
		"last_seen":  now,
	}).Error
}

// ListUnassignedDevices returns all recorded sightings, most recent first.
func ListUnassignedDevices(db *gorm.DB) ([]UnassignedDevice, error) {
	var list []UnassignedDevice
	if err := db.Order("last_seen desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
