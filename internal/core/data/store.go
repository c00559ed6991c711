package data

import "gorm.io/gorm"

// Store bundles a database handle behind the lookup and recording methods
// the device-resolution and dispatch paths consume. Callers that only need
// a subset declare their own narrow interface and take a *Store.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store over the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindDeviceByUniqueID looks up a device by its fully prefixed unique id.
func (s *Store) FindDeviceByUniqueID(uniqueID string) (*Device, error) {
	return FindDeviceByUniqueID(s.db, uniqueID)
}

// FindDevice looks up a device by account and device id.
func (s *Store) FindDevice(accountID, deviceID string) (*Device, error) {
	return FindDevice(s.db, accountID, deviceID)
}

// FindAccountByAccountID looks up an account by id.
func (s *Store) FindAccountByAccountID(accountID string) (*Account, error) {
	return FindAccountByAccountID(s.db, accountID)
}

// RecordUnassignedDevice upserts a sighting of an unrecognized modem id.
func (s *Store) RecordUnassignedDevice(serverName, mobileID, ipAddress string, isDuplex bool, latitude, longitude float64) error {
	return RecordUnassignedDevice(s.db, serverName, mobileID, ipAddress, isDuplex, latitude, longitude)
}

// ListUnassignedDevices returns recorded sightings, most recent first.
func (s *Store) ListUnassignedDevices() ([]UnassignedDevice, error) {
	return ListUnassignedDevices(s.db)
}

// IncrementPingCount bumps a device's command counter and persists it.
func (s *Store) IncrementPingCount(device *Device, timestamp int64) error {
	return IncrementPingCount(s.db, device, timestamp)
}
