package data

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// Creates a database for testing. For the sake of simplicity, this only uses
// the SQLite engine and creates a new database on every invocation since it
// is relatively cheap to do so given the low number of tests.
func setUpDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	testDBFile := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(testDBFile))
	if err != nil {
		t.Fatalf("error initializing test database: %s", err)
	}

	if err = db.AutoMigrate(
		&Account{},
		&Device{},
		&UnassignedDevice{},
	); err != nil {
		t.Fatalf("error auto migrating db: %s", err)
	}
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, accountID string, active bool) *Account {
	t.Helper()
	account := &Account{AccountID: accountID, Active: active}
	if err := CreateAccount(db, account); err != nil {
		t.Fatalf("error seeding test account: %v", err)
	}
	return account
}

func seedDevice(t *testing.T, db *gorm.DB, accountID, deviceID, uniqueID string, active bool) *Device {
	t.Helper()
	device := &Device{
		AccountID:  accountID,
		DeviceID:   deviceID,
		UniqueID:   uniqueID,
		DeviceCode: "acme",
		Active:     active,
	}
	if err := CreateDevice(db, device); err != nil {
		t.Fatalf("error seeding test device: %v", err)
	}
	return device
}
