package data

import (
	"testing"

	"github.com/go-test/deep"
)

func TestStoreFindDeviceByUniqueID(t *testing.T) {
	db := setUpDatabase(t)
	seedAccount(t, db, "acme", true)
	want := seedDevice(t, db, "acme", "truck1", "tk_12345", true)

	store := NewStore(db)
	got, err := store.FindDeviceByUniqueID("tk_12345")
	if err != nil {
		t.Fatalf("FindDeviceByUniqueID() returned an unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a device")
	}
	got.Account = Account{}
	want.Account = Account{}
	if s := deep.Equal(got, want); len(s) > 0 {
		t.Errorf("device mismatch: %v", s)
	}

	missing, err := store.FindDeviceByUniqueID("tk_99999")
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for a miss, got %v %v", missing, err)
	}
}

func TestStoreRecordAndListUnassigned(t *testing.T) {
	db := setUpDatabase(t)
	store := NewStore(db)

	if err := store.RecordUnassignedDevice("tk10x", "99999", "10.0.0.5", true, 39.1, -121.2); err != nil {
		t.Fatalf("RecordUnassignedDevice() returned an unexpected error: %v", err)
	}
	list, err := store.ListUnassignedDevices()
	if err != nil {
		t.Fatalf("ListUnassignedDevices() returned an unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].MobileID != "99999" {
		t.Errorf("unexpected sightings: %+v", list)
	}
}

func TestStoreIncrementPingCount(t *testing.T) {
	db := setUpDatabase(t)
	seedAccount(t, db, "acme", true)
	device := seedDevice(t, db, "acme", "truck1", "tk_12345", true)

	store := NewStore(db)
	if err := store.IncrementPingCount(device, 1700000000); err != nil {
		t.Fatalf("IncrementPingCount() returned an unexpected error: %v", err)
	}

	reloaded, err := store.FindDevice("acme", "truck1")
	if err != nil {
		t.Fatalf("FindDevice() returned an unexpected error: %v", err)
	}
	if reloaded.TotalPingCount != 1 || reloaded.LastPingTime != 1700000000 {
		t.Errorf("count not persisted: %+v", reloaded)
	}
}
