package data

import (
	"testing"
)

func TestRecordUnassignedDevice(t *testing.T) {
	db := setUpDatabase(t)

	if err := RecordUnassignedDevice(db, "acme", "99887766", "10.0.0.1", true, 37.5, -122.3); err != nil {
		t.Fatalf("RecordUnassignedDevice() returned an unexpected error: %v", err)
	}

	list, err := ListUnassignedDevices(db)
	if err != nil {
		t.Fatalf("ListUnassignedDevices() returned an unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 unassigned device, got %d", len(list))
	}
	got := list[0]
	if got.ServerName != "acme" || got.MobileID != "99887766" {
		t.Errorf("unexpected sighting recorded: %+v", got)
	}
	if !got.IsDuplex || got.IPAddress != "10.0.0.1" {
		t.Errorf("connection details not recorded: %+v", got)
	}
}

func TestRecordUnassignedDeviceUpserts(t *testing.T) {
	db := setUpDatabase(t)

	if err := RecordUnassignedDevice(db, "acme", "99887766", "10.0.0.1", false, 0, 0); err != nil {
		t.Fatalf("RecordUnassignedDevice() returned an unexpected error: %v", err)
	}
	if err := RecordUnassignedDevice(db, "acme", "99887766", "10.0.0.2", true, 37.5, -122.3); err != nil {
		t.Fatalf("RecordUnassignedDevice() returned an unexpected error: %v", err)
	}

	list, err := ListUnassignedDevices(db)
	if err != nil {
		t.Fatalf("ListUnassignedDevices() returned an unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected repeated sightings to collapse to 1 row, got %d", len(list))
	}
	if list[0].IPAddress != "10.0.0.2" {
		t.Errorf("latest sighting details not applied: %+v", list[0])
	}

	// A different server name is a distinct sighting.
	if err := RecordUnassignedDevice(db, "other", "99887766", "", false, 0, 0); err != nil {
		t.Fatalf("RecordUnassignedDevice() returned an unexpected error: %v", err)
	}
	list, err = ListUnassignedDevices(db)
	if err != nil {
		t.Fatalf("ListUnassignedDevices() returned an unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sightings, got %d", len(list))
	}
}
