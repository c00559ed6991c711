package dcs

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fleetgrid/fleetgrid/internal/core/data"
)

// DeviceLookup finds a device row by its fully prefixed unique id. A miss
// returns (nil, nil); errors are reserved for storage failures.
type DeviceLookup interface {
	FindDeviceByUniqueID(uniqueID string) (*data.Device, error)
}

// UnassignedRecorder records sightings of modem ids that resolved to no
// device, so operators can find and provision them later.
type UnassignedRecorder interface {
	RecordUnassignedDevice(serverName, mobileID, ipAddress string, isDuplex bool, latitude, longitude float64) error
}

// Resolver maps the raw modem ids reported by trackers to device rows,
// using the unique-id prefixes of the registered servers.
type Resolver struct {
	logger     *logrus.Logger
	registry   *Registry
	devices    DeviceLookup
	unassigned UnassignedRecorder
}

// NewResolver returns a Resolver over the given registry and stores.
func NewResolver(logger *logrus.Logger, registry *Registry, devices DeviceLookup, unassigned UnassignedRecorder) *Resolver {
	return &Resolver{
		logger:     logger,
		registry:   registry,
		devices:    devices,
		unassigned: unassigned,
	}
}

// ResolveUniqueID tries each prefix in order against the modem id and
// returns the first device row found, or nil when no candidate matches.
// Candidates already tried (per the shared tried set, when the caller
// supplies one) are skipped. A storage failure on one candidate is logged
// and treated as a miss for that candidate only; the scan continues.
func (r *Resolver) ResolveUniqueID(prefixes []string, mobileID string, tried map[string]bool) *data.Device {
	mobileID = strings.TrimSpace(mobileID)
	if mobileID == "" {
		return nil
	}
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	for _, pfx := range prefixes {
		candidate := pfx + mobileID
		if tried != nil {
			if tried[candidate] {
				continue
			}
			tried[candidate] = true
		}
		device, err := r.devices.FindDeviceByUniqueID(candidate)
		if err != nil {
			r.logger.Warnf("lookup failed for candidate %q: %v", candidate, err)
			continue
		}
		if device != nil {
			return device
		}
	}
	return nil
}

// LoadDevice resolves a modem id reported to the named server and returns
// its device row. An unrecognized id is recorded as an unassigned-device
// sighting and (nil, nil) is returned. An id that resolves to an inactive
// device or account also returns (nil, nil), but without a sighting; the
// device is provisioned, just switched off.
func (r *Resolver) LoadDevice(server *ServerConfig, mobileID, ipAddress string, isDuplex bool, latitude, longitude float64) (*data.Device, error) {
	var prefixes []string
	serverName := ""
	if server != nil {
		prefixes = server.UniquePrefixes()
		serverName = server.Name()
	}

	device := r.ResolveUniqueID(prefixes, mobileID, nil)
	if device == nil {
		r.logger.Infof("[%s] unrecognized modem id %q from %s", serverName, mobileID, ipAddress)
		observeUnassigned(serverName)
		if err := r.unassigned.RecordUnassignedDevice(serverName, mobileID, ipAddress, isDuplex, latitude, longitude); err != nil {
			r.logger.Warnf("unable to record unassigned device: %v", err)
		}
		return nil, nil
	}
	if !device.Active {
		r.logger.Infof("[%s] device inactive: %s/%s", serverName, device.AccountID, device.DeviceID)
		return nil, nil
	}
	if !device.Account.Active {
		r.logger.Infof("[%s] account inactive: %s", serverName, device.AccountID)
		return nil, nil
	}
	return device, nil
}

// Match is one result of a cross-server unique-id lookup. ServerName is
// blank for a match on the bare modem id.
type Match struct {
	ServerName string
	UniqueID   string
	Device     *data.Device
}

// LookupAcrossAllServers searches for a modem id under the bare id first
// and then under every registered server's prefixes. A single tried set is
// shared across the passes so no candidate id hits storage twice. Storage
// failures on individual candidates are logged and skipped.
func (r *Resolver) LookupAcrossAllServers(mobileID string) []Match {
	mobileID = strings.TrimSpace(mobileID)
	if mobileID == "" {
		return nil
	}

	var matches []Match
	tried := make(map[string]bool)

	if device := r.ResolveUniqueID(nil, mobileID, tried); device != nil {
		matches = append(matches, Match{UniqueID: mobileID, Device: device})
	}

	for _, server := range r.registry.List(true) {
		for _, pfx := range server.UniquePrefixes() {
			candidate := pfx + mobileID
			if tried[candidate] {
				continue
			}
			tried[candidate] = true
			device, err := r.devices.FindDeviceByUniqueID(candidate)
			if err != nil {
				r.logger.Warnf("lookup failed for candidate %q: %v", candidate, err)
				continue
			}
			if device != nil {
				matches = append(matches, Match{
					ServerName: server.Name(),
					UniqueID:   candidate,
					Device:     device,
				})
			}
		}
	}
	return matches
}
