package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/fleetgrid/fleetgrid/internal/core/data"
	"github.com/fleetgrid/fleetgrid/internal/dcs"
)

// H is a shorthand for ad hoc JSON payloads.
type H map[string]any

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// UnassignedLister exposes the recorded sightings of unprovisioned modem
// ids.
type UnassignedLister interface {
	ListUnassignedDevices() ([]data.UnassignedDevice, error)
}

// Handler serves the admin API over the server registry.
type Handler struct {
	logger     *logrus.Logger
	registry   *dcs.Registry
	resolver   *dcs.Resolver
	dispatcher *dcs.Dispatcher
	devices    dcs.DeviceFinder
	unassigned UnassignedLister
}

// NewHandler returns an admin API handler.
func NewHandler(logger *logrus.Logger, registry *dcs.Registry, resolver *dcs.Resolver, dispatcher *dcs.Dispatcher, devices dcs.DeviceFinder, unassigned UnassignedLister) *Handler {
	return &Handler{
		logger:     logger,
		registry:   registry,
		resolver:   resolver,
		dispatcher: dispatcher,
		devices:    devices,
		unassigned: unassigned,
	}
}

type serverSummary struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	TCPPorts     []int    `json:"tcp_ports,omitempty"`
	UDPPorts     []int    `json:"udp_ports,omitempty"`
	Prefixes     []string `json:"prefixes"`
	CommandPort  int      `json:"command_port,omitempty"`
	Implemented  bool     `json:"implemented"`
	CommandProto string   `json:"command_protocol"`
	CommandCount int      `json:"command_count"`
	Display      string   `json:"display"`
}

func (h *Handler) summarize(s *dcs.ServerConfig) serverSummary {
	return serverSummary{
		Name:         s.Name(),
		Description:  s.Description(),
		TCPPorts:     s.TCPPorts(),
		UDPPorts:     s.UDPPorts(),
		Prefixes:     s.UniquePrefixes(),
		CommandPort:  s.CommandDispatcherPort(),
		Implemented:  h.registry.IsImplemented(s.Name()),
		CommandProto: s.CommandProtocol().String(),
		CommandCount: len(s.CommandNames()),
		Display:      s.String(),
	}
}

// ListServers returns the registered servers. ?all=true includes servers
// without a runnable handler.
func (h *Handler) ListServers(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	servers := h.registry.List(all)
	out := make([]serverSummary, 0, len(servers))
	for _, s := range servers {
		out = append(out, h.summarize(s))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetServer returns one server definition.
func (h *Handler) GetServer(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s := h.registry.Get(name)
	if s == nil {
		respondJSON(w, http.StatusNotFound, H{"error": "unknown server: " + name})
		return
	}
	respondJSON(w, http.StatusOK, h.summarize(s))
}

type commandSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Types       []string `json:"types"`
	ACLName     string   `json:"acl_name"`
	HasArgs     bool     `json:"has_args"`
	ExpectAck   bool     `json:"expect_ack"`
	Protocol    string   `json:"protocol,omitempty"`
}

// ListCommands returns a server's command table, optionally filtered with
// ?type=.
func (h *Handler) ListCommands(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	s := h.registry.Get(name)
	if s == nil {
		respondJSON(w, http.StatusNotFound, H{"error": "unknown server: " + name})
		return
	}
	cmds := s.CommandsOfType(r.URL.Query().Get("type"))
	out := make([]commandSummary, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, commandSummary{
			Name:        c.Name,
			Description: c.Description,
			Types:       c.Types,
			ACLName:     c.ACLName,
			HasArgs:     c.HasArgs(),
			ExpectAck:   c.ExpectAck,
			Protocol:    c.Protocol,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// ListMissing returns the referenced-but-unregistered server names.
func (h *Handler) ListMissing(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, H{
		"missing": h.registry.MissingList(),
	})
}

// LookupMobileID searches every registered server's prefixes for a modem
// id.
func (h *Handler) LookupMobileID(w http.ResponseWriter, r *http.Request) {
	mobileID := mux.Vars(r)["mobileID"]
	matches := h.resolver.LookupAcrossAllServers(mobileID)
	type matchSummary struct {
		Server    string `json:"server"`
		UniqueID  string `json:"unique_id"`
		AccountID string `json:"account_id"`
		DeviceID  string `json:"device_id"`
	}
	out := make([]matchSummary, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchSummary{
			Server:    m.ServerName,
			UniqueID:  m.UniqueID,
			AccountID: m.Device.AccountID,
			DeviceID:  m.Device.DeviceID,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// ListUnassigned returns recorded sightings of unprovisioned modem ids.
func (h *Handler) ListUnassigned(w http.ResponseWriter, r *http.Request) {
	list, err := h.unassigned.ListUnassignedDevices()
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, H{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// SendCommand relays a command to a device through its server's command
// channel.
func (h *Handler) SendCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string   `json:"account_id"`
		DeviceID  string   `json:"device_id"`
		CmdType   string   `json:"cmd_type"`
		CmdName   string   `json:"cmd_name"`
		Args      []string `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, H{"error": err.Error()})
		return
	}
	if req.AccountID == "" || req.DeviceID == "" || req.CmdName == "" {
		respondJSON(w, http.StatusBadRequest, H{"error": "account_id, device_id and cmd_name are required"})
		return
	}

	device, err := h.devices.FindDevice(req.AccountID, req.DeviceID)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, H{"error": err.Error()})
		return
	}
	if device == nil {
		respondJSON(w, http.StatusNotFound, H{"error": "unknown device"})
		return
	}

	resp, err := h.dispatcher.DispatchForDevice(device, req.CmdType, req.CmdName, req.Args)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, H{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, H{
		"server":  resp.Server,
		"result":  resp.Result,
		"message": resp.Message,
		"ok":      resp.OK(),
	})
}
