package dcs

// PortMap applies the process-wide port offset to raw listen-port numbers.
// The offset is read once from configuration at startup; it is not applied
// retroactively, so callers must map ports before building a ServerConfig.
type PortMap struct {
	Offset int
}

// DefaultPortOffset is used when configuration does not specify one.
const DefaultPortOffset = 1000

// Port returns the effective port for a raw port number. Non-positive raw
// ports return 0, meaning "not offered".
func (p PortMap) Port(raw int) int {
	if raw <= 0 {
		return 0
	}
	return raw + p.Offset
}

// Ports applies the offset element-wise. An empty input yields an empty
// (non-nil) slice.
func (p PortMap) Ports(raw ...int) []int {
	out := make([]int, len(raw))
	for i, r := range raw {
		out[i] = p.Port(r)
	}
	return out
}

// IsValidPort reports whether port is usable as a listen port.
func IsValidPort(port int) bool {
	return port > 0 && port <= 65535
}
