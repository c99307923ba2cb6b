package discovery

import (
	"fmt"
	"time"

	"github.com/muurk/lorasim/internal/config"
	"github.com/muurk/lorasim/internal/eui"
	"github.com/muurk/lorasim/internal/provision"
)

// TXT record keys advertised by emulated entities
const (
	TxtEUI     = "eui"
	TxtKind    = "kind"
	TxtName    = "name"
	TxtID      = "id"
	TxtJoinEUI = "join_eui"
)

// Node is an emulated device or gateway found on the local network
type Node struct {
	// Instance is the mDNS service instance name (e.g. "sensor-1")
	Instance string

	// Hostname is the mDNS hostname (e.g. "lorasim-host.local.")
	Hostname string

	IP   string
	Port int

	// EUI is the normalized hardware EUI from the TXT record
	EUI  string
	Kind provision.Kind

	// Metadata holds every TXT key/value pair as advertised
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable form of the node
func (n *Node) String() string {
	return fmt.Sprintf("%s %s (%s) at %s:%d", n.Kind, eui.Pretty(n.EUI), n.LocalID(), n.IP, n.Port)
}

// GetMetadata retrieves a metadata value by key, or "" if absent
func (n *Node) GetMetadata(key string) string {
	if n.Metadata == nil {
		return ""
	}
	return n.Metadata[key]
}

// LocalID is the inventory ID the node asks for, falling back to the
// service instance name.
func (n *Node) LocalID() string {
	if id := n.GetMetadata(TxtID); id != "" {
		return id
	}
	return n.Instance
}

// ToEntity converts the node into an inventory entry for config.
func (n *Node) ToEntity() *config.Entity {
	return &config.Entity{
		LocalID:     n.LocalID(),
		HardwareEUI: n.EUI,
		DisplayName: n.GetMetadata(TxtName),
		Kind:        string(n.Kind),
		JoinEUI:     n.GetMetadata(TxtJoinEUI),
	}
}
