package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/lorasim/internal/eui"
	"github.com/muurk/lorasim/internal/logging"
	"github.com/muurk/lorasim/internal/provision"
)

const (
	// ServiceType is the mDNS service type emulated entities advertise
	ServiceType = "_lorasim._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default scan duration
	DefaultScanTimeout = 5 * time.Second
)

// Scanner handles mDNS discovery of emulated entities
type Scanner struct {
	// Timeout is how long a scan listens for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// Scan listens for the scanner's timeout and returns every valid node seen,
// deduplicated by kind and EUI.
func (s *Scanner) Scan(ctx context.Context) ([]*Node, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan []*Node)

	go func() {
		var nodes []*Node
		seen := make(map[string]bool)
		for entry := range entries {
			node := parseServiceEntry(entry)
			if node == nil {
				continue
			}
			key := string(node.Kind) + "/" + node.EUI
			if seen[key] {
				continue
			}
			seen[key] = true
			logging.Debug("mDNS node found", zap.Stringer("node", node))
			nodes = append(nodes, node)
		}
		done <- nodes
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the browse context ends.
	return <-done, nil
}

// WaitForNode returns the first node advertising the given EUI.
func (s *Scanner) WaitForNode(ctx context.Context, hardwareEUI string) (*Node, error) {
	want, err := eui.Normalize(hardwareEUI)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Node, 1)

	go func() {
		for entry := range entries {
			if node := parseServiceEntry(entry); node != nil && node.EUI == want {
				select {
				case found <- node:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case node := <-found:
		return node, nil
	case <-ctx.Done():
		select {
		case node := <-found:
			return node, nil
		default:
		}
		return nil, fmt.Errorf("no entity with EUI %s found within %v", eui.Pretty(want), s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf entry to a Node.
// Entries without a reachable address, a valid EUI or a known kind are skipped.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Node {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	metadata := make(map[string]string, len(entry.Text))
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[strings.ToLower(key)] = value
	}

	kind := provision.Kind(strings.ToLower(metadata[TxtKind]))
	if kind == "" {
		kind = provision.KindDevice
	}
	if !kind.Valid() {
		logging.Debug("mDNS entry skipped, unknown kind",
			zap.String("instance", entry.Instance),
			zap.String("kind", metadata[TxtKind]))
		return nil
	}

	normalized, err := eui.Normalize(metadata[TxtEUI])
	if err != nil {
		logging.Debug("mDNS entry skipped, bad EUI",
			zap.String("instance", entry.Instance),
			zap.Error(err))
		return nil
	}

	return &Node{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		EUI:          normalized,
		Kind:         kind,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Scan is a convenience function to scan with a custom timeout
func Scan(ctx context.Context, timeout time.Duration) ([]*Node, error) {
	s := NewScanner()
	if timeout > 0 {
		s.Timeout = timeout
	}
	return s.Scan(ctx)
}
