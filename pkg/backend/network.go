// pkg/backend/network.go
package backend

import "github.com/arc-language/upkgd/pkg/core"

// NetworkMonitor reports the current connectivity state
type NetworkMonitor interface {
	State() core.Network
}

// StaticNetwork is a NetworkMonitor that always reports the same state
type StaticNetwork core.Network

// State returns the fixed state
func (s StaticNetwork) State() core.Network {
	return core.Network(s)
}

// IsOnline reports whether the network collaborator considers the host
// connected; without one the host is assumed online
func (b *Backend) IsOnline() bool {
	if b.network == nil {
		return true
	}
	switch b.network.State() {
	case core.NetworkOnline, core.NetworkMobile, core.NetworkWifi, core.NetworkWired:
		return true
	}
	return false
}
