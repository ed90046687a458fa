// pkg/backend/roles.go
package backend

import "github.com/arc-language/upkgd/pkg/core"

// GetRoles returns the roles the loaded module supports. The bitfield is
// computed on first use after each load and cached; a module-supplied Roles
// result is trusted instead of inferring from slots. get-old-transactions is
// always present. Roles added with Implement before the first call are kept.
func (b *Backend) GetRoles() core.Bitfield {
	desc := b.activeDesc()
	if desc == nil {
		b.logger.Warn().Msg("GetRoles called on unloaded backend")
		return 0
	}

	b.rolesComputeMu.Lock()
	defer b.rolesComputeMu.Unlock()

	b.rolesMu.Lock()
	if b.rolesSet {
		roles := b.roles
		b.rolesMu.Unlock()
		return roles
	}
	b.rolesMu.Unlock()

	var computed core.Bitfield
	if desc.GetRoles != nil {
		computed = desc.GetRoles(b)
	} else {
		computed = desc.inferRoles()
	}
	computed = computed.Add(core.RoleGetOldTransactions.Bit())

	b.rolesMu.Lock()
	defer b.rolesMu.Unlock()
	roles := b.roles.Add(computed)

	// not cached while initializing, the module may still call Implement
	if b.duringInitialize.Load() {
		return roles
	}
	b.roles = roles
	b.rolesSet = true
	return roles
}

// IsImplemented reports whether role is in the cached roles bitfield
func (b *Backend) IsImplemented(role core.Role) bool {
	return b.GetRoles().Contains(role.Bit())
}

// Implement adds a role the module supports indirectly
func (b *Backend) Implement(role core.Role) {
	if role == core.RoleUnknown {
		b.logger.Warn().Msg("cannot implement unknown role")
		return
	}
	b.rolesMu.Lock()
	defer b.rolesMu.Unlock()
	b.roles = b.roles.Add(role.Bit())
}

// GetGroups returns the groups the module can search, unknown if unsupported
func (b *Backend) GetGroups() core.Bitfield {
	desc := b.activeDesc()
	if desc == nil {
		b.logger.Warn().Msg("GetGroups called on unloaded backend")
		return core.Bits(core.GroupUnknown)
	}
	if desc.GetGroups == nil {
		return core.Bits(core.GroupUnknown)
	}
	return desc.GetGroups(b)
}

// GetFilters returns the filters the module honours, unknown if unsupported
func (b *Backend) GetFilters() core.Bitfield {
	desc := b.activeDesc()
	if desc == nil {
		b.logger.Warn().Msg("GetFilters called on unloaded backend")
		return core.Bits(core.FilterUnknown)
	}
	if desc.GetFilters == nil {
		return core.Bits(core.FilterUnknown)
	}
	return desc.GetFilters(b)
}

// GetMimeTypes returns the local file types the module can install
func (b *Backend) GetMimeTypes() []string {
	desc := b.activeDesc()
	if desc == nil {
		b.logger.Warn().Msg("GetMimeTypes called on unloaded backend")
		return nil
	}
	if desc.GetMimeTypes == nil {
		return []string{}
	}
	return desc.GetMimeTypes(b)
}

// SupportsParallelization reports whether the module can run several
// invocations of the same operation at once
func (b *Backend) SupportsParallelization() bool {
	desc := b.activeDesc()
	if desc == nil || desc.SupportsParallelization == nil {
		return false
	}
	return desc.SupportsParallelization(b)
}
