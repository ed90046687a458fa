// pkg/core/role.go
package core

// Role identifies one operation kind a backend may implement
type Role int

const (
	RoleUnknown Role = iota
	RoleCancel
	RoleDependsOn
	RoleGetDetails
	RoleGetDetailsLocal
	RoleGetFilesLocal
	RoleGetFiles
	RoleGetPackages
	RoleGetRepoList
	RoleRequiredBy
	RoleGetUpdateDetail
	RoleGetUpdates
	RoleInstallFiles
	RoleInstallPackages
	RoleInstallSignature
	RoleRefreshCache
	RoleRemovePackages
	RoleRepoEnable
	RoleRepoSetData
	RoleRepoRemove
	RoleResolve
	RoleSearchDetails
	RoleSearchFile
	RoleSearchGroup
	RoleSearchName
	RoleUpdatePackages
	RoleWhatProvides
	RoleAcceptEula
	RoleDownloadPackages
	RoleGetDistroUpgrades
	RoleGetCategories
	RoleGetOldTransactions
	RoleRepairSystem
	roleLast
)

var roleNames = []string{
	"unknown",
	"cancel",
	"depends-on",
	"get-details",
	"get-details-local",
	"get-files-local",
	"get-files",
	"get-packages",
	"get-repo-list",
	"required-by",
	"get-update-detail",
	"get-updates",
	"install-files",
	"install-packages",
	"install-signature",
	"refresh-cache",
	"remove-packages",
	"repo-enable",
	"repo-set-data",
	"repo-remove",
	"resolve",
	"search-details",
	"search-file",
	"search-group",
	"search-name",
	"update-packages",
	"what-provides",
	"accept-eula",
	"download-packages",
	"get-distro-upgrades",
	"get-categories",
	"get-old-transactions",
	"repair-system",
}

func (r Role) String() string { return enumName(roleNames, int(r)) }

// Bit returns the bitfield containing only r
func (r Role) Bit() Bitfield { return Bits(r) }

// RoleFromString parses a role name such as "install-packages"
func RoleFromString(s string) Role { return Role(enumValue(roleNames, s)) }

// AllRoles lists every known role except RoleUnknown
func AllRoles() []Role {
	roles := make([]Role, 0, int(roleLast)-1)
	for r := RoleCancel; r < roleLast; r++ {
		roles = append(roles, r)
	}
	return roles
}

// MarshalText renders the role name
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText parses a role name
func (r *Role) UnmarshalText(text []byte) error {
	*r = RoleFromString(string(text))
	return nil
}
