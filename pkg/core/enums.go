// pkg/core/enums.go
package core

// Filter narrows the packages an operation reports
type Filter int

const (
	FilterUnknown Filter = iota
	FilterNone
	FilterInstalled
	FilterNotInstalled
	FilterDevelopment
	FilterNotDevelopment
	FilterGUI
	FilterNotGUI
	FilterFree
	FilterNotFree
	FilterVisible
	FilterNotVisible
	FilterSupported
	FilterNotSupported
	FilterBasename
	FilterNotBasename
	FilterNewest
	FilterNotNewest
	FilterArch
	FilterNotArch
	FilterSource
	FilterNotSource
	FilterCollections
	FilterNotCollections
	FilterApplication
	FilterNotApplication
	FilterDownloaded
	FilterNotDownloaded
)

var filterNames = []string{
	"unknown", "none", "installed", "~installed", "devel", "~devel",
	"gui", "~gui", "free", "~free", "visible", "~visible",
	"supported", "~supported", "basename", "~basename", "newest", "~newest",
	"arch", "~arch", "source", "~source", "collections", "~collections",
	"application", "~application", "downloaded", "~downloaded",
}

func (f Filter) String() string { return enumName(filterNames, int(f)) }

// Bit returns the bitfield containing only f
func (f Filter) Bit() Bitfield { return Bits(f) }

// FilterFromString parses a filter name such as "~installed"
func FilterFromString(s string) Filter { return Filter(enumValue(filterNames, s)) }

// Group is a coarse package category
type Group int

const (
	GroupUnknown Group = iota
	GroupAccessibility
	GroupAccessories
	GroupAdminTools
	GroupCommunication
	GroupDesktopGnome
	GroupDesktopKde
	GroupDesktopOther
	GroupDesktopXfce
	GroupEducation
	GroupFonts
	GroupGames
	GroupGraphics
	GroupInternet
	GroupLegacy
	GroupLocalization
	GroupMaps
	GroupMultimedia
	GroupNetwork
	GroupOffice
	GroupOther
	GroupPowerManagement
	GroupProgramming
	GroupPublishing
	GroupRepos
	GroupSecurity
	GroupServers
	GroupSystem
	GroupVirtualization
	GroupScience
	GroupDocumentation
	GroupElectronics
	GroupCollections
	GroupVendor
	GroupNewest
)

var groupNames = []string{
	"unknown", "accessibility", "accessories", "admin-tools", "communication",
	"desktop-gnome", "desktop-kde", "desktop-other", "desktop-xfce", "education",
	"fonts", "games", "graphics", "internet", "legacy", "localization", "maps",
	"multimedia", "network", "office", "other", "power-management", "programming",
	"publishing", "repos", "security", "servers", "system", "virtualization",
	"science", "documentation", "electronics", "collections", "vendor", "newest",
}

func (g Group) String() string { return enumName(groupNames, int(g)) }

// Bit returns the bitfield containing only g
func (g Group) Bit() Bitfield { return Bits(g) }

// GroupFromString parses a group name such as "admin-tools"
func GroupFromString(s string) Group { return Group(enumValue(groupNames, s)) }

// TransactionFlag modifies how a transaction runs without changing its role
type TransactionFlag int

const (
	TransactionFlagNone TransactionFlag = iota
	TransactionFlagOnlyTrusted
	TransactionFlagSimulate
	TransactionFlagOnlyDownload
	TransactionFlagAllowReinstall
	TransactionFlagJustReinstall
	TransactionFlagAllowDowngrade
)

var transactionFlagNames = []string{
	"none", "only-trusted", "simulate", "only-download",
	"allow-reinstall", "just-reinstall", "allow-downgrade",
}

func (t TransactionFlag) String() string { return enumName(transactionFlagNames, int(t)) }

// Bit returns the bitfield containing only t
func (t TransactionFlag) Bit() Bitfield { return Bits(t) }

// TransactionFlagFromString parses a flag name such as "simulate"
func TransactionFlagFromString(s string) TransactionFlag {
	return TransactionFlag(enumValue(transactionFlagNames, s))
}

// Status is the coarse phase a job reports while it runs
type Status int

const (
	StatusUnknown Status = iota
	StatusWait
	StatusSetup
	StatusRunning
	StatusQuery
	StatusInfo
	StatusRemove
	StatusRefreshCache
	StatusDownload
	StatusInstall
	StatusUpdate
	StatusCleanup
	StatusDepResolve
	StatusSigCheck
	StatusCommit
	StatusRequest
	StatusFinished
	StatusCancel
	StatusWaitingForLock
	StatusLoadingCache
)

var statusNames = []string{
	"unknown", "wait", "setup", "running", "query", "info", "remove",
	"refresh-cache", "download", "install", "update", "cleanup",
	"dep-resolve", "sig-check", "commit", "request", "finished", "cancel",
	"waiting-for-lock", "loading-cache",
}

func (s Status) String() string { return enumName(statusNames, int(s)) }

// Info classifies a package emitted by a backend
type Info int

const (
	InfoUnknown Info = iota
	InfoInstalled
	InfoAvailable
	InfoLow
	InfoEnhancement
	InfoNormal
	InfoBugfix
	InfoImportant
	InfoSecurity
	InfoBlocked
	InfoDownloading
	InfoUpdating
	InfoInstalling
	InfoRemoving
	InfoCleanup
	InfoFinished
)

var infoNames = []string{
	"unknown", "installed", "available", "low", "enhancement", "normal",
	"bugfix", "important", "security", "blocked", "downloading", "updating",
	"installing", "removing", "cleanup", "finished",
}

func (i Info) String() string { return enumName(infoNames, int(i)) }

// Exit is the terminal outcome of a job
type Exit int

const (
	ExitUnknown Exit = iota
	ExitSuccess
	ExitFailed
	ExitCancelled
	ExitEulaRequired
)

var exitNames = []string{"unknown", "success", "failed", "cancelled", "eula-required"}

func (e Exit) String() string { return enumName(exitNames, int(e)) }

// ExitFromString parses an exit name
func ExitFromString(s string) Exit { return Exit(enumValue(exitNames, s)) }

// ErrorCode classifies a failure reported by a backend
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota
	ErrorOOM
	ErrorNoNetwork
	ErrorNotSupported
	ErrorInternalError
	ErrorGPGFailure
	ErrorPackageIDInvalid
	ErrorPackageNotInstalled
	ErrorPackageNotFound
	ErrorPackageAlreadyInstalled
	ErrorPackageDownloadFailed
	ErrorDepResolutionFailed
	ErrorFilterInvalid
	ErrorCreateThreadFailed
	ErrorTransactionError
	ErrorTransactionCancelled
	ErrorRepoNotFound
	ErrorCannotRemoveSystemPackage
	ErrorNoLicenseAgreement
	ErrorFileNotFound
	ErrorInvalidPackageFile
	ErrorFailedInitialization
	ErrorFailedConfigParsing
	ErrorCannotCancel
	ErrorNoCache
	ErrorGroupNotFound
	ErrorUpdateNotFound
)

var errorCodeNames = []string{
	"unknown", "out-of-memory", "no-network", "not-supported", "internal-error",
	"gpg-failure", "package-id-invalid", "package-not-installed",
	"package-not-found", "package-already-installed", "package-download-failed",
	"dep-resolution-failed", "filter-invalid", "create-thread-failed",
	"transaction-error", "transaction-cancelled", "repo-not-found",
	"cannot-remove-system-package", "no-license-agreement", "file-not-found",
	"invalid-package-file", "failed-initialization", "failed-config-parsing",
	"cannot-cancel", "no-cache", "group-not-found", "update-not-found",
}

func (e ErrorCode) String() string { return enumName(errorCodeNames, int(e)) }

// SigType is the kind of signature a repository key uses
type SigType int

const (
	SigTypeUnknown SigType = iota
	SigTypeGPG
)

var sigTypeNames = []string{"unknown", "gpg"}

func (s SigType) String() string { return enumName(sigTypeNames, int(s)) }

// SigTypeFromString parses a signature type name
func SigTypeFromString(s string) SigType { return SigType(enumValue(sigTypeNames, s)) }

// Network is the connectivity state reported by the network collaborator
type Network int

const (
	NetworkUnknown Network = iota
	NetworkOffline
	NetworkOnline
	NetworkMobile
	NetworkWifi
	NetworkWired
)

var networkNames = []string{"unknown", "offline", "online", "mobile", "wifi", "wired"}

func (n Network) String() string { return enumName(networkNames, int(n)) }

// NetworkFromString parses a network state name
func NetworkFromString(s string) Network { return Network(enumValue(networkNames, s)) }
