// pkg/core/package.go
package core

import (
	"fmt"
	"strings"
)

// PackageID identifies one package build as "name;version;arch;data"
type PackageID struct {
	Name    string // Package name
	Version string // Package version
	Arch    string // Architecture, may be empty
	Data    string // Repository id, or "installed"
}

// ParsePackageID parses a package id string
func ParsePackageID(s string) (PackageID, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 4 {
		return PackageID{}, fmt.Errorf("invalid package id %q: expected 4 sections, got %d", s, len(parts))
	}
	if parts[0] == "" {
		return PackageID{}, fmt.Errorf("invalid package id %q: empty name", s)
	}
	return PackageID{
		Name:    parts[0],
		Version: parts[1],
		Arch:    parts[2],
		Data:    parts[3],
	}, nil
}

// String renders the id in its wire form
func (p PackageID) String() string {
	return p.Name + ";" + p.Version + ";" + p.Arch + ";" + p.Data
}

// IsPackageID reports whether s has the shape of a package id
func IsPackageID(s string) bool {
	_, err := ParsePackageID(s)
	return err == nil
}

// BoolToString renders a bool the way backend parameters expect it
func BoolToString(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
