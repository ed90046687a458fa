// pkg/platform/detect.go
package platform

import (
	"fmt"
	"os/exec"
	"runtime"
	"slices"
)

// Platform represents the detected system platform
type Platform struct {
	OS        string   // linux, darwin, windows
	Arch      string   // package architecture: x86_64, aarch64, i386
	Available []string // backend names whose native tool is installed
	Preferred string   // first available backend for the OS
}

// tools maps backend names to the command proving the tool is present,
// in preference order
var tools = []struct {
	backend string
	command string
}{
	{"apt", "apt-get"},
	{"dnf", "dnf"},
	{"zypper", "zypper"},
	{"pacman", "pacman"},
	{"apk", "apk"},
	{"nix", "nix-env"},
	{"brew", "brew"},
	{"winget", "winget"},
	{"choco", "choco"},
}

// Detect detects the current platform and the package tools on it
func Detect() (*Platform, error) {
	p := &Platform{
		OS:        runtime.GOOS,
		Arch:      PackageArch(runtime.GOARCH),
		Available: []string{},
	}

	switch p.OS {
	case "linux", "darwin", "windows", "freebsd":
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", p.OS)
	}

	for _, t := range tools {
		if _, err := exec.LookPath(t.command); err == nil {
			p.Available = append(p.Available, t.backend)
		}
	}

	// Homebrew is the native choice on macOS even when nix is installed
	if p.OS == "darwin" && slices.Contains(p.Available, "brew") {
		p.Preferred = "brew"
	} else if len(p.Available) > 0 {
		p.Preferred = p.Available[0]
	}

	return p, nil
}

// PackageArch converts a Go architecture name to the name package ids use
func PackageArch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "i386"
	case "arm64":
		return "aarch64"
	case "arm":
		return "armv7l"
	}
	return goarch
}

// String returns a string representation of the platform
func (p *Platform) String() string {
	return fmt.Sprintf("%s/%s (available: %v, preferred: %s)",
		p.OS, p.Arch, p.Available, p.Preferred)
}
