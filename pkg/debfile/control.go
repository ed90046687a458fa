// pkg/debfile/control.go
package debfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Control holds the fields of a Debian control stanza
type Control struct {
	Package       string
	Version       string
	Architecture  string
	Maintainer    string
	InstalledSize int64 // bytes
	Depends       []string
	Provides      []string
	Section       string
	Homepage      string
	Description   string
}

// Summary is the first line of the description
func (c Control) Summary() string {
	summary, _, _ := strings.Cut(c.Description, "\n")
	return summary
}

// ParseControl parses one or more blank-line separated control stanzas
func ParseControl(r io.Reader) ([]Control, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var stanzas []Control
	var current *Control
	lastField := ""

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			if current != nil {
				stanzas = append(stanzas, *current)
				current = nil
			}
			lastField = ""
			continue
		}

		// Continuation line (starts with space or tab)
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if current != nil && lastField == "Description" {
				text := strings.TrimSpace(line)
				if text == "." {
					text = ""
				}
				current.Description += "\n" + text
			}
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		field = strings.TrimSpace(field)
		value = strings.TrimSpace(value)
		lastField = field

		if current == nil {
			current = &Control{}
		}

		switch field {
		case "Package":
			current.Package = value
		case "Version":
			current.Version = value
		case "Architecture":
			current.Architecture = value
		case "Maintainer":
			current.Maintainer = value
		case "Installed-Size":
			if size, err := strconv.ParseInt(value, 10, 64); err == nil {
				current.InstalledSize = size * 1024 // Convert from KB to bytes
			}
		case "Depends":
			current.Depends = parsePackageList(value)
		case "Provides":
			current.Provides = parsePackageList(value)
		case "Section":
			current.Section = value
		case "Homepage":
			current.Homepage = value
		case "Description":
			current.Description = value
		}
	}

	if current != nil {
		stanzas = append(stanzas, *current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning control file: %w", err)
	}
	return stanzas, nil
}

// parsePackageList parses a comma-separated package dependency list
func parsePackageList(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		// Remove version constraints like (>= 1.0)
		if idx := strings.Index(part, "("); idx != -1 {
			part = strings.TrimSpace(part[:idx])
		}
		// Keep the first of alternative dependencies (|)
		if idx := strings.Index(part, "|"); idx != -1 {
			part = strings.TrimSpace(part[:idx])
		}
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
