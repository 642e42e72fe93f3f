package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds node, interface and channel names. Names end up as
// Graphviz identifiers and RTL signal prefixes.
const maxNameLength = 256

// ValidateName validates a netlist object name (node, interface, channel).
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - No quotes or backslashes (they break DOT and RTL identifiers)
//   - Maximum length of 256 characters
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "%s name cannot be empty", kind)
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "%s name too long (max %d characters)", kind, maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidName, "%s name %q contains whitespace or control characters", kind, name)
		}
	}

	for _, pattern := range []string{`"`, `\`, "\x00"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidName, "%s name contains invalid characters: %q", kind, pattern)
		}
	}

	return nil
}

// identifierRegex matches names usable verbatim as RTL identifiers.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ValidateIdentifier validates a name that is emitted as an RTL identifier
// (interface names, loop names).
func ValidateIdentifier(kind, name string) error {
	if err := ValidateName(kind, name); err != nil {
		return err
	}

	if !identifierRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid %s identifier: %q", kind, name)
	}

	return nil
}

// ValidateFixturePath validates a fixture file path for safety.
// It rejects empty paths, control characters and traversal sequences.
func ValidateFixturePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidFixture, "path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidFixture, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidFixture, "path cannot contain path traversal sequences (..)")
	}

	return nil
}
