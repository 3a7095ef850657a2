package interfaces

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxNameLength bounds a fully qualified name.
	MaxNameLength = 253
	// DefaultTLD is the top-level label registrable names must end with.
	DefaultTLD = "vne"
)

var labelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]{0,61}[a-z0-9])?$`)

// NormalizeName lowercases and trims name, drops a trailing root dot, and
// validates every label.
func NormalizeName(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, ".")
	if n == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidParameter)
	}
	if len(n) > MaxNameLength {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrInvalidParameter, MaxNameLength)
	}
	for _, label := range strings.Split(n, ".") {
		if !labelRegex.MatchString(label) {
			return "", fmt.Errorf("%w: invalid label %q", ErrInvalidParameter, label)
		}
	}
	return n, nil
}

// NormalizeRegistrable validates a second-level name "label.tld". When tld is
// non-empty the name must end with it.
func NormalizeRegistrable(name, tld string) (string, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return "", err
	}
	labels := strings.Split(n, ".")
	if len(labels) != 2 {
		return "", fmt.Errorf("%w: %q is not a second-level name", ErrInvalidParameter, n)
	}
	if tld != "" && labels[1] != tld {
		return "", fmt.Errorf("%w: %q is not under .%s", ErrInvalidParameter, n, tld)
	}
	return n, nil
}

// NormalizeLabel validates a single subdomain label under parent. A fully
// qualified "label.parent" is accepted and reduced to the label.
func NormalizeLabel(label, parent string) (string, error) {
	l, err := NormalizeName(label)
	if err != nil {
		return "", err
	}
	if parent != "" {
		l = strings.TrimSuffix(l, "."+parent)
	}
	if strings.Contains(l, ".") {
		return "", fmt.Errorf("%w: %q is not a single label", ErrInvalidParameter, label)
	}
	return l, nil
}

// SplitName returns the first label and the remainder of a normalized name.
func SplitName(name string) (label, parent string) {
	label, parent, _ = strings.Cut(name, ".")
	return label, parent
}

// NameHash computes the recursive keccak256 node hash of a normalized name.
func NameHash(name string) Hash {
	var node Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node[:], labelHash))
	}
	return node
}
