package registrar

import (
	"fmt"

	"github.com/ruteri/name-registrar/commitment"
	"github.com/ruteri/name-registrar/interfaces"
)

// Protocol defaults, in milliseconds.
const (
	DefaultMinCommitAge            interfaces.Duration = 60000
	DefaultMaxCommitAge            interfaces.Duration = 120000
	DefaultMinRegistrationDuration interfaces.Duration = 120000
	DefaultGracePeriod             interfaces.Duration = 120000
)

// ProtocolConfig holds the protocol-wide parameters. It is set when the
// registrar is created and changed only by the admin.
type ProtocolConfig struct {
	// Admin may change every parameter below, including itself.
	Admin interfaces.Address `json:"admin"`
	// Manager may purge domains once their grace period has elapsed.
	Manager interfaces.Address `json:"manager"`
	// Resolver is the default resolver recorded for new registrations.
	Resolver interfaces.Address `json:"resolver"`
	// TLD restricts registrable names to label.TLD. Empty allows any TLD.
	TLD string `json:"tld"`

	MinCommitAge            interfaces.Duration `json:"min_commit_age"`
	MaxCommitAge            interfaces.Duration `json:"max_commit_age"`
	MinRegistrationDuration interfaces.Duration `json:"min_registration_duration"`
	GracePeriod             interfaces.Duration `json:"grace_period"`
}

// DefaultConfig returns the deployment defaults with admin also acting as
// protocol manager.
func DefaultConfig(admin interfaces.Address) ProtocolConfig {
	return ProtocolConfig{
		Admin:                   admin,
		Manager:                 admin,
		TLD:                     interfaces.DefaultTLD,
		MinCommitAge:            DefaultMinCommitAge,
		MaxCommitAge:            DefaultMaxCommitAge,
		MinRegistrationDuration: DefaultMinRegistrationDuration,
		GracePeriod:             DefaultGracePeriod,
	}
}

// Validate checks the invariants every configuration must satisfy.
func (c ProtocolConfig) Validate() error {
	if c.Admin == interfaces.ZeroAddress {
		return fmt.Errorf("%w: admin must be set", interfaces.ErrInvalidParameter)
	}
	if c.MinCommitAge > c.MaxCommitAge {
		return fmt.Errorf("%w: min commit age %d exceeds max commit age %d", interfaces.ErrInvalidParameter, c.MinCommitAge, c.MaxCommitAge)
	}
	if c.TLD != "" {
		if _, err := interfaces.NormalizeLabel(c.TLD, ""); err != nil {
			return err
		}
	}
	return nil
}

func (c ProtocolConfig) window() commitment.Window {
	return commitment.Window{MinAge: c.MinCommitAge, MaxAge: c.MaxCommitAge}
}
