package registrar

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/pricing"
)

func (r *Registrar) requireAdmin(c Call) error {
	if c.Caller != r.cfg.Admin {
		return fmt.Errorf("%w: %s is not the admin", interfaces.ErrUnauthorized, c.Caller.Hex())
	}
	return nil
}

// updateConfig applies mutate to a copy of the configuration and commits it
// only if the result is valid.
func (r *Registrar) updateConfig(c Call, field string, mutate func(*ProtocolConfig) string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(c); err != nil {
		return err
	}
	next := r.cfg
	value := mutate(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	r.cfg = next

	r.log.Info("Protocol config changed", slog.String("field", field), slog.String("value", value))
	r.emit(interfaces.EventConfigChanged, "", c, map[string]string{"field": field, "value": value})
	return nil
}

func formatDuration(d interfaces.Duration) string {
	return strconv.FormatUint(uint64(d), 10)
}

// ChangeManager replaces the protocol manager.
func (r *Registrar) ChangeManager(c Call, manager interfaces.Address) error {
	if manager == interfaces.ZeroAddress {
		return fmt.Errorf("%w: manager must be set", interfaces.ErrInvalidParameter)
	}
	return r.updateConfig(c, "manager", func(cfg *ProtocolConfig) string {
		cfg.Manager = manager
		return manager.Hex()
	})
}

// ChangeAdmin hands the admin role over. The caller loses it immediately.
func (r *Registrar) ChangeAdmin(c Call, admin interfaces.Address) error {
	return r.updateConfig(c, "admin", func(cfg *ProtocolConfig) string {
		cfg.Admin = admin
		return admin.Hex()
	})
}

// SetResolver changes the default resolver recorded for new registrations.
func (r *Registrar) SetResolver(c Call, resolverAddr interfaces.Address) error {
	return r.updateConfig(c, "resolver", func(cfg *ProtocolConfig) string {
		cfg.Resolver = resolverAddr
		return resolverAddr.Hex()
	})
}

// SetGracePeriod takes effect for every status computed afterwards,
// including domains that are already in grace.
func (r *Registrar) SetGracePeriod(c Call, v interfaces.Duration) error {
	return r.updateConfig(c, "grace_period", func(cfg *ProtocolConfig) string {
		cfg.GracePeriod = v
		return formatDuration(v)
	})
}

func (r *Registrar) SetMinCommitAge(c Call, v interfaces.Duration) error {
	return r.updateConfig(c, "min_commit_age", func(cfg *ProtocolConfig) string {
		cfg.MinCommitAge = v
		return formatDuration(v)
	})
}

func (r *Registrar) SetMaxCommitAge(c Call, v interfaces.Duration) error {
	return r.updateConfig(c, "max_commit_age", func(cfg *ProtocolConfig) string {
		cfg.MaxCommitAge = v
		return formatDuration(v)
	})
}

func (r *Registrar) SetMinRegistrationDuration(c Call, v interfaces.Duration) error {
	return r.updateConfig(c, "min_registration_duration", func(cfg *ProtocolConfig) string {
		cfg.MinRegistrationDuration = v
		return formatDuration(v)
	})
}

func (r *Registrar) updatePricing(c Call, field, value string, mutate func(*pricing.Engine) (*pricing.Engine, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireAdmin(c); err != nil {
		return err
	}
	next, err := mutate(r.pricing)
	if err != nil {
		return err
	}
	r.pricing = next

	r.log.Info("Pricing changed", slog.String("field", field), slog.String("value", value))
	r.emit(interfaces.EventPricingChanged, "", c, map[string]string{"field": field, "value": value})
	return nil
}

func (r *Registrar) SetPricePerLetter(c Call, v *uint256.Int) error {
	if v == nil {
		return fmt.Errorf("%w: price must be set", interfaces.ErrInvalidParameter)
	}
	return r.updatePricing(c, "price_per_letter", v.Dec(), func(e *pricing.Engine) (*pricing.Engine, error) {
		return e.WithPricePerLetter(v), nil
	})
}

func (r *Registrar) SetPricePerYear(c Call, v *uint256.Int) error {
	if v == nil {
		return fmt.Errorf("%w: price must be set", interfaces.ErrInvalidParameter)
	}
	return r.updatePricing(c, "price_per_year", v.Dec(), func(e *pricing.Engine) (*pricing.Engine, error) {
		return e.WithPricePerYear(v), nil
	})
}

// AddPremiumName puts name on the premium list.
func (r *Registrar) AddPremiumName(c Call, name string) error {
	n, err := interfaces.NormalizeName(name)
	if err != nil {
		return err
	}
	return r.updatePricing(c, "premium_add", n, func(e *pricing.Engine) (*pricing.Engine, error) {
		return e.WithPremiumName(n), nil
	})
}

// RemovePremiumName takes name off the premium list. Removing a name that is
// not listed fails with ErrNotFound.
func (r *Registrar) RemovePremiumName(c Call, name string) error {
	n, err := interfaces.NormalizeName(name)
	if err != nil {
		return err
	}
	return r.updatePricing(c, "premium_remove", n, func(e *pricing.Engine) (*pricing.Engine, error) {
		next, removed := e.WithoutPremiumName(n)
		if !removed {
			return nil, fmt.Errorf("%w: %s is not a premium name", interfaces.ErrNotFound, n)
		}
		return next, nil
	})
}

// Pricing exports the current price schedule.
func (r *Registrar) Pricing() pricing.Params {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pricing.Params()
}
