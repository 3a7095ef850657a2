// Package config loads the registrar deployment file.
//
// The file is YAML with a protocol section, a pricing section and the list of
// storage locations snapshots are written to:
//
//	protocol:
//	  admin: "0x00000000000000000000000000000000000000ad"
//	  tld: vne
//	  min_commit_age: 1m
//	  max_commit_age: 120000
//	pricing:
//	  price_per_letter: "1000000000000000"
//	  premium_names: [gold, bank]
//	storage:
//	  - file:///var/lib/registrar/blobs
//
// Durations accept either milliseconds or a Go duration string. Every field
// is optional and falls back to the deployment default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/pricing"
	"github.com/ruteri/name-registrar/registrar"
	"gopkg.in/yaml.v3"
)

// Millis is a duration in milliseconds.
type Millis uint64

func (m *Millis) UnmarshalYAML(value *yaml.Node) error {
	var n uint64
	if err := value.Decode(&n); err == nil {
		*m = Millis(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be milliseconds or a duration string", value.Line)
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fmt.Errorf("line %d: invalid duration %q", value.Line, s)
	}
	*m = Millis(d.Milliseconds())
	return nil
}

type Protocol struct {
	Admin    string `yaml:"admin"`
	Manager  string `yaml:"manager"`
	Resolver string `yaml:"resolver"`
	TLD      string `yaml:"tld"`

	MinCommitAge            Millis `yaml:"min_commit_age"`
	MaxCommitAge            Millis `yaml:"max_commit_age"`
	MinRegistrationDuration Millis `yaml:"min_registration_duration"`
	GracePeriod             Millis `yaml:"grace_period"`
}

type Pricing struct {
	// Amounts are decimal strings since they may exceed 64 bits.
	PricePerLetter    string               `yaml:"price_per_letter"`
	PricePerYear      string               `yaml:"price_per_year"`
	PremiumMultiplier uint64               `yaml:"premium_multiplier"`
	LengthTiers       []pricing.LengthTier `yaml:"length_tiers"`
	// PremiumNames may be bare labels; they are qualified with the TLD.
	PremiumNames      []string             `yaml:"premium_names"`
}

type Config struct {
	Protocol Protocol `yaml:"protocol"`
	Pricing  Pricing  `yaml:"pricing"`
	Storage  []string `yaml:"storage"`
}

// Default returns the deployment defaults. The admin is left empty.
func Default() Config {
	params := pricing.DefaultParams()
	return Config{
		Protocol: Protocol{
			TLD:                     interfaces.DefaultTLD,
			MinCommitAge:            Millis(registrar.DefaultMinCommitAge),
			MaxCommitAge:            Millis(registrar.DefaultMaxCommitAge),
			MinRegistrationDuration: Millis(registrar.DefaultMinRegistrationDuration),
			GracePeriod:             Millis(registrar.DefaultGracePeriod),
		},
		Pricing: Pricing{
			PricePerLetter:    params.PricePerLetter.Dec(),
			PricePerYear:      params.PricePerYear.Dec(),
			PremiumMultiplier: params.PremiumMultiplier,
			LengthTiers:       params.LengthTiers,
		},
	}
}

// Load reads the file at path over the defaults. An empty path or a missing
// file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(data) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func parseAddress(field, v string) (interfaces.Address, error) {
	if v == "" {
		return interfaces.ZeroAddress, nil
	}
	if !common.IsHexAddress(v) {
		return interfaces.ZeroAddress, fmt.Errorf("%w: %s %q is not an address", interfaces.ErrInvalidParameter, field, v)
	}
	return common.HexToAddress(v), nil
}

// ProtocolConfig converts the protocol section. The manager defaults to the
// admin.
func (c Config) ProtocolConfig() (registrar.ProtocolConfig, error) {
	p := c.Protocol
	admin, err := parseAddress("admin", p.Admin)
	if err != nil {
		return registrar.ProtocolConfig{}, err
	}
	manager, err := parseAddress("manager", p.Manager)
	if err != nil {
		return registrar.ProtocolConfig{}, err
	}
	resolverAddr, err := parseAddress("resolver", p.Resolver)
	if err != nil {
		return registrar.ProtocolConfig{}, err
	}
	if manager == interfaces.ZeroAddress {
		manager = admin
	}

	out := registrar.ProtocolConfig{
		Admin:                   admin,
		Manager:                 manager,
		Resolver:                resolverAddr,
		TLD:                     p.TLD,
		MinCommitAge:            interfaces.Duration(p.MinCommitAge),
		MaxCommitAge:            interfaces.Duration(p.MaxCommitAge),
		MinRegistrationDuration: interfaces.Duration(p.MinRegistrationDuration),
		GracePeriod:             interfaces.Duration(p.GracePeriod),
	}
	return out, out.Validate()
}

// PricingEngine converts the pricing section into a validated engine.
func (c Config) PricingEngine() (*pricing.Engine, error) {
	perLetter, err := uint256.FromDecimal(c.Pricing.PricePerLetter)
	if err != nil {
		return nil, fmt.Errorf("%w: price_per_letter: %v", interfaces.ErrInvalidParameter, err)
	}
	perYear, err := uint256.FromDecimal(c.Pricing.PricePerYear)
	if err != nil {
		return nil, fmt.Errorf("%w: price_per_year: %v", interfaces.ErrInvalidParameter, err)
	}
	return pricing.NewEngine(pricing.Params{
		PricePerLetter:    perLetter,
		PricePerYear:      perYear,
		PremiumMultiplier: c.Pricing.PremiumMultiplier,
		LengthTiers:       c.Pricing.LengthTiers,
		PremiumNames:      c.premiumNames(),
	})
}

// premiumNames qualifies bare labels with the protocol TLD.
func (c Config) premiumNames() []string {
	tld := c.Protocol.TLD
	if tld == "" {
		tld = interfaces.DefaultTLD
	}
	out := make([]string, 0, len(c.Pricing.PremiumNames))
	for _, n := range c.Pricing.PremiumNames {
		if !strings.Contains(n, ".") {
			n += "." + tld
		}
		out = append(out, n)
	}
	return out
}

// StorageLocations parses the storage section.
func (c Config) StorageLocations() ([]interfaces.StorageBackendLocation, error) {
	out := make([]interfaces.StorageBackendLocation, 0, len(c.Storage))
	for _, raw := range c.Storage {
		loc, err := interfaces.NewStorageBackendLocation(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, nil
}
