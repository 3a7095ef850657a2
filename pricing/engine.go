// Package pricing quotes registration and renewal fees.
//
// The fee for label.tld over a duration d (milliseconds) is
//
//	base  = runes(label)*PricePerLetter + d*PricePerYear/YearMillis
//	fee   = base * tier(runes(label)) * premium(name)
//
// where tier is the multiplier of the first LengthTier covering the label
// length and premium is PremiumMultiplier for names on the premium list.
package pricing

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/holiman/uint256"
	"github.com/ruteri/name-registrar/interfaces"
)

// YearMillis is the length of a pricing year.
const YearMillis = 365 * 24 * 60 * 60 * 1000

var (
	DefaultPricePerLetter    = uint256.MustFromDecimal("1000000000000000000")
	DefaultPricePerYear      = uint256.MustFromDecimal("20000000000000000000")
	DefaultPremiumMultiplier = uint64(10)
	DefaultLengthTiers       = []LengthTier{{MaxLength: 3, Multiplier: 5}, {MaxLength: 4, Multiplier: 2}}
)

// LengthTier applies Multiplier to labels of at most MaxLength runes.
type LengthTier struct {
	MaxLength  int    `json:"max_length" yaml:"max_length"`
	Multiplier uint64 `json:"multiplier" yaml:"multiplier"`
}

// Params is the serializable form of an Engine.
type Params struct {
	PricePerLetter    *uint256.Int `json:"price_per_letter"`
	PricePerYear      *uint256.Int `json:"price_per_year"`
	PremiumMultiplier uint64       `json:"premium_multiplier"`
	LengthTiers       []LengthTier `json:"length_tiers"`
	PremiumNames      []string     `json:"premium_names"`
}

// DefaultParams returns the launch pricing.
func DefaultParams() Params {
	return Params{
		PricePerLetter:    DefaultPricePerLetter.Clone(),
		PricePerYear:      DefaultPricePerYear.Clone(),
		PremiumMultiplier: DefaultPremiumMultiplier,
		LengthTiers:       append([]LengthTier(nil), DefaultLengthTiers...),
	}
}

// Engine is an immutable price schedule. The With* methods return modified
// copies so a registrar can swap schedules atomically.
type Engine struct {
	pricePerLetter    *uint256.Int
	pricePerYear      *uint256.Int
	premiumMultiplier uint64
	tiers             []LengthTier
	premium           map[string]struct{}
}

// NewEngine validates params and builds an engine.
func NewEngine(p Params) (*Engine, error) {
	if p.PricePerLetter == nil || p.PricePerYear == nil {
		return nil, fmt.Errorf("%w: prices must be set", interfaces.ErrInvalidParameter)
	}
	if p.PremiumMultiplier == 0 {
		return nil, fmt.Errorf("%w: premium multiplier must be positive", interfaces.ErrInvalidParameter)
	}
	tiers := append([]LengthTier(nil), p.LengthTiers...)
	for _, t := range tiers {
		if t.MaxLength <= 0 || t.Multiplier == 0 {
			return nil, fmt.Errorf("%w: invalid length tier %+v", interfaces.ErrInvalidParameter, t)
		}
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MaxLength < tiers[j].MaxLength })

	premium := make(map[string]struct{}, len(p.PremiumNames))
	for _, name := range p.PremiumNames {
		n, err := interfaces.NormalizeName(name)
		if err != nil {
			return nil, fmt.Errorf("premium name: %w", err)
		}
		if !strings.Contains(n, ".") {
			return nil, fmt.Errorf("%w: premium name %q has no TLD", interfaces.ErrInvalidParameter, n)
		}
		premium[n] = struct{}{}
	}

	return &Engine{
		pricePerLetter:    p.PricePerLetter.Clone(),
		pricePerYear:      p.PricePerYear.Clone(),
		premiumMultiplier: p.PremiumMultiplier,
		tiers:             tiers,
		premium:           premium,
	}, nil
}

// MustDefault returns an engine with the launch pricing.
func MustDefault() *Engine {
	e, err := NewEngine(DefaultParams())
	if err != nil {
		panic(err)
	}
	return e
}

// Price implements interfaces.PriceOracle.
func (e *Engine) Price(name string, duration interfaces.Duration) (*uint256.Int, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", interfaces.ErrInvalidParameter)
	}
	if duration == 0 {
		return nil, fmt.Errorf("%w: zero duration", interfaces.ErrInvalidParameter)
	}

	label, _ := interfaces.SplitName(name)
	letters := uint64(utf8.RuneCountInString(label))

	letterCost, overflow := new(uint256.Int).MulOverflow(e.pricePerLetter, uint256.NewInt(letters))
	if overflow {
		return nil, errOverflow
	}

	timeCost, overflow := new(uint256.Int).MulOverflow(e.pricePerYear, uint256.NewInt(uint64(duration)))
	if overflow {
		return nil, errOverflow
	}
	timeCost.Div(timeCost, uint256.NewInt(YearMillis))

	price, overflow := new(uint256.Int).AddOverflow(letterCost, timeCost)
	if overflow {
		return nil, errOverflow
	}

	if m := e.tierMultiplier(int(letters)); m > 1 {
		if _, overflow = price.MulOverflow(price, uint256.NewInt(m)); overflow {
			return nil, errOverflow
		}
	}

	if _, ok := e.premium[name]; ok {
		if _, overflow = price.MulOverflow(price, uint256.NewInt(e.premiumMultiplier)); overflow {
			return nil, errOverflow
		}
	}

	return price, nil
}

var errOverflow = fmt.Errorf("%w: price overflows 256 bits", interfaces.ErrInvalidParameter)

func (e *Engine) tierMultiplier(letters int) uint64 {
	for _, t := range e.tiers {
		if letters <= t.MaxLength {
			return t.Multiplier
		}
	}
	return 1
}

// IsPremium reports whether name is on the premium list.
func (e *Engine) IsPremium(name string) bool {
	_, ok := e.premium[name]
	return ok
}

// PremiumNames returns the premium list in lexical order.
func (e *Engine) PremiumNames() []string {
	names := make([]string, 0, len(e.premium))
	for n := range e.premium {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Params exports the schedule.
func (e *Engine) Params() Params {
	return Params{
		PricePerLetter:    e.pricePerLetter.Clone(),
		PricePerYear:      e.pricePerYear.Clone(),
		PremiumMultiplier: e.premiumMultiplier,
		LengthTiers:       append([]LengthTier(nil), e.tiers...),
		PremiumNames:      e.PremiumNames(),
	}
}

func (e *Engine) clone() *Engine {
	premium := make(map[string]struct{}, len(e.premium))
	for n := range e.premium {
		premium[n] = struct{}{}
	}
	return &Engine{
		pricePerLetter:    e.pricePerLetter.Clone(),
		pricePerYear:      e.pricePerYear.Clone(),
		premiumMultiplier: e.premiumMultiplier,
		tiers:             append([]LengthTier(nil), e.tiers...),
		premium:           premium,
	}
}

func (e *Engine) WithPricePerLetter(v *uint256.Int) *Engine {
	c := e.clone()
	c.pricePerLetter = v.Clone()
	return c
}

func (e *Engine) WithPricePerYear(v *uint256.Int) *Engine {
	c := e.clone()
	c.pricePerYear = v.Clone()
	return c
}

// WithPremiumName adds name to the premium list.
func (e *Engine) WithPremiumName(name string) *Engine {
	c := e.clone()
	c.premium[name] = struct{}{}
	return c
}

// WithoutPremiumName removes name from the premium list and reports whether
// it was present.
func (e *Engine) WithoutPremiumName(name string) (*Engine, bool) {
	if _, ok := e.premium[name]; !ok {
		return e, false
	}
	c := e.clone()
	delete(c.premium, name)
	return c, true
}
