// Package registrar implements the name lifecycle: commit-reveal
// registration, renewal, transfer, release, and the resolver records and
// subdomains attached to each name.
//
// Every operation receives the ledger time in its Call and never reads a
// clock itself. Status is derived lazily from expiry and the grace period,
// so a domain expires without any background work. Mutations are serialized
// by a single writer lock and either apply completely or not at all.
package registrar

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/holiman/uint256"
	"github.com/ruteri/name-registrar/commitment"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/pricing"
	"github.com/ruteri/name-registrar/resolver"
)

// Options configures a Registrar.
type Options struct {
	Config ProtocolConfig
	// Pricing defaults to the launch price schedule.
	Pricing *pricing.Engine
	// Sink receives an event for every successful mutation. Optional.
	Sink interfaces.EventSink
	Log  *slog.Logger
}

// Registrar owns the complete protocol state.
type Registrar struct {
	mu sync.RWMutex

	cfg         ProtocolConfig
	pricing     *pricing.Engine
	domains     map[string]*Domain
	epochs      map[string]uint64
	commitments *commitment.Store
	records     *resolver.Store
	seq         uint64

	sink interfaces.EventSink
	log  *slog.Logger
}

// New validates the configuration and returns an empty registrar.
func New(opts Options) (*Registrar, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	engine := opts.Pricing
	if engine == nil {
		engine = pricing.MustDefault()
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Registrar{
		cfg:         opts.Config,
		pricing:     engine,
		domains:     make(map[string]*Domain),
		epochs:      make(map[string]uint64),
		commitments: commitment.NewStore(),
		records:     resolver.NewStore(),
		sink:        opts.Sink,
		log:         log,
	}, nil
}

func (r *Registrar) emit(kind interfaces.EventKind, name string, c Call, data map[string]string) {
	r.seq++
	if r.sink == nil {
		return
	}
	r.sink.Emit(interfaces.Event{
		Seq:   r.seq,
		Kind:  kind,
		Name:  name,
		Actor: c.Caller,
		At:    c.Now,
		Data:  data,
	})
}

func (r *Registrar) registrable(name string) (string, error) {
	return interfaces.NormalizeRegistrable(name, r.cfg.TLD)
}

// live returns the domain when it is Active or in Grace.
func (r *Registrar) live(name string, now interfaces.Timestamp) (*Domain, Status, bool) {
	d, ok := r.domains[name]
	if !ok {
		return nil, StatusUnregistered, false
	}
	st := d.StatusAt(now, r.cfg.GracePeriod)
	return d, st, st.Live()
}

// active returns the domain when it is Active, or ErrNameNotActive.
func (r *Registrar) active(name string, now interfaces.Timestamp) (*Domain, error) {
	d, st, _ := r.live(name, now)
	if st != StatusActive {
		return nil, fmt.Errorf("%w: %s is %s", interfaces.ErrNameNotActive, name, st)
	}
	return d, nil
}

func checkPayment(payment interfaces.Amount, fee *uint256.Int) (refund *uint256.Int, err error) {
	paid := interfaces.AmountOrZero(payment)
	if paid.Lt(fee) {
		return nil, fmt.Errorf("%w: paid %s, price %s", interfaces.ErrInsufficientPayment, paid.Dec(), fee.Dec())
	}
	return new(uint256.Int).Sub(paid, fee), nil
}

// MakeCommitment computes the commitment hash for a future registration.
// It has no side effects.
func (r *Registrar) MakeCommitment(name string, owner interfaces.Address, duration interfaces.Duration, secret interfaces.Hash, resolverAddr interfaces.Address) (interfaces.Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, err := r.registrable(name)
	if err != nil {
		return interfaces.Hash{}, err
	}
	return commitment.Make(n, owner, duration, secret, resolverAddr)
}

// Commit records an opaque commitment at c.Now. Commitments that can no
// longer be consumed are pruned first.
func (r *Registrar) Commit(c Call, hash interfaces.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := r.cfg.window()
	if pruned := r.commitments.Prune(c.Now, w.MaxAge); pruned > 0 {
		r.log.Debug("Pruned stale commitments", slog.Int("count", pruned))
	}
	if err := r.commitments.Commit(hash, c.Now, w); err != nil {
		return err
	}

	r.emit(interfaces.EventCommitted, "", c, map[string]string{"hash": hash.Hex()})
	return nil
}

// RegisterRequest reveals the parameters of an earlier commitment.
type RegisterRequest struct {
	Name       string
	Owner      interfaces.Address
	Duration   interfaces.Duration
	Commitment interfaces.Hash
	// Resolver defaults to the protocol resolver when zero.
	Resolver interfaces.Address
	// Secret, when set, must reproduce Commitment together with the other
	// fields.
	Secret *interfaces.Hash
}

// Registration is the outcome of a paid operation.
type Registration struct {
	Domain Domain       `json:"domain"`
	Fee    *uint256.Int `json:"fee"`
	Refund *uint256.Int `json:"refund"`
}

// Register allocates a name against a matured commitment. Checks run in a
// fixed order: duration, commitment, availability, payment.
func (r *Registrar) Register(c Call, req RegisterRequest) (*Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, err := r.registrable(req.Name)
	if err != nil {
		return nil, err
	}
	if req.Owner == interfaces.ZeroAddress {
		return nil, fmt.Errorf("%w: owner must be set", interfaces.ErrInvalidParameter)
	}

	if req.Duration < r.cfg.MinRegistrationDuration {
		return nil, fmt.Errorf("%w: %dms below minimum %dms", interfaces.ErrDurationTooShort, req.Duration, r.cfg.MinRegistrationDuration)
	}
	expiry, ok := c.Now.Add(req.Duration)
	if !ok {
		return nil, fmt.Errorf("%w: expiry overflows", interfaces.ErrInvalidParameter)
	}

	w := r.cfg.window()
	if err := r.commitments.Check(req.Commitment, c.Now, w); err != nil {
		return nil, err
	}
	if req.Secret != nil {
		expected, err := commitment.Make(name, req.Owner, req.Duration, *req.Secret, req.Resolver)
		if err != nil {
			return nil, err
		}
		if expected != req.Commitment {
			return nil, fmt.Errorf("%w: revealed parameters do not match commitment", interfaces.ErrInvalidParameter)
		}
	}

	if _, st, live := r.live(name, c.Now); live {
		return nil, fmt.Errorf("%w: %s is %s", interfaces.ErrNameUnavailable, name, st)
	}

	fee, err := r.pricing.Price(name, req.Duration)
	if err != nil {
		return nil, err
	}
	refund, err := checkPayment(c.Payment, fee)
	if err != nil {
		return nil, err
	}

	// All checks passed; nothing below can fail.
	_ = r.commitments.Consume(req.Commitment, c.Now, w)

	resolverAddr := req.Resolver
	if resolverAddr == interfaces.ZeroAddress {
		resolverAddr = r.cfg.Resolver
	}
	r.epochs[name]++
	d := &Domain{
		Name:         name,
		ID:           interfaces.NameHash(name),
		Owner:        req.Owner,
		Resolver:     resolverAddr,
		RegisteredAt: c.Now,
		Expiry:       expiry,
		Epoch:        r.epochs[name],
	}
	r.domains[name] = d
	r.records.Reset(name, req.Owner)

	r.log.Info("Domain registered",
		slog.String("name", name),
		slog.String("owner", req.Owner.Hex()),
		slog.Uint64("expiry", uint64(expiry)),
		slog.String("fee", fee.Dec()))

	r.emit(interfaces.EventRegistered, name, c, map[string]string{
		"owner":        req.Owner.Hex(),
		"resolver":     resolverAddr.Hex(),
		"duration":     strconv.FormatUint(uint64(req.Duration), 10),
		"expiry":       strconv.FormatUint(uint64(expiry), 10),
		"grace_period": strconv.FormatUint(uint64(r.cfg.GracePeriod), 10),
		"fee":          fee.Dec(),
	})

	return &Registration{Domain: *d, Fee: fee, Refund: refund}, nil
}

// Renew extends a live domain. Only the owner may renew, during the active
// period or the grace period.
func (r *Registrar) Renew(c Call, name string, duration interfaces.Duration) (*Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.registrable(name)
	if err != nil {
		return nil, err
	}
	d, st, live := r.live(n, c.Now)
	if !live {
		return nil, fmt.Errorf("%w: %s is %s", interfaces.ErrNameNotActive, n, st)
	}
	if c.Caller != d.Owner {
		return nil, fmt.Errorf("%w: only the owner may renew %s", interfaces.ErrUnauthorized, n)
	}
	expiry, ok := d.Expiry.Add(duration)
	if !ok {
		return nil, fmt.Errorf("%w: expiry overflows", interfaces.ErrInvalidParameter)
	}
	fee, err := r.pricing.Price(n, duration)
	if err != nil {
		return nil, err
	}
	refund, err := checkPayment(c.Payment, fee)
	if err != nil {
		return nil, err
	}

	d.Expiry = expiry

	r.log.Info("Domain renewed",
		slog.String("name", n),
		slog.Uint64("expiry", uint64(expiry)))
	r.emit(interfaces.EventRenewed, n, c, map[string]string{
		"duration": strconv.FormatUint(uint64(duration), 10),
		"expiry":   strconv.FormatUint(uint64(expiry), 10),
		"fee":      fee.Dec(),
	})

	return &Registration{Domain: *d, Fee: fee, Refund: refund}, nil
}

// Unregister releases a name and its record. Subdomains stay pinned to the
// released epoch, so reads on them fail with ErrParentExpired. The owner may release
// a live domain at any time; the protocol manager may purge a domain whose
// grace period has elapsed.
func (r *Registrar) Unregister(c Call, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.registrable(name)
	if err != nil {
		return err
	}
	d, st, live := r.live(n, c.Now)
	switch {
	case d == nil:
		return fmt.Errorf("%w: %s", interfaces.ErrNotFound, n)
	case live && c.Caller == d.Owner:
	case !live && c.Caller == r.cfg.Manager:
	case live:
		return fmt.Errorf("%w: %s is %s and held by its owner", interfaces.ErrUnauthorized, n, st)
	default:
		return fmt.Errorf("%w: only the protocol manager may purge %s", interfaces.ErrUnauthorized, n)
	}

	delete(r.domains, n)
	r.records.Drop(n)

	r.log.Info("Domain unregistered",
		slog.String("name", n),
		slog.String("by", c.Caller.Hex()),
		slog.String("status", st.String()))
	r.emit(interfaces.EventUnregistered, n, c, map[string]string{"status": st.String()})
	return nil
}

// Transfer hands an active domain to a new owner. Unless keepRecords is set
// the records and subdomains are wiped and the new owner becomes manager.
func (r *Registrar) Transfer(c Call, name string, newOwner interfaces.Address, keepRecords bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.registrable(name)
	if err != nil {
		return err
	}
	if newOwner == interfaces.ZeroAddress {
		return fmt.Errorf("%w: new owner must be set", interfaces.ErrInvalidParameter)
	}
	d, err := r.active(n, c.Now)
	if err != nil {
		return err
	}
	if c.Caller != d.Owner {
		return fmt.Errorf("%w: only the owner may transfer %s", interfaces.ErrUnauthorized, n)
	}

	if !keepRecords {
		if err := r.records.ClearContent(n); err != nil {
			return err
		}
		_ = r.records.SetManager(n, newOwner)
		r.records.DropSubdomains(n)
	}
	previous := d.Owner
	d.Owner = newOwner

	r.log.Info("Domain transferred",
		slog.String("name", n),
		slog.String("from", previous.Hex()),
		slog.String("to", newOwner.Hex()))
	r.emit(interfaces.EventTransferred, n, c, map[string]string{
		"from":         previous.Hex(),
		"to":           newOwner.Hex(),
		"keep_records": strconv.FormatBool(keepRecords),
	})
	return nil
}

// Available reports whether name could be registered at now.
func (r *Registrar) Available(now interfaces.Timestamp, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, err := r.registrable(name)
	if err != nil {
		return false, err
	}
	_, _, live := r.live(n, now)
	return !live, nil
}

// Domain returns a live domain, or ErrNotFound when the name is absent or
// past its grace period.
func (r *Registrar) Domain(now interfaces.Timestamp, name string) (Domain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, err := r.registrable(name)
	if err != nil {
		return Domain{}, err
	}
	d, _, live := r.live(n, now)
	if !live {
		return Domain{}, fmt.Errorf("%w: %s", interfaces.ErrNotFound, n)
	}
	return *d, nil
}

// DomainStatus reports the lifecycle phase of name. Unknown names are
// Unregistered.
func (r *Registrar) DomainStatus(now interfaces.Timestamp, name string) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, err := r.registrable(name)
	if err != nil {
		return StatusUnregistered, err
	}
	_, st, _ := r.live(n, now)
	return st, nil
}

// Price quotes the fee for registering or renewing name for duration.
func (r *Registrar) Price(name string, duration interfaces.Duration) (*uint256.Int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, err := r.registrable(name)
	if err != nil {
		return nil, err
	}
	return r.pricing.Price(n, duration)
}

// Config returns the current protocol configuration.
func (r *Registrar) Config() ProtocolConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Stats summarizes state size for metrics.
type Stats struct {
	Domains     int
	Commitments int
	LastSeq     uint64
}

func (r *Registrar) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{Domains: len(r.domains), Commitments: r.commitments.Len(), LastSeq: r.seq}
}
