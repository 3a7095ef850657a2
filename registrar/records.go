package registrar

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/resolver"
)

// authorizeRecord returns the active domain when caller is its owner or its
// delegated manager.
func (r *Registrar) authorizeRecord(c Call, name string) (string, *Domain, error) {
	n, err := r.registrable(name)
	if err != nil {
		return "", nil, err
	}
	d, err := r.active(n, c.Now)
	if err != nil {
		return "", nil, err
	}
	if c.Caller == d.Owner {
		return n, d, nil
	}
	if rec, ok := r.records.Record(n); ok && rec.Manager == c.Caller {
		return n, d, nil
	}
	return "", nil, fmt.Errorf("%w: %s is neither owner nor manager of %s", interfaces.ErrUnauthorized, c.Caller.Hex(), n)
}

func (r *Registrar) SetContentHash(c Call, name string, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, _, err := r.authorizeRecord(c, name)
	if err != nil {
		return err
	}
	if err := r.records.SetContentHash(n, hash); err != nil {
		return err
	}

	r.emit(interfaces.EventContentHashChanged, n, c, map[string]string{"hash": hexutil.Encode(hash)})
	return nil
}

// SetContentText upserts a text entry of name. An empty value removes it.
func (r *Registrar) SetContentText(c Call, name, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, _, err := r.authorizeRecord(c, name)
	if err != nil {
		return err
	}
	if err := r.records.SetText(n, key, value); err != nil {
		return err
	}

	r.emit(interfaces.EventContentTextChanged, n, c, map[string]string{"key": key, "value": value})
	return nil
}

// SetDomainManager delegates record management of name. Only the owner may
// change the manager.
func (r *Registrar) SetDomainManager(c Call, name string, manager interfaces.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.registrable(name)
	if err != nil {
		return err
	}
	if manager == interfaces.ZeroAddress {
		return fmt.Errorf("%w: manager must be set", interfaces.ErrInvalidParameter)
	}
	d, err := r.active(n, c.Now)
	if err != nil {
		return err
	}
	if c.Caller != d.Owner {
		return fmt.Errorf("%w: only the owner may change the manager of %s", interfaces.ErrUnauthorized, n)
	}
	if err := r.records.SetManager(n, manager); err != nil {
		return err
	}

	r.emit(interfaces.EventDomainManagerChanged, n, c, map[string]string{"manager": manager.Hex()})
	return nil
}

// authorizeParent returns the active parent domain for subdomain
// allocation. Failures on the parent map to ErrParentNotActive.
func (r *Registrar) authorizeParent(c Call, parent string) (string, *Domain, error) {
	p, err := r.registrable(parent)
	if err != nil {
		return "", nil, err
	}
	d := r.domains[p]
	if d.StatusAt(c.Now, r.cfg.GracePeriod) != StatusActive {
		return "", nil, fmt.Errorf("%w: %s", interfaces.ErrParentNotActive, p)
	}
	return p, d, nil
}

func (r *Registrar) isParentController(p string, d *Domain, who interfaces.Address) bool {
	if who == d.Owner {
		return true
	}
	rec, ok := r.records.Record(p)
	return ok && rec.Manager == who
}

// RegisterSubdomain allocates label under parent. The subdomain manager
// defaults to the caller when manager is zero.
func (r *Registrar) RegisterSubdomain(c Call, parent, label string, manager interfaces.Address) (resolver.Subdomain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, d, err := r.authorizeParent(c, parent)
	if err != nil {
		return resolver.Subdomain{}, err
	}
	if !r.isParentController(p, d, c.Caller) {
		return resolver.Subdomain{}, fmt.Errorf("%w: %s does not control %s", interfaces.ErrUnauthorized, c.Caller.Hex(), p)
	}
	l, err := interfaces.NormalizeLabel(label, p)
	if err != nil {
		return resolver.Subdomain{}, err
	}
	if manager == interfaces.ZeroAddress {
		manager = c.Caller
	}
	sub, err := r.records.AddSubdomain(p, l, d.Epoch, manager)
	if err != nil {
		return resolver.Subdomain{}, err
	}

	r.log.Info("Subdomain registered",
		slog.String("fqdn", sub.FQDN()),
		slog.String("manager", manager.Hex()))
	r.emit(interfaces.EventSubdomainRegistered, sub.FQDN(), c, map[string]string{"manager": manager.Hex()})
	return sub, nil
}

// UnregisterSubdomain removes label.parent. The parent owner, the parent
// manager or the subdomain manager may remove it.
func (r *Registrar) UnregisterSubdomain(c Call, parent, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, d, err := r.authorizeParent(c, parent)
	if err != nil {
		return err
	}
	l, err := interfaces.NormalizeLabel(label, p)
	if err != nil {
		return err
	}
	sub, ok := r.records.Subdomain(p, l)
	if !ok || sub.ParentEpoch != d.Epoch {
		return fmt.Errorf("%w: %s.%s", interfaces.ErrNotFound, l, p)
	}
	if !r.isParentController(p, d, c.Caller) && sub.Manager != c.Caller {
		return fmt.Errorf("%w: %s may not remove %s", interfaces.ErrUnauthorized, c.Caller.Hex(), sub.FQDN())
	}
	if err := r.records.RemoveSubdomain(p, l); err != nil {
		return err
	}

	r.emit(interfaces.EventSubdomainRemoved, sub.FQDN(), c, nil)
	return nil
}

// ChangeSubdomainManager reassigns a subdomain. Only the parent owner may
// do so.
func (r *Registrar) ChangeSubdomainManager(c Call, parent, label string, manager interfaces.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if manager == interfaces.ZeroAddress {
		return fmt.Errorf("%w: manager must be set", interfaces.ErrInvalidParameter)
	}
	p, d, err := r.authorizeParent(c, parent)
	if err != nil {
		return err
	}
	if c.Caller != d.Owner {
		return fmt.Errorf("%w: only the owner of %s may reassign subdomains", interfaces.ErrUnauthorized, p)
	}
	l, err := interfaces.NormalizeLabel(label, p)
	if err != nil {
		return err
	}
	sub, ok := r.records.Subdomain(p, l)
	if !ok || sub.ParentEpoch != d.Epoch {
		return fmt.Errorf("%w: %s.%s", interfaces.ErrNotFound, l, p)
	}
	if err := r.records.SetSubdomainManager(p, l, manager); err != nil {
		return err
	}

	r.emit(interfaces.EventSubdomainChanged, sub.FQDN(), c, map[string]string{"manager": manager.Hex()})
	return nil
}

// splitSubdomain splits a normalized fqdn "label.name.tld" into label and
// registrable parent.
func (r *Registrar) splitSubdomain(fqdn string) (label, parent string, err error) {
	n, err := interfaces.NormalizeName(fqdn)
	if err != nil {
		return "", "", err
	}
	label, parent = interfaces.SplitName(n)
	if !strings.Contains(parent, ".") {
		return "", "", fmt.Errorf("%w: %q is not a subdomain", interfaces.ErrInvalidParameter, fqdn)
	}
	if parent, err = r.registrable(parent); err != nil {
		return "", "", err
	}
	return label, parent, nil
}

// SetSubdomainContentText upserts a text entry of a subdomain. The subdomain
// manager or the parent owner may write.
func (r *Registrar) SetSubdomainContentText(c Call, fqdn, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, parent, err := r.splitSubdomain(fqdn)
	if err != nil {
		return err
	}
	p, d, err := r.authorizeParent(c, parent)
	if err != nil {
		return err
	}
	sub, ok := r.records.Subdomain(p, l)
	if !ok || sub.ParentEpoch != d.Epoch {
		return fmt.Errorf("%w: %s.%s", interfaces.ErrNotFound, l, p)
	}
	if c.Caller != sub.Manager && c.Caller != d.Owner {
		return fmt.Errorf("%w: %s may not write %s", interfaces.ErrUnauthorized, c.Caller.Hex(), sub.FQDN())
	}
	if err := r.records.SetSubdomainText(p, l, key, value); err != nil {
		return err
	}

	r.emit(interfaces.EventContentTextChanged, sub.FQDN(), c, map[string]string{"key": key, "value": value})
	return nil
}

// resolveSubdomain re-derives subdomain liveness from its parent.
func (r *Registrar) resolveSubdomain(now interfaces.Timestamp, fqdn string) (resolver.Subdomain, error) {
	l, p, err := r.splitSubdomain(fqdn)
	if err != nil {
		return resolver.Subdomain{}, err
	}
	sub, ok := r.records.Subdomain(p, l)
	if !ok {
		return resolver.Subdomain{}, fmt.Errorf("%w: %s.%s", interfaces.ErrNotFound, l, p)
	}
	d := r.domains[p]
	if d == nil || d.Epoch != sub.ParentEpoch || d.StatusAt(now, r.cfg.GracePeriod) != StatusActive {
		return resolver.Subdomain{}, fmt.Errorf("%w: %s", interfaces.ErrParentExpired, p)
	}
	return sub, nil
}

// Subdomain returns label.parent while its parent is active.
func (r *Registrar) Subdomain(now interfaces.Timestamp, fqdn string) (resolver.Subdomain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveSubdomain(now, fqdn)
}

// SubdomainContentText returns the text entries of a subdomain, or the
// single entry key when key is non-empty.
func (r *Registrar) SubdomainContentText(now interfaces.Timestamp, fqdn, key string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, err := r.resolveSubdomain(now, fqdn)
	if err != nil {
		return nil, err
	}
	return selectText(sub.Text, key, sub.FQDN())
}

func selectText(text map[string]string, key, owner string) (map[string]string, error) {
	if key == "" {
		if text == nil {
			return map[string]string{}, nil
		}
		return text, nil
	}
	v, ok := text[key]
	if !ok {
		return nil, fmt.Errorf("%w: no text %q on %s", interfaces.ErrNotFound, key, owner)
	}
	return map[string]string{key: v}, nil
}

// Subdomains lists the live subdomains of an active parent.
func (r *Registrar) Subdomains(now interfaces.Timestamp, parent string) ([]resolver.Subdomain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, err := r.registrable(parent)
	if err != nil {
		return nil, err
	}
	d := r.domains[p]
	if d == nil || d.StatusAt(now, r.cfg.GracePeriod) != StatusActive {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrParentExpired, p)
	}
	var out []resolver.Subdomain
	for _, sub := range r.records.Subdomains(p) {
		if sub.ParentEpoch == d.Epoch {
			out = append(out, sub)
		}
	}
	return out, nil
}

// Record returns the resolver record of a live domain.
func (r *Registrar) Record(now interfaces.Timestamp, name string) (resolver.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.record(now, name)
}

func (r *Registrar) record(now interfaces.Timestamp, name string) (resolver.Record, error) {
	n, err := r.registrable(name)
	if err != nil {
		return resolver.Record{}, err
	}
	if _, _, live := r.live(n, now); !live {
		return resolver.Record{}, fmt.Errorf("%w: %s", interfaces.ErrNotFound, n)
	}
	rec, ok := r.records.Record(n)
	if !ok {
		return resolver.Record{}, fmt.Errorf("%w: no record for %s", interfaces.ErrNotFound, n)
	}
	return rec, nil
}

// DomainContentText returns the text entries of a live domain, or the single
// entry key when key is non-empty.
func (r *Registrar) DomainContentText(now interfaces.Timestamp, name, key string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, err := r.record(now, name)
	if err != nil {
		return nil, err
	}
	return selectText(rec.Text, key, name)
}
