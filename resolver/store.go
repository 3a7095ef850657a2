// Package resolver stores the records attached to registered names: a
// content hash, free-form text entries, a delegated manager and the
// subdomains allocated beneath each name.
//
// The store holds no notion of time or ownership. The registrar decides
// liveness and authorization and calls into the store under its own lock.
package resolver

import (
	"fmt"
	"maps"
	"sort"

	"github.com/ruteri/name-registrar/interfaces"
)

// MaxContentHashLength bounds a stored content hash.
const MaxContentHashLength = 256

// Record is the resolver entry of a registered name.
type Record struct {
	ContentHash []byte             `json:"content_hash,omitempty"`
	Text        map[string]string  `json:"text,omitempty"`
	Manager     interfaces.Address `json:"manager"`
}

// Subdomain is a label allocated under a registered parent. ParentEpoch pins
// the registration of the parent it was created under.
type Subdomain struct {
	Label       string             `json:"label"`
	Parent      string             `json:"parent"`
	ParentEpoch uint64             `json:"parent_epoch"`
	Manager     interfaces.Address `json:"manager"`
	Text        map[string]string  `json:"text,omitempty"`
}

// FQDN returns label.parent.
func (s *Subdomain) FQDN() string {
	return s.Label + "." + s.Parent
}

func (r *Record) clone() *Record {
	return &Record{
		ContentHash: append([]byte(nil), r.ContentHash...),
		Text:        maps.Clone(r.Text),
		Manager:     r.Manager,
	}
}

func (s *Subdomain) clone() *Subdomain {
	c := *s
	c.Text = maps.Clone(s.Text)
	return &c
}

// Store is not safe for concurrent use.
type Store struct {
	records    map[string]*Record
	subdomains map[string]map[string]*Subdomain // parent -> label -> subdomain
}

func NewStore() *Store {
	return &Store{
		records:    make(map[string]*Record),
		subdomains: make(map[string]map[string]*Subdomain),
	}
}

// Reset replaces the record of name with an empty one managed by manager.
// Subdomains are kept; entries pinned to an older parent epoch stay as
// tombstones until the label is allocated again.
func (s *Store) Reset(name string, manager interfaces.Address) {
	s.records[name] = &Record{Text: map[string]string{}, Manager: manager}
}

// Drop removes the record of name. Subdomains are kept as in Reset.
func (s *Store) Drop(name string) {
	delete(s.records, name)
}

// DropSubdomains removes every subdomain under parent.
func (s *Store) DropSubdomains(parent string) {
	delete(s.subdomains, parent)
}

// Record returns a copy of the record of name.
func (s *Store) Record(name string) (Record, bool) {
	r, ok := s.records[name]
	if !ok {
		return Record{}, false
	}
	return *r.clone(), true
}

func (s *Store) record(name string) (*Record, error) {
	r, ok := s.records[name]
	if !ok {
		return nil, fmt.Errorf("%w: no record for %s", interfaces.ErrNotFound, name)
	}
	return r, nil
}

func (s *Store) SetContentHash(name string, hash []byte) error {
	if len(hash) == 0 || len(hash) > MaxContentHashLength {
		return fmt.Errorf("%w: content hash must be 1..%d bytes", interfaces.ErrInvalidParameter, MaxContentHashLength)
	}
	r, err := s.record(name)
	if err != nil {
		return err
	}
	r.ContentHash = append([]byte(nil), hash...)
	return nil
}

// SetText upserts a text entry. An empty value deletes the key.
func (s *Store) SetText(name, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty text key", interfaces.ErrInvalidParameter)
	}
	r, err := s.record(name)
	if err != nil {
		return err
	}
	setText(r.Text, key, value)
	return nil
}

func setText(text map[string]string, key, value string) {
	if value == "" {
		delete(text, key)
		return
	}
	text[key] = value
}

// ClearContent wipes the content hash and text entries of name, keeping the
// record itself.
func (s *Store) ClearContent(name string) error {
	r, err := s.record(name)
	if err != nil {
		return err
	}
	r.ContentHash = nil
	r.Text = map[string]string{}
	return nil
}

func (s *Store) SetManager(name string, manager interfaces.Address) error {
	r, err := s.record(name)
	if err != nil {
		return err
	}
	r.Manager = manager
	return nil
}

// AddSubdomain allocates label under parent. An existing subdomain with the
// same label is replaced only when it belongs to an older parent epoch.
func (s *Store) AddSubdomain(parent, label string, epoch uint64, manager interfaces.Address) (Subdomain, error) {
	children := s.subdomains[parent]
	if children == nil {
		children = make(map[string]*Subdomain)
		s.subdomains[parent] = children
	}
	if existing, ok := children[label]; ok && existing.ParentEpoch == epoch {
		return Subdomain{}, fmt.Errorf("%w: %s already allocated", interfaces.ErrNameUnavailable, existing.FQDN())
	}
	sub := &Subdomain{
		Label:       label,
		Parent:      parent,
		ParentEpoch: epoch,
		Manager:     manager,
		Text:        map[string]string{},
	}
	children[label] = sub
	return *sub.clone(), nil
}

func (s *Store) RemoveSubdomain(parent, label string) error {
	if _, err := s.subdomain(parent, label); err != nil {
		return err
	}
	delete(s.subdomains[parent], label)
	if len(s.subdomains[parent]) == 0 {
		delete(s.subdomains, parent)
	}
	return nil
}

func (s *Store) subdomain(parent, label string) (*Subdomain, error) {
	sub, ok := s.subdomains[parent][label]
	if !ok {
		return nil, fmt.Errorf("%w: no subdomain %s.%s", interfaces.ErrNotFound, label, parent)
	}
	return sub, nil
}

// Subdomain returns a copy of the subdomain label.parent.
func (s *Store) Subdomain(parent, label string) (Subdomain, bool) {
	sub, err := s.subdomain(parent, label)
	if err != nil {
		return Subdomain{}, false
	}
	return *sub.clone(), true
}

func (s *Store) SetSubdomainText(parent, label, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty text key", interfaces.ErrInvalidParameter)
	}
	sub, err := s.subdomain(parent, label)
	if err != nil {
		return err
	}
	setText(sub.Text, key, value)
	return nil
}

func (s *Store) SetSubdomainManager(parent, label string, manager interfaces.Address) error {
	sub, err := s.subdomain(parent, label)
	if err != nil {
		return err
	}
	sub.Manager = manager
	return nil
}

// Subdomains lists the subdomains of parent ordered by label.
func (s *Store) Subdomains(parent string) []Subdomain {
	children := s.subdomains[parent]
	out := make([]Subdomain, 0, len(children))
	for _, sub := range children {
		out = append(out, *sub.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// State is the serializable content of a Store.
type State struct {
	Records    map[string]*Record `json:"records"`
	Subdomains []Subdomain        `json:"subdomains"`
}

// Export deep-copies the store contents.
func (s *Store) Export() State {
	st := State{Records: make(map[string]*Record, len(s.records))}
	for name, r := range s.records {
		st.Records[name] = r.clone()
	}
	parents := make([]string, 0, len(s.subdomains))
	for p := range s.subdomains {
		parents = append(parents, p)
	}
	sort.Strings(parents)
	for _, p := range parents {
		st.Subdomains = append(st.Subdomains, s.Subdomains(p)...)
	}
	return st
}

// Import replaces the store contents with st.
func (s *Store) Import(st State) {
	s.records = make(map[string]*Record, len(st.Records))
	for name, r := range st.Records {
		c := r.clone()
		if c.Text == nil {
			c.Text = map[string]string{}
		}
		s.records[name] = c
	}
	s.subdomains = make(map[string]map[string]*Subdomain)
	for i := range st.Subdomains {
		sub := st.Subdomains[i].clone()
		if sub.Text == nil {
			sub.Text = map[string]string{}
		}
		if s.subdomains[sub.Parent] == nil {
			s.subdomains[sub.Parent] = make(map[string]*Subdomain)
		}
		s.subdomains[sub.Parent][sub.Label] = sub
	}
}
