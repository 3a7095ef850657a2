// Package commitment implements the commit half of commit-reveal
// registration: clients publish an opaque hash binding the registration
// parameters and reveal them only after the hash has aged.
package commitment

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/name-registrar/interfaces"
)

// Make binds name, owner, duration, secret and resolver into a commitment
// hash. name must already be normalized. The encoding length-prefixes the
// name so distinct inputs never share a preimage.
func Make(name string, owner interfaces.Address, duration interfaces.Duration, secret interfaces.Hash, resolver interfaces.Address) (interfaces.Hash, error) {
	if name == "" {
		return interfaces.Hash{}, fmt.Errorf("%w: empty name", interfaces.ErrInvalidParameter)
	}
	if duration == 0 {
		return interfaces.Hash{}, fmt.Errorf("%w: zero duration", interfaces.ErrInvalidParameter)
	}

	buf := make([]byte, 0, 4+len(name)+20+8+32+20)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(name)))
	buf = append(buf, name...)
	buf = append(buf, owner.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(duration))
	buf = append(buf, secret.Bytes()...)
	buf = append(buf, resolver.Bytes()...)

	return crypto.Keccak256Hash(buf), nil
}

// Commitment is a pending commitment and the instant it was accepted.
type Commitment struct {
	Hash        interfaces.Hash      `json:"hash"`
	SubmittedAt interfaces.Timestamp `json:"submitted_at"`
}

// Window bounds the age at which a commitment may be consumed.
type Window struct {
	MinAge interfaces.Duration
	MaxAge interfaces.Duration
}

// Store holds pending commitments. It is not safe for concurrent use; the
// registrar serializes access.
type Store struct {
	pending map[interfaces.Hash]interfaces.Timestamp
}

func NewStore() *Store {
	return &Store{pending: make(map[interfaces.Hash]interfaces.Timestamp)}
}

func expired(submitted, now interfaces.Timestamp, maxAge interfaces.Duration) bool {
	return now.Since(submitted) > maxAge
}

// Commit records hash at now. An identical pending hash is rejected unless
// it has already aged past the window, in which case it is replaced.
func (s *Store) Commit(hash interfaces.Hash, now interfaces.Timestamp, w Window) error {
	if hash == (interfaces.Hash{}) {
		return fmt.Errorf("%w: zero commitment", interfaces.ErrInvalidParameter)
	}
	if submitted, ok := s.pending[hash]; ok && !expired(submitted, now, w.MaxAge) {
		return fmt.Errorf("%w: %s", interfaces.ErrDuplicateCommitment, hash.Hex())
	}
	s.pending[hash] = now
	return nil
}

// Check validates hash against the window without consuming it.
func (s *Store) Check(hash interfaces.Hash, now interfaces.Timestamp, w Window) error {
	submitted, ok := s.pending[hash]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrCommitmentNotFound, hash.Hex())
	}
	age := now.Since(submitted)
	if age < w.MinAge {
		return fmt.Errorf("%w: age %dms below minimum %dms", interfaces.ErrCommitmentTooYoung, age, w.MinAge)
	}
	if age > w.MaxAge {
		return fmt.Errorf("%w: age %dms above maximum %dms", interfaces.ErrCommitmentExpired, age, w.MaxAge)
	}
	return nil
}

// Consume validates hash and removes it.
func (s *Store) Consume(hash interfaces.Hash, now interfaces.Timestamp, w Window) error {
	if err := s.Check(hash, now, w); err != nil {
		return err
	}
	delete(s.pending, hash)
	return nil
}

// Prune drops commitments that can no longer be consumed and returns how many
// were removed.
func (s *Store) Prune(now interfaces.Timestamp, maxAge interfaces.Duration) int {
	removed := 0
	for h, submitted := range s.pending {
		if expired(submitted, now, maxAge) {
			delete(s.pending, h)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	return len(s.pending)
}

// Export lists pending commitments ordered by submission time then hash.
func (s *Store) Export() []Commitment {
	out := make([]Commitment, 0, len(s.pending))
	for h, ts := range s.pending {
		out = append(out, Commitment{Hash: h, SubmittedAt: ts})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt != out[j].SubmittedAt {
			return out[i].SubmittedAt < out[j].SubmittedAt
		}
		return out[i].Hash.Cmp(out[j].Hash) < 0
	})
	return out
}

// Import replaces the store contents.
func (s *Store) Import(cs []Commitment) {
	s.pending = make(map[interfaces.Hash]interfaces.Timestamp, len(cs))
	for _, c := range cs {
		s.pending[c.Hash] = c.SubmittedAt
	}
}
