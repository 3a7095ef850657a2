package registrar

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ruteri/name-registrar/commitment"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/pricing"
	"github.com/ruteri/name-registrar/resolver"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is a complete, self-contained export of registrar state.
type Snapshot struct {
	Version     int                     `json:"version"`
	TakenAt     interfaces.Timestamp    `json:"taken_at"`
	Seq         uint64                  `json:"seq"`
	Config      ProtocolConfig          `json:"config"`
	Pricing     pricing.Params          `json:"pricing"`
	Domains     []Domain                `json:"domains"`
	Epochs      map[string]uint64       `json:"epochs"`
	Commitments []commitment.Commitment `json:"commitments"`
	Records     resolver.State          `json:"records"`
}

// Snapshot exports the state as seen at now. Expired domains are included;
// their status is recomputed on restore.
func (r *Registrar) Snapshot(now interfaces.Timestamp) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	domains := make([]Domain, 0, len(r.domains))
	for _, d := range r.domains {
		domains = append(domains, *d)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i].Name < domains[j].Name })

	epochs := make(map[string]uint64, len(r.epochs))
	for n, e := range r.epochs {
		epochs[n] = e
	}

	return Snapshot{
		Version:     SnapshotVersion,
		TakenAt:     now,
		Seq:         r.seq,
		Config:      r.cfg,
		Pricing:     r.pricing.Params(),
		Domains:     domains,
		Epochs:      epochs,
		Commitments: r.commitments.Export(),
		Records:     r.records.Export(),
	}
}

// Restore replaces the whole state with snap. Nothing changes when snap is
// invalid.
func (r *Registrar) Restore(snap Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported snapshot version %d", interfaces.ErrInvalidParameter, snap.Version)
	}
	if err := snap.Config.Validate(); err != nil {
		return err
	}
	engine, err := pricing.NewEngine(snap.Pricing)
	if err != nil {
		return err
	}

	domains := make(map[string]*Domain, len(snap.Domains))
	epochs := make(map[string]uint64, len(snap.Epochs))
	for n, e := range snap.Epochs {
		epochs[n] = e
	}
	for i := range snap.Domains {
		d := snap.Domains[i]
		n, err := interfaces.NormalizeRegistrable(d.Name, snap.Config.TLD)
		if err != nil {
			return err
		}
		if _, dup := domains[n]; dup {
			return fmt.Errorf("%w: duplicate domain %s in snapshot", interfaces.ErrInvalidParameter, n)
		}
		d.Name = n
		d.ID = interfaces.NameHash(n)
		if epochs[n] < d.Epoch {
			epochs[n] = d.Epoch
		}
		domains[n] = &d
	}

	commitments := commitment.NewStore()
	commitments.Import(snap.Commitments)
	records := resolver.NewStore()
	records.Import(snap.Records)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cfg = snap.Config
	r.pricing = engine
	r.domains = domains
	r.epochs = epochs
	r.commitments = commitments
	r.records = records
	r.seq = snap.Seq

	r.log.Info("State restored",
		slog.Int("domains", len(domains)),
		slog.Int("commitments", commitments.Len()),
		slog.Uint64("seq", snap.Seq))
	r.emit(interfaces.EventStateRestored, "", Call{Now: snap.TakenAt}, nil)
	return nil
}

// MarshalSnapshot encodes snap for storage.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// UnmarshalSnapshot decodes a stored snapshot.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: malformed snapshot: %v", interfaces.ErrInvalidParameter, err)
	}
	return snap, nil
}
