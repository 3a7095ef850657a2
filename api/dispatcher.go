package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/name-registrar/events"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/registrar"
)

// Observer is notified once per executed call. kind is empty on success.
type Observer interface {
	ObserveCall(method, kind string, elapsed time.Duration)
}

// Call is one authenticated request against the registrar.
type Call struct {
	Caller  interfaces.Address
	Payment interfaces.Amount
	Op      Operation
}

// Dispatcher routes typed operations to the registrar. It is the single
// place where the ledger clock is read.
type Dispatcher struct {
	registrar *registrar.Registrar
	clock     interfaces.Clock
	recorder  *events.Recorder
	observer  Observer
	log       *slog.Logger
}

// DispatcherOpts configures a Dispatcher. Recorder and Observer are optional.
type DispatcherOpts struct {
	Registrar *registrar.Registrar
	Clock     interfaces.Clock
	Recorder  *events.Recorder
	Observer  Observer
	Log       *slog.Logger
}

func NewDispatcher(opts DispatcherOpts) *Dispatcher {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		registrar: opts.Registrar,
		clock:     opts.Clock,
		recorder:  opts.Recorder,
		observer:  opts.Observer,
		log:       log,
	}
}

// Registrar exposes the underlying state machine for snapshotting.
func (d *Dispatcher) Registrar() *registrar.Registrar {
	return d.registrar
}

// Now samples the ledger clock.
func (d *Dispatcher) Now(ctx context.Context) (interfaces.Timestamp, error) {
	now, err := d.clock.Now(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading ledger time: %w", err)
	}
	return now, nil
}

// Execute runs a single operation. The clock is sampled once and the same
// instant is used for every check the operation performs.
func (d *Dispatcher) Execute(ctx context.Context, call Call) (any, error) {
	if call.Op == nil {
		return nil, fmt.Errorf("%w: missing operation", interfaces.ErrInvalidParameter)
	}
	start := time.Now()
	method := call.Op.Method()

	result, err := d.execute(ctx, call)

	kind := interfaces.ErrorKind(err)
	if d.observer != nil {
		d.observer.ObserveCall(method, kind, time.Since(start))
	}
	switch {
	case err == nil && call.Op.Mutating():
		d.log.Info("Executed call", slog.String("method", method), slog.String("caller", call.Caller.Hex()))
	case err != nil && kind == "Internal":
		d.log.Error("Call failed", slog.String("method", method), "err", err)
	case err != nil:
		d.log.Debug("Call rejected", slog.String("method", method), slog.String("kind", kind), "err", err)
	}
	return result, err
}

func (d *Dispatcher) execute(ctx context.Context, call Call) (any, error) {
	now, err := d.Now(ctx)
	if err != nil {
		return nil, err
	}
	c := registrar.Call{Caller: call.Caller, Payment: call.Payment, Now: now}
	r := d.registrar

	switch op := call.Op.(type) {
	case *ReadAdmin:
		return r.Config().Admin, nil
	case *ReadManager:
		return r.Config().Manager, nil
	case *ReadResolver:
		return r.Config().Resolver, nil
	case *ReadGracePeriod:
		return r.Config().GracePeriod, nil
	case *ReadMinCommitAge:
		return r.Config().MinCommitAge, nil
	case *ReadMaxCommitAge:
		return r.Config().MaxCommitAge, nil
	case *ReadMinRegistrationDuration:
		return r.Config().MinRegistrationDuration, nil
	case *ReadPricing:
		return r.Pricing(), nil
	case *ReadPremiumNames:
		return r.Pricing().PremiumNames, nil
	case *CurrentTimestamp:
		return now, nil
	case *ReadDomainPrice:
		return r.Price(op.Name, op.Duration)
	case *MakeCommitment:
		return r.MakeCommitment(op.Name, op.Owner, op.Duration, op.Secret, op.Resolver)

	case *Commit:
		return ack(r.Commit(c, op.Hash))
	case *Register:
		return r.Register(c, registrar.RegisterRequest{
			Name:       op.Name,
			Owner:      op.Owner,
			Duration:   op.Duration,
			Commitment: op.CommitHash,
			Resolver:   op.Resolver,
			Secret:     op.Secret,
		})
	case *RenewDomain:
		return r.Renew(c, op.Name, op.Duration)
	case *UnregisterDomain:
		return ack(r.Unregister(c, op.Name))
	case *TransferDomain:
		return ack(r.Transfer(c, op.Name, op.NewOwner, op.KeepRecords))

	case *CheckDomainAvailability:
		return r.Available(now, op.Name)
	case *ReadDomain:
		return r.Domain(now, op.Name)
	case *ReadDomainOwner:
		dom, err := r.Domain(now, op.Name)
		if err != nil {
			return nil, err
		}
		return dom.Owner, nil
	case *ReadDomainExpiryTime:
		dom, err := r.Domain(now, op.Name)
		if err != nil {
			return nil, err
		}
		return dom.Expiry, nil
	case *ReadDomainManager:
		rec, err := r.Record(now, op.Name)
		if err != nil {
			return nil, err
		}
		return rec.Manager, nil
	case *ReadDomainStatus:
		return r.DomainStatus(now, op.Name)

	case *SetContentHash:
		return ack(r.SetContentHash(c, op.Name, op.ContentHash))
	case *SetDomainContentText:
		return ack(r.SetContentText(c, op.Name, op.Key, op.Text))
	case *ReadContentHash:
		rec, err := r.Record(now, op.Name)
		if err != nil {
			return nil, err
		}
		if len(rec.ContentHash) == 0 {
			return nil, fmt.Errorf("%w: no content hash for %s", interfaces.ErrNotFound, op.Name)
		}
		return hexutil.Bytes(rec.ContentHash), nil
	case *ReadDomainContentText:
		return textResult(r.DomainContentText(now, op.Name, op.Key))
	case *SetDomainManager:
		return ack(r.SetDomainManager(c, op.Name, op.NewManager))

	case *RegisterSubdomain:
		return r.RegisterSubdomain(c, op.ParentName, op.Label, op.Manager)
	case *UnregisterSubdomain:
		return ack(r.UnregisterSubdomain(c, op.ParentName, op.Label))
	case *ChangeSubdomainManager:
		return ack(r.ChangeSubdomainManager(c, op.ParentName, op.Label, op.NewManager))
	case *SetSubdomainContentText:
		return ack(r.SetSubdomainContentText(c, op.SubdomainName, op.Key, op.Text))
	case *ReadSubdomainContentText:
		return textResult(r.SubdomainContentText(now, op.SubdomainName, op.Key))
	case *ReadSubdomainManager:
		sub, err := r.Subdomain(now, op.SubdomainName)
		if err != nil {
			return nil, err
		}
		return sub.Manager, nil
	case *ListSubdomains:
		return r.Subdomains(now, op.ParentName)

	case *ChangeManager:
		return ack(r.ChangeManager(c, op.NewManager))
	case *ChangeAdmin:
		return ack(r.ChangeAdmin(c, op.NewAdmin))
	case *SetResolver:
		return ack(r.SetResolver(c, op.Resolver))
	case *SetGracePeriod:
		return ack(r.SetGracePeriod(c, op.Value))
	case *SetMinCommitAge:
		return ack(r.SetMinCommitAge(c, op.Value))
	case *SetMaxCommitAge:
		return ack(r.SetMaxCommitAge(c, op.Value))
	case *SetMinRegistrationDuration:
		return ack(r.SetMinRegistrationDuration(c, op.Value))
	case *SetPricePerLetter:
		return ack(r.SetPricePerLetter(c, op.Value))
	case *SetPricePerYear:
		return ack(r.SetPricePerYear(c, op.Value))
	case *AddPremiumName:
		return ack(r.AddPremiumName(c, op.Name))
	case *RemovePremiumName:
		return ack(r.RemovePremiumName(c, op.Name))

	case *ListEvents:
		if d.recorder == nil {
			return []interfaces.Event{}, nil
		}
		return d.recorder.Since(op.Since, op.Limit), nil

	default:
		return nil, fmt.Errorf("%w: unsupported operation %T", interfaces.ErrInvalidParameter, call.Op)
	}
}

// Ack is the result of a mutation without a return value.
type Ack struct {
	Done bool `json:"done"`
}

func ack(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return Ack{Done: true}, nil
}

func textResult(text map[string]string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return text, nil
}
