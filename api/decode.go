package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ruteri/name-registrar/interfaces"
)

var operationFactories = map[string]func() Operation{}

func registerOperation[P Operation](newOp func() P) {
	operationFactories[newOp().Method()] = func() Operation { return newOp() }
}

func init() {
	registerOperation(func() *ReadAdmin { return &ReadAdmin{} })
	registerOperation(func() *ReadManager { return &ReadManager{} })
	registerOperation(func() *ReadResolver { return &ReadResolver{} })
	registerOperation(func() *ReadGracePeriod { return &ReadGracePeriod{} })
	registerOperation(func() *ReadMinCommitAge { return &ReadMinCommitAge{} })
	registerOperation(func() *ReadMaxCommitAge { return &ReadMaxCommitAge{} })
	registerOperation(func() *ReadMinRegistrationDuration { return &ReadMinRegistrationDuration{} })
	registerOperation(func() *ReadPricing { return &ReadPricing{} })
	registerOperation(func() *ReadPremiumNames { return &ReadPremiumNames{} })
	registerOperation(func() *CurrentTimestamp { return &CurrentTimestamp{} })
	registerOperation(func() *ReadDomainPrice { return &ReadDomainPrice{} })
	registerOperation(func() *MakeCommitment { return &MakeCommitment{} })
	registerOperation(func() *Commit { return &Commit{} })
	registerOperation(func() *Register { return &Register{} })
	registerOperation(func() *RenewDomain { return &RenewDomain{} })
	registerOperation(func() *UnregisterDomain { return &UnregisterDomain{} })
	registerOperation(func() *TransferDomain { return &TransferDomain{} })
	registerOperation(func() *CheckDomainAvailability { return &CheckDomainAvailability{} })
	registerOperation(func() *ReadDomain { return &ReadDomain{} })
	registerOperation(func() *ReadDomainOwner { return &ReadDomainOwner{} })
	registerOperation(func() *ReadDomainExpiryTime { return &ReadDomainExpiryTime{} })
	registerOperation(func() *ReadDomainManager { return &ReadDomainManager{} })
	registerOperation(func() *ReadDomainStatus { return &ReadDomainStatus{} })
	registerOperation(func() *SetContentHash { return &SetContentHash{} })
	registerOperation(func() *SetDomainContentText { return &SetDomainContentText{} })
	registerOperation(func() *ReadContentHash { return &ReadContentHash{} })
	registerOperation(func() *ReadDomainContentText { return &ReadDomainContentText{} })
	registerOperation(func() *SetDomainManager { return &SetDomainManager{} })
	registerOperation(func() *RegisterSubdomain { return &RegisterSubdomain{} })
	registerOperation(func() *UnregisterSubdomain { return &UnregisterSubdomain{} })
	registerOperation(func() *ChangeSubdomainManager { return &ChangeSubdomainManager{} })
	registerOperation(func() *SetSubdomainContentText { return &SetSubdomainContentText{} })
	registerOperation(func() *ReadSubdomainContentText { return &ReadSubdomainContentText{} })
	registerOperation(func() *ReadSubdomainManager { return &ReadSubdomainManager{} })
	registerOperation(func() *ListSubdomains { return &ListSubdomains{} })
	registerOperation(func() *ChangeManager { return &ChangeManager{} })
	registerOperation(func() *ChangeAdmin { return &ChangeAdmin{} })
	registerOperation(func() *SetResolver { return &SetResolver{} })
	registerOperation(func() *SetGracePeriod { return &SetGracePeriod{} })
	registerOperation(func() *SetMinCommitAge { return &SetMinCommitAge{} })
	registerOperation(func() *SetMaxCommitAge { return &SetMaxCommitAge{} })
	registerOperation(func() *SetMinRegistrationDuration { return &SetMinRegistrationDuration{} })
	registerOperation(func() *SetPricePerLetter { return &SetPricePerLetter{} })
	registerOperation(func() *SetPricePerYear { return &SetPricePerYear{} })
	registerOperation(func() *AddPremiumName { return &AddPremiumName{} })
	registerOperation(func() *RemovePremiumName { return &RemovePremiumName{} })
	registerOperation(func() *ListEvents { return &ListEvents{} })
}

// Methods lists every wire method name in lexical order.
func Methods() []string {
	out := make([]string, 0, len(operationFactories))
	for m := range operationFactories {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// DecodeOperation builds the typed operation for method from its JSON
// parameters. Unknown methods and unknown fields fail with
// ErrInvalidParameter. An empty body decodes to the zero operation.
func DecodeOperation(method string, params []byte) (Operation, error) {
	factory, ok := operationFactories[method]
	if !ok {
		return nil, fmt.Errorf("%w: unknown method %q", interfaces.ErrInvalidParameter, method)
	}
	op := factory()
	if len(bytes.TrimSpace(params)) == 0 {
		return op, nil
	}
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.DisallowUnknownFields()
	if err := dec.Decode(op); err != nil {
		return nil, fmt.Errorf("%w: malformed %s parameters: %v", interfaces.ErrInvalidParameter, method, err)
	}
	return op, nil
}
