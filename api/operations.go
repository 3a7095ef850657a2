package api

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/ruteri/name-registrar/interfaces"
)

// Operation is one element of the closed set of calls the registrar
// accepts. Method is the wire name; Mutating tells transports whether the
// call changes state.
type Operation interface {
	Method() string
	Mutating() bool
}

type (
	ReadAdmin                   struct{}
	ReadManager                 struct{}
	ReadResolver                struct{}
	ReadGracePeriod             struct{}
	ReadMinCommitAge            struct{}
	ReadMaxCommitAge            struct{}
	ReadMinRegistrationDuration struct{}
	ReadPricing                 struct{}
	ReadPremiumNames            struct{}
	CurrentTimestamp            struct{}
)

type ReadDomainPrice struct {
	Name     string              `json:"name"`
	Duration interfaces.Duration `json:"duration"`
}

type MakeCommitment struct {
	Name     string              `json:"name"`
	Owner    interfaces.Address  `json:"owner"`
	Duration interfaces.Duration `json:"duration"`
	Secret   interfaces.Hash     `json:"secret"`
	Resolver interfaces.Address  `json:"resolver"`
}

type Commit struct {
	Hash interfaces.Hash `json:"hash"`
}

type Register struct {
	Name       string              `json:"name"`
	Owner      interfaces.Address  `json:"owner"`
	Duration   interfaces.Duration `json:"duration"`
	CommitHash interfaces.Hash     `json:"commit_hash"`
	Resolver   interfaces.Address  `json:"resolver"`
	Secret     *interfaces.Hash    `json:"secret,omitempty"`
}

type RenewDomain struct {
	Name     string              `json:"name"`
	Duration interfaces.Duration `json:"duration"`
}

type UnregisterDomain struct {
	Name string `json:"name"`
}

type TransferDomain struct {
	Name        string             `json:"name"`
	NewOwner    interfaces.Address `json:"new_owner"`
	KeepRecords bool               `json:"keep_records"`
}

type CheckDomainAvailability struct {
	Name string `json:"name"`
}

type ReadDomain struct {
	Name string `json:"name"`
}

type ReadDomainOwner struct {
	Name string `json:"name"`
}

type ReadDomainExpiryTime struct {
	Name string `json:"name"`
}

type ReadDomainManager struct {
	Name string `json:"name"`
}

type ReadDomainStatus struct {
	Name string `json:"name"`
}

type SetContentHash struct {
	Name        string        `json:"name"`
	ContentHash hexutil.Bytes `json:"content_hash"`
}

type SetDomainContentText struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Text string `json:"text"`
}

type ReadContentHash struct {
	Name string `json:"name"`
}

type ReadDomainContentText struct {
	Name string `json:"name"`
	Key  string `json:"key,omitempty"`
}

type SetDomainManager struct {
	Name       string             `json:"name"`
	NewManager interfaces.Address `json:"new_manager"`
}

type RegisterSubdomain struct {
	ParentName string `json:"parent_name"`
	Label      string `json:"label"`
	// Manager defaults to the caller.
	Manager interfaces.Address `json:"manager"`
}

type UnregisterSubdomain struct {
	ParentName string `json:"parent_name"`
	Label      string `json:"label"`
}

type ChangeSubdomainManager struct {
	ParentName string             `json:"parent_name"`
	Label      string             `json:"label"`
	NewManager interfaces.Address `json:"new_manager"`
}

type SetSubdomainContentText struct {
	SubdomainName string `json:"subdomain_name"`
	Key           string `json:"key"`
	Text          string `json:"text"`
}

type ReadSubdomainContentText struct {
	SubdomainName string `json:"subdomain_name"`
	Key           string `json:"key,omitempty"`
}

type ReadSubdomainManager struct {
	SubdomainName string `json:"subdomain_name"`
}

type ListSubdomains struct {
	ParentName string `json:"parent_name"`
}

type ChangeManager struct {
	NewManager interfaces.Address `json:"new_manager"`
}

type ChangeAdmin struct {
	NewAdmin interfaces.Address `json:"new_admin"`
}

type SetResolver struct {
	Resolver interfaces.Address `json:"resolver"`
}

type SetGracePeriod struct {
	Value interfaces.Duration `json:"value"`
}

type SetMinCommitAge struct {
	Value interfaces.Duration `json:"value"`
}

type SetMaxCommitAge struct {
	Value interfaces.Duration `json:"value"`
}

type SetMinRegistrationDuration struct {
	Value interfaces.Duration `json:"value"`
}

type SetPricePerLetter struct {
	Value *uint256.Int `json:"value"`
}

type SetPricePerYear struct {
	Value *uint256.Int `json:"value"`
}

type AddPremiumName struct {
	Name string `json:"name"`
}

type RemovePremiumName struct {
	Name string `json:"name"`
}

type ListEvents struct {
	Since uint64 `json:"since"`
	Limit int    `json:"limit,omitempty"`
}

func (ReadAdmin) Method() string                   { return "readAdmin" }
func (ReadManager) Method() string                 { return "readManager" }
func (ReadResolver) Method() string                { return "readResolver" }
func (ReadGracePeriod) Method() string             { return "readGracePeriod" }
func (ReadMinCommitAge) Method() string            { return "readMinCommitAge" }
func (ReadMaxCommitAge) Method() string            { return "readMaxCommitAge" }
func (ReadMinRegistrationDuration) Method() string { return "readMinRegistrationDuration" }
func (ReadPricing) Method() string                 { return "readPricing" }
func (ReadPremiumNames) Method() string            { return "readPremiumNames" }
func (CurrentTimestamp) Method() string            { return "currentTimestamp" }
func (ReadDomainPrice) Method() string             { return "readDomainPrice" }
func (MakeCommitment) Method() string              { return "makeCommitment" }
func (Commit) Method() string                      { return "commit" }
func (Register) Method() string                    { return "register" }
func (RenewDomain) Method() string                 { return "renewDomain" }
func (UnregisterDomain) Method() string            { return "unregisterDomain" }
func (TransferDomain) Method() string              { return "transferDomain" }
func (CheckDomainAvailability) Method() string     { return "checkDomainAvailability" }
func (ReadDomain) Method() string                  { return "readDomain" }
func (ReadDomainOwner) Method() string             { return "readDomainOwner" }
func (ReadDomainExpiryTime) Method() string        { return "readDomainExpiryTime" }
func (ReadDomainManager) Method() string           { return "readDomainManager" }
func (ReadDomainStatus) Method() string            { return "readDomainStatus" }
func (SetContentHash) Method() string              { return "setContentHash" }
func (SetDomainContentText) Method() string        { return "setDomainContentText" }
func (ReadContentHash) Method() string             { return "readContentHash" }
func (ReadDomainContentText) Method() string       { return "readDomainContentText" }
func (SetDomainManager) Method() string            { return "setDomainManager" }
func (RegisterSubdomain) Method() string           { return "registerSubdomain" }
func (UnregisterSubdomain) Method() string         { return "unregisterSubdomain" }
func (ChangeSubdomainManager) Method() string      { return "changeSubdomainManager" }
func (SetSubdomainContentText) Method() string     { return "setSubdomainContentText" }
func (ReadSubdomainContentText) Method() string    { return "readSubdomainContentText" }
func (ReadSubdomainManager) Method() string        { return "readSubdomainManager" }
func (ListSubdomains) Method() string              { return "listSubdomains" }
func (ChangeManager) Method() string               { return "changeManager" }
func (ChangeAdmin) Method() string                 { return "changeAdmin" }
func (SetResolver) Method() string                 { return "setResolver" }
func (SetGracePeriod) Method() string              { return "setGracePeriod" }
func (SetMinCommitAge) Method() string             { return "setMinCommitAge" }
func (SetMaxCommitAge) Method() string             { return "setMaxCommitAge" }
func (SetMinRegistrationDuration) Method() string  { return "setMinRegistrationDuration" }
func (SetPricePerLetter) Method() string           { return "setPricePerLetter" }
func (SetPricePerYear) Method() string             { return "setPricePerYear" }
func (AddPremiumName) Method() string              { return "addPremiumName" }
func (RemovePremiumName) Method() string           { return "removePremiumName" }
func (ListEvents) Method() string                  { return "listEvents" }

func (ReadAdmin) Mutating() bool                   { return false }
func (ReadManager) Mutating() bool                 { return false }
func (ReadResolver) Mutating() bool                { return false }
func (ReadGracePeriod) Mutating() bool             { return false }
func (ReadMinCommitAge) Mutating() bool            { return false }
func (ReadMaxCommitAge) Mutating() bool            { return false }
func (ReadMinRegistrationDuration) Mutating() bool { return false }
func (ReadPricing) Mutating() bool                 { return false }
func (ReadPremiumNames) Mutating() bool            { return false }
func (CurrentTimestamp) Mutating() bool            { return false }
func (ReadDomainPrice) Mutating() bool             { return false }
func (MakeCommitment) Mutating() bool              { return false }
func (Commit) Mutating() bool                      { return true }
func (Register) Mutating() bool                    { return true }
func (RenewDomain) Mutating() bool                 { return true }
func (UnregisterDomain) Mutating() bool            { return true }
func (TransferDomain) Mutating() bool              { return true }
func (CheckDomainAvailability) Mutating() bool     { return false }
func (ReadDomain) Mutating() bool                  { return false }
func (ReadDomainOwner) Mutating() bool             { return false }
func (ReadDomainExpiryTime) Mutating() bool        { return false }
func (ReadDomainManager) Mutating() bool           { return false }
func (ReadDomainStatus) Mutating() bool            { return false }
func (SetContentHash) Mutating() bool              { return true }
func (SetDomainContentText) Mutating() bool        { return true }
func (ReadContentHash) Mutating() bool             { return false }
func (ReadDomainContentText) Mutating() bool       { return false }
func (SetDomainManager) Mutating() bool            { return true }
func (RegisterSubdomain) Mutating() bool           { return true }
func (UnregisterSubdomain) Mutating() bool         { return true }
func (ChangeSubdomainManager) Mutating() bool      { return true }
func (SetSubdomainContentText) Mutating() bool     { return true }
func (ReadSubdomainContentText) Mutating() bool    { return false }
func (ReadSubdomainManager) Mutating() bool        { return false }
func (ListSubdomains) Mutating() bool              { return false }
func (ChangeManager) Mutating() bool               { return true }
func (ChangeAdmin) Mutating() bool                 { return true }
func (SetResolver) Mutating() bool                 { return true }
func (SetGracePeriod) Mutating() bool              { return true }
func (SetMinCommitAge) Mutating() bool             { return true }
func (SetMaxCommitAge) Mutating() bool             { return true }
func (SetMinRegistrationDuration) Mutating() bool  { return true }
func (SetPricePerLetter) Mutating() bool           { return true }
func (SetPricePerYear) Mutating() bool             { return true }
func (AddPremiumName) Mutating() bool              { return true }
func (RemovePremiumName) Mutating() bool           { return true }
func (ListEvents) Mutating() bool                  { return false }
