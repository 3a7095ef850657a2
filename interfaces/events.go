package interfaces

// EventKind names a state transition observable by clients.
type EventKind string

const (
	EventCommitted            EventKind = "Committed"
	EventRegistered           EventKind = "Registered"
	EventRenewed              EventKind = "Renewed"
	EventUnregistered         EventKind = "Unregistered"
	EventTransferred          EventKind = "Transferred"
	EventContentHashChanged   EventKind = "ContentHashChanged"
	EventContentTextChanged   EventKind = "ContentTextChanged"
	EventDomainManagerChanged EventKind = "DomainManagerChanged"
	EventSubdomainRegistered  EventKind = "SubdomainRegistered"
	EventSubdomainRemoved     EventKind = "SubdomainRemoved"
	EventSubdomainChanged     EventKind = "SubdomainChanged"
	EventConfigChanged        EventKind = "ConfigChanged"
	EventPricingChanged       EventKind = "PricingChanged"
	EventStateRestored        EventKind = "StateRestored"
)

// Event records one successful mutation. Seq is assigned by the registrar and
// increases by one for every event it emits.
type Event struct {
	Seq   uint64            `json:"seq"`
	Kind  EventKind         `json:"kind"`
	Name  string            `json:"name,omitempty"`
	Actor Address           `json:"actor"`
	At    Timestamp         `json:"at"`
	Data  map[string]string `json:"data,omitempty"`
}

// EventSink receives events after the mutation that produced them has been
// applied. Implementations must not call back into the registrar.
type EventSink interface {
	Emit(ev Event)
}
