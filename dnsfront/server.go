package dnsfront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/miekg/dns"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/resolver"
)

// DefaultTTL is the TTL of answered TXT records, in seconds.
const DefaultTTL = 60

// maxTXTString is the longest character-string a TXT record can carry.
const maxTXTString = 255

// RecordSource is the read side of the registrar used to answer queries.
type RecordSource interface {
	Record(now interfaces.Timestamp, name string) (resolver.Record, error)
	Subdomain(now interfaces.Timestamp, fqdn string) (resolver.Subdomain, error)
}

type ServerOpts struct {
	Source RecordSource
	Clock  interfaces.Clock
	TTL    uint32
	Log    *slog.Logger
}

// Server is a dns.Handler backed by registrar records.
type Server struct {
	source RecordSource
	clock  interfaces.Clock
	ttl    uint32
	log    *slog.Logger

	mu  sync.Mutex
	srv *dns.Server
}

func NewServer(opts ServerOpts) *Server {
	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Server{
		source: opts.Source,
		clock:  opts.Clock,
		ttl:    ttl,
		log:    opts.Log,
	}
}

// ListenAndServe serves UDP on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(pc, nil)
}

// Serve answers queries arriving on pc. started, if set, runs once the
// server accepts packets.
func (s *Server) Serve(pc net.PacketConn, started func()) error {
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           s,
		NotifyStartedFunc: started,
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	s.log.Info("Starting DNS front", slog.String("addr", pc.LocalAddr().String()))
	return srv.ActivateAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.ShutdownContext(ctx)
}

// ServeDNS implements dns.Handler.
func (s *Server) ServeDNS(w dns.ResponseWriter, req *dns.Msg) {
	resp := s.answer(req)
	if err := w.WriteMsg(resp); err != nil {
		s.log.Debug("Failed to write DNS response", "err", err)
	}
}

func (s *Server) answer(req *dns.Msg) *dns.Msg {
	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Authoritative = true

	if req.Opcode != dns.OpcodeQuery || len(req.Question) != 1 {
		resp.SetRcode(req, dns.RcodeNotImplemented)
		return resp
	}
	q := req.Question[0]
	if q.Qtype != dns.TypeTXT || q.Qclass != dns.ClassINET {
		return resp
	}

	now, err := s.clock.Now(context.Background())
	if err != nil {
		s.log.Error("Reading ledger time failed", "err", err)
		resp.SetRcode(req, dns.RcodeServerFailure)
		return resp
	}

	values, err := s.lookup(now, q.Name)
	switch {
	case err == nil:
	case errors.Is(err, interfaces.ErrNotFound),
		errors.Is(err, interfaces.ErrParentExpired),
		errors.Is(err, interfaces.ErrInvalidParameter):
		s.log.Debug("DNS lookup missed", slog.String("name", q.Name), "err", err)
		resp.SetRcode(req, dns.RcodeNameError)
		return resp
	default:
		s.log.Error("DNS lookup failed", slog.String("name", q.Name), "err", err)
		resp.SetRcode(req, dns.RcodeServerFailure)
		return resp
	}

	for _, v := range values {
		resp.Answer = append(resp.Answer, &dns.TXT{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: s.ttl},
			Txt: splitTXT(v),
		})
	}
	return resp
}

// lookup returns the TXT values of a second-level name or a subdomain.
func (s *Server) lookup(now interfaces.Timestamp, qname string) ([]string, error) {
	name, err := interfaces.NormalizeName(qname)
	if err != nil {
		return nil, err
	}

	if strings.Count(name, ".") == 1 {
		rec, err := s.source.Record(now, name)
		if err != nil {
			return nil, err
		}
		return TXTValues(rec.ContentHash, rec.Text), nil
	}

	sub, err := s.source.Subdomain(now, name)
	if err != nil {
		return nil, err
	}
	return TXTValues(nil, sub.Text), nil
}

// TXTValues renders a record as "key=value" strings, content hash first.
func TXTValues(contentHash []byte, text map[string]string) []string {
	out := make([]string, 0, len(text)+1)
	if len(contentHash) > 0 {
		out = append(out, "contenthash="+hexutil.Encode(contentHash))
	}
	keys := make([]string, 0, len(text))
	for k := range text {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+text[k])
	}
	return out
}

func splitTXT(v string) []string {
	if len(v) <= maxTXTString {
		return []string{v}
	}
	var parts []string
	for len(v) > maxTXTString {
		parts = append(parts, v[:maxTXTString])
		v = v[maxTXTString:]
	}
	return append(parts, v)
}
