// Package dnsfront answers DNS TXT queries from the resolver records of the
// registrar.
//
// A TXT question for "<name>." yields one record per entry:
//
//	"contenthash=0x..."  when a content hash is set
//	"<key>=<value>"      per text entry, sorted by key
//
// Subdomains follow the same liveness rule as the registrar reads: once the
// parent registration is not active, the subdomain answers NXDOMAIN. Unknown
// names and names outside the top-level domain answer NXDOMAIN too. Queries
// for other record types get an empty NOERROR response.
package dnsfront
