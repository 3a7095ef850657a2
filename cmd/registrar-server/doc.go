// Command registrar-server runs the name registrar: the JSON call API, the
// admin snapshot endpoints, optional Prometheus metrics and an optional DNS
// TXT front.
//
// Example:
//
//	registrar-server --admin 0x00000000000000000000000000000000000000ad \
//	    --storage file:///var/lib/registrar --dns-addr 127.0.0.1:5353
//
// Restart from a stored snapshot with --restore-snapshot <content id>.
package main
