// Command registrar-client calls the registrar API. Every operation is a
// sub-command taking its JSON parameters as the only argument:
//
//	registrar-client read-domain-status '{"name":"example.vne"}'
//	registrar-client --private-key $KEY set-domain-content-text '{"name":"example.vne","key":"url","text":"https://example.org"}'
//
// With --secret-passphrase, make-commitment and register derive the
// commitment secret and hash themselves. The claim sub-command runs the whole
// commit-reveal flow.
package main
