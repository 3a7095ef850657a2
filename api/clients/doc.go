/*
Package clients provides a Go client for the registrar HTTP API.

RegistrarClient sends typed api.Operation values to /api/call/{method},
attaching the caller address and payment headers. When constructed with a
private key it signs every request over api.SigningDigest using secp256k1,
stamping strictly increasing X-Timestamp values so servers running with
signature enforcement accept it.

Commitment secrets can be generated randomly with RandomSecret or derived
deterministically from a passphrase with DeriveSecret (Argon2id).

	client := clients.NewRegistrarClient("http://localhost:8080", key)
	hash, err := client.MakeCommitment(ctx, &api.MakeCommitment{...})
	err = client.Commit(ctx, hash)
*/
package clients
