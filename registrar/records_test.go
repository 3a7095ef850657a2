package registrar

import (
	"testing"

	"github.com/ruteri/name-registrar/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetContentHash_Authorization(t *testing.T) {
	r, _ := newTestRegistrar(t)
	regAt := registerAt(t, r, "a.vne", owner, 400000, t0)
	h := []byte{0xe3, 0x01, 0x01}

	require.NoError(t, r.SetContentHash(at(owner, regAt+1), "a.vne", h))
	assert.ErrorIs(t, r.SetContentHash(at(other, regAt+1), "a.vne", h), interfaces.ErrUnauthorized)

	rec, err := r.Record(regAt+1, "a.vne")
	require.NoError(t, err)
	assert.Equal(t, h, rec.ContentHash)

	// Grace blocks record mutation even for the owner.
	assert.ErrorIs(t, r.SetContentHash(at(owner, regAt+400000), "a.vne", h), interfaces.ErrNameNotActive)
	assert.ErrorIs(t, r.SetContentHash(at(owner, regAt), "nobody.vne", h), interfaces.ErrNameNotActive)
}

func TestDomainManager_Delegation(t *testing.T) {
	r, _ := newTestRegistrar(t)
	regAt := registerAt(t, r, "d.vne", owner, 400000, t0)
	now := regAt + 1

	assert.ErrorIs(t, r.SetDomainManager(at(delegate, now), "d.vne", delegate), interfaces.ErrUnauthorized)
	require.NoError(t, r.SetDomainManager(at(owner, now), "d.vne", delegate))

	require.NoError(t, r.SetContentText(at(delegate, now), "d.vne", "avatar", "ipfs://pic"))
	require.NoError(t, r.SetContentHash(at(delegate, now), "d.vne", []byte{1}))

	// The manager cannot hand management on.
	assert.ErrorIs(t, r.SetDomainManager(at(delegate, now), "d.vne", other), interfaces.ErrUnauthorized)

	rec, err := r.Record(now, "d.vne")
	require.NoError(t, err)
	assert.Equal(t, delegate, rec.Manager)

	text, err := r.DomainContentText(now, "d.vne", "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"avatar": "ipfs://pic"}, text)

	_, err = r.DomainContentText(now, "d.vne", "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestSubdomain_ParentExpiredScenario(t *testing.T) {
	r, _ := newTestRegistrar(t)
	regAt := registerAt(t, r, "a.vne", owner, 400000, t0)
	expiry := regAt + 400000
	grace := interfaces.Timestamp(DefaultGracePeriod)

	sub, err := r.RegisterSubdomain(at(owner, regAt+1), "a.vne", "sub", interfaces.ZeroAddress)
	require.NoError(t, err)
	assert.Equal(t, "sub.a.vne", sub.FQDN())
	assert.Equal(t, owner, sub.Manager)

	require.NoError(t, r.SetSubdomainContentText(at(owner, regAt+2), "sub.a.vne", "note", "hello"))

	text, err := r.SubdomainContentText(regAt+2, "sub.a.vne", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", text["note"])

	// Subdomains stop resolving as soon as the parent leaves Active.
	_, err = r.SubdomainContentText(expiry, "sub.a.vne", "")
	assert.ErrorIs(t, err, interfaces.ErrParentExpired)

	_, err = r.SubdomainContentText(expiry+grace, "sub.a.vne", "")
	assert.ErrorIs(t, err, interfaces.ErrParentExpired)

	_, err = r.SubdomainContentText(regAt+2, "nope.a.vne", "")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = r.RegisterSubdomain(at(owner, expiry), "a.vne", "late", interfaces.ZeroAddress)
	assert.ErrorIs(t, err, interfaces.ErrParentNotActive)
}

func TestSubdomain_Lifecycle(t *testing.T) {
	r, _ := newTestRegistrar(t)
	regAt := registerAt(t, r, "p.vne", owner, 400000, t0)
	now := regAt + 1

	_, err := r.RegisterSubdomain(at(other, now), "p.vne", "www", interfaces.ZeroAddress)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	// Fully qualified labels are reduced to the label.
	_, err = r.RegisterSubdomain(at(owner, now), "p.vne", "www.p.vne", delegate)
	require.NoError(t, err)

	_, err = r.RegisterSubdomain(at(owner, now), "p.vne", "www", interfaces.ZeroAddress)
	assert.ErrorIs(t, err, interfaces.ErrNameUnavailable)

	_, err = r.RegisterSubdomain(at(owner, now), "p.vne", "a.b", interfaces.ZeroAddress)
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)

	// The subdomain manager writes its own text; strangers cannot.
	require.NoError(t, r.SetSubdomainContentText(at(delegate, now), "www.p.vne", "ip", "10.0.0.1"))
	assert.ErrorIs(t, r.SetSubdomainContentText(at(other, now), "www.p.vne", "ip", "x"), interfaces.ErrUnauthorized)

	assert.ErrorIs(t, r.ChangeSubdomainManager(at(delegate, now), "p.vne", "www", other), interfaces.ErrUnauthorized)
	require.NoError(t, r.ChangeSubdomainManager(at(owner, now), "p.vne", "www", other))

	sub, err := r.Subdomain(now, "www.p.vne")
	require.NoError(t, err)
	assert.Equal(t, other, sub.Manager)
	assert.Equal(t, "10.0.0.1", sub.Text["ip"])

	subs, err := r.Subdomains(now, "p.vne")
	require.NoError(t, err)
	require.Len(t, subs, 1)

	assert.ErrorIs(t, r.UnregisterSubdomain(at(delegate, now), "p.vne", "www"), interfaces.ErrUnauthorized)
	require.NoError(t, r.UnregisterSubdomain(at(other, now), "p.vne", "www"))
	assert.ErrorIs(t, r.UnregisterSubdomain(at(owner, now), "p.vne", "www"), interfaces.ErrNotFound)

	_, err = r.Subdomain(now, "www.p.vne")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestSubdomain_ParentExpiredAfterRelease(t *testing.T) {
	r, _ := newTestRegistrar(t)
	regAt := registerAt(t, r, "gone.vne", owner, 400000, t0)

	_, err := r.RegisterSubdomain(at(owner, regAt+1), "gone.vne", "x", interfaces.ZeroAddress)
	require.NoError(t, err)
	require.NoError(t, r.SetSubdomainContentText(at(owner, regAt+1), "x.gone.vne", "ip", "10.0.0.1"))
	require.NoError(t, r.Unregister(at(owner, regAt+2), "gone.vne"))

	_, err = r.SubdomainContentText(regAt+3, "x.gone.vne", "")
	assert.ErrorIs(t, err, interfaces.ErrParentExpired)
	_, err = r.Subdomain(regAt+3, "never.gone.vne")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	// A new holder starts without the previous subdomains, and the old ones
	// stay expired rather than leaking their text.
	regAt2 := registerAt(t, r, "gone.vne", other, 400000, regAt+3)
	subs, err := r.Subdomains(regAt2, "gone.vne")
	require.NoError(t, err)
	assert.Empty(t, subs)
	_, err = r.SubdomainContentText(regAt2, "x.gone.vne", "ip")
	assert.ErrorIs(t, err, interfaces.ErrParentExpired)

	// Reallocating the label under the new epoch makes it resolvable again.
	_, err = r.RegisterSubdomain(at(other, regAt2+1), "gone.vne", "x", interfaces.ZeroAddress)
	require.NoError(t, err)
	text, err := r.SubdomainContentText(regAt2+1, "x.gone.vne", "")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestSubdomain_ParentExpiredAfterReregistration(t *testing.T) {
	r, _ := newTestRegistrar(t)
	regAt := registerAt(t, r, "q.vne", owner, 400000, t0)
	_, err := r.RegisterSubdomain(at(owner, regAt+1), "q.vne", "sub", interfaces.ZeroAddress)
	require.NoError(t, err)

	end := regAt + 400000 + interfaces.Timestamp(DefaultGracePeriod)
	regAt2 := registerAt(t, r, "q.vne", other, 400000, end)

	_, err = r.SubdomainContentText(regAt2, "sub.q.vne", "")
	assert.ErrorIs(t, err, interfaces.ErrParentExpired)
}

func TestRecordReads_PastGrace(t *testing.T) {
	r, _ := newTestRegistrar(t)
	regAt := registerAt(t, r, "old.vne", owner, 400000, t0)
	end := regAt + 400000 + interfaces.Timestamp(DefaultGracePeriod)

	_, err := r.Record(end-1, "old.vne")
	require.NoError(t, err)

	_, err = r.Record(end, "old.vne")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = r.DomainContentText(end, "old.vne", "")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}
