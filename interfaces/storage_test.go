package interfaces

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentID(t *testing.T) {
	want := ComputeID([]byte(`{"version":1}`))

	got, err := ParseContentID(want.String())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = ParseContentID("0x" + want.String())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, bad := range []string{"", "zz", want.String()[:62], want.String() + "00"} {
		_, err := ParseContentID(bad)
		assert.ErrorIs(t, err, ErrInvalidParameter, bad)
	}
}

func TestNewStorageBackendLocation(t *testing.T) {
	loc, err := NewStorageBackendLocation("S3://KEY:SECRET@snapshots/registrar?region=eu-west-1&path_style=yes")
	require.NoError(t, err)
	assert.Equal(t, "s3", loc.Scheme)
	assert.Equal(t, "snapshots", loc.Host)
	assert.Equal(t, "/registrar", loc.Path)
	assert.Equal(t, "KEY:SECRET", loc.Auth)
	assert.Equal(t, "eu-west-1", loc.GetParam("region"))
	assert.True(t, loc.GetParamBool("path_style"))
	assert.False(t, loc.GetParamBool("insecure"))
	assert.True(t, strings.HasPrefix(loc.String(), "S3://"))

	loc, err = NewStorageBackendLocation("bolt:///var/lib/registrar/state.db")
	require.NoError(t, err)
	assert.Equal(t, "", loc.Auth)
	assert.Equal(t, "/var/lib/registrar/state.db", loc.Path)

	for _, bad := range []string{"ftp://host/dir", "no-scheme", "://"} {
		_, err := NewStorageBackendLocation(bad)
		assert.ErrorIs(t, err, ErrInvalidLocationURI, bad)
	}
}

func TestContentTypeNames(t *testing.T) {
	names := map[string]bool{}
	for _, ct := range ContentTypes {
		names[ct.String()] = true
	}
	assert.Equal(t, map[string]bool{"snapshot": true, "events": true}, names)
	assert.Equal(t, "unknown", ContentType(99).String())
}
