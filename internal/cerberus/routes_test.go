package cerberus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRouteTable(t *testing.T) {
	table, err := NewRouteTable(nil, nil)
	require.NoError(t, err)

	public := []string{
		"/", "/login", "/login/", "/register", "/register/",
		"/article/hello-world", "/article/hello-world/",
		"/profile/jake", "/profile/jake/", "/profile/jake/favorites", "/profile/jake/favorites/",
	}
	for _, p := range public {
		assert.True(t, table.IsPublic(p), p)
	}

	private := []string{
		"/settings", "/editor", "/editor/slug", "/article/", "/article/a/b",
		"/profile/jake/followers", "/login/extra", "/logout",
	}
	for _, p := range private {
		assert.False(t, table.IsPublic(p), p)
	}
}

func TestExcludedRoutes(t *testing.T) {
	table, err := NewRouteTable(nil, nil)
	require.NoError(t, err)

	for _, p := range []string{"/api", "/api/v1/health", "/apiary", "/_next/static/x.js", "/_next/image", "/a/b.png"} {
		assert.True(t, table.IsExcluded(p), p)
	}
	for _, p := range []string{"/", "/login", "/img.PNG", "/png", "/x/api"} {
		assert.False(t, table.IsExcluded(p), p)
	}
}

func TestNewRouteTableOverride(t *testing.T) {
	table, err := NewRouteTable([]string{`^/open$`}, []string{})
	require.NoError(t, err)

	assert.True(t, table.IsPublic("/open"))
	assert.False(t, table.IsPublic("/"))
	assert.False(t, table.IsExcluded("/api"))

	_, err = NewRouteTable([]string{`[`}, nil)
	assert.Error(t, err)
}
