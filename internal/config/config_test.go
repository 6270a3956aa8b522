package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewContextParsesDisableNet(t *testing.T) {
	t.Setenv(EnvDisableNet, "true")
	ctx, err := NewContext()
	require.NoError(t, err)
	require.True(t, ctx.DisableNet)
}

func TestDisableNetRecognisesAllTruthyTokens(t *testing.T) {
	for _, v := range []string{"1", "TRUE", "Yes", "on"} {
		t.Setenv(EnvDisableNet, v)
		ctx, err := NewContext()
		require.NoError(t, err)
		require.Truef(t, ctx.DisableNet, "expected %q to be recognised as truthy", v)
	}
}

func TestNewContextParsesDepsServerURL(t *testing.T) {
	t.Setenv(EnvDeps, "http://deps.example.internal")
	ctx, err := NewContext()
	require.NoError(t, err)
	require.Equal(t, "http://deps.example.internal", ctx.DepsServerURL)
}

func TestImagePathLayout(t *testing.T) {
	ctx := &Ctx{CacheDir: "/home/user/.cache"}
	got := ctx.ImagePath("bookworm", "amd64")
	require.Equal(t, "/home/user/.cache/ognibuild/images/bookworm-amd64.tar.gz", got)
}

func TestDisableNetDefaultsFalse(t *testing.T) {
	ctx, err := NewContext()
	require.NoError(t, err)
	require.False(t, ctx.DisableNet)
}
