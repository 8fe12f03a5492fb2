package settings

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	r := &Run{
		NoColor: true,
		LogFile: "/tmp/vmscope.log",
		Sources: Sources{ExtrasPath: "extras.yaml", WatchExtras: true},
	}
	ctx := IntoContext(context.Background(), r)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, r, got)
	assert.Same(t, r, FromContextOrNew(ctx))
}

func TestFromContextMissing(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
	}{
		{name: "empty", ctx: context.Background()},
		{name: "typed nil", ctx: IntoContext(context.Background(), nil)},
		{name: "other value", ctx: context.WithValue(context.Background(), struct{}{}, &Run{})},
		{name: "nil context", ctx: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := FromContext(tt.ctx)
			assert.False(t, ok)
			assert.Equal(t, NewRun(), FromContextOrNew(tt.ctx))
		})
	}
}

func TestVersionString(t *testing.T) {
	v := VersionInfo{Commit: "abc123", BuildVersion: "v1.2.3", BuildTime: "today"}
	s := v.String()
	assert.True(t, strings.HasPrefix(s, "vmscope v1.2.3 (commit abc123, built today, go"), s)
}
