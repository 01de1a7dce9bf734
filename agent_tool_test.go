package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogLookupIsCaseInsensitive(t *testing.T) {
	c := NewStaticToolCatalog([]Tool{&stubTool{name: "Serper_Search", label: "Searching..."}})

	tool, spec, ok := c.Lookup("serper_search")
	require.True(t, ok)
	assert.Equal(t, "Serper_Search", tool.Name())
	assert.Equal(t, "Searching...", spec.StatusLabel)

	_, _, ok = c.Lookup("missing")
	assert.False(t, ok)
}

func TestCatalogRegisterRejectsInvalid(t *testing.T) {
	c := NewStaticToolCatalog(nil)
	assert.Error(t, c.Register(nil))
	assert.Error(t, c.Register(&stubTool{name: "  "}))
	require.NoError(t, c.Register(&stubTool{name: "echo"}))
	assert.Error(t, c.Register(&stubTool{name: "ECHO"}))
}

func TestCatalogSpecsKeepRegistrationOrder(t *testing.T) {
	c := NewStaticToolCatalog([]Tool{&stubTool{name: "b"}, &stubTool{name: "a"}})
	specs := c.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "b", specs[0].Name)
	assert.Equal(t, "a", specs[1].Name)
}

func TestCatalogStatusLabelFallback(t *testing.T) {
	c := NewStaticToolCatalog([]Tool{&stubTool{name: "quiet"}})
	assert.Equal(t, "Running tool quiet...", c.StatusLabel("quiet"))
	assert.Equal(t, "Running tool ghost...", c.StatusLabel("ghost"))
}

func TestCatalogInvokeNeverFails(t *testing.T) {
	c := NewStaticToolCatalog([]Tool{
		&stubTool{name: "ok", out: "fine"},
		&stubTool{name: "bad", err: errors.New("nope")},
		&stubTool{name: "wild", panics: true},
	})
	ctx := context.Background()

	out, ok := c.Invoke(ctx, "OK", "q")
	assert.True(t, ok)
	assert.Equal(t, "fine", out)

	out, ok = c.Invoke(ctx, "bad", "q")
	assert.False(t, ok)
	assert.Equal(t, "Error running tool bad: nope", out)

	out, ok = c.Invoke(ctx, "wild", "q")
	assert.False(t, ok)
	assert.Equal(t, "Tool wild failed unexpectedly: boom", out)

	out, ok = c.Invoke(ctx, "ghost", "q")
	assert.False(t, ok)
	assert.Equal(t, "Tool ghost is not available.", out)
}
