package plugin_test

import (
	"errors"
	"testing"

	"github.com/aescanero/pdqflow/pkg/plugin"
	"github.com/aescanero/pdqflow/pkg/plugin/plugintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bare struct{}

func (bare) Describe() plugin.Descriptor { return plugin.Descriptor{Name: "bare"} }
func (bare) Options() *plugin.Options    { return plugin.NewOptions() }

func TestKindOf(t *testing.T) {
	assert.Equal(t, plugin.KindReader, plugin.KindOf(plugintest.NewReader(nil)))
	assert.Equal(t, plugin.KindWriter, plugin.KindOf(plugintest.NewWriter()))
	assert.Equal(t, plugin.KindAction, plugin.KindOf(plugintest.NewAction()))
	assert.Equal(t, plugin.KindPattern, plugin.KindOf(plugintest.NewPattern(nil, nil, false)))
	assert.Equal(t, plugin.KindUnknown, plugin.KindOf(bare{}))
}

func TestRegistry(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register("test.reader", func() plugin.Plugin { return plugintest.NewReader(nil) }))
	require.NoError(t, r.Register("test.writer", func() plugin.Plugin { return plugintest.NewWriter() }))

	t.Run("duplicate registration", func(t *testing.T) {
		err := r.Register("test.reader", func() plugin.Plugin { return plugintest.NewReader(nil) })
		assert.ErrorContains(t, err, "already registered")
	})

	t.Run("variant required", func(t *testing.T) {
		err := r.Register("bare", func() plugin.Plugin { return bare{} })
		assert.ErrorContains(t, err, "no known variant")
	})

	t.Run("new returns fresh instances", func(t *testing.T) {
		a, err := r.New("test.reader")
		require.NoError(t, err)
		b, err := r.New("test.reader")
		require.NoError(t, err)
		assert.NotSame(t, a, b)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := r.New("missing")
		assert.True(t, errors.Is(err, plugin.ErrUnknownPlugin))
		assert.False(t, r.Has("missing"))
	})

	t.Run("entries sorted", func(t *testing.T) {
		entries := r.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "test.reader", entries[0].Type)
		assert.Equal(t, plugin.KindReader, entries[0].Kind)
		assert.Equal(t, "test.writer", entries[1].Type)
	})
}

func TestOptions(t *testing.T) {
	o := plugin.NewOptions().
		Default("delimiter", ",").
		Default("limit", 10).
		Default("threshold", 0.8).
		Default("header", true)

	t.Run("defaults are not changes", func(t *testing.T) {
		assert.Empty(t, o.Changes())
		s, err := o.String("delimiter")
		require.NoError(t, err)
		assert.Equal(t, ",", s)
	})

	t.Run("set records a change", func(t *testing.T) {
		o.Set("delimiter", ";")
		assert.Equal(t, map[string]interface{}{"delimiter": ";"}, o.Changes())
		o.Set("delimiter", ",")
		assert.Empty(t, o.Changes())
	})

	t.Run("typed getters accept json numbers", func(t *testing.T) {
		o.Apply(map[string]interface{}{"limit": float64(25), "threshold": "0.5", "header": "false"})
		n, err := o.Int("limit")
		require.NoError(t, err)
		assert.Equal(t, 25, n)
		f, err := o.Float("threshold")
		require.NoError(t, err)
		assert.InDelta(t, 0.5, f, 1e-9)
		b, err := o.Bool("header")
		require.NoError(t, err)
		assert.False(t, b)
	})

	t.Run("invalid values", func(t *testing.T) {
		o.Set("limit", 2.5)
		_, err := o.Int("limit")
		var optErr *plugin.InvalidOptionError
		require.ErrorAs(t, err, &optErr)
		assert.Equal(t, "limit", optErr.Key)

		_, err = o.String("nope")
		assert.ErrorAs(t, err, &optErr)
	})

	t.Run("keys", func(t *testing.T) {
		assert.Equal(t, []string{"delimiter", "header", "limit", "threshold"}, o.Keys())
	})
}
