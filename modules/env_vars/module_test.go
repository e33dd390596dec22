package env_vars

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cmdgrid/internal/param"
	"github.com/vk/cmdgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

func TestEnvName(t *testing.T) {
	assert.Equal(t, "APP_API_TOKEN", EnvName("APP_", "api-token"))
	assert.Equal(t, "COUNT", EnvName("", "count"))
}

func TestOnRunEnvVars(t *testing.T) {
	ctx := context.Background()
	t.Setenv("CG_COUNTER", "7")
	t.Setenv("CG_NAME", "from-env")
	t.Setenv("CG_LABEL", "ignored")

	reg := param.NewRegistry()
	require.NoError(t, reg.Register(param.Definition{Name: "count", Bind: "counter", Type: cty.Number}))
	require.NoError(t, reg.Register(param.Definition{Name: "name", Type: cty.String}))
	require.NoError(t, reg.Register(param.Definition{Name: "label", Type: cty.String}))
	store := param.NewStore(reg)
	require.NoError(t, store.Set(ctx, "label", cty.StringVal("explicit")))

	require.NoError(t, OnRunEnvVars(ctx, &registry.Runtime{Values: store, EnvPrefix: "CG_"}))

	count, ok := store.Get("count")
	require.True(t, ok)
	assert.True(t, count.RawEquals(cty.NumberIntVal(7)))
	name, _ := store.Get("name")
	assert.Equal(t, "from-env", name.AsString())
	label, _ := store.Get("label")
	assert.Equal(t, "explicit", label.AsString())
}

func TestOnRunEnvVars_BadValue(t *testing.T) {
	ctx := context.Background()
	t.Setenv("CG_COUNT", "seven")
	reg := param.NewRegistry()
	require.NoError(t, reg.Register(param.Definition{Name: "count", Type: cty.Number}))

	err := OnRunEnvVars(ctx, &registry.Runtime{Values: param.NewStore(reg), EnvPrefix: "CG_"})
	assert.ErrorContains(t, err, "environment variable CG_COUNT")
}
