package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cmdgrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

func noop(context.Context, *Runtime) error { return nil }

func TestRegisterHandler(t *testing.T) {
	r := New()
	r.RegisterHandler("OnRunB", &RegisteredHandler{Fn: noop})
	r.RegisterHandler("OnRunA", &RegisteredHandler{Fn: noop})

	assert.Equal(t, []string{"OnRunA", "OnRunB"}, r.Names())

	h, err := r.Handler("OnRunA")
	require.NoError(t, err)
	assert.NotNil(t, h.Fn)

	_, err = r.Handler("OnRunC")
	assert.ErrorContains(t, err, "handler 'OnRunC' is not registered")

	assert.Panics(t, func() { r.RegisterHandler("OnRunA", &RegisteredHandler{Fn: noop}) })
	assert.Panics(t, func() { r.RegisterHandler("OnRunNil", &RegisteredHandler{}) })
}

func TestValidate(t *testing.T) {
	r := New()
	r.RegisterHandler("OnRunPrint", &RegisteredHandler{Fn: noop})
	r.RegisterHandler("OnRunEmit", &RegisteredHandler{
		Fn: noop,
		Params: map[string]cty.Type{
			"url":     cty.String,
			"payload": cty.DynamicPseudoType,
		},
	})

	params := func(urlType cty.Type) []*config.Parameter {
		return []*config.Parameter{
			{Name: "url", Type: urlType},
			{Name: "payload", Type: cty.Number},
		}
	}

	testCases := []struct {
		name    string
		model   *config.Model
		wantErr []string
	}{
		{
			name: "all handlers present",
			model: &config.Model{
				Parameters: params(cty.String),
				Commands: []*config.Command{
					{Name: "a", Action: "OnRunPrint"},
					{Name: "b", Action: "OnRunEmit"},
				},
			},
		},
		{
			name: "parameter typed any is accepted",
			model: &config.Model{
				Parameters: params(cty.DynamicPseudoType),
				Commands:   []*config.Command{{Name: "b", Action: "OnRunEmit"}},
			},
		},
		{
			name: "missing handlers in hooks and inline members",
			model: &config.Model{
				Commands: []*config.Command{{
					Name: "loop",
					Cycle: &config.Cycle{
						Name:   "c",
						Init:   "OnInitMissing",
						Inline: []*config.Command{{Name: "member", Action: "OnRunMissing"}},
					},
				}},
			},
			wantErr: []string{
				"command 'loop': handler 'OnInitMissing' is not registered",
				"command 'member': handler 'OnRunMissing' is not registered",
			},
		},
		{
			name: "undeclared parameter",
			model: &config.Model{
				Parameters: []*config.Parameter{{Name: "payload", Type: cty.String}},
				Commands:   []*config.Command{{Name: "b", Action: "OnRunEmit"}},
			},
			wantErr: []string{"reads parameter 'url' which is not declared"},
		},
		{
			name: "type mismatch",
			model: &config.Model{
				Parameters: params(cty.Number),
				Commands:   []*config.Command{{Name: "b", Action: "OnRunEmit"}},
			},
			wantErr: []string{"handler 'OnRunEmit', parameter 'url': type mismatch. Handler requires 'string' but the definition declares 'number'"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.Validate(context.Background(), tc.model)
			if len(tc.wantErr) == 0 {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "registry validation failed:")
			for _, want := range tc.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
