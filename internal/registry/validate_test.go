package registry

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/epigrid/epigridgo/internal/config"
)

func runnerDef(inputs map[string]*config.InputDefinition) *config.RunnerDefinition {
	return &config.RunnerDefinition{
		Type:      "fetch",
		Lifecycle: &config.Lifecycle{OnRun: "OnRunFetch"},
		Inputs:    inputs,
	}
}

func TestValidateRegistry_Parity(t *testing.T) {
	t.Parallel()

	type input struct {
		URL string `epi:"url"`
	}

	r := New()
	r.RegisterRunner("OnRunFetch", &RegisteredRunner{
		NewInput:  func() any { return new(input) },
		InputType: reflect.TypeOf(input{}),
	})
	r.DefinitionRegistry["fetch"] = runnerDef(map[string]*config.InputDefinition{
		"url": {Name: "url", Type: cty.String},
	})

	assert.NoError(t, r.ValidateRegistry(context.Background()))
}

func TestValidateRegistry_UndeclaredGoField(t *testing.T) {
	t.Parallel()

	type input struct {
		URL   string `epi:"url"`
		Extra string `epi:"extra"`
	}

	r := New()
	r.RegisterRunner("OnRunFetch", &RegisteredRunner{
		NewInput:  func() any { return new(input) },
		InputType: reflect.TypeOf(input{}),
	})
	r.DefinitionRegistry["fetch"] = runnerDef(map[string]*config.InputDefinition{
		"url": {Name: "url", Type: cty.String},
	})

	err := r.ValidateRegistry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not declared in manifest")
}

func TestValidateRegistry_MissingGoField(t *testing.T) {
	t.Parallel()

	type input struct {
		URL string `epi:"url"`
	}

	r := New()
	r.RegisterRunner("OnRunFetch", &RegisteredRunner{
		NewInput:  func() any { return new(input) },
		InputType: reflect.TypeOf(input{}),
	})
	r.DefinitionRegistry["fetch"] = runnerDef(map[string]*config.InputDefinition{
		"url":     {Name: "url", Type: cty.String},
		"timeout": {Name: "timeout", Type: cty.String},
	})

	err := r.ValidateRegistry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in Go struct")
}

func TestValidateRegistry_TypeMismatch(t *testing.T) {
	t.Parallel()

	type input struct {
		Retries string `epi:"retries"`
	}

	r := New()
	r.RegisterRunner("OnRunFetch", &RegisteredRunner{
		NewInput:  func() any { return new(input) },
		InputType: reflect.TypeOf(input{}),
	})
	r.DefinitionRegistry["fetch"] = runnerDef(map[string]*config.InputDefinition{
		"retries": {Name: "retries", Type: cty.Number},
	})

	err := r.ValidateRegistry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")
}

func TestValidateRegistry_UnregisteredHandlerSkipped(t *testing.T) {
	t.Parallel()

	r := New()
	r.DefinitionRegistry["fetch"] = runnerDef(map[string]*config.InputDefinition{
		"url": {Name: "url", Type: cty.String},
	})

	assert.NoError(t, r.ValidateRegistry(context.Background()))
}

func TestRegisterRunner_DuplicatePanics(t *testing.T) {
	t.Parallel()

	r := New()
	r.RegisterRunner("OnRunFetch", &RegisteredRunner{})
	assert.Panics(t, func() {
		r.RegisterRunner("OnRunFetch", &RegisteredRunner{})
	})
}
