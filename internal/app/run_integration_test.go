package app_test

import (
	"context"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/epigrid/epigridgo/internal/registry"
	"github.com/epigrid/epigridgo/internal/testutil"
)

// instancingModule provides mock runners for testing step instancing.
type instancingModule struct {
	consumedValue cty.Value
}

type sourceInput struct {
	Index int `epi:"idx"`
}

type sourceOutput struct {
	InstanceIndex int `cty:"instance_index"`
}

type consumerInput struct {
	InputValue cty.Value `epi:"input_val"`
}

func (m *instancingModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunSource", &registry.RegisteredRunner{
		NewInput:  func() any { return new(sourceInput) },
		InputType: reflect.TypeOf(sourceInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, deps *struct{}, input *sourceInput) (*sourceOutput, error) {
			return &sourceOutput{InstanceIndex: input.Index}, nil
		},
	})
	r.RegisterRunner("OnRunConsumer", &registry.RegisteredRunner{
		NewInput:  func() any { return new(consumerInput) },
		InputType: reflect.TypeOf(consumerInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, deps *struct{}, input *consumerInput) (any, error) {
			m.consumedValue = input.InputValue
			return nil, nil
		},
	})
}

func TestRun_InstancingAndOutputReferences(t *testing.T) {
	files := map[string]string{
		"modules/source.hcl": `
			runner "source" {
			  lifecycle { on_run = "OnRunSource" }
			  input "idx" {
			    type = number
			  }
			  output "instance_index" {
			    type = number
			  }
			}
		`,
		"modules/consumer.hcl": `
			runner "consumer" {
			  lifecycle { on_run = "OnRunConsumer" }
			  input "input_val" {
			    type = any
			  }
			}
		`,
		"pipeline/main.hcl": `
			step "source" "many" {
			  count = 3

			  arguments {
			    idx = count.index
			  }
			}

			step "consumer" "one" {
			  arguments {
			    input_val = step.source.many[1].output
			  }

			  depends_on = [
			    "source.many[2]"
			  ]
			}
		`,
	}
	mod := &instancingModule{}

	result := testutil.RunIntegrationTest(t, files, mod)

	require.NoError(t, result.Err)
	require.NotEqual(t, cty.NilVal, mod.consumedValue)
	idx := mod.consumedValue.GetAttr("instance_index")
	val, _ := idx.AsBigFloat().Int64()
	assert.Equal(t, int64(1), val)
}

// lifecycleModule tracks resource create/destroy ordering.
type lifecycleModule struct {
	created   atomic.Int32
	destroyed atomic.Int32
	usedLive  atomic.Bool
}

type fakeStore struct {
	live bool
}

type userDeps struct {
	Store *fakeStore `epi:"store"`
}

func (m *lifecycleModule) Register(r *registry.Registry) {
	r.RegisterAssetHandler("CreateFakeStore", &registry.RegisteredAsset{
		NewInput: func() any { return new(struct{}) },
		CreateFn: func(ctx context.Context, input *struct{}) (*fakeStore, error) {
			m.created.Add(1)
			return &fakeStore{live: true}, nil
		},
	})
	r.RegisterAssetHandler("DestroyFakeStore", &registry.RegisteredAsset{
		DestroyFn: func(s *fakeStore) error {
			s.live = false
			m.destroyed.Add(1)
			return nil
		},
	})
	r.RegisterAssetInterface("fake_store", reflect.TypeOf((*fakeStore)(nil)))

	r.RegisterRunner("OnRunUser", &registry.RegisteredRunner{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		NewDeps:   func() any { return new(userDeps) },
		Fn: func(ctx context.Context, deps *userDeps, input *struct{}) (any, error) {
			m.usedLive.Store(deps.Store.live)
			return nil, nil
		},
	})
}

func TestRun_ResourceLifecycle(t *testing.T) {
	files := map[string]string{
		"modules/fake_store.hcl": `
			asset "fake_store" {
			  lifecycle {
			    create  = "CreateFakeStore"
			    destroy = "DestroyFakeStore"
			  }
			}

			runner "user" {
			  lifecycle { on_run = "OnRunUser" }
			  uses "store" {
			    asset_type = "fake_store"
			  }
			}
		`,
		"pipeline/main.hcl": `
			resource "fake_store" "main" {
			}

			step "user" "one" {
			  uses {
			    store = resource.fake_store.main
			  }
			}
		`,
	}
	mod := &lifecycleModule{}

	result := testutil.RunIntegrationTest(t, files, mod)

	require.NoError(t, result.Err)
	assert.Equal(t, int32(1), mod.created.Load())
	assert.Equal(t, int32(1), mod.destroyed.Load())
	assert.True(t, mod.usedLive.Load(), "runner should see the live resource")
}

// failureModule has one runner that always fails and one that records runs.
type failureModule struct {
	downstreamRan atomic.Bool
}

func (m *failureModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunBoom", &registry.RegisteredRunner{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, deps *struct{}, input *struct{}) (any, error) {
			return nil, assert.AnError
		},
	})
	r.RegisterRunner("OnRunAfter", &registry.RegisteredRunner{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, deps *struct{}, input *struct{}) (any, error) {
			m.downstreamRan.Store(true)
			return nil, nil
		},
	})
}

func TestRun_FailureSkipsDependents(t *testing.T) {
	files := map[string]string{
		"modules/mods.hcl": `
			runner "boom" {
			  lifecycle { on_run = "OnRunBoom" }
			}

			runner "after" {
			  lifecycle { on_run = "OnRunAfter" }
			}
		`,
		"pipeline/main.hcl": `
			step "boom" "first" {
			}

			step "after" "second" {
			  depends_on = ["boom.first"]
			}
		`,
	}
	mod := &failureModule{}

	result := testutil.RunIntegrationTest(t, files, mod)

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "step.boom.first")
	assert.False(t, mod.downstreamRan.Load(), "dependent step must be skipped")
}

// cancelModule reproduces a node that completes after the run has been
// canceled, so its dependent is queued while the context is already dead.
type cancelModule struct {
	waiterStarted chan struct{}
	tailRan       atomic.Bool
}

func (m *cancelModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunGate", &registry.RegisteredRunner{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, deps *struct{}, input *struct{}) (any, error) {
			<-m.waiterStarted
			return nil, assert.AnError
		},
	})
	r.RegisterRunner("OnRunWaiter", &registry.RegisteredRunner{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, deps *struct{}, input *struct{}) (any, error) {
			close(m.waiterStarted)
			<-ctx.Done()
			return nil, nil
		},
	})
	r.RegisterRunner("OnRunTail", &registry.RegisteredRunner{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, deps *struct{}, input *struct{}) (any, error) {
			m.tailRan.Store(true)
			return nil, nil
		},
	})
}

func TestRun_CancellationReleasesQueuedDependents(t *testing.T) {
	files := map[string]string{
		"modules/mods.hcl": `
			runner "gate" {
			  lifecycle { on_run = "OnRunGate" }
			}

			runner "waiter" {
			  lifecycle { on_run = "OnRunWaiter" }
			}

			runner "tail" {
			  lifecycle { on_run = "OnRunTail" }
			}
		`,
		"pipeline/main.hcl": `
			step "gate" "boom" {
			}

			step "waiter" "slow" {
			}

			step "tail" "after" {
			  depends_on = ["waiter.slow"]
			}

			step "tail" "last" {
			  depends_on = ["tail.after"]
			}
		`,
	}
	mod := &cancelModule{waiterStarted: make(chan struct{})}

	done := make(chan *testutil.HarnessResult, 1)
	go func() {
		done <- testutil.RunIntegrationTest(t, files, mod)
	}()

	select {
	case result := <-done:
		require.Error(t, result.Err)
		assert.Contains(t, result.Err.Error(), "step.gate.boom")
		assert.False(t, mod.tailRan.Load(), "steps after cancellation must not run")
	case <-time.After(10 * time.Second):
		t.Fatal("pipeline did not finish after cancellation")
	}
}

func TestRun_ScheduleAttributeLoaded(t *testing.T) {
	files := map[string]string{
		"modules/mods.hcl": `
			runner "after" {
			  lifecycle { on_run = "OnRunAfter" }
			}
		`,
		"pipeline/main.hcl": `
			schedule = "0 1 * * *"

			step "after" "only" {
			}
		`,
	}
	mod := &failureModule{}

	result := testutil.RunIntegrationTest(t, files, mod)

	require.NoError(t, result.Err)
	require.NotNil(t, result.App)
	assert.Equal(t, "0 1 * * *", result.App.Model().Pipeline.Schedule)
}
