package plugin_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tracklayer/pkg/tracklayer"
	"github.com/randalmurphal/tracklayer/pkg/tracklayer/event"
	"github.com/randalmurphal/tracklayer/pkg/tracklayer/plugin"
)

// recorderPlugin implements every optional capability.
type recorderPlugin struct {
	name        string
	initialized int
	observed    []string
	destroyed   int
	initErr     error
	destroyErr  error
}

func (p *recorderPlugin) Name() string { return p.name }

func (p *recorderPlugin) Initialize(layer *tracklayer.Layer) error {
	p.initialized++
	return p.initErr
}

func (p *recorderPlugin) AfterEvent(evt *event.Event) {
	p.observed = append(p.observed, evt.Name)
}

func (p *recorderPlugin) Destroy() error {
	p.destroyed++
	return p.destroyErr
}

// bareplugin declares no optional capabilities.
type barePlugin struct{ name string }

func (p *barePlugin) Name() string { return p.name }

func TestRegisterLifecycle(t *testing.T) {
	layer := tracklayer.New()
	reg := plugin.NewRegistry(layer)

	p := &recorderPlugin{name: "recorder"}
	require.NoError(t, reg.Register(p))
	assert.Equal(t, 1, p.initialized, "Initialize runs once at registration")

	_, err := layer.Emit("page.view", nil, nil)
	require.NoError(t, err)
	_, err = layer.Emit("user.signed_in", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"page.view", "user.signed_in"}, p.observed)

	require.NoError(t, reg.Unregister("recorder"))
	assert.Equal(t, 1, p.destroyed)

	// Observation stops after unregistration.
	_, err = layer.Emit("page.scroll", nil, nil)
	require.NoError(t, err)
	assert.Len(t, p.observed, 2)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	layer := tracklayer.New()
	reg := plugin.NewRegistry(layer)

	require.NoError(t, reg.Register(&barePlugin{name: "dup"}))
	err := reg.Register(&barePlugin{name: "dup"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegisterInitializeFailure(t *testing.T) {
	layer := tracklayer.New()
	reg := plugin.NewRegistry(layer)

	p := &recorderPlugin{name: "flaky", initErr: errors.New("restore failed")}
	err := reg.Register(p)
	require.Error(t, err)

	assert.Empty(t, reg.Plugins(), "failed plugin must not be registered")

	// Its observer must not have been wired either.
	_, err = layer.Emit("t.test", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, p.observed)
}

func TestRegisterBareCapability(t *testing.T) {
	layer := tracklayer.New()
	reg := plugin.NewRegistry(layer)

	require.NoError(t, reg.Register(&barePlugin{name: "bare"}))
	assert.Equal(t, []string{"bare"}, reg.Plugins())

	// No capabilities means nothing to invoke; emit still works.
	_, err := layer.Emit("t.test", nil, nil)
	require.NoError(t, err)

	require.NoError(t, reg.Unregister("bare"))
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	reg := plugin.NewRegistry(tracklayer.New())
	assert.NoError(t, reg.Unregister("ghost"))
}

func TestCloseDestroysInReverseOrder(t *testing.T) {
	layer := tracklayer.New()
	reg := plugin.NewRegistry(layer)

	var order []string
	first := &orderedPlugin{name: "first", order: &order}
	second := &orderedPlugin{name: "second", order: &order}
	require.NoError(t, reg.Register(first))
	require.NoError(t, reg.Register(second))

	require.NoError(t, reg.Close())
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Empty(t, reg.Plugins())
}

type orderedPlugin struct {
	name  string
	order *[]string
}

func (p *orderedPlugin) Name() string { return p.name }

func (p *orderedPlugin) Destroy() error {
	*p.order = append(*p.order, p.name)
	return nil
}

func TestObserverPanicContained(t *testing.T) {
	layer := tracklayer.New()
	reg := plugin.NewRegistry(layer)

	require.NoError(t, reg.Register(&panickyPlugin{}))

	// The hook panic is contained inside the registry's observer.
	_, err := layer.Emit("t.test", nil, nil)
	require.NoError(t, err)
	assert.Len(t, layer.Events(), 1)
}

type panickyPlugin struct{}

func (p *panickyPlugin) Name() string { return "panicky" }

func (p *panickyPlugin) AfterEvent(evt *event.Event) {
	panic("observer bug")
}
