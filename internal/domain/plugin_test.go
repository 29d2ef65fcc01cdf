package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workerlink.dev/pkg/workerlink/internal/adapter"
	m "workerlink.dev/pkg/workerlink/internal/model"
)

func TestPlugin_ConfigResolved(t *testing.T) {
	p := newTestPlugin(m.PluginOptions{Replacement: "MyWorker"})

	cfg := p.ConfigResolved(m.HostConfig{Root: "/proj"})
	assert.Equal(t, m.ModeProduction, cfg.Mode)
	assert.Equal(t, m.Path("/proj"), cfg.Root)
	assert.Equal(t, "MyWorker", cfg.Plugin.Replacement)
	assert.Equal(t, m.DefaultReplacementShared, cfg.Plugin.ReplacementShared)
	assert.Equal(t, m.DefaultRPCModule, cfg.Plugin.WrapModule)

	cfg = p.ConfigResolved(m.HostConfig{Mode: m.ModeDevelopment})
	assert.Equal(t, m.ModeDevelopment, cfg.Mode)
	assert.Equal(t, PluginName, p.Name())
}

func TestPlugin_ModeIsPerBuild(t *testing.T) {
	p := newTestPlugin(m.PluginOptions{})
	input := m.TransformInput{ID: "/src/main.ts", Code: "new ComlinkWorker(new URL('./w.ts', import.meta.url))"}

	dev := p.ConfigResolved(m.HostConfig{Mode: m.ModeDevelopment})
	prod := p.ConfigResolved(m.HostConfig{Mode: m.ModeProduction})

	devResult, err := p.Transform(context.Background(), dev, input)
	require.NoError(t, err)

	prodResult, err := p.Transform(context.Background(), prod, input)
	require.NoError(t, err)

	assert.Contains(t, devResult.Code, `{"type":"module"}`)
	assert.NotContains(t, prodResult.Code, `"type"`)
}

func TestPlugin_EndToEnd(t *testing.T) {
	p := newTestPlugin(m.PluginOptions{})
	cfg := p.ConfigResolved(m.HostConfig{Mode: m.ModeProduction})
	ctx := context.Background()

	importer := m.Path(fixturePath(t, "basic", "main.ts"))

	result, err := p.Transform(ctx, cfg, m.TransformInput{ID: importer, Code: readFixture(t, "basic", "main.ts")})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Matches, 1)

	assert.Contains(t, result.Code,
		"const w = __comlink_wrap(new Worker(new URL('internal:comlink:./worker.ts', import.meta.url)))")

	id, ok, err := p.ResolveID(ctx, cfg, PrefixFor(result.Matches[0].Kind)+result.Matches[0].Specifier, importer)
	require.NoError(t, err)
	require.True(t, ok)

	body, ok, err := p.Load(ctx, cfg, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, body, "import * as api from '"+fixturePath(t, "basic", "worker.ts")+"';")
	assert.Contains(t, body, "expose(api);")
}

func TestPlugin_Legacy(t *testing.T) {
	p := newTestPlugin(m.PluginOptions{})
	cfg := p.ConfigResolved(m.HostConfig{})
	ctx := context.Background()

	id, ok, err := p.ResolveID(ctx, cfg, "comlink:./worker", m.Path(fixturePath(t, "legacy", "main.ts")))
	require.NoError(t, err)
	require.True(t, ok)

	body, ok, err := p.Load(ctx, cfg, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, body, "export default () => new ComlinkWorker(")
}

func TestPlugin_Declines(t *testing.T) {
	p := newTestPlugin(m.PluginOptions{})
	cfg := p.ConfigResolved(m.HostConfig{})
	ctx := context.Background()

	_, ok, err := p.ResolveID(ctx, cfg, "react", "/src/main.ts")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = p.Load(ctx, cfg, "/src/main.ts")
	require.NoError(t, err)
	assert.False(t, ok)

	result, err := p.Transform(ctx, cfg, m.TransformInput{ID: "/src/main.ts", Code: readFixture(t, "none", "main.ts")})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestPlugin_LoadError(t *testing.T) {
	p := newTestPlugin(m.PluginOptions{})
	cfg := p.ConfigResolved(m.HostConfig{})

	_, ok, err := p.Load(context.Background(), cfg, SynthesizeID(m.KindDedicated, "/does/not/exist.ts"))
	require.Error(t, err)
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func newTestPlugin(options m.PluginOptions) Plugin {
	resolver := adapter.NewLocalModuleResolver(adapter.NewLocalSourceFSAdapter(), "")

	return NewPlugin(options, NewRewriter(), NewVirtualModuleProvider(resolver), NewLegacyProvider(resolver))
}
