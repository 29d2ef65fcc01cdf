package domain

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workerlink.dev/pkg/workerlink/internal/adapter"
	"workerlink.dev/pkg/workerlink/internal/ctxlog"
	m "workerlink.dev/pkg/workerlink/internal/model"
)

func TestLegacyProvider_ResolveID_WarnsAndResolves(t *testing.T) {
	p := NewLegacyProvider(adapter.NewLocalModuleResolver(adapter.NewLocalSourceFSAdapter(), ""))

	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	id, ok, err := p.ResolveID(ctx, buildConfig(m.ModeProduction), "comlink:./worker", m.Path(fixturePath(t, "legacy", "main.ts")))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, LegacyPrefixDedicated+fixturePath(t, "legacy", "worker.ts"), id)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "is deprecated")
	assert.Contains(t, buf.String(), "new ComlinkWorker(...)")
}

func TestLegacyProvider_ResolveID_Unresolvable(t *testing.T) {
	p := NewLegacyProvider(adapter.NewLocalModuleResolver(adapter.NewLocalSourceFSAdapter(), ""))

	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	id, ok, err := p.ResolveID(ctx, buildConfig(m.ModeProduction), "comlink-shared:./nope", m.Path(fixturePath(t, "legacy", "main.ts")))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Empty(t, buf.String(), "declined imports must not log a deprecation warning")

	_, ok, err = p.ResolveID(context.Background(), buildConfig(m.ModeProduction), "./worker", m.Path(fixturePath(t, "legacy", "main.ts")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLegacyProvider_Load(t *testing.T) {
	p := NewLegacyProvider(adapter.NewLocalModuleResolver(adapter.NewLocalSourceFSAdapter(), ""))

	body, ok, err := p.Load(context.Background(), buildConfig(m.ModeProduction), "comlink:/abs/worker.ts")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "export default () => new ComlinkWorker(new URL('/abs/worker.ts', import.meta.url));\n", body)

	body, ok, err = p.Load(context.Background(), buildConfig(m.ModeProduction), "comlink-shared:/abs/counter.ts")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "export default () => new ComlinkSharedWorker(new URL('/abs/counter.ts', import.meta.url));\n", body)
}

func TestLegacyProvider_LoadedFactoryIsRewritten(t *testing.T) {
	p := NewLegacyProvider(adapter.NewLocalModuleResolver(adapter.NewLocalSourceFSAdapter(), ""))

	body, _, err := p.Load(context.Background(), buildConfig(m.ModeProduction), "comlink-shared:/abs/counter.ts")
	require.NoError(t, err)

	result, err := NewRewriter().Transform(context.Background(), buildConfig(m.ModeProduction), m.TransformInput{
		ID:   "comlink-shared:/abs/counter.ts",
		Code: body,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.Code,
		"export default () => __comlink_wrap(new SharedWorker(new URL('internal:comlink-shared:/abs/counter.ts', import.meta.url)).port);")
}
