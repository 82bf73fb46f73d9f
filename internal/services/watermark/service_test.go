package watermark

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInspector struct {
	meta  models.ImageMetadata
	err   error
	calls atomic.Int32
}

func (f *fakeInspector) Identify(ctx context.Context, path string) (models.ImageMetadata, error) {
	f.calls.Add(1)
	return f.meta, f.err
}

type fakeRenderer struct {
	mu      sync.Mutex
	err     error
	payload []byte
	outputs []string
	delay   time.Duration
}

func (f *fakeRenderer) Render(ctx context.Context, params *models.ResolvedParameters) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	f.outputs = append(f.outputs, params.OutputPath)
	f.mu.Unlock()
	return os.WriteFile(params.OutputPath, f.payload, 0o644)
}

func newSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))
	return path
}

func newTestService(t *testing.T, inspector Inspector, renderer Renderer, opts ServiceOptions) (*Service, string) {
	t.Helper()
	tempDir := t.TempDir()
	return NewService(NewResolver(tempDir), inspector, renderer, zap.NewNop(), opts), tempDir
}

func TestEmbedReturnsBytesAndRemovesTemporaryOutput(t *testing.T) {
	source := newSource(t, "photo.png")
	renderer := &fakeRenderer{payload: []byte("stamped")}
	svc, tempDir := newTestService(t, &fakeInspector{meta: landscape}, renderer, ServiceOptions{})

	result, err := svc.Embed(context.Background(), source, models.WatermarkOptions{Text: copyright})
	require.NoError(t, err)

	assert.Equal(t, []byte("stamped"), result.Data)
	assert.Equal(t, "image/jpeg", result.ContentType)
	assert.Equal(t, tempDir, filepath.Dir(result.OutputPath))
	assert.True(t, strings.HasPrefix(filepath.Base(result.OutputPath), "watermark_"))
	assert.NoFileExists(t, result.OutputPath)
	assert.Equal(t, source, result.Params.Args[0])
}

func TestEmbedUsesUniqueTemporaryNames(t *testing.T) {
	source := newSource(t, "photo.png")
	renderer := &fakeRenderer{payload: []byte("stamped")}
	svc, _ := newTestService(t, &fakeInspector{meta: landscape}, renderer, ServiceOptions{KeepOutput: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Embed(context.Background(), source, models.WatermarkOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, out := range renderer.outputs {
		assert.False(t, seen[out], out)
		seen[out] = true
		assert.FileExists(t, out)
	}
	assert.Len(t, seen, 8)
}

func TestEmbedExplicitFilename(t *testing.T) {
	source := newSource(t, "photo.png")
	svc, tempDir := newTestService(t, &fakeInspector{meta: landscape}, &fakeRenderer{payload: []byte("x")}, ServiceOptions{})

	result, err := svc.Embed(context.Background(), source, models.WatermarkOptions{
		Filename:     "stamped.jpg",
		ChangeFormat: true,
		OutputFormat: "png",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "stamped.png"), result.OutputPath)
	assert.Equal(t, "image/png", result.ContentType)
}

func TestEmbedOverrideImageKeepsSource(t *testing.T) {
	source := newSource(t, "photo.png")
	svc, _ := newTestService(t, &fakeInspector{meta: landscape}, &fakeRenderer{payload: []byte("stamped")}, ServiceOptions{})

	result, err := svc.Embed(context.Background(), source, models.WatermarkOptions{OverrideImage: true})
	require.NoError(t, err)

	assert.Equal(t, source, result.OutputPath)
	data, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, []byte("stamped"), data)
}

func TestEmbedDstPathIsKept(t *testing.T) {
	source := newSource(t, "photo.png")
	dst := filepath.Join(t.TempDir(), "final.png")
	svc, _ := newTestService(t, &fakeInspector{meta: landscape}, &fakeRenderer{payload: []byte("stamped")}, ServiceOptions{})

	result, err := svc.Embed(context.Background(), source, models.WatermarkOptions{DstPath: dst})
	require.NoError(t, err)

	assert.Equal(t, dst, result.OutputPath)
	assert.FileExists(t, dst)
}

func TestEmbedInvalidSource(t *testing.T) {
	inspector := &fakeInspector{meta: landscape}
	svc, _ := newTestService(t, inspector, &fakeRenderer{}, ServiceOptions{})

	for _, source := range []string{"", filepath.Join(t.TempDir(), "missing.png"), t.TempDir()} {
		_, err := svc.Embed(context.Background(), source, models.WatermarkOptions{})
		assert.ErrorIs(t, err, ErrInvalidSource, source)
	}
	assert.Zero(t, inspector.calls.Load())
}

func TestEmbedMetadataUnavailable(t *testing.T) {
	source := newSource(t, "photo.png")
	renderer := &fakeRenderer{}
	svc, _ := newTestService(t, &fakeInspector{err: errors.New("not an image")}, renderer, ServiceOptions{})

	_, err := svc.Embed(context.Background(), source, models.WatermarkOptions{})
	assert.ErrorIs(t, err, ErrMetadataUnavailable)
	assert.ErrorContains(t, err, "not an image")
	assert.Empty(t, renderer.outputs)
}

func TestEmbedRenderFailure(t *testing.T) {
	source := newSource(t, "photo.png")
	svc, _ := newTestService(t, &fakeInspector{meta: landscape}, &fakeRenderer{err: errors.New("convert: exit status 1")}, ServiceOptions{})

	_, err := svc.Embed(context.Background(), source, models.WatermarkOptions{})
	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.ErrorContains(t, err, "exit status 1")
}

func TestEmbedRenderTimeout(t *testing.T) {
	source := newSource(t, "photo.png")
	renderer := &fakeRenderer{delay: time.Second}
	svc, _ := newTestService(t, &fakeInspector{meta: landscape}, renderer, ServiceOptions{RenderTimeout: 10 * time.Millisecond})

	_, err := svc.Embed(context.Background(), source, models.WatermarkOptions{})
	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type silentRenderer struct{}

func (silentRenderer) Render(ctx context.Context, params *models.ResolvedParameters) error {
	return nil
}

func TestEmbedMissingOutput(t *testing.T) {
	source := newSource(t, "photo.png")
	svc, _ := newTestService(t, &fakeInspector{meta: landscape}, silentRenderer{}, ServiceOptions{})

	_, err := svc.Embed(context.Background(), source, models.WatermarkOptions{})
	assert.ErrorIs(t, err, ErrOutputIO)
}

func TestEmbedInvalidDimensions(t *testing.T) {
	source := newSource(t, "photo.png")
	svc, _ := newTestService(t, &fakeInspector{meta: models.ImageMetadata{}}, &fakeRenderer{}, ServiceOptions{})

	_, err := svc.Embed(context.Background(), source, models.WatermarkOptions{})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestParams(t *testing.T) {
	source := newSource(t, "photo.png")
	renderer := &fakeRenderer{}
	svc, tempDir := newTestService(t, &fakeInspector{meta: landscape}, renderer, ServiceOptions{})

	params, err := svc.Params(context.Background(), source, models.WatermarkOptions{Text: copyright, Align: "ttb"})
	require.NoError(t, err)

	assert.Equal(t, 90.0, params.Geometry.Angle)
	assert.Equal(t, filepath.Join(tempDir, DefaultFilename), params.OutputPath)
	assert.Empty(t, renderer.outputs)
}

type partialRenderer struct{}

func (partialRenderer) Render(ctx context.Context, params *models.ResolvedParameters) error {
	if err := os.WriteFile(params.OutputPath, []byte("half"), 0o644); err != nil {
		return err
	}
	return errors.New("convert: killed")
}

func TestEmbedRenderFailureRemovesPartialOutput(t *testing.T) {
	source := newSource(t, "photo.png")
	svc, tempDir := newTestService(t, &fakeInspector{meta: landscape}, partialRenderer{}, ServiceOptions{})

	_, err := svc.Embed(context.Background(), source, models.WatermarkOptions{Filename: "stamped.jpg"})
	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.NoFileExists(t, filepath.Join(tempDir, "stamped.jpg"))
	assert.FileExists(t, source)

	dst := filepath.Join(t.TempDir(), "final.png")
	_, err = svc.Embed(context.Background(), source, models.WatermarkOptions{DstPath: dst})
	assert.ErrorIs(t, err, ErrRenderFailure)
	assert.FileExists(t, dst)
}

func TestEmbedOverrideWithoutExtensionRemovesNewFile(t *testing.T) {
	source := newSource(t, "photo")
	svc, _ := newTestService(t, &fakeInspector{meta: landscape}, &fakeRenderer{payload: []byte("stamped")}, ServiceOptions{})

	result, err := svc.Embed(context.Background(), source, models.WatermarkOptions{OverrideImage: true})
	require.NoError(t, err)

	assert.Equal(t, source+".jpg", result.OutputPath)
	assert.Equal(t, []byte("stamped"), result.Data)
	assert.NoFileExists(t, result.OutputPath)

	data, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), data)
}
