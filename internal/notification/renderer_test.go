package notification_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knsuzuki/shopmail/internal/notification"
)

func TestTemplateRenderer_Embedded(t *testing.T) {
	r, err := notification.NewTemplateRenderer("")
	require.NoError(t, err)

	body, err := r.Render(context.Background(), "order.txt", notification.RenderContext{
		"header":   "ご注文ありがとうございます。",
		"footer":   "またのご利用をお待ちしております。",
		"BaseInfo": testShop,
		"Order":    testOrder(1, "a@example.com"),
	})
	require.NoError(t, err)
	assert.Contains(t, body, "山田 太郎 様")
	assert.Contains(t, body, "NO-0001")
	assert.Contains(t, body, "Tシャツ x 1  ￥12,345")
	assert.Contains(t, body, "Acme")
}

func TestTemplateRenderer_OverrideDirShadowsEmbedded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entry_complete.txt"), []byte("custom {{.Customer.Name01}}"), 0o600))

	r, err := notification.NewTemplateRenderer(dir)
	require.NoError(t, err)

	body, err := r.Render(context.Background(), "entry_complete.txt", notification.RenderContext{"Customer": testCustomer()})
	require.NoError(t, err)
	assert.Equal(t, "custom 山田", body)

	// Files absent from the override dir still come from the embedded set.
	body, err = r.Render(context.Background(), "point_notify.txt", notification.RenderContext{
		"Order": testOrder(2, "a@example.com"), "currentPoint": -3, "changePoint": -8,
	})
	require.NoError(t, err)
	assert.Contains(t, body, "NO-0002")
}

func TestNewTemplateRenderer_MissingDir(t *testing.T) {
	_, err := notification.NewTemplateRenderer(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestTemplateRenderer_Errors(t *testing.T) {
	r := notification.NewFSRenderer(fstest.MapFS{
		"needs_var.txt": {Data: []byte("{{.missing}}")},
		"broken.txt":    {Data: []byte("{{.x")},
	})
	ctx := context.Background()

	tests := []struct {
		name string
		file string
	}{
		{"missing variable", "needs_var.txt"},
		{"parse error", "broken.txt"},
		{"unknown file", "nope.txt"},
		{"path escape", "../etc/passwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(ctx, tt.file, notification.RenderContext{})
			require.ErrorIs(t, err, notification.ErrRender)
			var re *notification.RenderError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.file, re.File)
		})
	}
}

func TestTemplateRenderer_PriceFunc(t *testing.T) {
	r := notification.NewFSRenderer(fstest.MapFS{
		"p.txt": {Data: []byte("{{price .a}}|{{price .b}}|{{price .c}}")},
	})
	body, err := r.Render(context.Background(), "p.txt", notification.RenderContext{
		"a": int64(0), "b": int64(1234567), "c": int64(-980),
	})
	require.NoError(t, err)
	assert.Equal(t, "￥0|￥1,234,567|￥-980", body)
}

func TestTemplateRenderer_ResetRereadsFiles(t *testing.T) {
	fsys := fstest.MapFS{"a.txt": {Data: []byte("v1")}}
	r := notification.NewFSRenderer(fsys)

	body, err := r.Render(context.Background(), "a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", body)

	fsys["a.txt"] = &fstest.MapFile{Data: []byte("v2")}
	body, err = r.Render(context.Background(), "a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", body, "cached until reset")

	assert.Equal(t, 1, r.Reset())
	body, err = r.Render(context.Background(), "a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", body)
	assert.Equal(t, 1, r.Reset())
	assert.Equal(t, 0, r.Reset())
}
