package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/storage"
)

func TestSQLiteTemplateStore(t *testing.T) {
	db, _, err := storage.NewSQLiteDB(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := storage.NewSQLiteTemplateStore(db)
	ctx := context.Background()

	t.Run("find seeded template", func(t *testing.T) {
		ref, err := store.FindTemplate(ctx, 8)
		require.NoError(t, err)
		assert.EqualValues(t, 8, ref.ID)
		assert.Equal(t, "shipping_notify.txt", ref.FileName)
		assert.Equal(t, "商品出荷のお知らせ", ref.Subject)
		assert.NotEmpty(t, ref.Header)
		assert.NotEmpty(t, ref.Footer)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.FindTemplate(ctx, 99)
		assert.ErrorIs(t, err, notification.ErrTemplateNotFound)
	})

	t.Run("list", func(t *testing.T) {
		list, err := store.ListTemplates(ctx)
		require.NoError(t, err)
		require.Len(t, list, 8)

		want := []string{
			"order.txt", "entry_confirm.txt", "entry_complete.txt", "customer_withdraw_mail.txt",
			"contact_mail.txt", "forgot_mail.txt", "reset_complete_mail.txt", "shipping_notify.txt",
		}
		for i, ref := range list {
			assert.EqualValues(t, i+1, ref.ID)
			assert.Equal(t, want[i], ref.FileName)
		}
	})
}

func TestSQLiteTemplateStore_FilesExistInRenderer(t *testing.T) {
	db, _, err := storage.NewSQLiteDB(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	renderer, err := notification.NewTemplateRenderer("")
	require.NoError(t, err)

	list, err := storage.NewSQLiteTemplateStore(db).ListTemplates(context.Background())
	require.NoError(t, err)
	for _, ref := range list {
		// Rendering with no variables fails on missing keys, never on a
		// missing file.
		_, err := renderer.Render(context.Background(), ref.FileName, notification.RenderContext{})
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "file does not exist", ref.FileName)
	}
}
