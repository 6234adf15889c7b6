package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBundle(t *testing.T, root, dir, yaml, body string) string {
	t.Helper()
	path := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "article.yaml"), []byte(yaml), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(path, "body.md"), []byte(body), 0o644))
	return path
}

func TestParseArticleBundle(t *testing.T) {
	root := t.TempDir()

	t.Run("valid bundle", func(t *testing.T) {
		dir := writeBundle(t, root, "packing-checklist", `
slug: packing-checklist
title: "The Ultimate Packing Checklist"
category: Planning
summary: Everything to pack, room by room.
`, "# Packing\n\nStart early.")

		a, err := ParseArticleBundle(dir)
		require.NoError(t, err)
		assert.Equal(t, "packing-checklist", a.Slug)
		assert.Equal(t, "The Ultimate Packing Checklist", a.Title)
		assert.Equal(t, "Planning", a.Category)
		assert.True(t, a.Published, "published defaults to true")
		assert.Contains(t, a.BodyMD, "Start early.")
	})

	t.Run("published false is respected", func(t *testing.T) {
		dir := writeBundle(t, root, "draft-guide", `
slug: draft-guide
title: Draft
published: false
`, "wip")
		a, err := ParseArticleBundle(dir)
		require.NoError(t, err)
		assert.False(t, a.Published)
	})

	t.Run("directory name must match slug", func(t *testing.T) {
		dir := writeBundle(t, root, "wrong-dir", `
slug: packing-checklist
title: Mismatch
`, "body")
		_, err := ParseArticleBundle(dir)
		assert.ErrorContains(t, err, "does not match slug")
	})

	t.Run("missing title", func(t *testing.T) {
		dir := writeBundle(t, root, "no-title", "slug: no-title\n", "body")
		_, err := ParseArticleBundle(dir)
		assert.ErrorContains(t, err, "title is required")
	})

	t.Run("invalid slug", func(t *testing.T) {
		dir := writeBundle(t, root, "Bad_Slug", `
slug: Bad_Slug
title: Bad
`, "body")
		_, err := ParseArticleBundle(dir)
		assert.ErrorContains(t, err, "slug is required")
	})

	t.Run("empty body", func(t *testing.T) {
		dir := writeBundle(t, root, "empty-body", `
slug: empty-body
title: Empty
`, "")
		_, err := ParseArticleBundle(dir)
		assert.ErrorContains(t, err, "body.md is empty")
	})

	t.Run("missing body file", func(t *testing.T) {
		path := filepath.Join(root, "no-body")
		require.NoError(t, os.MkdirAll(path, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(path, "article.yaml"), []byte("slug: no-body\ntitle: X\n"), 0o644))
		_, err := ParseArticleBundle(path)
		assert.ErrorContains(t, err, "body.md not readable")
	})
}

type memArticleRepo struct {
	articles map[string]Article
}

func newMemArticleRepo() *memArticleRepo {
	return &memArticleRepo{articles: map[string]Article{}}
}

func (r *memArticleRepo) ListPublished(ctx context.Context, page, perPage int) ([]Article, int, error) {
	var out []Article
	for _, a := range r.articles {
		if a.Published {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (r *memArticleRepo) GetBySlug(ctx context.Context, slug string) (*Article, error) {
	a, ok := r.articles[slug]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *memArticleRepo) Upsert(ctx context.Context, a Article) error {
	r.articles[a.Slug] = a
	return nil
}

func TestSyncContentDir(t *testing.T) {
	t.Run("syncs valid bundles and skips broken ones", func(t *testing.T) {
		root := t.TempDir()
		writeBundle(t, root, "moving-day-tips", `
slug: moving-day-tips
title: Moving Day Tips
`, "Take photos of cables before unplugging.")
		writeBundle(t, root, "broken", "slug: mismatch\ntitle: X\n", "body")
		require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("ignored"), 0o644))

		repo := newMemArticleRepo()
		require.NoError(t, SyncContentDir(context.Background(), repo, root))

		assert.Len(t, repo.articles, 1)
		assert.Contains(t, repo.articles, "moving-day-tips")
	})

	t.Run("missing dir is not an error", func(t *testing.T) {
		repo := newMemArticleRepo()
		err := SyncContentDir(context.Background(), repo, filepath.Join(t.TempDir(), "nope"))
		assert.NoError(t, err)
		assert.Empty(t, repo.articles)
	})

	t.Run("resync is idempotent", func(t *testing.T) {
		root := t.TempDir()
		writeBundle(t, root, "storage-guide", `
slug: storage-guide
title: Storage Guide
`, "Climate control matters.")

		repo := newMemArticleRepo()
		require.NoError(t, SyncContentDir(context.Background(), repo, root))
		require.NoError(t, SyncContentDir(context.Background(), repo, root))
		assert.Len(t, repo.articles, 1)
	})
}
