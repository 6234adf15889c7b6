package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxArticleBodySize = 1 * 1024 * 1024

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// articleDoc is the article.yaml sidecar of one authored bundle.
type articleDoc struct {
	Slug      string `yaml:"slug"`
	Title     string `yaml:"title"`
	Category  string `yaml:"category"`
	Summary   string `yaml:"summary"`
	Published *bool  `yaml:"published"`
}

// ParseArticleBundle reads one bundle directory containing article.yaml and
// body.md. The directory name must match the declared slug so a moved bundle
// cannot silently shadow another article.
func ParseArticleBundle(dir string) (Article, error) {
	configBytes, err := os.ReadFile(filepath.Join(dir, "article.yaml"))
	if err != nil {
		return Article{}, fmt.Errorf("article.yaml not readable: %w", err)
	}

	var doc articleDoc
	if err := yaml.Unmarshal(configBytes, &doc); err != nil {
		return Article{}, fmt.Errorf("article.yaml invalid: %w", err)
	}

	slug := normalizeSlug(doc.Slug)
	if slug == "" {
		return Article{}, errors.New("slug is required (lowercase letters, digits, hyphens)")
	}
	if slug != normalizeSlug(filepath.Base(dir)) {
		return Article{}, fmt.Errorf("bundle directory %q does not match slug %q", filepath.Base(dir), slug)
	}
	if strings.TrimSpace(doc.Title) == "" {
		return Article{}, errors.New("title is required")
	}

	body, err := os.ReadFile(filepath.Join(dir, "body.md"))
	if err != nil {
		return Article{}, fmt.Errorf("body.md not readable: %w", err)
	}
	if len(body) == 0 {
		return Article{}, errors.New("body.md is empty")
	}
	if len(body) > maxArticleBodySize {
		return Article{}, fmt.Errorf("body.md exceeds %d bytes", maxArticleBodySize)
	}

	published := true
	if doc.Published != nil {
		published = *doc.Published
	}

	return Article{
		Slug:      slug,
		Title:     strings.TrimSpace(doc.Title),
		Category:  strings.TrimSpace(doc.Category),
		Summary:   strings.TrimSpace(doc.Summary),
		BodyMD:    string(body),
		Published: published,
	}, nil
}

// SyncContentDir upserts every bundle under dir into the article store.
// Idempotent: run at web-process start, like any other bootstrap task. A bad
// bundle is logged and skipped rather than blocking startup; a missing
// content dir is not an error (the site just has no guides yet).
func SyncContentDir(ctx context.Context, repo ArticleRepository, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("content dir %s not found; skipping guide sync", dir)
			return nil
		}
		return err
	}

	synced := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		bundle := filepath.Join(dir, entry.Name())
		article, err := ParseArticleBundle(bundle)
		if err != nil {
			log.Printf("skipping article bundle %s: %v", bundle, err)
			continue
		}
		if err := repo.Upsert(ctx, article); err != nil {
			return fmt.Errorf("upsert article %s: %w", article.Slug, err)
		}
		synced++
	}
	log.Printf("content sync done dir=%s articles=%d", dir, synced)
	return nil
}

func normalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slugPattern.MatchString(s) {
		return ""
	}
	return s
}
