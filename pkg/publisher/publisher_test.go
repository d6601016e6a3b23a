package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/shouni/go-deck-kit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	files map[string][]byte
	mimes map[string]string
	err   error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{files: map[string][]byte{}, mimes: map[string]string{}}
}

func (w *fakeWriter) Write(_ context.Context, path string, r io.Reader, mimeType string) error {
	if w.err != nil {
		return w.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	w.files[path] = data
	w.mimes[path] = mimeType
	return nil
}

func TestResolveOutputPath(t *testing.T) {
	t.Run("ローカルパスはfilepathで結合するのだ", func(t *testing.T) {
		got, err := ResolveOutputPath("output/run-1", "deck.pptx")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("output", "run-1", "deck.pptx"), got)
	})

	t.Run("GCSはスキームを保ったまま結合するのだ", func(t *testing.T) {
		got, err := ResolveOutputPath("gs://bucket/decks", "deck.pptx")
		require.NoError(t, err)
		assert.Equal(t, "gs://bucket/decks/deck.pptx", got)
	})
}

func TestDeckPublisher_Publish(t *testing.T) {
	ctx := context.Background()

	slides := []*domain.Slide{
		{ID: "a", PageNumber: 1, Title: "Cover", ImageURL: "data:image/png;base64,AAAA"},
		{ID: "b", PageNumber: 2, Title: "Body", ImageURL: "https://img.example/leak.png"},
	}

	t.Run("本体とマニフェストの両方が書かれるのだ", func(t *testing.T) {
		w := newFakeWriter()
		p, err := NewDeckPublisher(w)
		require.NoError(t, err)

		result, err := p.Publish(ctx, slides, "My Deck", []byte("PK..."), Options{OutputDir: "out"})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("out", "deck.pptx"), result.DeckPath)
		assert.Equal(t, filepath.Join("out", "deck.json"), result.ManifestPath)
		assert.Equal(t, []byte("PK..."), w.files[result.DeckPath])

		var manifest struct {
			Title     string          `json:"title"`
			PageCount int             `json:"pageCount"`
			Slides    []*domain.Slide `json:"slides"`
		}
		require.NoError(t, json.Unmarshal(w.files[result.ManifestPath], &manifest))
		assert.Equal(t, "My Deck", manifest.Title)
		assert.Equal(t, 2, manifest.PageCount)

		// リモートURLはマニフェストに漏れないこと
		require.Len(t, manifest.Slides, 2)
		assert.Equal(t, "data:image/png;base64,AAAA", manifest.Slides[0].ImageURL)
		assert.Empty(t, manifest.Slides[1].ImageURL)
	})

	t.Run("BaseName指定でファイル名が変わるのだ", func(t *testing.T) {
		w := newFakeWriter()
		p, err := NewDeckPublisher(w)
		require.NoError(t, err)

		result, err := p.Publish(ctx, slides, "t", nil, Options{OutputDir: "out", BaseName: "mars"})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("out", "mars.pptx"), result.DeckPath)
		assert.Equal(t, filepath.Join("out", "mars.json"), result.ManifestPath)
	})

	t.Run("書き込み失敗はそのまま伝播するのだ", func(t *testing.T) {
		w := newFakeWriter()
		w.err = errors.New("disk full")
		p, err := NewDeckPublisher(w)
		require.NoError(t, err)

		_, err = p.Publish(ctx, slides, "t", nil, Options{OutputDir: "out"})
		assert.Error(t, err)
	})
}
