package papers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AraikT/mcp-seo/internal/arxiv"
)

func samplePapers() []arxiv.Paper {
	return []arxiv.Paper{
		{
			ID:        "2301.07041v1",
			Title:     "First Paper",
			Authors:   []string{"Alice"},
			Summary:   "Abstract one.",
			PDFURL:    "http://arxiv.org/pdf/2301.07041v1",
			Published: "2023-01-17",
		},
		{
			ID:        "2105.00001v2",
			Title:     "Second Paper",
			Authors:   []string{"Bob", "Carol"},
			Summary:   "Abstract two.",
			PDFURL:    "http://arxiv.org/pdf/2105.00001v2",
			Published: "2021-05-01",
		},
	}
}

func TestTopicDir(t *testing.T) {
	assert.Equal(t, "machine_learning", TopicDir("Machine Learning"))
	assert.Equal(t, "seo", TopicDir("SEO"))
}

func TestSaveAndLookup(t *testing.T) {
	store := NewStore(t.TempDir())

	ids, err := store.Save("Machine Learning", samplePapers())
	require.NoError(t, err)
	assert.Equal(t, []string{"2301.07041v1", "2105.00001v2"}, ids)

	rec, found := store.Lookup("2301.07041v1")
	require.True(t, found)
	assert.Equal(t, "First Paper", rec.Title)
	assert.Equal(t, []string{"Alice"}, rec.Authors)

	_, found = store.Lookup("9999.00000v1")
	assert.False(t, found)
}

func TestSaveMergesExistingIndex(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Save("seo", samplePapers()[:1])
	require.NoError(t, err)
	_, err = store.Save("seo", samplePapers()[1:])
	require.NoError(t, err)

	index, ok := store.Topic("seo")
	require.True(t, ok)
	assert.Len(t, index, 2)
}

func TestSaveToleratesCorruptIndex(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	topicDir := filepath.Join(dir, "seo")
	require.NoError(t, os.MkdirAll(topicDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(topicDir, indexFile), []byte("not json"), 0o644))

	ids, err := store.Save("seo", samplePapers()[:1])
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestFolders(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	assert.Empty(t, store.Folders())

	_, err := store.Save("Machine Learning", samplePapers())
	require.NoError(t, err)
	_, err = store.Save("quantum computing", samplePapers()[:1])
	require.NoError(t, err)

	// A directory without an index file is not a topic.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty_dir"), 0o755))

	assert.Equal(t, []string{"machine_learning", "quantum_computing"}, store.Folders())
}

func TestFoldersMarkdown(t *testing.T) {
	store := NewStore(t.TempDir())
	assert.Contains(t, store.FoldersMarkdown(), "No topics found")

	_, err := store.Save("seo", samplePapers())
	require.NoError(t, err)

	text := store.FoldersMarkdown()
	assert.Contains(t, text, "# Available Topics")
	assert.Contains(t, text, "- seo")
}

func TestTopicMarkdown(t *testing.T) {
	store := NewStore(t.TempDir())

	missing := store.TopicMarkdown("unknown")
	assert.Contains(t, missing, "No papers found for topic: unknown")

	_, err := store.Save("machine learning", samplePapers())
	require.NoError(t, err)

	text := store.TopicMarkdown("machine learning")
	assert.Contains(t, text, "# Papers on Machine Learning")
	assert.Contains(t, text, "Total papers: 2")
	assert.Contains(t, text, "First Paper")
	assert.Contains(t, text, "2105.00001v2")
}
