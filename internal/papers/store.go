// Package papers persists paper metadata as one JSON index per topic
// directory. The index maps paper id to its record and is fully rewritten
// on every update; records are added or replaced, never deleted.
// Concurrent writers are not a supported scenario.
package papers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AraikT/mcp-seo/internal/arxiv"
)

const indexFile = "papers_info.json"

// Record is the persisted metadata for one paper.
type Record struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Summary   string   `json:"summary"`
	PDFURL    string   `json:"pdf_url"`
	Published string   `json:"published"`
}

// Index maps paper id to its record within one topic.
type Index map[string]Record

// Store reads and writes per-topic paper indexes under a base directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir (created lazily on first save).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// TopicDir converts a topic to its directory name: lowercased, spaces
// replaced with underscores.
func TopicDir(topic string) string {
	return strings.ReplaceAll(strings.ToLower(topic), " ", "_")
}

// Save merges records into the topic's index (read-modify-write) and
// returns the ids saved, in input order.
func (s *Store) Save(topic string, found []arxiv.Paper) ([]string, error) {
	dir := filepath.Join(s.dir, TopicDir(topic))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create topic directory: %w", err)
	}
	path := filepath.Join(dir, indexFile)

	index := s.readIndex(path)
	ids := make([]string, 0, len(found))
	for _, p := range found {
		ids = append(ids, p.ID)
		index[p.ID] = Record{
			Title:     p.Title,
			Authors:   p.Authors,
			Summary:   p.Summary,
			PDFURL:    p.PDFURL,
			Published: p.Published,
		}
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode paper index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write paper index: %w", err)
	}
	return ids, nil
}

// readIndex loads an index file, treating a missing or corrupt file as
// empty so a bad index never blocks new saves.
func (s *Store) readIndex(path string) Index {
	index := Index{}
	data, err := os.ReadFile(path)
	if err != nil {
		return index
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return Index{}
	}
	return index
}

// Lookup scans every topic directory for the given paper id.
func (s *Store) Lookup(paperID string) (Record, bool) {
	for _, topic := range s.Folders() {
		index := s.readIndex(filepath.Join(s.dir, topic, indexFile))
		if rec, ok := index[paperID]; ok {
			return rec, true
		}
	}
	return Record{}, false
}

// Folders lists topic directories that contain an index file, sorted.
func (s *Store) Folders() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var folders []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, entry.Name(), indexFile)); err == nil {
			folders = append(folders, entry.Name())
		}
	}
	sort.Strings(folders)
	return folders
}

// Topic loads the full index for one topic. The second return reports
// whether the topic exists.
func (s *Store) Topic(topic string) (Index, bool) {
	path := filepath.Join(s.dir, TopicDir(topic), indexFile)
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}
	return s.readIndex(path), true
}

// FoldersMarkdown renders the folder list as the papers://folders
// resource body.
func (s *Store) FoldersMarkdown() string {
	var b strings.Builder
	b.WriteString("# Available Topics\n\n")
	folders := s.Folders()
	if len(folders) == 0 {
		b.WriteString("No topics found.\n")
		return b.String()
	}
	for _, folder := range folders {
		fmt.Fprintf(&b, "- %s\n", folder)
	}
	fmt.Fprintf(&b, "\nUse @%s to access papers in that topic.\n", folders[len(folders)-1])
	return b.String()
}

// TopicMarkdown renders one topic's papers as the papers://{topic}
// resource body.
func (s *Store) TopicMarkdown(topic string) string {
	index, ok := s.Topic(topic)
	if !ok {
		return fmt.Sprintf("# No papers found for topic: %s\n\nTry searching for papers on this topic first.", topic)
	}

	title := titleCase(strings.ReplaceAll(TopicDir(topic), "_", " "))
	var b strings.Builder
	fmt.Fprintf(&b, "# Papers on %s\n\n", title)
	fmt.Fprintf(&b, "Total papers: %d\n\n", len(index))

	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := index[id]
		fmt.Fprintf(&b, "## %s\n", rec.Title)
		fmt.Fprintf(&b, "- **Paper ID**: %s\n", id)
		fmt.Fprintf(&b, "- **Authors**: %s\n", strings.Join(rec.Authors, ", "))
		fmt.Fprintf(&b, "- **Published**: %s\n", rec.Published)
		fmt.Fprintf(&b, "- **PDF URL**: [%s](%s)\n\n", rec.PDFURL, rec.PDFURL)
		fmt.Fprintf(&b, "### Summary\n%s\n\n", summaryPreview(rec.Summary))
		b.WriteString("---\n\n")
	}
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func summaryPreview(summary string) string {
	const max = 500
	if len(summary) <= max {
		return summary
	}
	return summary[:max] + "..."
}
