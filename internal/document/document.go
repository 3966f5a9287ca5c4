// Package document encodes Q&A pairs as Markdown files with YAML frontmatter
// and decodes them back.
package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/qarchive/internal/models"
)

// Ext is the file extension of pair documents.
const Ext = ".md"

const (
	delim = "---"

	defaultTitle  = "Untitled"
	defaultSource = "unknown"
)

var (
	headingRe = regexp.MustCompile(`^#{1,2}[ \t]*(Question|Answer)[ \t]*\r?$`)
	escapeRe  = regexp.MustCompile(`^\\*#`)
	escapedRe = regexp.MustCompile(`^\\+#`)
)

// Metadata is the frontmatter block of a pair document.
type Metadata struct {
	ID          string
	Title       string
	Timestamp   string
	Source      string
	URL         string
	Tags        []string
	Version     int
	ThreadPairs []models.ThreadPair
}

// Document is a decoded pair document.
type Document struct {
	Meta     Metadata
	Question string
	Answer   string
}

// header fixes the key order of encoded frontmatter.
type header struct {
	ID          string              `yaml:"id"`
	Title       string              `yaml:"title"`
	Timestamp   string              `yaml:"timestamp"`
	Source      string              `yaml:"source"`
	URL         string              `yaml:"url"`
	Tags        []string            `yaml:"tags"`
	Version     int                 `yaml:"version"`
	ThreadPairs []models.ThreadPair `yaml:"thread_pairs"`
}

// rawHeader distinguishes absent keys from empty values on decode.
type rawHeader struct {
	ID          *string             `yaml:"id"`
	Title       *string             `yaml:"title"`
	Timestamp   *string             `yaml:"timestamp"`
	Source      *string             `yaml:"source"`
	URL         *string             `yaml:"url"`
	Tags        []string            `yaml:"tags"`
	Version     *int                `yaml:"version"`
	ThreadPairs []models.ThreadPair `yaml:"thread_pairs"`
}

// Encode renders metadata and the two body sections as a document.
func Encode(meta Metadata, question, answer string) ([]byte, error) {
	h := header{
		ID:          meta.ID,
		Title:       meta.Title,
		Timestamp:   meta.Timestamp,
		Source:      meta.Source,
		URL:         meta.URL,
		Tags:        nonNil(meta.Tags),
		Version:     meta.Version,
		ThreadPairs: nonNil(meta.ThreadPairs),
	}
	fm, err := yaml.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("document: encode frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(fm)
	buf.WriteString(delim + "\n")
	buf.WriteString("\n## Question\n")
	buf.WriteString(escapeBody(question))
	buf.WriteString("\n\n## Answer\n")
	buf.WriteString(escapeBody(answer))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// EncodePair renders a pair. Filepath is not part of the document.
func EncodePair(p models.QAPair) ([]byte, error) {
	return Encode(Metadata{
		ID:          p.ID,
		Title:       p.Title,
		Timestamp:   p.Timestamp,
		Source:      p.Source,
		URL:         p.URL,
		Tags:        p.Tags,
		Version:     p.Version,
		ThreadPairs: p.ThreadPairs,
	}, p.Question, p.Answer)
}

// Decode parses a document. Absent keys take their defaults, except the id,
// which stays empty; see DecodeFile. Malformed frontmatter is an error.
func Decode(data []byte) (*Document, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	var raw rawHeader
	if fm != nil {
		if err := yaml.Unmarshal(fm, &raw); err != nil {
			return nil, fmt.Errorf("document: parse frontmatter: %w", err)
		}
	}

	question, answer := splitSections(body)
	return &Document{
		Meta: Metadata{
			ID:          deref(raw.ID, ""),
			Title:       deref(raw.Title, defaultTitle),
			Timestamp:   deref(raw.Timestamp, ""),
			Source:      deref(raw.Source, defaultSource),
			URL:         deref(raw.URL, ""),
			Tags:        nonNil(raw.Tags),
			Version:     deref(raw.Version, 0),
			ThreadPairs: nonNil(raw.ThreadPairs),
		},
		Question: question,
		Answer:   answer,
	}, nil
}

// DecodeFile decodes the document stored at path. A missing id defaults to
// the file name without its extension.
func DecodeFile(path string, data []byte) (models.QAPair, error) {
	doc, err := Decode(data)
	if err != nil {
		return models.QAPair{}, err
	}
	id := doc.Meta.ID
	if id == "" {
		base := filepath.Base(path)
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return models.QAPair{
		ID:          id,
		Filepath:    path,
		Title:       doc.Meta.Title,
		Source:      doc.Meta.Source,
		URL:         doc.Meta.URL,
		Tags:        doc.Meta.Tags,
		Timestamp:   doc.Meta.Timestamp,
		Version:     doc.Meta.Version,
		ThreadPairs: doc.Meta.ThreadPairs,
		Question:    doc.Question,
		Answer:      doc.Answer,
	}, nil
}

// splitFrontmatter separates the YAML block between the leading --- lines
// from the body. Content without a leading delimiter is all body; an opening
// delimiter without a closing one is malformed.
func splitFrontmatter(data []byte) ([]byte, string, error) {
	text := string(data)
	trimmed := strings.TrimLeft(text, "\r\n")

	first, rest, found := strings.Cut(trimmed, "\n")
	if strings.TrimRight(first, "\r") != delim {
		return nil, text, nil
	}
	if !found {
		return nil, "", fmt.Errorf("document: unterminated frontmatter")
	}

	offset := 0
	for {
		line, after, more := strings.Cut(rest[offset:], "\n")
		if strings.TrimRight(line, "\r") == delim {
			return []byte(rest[:offset]), after, nil
		}
		if !more {
			return nil, "", fmt.Errorf("document: unterminated frontmatter")
		}
		offset += len(line) + 1
	}
}

// splitSections extracts the Question and Answer sections from the body.
func splitSections(body string) (string, string) {
	lines := strings.SplitAfter(body, "\n")

	q, a := -1, -1
	for i, line := range lines {
		m := headingRe.FindStringSubmatch(strings.TrimSuffix(line, "\n"))
		if m == nil {
			continue
		}
		switch {
		case m[1] == "Question" && q < 0 && a < 0:
			q = i
		case m[1] == "Answer" && a < 0:
			a = i
		}
	}

	var question, answer string
	if q >= 0 {
		end := len(lines)
		if a > q {
			end = a
		}
		question = trimNewlines(strings.Join(lines[q+1:end], ""), 2)
	}
	if a >= 0 {
		answer = trimNewlines(strings.Join(lines[a+1:], ""), 1)
	} else {
		answer = strings.TrimSpace(body)
	}
	return unescapeBody(question), unescapeBody(answer)
}

// escapeBody prefixes a backslash to every line that could read as a heading,
// including lines that are already backslash-escaped.
func escapeBody(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if escapeRe.MatchString(line) {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}

func unescapeBody(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if escapedRe.MatchString(line) {
			lines[i] = line[1:]
		}
	}
	return strings.Join(lines, "\n")
}

func trimNewlines(s string, n int) string {
	for i := 0; i < n && strings.HasSuffix(s, "\n"); i++ {
		s = s[:len(s)-1]
	}
	return s
}

func deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
