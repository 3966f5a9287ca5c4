// Package search answers substring queries over the pair archive.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/qarchive/internal/apperr"
	"github.com/starford/qarchive/internal/models"
)

// Mode selects which fields a query is matched against.
type Mode string

const (
	// FullText matches title, question and answer.
	FullText Mode = "full-text"
	// Tags matches any single tag.
	Tags Mode = "tags"
)

// ParseMode validates a mode name. The empty string means FullText.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", FullText:
		return FullText, nil
	case Tags:
		return Tags, nil
	default:
		return "", fmt.Errorf("search: unknown mode %q: %w", s, apperr.ErrInvalidInput)
	}
}

// Lister is the part of the pair store the engine reads from.
type Lister interface {
	ListAll(ctx context.Context) (*models.PairMap, error)
}

// Engine runs linear scans over a Lister.
type Engine struct {
	pairs Lister
}

// NewEngine creates an Engine.
func NewEngine(pairs Lister) *Engine {
	return &Engine{pairs: pairs}
}

// Search returns the ids of matching pairs in listing order. Matching is a
// case-insensitive substring test; an empty query matches every pair.
func (e *Engine) Search(ctx context.Context, query string, mode Mode) ([]string, error) {
	hits, err := e.Find(ctx, query, mode)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(hits))
	for _, p := range hits {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// Find is Search returning the matching pairs themselves.
func (e *Engine) Find(ctx context.Context, query string, mode Mode) ([]models.QAPair, error) {
	if mode != FullText && mode != Tags {
		return nil, fmt.Errorf("search: unknown mode %q: %w", mode, apperr.ErrInvalidInput)
	}
	all, err := e.pairs.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	hits := []models.QAPair{}
	for pair := all.Oldest(); pair != nil; pair = pair.Next() {
		if match(pair.Value, needle, mode) {
			hits = append(hits, pair.Value)
		}
	}
	return hits, nil
}

// match reports whether p matches an already lower-cased needle.
func match(p models.QAPair, needle string, mode Mode) bool {
	if mode == Tags {
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	}
	text := p.Title + " " + p.Question + " " + p.Answer
	return strings.Contains(strings.ToLower(text), needle)
}
