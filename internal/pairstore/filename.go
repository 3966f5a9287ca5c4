package pairstore

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/starford/qarchive/internal/document"
)

const (
	idLayout = "20060102_1504"

	slugSource = 50
	slugMax    = 30
	maxSeq     = 99
)

var (
	slugStripRe = regexp.MustCompile(`[^\w\s-]`)
	slugSpaceRe = regexp.MustCompile(`\s+`)
)

// minuteID formats t as a minute-granularity pair id in t's location.
func minuteID(t time.Time) string {
	return t.Format(idLayout)
}

// pairID returns the id for the seq-th pair created in the same minute.
func pairID(minute string, seq int) string {
	if seq == 0 {
		return minute
	}
	return fmt.Sprintf("%s_%02d", minute, seq)
}

// fileName builds <minute>_<seq>_<source>_<slug>.md.
func fileName(minute string, seq int, source, question string) string {
	src := slug(source)
	if src == "" {
		src = "unknown"
	}
	return fmt.Sprintf("%s_%02d_%s_%s%s", minute, seq, src, slug(question), document.Ext)
}

// slug keeps the first runes of s that are safe in a file name, with
// whitespace runs folded to underscores.
func slug(s string) string {
	s = truncate(s, slugSource)
	s = slugStripRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugSpaceRe.ReplaceAllString(s, "_")
	return truncate(s, slugMax)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
