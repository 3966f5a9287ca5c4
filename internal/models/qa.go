// Package models defines the domain types for the Q&A archive.
package models

import orderedmap "github.com/wk8/go-ordered-map/v2"

// QAPair is one archived question/answer record.
type QAPair struct {
	ID          string       `json:"id"`
	Filepath    string       `json:"filepath"`
	Title       string       `json:"title"`
	Source      string       `json:"source"`
	URL         string       `json:"url"`
	Tags        []string     `json:"tags"`
	Timestamp   string       `json:"timestamp"`
	Version     int          `json:"version"`
	ThreadPairs []ThreadPair `json:"threadPairs"`
	Question    string       `json:"question"`
	Answer      string       `json:"answer"`
}

// ThreadPair is the legacy per-document thread reference. Membership is
// decided by the thread index, never by this field.
type ThreadPair struct {
	ThreadID string `json:"thread_id" yaml:"thread_id"`
	Order    int    `json:"order" yaml:"order"`
}

// QACreateData carries the caller-supplied fields of a new pair.
type QACreateData struct {
	Title    string   `json:"title"`
	Source   string   `json:"source"`
	URL      string   `json:"url"`
	Tags     []string `json:"tags"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
}

// QAUpdateData is a partial update; nil fields keep their current value.
type QAUpdateData struct {
	Title    *string   `json:"title,omitempty"`
	Source   *string   `json:"source,omitempty"`
	URL      *string   `json:"url,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Question *string   `json:"question,omitempty"`
	Answer   *string   `json:"answer,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u QAUpdateData) Empty() bool {
	return u.Title == nil && u.Source == nil && u.URL == nil &&
		u.Tags == nil && u.Question == nil && u.Answer == nil
}

// PairMap maps pair id to pair in directory-scan order.
type PairMap = orderedmap.OrderedMap[string, QAPair]

// NewPairMap returns an empty PairMap.
func NewPairMap() *PairMap {
	return orderedmap.New[string, QAPair]()
}

// Thread is a named ordered list of pair ids.
type Thread struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// IndexOf returns the position of pairID in the thread, or -1.
func (t *Thread) IndexOf(pairID string) int {
	for i, id := range t.Items {
		if id == pairID {
			return i
		}
	}
	return -1
}

// ThreadMap maps thread id to thread, preserving the order of threads.json.
type ThreadMap = orderedmap.OrderedMap[string, *Thread]

// NewThreadMap returns an empty ThreadMap.
func NewThreadMap() *ThreadMap {
	return orderedmap.New[string, *Thread]()
}

// Settings is the persisted application preferences document.
type Settings struct {
	DataDirectory string `json:"dataDirectory"`
}
