// Package catalog defines the harvested record model shared across subsystems.
package catalog

import (
	"sort"
	"strconv"
)

// Record is one catalog entry as scraped from a listing page.
type Record struct {
	Page      int    `json:"page"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Thumbnail string `json:"thumbnail"`
	Views     int    `json:"views"`
	Comments  int    `json:"comments"`
	Likes     int    `json:"likes"`
	Date      string `json:"date"`
	Author    string `json:"author"`
	Summary   string `json:"summary"`
}

// Columns is the canonical field order used by the CSV export and the
// spreadsheet header row.
var Columns = []string{
	"page", "id", "title", "link", "thumbnail",
	"views", "comments", "likes", "date", "author", "summary",
}

// Row projects the record into Columns order.
func (r Record) Row() []string {
	return []string{
		strconv.Itoa(r.Page),
		r.ID,
		r.Title,
		r.Link,
		r.Thumbnail,
		strconv.Itoa(r.Views),
		strconv.Itoa(r.Comments),
		strconv.Itoa(r.Likes),
		r.Date,
		r.Author,
		r.Summary,
	}
}

// Snapshot is the persisted record set keyed by catalog ID. It is loaded once
// at startup, mutated in memory by Merge, and written back at the end of a run.
type Snapshot map[string]Record

// NewSnapshot builds a Snapshot from a flat record list, last entry winning on
// duplicate IDs.
func NewSnapshot(records []Record) Snapshot {
	s := make(Snapshot, len(records))
	for _, r := range records {
		s[r.ID] = r
	}
	return s
}

// Merge overwrites the snapshot entry for every scraped record (insert if
// absent). IDs are stable across runs; the freshest scrape wins whole, fields
// are never unioned.
func (s Snapshot) Merge(records []Record) {
	for _, r := range records {
		s[r.ID] = r
	}
}

// Contains reports whether the snapshot already holds id.
func (s Snapshot) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the snapshot as a slice ordered by page ascending and, within
// a page, by ID descending. IDs compare numerically; an ID that does not parse
// sorts as zero.
func (s Snapshot) Sorted() []Record {
	out := make([]Record, 0, len(s))
	for _, r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return numericID(out[i].ID) > numericID(out[j].ID)
	})
	return out
}

func numericID(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
