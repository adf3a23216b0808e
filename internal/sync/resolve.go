package sync

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/alfredjeanlab/sheetsync/internal/model"
)

// Selection is the document chosen for a mapping together with the signal
// that made it the most recent candidate.
type Selection struct {
	Document model.SourceDocument
	Reason   string
}

var nameStampPattern = regexp.MustCompile(`(\d{6})(?:_(\d{6}))?`)

// SelectSource picks the most recent document matching m. Candidates are
// ordered by modification time, then creation time, then name, all
// descending, so identical timestamps resolve to the lexicographically largest
// name. With preferNameTimestamp a YYMMDD[_HHMMSS] stamp following the prefix
// outranks the Drive timestamps.
func SelectSource(docs []model.SourceDocument, m model.Mapping, preferNameTimestamp bool) (Selection, error) {
	type candidate struct {
		doc   model.SourceDocument
		stamp time.Time
	}
	var candidates []candidate
	for _, d := range docs {
		if !m.Matches(d.Name) {
			continue
		}
		c := candidate{doc: d}
		if preferNameTimestamp {
			c.stamp = nameTimestamp(d.Name, m.Prefix)
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return Selection{}, fmt.Errorf("%w: %q", ErrNoSource, m.Prefix)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.stamp.Equal(b.stamp) {
			return a.stamp.After(b.stamp)
		}
		if !a.doc.ModifiedTime.Equal(b.doc.ModifiedTime) {
			return a.doc.ModifiedTime.After(b.doc.ModifiedTime)
		}
		if !a.doc.CreatedTime.Equal(b.doc.CreatedTime) {
			return a.doc.CreatedTime.After(b.doc.CreatedTime)
		}
		if a.doc.Name != b.doc.Name {
			return a.doc.Name > b.doc.Name
		}
		return a.doc.ID > b.doc.ID
	})

	best := candidates[0]
	return Selection{Document: best.doc, Reason: selectionReason(best.doc, best.stamp)}, nil
}

func selectionReason(d model.SourceDocument, stamp time.Time) string {
	switch {
	case !stamp.IsZero():
		return "name_timestamp=" + stamp.Format("2006-01-02 15:04:05")
	case !d.ModifiedTime.IsZero():
		return "modified_time=" + d.ModifiedTime.Format(time.RFC3339)
	case !d.CreatedTime.IsZero():
		return "created_time=" + d.CreatedTime.Format(time.RFC3339)
	}
	return "name=" + d.Name
}

// nameTimestamp parses a YYMMDD or YYMMDD_HHMMSS stamp from the part of name
// after prefix. It returns the zero time when there is no valid stamp.
func nameTimestamp(name, prefix string) time.Time {
	if len(name) < len(prefix) || name[:len(prefix)] != prefix {
		return time.Time{}
	}
	m := nameStampPattern.FindStringSubmatch(name[len(prefix):])
	if m == nil {
		return time.Time{}
	}
	date, clock := m[1], m[2]
	if clock == "" {
		clock = "000000"
	}
	t, err := time.Parse("060102150405", date+clock)
	if err != nil {
		return time.Time{}
	}
	return time.Date(2000+t.Year()%100, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
