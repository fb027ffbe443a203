package browse

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/neuranote/neuranote/internal/models"
)

// SortKey selects the field lists are ordered by
type SortKey string

const (
	SortDate SortKey = "date"
	SortName SortKey = "name"
)

// SortOrder is ascending or descending
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// TypeFilter restricts the note list to notes carrying a given section
type TypeFilter string

const (
	FilterAll     TypeFilter = "all"
	FilterPricing TypeFilter = "pricing"
	FilterSpecs   TypeFilter = "specs"
	FilterAction  TypeFilter = "action"
)

// Query is the search, filter and sort state of the browser
type Query struct {
	Search string     `json:"search"`
	Sort   SortKey    `json:"sort"`
	Order  SortOrder  `json:"order"`
	Type   TypeFilter `json:"type"`
}

// DefaultQuery lists everything, newest first
func DefaultQuery() Query {
	return Query{Sort: SortDate, Order: Desc, Type: FilterAll}
}

// Valid reports whether the sort key, order and type filter are known values
func (q Query) Valid() bool {
	switch q.Sort {
	case SortDate, SortName:
	default:
		return false
	}
	switch q.Order {
	case Asc, Desc:
	default:
		return false
	}
	switch q.Type {
	case FilterAll, FilterPricing, FilterSpecs, FilterAction:
	default:
		return false
	}
	return true
}

// FilterFolders returns the folders whose name contains the search text,
// ordered by q. The input is not modified.
func FilterFolders(folders []models.Folder, q Query) []models.Folder {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Folder, 0, len(folders))
	for _, f := range folders {
		if needle == "" || strings.Contains(strings.ToLower(f.Name), needle) {
			out = append(out, f)
		}
	}

	if q.Sort == SortName {
		c := newCollator()
		sortStable(out, q.Order, func(a, b models.Folder) int {
			return compareNames(c, a.Name, b.Name)
		})
		return out
	}
	sortStable(out, q.Order, func(a, b models.Folder) int {
		return compareTimes(createdOrZero(a.Created()), createdOrZero(b.Created()))
	})
	return out
}

// FilterNotes returns the notes whose customer information contains the
// search text and that match the type filter, ordered by q.
func FilterNotes(notes []models.Note, q Query) []models.Note {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if needle != "" && !strings.Contains(strings.ToLower(n.Data.Customer()), needle) {
			continue
		}
		if !matchesType(n.Data, q.Type) {
			continue
		}
		out = append(out, n)
	}

	if q.Sort == SortName {
		c := newCollator()
		sortStable(out, q.Order, func(a, b models.Note) int {
			return compareNames(c, a.Data.Customer(), b.Data.Customer())
		})
		return out
	}
	sortStable(out, q.Order, func(a, b models.Note) int {
		return compareTimes(createdOrZero(a.Created()), createdOrZero(b.Created()))
	})
	return out
}

func matchesType(d models.NoteData, filter TypeFilter) bool {
	switch filter {
	case FilterPricing:
		return d.HasPricing()
	case FilterSpecs:
		return d.HasProductDetails()
	case FilterAction:
		return d.ActionItemCount() > 0
	}
	return true
}

// sortStable orders items by cmp, reversed for Desc. Items comparing equal
// keep their input order in both directions.
func sortStable[T any](items []T, order SortOrder, cmp func(a, b T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		if order == Asc {
			return cmp(items[i], items[j]) < 0
		}
		return cmp(items[j], items[i]) < 0
	})
}

func newCollator() *collate.Collator {
	return collate.New(language.English, collate.IgnoreCase)
}

// compareNames orders names by locale collation. Names the collator treats
// as equal fall back to byte order so distinct names never tie.
func compareNames(c *collate.Collator, a, b string) int {
	if r := c.CompareString(a, b); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

func compareTimes(a, b time.Time) int {
	return a.Compare(b)
}

// createdOrZero treats an unparseable timestamp as the zero time
func createdOrZero(t time.Time, ok bool) time.Time {
	if !ok {
		return time.Time{}
	}
	return t
}
