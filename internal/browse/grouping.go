package browse

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/neuranote/neuranote/internal/models"
)

// YearGroup holds the months of one calendar year
type YearGroup struct {
	Year   int          `json:"year"`
	Months []MonthGroup `json:"months"`
}

// MonthGroup holds the weeks of one month
type MonthGroup struct {
	// Key is "YYYY-MM", the expand/collapse key of the month
	Key   string      `json:"key"`
	Name  string      `json:"name"`
	Month time.Month  `json:"month"`
	Weeks []WeekGroup `json:"weeks"`
	Count int         `json:"count"`
}

// WeekGroup holds the folders created in one week of a month
type WeekGroup struct {
	Week    int             `json:"week"`
	Label   string          `json:"label"`
	Folders []models.Folder `json:"folders"`
}

// WeekOfMonth returns ceil(day/7): days 1-7 are week 1, 29-31 week 5
func WeekOfMonth(day int) int {
	return (day + 6) / 7
}

// MonthKey returns the "YYYY-MM" key of t
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// GroupByDate buckets folders into year, month and week, newest first.
// Folders keep their input order inside a week. Folders whose creation time
// cannot be parsed are left out.
func GroupByDate(folders []models.Folder) []YearGroup {
	type weekKey struct {
		year  int
		month time.Month
		week  int
	}
	buckets := make(map[weekKey][]models.Folder)
	var keys []weekKey

	for _, f := range folders {
		created, ok := f.Created()
		if !ok {
			continue
		}
		k := weekKey{created.Year(), created.Month(), WeekOfMonth(created.Day())}
		if _, seen := buckets[k]; !seen {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], f)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.year != b.year {
			return a.year > b.year
		}
		if a.month != b.month {
			return a.month > b.month
		}
		return a.week > b.week
	})

	var years []YearGroup
	for _, k := range keys {
		if len(years) == 0 || years[len(years)-1].Year != k.year {
			years = append(years, YearGroup{Year: k.year})
		}
		year := &years[len(years)-1]
		if len(year.Months) == 0 || year.Months[len(year.Months)-1].Month != k.month {
			year.Months = append(year.Months, MonthGroup{
				Key:   MonthKey(time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC)),
				Name:  k.month.String()[:3],
				Month: k.month,
			})
		}
		month := &year.Months[len(year.Months)-1]
		month.Weeks = append(month.Weeks, WeekGroup{
			Week:    k.week,
			Label:   fmt.Sprintf("Week %d", k.week),
			Folders: buckets[k],
		})
		month.Count += len(buckets[k])
	}
	return years
}

// ExpandState tracks which years and months of the tree are open
type ExpandState struct {
	mu     sync.Mutex
	years  map[int]bool
	months map[string]bool
}

// NewExpandState opens the year and month of now
func NewExpandState(now time.Time) *ExpandState {
	return &ExpandState{
		years:  map[int]bool{now.Year(): true},
		months: map[string]bool{MonthKey(now): true},
	}
}

// ToggleYear flips a year and returns its new state
func (e *ExpandState) ToggleYear(year int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.years[year] = !e.years[year]
	return e.years[year]
}

// ToggleMonth flips a "YYYY-MM" month and returns its new state. Keys in any
// other form are rejected.
func (e *ExpandState) ToggleMonth(key string) (bool, error) {
	if _, err := time.Parse("2006-01", key); err != nil {
		return false, fmt.Errorf("invalid month key %q (want YYYY-MM)", key)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.months[key] = !e.months[key]
	return e.months[key], nil
}

func (e *ExpandState) YearExpanded(year int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.years[year]
}

func (e *ExpandState) MonthExpanded(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.months[key]
}
