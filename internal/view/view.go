// Package view derives the filtered task lists and sidebar counts shown by the
// client from a task collection.
package view

import (
	"time"

	"github.com/hiroki-koketsu/taskwall/internal/model"
)

// Key selects a view.
type Key string

const (
	Today      Key = "Today"
	Upcoming   Key = "Upcoming"
	Calendar   Key = "Calendar"
	StickyWall Key = "Sticky Wall"
)

// Sidebar returns the keys that carry a count in the navigation, in display
// order: the date buckets followed by the tag palette.
func Sidebar() []Key {
	keys := []Key{Upcoming, Today}
	for _, tag := range model.SuggestedTags() {
		keys = append(keys, Key(tag))
	}
	return keys
}

// predicate returns the membership test for key evaluated at now. A nil
// predicate means every task is included.
func predicate(key Key, now time.Time) func(*model.Task) bool {
	switch key {
	case Today:
		y, m, d := now.Date()
		loc := now.Location()
		return func(t *model.Task) bool {
			if t.DueDate == nil {
				return false
			}
			ty, tm, td := t.DueDate.In(loc).Date()
			return ty == y && tm == m && td == d
		}
	case Upcoming:
		end := endOfDay(now)
		return func(t *model.Task) bool {
			return t.DueDate != nil && t.DueDate.After(end)
		}
	case Calendar, StickyWall:
		return nil
	}
	if model.IsSuggestedTag(string(key)) {
		tag := string(key)
		return func(t *model.Task) bool {
			return t.HasTag(tag)
		}
	}
	return nil
}

// Filter returns the tasks visible under key, preserving order. now fixes the
// local calendar day used by the date buckets.
func Filter(tasks []model.Task, key Key, now time.Time) []model.Task {
	match := predicate(key, now)
	out := make([]model.Task, 0, len(tasks))
	for i := range tasks {
		if match == nil || match(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}

// Count returns len(Filter(tasks, key, now)).
func Count(tasks []model.Task, key Key, now time.Time) int {
	return len(Filter(tasks, key, now))
}

// Counts returns Count for every Sidebar key.
func Counts(tasks []model.Task, now time.Time) map[Key]int {
	counts := make(map[Key]int, len(Sidebar()))
	for _, key := range Sidebar() {
		counts[key] = Count(tasks, key, now)
	}
	return counts
}

// endOfDay is the last representable instant of now's local calendar day.
func endOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()).Add(-time.Nanosecond)
}
