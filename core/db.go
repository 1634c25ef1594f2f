package core

import (
	"sort"
	"strings"
	"time"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// SortByOrderings sorts `n` items with the given orderings, falling back to `less` for unknown fields.
// `field` returns the comparable value of item i for the named field and false if the field is unknown.
func SortByOrderings(n int, swap func(i, j int), field func(i int, name string) (string, bool), orderings []DBOrdering) {
	if len(orderings) == 0 {
		return
	}
	sort.Sort(&orderedSlice{n: n, swap: swap, field: field, orderings: orderings})
}

type orderedSlice struct {
	n         int
	swap      func(i, j int)
	field     func(i int, name string) (string, bool)
	orderings []DBOrdering
}

func (s *orderedSlice) Len() int      { return s.n }
func (s *orderedSlice) Swap(i, j int) { s.swap(i, j) }
func (s *orderedSlice) Less(i, j int) bool {
	for _, ord := range s.orderings {
		vi, ok := s.field(i, ord.Field)
		if !ok {
			continue
		}
		vj, _ := s.field(j, ord.Field)
		if c := strings.Compare(vi, vj); c != 0 {
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
	}
	return false
}

// SortableTime formats t so that string comparison follows chronological order.
func SortableTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000")
}
