package task

import (
	"fmt"
	"sort"
	"time"
)

var statusOrder = map[Status]int{
	StatusInbox:    0,
	StatusNext:     1,
	StatusWaiting:  2,
	StatusSomeday:  3,
	StatusDone:     4,
	StatusArchived: 5,
}

// SortTasks orders by status bucket, then due date ascending (tasks without a
// due date last), then creation time. Input is not mutated.
func SortTasks(tasks []Task) []Task {
	out := append([]Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ao, bo := statusRank(a.Status), statusRank(b.Status)
		if ao != bo {
			return ao < bo
		}
		ad, aok := ParseWhen(a.DueDate)
		bd, bok := ParseWhen(b.DueDate)
		if aok != bok {
			return aok
		}
		if aok && !ad.Equal(bd) {
			return ad.Before(bd)
		}
		ac, _ := ParseWhen(a.CreatedAt)
		bc, _ := ParseWhen(b.CreatedAt)
		return ac.Before(bc)
	})
	return out
}

func statusRank(s Status) int {
	if r, ok := statusOrder[s]; ok {
		return r
	}
	return statusOrder[StatusInbox]
}

// AgeLabel returns a "N weeks old" style label for stale tasks, or "" for
// tasks younger than a week or with an unparseable creation time.
func AgeLabel(createdAt string, now time.Time) string {
	created, ok := ParseWhen(createdAt)
	if !ok {
		return ""
	}
	days := int(now.Sub(created).Hours() / 24)
	switch {
	case days >= 30:
		months := days / 30
		if months == 1 {
			return "1 month old"
		}
		return fmt.Sprintf("%d months old", months)
	case days >= 7:
		weeks := days / 7
		if weeks == 1 {
			return "1 week old"
		}
		return fmt.Sprintf("%d weeks old", weeks)
	default:
		return ""
	}
}
