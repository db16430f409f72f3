package attendance

// SameDayLedger is the set of participants who checked in without being
// pre-registered. It only grows within a session: there is no removal, and
// merges are deduplicating unions, so duplicated or reordered deliveries of a
// same-day snapshot cannot shrink it. Insertion order is kept for display.
type SameDayLedger struct {
	ids  []string
	seen map[string]struct{}
}

func NewSameDayLedger() *SameDayLedger {
	return &SameDayLedger{
		seen: make(map[string]struct{}),
	}
}

// Add inserts the id if absent and reports whether the ledger changed.
func (l *SameDayLedger) Add(id string) bool {
	if _, ok := l.seen[id]; ok {
		return false
	}

	l.seen[id] = struct{}{}
	l.ids = append(l.ids, id)

	return true
}

// MergeAll unions an inbound snapshot into the ledger and returns the new
// contents.
func (l *SameDayLedger) MergeAll(ids []string) []string {
	for _, id := range ids {
		l.Add(id)
	}

	return l.IDs()
}

func (l *SameDayLedger) Contains(id string) bool {
	_, ok := l.seen[id]

	return ok
}

func (l *SameDayLedger) Len() int {
	return len(l.ids)
}

// IDs returns a copy of the ledger contents in insertion order.
func (l *SameDayLedger) IDs() []string {
	ids := make([]string, len(l.ids))
	copy(ids, l.ids)

	return ids
}
