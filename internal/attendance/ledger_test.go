package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameDayLedger_Add(t *testing.T) {
	l := NewSameDayLedger()

	assert.True(t, l.Add("NEW1"))
	assert.True(t, l.Add("NEW2"))
	assert.False(t, l.Add("NEW1"))

	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Contains("NEW1"))
	assert.Equal(t, []string{"NEW1", "NEW2"}, l.IDs())
}

func TestSameDayLedger_MergeAll(t *testing.T) {
	l := NewSameDayLedger()
	l.Add("NEW1")

	merged := l.MergeAll([]string{"NEW2", "NEW1", "NEW3"})

	assert.Equal(t, []string{"NEW1", "NEW2", "NEW3"}, merged)
	assert.Equal(t, 3, l.Len())

	// Re-delivering an older snapshot never shrinks the ledger.
	merged = l.MergeAll([]string{"NEW2"})
	assert.Equal(t, []string{"NEW1", "NEW2", "NEW3"}, merged)
}

func TestSameDayLedger_IDsReturnsCopy(t *testing.T) {
	l := NewSameDayLedger()
	l.Add("NEW1")

	ids := l.IDs()
	ids[0] = "MUTATED"

	assert.Equal(t, []string{"NEW1"}, l.IDs())
}
