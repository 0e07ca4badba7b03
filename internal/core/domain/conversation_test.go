package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory_RetainsUpToCapacity(t *testing.T) {
	h := NewHistory(2)

	h.Append(Exchange{User: "q1", Assistant: "a1"})
	h.Append(Exchange{User: "q2", Assistant: "a2"})

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 2, h.Capacity())
	assert.Equal(t, []Exchange{{"q1", "a1"}, {"q2", "a2"}}, h.Exchanges())
}

func TestHistory_EvictsOldestFirst(t *testing.T) {
	h := NewHistory(2)

	for i := 1; i <= 5; i++ {
		h.Append(Exchange{User: fmt.Sprintf("q%d", i), Assistant: fmt.Sprintf("a%d", i)})
	}

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []Exchange{{"q4", "a4"}, {"q5", "a5"}}, h.Exchanges())
}

func TestHistory_ZeroCapacityRetainsNothing(t *testing.T) {
	h := NewHistory(0)

	h.Append(Exchange{User: "q", Assistant: "a"})

	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Messages())
}

func TestHistory_NegativeCapacity(t *testing.T) {
	h := NewHistory(-4)

	assert.Equal(t, 0, h.Capacity())
}

func TestHistory_Messages(t *testing.T) {
	h := NewHistory(3)
	h.Append(Exchange{User: "What is lesson 1?", Assistant: "Basics."})

	msgs := h.Messages()

	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "What is lesson 1?"},
		{Role: RoleAssistant, Content: "Basics."},
	}, msgs)
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory(2)
	h.Append(Exchange{User: "q", Assistant: "a"})

	h.Clear()
	h.Append(Exchange{User: "q2", Assistant: "a2"})

	assert.Equal(t, []Exchange{{"q2", "a2"}}, h.Exchanges())
}
