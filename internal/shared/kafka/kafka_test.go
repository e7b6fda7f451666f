package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, Brokers("a:9092, b:9092,"))
	assert.Nil(t, Brokers(""))
}

func TestNewWriter(t *testing.T) {
	w := NewWriter("a:9092,b:9092", "number_called")
	assert.Equal(t, "number_called", w.Topic)
	assert.NotNil(t, w.Addr)
}
