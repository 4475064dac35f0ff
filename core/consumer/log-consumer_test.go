package consumer

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richd0tcom/yaku/internal/domain"
)

func TestLogConsumer_PrintsRecord(t *testing.T) {
	logger, hook := test.NewNullLogger()
	c := NewLogConsumer("Nodo 1", logger)

	err := c.Process([]domain.Record{{"Temperature": 22.3, "Date": 1700000000.5}})

	require.NoError(t, err)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, `[Nodo 1] Record: {"Date":1700000000.5,"Temperature":22.3}`, hook.LastEntry().Message)
}

func TestLogConsumer_Batch(t *testing.T) {
	logger, hook := test.NewNullLogger()
	c := NewLogConsumer("queue", logger)

	require.NoError(t, c.Process([]domain.Record{{"a": 1}, {"a": 2}}))

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "[queue] Processing batch of 2 records", entries[0].Message)
}

func TestLogConsumer_UnencodableRecord(t *testing.T) {
	logger, _ := test.NewNullLogger()
	c := NewLogConsumer("x", logger)

	assert.Error(t, c.Process([]domain.Record{{"bad": math.Inf(1)}}))
}
