package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpin/taskpin/pkg/cerr"
)

func TestNewQuote(t *testing.T) {
	q, err := NewQuote(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), q.PriceCents)
	assert.Equal(t, int64(100), q.FeeCents)
	assert.Equal(t, int64(1100), q.TotalCents)
}

func TestNewQuoteRoundsHalfUp(t *testing.T) {
	// 10% of 1005 is 100.5, which rounds away from zero.
	q, err := NewQuote(1005)
	require.NoError(t, err)
	assert.Equal(t, int64(101), q.FeeCents)
	assert.Equal(t, int64(1106), q.TotalCents)

	// 10% of 1004 is 100.4 and rounds down.
	q, err = NewQuote(1004)
	require.NoError(t, err)
	assert.Equal(t, int64(100), q.FeeCents)
	assert.Equal(t, int64(1104), q.TotalCents)
}

func TestNewQuoteSmallPrices(t *testing.T) {
	// Below a nickel the fee rounds to zero and total equals price.
	q, err := NewQuote(4)
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.FeeCents)
	assert.Equal(t, int64(4), q.TotalCents)

	q, err = NewQuote(5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), q.FeeCents)
	assert.Equal(t, int64(6), q.TotalCents)
}

func TestNewQuoteRejectsNonPositive(t *testing.T) {
	for _, price := range []int64{0, -1, -1000} {
		_, err := NewQuote(price)
		require.Error(t, err)
		assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	}
}

func TestQuoteInvariant(t *testing.T) {
	for _, price := range []int64{1, 99, 100, 101, 12345, 999999} {
		q, err := NewQuote(price)
		require.NoError(t, err)
		assert.Equal(t, q.PriceCents+q.FeeCents, q.TotalCents, "price %d", price)
	}
}
