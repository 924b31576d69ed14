package taskqueue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettleDelivery(t *testing.T) {
	boom := errors.New("boom")

	assert.Equal(t, settleAck, settleDelivery(nil, 1))
	assert.Equal(t, settleRetry, settleDelivery(boom, 1))
	assert.Equal(t, settleRetry, settleDelivery(boom, maxDeliveries-1))
	assert.Equal(t, settleDrop, settleDelivery(boom, maxDeliveries))

	// success on the final delivery still acks
	assert.Equal(t, settleAck, settleDelivery(nil, maxDeliveries))
}
