package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenFailsOnMissingChip(t *testing.T) {
	_, err := Open(Config{Chip: "gpiochip-does-not-exist", TxOffset: 0, RxOffset: 1})
	assert.Error(t, err)
}

func TestDefaultBaudUsedWhenUnset(t *testing.T) {
	_, err := Open(Config{Chip: "gpiochip-does-not-exist", TxOffset: 0, RxOffset: 1, BaudRate: 0})
	assert.Error(t, err)
}
