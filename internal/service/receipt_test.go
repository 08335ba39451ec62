package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReceipt(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		receipt := newReceipt()

		assert.True(t, strings.HasPrefix(receipt, "rcpt_"))
		assert.LessOrEqual(t, len(receipt), maxReceiptLen)
		assert.False(t, seen[receipt], "duplicate receipt %s", receipt)
		seen[receipt] = true
	}
}

func TestBoundReceiptTruncatesPrefixNotSuffix(t *testing.T) {
	suffix := "abcdef123456"
	prefix := strings.Repeat("p", 50)

	receipt := boundReceipt(prefix, suffix)

	assert.Len(t, receipt, maxReceiptLen)
	assert.True(t, strings.HasSuffix(receipt, suffix), "random suffix must survive truncation")

	// Deterministic for identical inputs
	assert.Equal(t, receipt, boundReceipt(prefix, suffix))
}

func TestBoundReceiptShortInputsUntouched(t *testing.T) {
	assert.Equal(t, "rcpt_1_ab", boundReceipt("rcpt_1_", "ab"))
}

func TestBoundReceiptOversizedSuffix(t *testing.T) {
	suffix := strings.Repeat("s", 60)

	receipt := boundReceipt("rcpt_", suffix)
	assert.Len(t, receipt, maxReceiptLen)
	assert.Equal(t, suffix[:maxReceiptLen], receipt)
}
