package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxReceiptLen is the gateway's receipt length limit.
const maxReceiptLen = 40

// newReceipt generates a locally unique idempotency token for the
// gateway: a time-based prefix for ordering plus a random suffix for
// uniqueness.
func newReceipt() string {
	prefix := fmt.Sprintf("rcpt_%d_", time.Now().Unix())
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return boundReceipt(prefix, suffix)
}

// boundReceipt joins prefix and suffix within the gateway limit. When
// the pair is too long the prefix is truncated, never the random
// suffix, so uniqueness survives.
func boundReceipt(prefix, suffix string) string {
	if len(suffix) > maxReceiptLen {
		return suffix[:maxReceiptLen]
	}
	if len(prefix)+len(suffix) > maxReceiptLen {
		prefix = prefix[:maxReceiptLen-len(suffix)]
	}
	return prefix + suffix
}
