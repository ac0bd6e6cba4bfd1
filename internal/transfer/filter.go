package transfer

import (
	"strings"

	"s3drain/internal/models"
)

// ShouldInclude reports whether a bucket passes the configured ignore
// rules. When the bucket is excluded, the second return value names the
// rule that matched so the caller can log why.
func ShouldInclude(bucket string, rules models.IgnoreRules) (bool, string) {
	for _, prefix := range rules.StartsWith {
		if strings.HasPrefix(bucket, prefix) {
			return false, "starts_with:" + prefix
		}
	}
	for _, suffix := range rules.EndsWith {
		if strings.HasSuffix(bucket, suffix) {
			return false, "ends_with:" + suffix
		}
	}
	for _, substr := range rules.Contains {
		if strings.Contains(bucket, substr) {
			return false, "contains:" + substr
		}
	}
	return true, ""
}
