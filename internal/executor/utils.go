package executor

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// formatValueForLogs renders a cty value compactly for debug logging,
// truncating long strings so payloads do not flood the log.
func formatValueForLogs(val cty.Value) string {
	if val == cty.NilVal || val.IsNull() {
		return "<null>"
	}
	if !val.IsKnown() {
		return "<unknown>"
	}
	if val.Type() == cty.String {
		s := val.AsString()
		if len(s) > 120 {
			return fmt.Sprintf("%q... (%d bytes)", s[:120], len(s))
		}
		return fmt.Sprintf("%q", s)
	}
	return val.Type().FriendlyName()
}
