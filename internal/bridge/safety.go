package bridge

import "strings"

// dangerousPatterns is a deny-list of known destructive command idioms. The
// check is a case-insensitive substring scan: it catches the worst accidents
// from the operator channel but is a guard rail, not a sandbox. It both
// over-blocks ("shutdown" anywhere in the text) and under-blocks obfuscated
// equivalents.
var dangerousPatterns = []string{
	"rm -rf /",
	"mkfs",
	"dd if=",
	":(){:|:&};:",
	"fork bomb",
	"format c:",
	"del /f /s /q",
	"shutdown",
	"reboot",
}

// IsDangerous reports whether a command matches the deny-list.
func IsDangerous(command string) bool {
	lower := strings.ToLower(strings.TrimSpace(command))
	for _, p := range dangerousPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
