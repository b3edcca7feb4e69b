package logging

// MaxLogFieldLength caps free-form text (provider error bodies mostly)
// before it goes into a structured log field.
const MaxLogFieldLength = 256

// Truncate shortens s to MaxLogFieldLength, appending "..." when it was cut.
func Truncate(s string) string {
	if len(s) <= MaxLogFieldLength {
		return s
	}
	return s[:MaxLogFieldLength] + "..."
}
