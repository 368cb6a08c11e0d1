package telegraph

// Per-platform message text limits, in characters.
const (
	TelegramTextLimit = 4096
	DiscordTextLimit  = 2000
	SlackTextLimit    = 4000
)

// Chunk splits text into pieces of at most maxLen runes. It prefers to
// break at a newline in the second half of a piece and drops that newline.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DiscordTextLimit
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			chunks = append(chunks, string(runes))
			break
		}
		breakAt := -1
		for i := maxLen - 1; i >= maxLen/2; i-- {
			if runes[i] == '\n' {
				breakAt = i
				break
			}
		}
		if breakAt >= 0 {
			chunks = append(chunks, string(runes[:breakAt]))
			runes = runes[breakAt+1:]
		} else {
			chunks = append(chunks, string(runes[:maxLen]))
			runes = runes[maxLen:]
		}
	}
	return chunks
}
