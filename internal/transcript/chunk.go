package transcript

const (
	DefaultInitialChunk    = 20
	DefaultSubsequentChunk = 50
)

// Chunk splits lines into consecutive, non-overlapping segments. The first
// holds at most initial lines so the first subtitles arrive quickly; the rest
// hold at most subsequent lines. Non-positive sizes fall back to the defaults.
func Chunk(lines []string, initial, subsequent int) [][]string {
	if initial <= 0 {
		initial = DefaultInitialChunk
	}
	if subsequent <= 0 {
		subsequent = DefaultSubsequentChunk
	}
	if len(lines) == 0 {
		return nil
	}

	chunks := make([][]string, 0, 1+(max(len(lines)-initial, 0)+subsequent-1)/subsequent)
	size := initial
	for start := 0; start < len(lines); {
		end := min(start+size, len(lines))
		chunks = append(chunks, lines[start:end:end])
		start = end
		size = subsequent
	}
	return chunks
}
