package ingestion

// Default chunking policy, in characters.
const (
	DefaultChunkSize    = 20000
	DefaultChunkOverlap = 10000
)

// Chunk cuts text into windows of at most size characters, each starting
// overlap characters before the end of the previous one. Windows always
// fall on character boundaries. Text that fits in one window is returned
// whole, and empty text yields no windows.
//
// An overlap outside [0, size) is replaced by size/2 so that every window
// advances.
func Chunk(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 2
	}

	// offsets[i] is the byte offset of character i; the final entry is len(text).
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	chars := len(offsets)
	offsets = append(offsets, len(text))

	if chars <= size {
		return []string{text}
	}

	var chunks []string
	for start := 0; ; {
		if start+size >= chars {
			chunks = append(chunks, text[offsets[start]:])
			return chunks
		}
		end := start + size
		chunks = append(chunks, text[offsets[start]:offsets[end]])
		start = end - overlap
	}
}
