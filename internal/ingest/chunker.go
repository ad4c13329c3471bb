package ingest

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100

	// how far back from the window end to look for a sentence break
	breakSearchBack = 200
	// how far past the window end a sentence break may extend it
	breakSearchAhead = 50
)

// ChunkOptions configures chunking. Sizes are in characters.
type ChunkOptions struct {
	Size    int
	Overlap int
}

// DefaultChunkOptions returns 1000 character windows overlapping by 100.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap}
}

func (o ChunkOptions) normalize() ChunkOptions {
	if o.Size <= 0 {
		return DefaultChunkOptions()
	}
	if o.Overlap < 0 || o.Overlap >= o.Size {
		o.Overlap = 0
	}
	return o
}

var sentenceBreaks = []rune{'.', '!', '?', '\n'}

// Chunk collapses whitespace in text and cuts it into overlapping windows.
// Each window ends just after the first of . ! ? or newline found near its
// end, so chunks tend to hold whole sentences. Text that fits in one window
// is returned as is.
func Chunk(text string, opts ChunkOptions) []string {
	opts = opts.normalize()
	r := []rune(strings.Join(strings.Fields(text), " "))
	if len(r) == 0 {
		return nil
	}
	if len(r) <= opts.Size {
		return []string{string(r)}
	}

	var chunks []string
	start := 0
	for start < len(r) {
		end := start + opts.Size
		if end >= len(r) {
			end = len(r)
		} else {
			end = sentenceEnd(r, start, end)
		}
		if c := strings.TrimSpace(string(r[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end >= len(r) {
			break
		}
		next := end - opts.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// sentenceEnd returns where the window [start, end) should be cut.
func sentenceEnd(r []rune, start, end int) int {
	from := end - breakSearchBack
	if from < start {
		from = start
	}
	to := end + breakSearchAhead
	if to > len(r) {
		to = len(r)
	}
	for _, p := range sentenceBreaks {
		for i := to - 1; i >= from; i-- {
			if r[i] == p {
				if i > start {
					return i + 1
				}
				break
			}
		}
	}
	return end
}

// ChunkMarkdown splits text on headings and paragraph gaps, merges
// neighbouring blocks while they fit in one window, and windows any block
// that is still too large. Line structure inside a block is kept.
func ChunkMarkdown(text string, opts ChunkOptions) []string {
	opts = opts.normalize()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= opts.Size {
		return []string{text}
	}

	var out []string
	var accum string
	flush := func() {
		if accum == "" {
			return
		}
		if utf8.RuneCountInString(accum) > opts.Size {
			out = append(out, Chunk(accum, opts)...)
		} else {
			out = append(out, accum)
		}
		accum = ""
	}
	for _, b := range splitBlocks(text) {
		if accum == "" {
			accum = b
			continue
		}
		combined := accum + "\n\n" + b
		if utf8.RuneCountInString(combined) <= opts.Size {
			accum = combined
			continue
		}
		flush()
		accum = b
	}
	flush()
	return out
}

// splitBlocks splits text before heading lines and at runs of two or more
// blank lines.
func splitBlocks(text string) []string {
	var blocks []string
	var current []string

	flush := func() {
		if t := strings.TrimSpace(strings.Join(current, "\n")); t != "" {
			blocks = append(blocks, t)
		}
		current = nil
	}

	prevEmpty := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && len(current) > 0 {
			flush()
		}
		if trimmed == "" {
			if prevEmpty && len(current) > 0 {
				flush()
			}
			prevEmpty = true
			current = append(current, line)
			continue
		}
		prevEmpty = false
		current = append(current, line)
	}
	flush()
	return blocks
}
