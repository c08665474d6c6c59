package document

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order: paragraph break, line break,
// sentence end, word boundary, then single characters.
var DefaultSeparators = []string{"\n\n", "\n", ".", " ", ""}

// Chunker splits text recursively on a list of separators, merging the
// pieces back into segments of at most Size characters that overlap by up
// to Overlap characters. Lengths are counted in runes.
//
// Separators are kept at the start of the piece that follows them, so
// joining a segment's pieces reproduces the source text exactly. Segments
// are trimmed of surrounding whitespace and blank segments are dropped.
type Chunker struct {
	size       int
	overlap    int
	separators []string
}

// NewChunker validates size and overlap and returns a Chunker using DefaultSeparators.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap, separators: DefaultSeparators}, nil
}

// Size returns the maximum segment length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the maximum overlap between consecutive segments.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the ordered segments of text. Text no longer than Size is
// returned as a single segment, unchanged.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if runeLen(text) <= c.size {
		return []string{text}
	}
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var (
		chunks []string
		good   []string
	)
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < c.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, c.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, c.merge(good)...)
	}
	return chunks
}

// merge packs pieces into segments. When a segment is emitted, pieces are
// dropped from its front until at most overlap characters remain and the
// next piece fits; what is left seeds the following segment.
func (c *Chunker) merge(pieces []string) []string {
	var (
		segments []string
		window   []string
		total    int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > c.size && len(window) > 0 {
			if seg := join(window); seg != "" {
				segments = append(segments, seg)
			}
			for total > c.overlap || (total+n > c.size && total > 0) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if seg := join(window); seg != "" {
		segments = append(segments, seg)
	}
	return segments
}

// splitKeepingSeparator splits on sep and re-attaches sep to the start of
// every piece after the first. An empty sep splits into runes.
func splitKeepingSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		pieces = make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	pieces = make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func join(window []string) string {
	return strings.TrimSpace(strings.Join(window, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
