package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// separators are tried in order, coarsest first. The empty separator
// splits between characters and always succeeds.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// span is a half-open byte range of the text being split.
type span struct {
	start, end int
}

// piece is one split result with its byte offset in the source text.
type piece struct {
	text   string
	offset int
}

// split breaks text into pieces of at most chunkSize characters with
// roughly overlap characters shared between neighbours. Pieces are trimmed
// of surrounding whitespace and carry their exact offset.
func (p *Processor) split(text string) []piece {
	var out []piece
	for _, s := range p.splitRecursive(text, span{0, len(text)}, separators) {
		for s.start < s.end {
			r, size := utf8.DecodeRuneInString(text[s.start:s.end])
			if !unicode.IsSpace(r) {
				break
			}
			s.start += size
		}
		for s.end > s.start {
			r, size := utf8.DecodeLastRuneInString(text[s.start:s.end])
			if !unicode.IsSpace(r) {
				break
			}
			s.end -= size
		}
		if s.start < s.end {
			out = append(out, piece{text: text[s.start:s.end], offset: s.start})
		}
	}
	return out
}

func (p *Processor) splitRecursive(text string, within span, seps []string) []span {
	segment := text[within.start:within.end]

	sep, rest := seps[len(seps)-1], []string(nil)
	for i, s := range seps {
		if s == "" || strings.Contains(segment, s) {
			sep, rest = s, seps[i+1:]
			break
		}
	}

	// Separators stay attached to the preceding part so that parts tile
	// the segment without gaps.
	var parts []span
	pos := within.start
	if sep == "" {
		for _, r := range segment {
			size := utf8.RuneLen(r)
			if size < 0 {
				size = 1
			}
			parts = append(parts, span{pos, pos + size})
			pos += size
		}
	} else {
		for _, s := range strings.SplitAfter(segment, sep) {
			if s != "" {
				parts = append(parts, span{pos, pos + len(s)})
				pos += len(s)
			}
		}
	}

	var (
		out   []span
		small []span
	)
	for _, part := range parts {
		if p.length(text, part) <= p.chunkSize {
			small = append(small, part)
			continue
		}
		if len(small) > 0 {
			out = append(out, p.merge(text, small)...)
			small = nil
		}
		if len(rest) == 0 {
			out = append(out, part)
		} else {
			out = append(out, p.splitRecursive(text, part, rest)...)
		}
	}
	if len(small) > 0 {
		out = append(out, p.merge(text, small)...)
	}
	return out
}

// merge packs consecutive parts into windows no longer than chunkSize,
// carrying trailing parts into the next window up to the overlap.
func (p *Processor) merge(text string, parts []span) []span {
	var (
		out     []span
		window  []span
		current int
	)
	emit := func() {
		out = append(out, span{window[0].start, window[len(window)-1].end})
	}
	for _, part := range parts {
		n := p.length(text, part)
		if current+n > p.chunkSize && len(window) > 0 {
			emit()
			for len(window) > 0 && (current > p.overlap || current+n > p.chunkSize) {
				current -= p.length(text, window[0])
				window = window[1:]
			}
		}
		window = append(window, part)
		current += n
	}
	if len(window) > 0 {
		emit()
	}
	return out
}

func (p *Processor) length(text string, s span) int {
	return utf8.RuneCountInString(text[s.start:s.end])
}
