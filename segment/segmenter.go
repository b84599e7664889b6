package segment

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/recall/core"
)

// DefaultPunctuation is the sentence-terminating character set used when no
// custom set is configured. It covers Latin terminators plus their common
// fullwidth and CJK forms; a newline also terminates a sentence.
const DefaultPunctuation = "!.?։؟۔܀܁܂‼‽⁇⁈⁉⸮﹖﹗！．？｡。\n"

const (
	defaultMinSentenceLength = 1
	defaultMaxSentenceLength = 512
)

var newlineRuns = regexp.MustCompile(`\n+`)

// Segmenter splits a parent document's text into sentence chunks.
// A Segmenter is immutable after construction and safe for concurrent use.
type Segmenter struct {
	minSentenceLength int
	maxSentenceLength int
	punctuation       string
	uniformWeight     bool
	splitPattern      *regexp.Regexp
	logger            *slog.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithMinSentenceLength sets the minimum rune length a cleaned sentence must
// exceed to become a chunk. Default is 1.
func WithMinSentenceLength(n int) Option {
	return func(s *Segmenter) {
		s.minSentenceLength = n
	}
}

// WithMaxSentenceLength sets the rune length sentences are truncated to.
// Default is 512.
func WithMaxSentenceLength(n int) Option {
	return func(s *Segmenter) {
		s.maxSentenceLength = n
	}
}

// WithPunctuation sets the sentence-terminating character set.
// Default is DefaultPunctuation.
func WithPunctuation(chars string) Option {
	return func(s *Segmenter) {
		if chars != "" {
			s.punctuation = chars
		}
	}
}

// WithProportionalWeights weights each chunk by its share of the parent
// text's length instead of the default uniform weight of 1.0.
func WithProportionalWeights() Option {
	return func(s *Segmenter) {
		s.uniformWeight = false
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Segmenter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSegmenter creates a segmenter with the given options.
func NewSegmenter(opts ...Option) (*Segmenter, error) {
	s := &Segmenter{
		minSentenceLength: defaultMinSentenceLength,
		maxSentenceLength: defaultMaxSentenceLength,
		punctuation:       DefaultPunctuation,
		uniformWeight:     true,
		logger:            slog.Default().With("component", "segmenter"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.minSentenceLength > s.maxSentenceLength {
		s.logger.Warn("min sentence length exceeds max sentence length",
			"min", s.minSentenceLength, "max", s.maxSentenceLength)
	}

	class := characterClass(s.punctuation)
	pattern, err := regexp.Compile(`\s*[^` + class + `]+[` + class + `]*`)
	if err != nil {
		return nil, err
	}
	s.splitPattern = pattern

	return s, nil
}

// Segment splits the parent document's text into chunk documents. Chunk
// identifiers derive from the parent identifier and the chunk's character
// span, so re-segmenting the same parent produces the same identifiers.
//
// Sentences are cleaned (newline runs collapsed, surrounding whitespace
// trimmed) and truncated to the maximum sentence length; cleaned sentences
// not longer than the minimum length are dropped. Offset is the sentence's
// ordinal within the parent text and Location its character span, both
// counted over the raw text before cleaning.
func (s *Segmenter) Segment(parent *core.Document) []*core.Document {
	text := parent.Text
	spans := s.splitPattern.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		spans = [][]int{{0, len(text)}}
	}

	totalLength := utf8.RuneCountInString(text)

	var chunks []*core.Document
	runeOffset, byteOffset := 0, 0
	for ci, span := range spans {
		// Byte spans from the regexp are converted to rune offsets; spans
		// arrive in order, so each conversion only walks the gap since the
		// previous span.
		start := runeOffset + utf8.RuneCountInString(text[byteOffset:span[0]])
		end := start + utf8.RuneCountInString(text[span[0]:span[1]])
		runeOffset, byteOffset = end, span[1]

		cleaned := strings.TrimSpace(newlineRuns.ReplaceAllString(text[span[0]:span[1]], " "))
		cleaned = truncateRunes(cleaned, s.maxSentenceLength)
		length := utf8.RuneCountInString(cleaned)
		if length <= s.minSentenceLength {
			continue
		}

		weight := float32(1.0)
		if !s.uniformWeight && totalLength > 0 {
			weight = float32(length) / float32(totalLength)
		}

		chunks = append(chunks, &core.Document{
			Id:       core.ChunkID(parent.Id, start, end),
			Text:     cleaned,
			Offset:   ci,
			Location: core.Span{Start: start, End: end},
			Weight:   weight,
			Tags:     map[string]string{core.TagRootDocID: parent.Id},
		})
	}
	return chunks
}

// characterClass escapes the punctuation set for use inside a regexp
// character class, deduplicating repeated characters.
func characterClass(chars string) string {
	var b strings.Builder
	seen := make(map[rune]bool)
	for _, r := range chars {
		if seen[r] {
			continue
		}
		seen[r] = true
		switch r {
		case '\\', ']', '^', '-':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncateRunes truncates a string to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
