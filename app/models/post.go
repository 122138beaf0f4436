package models

import (
	"fmt"
	"math"
	"strings"
)

// WordsPerMinute is the reading speed behind ReadingTime.
const WordsPerMinute = 200

// Validate checks the summary before it is shown.
func (s *PostSummary) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid post summary: %w", err)
	}
	return nil
}

// Validate checks the post before it is shown.
func (p *PostDetail) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid post %q: %w", p.UID, err)
	}
	return nil
}

// HasSubtitle reports whether the optional subtitle is present and non-blank.
func (p *PostDetail) HasSubtitle() bool {
	return p.Subtitle != nil && strings.TrimSpace(*p.Subtitle) != ""
}

// WordCount sums the words of every heading and paragraph.
func (p *PostDetail) WordCount() int {
	return WordCount(p.Content)
}

// ReadingTime is the estimated minutes needed to read the post.
func (p *PostDetail) ReadingTime() int {
	return ReadingTime(p.Content)
}

// CountWords counts whitespace separated tokens. Runs of whitespace count once.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// WordCount counts the heading and every paragraph of the block.
func (b ContentBlock) WordCount() int {
	n := CountWords(b.Heading)
	for _, body := range b.Body {
		n += CountWords(body.Text)
	}
	return n
}

func WordCount(blocks []ContentBlock) int {
	total := 0
	for _, b := range blocks {
		total += b.WordCount()
	}
	return total
}

// ReadingTimeAt returns ceil(words/wpm). A non-positive wpm uses WordsPerMinute.
func ReadingTimeAt(words, wpm int) int {
	if words <= 0 {
		return 0
	}
	if wpm <= 0 {
		wpm = WordsPerMinute
	}
	return int(math.Ceil(float64(words) / float64(wpm)))
}

// ReadingTime is at least one minute whenever there is any content block.
func ReadingTime(blocks []ContentBlock) int {
	if len(blocks) == 0 {
		return 0
	}
	minutes := ReadingTimeAt(WordCount(blocks), WordsPerMinute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
