// Package segment splits answer keys and submissions into ordered question blocks.
package segment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// QuestionBlock is one question/answer unit extracted from a document.
type QuestionBlock struct {
	// Index is the 1-based position of the block in its document.
	Index int
	// Number is the question number written in the marker.
	Number int
	Text   string
	// Answer is empty when the block carries no answer label.
	Answer string
}

// AnswerPair associates a submission block with its reference block.
type AnswerPair struct {
	Index     int
	Student   QuestionBlock
	Reference QuestionBlock
}

// Mismatch reports differing block counts between a submission and its reference.
type Mismatch struct {
	ReferenceCount  int
	SubmissionCount int
}

func (m Mismatch) String() string {
	return fmt.Sprintf("submission has %d question blocks, reference has %d", m.SubmissionCount, m.ReferenceCount)
}

type markerRule struct {
	name    string
	pattern *regexp.Regexp
}

// markers is evaluated in order; the first match wins.
var markers = []markerRule{
	{name: "question", pattern: regexp.MustCompile(`(?i)^question\s*(\d+)\b[\s.:)\-]*`)},
	{name: "q", pattern: regexp.MustCompile(`(?i)^q\.?\s*(\d+)\b[\s.:)\-]*`)},
	{name: "bracket", pattern: regexp.MustCompile(`^\[(\d+)\][\s.:)\-]*`)},
	{name: "paren", pattern: regexp.MustCompile(`^(\d+)\)[\s.:\-]*`)},
	{name: "dot", pattern: regexp.MustCompile(`^(\d+)\.(?:\s+|$)`)},
}

// A label opening a line may stand alone; inside a line it must be followed by a separator so
// prose such as "explain the answer to" is left alone.
var (
	leadingAnswerLabel = regexp.MustCompile(`(?i)^(?:answer|ans|solution)\b\s*[:.\-)=]*\s*`)
	inlineAnswerLabel  = regexp.MustCompile(`(?i)\b(?:answer|ans|solution)\s*[:\-=)]+\s*`)
)

type state int

const (
	seekingMarker state = iota
	inBlock
	inAnswer
)

type builder struct {
	number int
	text   []string
	answer []string
}

// matchMarker returns the question number and the remainder of line when line starts with a marker.
func matchMarker(line string) (int, string, bool) {
	for _, rule := range markers {
		loc := rule.pattern.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		number, err := strconv.Atoi(line[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		return number, strings.TrimSpace(line[loc[1]:]), true
	}
	return 0, "", false
}

// matchAnswer returns the text following the first answer label in line.
func matchAnswer(line string) (string, bool) {
	loc := leadingAnswerLabel.FindStringIndex(line)
	if loc == nil {
		loc = inlineAnswerLabel.FindStringIndex(line)
	}
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(line[loc[1]:]), true
}

// Split partitions document into question blocks, one per marker. Text before the first marker
// is ignored. A marker with nothing after it still yields a block, with empty Text and Answer.
func Split(document string) []QuestionBlock {
	var (
		blocks  []QuestionBlock
		current *builder
		st      = seekingMarker
	)

	flush := func() {
		if current == nil {
			return
		}
		blocks = append(blocks, QuestionBlock{
			Index:  len(blocks) + 1,
			Number: current.number,
			Text:   strings.TrimSpace(strings.Join(current.text, "\n")),
			Answer: strings.Join(current.answer, "\n"),
		})
		current = nil
	}

	for _, raw := range strings.Split(normalizeNewlines(document), "\n") {
		line := strings.TrimSpace(raw)

		if number, rest, ok := matchMarker(line); ok {
			flush()
			current = &builder{number: number}
			st = inBlock
			line = rest
		} else if st == seekingMarker {
			continue
		}

		if line == "" {
			continue
		}
		current.text = append(current.text, line)

		switch st {
		case inBlock:
			if answer, ok := matchAnswer(line); ok {
				st = inAnswer
				if answer != "" {
					current.answer = append(current.answer, answer)
				}
			}
		case inAnswer:
			current.answer = append(current.answer, line)
		}
	}
	flush()

	return blocks
}

// SplitLines treats every non-empty line as one block whose answer is the whole line. It serves
// documents that carry no question markers at all.
func SplitLines(document string) []QuestionBlock {
	var blocks []QuestionBlock
	for _, raw := range strings.Split(normalizeNewlines(document), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		idx := len(blocks) + 1
		blocks = append(blocks, QuestionBlock{Index: idx, Number: idx, Text: line, Answer: line})
	}
	return blocks
}

// Align pairs every reference block with the submission block carrying the same question number.
// The reference sequence is authoritative: a missing submission block yields an empty answer. When
// reference numbers repeat, blocks are paired by position instead. A non-nil Mismatch is returned
// when the block counts differ.
func Align(reference, submission []QuestionBlock) ([]AnswerPair, *Mismatch) {
	pairs := make([]AnswerPair, 0, len(reference))

	byNumber := make(map[int]QuestionBlock, len(submission))
	for _, block := range submission {
		if _, exists := byNumber[block.Number]; !exists {
			byNumber[block.Number] = block
		}
	}

	positional := !uniqueNumbers(reference)
	for i, ref := range reference {
		var student QuestionBlock
		var ok bool
		if positional {
			if i < len(submission) {
				student, ok = submission[i], true
			}
		} else {
			student, ok = byNumber[ref.Number]
		}
		if !ok {
			student = QuestionBlock{Index: ref.Index, Number: ref.Number}
		}
		pairs = append(pairs, AnswerPair{Index: i + 1, Student: student, Reference: ref})
	}

	if len(reference) != len(submission) {
		return pairs, &Mismatch{ReferenceCount: len(reference), SubmissionCount: len(submission)}
	}
	return pairs, nil
}

func uniqueNumbers(blocks []QuestionBlock) bool {
	seen := make(map[int]struct{}, len(blocks))
	for _, b := range blocks {
		if _, ok := seen[b.Number]; ok {
			return false
		}
		seen[b.Number] = struct{}{}
	}
	return true
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}
