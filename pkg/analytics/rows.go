package analytics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrMissingColumns is returned when a CSV header lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

// ErrScoreOutOfRange is returned when a CSV score lies outside [0, MaxScore].
var ErrScoreOutOfRange = errors.New("score out of range")

// MaxScore is the top of the per-answer score scale.
const MaxScore = 5.0

// CSV column names of a class score export.
const (
	ColumnStudentName     = "Student Name"
	ColumnScore           = "Score/5"
	ColumnTopic           = "Topic"
	ColumnStudentAnswer   = "Student Answer"
	ColumnReferenceAnswer = "Reference Answer"
)

var requiredColumns = []string{ColumnStudentName, ColumnScore, ColumnTopic, ColumnStudentAnswer, ColumnReferenceAnswer}

var scorePattern = regexp.MustCompile(`[0-9.]+`)

// ParseScore extracts the first numeric run of a score cell such as "3.5/5"; unreadable cells are 0.
func ParseScore(cell string) float64 {
	match := scorePattern.FindString(cell)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

// CleanText strips double quotes and surrounding whitespace.
func CleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

// NormalizeRow cleans text fields and fills a blank student name.
func NormalizeRow(r Row) Row {
	r.StudentName = CleanText(r.StudentName)
	if r.StudentName == "" {
		r.StudentName = "Unknown"
	}
	r.Topic = CleanText(r.Topic)
	r.StudentAnswer = CleanText(r.StudentAnswer)
	r.ReferenceAnswer = CleanText(r.ReferenceAnswer)
	return r
}

// ReadCSV parses a class score export. Extra columns are ignored.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := map[string]int{}
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	cell := func(record []string, col string) string {
		if i := index[col]; i < len(record) {
			return record[i]
		}
		return ""
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		score := ParseScore(cell(record, ColumnScore))
		if score > MaxScore {
			return nil, fmt.Errorf("%w: line %d: %g", ErrScoreOutOfRange, line, score)
		}
		rows = append(rows, NormalizeRow(Row{
			StudentName:     cell(record, ColumnStudentName),
			Score:           score,
			Topic:           cell(record, ColumnTopic),
			StudentAnswer:   cell(record, ColumnStudentAnswer),
			ReferenceAnswer: cell(record, ColumnReferenceAnswer),
		}))
	}
	return rows, nil
}
