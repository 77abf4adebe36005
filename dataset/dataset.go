// Package dataset loads labeled text samples from delimited files.
//
// Files have two positional columns: the free text and a boolean label.
// Header names, when present, are ignored.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/YuminosukeSato/sentiml/pkg/errors"
	"github.com/YuminosukeSato/sentiml/pkg/log"
)

// Sample is one labeled record. It is never mutated after Load returns.
type Sample struct {
	Text  string
	Label bool
}

// record is the row shape gocsv decodes into.
type record struct {
	Text  string `csv:"text"`
	Label label  `csv:"label"`
}

// label accepts true/false and 1/0, case-insensitively.
type label bool

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (l *label) UnmarshalCSV(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		*l = true
	case "false", "0":
		*l = false
	default:
		return errors.Newf("invalid boolean label %q", s)
	}
	return nil
}

var canonicalHeader = []string{"text", "label"}

type options struct {
	header    bool
	delimiter rune
}

// Option configures Load.
type Option func(*options)

// WithHeader tells Load whether the first line is a header row. Default true.
func WithHeader(on bool) Option {
	return func(o *options) { o.header = on }
}

// WithDelimiter sets the field delimiter. Default is a tab.
func WithDelimiter(r rune) Option {
	return func(o *options) { o.delimiter = r }
}

// Load reads every data row of path into samples.
//
// A missing or unreadable file yields an IOError. A row with the wrong number
// of fields, a label that is not a boolean, or a file without data rows
// yields a SchemaError.
func Load(path string, opts ...Option) ([]Sample, error) {
	o := options{header: true, delimiter: '\t'}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("open", path, err)
	}
	defer f.Close()

	return read(path, f, o)
}

func read(path string, r io.Reader, o options) ([]Sample, error) {
	rows, err := readRows(path, r, o)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewSchemaError(path, 0, "file contains no data rows", nil)
	}

	var records []record
	in := &rowsReader{rows: append([][]string{canonicalHeader}, rows...)}
	if err := gocsv.UnmarshalCSV(in, &records); err != nil {
		row := 0
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			// gocsv reports the line counting the header row.
			row = perr.Line - 1
		}
		return nil, errors.NewSchemaError(path, row, "cannot convert row to [text:string, label:bool]", err)
	}

	samples := make([]Sample, len(records))
	for i, rec := range records {
		samples[i] = Sample{Text: rec.Text, Label: bool(rec.Label)}
	}
	return samples, nil
}

// readRows splits the input into data rows of exactly two fields.
func readRows(path string, r io.Reader, o options) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = o.delimiter
	cr.FieldsPerRecord = len(canonicalHeader)
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	var rows [][]string
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line := perr.Line
				if o.header {
					line--
				}
				return nil, errors.NewSchemaError(path, line, "malformed row", err)
			}
			return nil, errors.NewIOError("read", path, err)
		}
		if first && o.header {
			first = false
			continue
		}
		first = false
		rows = append(rows, rec)
	}
	return rows, nil
}

// rowsReader feeds already split rows to gocsv.
type rowsReader struct {
	rows [][]string
	pos  int
}

func (r *rowsReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *rowsReader) ReadAll() ([][]string, error) {
	rest := r.rows[r.pos:]
	r.pos = len(r.rows)
	return rest, nil
}

// Head returns at most the first n samples.
func Head(samples []Sample, n int) []Sample {
	if n < 0 {
		n = 0
	}
	if n > len(samples) {
		n = len(samples)
	}
	return samples[:n]
}

// Texts returns the text column.
func Texts(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Text
	}
	return out
}

// Labels returns the label column encoded as 0/1.
func Labels(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		if s.Label {
			out[i] = 1
		}
	}
	return out
}

// Summary logs the size and class balance of a loaded file.
func Summary(logger log.Logger, path string, samples []Sample) {
	positives := 0
	for _, s := range samples {
		if s.Label {
			positives++
		}
	}
	logger.Info("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.SamplesKey, len(samples),
		"data.positives", positives,
	)
}
