package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
)

// expectedHeader is the long-format column order the measurement export
// writes: one row per individual trial reading.
var expectedHeader = []string{"Arch", "Angle", "Trial", "Method", "Deflection"}

// LoadOptions constrain what counts as a valid row.
type LoadOptions struct {
	// Methods is the set of accepted method labels.
	Methods []string
	// AngleStepDeg rejects angles off the expected grid when positive.
	AngleStepDeg float64
}

// LoadCSV reads and validates the long-format CSV file at path.
func LoadCSV(path string, opts LoadOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.WrapError(err, "open dataset")
	}
	defer f.Close()

	d, err := ReadCSV(f, opts)
	if err != nil {
		return nil, apperrors.WrapError(err, "load %q", path)
	}
	return d, nil
}

// ReadCSV parses validated trials from r. The first record must be the
// header Arch,Angle,Trial,Method,Deflection; every following record is a
// fixed-shape row. Any malformed row yields a DataFormatError carrying its
// line number; nothing is silently skipped or coerced.
func ReadCSV(r io.Reader, opts LoadOptions) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(expectedHeader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, apperrors.DataFormatError{Line: 1, Message: "empty input"}
	}
	if err != nil {
		return nil, apperrors.DataFormatError{Line: 1, Message: err.Error()}
	}
	for i, want := range expectedHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return nil, apperrors.DataFormatError{
				Line:    1,
				Message: fmt.Sprintf("header column %d is %q, want %q", i+1, header[i], want),
			}
		}
	}

	methods := make(map[string]struct{}, len(opts.Methods))
	for _, m := range opts.Methods {
		methods[m] = struct{}{}
	}

	var trials []Trial
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, apperrors.DataFormatError{Line: line, Message: err.Error()}
		}
		tr, err := parseRow(record, line, methods, opts.AngleStepDeg)
		if err != nil {
			return nil, err
		}
		trials = append(trials, tr)
	}
	if len(trials) == 0 {
		return nil, apperrors.DataFormatError{Line: line, Message: "no trial rows"}
	}
	return New(trials), nil
}

func parseRow(record []string, line int, methods map[string]struct{}, step float64) (Trial, error) {
	fail := func(format string, a ...any) (Trial, error) {
		return Trial{}, apperrors.DataFormatError{Line: line, Message: fmt.Sprintf(format, a...)}
	}

	arch, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil || arch < 1 {
		return fail("arch id %q is not a positive integer", record[0])
	}
	angle, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil || angle < 0 || angle >= 360 {
		return fail("angle %q is not a degree value in [0, 360)", record[1])
	}
	if step > 0 && !onGrid(angle, step) {
		return fail("angle %g° is off the %g° grid", angle, step)
	}
	trialIdx, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil || trialIdx < 1 {
		return fail("trial index %q is not a positive integer", record[2])
	}
	method := strings.TrimSpace(record[3])
	if len(methods) > 0 {
		if _, ok := methods[method]; !ok {
			return fail("unknown method %q", method)
		}
	}
	deflection, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
	if err != nil || math.IsNaN(deflection) || math.IsInf(deflection, 0) {
		return fail("deflection %q is not a finite number", record[4])
	}

	return Trial{
		ArchID:     arch,
		Method:     method,
		AngleDeg:   angle,
		TrialIndex: trialIdx,
		Deflection: deflection,
	}, nil
}
