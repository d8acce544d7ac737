package schedule

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/margdarshak/tracker/pkg/util"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

const feedFieldCount = 7

// feedRecord is one row of the schedule feed. Columns are positional.
type feedRecord struct {
	TripID        string `csv:"trip_id"`
	VehicleNumber string `csv:"vehicle_number"`
	StartTime     string `csv:"start_time"`
	EndTime       string `csv:"end_time"`
	Origin        string `csv:"origin"`
	Destination   string `csv:"destination"`
	Route         string `csv:"route"`
}

// RecordProblem describes a feed record that was skipped
type RecordProblem struct {
	Line   int
	Reason string
}

func (p RecordProblem) String() string {
	return fmt.Sprintf("line %d: %s", p.Line, p.Reason)
}

type LoadReport struct {
	Loaded  int
	Skipped []RecordProblem
}

const maxFeedLine = 1024 * 1024

// recordFilter drops the header and any record without exactly seven fields before
// gocsv sees the rows. Lines are parsed one at a time; quoted fields cannot span lines.
type recordFilter struct {
	scanner *bufio.Scanner
	line    int

	headerSkipped bool

	lines    []int
	problems []RecordProblem
}

func newRecordFilter(source io.Reader) *recordFilter {
	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFeedLine)

	return &recordFilter{scanner: scanner}
}

func (f *recordFilter) skip(line int, reason string) {
	log.Warn().Int("line", line).Str("reason", reason).Msg("Skipping schedule record")
	f.problems = append(f.problems, RecordProblem{Line: line, Reason: reason})
}

func parseLine(text string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	record, err := reader.Read()
	if errors.Is(err, io.EOF) {
		// quoted field left open at the end of the line
		return nil, csv.ErrQuote
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, parseErr.Err
		}
		return nil, err
	}

	return record, nil
}

func (f *recordFilter) Read() ([]string, error) {
	for f.scanner.Scan() {
		f.line++
		text := f.scanner.Text()

		// The first line is the header even when it does not parse
		if !f.headerSkipped {
			f.headerSkipped = true
			continue
		}

		if strings.TrimSpace(text) == "" {
			continue
		}

		record, err := parseLine(text)
		if err != nil {
			f.skip(f.line, err.Error())
			continue
		}

		if len(record) != feedFieldCount {
			f.skip(f.line, fmt.Sprintf("expected %d fields, got %d", feedFieldCount, len(record)))
			continue
		}

		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		f.lines = append(f.lines, f.line)

		return record, nil
	}

	if err := f.scanner.Err(); err != nil {
		return nil, err
	}

	return nil, io.EOF
}

func (f *recordFilter) ReadAll() ([][]string, error) {
	var records [][]string

	for {
		record, err := f.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}
}

// Load parses a schedule feed and replaces the index contents with it. Bad records are
// skipped and reported; the error is only set when the source itself cannot be read.
func (i *Index) Load(source io.Reader) (LoadReport, error) {
	filter := newRecordFilter(source)

	var records []*feedRecord
	if err := gocsv.UnmarshalCSVWithoutHeaders(filter, &records); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return LoadReport{}, err
	}

	report := LoadReport{}
	trips := make([]TripSchedule, 0, len(records))
	seen := map[string]bool{}

	for n, record := range records {
		line := filter.lines[n]

		trip, err := record.toTrip(i.location)
		if err != nil {
			filter.skip(line, err.Error())
			continue
		}

		if seen[trip.TripID] {
			filter.skip(line, fmt.Sprintf("duplicate trip id %s", trip.TripID))
			continue
		}
		seen[trip.TripID] = true

		trips = append(trips, trip)
	}

	i.replace(trips)

	report.Loaded = len(trips)
	report.Skipped = filter.problems
	slices.SortStableFunc(report.Skipped, func(a, b RecordProblem) int {
		return a.Line - b.Line
	})

	log.Info().Int("loaded", report.Loaded).Int("skipped", len(report.Skipped)).Int("vehicles", len(i.Vehicles())).Msg("Loaded schedule feed")

	return report, nil
}

func (i *Index) LoadFile(path string) (LoadReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return LoadReport{}, err
	}
	defer file.Close()

	return i.Load(file)
}

func (r *feedRecord) toTrip(location *time.Location) (TripSchedule, error) {
	if r.TripID == "" {
		return TripSchedule{}, errors.New("trip id is empty")
	}
	if r.VehicleNumber == "" {
		return TripSchedule{}, errors.New("vehicle number is empty")
	}

	start, err := util.ParseLocalDateTime(r.StartTime, location)
	if err != nil {
		return TripSchedule{}, fmt.Errorf("invalid start time %q", r.StartTime)
	}

	end, err := util.ParseLocalDateTime(r.EndTime, location)
	if err != nil {
		return TripSchedule{}, fmt.Errorf("invalid end time %q", r.EndTime)
	}

	return TripSchedule{
		TripID:        r.TripID,
		VehicleNumber: r.VehicleNumber,
		StartTime:     start,
		EndTime:       end,
		Origin:        r.Origin,
		Destination:   r.Destination,
		Route:         r.Route,
	}, nil
}
