// Package export renders finalized cases for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/stroke-code-server/internal/domain"
)

// Header is the fixed CSV header. Column order and text are an external contract.
var Header = []string{
	"ID_Caso",
	"Fecha_Hora",
	"Edad",
	"Peso",
	"NIHSS_Total",
	"ASPECTS_Total",
	"Elegible_Trombectomia",
}

const (
	flagYes = "SI"
	flagNo  = "NO"
)

// Row is a parsed CSV data row
type Row struct {
	ID                   string
	Timestamp            time.Time
	Age                  *int
	Weight               *float64
	NihssTotal           int
	AspectsTotal         int
	ThrombectomyEligible bool
}

// Filename returns the suggested download name for a case export
func Filename(caseID string) string {
	return fmt.Sprintf("stroke_case_%s.csv", caseID)
}

// Record renders a case as one CSV row in header order
func Record(c domain.Case) []string {
	age := ""
	if c.Patient.Age != nil {
		age = strconv.Itoa(*c.Patient.Age)
	}
	weight := ""
	if c.Patient.Weight != nil {
		weight = strconv.FormatFloat(*c.Patient.Weight, 'f', -1, 64)
	}
	eligible := flagNo
	if c.Thrombectomy.Eligible {
		eligible = flagYes
	}

	return []string{
		c.ID,
		c.Timestamp.UTC().Format(time.RFC3339),
		age,
		weight,
		strconv.Itoa(c.NihssTotal),
		strconv.Itoa(c.AspectsScore),
		eligible,
	}
}

// WriteCSV writes the header and one row per case
func WriteCSV(w io.Writer, cases ...domain.Case) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range cases {
		if err := cw.Write(Record(c)); err != nil {
			return fmt.Errorf("failed to write CSV row for case %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseCSV reads an export produced by WriteCSV
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV export")
	}
	if strings.Join(records[0], ",") != strings.Join(Header, ",") {
		return nil, fmt.Errorf("unexpected CSV header: %v", records[0])
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(record []string) (Row, error) {
	row := Row{ID: record[0]}

	ts, err := time.Parse(time.RFC3339, record[1])
	if err != nil {
		return Row{}, fmt.Errorf("invalid Fecha_Hora: %w", err)
	}
	row.Timestamp = ts

	if record[2] != "" {
		age, err := strconv.Atoi(record[2])
		if err != nil {
			return Row{}, fmt.Errorf("invalid Edad: %w", err)
		}
		row.Age = &age
	}
	if record[3] != "" {
		weight, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return Row{}, fmt.Errorf("invalid Peso: %w", err)
		}
		row.Weight = &weight
	}

	if row.NihssTotal, err = strconv.Atoi(record[4]); err != nil {
		return Row{}, fmt.Errorf("invalid NIHSS_Total: %w", err)
	}
	if row.AspectsTotal, err = strconv.Atoi(record[5]); err != nil {
		return Row{}, fmt.Errorf("invalid ASPECTS_Total: %w", err)
	}

	switch record[6] {
	case flagYes:
		row.ThrombectomyEligible = true
	case flagNo:
	default:
		return Row{}, fmt.Errorf("invalid Elegible_Trombectomia %q", record[6])
	}
	return row, nil
}

// WriteJSON writes the cases as an indented JSON array
func WriteJSON(w io.Writer, cases []domain.Case) error {
	if cases == nil {
		cases = []domain.Case{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cases)
}
