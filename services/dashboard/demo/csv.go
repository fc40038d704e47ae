package demo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// RequiredColumns must all appear in an uploaded CSV header.
var RequiredColumns = []string{
	"timestamp", "object_id", "port_num", "voltage", "current",
	"supply_current", "supply_volt", "voltage_drop", "voc",
}

// IngestError is a rejected upload. Title goes to "error", Message to "message".
type IngestError struct {
	Title   string
	Message string
}

func (e *IngestError) Error() string { return e.Title + ": " + e.Message }

// ParseCSV reads sensor records from r. The first line is the header.
func ParseCSV(r io.Reader, now time.Time) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &IngestError{Title: "Failed to read CSV header", Message: err.Error()}
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &IngestError{
			Title:   "Missing required fields in CSV",
			Message: fmt.Sprintf("The following required fields are missing: %v", missing),
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &IngestError{
				Title:   "Failed to read CSV row",
				Message: fmt.Sprintf("Error at line %d: %s", line, err.Error()),
			}
		}

		rec, err := parseRow(row, columns, line)
		if err != nil {
			return nil, err
		}
		rec.CreatedAt = now
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &IngestError{
			Title:   "No valid data found",
			Message: "The CSV file contains a header but no valid data rows",
		}
	}
	return records, nil
}

func parseRow(row []string, columns map[string]int, line int) (Record, error) {
	cell := func(name string) (string, bool) {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}
	invalid := func(name, want string) error {
		return &IngestError{
			Title:   "Invalid " + name,
			Message: fmt.Sprintf("Error at line %d: %s should be %s", line, name, want),
		}
	}

	var rec Record

	ts, _ := cell("timestamp")
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return rec, &IngestError{
			Title:   "Invalid timestamp format",
			Message: fmt.Sprintf("Error at line %d: timestamp should be in RFC3339 format", line),
		}
	}
	rec.Timestamp = t

	for _, id := range []struct {
		name string
		dst  *float64
	}{
		{"object_id", &rec.ObjectID},
		{"port_num", &rec.PortNum},
	} {
		raw, _ := cell(id.name)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, invalid(id.name, "a number")
		}
		*id.dst = v
	}

	// Required metrics may be blank, which stores zero.
	for _, m := range []struct {
		name string
		dst  *float64
	}{
		{"voltage", &rec.Voltage},
		{"current", &rec.Current},
		{"supply_current", &rec.SupplyCurrent},
		{"supply_volt", &rec.SupplyVolt},
		{"voltage_drop", &rec.VoltageDrop},
		{"voc", &rec.VOC},
	} {
		raw, _ := cell(m.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, invalid(m.name, "a number")
		}
		*m.dst = v
	}

	// Optional numeric columns are best effort.
	for _, m := range []struct {
		name string
		dst  *float64
	}{
		{"state", &rec.State},
		{"controller_error", &rec.ControllerError},
		{"ai1", &rec.AI1},
		{"ai2", &rec.AI2},
		{"ai3", &rec.AI3},
		{"ai4", &rec.AI4},
		{"ai5", &rec.AI5},
		{"q_charge", &rec.QCharge},
		{"voltage_set_point", &rec.VoltageSetPoint},
		{"command", &rec.Command},
		{"target_q", &rec.TargetQ},
		{"step_number", &rec.StepNumber},
		{"voc_mode", &rec.VOCMode},
		{"target_voc", &rec.TargetVOC},
		{"voc_state", &rec.VOCState},
		{"voc_exit", &rec.VOCExit},
	} {
		raw, ok := cell(m.name)
		if !ok || raw == "" {
			continue
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			*m.dst = v
		}
	}

	rec.FWVersion, _ = cell("fw_version")
	rec.VendorID, _ = cell("vendor_id")
	rec.LiteID, _ = cell("lite_id")
	if raw, ok := cell("read_error"); ok {
		rec.ReadError = raw == "true"
	}
	return rec, nil
}
