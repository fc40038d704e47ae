package gateway

import (
	"encoding/json"
	"strings"
	"time"
)

// Device is a monitored object known to the backend.
type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func newDevice(id string) Device {
	return Device{ID: id, Label: "Device " + id}
}

// Port is a port number scoped to a device.
type Port struct {
	ID string `json:"id"`
}

// PortSelector picks either one port of a device or all of them.
type PortSelector struct {
	port string
}

// AllPorts selects every port of a device.
var AllPorts = PortSelector{}

// PortOf selects a single port. An empty id is the same as AllPorts.
func PortOf(id string) PortSelector {
	return PortSelector{port: strings.TrimSpace(id)}
}

// All reports whether the selector covers every port.
func (p PortSelector) All() bool { return p.port == "" }

// ID returns the selected port id, empty for AllPorts.
func (p PortSelector) ID() string { return p.port }

func (p PortSelector) String() string {
	if p.All() {
		return "all"
	}
	return p.port
}

func (p PortSelector) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// SensorRow is one telemetry record. Metrics the backend did not report are nil.
type SensorRow struct {
	Timestamp time.Time `json:"timestamp"`
	ObjectID  *float64  `json:"object_id,omitempty"`
	PortNum   *float64  `json:"port_num,omitempty"`

	Current       *float64 `json:"current,omitempty"`
	Voltage       *float64 `json:"voltage,omitempty"`
	SupplyCurrent *float64 `json:"supply_current,omitempty"`
	SupplyVolt    *float64 `json:"supply_volt,omitempty"`
	VoltageDrop   *float64 `json:"voltage_drop,omitempty"`
	VOC           *float64 `json:"voc,omitempty"`

	State           *float64 `json:"state,omitempty"`
	ControllerError *float64 `json:"controller_error,omitempty"`
	AI1             *float64 `json:"ai1,omitempty"`
	AI2             *float64 `json:"ai2,omitempty"`
	AI3             *float64 `json:"ai3,omitempty"`
	AI4             *float64 `json:"ai4,omitempty"`
	AI5             *float64 `json:"ai5,omitempty"`
	QCharge         *float64 `json:"q_charge,omitempty"`
	VoltageSetPoint *float64 `json:"voltage_set_point,omitempty"`
	Command         *float64 `json:"command,omitempty"`
	TargetQ         *float64 `json:"target_q,omitempty"`
	StepNumber      *float64 `json:"step_number,omitempty"`
	VOCMode         *float64 `json:"voc_mode,omitempty"`
	TargetVOC       *float64 `json:"target_voc,omitempty"`
	VOCState        *float64 `json:"voc_state,omitempty"`
	VOCExit         *float64 `json:"voc_exit,omitempty"`
}

// UnmarshalJSON decodes a row and parses its timestamp. A timestamp that does
// not parse leaves Timestamp zero so the caller can drop the row.
func (r *SensorRow) UnmarshalJSON(b []byte) error {
	type plain SensorRow
	var aux struct {
		plain
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = SensorRow(aux.plain)
	r.Timestamp = time.Time{}
	if ts, err := ParseTimestamp(aux.Timestamp); err == nil {
		r.Timestamp = ts
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Metric returns the value of the metric with the given wire name.
func (r SensorRow) Metric(key string) (float64, bool) {
	var v *float64
	switch key {
	case "current":
		v = r.Current
	case "voltage":
		v = r.Voltage
	case "supply_current":
		v = r.SupplyCurrent
	case "supply_volt":
		v = r.SupplyVolt
	case "voltage_drop":
		v = r.VoltageDrop
	case "voc":
		v = r.VOC
	case "state":
		v = r.State
	case "controller_error":
		v = r.ControllerError
	case "ai1":
		v = r.AI1
	case "ai2":
		v = r.AI2
	case "ai3":
		v = r.AI3
	case "ai4":
		v = r.AI4
	case "ai5":
		v = r.AI5
	case "q_charge":
		v = r.QCharge
	case "voltage_set_point":
		v = r.VoltageSetPoint
	case "command":
		v = r.Command
	case "target_q":
		v = r.TargetQ
	case "step_number":
		v = r.StepNumber
	case "voc_mode":
		v = r.VOCMode
	case "target_voc":
		v = r.TargetVOC
	case "voc_state":
		v = r.VOCState
	case "voc_exit":
		v = r.VOCExit
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Rows is the sensor data held for one device/port selection.
type Rows struct {
	DeviceID string       `json:"device_id"`
	Port     PortSelector `json:"port"`
	Rows     []SensorRow  `json:"rows"`
	Total    int64        `json:"total"`
}

// Result carries a well-typed value plus the error that produced it, if any.
// On failure Value is an empty container, never nil.
type Result[T any] struct {
	Value T
	Err   error
}

// Failed reports whether the fetch fell back to an empty value.
func (r Result[T]) Failed() bool { return r.Err != nil }
