package demo

import (
	"slices"
	"sort"
	"sync"
	"time"
)

// Record is one stored sensor reading, serialized the way the ingestion
// backend writes it.
type Record struct {
	Timestamp       time.Time `json:"timestamp"`
	ObjectID        float64   `json:"object_id"`
	PortNum         float64   `json:"port_num"`
	CreatedAt       time.Time `json:"created_at"`
	Voltage         float64   `json:"voltage"`
	Current         float64   `json:"current"`
	SupplyCurrent   float64   `json:"supply_current"`
	SupplyVolt      float64   `json:"supply_volt"`
	VoltageDrop     float64   `json:"voltage_drop"`
	VOC             float64   `json:"voc"`
	State           float64   `json:"state"`
	ControllerError float64   `json:"controller_error"`
	AI1             float64   `json:"ai1"`
	AI2             float64   `json:"ai2"`
	AI3             float64   `json:"ai3"`
	AI4             float64   `json:"ai4"`
	AI5             float64   `json:"ai5"`
	QCharge         float64   `json:"q_charge"`
	VoltageSetPoint float64   `json:"voltage_set_point"`
	Command         float64   `json:"command"`
	TargetQ         float64   `json:"target_q"`
	StepNumber      float64   `json:"step_number"`
	VOCMode         float64   `json:"voc_mode"`
	TargetVOC       float64   `json:"target_voc"`
	VOCState        float64   `json:"voc_state"`
	VOCExit         float64   `json:"voc_exit"`
	FWVersion       string    `json:"fw_version"`
	VendorID        string    `json:"vendor_id"`
	LiteID          string    `json:"lite_id"`
	ReadError       bool      `json:"read_error"`
}

// Store keeps records in memory, ordered by timestamp.
type Store struct {
	mu      sync.RWMutex
	records []Record
}

func NewStore() *Store {
	return &Store{records: make([]Record, 0, 1024)}
}

// Add inserts records, keeping timestamp order. Equal timestamps keep insertion order.
func (s *Store) Add(records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, records...)
	sort.SliceStable(s.records, func(i, j int) bool {
		return s.records[i].Timestamp.Before(s.records[j].Timestamp)
	})
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ObjectIDs returns the distinct object ids, ascending.
func (s *Store) ObjectIDs() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[float64]struct{})
	out := make([]float64, 0)
	for _, r := range s.records {
		if _, ok := seen[r.ObjectID]; ok {
			continue
		}
		seen[r.ObjectID] = struct{}{}
		out = append(out, r.ObjectID)
	}
	slices.Sort(out)
	return out
}

// Ports returns the distinct ports of one object, ascending.
func (s *Store) Ports(objectID float64) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[float64]struct{})
	out := make([]float64, 0)
	for _, r := range s.records {
		if r.ObjectID != objectID {
			continue
		}
		if _, ok := seen[r.PortNum]; ok {
			continue
		}
		seen[r.PortNum] = struct{}{}
		out = append(out, r.PortNum)
	}
	slices.Sort(out)
	return out
}

// Records returns a copy of one object's records, optionally for a single port.
func (s *Store) Records(objectID float64, port *float64) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	for _, r := range s.records {
		if r.ObjectID != objectID {
			continue
		}
		if port != nil && r.PortNum != *port {
			continue
		}
		out = append(out, r)
	}
	return out
}
