package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/gateway"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/series"
	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/upload"
)

var (
	ErrNoDevice         = errors.New("no device selected")
	ErrUnknownField     = errors.New("unknown field")
	ErrUnknownPreset    = errors.New("unknown preset")
	ErrUnknownChartKind = errors.New("unknown chart kind")
)

// Gateway is the read side of the backend.
type Gateway interface {
	ListDevices(ctx context.Context) gateway.Result[[]gateway.Device]
	ListPorts(ctx context.Context, deviceID string) gateway.Result[[]gateway.Port]
	ListSensorRows(ctx context.Context, deviceID string, port gateway.PortSelector) gateway.Result[gateway.Rows]
}

// Uploader forwards CSV files to the backend.
type Uploader interface {
	Upload(ctx context.Context, f *upload.File) (upload.Ack, error)
}

// Options tune a Controller. Zero values fall back to the defaults.
type Options struct {
	Catalog  Catalog
	Now      func() time.Time
	Location *time.Location
}

// Controller owns the dashboard selection and the data fetched for it.
// It is safe for concurrent use; backend calls run outside the lock and
// results of superseded fetches are dropped.
type Controller struct {
	gw      Gateway
	up      Uploader
	catalog Catalog
	now     func() time.Time
	loc     *time.Location

	mu sync.Mutex

	devices      []gateway.Device
	devicesErr   error
	devicesFetch fetchSlot

	deviceID   string
	ports      []gateway.Port
	portsErr   error
	portsFetch fetchSlot
	portID     string

	rows       gateway.Rows
	rowsErr    error
	rowsTarget gateway.PortSelector
	rowsFetch  fetchSlot

	fields      []string
	fieldChosen bool
	window      series.Window
	preset      int
	kind        series.ChartKind

	plot     series.Plot
	revision uint64

	upload    UploadState
	uploadGen uint64
}

// New builds a Controller with nothing selected.
func New(gw Gateway, up Uploader, opts Options) *Controller {
	cat := opts.Catalog
	if len(cat.Fields) == 0 && len(cat.ChartKinds) == 0 && len(cat.Presets) == 0 {
		cat = DefaultCatalog()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	c := &Controller{
		gw:      gw,
		up:      up,
		catalog: cat,
		now:     now,
		loc:     loc,
		devices: []gateway.Device{},
		ports:   []gateway.Port{},
		fields:  []string{},
		kind:    cat.defaultKind(),
		upload:  UploadState{Phase: UploadIdle},
	}
	c.resetRowsLocked(gateway.AllPorts)
	c.recomputeLocked()
	return c
}

// Catalog returns the fields, chart kinds and presets in use.
func (c *Controller) Catalog() Catalog { return c.catalog }

// LoadDevices refreshes the device list.
func (c *Controller) LoadDevices(ctx context.Context) {
	c.mu.Lock()
	gen, fetchCtx, cancel := c.devicesFetch.begin(ctx)
	c.mu.Unlock()
	defer cancel()

	res := c.gw.ListDevices(fetchCtx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.devicesFetch.settle(gen) {
		return
	}
	c.devices = res.Value
	c.devicesErr = res.Err
}

// SelectDevice switches to a device, clearing the port, and fetches its ports
// and all-ports rows in parallel. An empty id returns to no selection.
func (c *Controller) SelectDevice(ctx context.Context, id string) {
	id = strings.TrimSpace(id)

	c.mu.Lock()
	c.deviceID = id
	c.portID = ""
	c.ports = []gateway.Port{}
	c.portsErr = nil
	c.resetRowsLocked(gateway.AllPorts)
	if id == "" {
		c.portsFetch.abandon()
		c.rowsFetch.abandon()
		c.recomputeLocked()
		c.mu.Unlock()
		return
	}
	portsGen, portsCtx, cancelPorts := c.portsFetch.begin(ctx)
	rowsGen, rowsCtx, cancelRows := c.rowsFetch.begin(ctx)
	c.recomputeLocked()
	c.mu.Unlock()
	defer cancelPorts()
	defer cancelRows()

	var (
		ports gateway.Result[[]gateway.Port]
		rows  gateway.Result[gateway.Rows]
		g     errgroup.Group
	)
	g.Go(func() error {
		ports = c.gw.ListPorts(portsCtx, id)
		return nil
	})
	g.Go(func() error {
		rows = c.gw.ListSensorRows(rowsCtx, id, gateway.AllPorts)
		return nil
	})
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.portsFetch.settle(portsGen) {
		c.ports = ports.Value
		c.portsErr = ports.Err
	} else {
		log.Printf("dashboard: dropped stale port list for device %s", id)
	}
	if c.rowsFetch.settle(rowsGen) {
		c.applyRowsLocked(rows)
	} else {
		log.Printf("dashboard: dropped stale rows for device %s", id)
	}
}

// SelectPort narrows the rows to one port, or widens back to all ports when
// id is empty. All-ports rows already held are reused.
func (c *Controller) SelectPort(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)

	c.mu.Lock()
	if c.deviceID == "" {
		c.mu.Unlock()
		return ErrNoDevice
	}
	c.portID = id
	target := gateway.PortOf(id)
	if target.All() && c.rowsTarget.All() && c.rowsErr == nil {
		c.mu.Unlock()
		return nil
	}
	deviceID := c.deviceID
	c.resetRowsLocked(target)
	gen, fetchCtx, cancel := c.rowsFetch.begin(ctx)
	c.recomputeLocked()
	c.mu.Unlock()
	defer cancel()

	res := c.gw.ListSensorRows(fetchCtx, deviceID, target)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rowsFetch.settle(gen) {
		c.applyRowsLocked(res)
	} else {
		log.Printf("dashboard: dropped stale rows for device %s port %s", deviceID, target)
	}
	return nil
}

// ToggleField adds key to the selection, or removes it if already selected.
// Adding past MaxFields is a no-op. It reports whether the selection changed.
func (c *Controller) ToggleField(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.catalog.Field(key); !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	next, changed := toggle(c.fields, key, MaxFields)
	if !changed {
		return false, nil
	}
	c.fields = next
	c.fieldChosen = true
	c.recomputeLocked()
	return true, nil
}

func toggle(selected []string, key string, limit int) ([]string, bool) {
	if i := slices.Index(selected, key); i >= 0 {
		return slices.Delete(slices.Clone(selected), i, i+1), true
	}
	if len(selected) >= limit {
		return selected, false
	}
	return append(slices.Clone(selected), key), true
}

// ApplyPreset sets the window to the last hours ending now.
func (c *Controller) ApplyPreset(hours int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.catalog.hasPreset(hours) {
		return fmt.Errorf("%w: %d", ErrUnknownPreset, hours)
	}
	end := c.now().In(c.loc)
	start := end.Add(-time.Duration(hours) * time.Hour)
	c.window = series.Window{Start: &start, End: &end}
	c.preset = hours
	c.recomputeLocked()
	return nil
}

// EditWindowBound sets one bound from user input. Input that does not parse
// clears the bound. The window is clamped so End never precedes Start.
func (c *Controller) EditWindowBound(isStart bool, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var bound *time.Time
	if t, ok := parseBound(value, c.loc); ok {
		bound = &t
	}

	w := series.Window{Start: c.window.Start, End: c.window.End}
	if isStart {
		w.Start = bound
	} else {
		w.End = bound
	}
	if w.Bounded() && w.End.Before(*w.Start) {
		end := *w.Start
		w.End = &end
	}

	c.window = w
	c.preset = 0
	c.recomputeLocked()
}

// ClearWindow drops both bounds.
func (c *Controller) ClearWindow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = series.Window{}
	c.preset = 0
	c.recomputeLocked()
}

// SetChartKind picks how the plot is drawn. The plot itself is unchanged.
func (c *Controller) SetChartKind(kind series.ChartKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.catalog.hasKind(kind) {
		return fmt.Errorf("%w: %q", ErrUnknownChartKind, kind)
	}
	c.kind = kind
	return nil
}

func (c *Controller) resetRowsLocked(target gateway.PortSelector) {
	c.rows = gateway.Rows{DeviceID: c.deviceID, Port: target, Rows: []gateway.SensorRow{}}
	c.rowsErr = nil
	c.rowsTarget = target
}

func (c *Controller) applyRowsLocked(res gateway.Result[gateway.Rows]) {
	c.rows = res.Value
	if c.rows.Rows == nil {
		c.rows.Rows = []gateway.SensorRow{}
	}
	c.rowsErr = res.Err

	if res.Err == nil && len(c.rows.Rows) > 0 && !c.fieldChosen && len(c.fields) == 0 && len(c.catalog.Fields) > 0 {
		c.fields = []string{c.catalog.Fields[0].Key}
		c.fieldChosen = true
	}
	c.recomputeLocked()
}

func (c *Controller) selectedFieldsLocked() []series.Field {
	out := make([]series.Field, 0, len(c.fields))
	for _, key := range c.fields {
		if f, ok := c.catalog.Field(key); ok {
			out = append(out, f)
		}
	}
	return out
}

func (c *Controller) recomputeLocked() {
	c.plot = series.Build(c.rows.Rows, c.selectedFieldsLocked(), c.window)
	c.revision++
}

// fetchSlot tracks the latest fetch of one kind. Starting a new fetch cancels
// the previous one and makes its result stale.
type fetchSlot struct {
	gen     uint64
	cancel  context.CancelFunc
	pending bool
}

func (s *fetchSlot) begin(parent context.Context) (uint64, context.Context, context.CancelFunc) {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.pending = true
	return s.gen, ctx, cancel
}

func (s *fetchSlot) abandon() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.pending = false
}

// settle reports whether gen is still the latest fetch and marks it done.
func (s *fetchSlot) settle(gen uint64) bool {
	if gen != s.gen {
		return false
	}
	s.cancel = nil
	s.pending = false
	return true
}
