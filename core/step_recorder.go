package core

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/muonworks/tomography-simulator/model"
)

// Field identifies one column of the deposit log.
type Field int

const (
	FieldTrackID Field = iota
	FieldPosX
	FieldPosY
	FieldPosZ
	FieldEnergy
)

// EnergyUnit selects the unit the deposit column is written in.
type EnergyUnit int

const (
	UnitGeV EnergyUnit = iota
	UnitKeV
)

const gevToKev = 1e6

// FlushPolicy decides when buffered rows reach the disk. Flushing every
// row bounds data loss on abrupt termination to at most the row being
// written; FlushOnClose trades that for throughput on large batches.
type FlushPolicy int

const (
	FlushEveryRow FlushPolicy = iota
	FlushOnClose
)

// RecorderConfig configures the step recorder. An empty field set
// defaults to all five columns in canonical order.
type RecorderConfig struct {
	Path       string
	Fields     []Field
	EnergyUnit EnergyUnit
	Flush      FlushPolicy
}

// DefaultFields is the canonical full column set.
var DefaultFields = []Field{FieldTrackID, FieldPosX, FieldPosY, FieldPosZ, FieldEnergy}

// StepRecorder appends one tab-separated row per step with a strictly
// positive energy deposit, using the step's pre-step position in the
// world frame. It exclusively owns the log file handle: it is opened
// exactly once at construction and closed exactly once at run end.
type StepRecorder struct {
	f       *os.File
	w       *bufio.Writer
	fields  []Field
	unit    EnergyUnit
	flush   FlushPolicy
	metrics RecorderMetrics
	closed  bool
	err     error
}

// RecorderMetrics is the slice of run metrics the recorder drives.
// Implemented by observability.RunCollector; nil disables metrics.
type RecorderMetrics interface {
	StepObserved()
	RowRecorded(depositGeV float64)
}

// RecorderOption customises a StepRecorder.
type RecorderOption func(*StepRecorder)

// WithRecorderMetrics attaches a metrics sink to the recorder.
func WithRecorderMetrics(m RecorderMetrics) RecorderOption {
	return func(r *StepRecorder) { r.metrics = m }
}

// NewStepRecorder opens the output log and writes the header row.
// Failure to open the target is a ResourceError; callers are expected
// to treat it as fatal since a run without a writable sink has no
// value.
func NewStepRecorder(cfg RecorderConfig, opts ...RecorderOption) (*StepRecorder, error) {
	fields := cfg.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}
	for _, fld := range fields {
		if fld < FieldTrackID || fld > FieldEnergy {
			return nil, fmt.Errorf("unknown recorder field %d: %w", fld, ErrConfiguration)
		}
	}

	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open deposit log %q: %v: %w", cfg.Path, err, ErrResource)
	}

	r := &StepRecorder{
		f:      f,
		w:      bufio.NewWriter(f),
		fields: fields,
		unit:   cfg.EnergyUnit,
		flush:  cfg.Flush,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.writeHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write deposit log header: %v: %w", err, ErrResource)
	}
	return r, nil
}

// Header returns the tab-separated header row for a field set and
// energy unit, without the trailing newline.
func Header(fields []Field, unit EnergyUnit) string {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	names := make([]string, len(fields))
	for i, fld := range fields {
		names[i] = fieldName(fld, unit)
	}
	return strings.Join(names, "\t")
}

func fieldName(fld Field, unit EnergyUnit) string {
	switch fld {
	case FieldTrackID:
		return "TrackID"
	case FieldPosX:
		return "PosX(m)"
	case FieldPosY:
		return "PosY(m)"
	case FieldPosZ:
		return "PosZ(m)"
	case FieldEnergy:
		if unit == UnitKeV {
			return "Energy(keV)"
		}
		return "Energy(GeV)"
	default:
		return "?"
	}
}

func (r *StepRecorder) writeHeader() error {
	if _, err := r.w.WriteString(Header(r.fields, r.unit) + "\n"); err != nil {
		return err
	}
	return r.w.Flush()
}

// OnStep implements StepObserver. Steps with a deposit of exactly zero
// (or below) are excluded; qualifying steps append one row in delivery
// order. Write errors are retained and surfaced by Close.
func (r *StepRecorder) OnStep(ev model.StepEvent) {
	if r.metrics != nil {
		r.metrics.StepObserved()
	}
	if r.closed || ev.DepositedEnergyGeV <= 0 {
		return
	}

	cols := make([]string, len(r.fields))
	for i, fld := range r.fields {
		switch fld {
		case FieldTrackID:
			cols[i] = strconv.Itoa(ev.TrackID)
		case FieldPosX:
			cols[i] = formatFloat(ev.PreStepPosition.X)
		case FieldPosY:
			cols[i] = formatFloat(ev.PreStepPosition.Y)
		case FieldPosZ:
			cols[i] = formatFloat(ev.PreStepPosition.Z)
		case FieldEnergy:
			e := ev.DepositedEnergyGeV
			if r.unit == UnitKeV {
				e *= gevToKev
			}
			cols[i] = formatFloat(e)
		}
	}

	if _, err := r.w.WriteString(strings.Join(cols, "\t") + "\n"); err != nil {
		r.setErr(err)
		return
	}
	if r.flush == FlushEveryRow {
		if err := r.w.Flush(); err != nil {
			r.setErr(err)
			return
		}
	}
	if r.metrics != nil {
		r.metrics.RowRecorded(ev.DepositedEnergyGeV)
	}
}

func (r *StepRecorder) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Close flushes and closes the log. Closing an already-closed recorder
// is a no-op. The first write error of the run, if any, is returned.
func (r *StepRecorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.w.Flush(); err != nil {
		r.setErr(err)
	}
	if err := r.f.Close(); err != nil {
		r.setErr(err)
	}
	return r.err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
