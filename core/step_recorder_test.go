package core

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/muonworks/tomography-simulator/model"
)

func newTestRecorder(t *testing.T, cfg RecorderConfig) (*StepRecorder, string) {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "deposits.tsv")
	}
	r, err := NewStepRecorder(cfg)
	if err != nil {
		t.Fatalf("NewStepRecorder: %v", err)
	}
	return r, cfg.Path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestStepRecorder_FiltersZeroDeposits(t *testing.T) {
	r, path := newTestRecorder(t, RecorderConfig{})

	steps := []model.StepEvent{
		{TrackID: 1, PreStepPosition: model.Point{Z: 2}, DepositedEnergyGeV: 0},
		{TrackID: 1, PreStepPosition: model.Point{Z: 1}, DepositedEnergyGeV: 0.023},
		{TrackID: 1, PreStepPosition: model.Point{Z: 0.95}, DepositedEnergyGeV: 0},
		{TrackID: 2, PreStepPosition: model.Point{X: 0.5, Z: 0.9}, DepositedEnergyGeV: 0.017},
	}
	for _, ev := range steps {
		r.OnStep(ev)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 3 { // header + two qualifying rows
		t.Fatalf("log has %d lines, want 3: %q", len(lines), lines)
	}
	if lines[0] != "TrackID\tPosX(m)\tPosY(m)\tPosZ(m)\tEnergy(GeV)" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "1\t0\t0\t1\t0.023" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[2] != "2\t0.5\t0\t0.9\t0.017" {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestStepRecorder_HeaderRowConsistencyAcrossVariants(t *testing.T) {
	variants := []struct {
		name   string
		fields []Field
		unit   EnergyUnit
	}{
		{"full GeV", nil, UnitGeV},
		{"full keV", DefaultFields, UnitKeV},
		{"position only", []Field{FieldPosX, FieldPosY, FieldPosZ}, UnitGeV},
		{"energy first", []Field{FieldEnergy, FieldTrackID}, UnitKeV},
		{"z and energy", []Field{FieldPosZ, FieldEnergy}, UnitGeV},
	}

	for _, tc := range variants {
		t.Run(tc.name, func(t *testing.T) {
			r, path := newTestRecorder(t, RecorderConfig{Fields: tc.fields, EnergyUnit: tc.unit})
			for i := 1; i <= 5; i++ {
				r.OnStep(model.StepEvent{
					TrackID:            i,
					PreStepPosition:    model.Point{X: float64(i), Y: -0.5, Z: 0.25},
					DepositedEnergyGeV: 0.001 * float64(i),
				})
			}
			if err := r.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			lines := readLines(t, path)
			if len(lines) != 6 {
				t.Fatalf("log has %d lines, want 6", len(lines))
			}
			headerCols := strings.Split(lines[0], "\t")
			wantCols := len(tc.fields)
			if wantCols == 0 {
				wantCols = len(DefaultFields)
			}
			if len(headerCols) != wantCols {
				t.Fatalf("header has %d columns, want %d: %q", len(headerCols), wantCols, lines[0])
			}
			for i, line := range lines[1:] {
				if got := len(strings.Split(line, "\t")); got != len(headerCols) {
					t.Errorf("row %d has %d columns, header has %d", i+1, got, len(headerCols))
				}
			}
		})
	}
}

func TestStepRecorder_KeVConversion(t *testing.T) {
	r, path := newTestRecorder(t, RecorderConfig{
		Fields:     []Field{FieldEnergy},
		EnergyUnit: UnitKeV,
	})
	r.OnStep(model.StepEvent{TrackID: 1, DepositedEnergyGeV: 0.25})
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, path)
	if lines[0] != "Energy(keV)" {
		t.Errorf("header = %q, want Energy(keV)", lines[0])
	}
	got, err := strconv.ParseFloat(lines[1], 64)
	if err != nil {
		t.Fatalf("parse row %q: %v", lines[1], err)
	}
	if got != 250000 {
		t.Errorf("energy = %v keV, want 250000", got)
	}
}

func TestStepRecorder_PreservesDeliveryOrder(t *testing.T) {
	r, path := newTestRecorder(t, RecorderConfig{Fields: []Field{FieldTrackID}})
	order := []int{3, 1, 2, 1, 3}
	for _, id := range order {
		r.OnStep(model.StepEvent{TrackID: id, DepositedEnergyGeV: 0.01})
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, path)
	for i, id := range order {
		if lines[i+1] != strconv.Itoa(id) {
			t.Errorf("row %d = %q, want %d", i+1, lines[i+1], id)
		}
	}
}

func TestStepRecorder_FlushEveryRowIsDurableBeforeClose(t *testing.T) {
	r, path := newTestRecorder(t, RecorderConfig{Flush: FlushEveryRow})
	r.OnStep(model.StepEvent{TrackID: 1, DepositedEnergyGeV: 0.5})

	// Not closed yet: the row must already be on disk.
	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Errorf("before close: log has %d lines, want 2", len(lines))
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestStepRecorder_CloseIsIdempotent(t *testing.T) {
	r, _ := newTestRecorder(t, RecorderConfig{})
	r.OnStep(model.StepEvent{TrackID: 1, DepositedEnergyGeV: 0.1})
	if err := r.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v, want nil no-op", err)
	}
	// Steps after close are dropped, not a panic.
	r.OnStep(model.StepEvent{TrackID: 2, DepositedEnergyGeV: 0.1})
}

func TestStepRecorder_OpenFailureIsResourceError(t *testing.T) {
	_, err := NewStepRecorder(RecorderConfig{
		Path: filepath.Join(t.TempDir(), "missing", "deposits.tsv"),
	})
	if !errors.Is(err, ErrResource) {
		t.Fatalf("err = %v, want ErrResource", err)
	}
}

func TestStepRecorder_RejectsUnknownField(t *testing.T) {
	_, err := NewStepRecorder(RecorderConfig{
		Path:   filepath.Join(t.TempDir(), "deposits.tsv"),
		Fields: []Field{Field(42)},
	})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}
