package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/muonworks/tomography-simulator/model"
)

// RunScenario is a fully decoded run description: geometry, source,
// recorder and run parameters.
type RunScenario struct {
	Detector    DetectorConfig
	Source      SourceConfig
	Recorder    RecorderConfig
	Events      int
	PhysicsList string
	Interactive bool
}

// internal JSON shapes - kept unexported so the wire format can evolve
// independently of the config structs.
type runScenarioJSON struct {
	World    *worldJSON    `json:"world"`
	Detector *detectorJSON `json:"detector"`
	Defect   *defectJSON   `json:"defect"`
	Source   *sourceJSON   `json:"source"`
	Recorder *recorderJSON `json:"recorder"`
	Run      *runJSON      `json:"run"`
}

type worldJSON struct {
	HalfSizeM float64 `json:"half_size_m"`
	Material  string  `json:"material"`
}

type detectorJSON struct {
	HalfExtentsM pointJSON `json:"half_extents_m"`
	Material     string    `json:"material"`
}

type defectJSON struct {
	Kind     string    `json:"kind"` // "none" | "centered-cylinder" | "off-axis-cylinder"
	RadiusM  float64   `json:"radius_m"`
	HeightM  float64   `json:"height_m"`
	OffsetM  pointJSON `json:"offset_m"`
	Material string    `json:"material"`
}

type sourceJSON struct {
	Policy     string    `json:"policy"` // "fixed-point" | "uniform-area"
	PositionM  pointJSON `json:"position_m"`
	HalfWidthM float64   `json:"half_width_m"`
	HalfDepthM float64   `json:"half_depth_m"`
	Direction  pointJSON `json:"direction"`
	Particle   string    `json:"particle"`
	EnergyGeV  float64   `json:"energy_gev"`
}

type recorderJSON struct {
	Path       string   `json:"path"`
	Fields     []string `json:"fields"`      // track_id, pos_x, pos_y, pos_z, energy
	EnergyUnit string   `json:"energy_unit"` // "GeV" | "keV"
	Flush      string   `json:"flush"`       // "every-row" | "on-close"
}

type runJSON struct {
	Events      int    `json:"events"`
	PhysicsList string `json:"physics_list"`
	Interactive bool   `json:"interactive"`
}

type pointJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p pointJSON) point() model.Point {
	return model.Point{X: p.X, Y: p.Y, Z: p.Z}
}

// LoadRunScenario decodes a JSON run scenario from r, applying defaults
// for omitted sections. Structural problems and unknown enum values
// fail with errors wrapping ErrConfiguration; geometric validity is
// checked later by the detector builder, not here.
func LoadRunScenario(r io.Reader) (*RunScenario, error) {
	var payload runScenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode run scenario: %v: %w", err, ErrConfiguration)
	}

	scenario := &RunScenario{
		Detector: DetectorConfig{
			WorldHalfSizeM:    5,
			WorldMaterial:     "air",
			BlockHalfExtentsM: model.Point{X: 1, Y: 1, Z: 1},
			BlockMaterial:     "concrete",
		},
		Source:      SourceConfig{},
		Recorder:    RecorderConfig{Path: "deposits.tsv"},
		Events:      10000,
		PhysicsList: "FTFP_BERT",
	}

	if w := payload.World; w != nil {
		if w.HalfSizeM != 0 {
			scenario.Detector.WorldHalfSizeM = w.HalfSizeM
		}
		if w.Material != "" {
			scenario.Detector.WorldMaterial = w.Material
		}
	}
	if d := payload.Detector; d != nil {
		if p := d.HalfExtentsM.point(); p != (model.Point{}) {
			scenario.Detector.BlockHalfExtentsM = p
		}
		if d.Material != "" {
			scenario.Detector.BlockMaterial = d.Material
		}
	}
	if d := payload.Defect; d != nil {
		kind, err := parseDefectKind(d.Kind)
		if err != nil {
			return nil, err
		}
		scenario.Detector.Defect = DefectConfig{
			Kind:    kind,
			RadiusM: d.RadiusM,
			HeightM: d.HeightM,
			OffsetM: d.OffsetM.point(),
		}
		scenario.Detector.DefectMaterial = d.Material
	}
	if s := payload.Source; s != nil {
		policy, err := parseSourcePolicy(s.Policy)
		if err != nil {
			return nil, err
		}
		scenario.Source = SourceConfig{
			Policy:     policy,
			PositionM:  s.PositionM.point(),
			HalfWidthM: s.HalfWidthM,
			HalfDepthM: s.HalfDepthM,
			Direction:  s.Direction.point(),
			Species:    s.Particle,
			EnergyGeV:  s.EnergyGeV,
		}
	}
	if rec := payload.Recorder; rec != nil {
		if rec.Path != "" {
			scenario.Recorder.Path = rec.Path
		}
		fields, err := parseFields(rec.Fields)
		if err != nil {
			return nil, err
		}
		scenario.Recorder.Fields = fields
		unit, err := parseEnergyUnit(rec.EnergyUnit)
		if err != nil {
			return nil, err
		}
		scenario.Recorder.EnergyUnit = unit
		flush, err := parseFlushPolicy(rec.Flush)
		if err != nil {
			return nil, err
		}
		scenario.Recorder.Flush = flush
	}
	if run := payload.Run; run != nil {
		if run.Events != 0 {
			scenario.Events = run.Events
		}
		if run.PhysicsList != "" {
			scenario.PhysicsList = run.PhysicsList
		}
		scenario.Interactive = run.Interactive
	}

	if scenario.Events <= 0 {
		return nil, fmt.Errorf("run events %d must be positive: %w", scenario.Events, ErrConfiguration)
	}
	return scenario, nil
}

func parseDefectKind(s string) (DefectKind, error) {
	switch s {
	case "", "none":
		return DefectNone, nil
	case "centered-cylinder":
		return DefectCenteredCylinder, nil
	case "off-axis-cylinder":
		return DefectOffAxisCylinder, nil
	default:
		return DefectNone, fmt.Errorf("unknown defect kind %q: %w", s, ErrConfiguration)
	}
}

func parseSourcePolicy(s string) (SourcePolicy, error) {
	switch s {
	case "", "fixed-point":
		return SourceFixedPoint, nil
	case "uniform-area":
		return SourceUniformArea, nil
	default:
		return SourceFixedPoint, fmt.Errorf("unknown source policy %q: %w", s, ErrConfiguration)
	}
}

func parseFields(names []string) ([]Field, error) {
	if len(names) == 0 {
		return nil, nil // recorder defaults to the full column set
	}
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		switch name {
		case "track_id":
			fields = append(fields, FieldTrackID)
		case "pos_x":
			fields = append(fields, FieldPosX)
		case "pos_y":
			fields = append(fields, FieldPosY)
		case "pos_z":
			fields = append(fields, FieldPosZ)
		case "energy":
			fields = append(fields, FieldEnergy)
		default:
			return nil, fmt.Errorf("unknown recorder field %q: %w", name, ErrConfiguration)
		}
	}
	return fields, nil
}

func parseEnergyUnit(s string) (EnergyUnit, error) {
	switch s {
	case "", "GeV":
		return UnitGeV, nil
	case "keV":
		return UnitKeV, nil
	default:
		return UnitGeV, fmt.Errorf("unknown energy unit %q: %w", s, ErrConfiguration)
	}
}

func parseFlushPolicy(s string) (FlushPolicy, error) {
	switch s {
	case "", "every-row":
		return FlushEveryRow, nil
	case "on-close":
		return FlushOnClose, nil
	default:
		return FlushEveryRow, fmt.Errorf("unknown flush policy %q: %w", s, ErrConfiguration)
	}
}
