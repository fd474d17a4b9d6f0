package materials

import (
	"fmt"
	"sort"
	"sync"

	"github.com/muonworks/tomography-simulator/core"
	"github.com/muonworks/tomography-simulator/model"
)

// Database is an in-memory, thread-safe material store keyed by
// symbolic name. It implements core.MaterialResolver, playing the role
// the transport engine's material manager would play in a full setup.
type Database struct {
	mu        sync.RWMutex
	materials map[string]*model.Material
}

// NewDatabase constructs an empty material database.
func NewDatabase() *Database {
	return &Database{materials: make(map[string]*model.Material)}
}

// NewStandardDatabase constructs a database pre-loaded with the media a
// muon-tomography setup commonly needs. Densities are bulk values in
// g/cm^3; "vacuum" carries the usual laboratory near-zero density so
// the energy-loss model treats it as deposit-free.
func NewStandardDatabase() *Database {
	db := NewDatabase()
	for _, m := range []*model.Material{
		{Name: "vacuum", DensityGCm3: 1e-25, Z: 1, A: 1.008},
		{Name: "air", DensityGCm3: 1.205e-3, Z: 7.3, A: 14.61},
		{Name: "water", DensityGCm3: 1.0, Z: 7.42, A: 14.94},
		{Name: "concrete", DensityGCm3: 2.3, Z: 11.1, A: 22.1},
		{Name: "standard_rock", DensityGCm3: 2.65, Z: 11, A: 22},
		{Name: "iron", DensityGCm3: 7.874, Z: 26, A: 55.85},
		{Name: "lead", DensityGCm3: 11.35, Z: 82, A: 207.2},
		{Name: "uranium", DensityGCm3: 18.95, Z: 92, A: 238.03},
	} {
		// The standard table has no duplicates, so Register cannot fail here.
		_ = db.Register(m)
	}
	return db
}

// Register adds a new material. It returns an error if the material is
// nil, unnamed, or the name is already taken.
func (db *Database) Register(m *model.Material) error {
	if m == nil || m.Name == "" {
		return fmt.Errorf("nil or unnamed material")
	}
	if m.DensityGCm3 < 0 {
		return fmt.Errorf("material %q has negative density", m.Name)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.materials[m.Name]; exists {
		return fmt.Errorf("material %q already registered", m.Name)
	}
	db.materials[m.Name] = m
	return nil
}

// Resolve looks up a material by symbolic name. Unknown names are a
// configuration error: geometry construction must fail before a run
// starts rather than propagate a nil medium into the engine.
func (db *Database) Resolve(name string) (*model.Material, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	m, ok := db.materials[name]
	if !ok {
		return nil, fmt.Errorf("unknown material %q: %w", name, core.ErrConfiguration)
	}
	return m, nil
}

// Names returns the registered material names in sorted order.
func (db *Database) Names() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.materials))
	for name := range db.materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
