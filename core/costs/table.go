package costs

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/gridrepair/core/workorder"
)

// Line types known to the default table.
const (
	KindAerial      = "aerien"
	KindSemiAerial  = "semi-aerien"
	KindUnderground = "fourreau"
	KindUnknown     = "inconnu"
)

// Table holds the unit costs used to price repairs.
type Table struct {
	MaterialPerM    map[string]float64 `json:"material_eur_per_m" yaml:"material_eur_per_m"`
	HoursPerM       map[string]float64 `json:"hours_per_m" yaml:"hours_per_m"`
	CrewMaxPerInfra int                `json:"crew_max_per_infra" yaml:"crew_max_per_infra"`
	WorkerPerDay8h  float64            `json:"worker_eur_per_day8h" yaml:"worker_eur_per_day8h"`
}

// DefaultTable returns the reference cost table: material in euros per
// meter, work in man-hours per meter, four workers per segment and a daily
// rate of 300 euros for an 8 hour day.
func DefaultTable() Table {
	return Table{
		MaterialPerM: map[string]float64{
			KindAerial:      500,
			KindSemiAerial:  750,
			KindUnderground: 900,
		},
		HoursPerM: map[string]float64{
			KindAerial:      2,
			KindSemiAerial:  4,
			KindUnderground: 5,
		},
		CrewMaxPerInfra: 4,
		WorkerPerDay8h:  300,
	}
}

// SetDefaults fills every unset field from DefaultTable. Maps are replaced
// as a whole, not merged per line type.
func (t *Table) SetDefaults() {
	d := DefaultTable()
	if len(t.MaterialPerM) == 0 {
		t.MaterialPerM = d.MaterialPerM
	}
	if len(t.HoursPerM) == 0 {
		t.HoursPerM = d.HoursPerM
	}
	if t.CrewMaxPerInfra == 0 {
		t.CrewMaxPerInfra = d.CrewMaxPerInfra
	}
	if t.WorkerPerDay8h == 0 {
		t.WorkerPerDay8h = d.WorkerPerDay8h
	}
}

// Validate rejects negative unit costs.
func (t Table) Validate() error {
	for k, v := range t.MaterialPerM {
		if v < 0 {
			return fmt.Errorf("material_eur_per_m[%s] is negative", k)
		}
	}
	for k, v := range t.HoursPerM {
		if v < 0 {
			return fmt.Errorf("hours_per_m[%s] is negative", k)
		}
	}
	if t.CrewMaxPerInfra < 0 {
		return fmt.Errorf("crew_max_per_infra is negative")
	}
	if t.WorkerPerDay8h < 0 {
		return fmt.Errorf("worker_eur_per_day8h is negative")
	}
	return nil
}

// Crew is the number of workers assigned to a segment. Crews are assumed
// saturated at the configured maximum.
func (t Table) Crew() int {
	if t.CrewMaxPerInfra < 1 {
		return 1
	}
	return t.CrewMaxPerInfra
}

// HourlyRate is the labor cost of one man-hour.
func (t Table) HourlyRate() float64 { return t.WorkerPerDay8h / 8 }

// Sheet is the layout of a standalone costs file: the table at the top
// level plus the critical facility section.
type Sheet struct {
	Table    `yaml:",inline"`
	Hospital workorder.Budget `yaml:"hospital"`
}

// LoadSheet reads a costs YAML file. Missing table entries fall back to the
// defaults.
func LoadSheet(path string) (Sheet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Sheet{}, fmt.Errorf("read costs: %w", err)
	}
	var s Sheet
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Sheet{}, fmt.Errorf("decode costs %s: %w", path, err)
	}
	s.Table.SetDefaults()
	if err := s.Table.Validate(); err != nil {
		return Sheet{}, err
	}
	return s, nil
}

var kindAliases = map[string]string{
	"aérien":      KindAerial,
	"aerien":      KindAerial,
	"semi-aérien": KindSemiAerial,
	"semi-aerien": KindSemiAerial,
	"semi aerien": KindSemiAerial,
	"semi aérien": KindSemiAerial,
	"semi_aerien": KindSemiAerial,
	"semi–aérien": KindSemiAerial,
	"fourreau":    KindUnderground,
	"fourreaux":   KindUnderground,
	"souterrain":  KindUnderground,
	"underground": KindUnderground,
}

// NormalizeKind maps the spellings found in network sheets to a table key.
// Unrecognised values are returned lowercased and trimmed.
func NormalizeKind(s string) string {
	k := strings.ToLower(strings.TrimSpace(s))
	if v, ok := kindAliases[k]; ok {
		return v
	}
	return k
}
