package model

import "strings"

// Category classifies a building for restoration priority.
type Category string

const (
	CategoryHospital    Category = "hospital"
	CategorySchool      Category = "school"
	CategoryResidential Category = "residential"
)

var categoryAliases = map[string]Category{
	"hospital":    CategoryHospital,
	"hôpital":     CategoryHospital,
	"hopital":     CategoryHospital,
	"school":      CategorySchool,
	"école":       CategorySchool,
	"ecole":       CategorySchool,
	"residential": CategoryResidential,
	"habitation":  CategoryResidential,
}

// ParseCategory normalizes a raw building type. Unknown or empty values are
// residential.
func ParseCategory(s string) Category {
	if c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return CategoryResidential
}

// IsCritical reports whether the category is exempt from cost phasing.
func (c Category) IsCritical() bool { return c == CategoryHospital }

// Score returns the restoration priority score, lower is more urgent.
func (c Category) Score() float64 {
	switch c {
	case CategoryHospital:
		return 0
	case CategorySchool:
		return 0.5
	default:
		return 1
	}
}

// Building is a served building. Segments holds ids into the segment arena
// owned by the graph, in the order they were first seen.
type Building struct {
	ID       string
	Houses   int
	Category Category
	Segments []string
}

// BuildingRef is one row of the building reference table.
type BuildingRef struct {
	ID       string
	Houses   int
	Category Category
}

// NetworkRow is one cleaned (segment, building) row of the network sheet.
type NetworkRow struct {
	SegmentID  string
	BuildingID string
	Length     float64
	State      string // raw state marker
	Houses     int    // houses on this row
	Kind       string // normalized line type
	Category   Category
}

// RepairStep records one iteration of the greedy plan. Step 0 lists the
// buildings that need no repair.
type RepairStep struct {
	Step             int      `json:"step"`
	BuildingID       string   `json:"building_id"`
	Category         Category `json:"category"`
	Houses           int      `json:"houses"`
	DifficultyBefore float64  `json:"difficulty_before"`
	RepairedSegments []string `json:"repaired_segments"`
}
