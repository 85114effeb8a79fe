package ingest

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/gridrepair/core/costs"
	"github.com/kilianp07/gridrepair/core/model"
)

// Target column names.
const (
	ColSegment  = "infra_id"
	ColBuilding = "id_batiment"
	ColLength   = "longueur"
	ColState    = "infra_type"
	ColKind     = "type_infra"
	ColHouses   = "nb_maisons"
	ColCategory = "type_batiment"
)

// NetworkSchema lists the accepted aliases of the network sheet.
var NetworkSchema = Schema{
	{ColSegment, []string{"infra_id", "id_infra", "infra"}},
	{ColBuilding, []string{"id_batiment", "bat_id", "id_bat", "building_id"}},
	{ColLength, []string{"longueur", "length", "len_m", "long_m"}},
	{ColState, []string{"infra_type", "etat", "state"}},
	{ColKind, []string{"type_infra", "nature_infra", "categorie_infra", "infra_categorie"}},
	{ColHouses, []string{"nb_maisons", "nb_foyers", "houses", "nb_houses", "nb_maison"}},
}

// BuildingSchema lists the accepted aliases of the building table.
var BuildingSchema = Schema{
	{ColBuilding, []string{"id_batiment", "bat_id", "id_bat", "building_id"}},
	{ColHouses, []string{"nb_maisons", "nb_foyers", "maisons", "houses", "nb_houses", "nb_maison"}},
	{ColCategory, []string{"type_batiment", "type", "categorie", "building_type"}},
}

// InfraSchema lists the accepted aliases of the infrastructure table.
var InfraSchema = Schema{
	{ColSegment, []string{"infra_id", "id_infra", "infra"}},
	{ColKind, []string{"type_infra", "type", "nature_infra", "categorie_infra", "infra_categorie"}},
}

// WorksSchema lists the columns of the optional works table, whose non-empty
// values override the network sheet per segment.
var WorksSchema = Schema{
	{ColSegment, []string{"infra_id", "id_infra", "infra"}},
	{ColState, []string{"infra_type", "etat", "state"}},
	{ColKind, []string{"type_infra", "nature_infra"}},
	{ColLength, []string{"longueur", "length", "len_m"}},
}

var (
	// ErrMissingColumn is returned when a mandatory column is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrMissingBuilding is returned when a network building is absent from
	// the building table.
	ErrMissingBuilding = errors.New("building missing from building table")
	// ErrUnservedBuilding is returned when a building of the building table
	// has no network row.
	ErrUnservedBuilding = errors.New("building has no network row")
)

// Inputs groups the raw tables. Buildings, Infra and Works are optional.
type Inputs struct {
	Network   *Table
	Buildings *Table
	Infra     *Table
	Works     *Table
}

// Report summarizes the cleaning.
type Report struct {
	NetworkRows      int `json:"network_rows"`
	DroppedRows      int `json:"dropped_rows"`      // rows with a non-positive length
	DroppedBuildings int `json:"dropped_buildings"` // buildings left without rows after dropping
	Buildings        int `json:"buildings"`
	Hospitals        int `json:"hospitals"`
}

// Dataset is the cleaned, joined input of the planner.
type Dataset struct {
	Rows      []model.NetworkRow
	Buildings []model.BuildingRef
	Report    Report
}

type buildingInfo struct {
	houses   int
	category model.Category
}

// CleanAndJoin normalizes the tables and joins them. Per-row house counts
// come from the building table, falling back to the network sheet then 1.
// Line types come from the network sheet, falling back to the
// infrastructure table. Rows with a non-positive length are dropped.
func CleanAndJoin(in Inputs) (*Dataset, error) {
	if in.Network == nil {
		return nil, fmt.Errorf("%w: network table", ErrMissingColumn)
	}
	for _, f := range NetworkSchema[:3] {
		if !in.Network.HasAny(f) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, f.Name)
		}
	}

	kinds := map[string]string{}
	for _, r := range in.Infra.Records(InfraSchema) {
		if r.Has(ColSegment) && r.Has(ColKind) {
			kinds[r[ColSegment]] = costs.NormalizeKind(r[ColKind])
		}
	}
	works := map[string]Record{}
	for _, r := range in.Works.Records(WorksSchema) {
		if r.Has(ColSegment) {
			works[r[ColSegment]] = r
		}
	}

	var table map[string]buildingInfo
	if in.Buildings != nil {
		table = map[string]buildingInfo{}
		for _, r := range in.Buildings.Records(BuildingSchema) {
			id := r[ColBuilding]
			if id == "" {
				continue
			}
			info, seen := table[id]
			h := parseHouses(r[ColHouses], 1)
			if !seen || h > info.houses {
				info.houses = h
			}
			if !seen {
				info.category = model.ParseCategory(r[ColCategory])
			}
			table[id] = info
		}
	}

	ds := &Dataset{}
	networkHouses := map[string]int{}
	listed := map[string]bool{}
	var order []string
	for _, r := range in.Network.Records(NetworkSchema) {
		ds.Report.NetworkRows++
		seg, bid := r[ColSegment], r[ColBuilding]
		listed[bid] = true
		if w, ok := works[seg]; ok {
			for _, c := range []string{ColState, ColKind, ColLength} {
				if w.Has(c) {
					r[c] = w[c]
				}
			}
		}
		length := parseLength(r[ColLength])
		if length <= 0 {
			ds.Report.DroppedRows++
			continue
		}
		kind := costs.NormalizeKind(r[ColKind])
		if kind == "" {
			kind = kinds[seg]
		}
		if _, ok := networkHouses[bid]; !ok {
			order = append(order, bid)
		}
		h := parseHouses(r[ColHouses], 1)
		if h > networkHouses[bid] {
			networkHouses[bid] = h
		}
		ds.Rows = append(ds.Rows, model.NetworkRow{
			SegmentID:  seg,
			BuildingID: bid,
			Length:     length,
			State:      r[ColState],
			Houses:     h,
			Kind:       kind,
		})
	}

	refs := map[string]model.BuildingRef{}
	for _, bid := range order {
		ref := model.BuildingRef{ID: bid, Houses: networkHouses[bid], Category: model.CategoryResidential}
		if table != nil {
			info, ok := table[bid]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingBuilding, bid)
			}
			ref.Houses = info.houses
			ref.Category = info.category
		}
		refs[bid] = ref
	}
	if table != nil {
		for id := range table {
			if _, ok := refs[id]; ok {
				continue
			}
			if !listed[id] {
				return nil, fmt.Errorf("%w: %s", ErrUnservedBuilding, id)
			}
			ds.Report.DroppedBuildings++
		}
	}

	for i := range ds.Rows {
		ref := refs[ds.Rows[i].BuildingID]
		ds.Rows[i].Houses = ref.Houses
		ds.Rows[i].Category = ref.Category
	}
	ids := make([]string, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ds.Buildings = append(ds.Buildings, refs[id])
		if refs[id].Category.IsCritical() {
			ds.Report.Hospitals++
		}
	}
	ds.Report.Buildings = len(ds.Buildings)
	return ds, nil
}

func parseLength(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseHouses(s string, def int) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	if v < 0 {
		return 0
	}
	return int(v)
}
