package domain

import (
	"encoding/json"
	"fmt"
)

// NihssItem identifies one of the 15 NIHSS items
type NihssItem string

// NIHSS items in protocol order
const (
	NihssConsciousness NihssItem = "consciousness"
	NihssQuestions     NihssItem = "questions"
	NihssCommands      NihssItem = "commands"
	NihssGaze          NihssItem = "gaze"
	NihssVisual        NihssItem = "visual"
	NihssFacial        NihssItem = "facial"
	NihssArmLeft       NihssItem = "armLeft"
	NihssArmRight      NihssItem = "armRight"
	NihssLegLeft       NihssItem = "legLeft"
	NihssLegRight      NihssItem = "legRight"
	NihssAtaxia        NihssItem = "ataxia"
	NihssSensory       NihssItem = "sensory"
	NihssLanguage      NihssItem = "language"
	NihssDysarthria    NihssItem = "dysarthria"
	NihssExtinction    NihssItem = "extinction"
)

// NihssItemDefinition describes a NIHSS item and its valid subscore range
type NihssItemDefinition struct {
	Key      NihssItem `json:"key"`
	Code     string    `json:"code"`
	Label    string    `json:"label"`
	MaxScore int       `json:"max_score"`
	Options  []string  `json:"options"`
}

// NihssItems is the fixed NIHSS catalog. Index order is the storage order of NihssAssessment.
var NihssItems = []NihssItemDefinition{
	{NihssConsciousness, "1a", "Nivel de conciencia", 3, []string{"Alerta", "Somnolencia", "Obnubilación", "Coma"}},
	{NihssQuestions, "1b", "Preguntas verbales", 2, []string{"Ambas correctas", "Una correcta", "Ninguna correcta"}},
	{NihssCommands, "1c", "Órdenes motoras", 2, []string{"Ambas correctas", "Una correcta", "Ninguna correcta"}},
	{NihssGaze, "2", "Mirada conjugada", 2, []string{"Normal", "Paresia parcial", "Paresia total"}},
	{NihssVisual, "3", "Campos visuales", 3, []string{"Normal", "Hemianopsia parcial", "Hemianopsia completa", "Ceguera bilateral"}},
	{NihssFacial, "4", "Paresia facial", 3, []string{"Normal", "Paresia leve", "Parálisis parcial", "Parálisis completa"}},
	{NihssArmLeft, "5a", "Extremidad superior izquierda", 4, []string{"Normal", "Claudica <10s", "Toca cama <10s", "Movimiento sin gravedad", "Parálisis"}},
	{NihssArmRight, "5b", "Extremidad superior derecha", 4, []string{"Normal", "Claudica <10s", "Toca cama <10s", "Movimiento sin gravedad", "Parálisis"}},
	{NihssLegLeft, "6a", "Extremidad inferior izquierda", 4, []string{"Normal", "Claudica <5s", "Toca cama <5s", "Movimiento sin gravedad", "Parálisis"}},
	{NihssLegRight, "6b", "Extremidad inferior derecha", 4, []string{"Normal", "Claudica <5s", "Toca cama <5s", "Movimiento sin gravedad", "Parálisis"}},
	{NihssAtaxia, "7", "Ataxia de extremidades", 2, []string{"Normal", "Una extremidad", "Dos extremidades"}},
	{NihssSensory, "8", "Sensibilidad", 2, []string{"Normal", "Leve-moderada", "Anestesia"}},
	{NihssLanguage, "9", "Lenguaje", 3, []string{"Normal", "Afasia leve-moderada", "Afasia grave", "Afasia global"}},
	{NihssDysarthria, "10", "Disartria", 2, []string{"Normal", "Leve", "Grave"}},
	{NihssExtinction, "11", "Extinción-Negligencia", 2, []string{"Normal", "Una modalidad", "Más de una modalidad"}},
}

const nihssItemCount = 15

func nihssIndex(key NihssItem) (int, bool) {
	for i, def := range NihssItems {
		if def.Key == key {
			return i, true
		}
	}
	return 0, false
}

// NihssAssessment holds one subscore per NIHSS item. The zero value is an
// untouched assessment (all items scored 0). It is a value type: copies are
// independent snapshots.
type NihssAssessment struct {
	scores [nihssItemCount]int
}

// NewNihssAssessment builds an assessment from a key->subscore map, validating every entry
func NewNihssAssessment(scores map[NihssItem]int) (NihssAssessment, error) {
	var a NihssAssessment
	for key, value := range scores {
		if err := a.Set(key, value); err != nil {
			return NihssAssessment{}, err
		}
	}
	return a, nil
}

// Set assigns a subscore, rejecting unknown items and out-of-range values
func (a *NihssAssessment) Set(key NihssItem, value int) error {
	idx, ok := nihssIndex(key)
	if !ok {
		return NewValidationError("nihss."+string(key), "unknown NIHSS item", key)
	}
	limit := NihssItems[idx].MaxScore
	if value < 0 || value > limit {
		return NewValidationError("nihss."+string(key), fmt.Sprintf("subscore must be between 0 and %d", limit), value)
	}
	a.scores[idx] = value
	return nil
}

// Get returns the subscore for an item, 0 for unknown items
func (a NihssAssessment) Get(key NihssItem) int {
	idx, ok := nihssIndex(key)
	if !ok {
		return 0
	}
	return a.scores[idx]
}

// Subscores returns the subscores in catalog order
func (a NihssAssessment) Subscores() []int {
	out := make([]int, nihssItemCount)
	copy(out, a.scores[:])
	return out
}

// Evaluated reports whether at least one subscore is nonzero
func (a NihssAssessment) Evaluated() bool {
	for _, s := range a.scores {
		if s != 0 {
			return true
		}
	}
	return false
}

// MarshalJSON renders the assessment as an item-keyed object
func (a NihssAssessment) MarshalJSON() ([]byte, error) {
	m := make(map[NihssItem]int, nihssItemCount)
	for i, def := range NihssItems {
		m[def.Key] = a.scores[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses an item-keyed object; missing items default to 0
func (a *NihssAssessment) UnmarshalJSON(data []byte) error {
	var m map[NihssItem]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	parsed, err := NewNihssAssessment(m)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AspectsRegion identifies one of the 10 ASPECTS regions
type AspectsRegion string

// ASPECTS regions
const (
	AspectsCaudate         AspectsRegion = "caudate"
	AspectsPutamen         AspectsRegion = "putamen"
	AspectsInternalCapsule AspectsRegion = "internalCapsule"
	AspectsInsular         AspectsRegion = "insular"
	AspectsM1              AspectsRegion = "m1"
	AspectsM2              AspectsRegion = "m2"
	AspectsM3              AspectsRegion = "m3"
	AspectsM4              AspectsRegion = "m4"
	AspectsM5              AspectsRegion = "m5"
	AspectsM6              AspectsRegion = "m6"
)

// AspectsRegionDefinition labels an ASPECTS region
type AspectsRegionDefinition struct {
	Key   AspectsRegion `json:"key"`
	Label string        `json:"label"`
}

// AspectsRegions is the fixed ASPECTS catalog
var AspectsRegions = []AspectsRegionDefinition{
	{AspectsCaudate, "Núcleo Caudado"},
	{AspectsPutamen, "Putamen"},
	{AspectsInternalCapsule, "Cápsula Interna"},
	{AspectsInsular, "Ínsula (I)"},
	{AspectsM1, "M1 (frontal)"},
	{AspectsM2, "M2 (frontoparietal)"},
	{AspectsM3, "M3 (temporal anterior)"},
	{AspectsM4, "M4 (temporal medio)"},
	{AspectsM5, "M5 (temporal posterior)"},
	{AspectsM6, "M6 (parietal inferior)"},
}

const aspectsRegionCount = 10

func aspectsIndex(key AspectsRegion) (int, bool) {
	for i, def := range AspectsRegions {
		if def.Key == key {
			return i, true
		}
	}
	return 0, false
}

// AspectsAssessment holds the region flags. A flag is true when the region
// shows no early ischemic change. The zero value has every flag true.
type AspectsAssessment struct {
	changed [aspectsRegionCount]bool
}

// Set assigns a region flag
func (a *AspectsAssessment) Set(key AspectsRegion, intact bool) error {
	idx, ok := aspectsIndex(key)
	if !ok {
		return NewValidationError("aspects."+string(key), "unknown ASPECTS region", key)
	}
	a.changed[idx] = !intact
	return nil
}

// Intact returns the flag for a region; unknown regions report true
func (a AspectsAssessment) Intact(key AspectsRegion) bool {
	idx, ok := aspectsIndex(key)
	if !ok {
		return true
	}
	return !a.changed[idx]
}

// Flags returns the region flags in catalog order
func (a AspectsAssessment) Flags() []bool {
	out := make([]bool, aspectsRegionCount)
	for i, c := range a.changed {
		out[i] = !c
	}
	return out
}

// MarshalJSON renders the flags as a region-keyed object
func (a AspectsAssessment) MarshalJSON() ([]byte, error) {
	m := make(map[AspectsRegion]bool, aspectsRegionCount)
	for i, def := range AspectsRegions {
		m[def.Key] = !a.changed[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses a region-keyed object; missing regions default to true
func (a *AspectsAssessment) UnmarshalJSON(data []byte) error {
	var m map[AspectsRegion]bool
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var parsed AspectsAssessment
	for key, intact := range m {
		if err := parsed.Set(key, intact); err != nil {
			return err
		}
	}
	*a = parsed
	return nil
}
