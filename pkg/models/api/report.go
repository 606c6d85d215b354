package api

// Definition describes one report type the server can build.
type Definition struct {
	Name       string   `json:"name"`
	Dimensions []string `json:"dimensions"`
	Measures   []string `json:"measures"`
}

// ReportInput is a report's options plus the raw records it aggregates.
type ReportInput struct {
	Params  map[string]any   `json:"params,omitempty"`
	Records []map[string]any `json:"records,omitempty"`
}

// ReportRequest builds one report, optionally linked to a parent report and
// to named supplement reports of the same definition.
type ReportRequest struct {
	ReportInput
	Parent      *ReportInput           `json:"parent,omitempty"`
	Supplements map[string]ReportInput `json:"supplements,omitempty"`
}

type Shape string

const (
	ShapeFlat   Shape = "flat"
	ShapeNested Shape = "nested"
	ShapeHashed Shape = "hashed"
)

type Report struct {
	Definition string           `json:"definition"`
	Groupers   []string         `json:"groupers"`
	Columns    []string         `json:"columns"`
	Shape      Shape            `json:"shape"`
	Rows       any              `json:"rows"`
	Total      []map[string]any `json:"total,omitempty"`
}

type Error struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}
