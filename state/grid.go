package state

// PrimaryStyleName is the style name the client uses to target grids.
const PrimaryStyleName = "v-grid"

// Static cell content types
const (
	CellText      = "TEXT"
	CellHTML      = "HTML"
	CellComponent = "WIDGET"
)

type GridState struct {
	Columns         []*ColumnState         `json:"columns"`
	ColumnOrder     []string               `json:"columnOrder"`
	ColumnGroupRows []*ColumnGroupRowState `json:"columnGroupRows"`
	Header          *SectionState          `json:"header"`
	Footer          *SectionState          `json:"footer"`

	SelectedKeys                []string `json:"selectedKeys"`
	SelectionMode               string   `json:"selectionMode"`
	SingleSelectDeselectAllowed bool     `json:"singleSelectDeselectAllowed"`
	UserSelectionAllowed        bool     `json:"userSelectionAllowed"`
	SelectAllChecked            bool     `json:"selectAllChecked"`

	LastFrozenColumnID string  `json:"lastFrozenColumnId"`
	HeightMode         string  `json:"heightMode"`
	HeightByRows       float64 `json:"heightByRows"`

	EditorEnabled       bool   `json:"editorEnabled"`
	EditorSaveCaption   string `json:"editorSaveCaption"`
	EditorCancelCaption string `json:"editorCancelCaption"`

	SortColumns []string `json:"sortColumns"`
	SortDirs    []string `json:"sortDirs"`

	PrimaryStyleName string `json:"primaryStyleName"`
	ComponentError   string `json:"componentError"`
}

func NewGridState() *GridState {
	return &GridState{
		Columns:                     []*ColumnState{},
		ColumnOrder:                 []string{},
		ColumnGroupRows:             []*ColumnGroupRowState{},
		Header:                      NewSectionState(),
		Footer:                      NewSectionState(),
		SelectedKeys:                []string{},
		SingleSelectDeselectAllowed: true,
		UserSelectionAllowed:        true,
		HeightMode:                  "CSS",
		HeightByRows:                10,
		EditorSaveCaption:           "Save",
		EditorCancelCaption:         "Cancel",
		SortColumns:                 []string{},
		SortDirs:                    []string{},
		PrimaryStyleName:            PrimaryStyleName,
	}
}

type ColumnState struct {
	ID              string  `json:"id"`
	Header          string  `json:"header"`
	Footer          string  `json:"footer"`
	Width           float64 `json:"width"`
	Visible         bool    `json:"visible"`
	Sortable        bool    `json:"sortable"`
	Editable        bool    `json:"editable"`
	EditorConnector string  `json:"editorConnector"`
	Renderer        string  `json:"renderer"`
}

type ColumnGroupRowState struct {
	Groups        []*ColumnGroupState `json:"groups"`
	HeaderVisible bool                `json:"headerVisible"`
	FooterVisible bool                `json:"footerVisible"`
}

type ColumnGroupState struct {
	Columns []string `json:"columns"`
	Header  string   `json:"header"`
	Footer  string   `json:"footer"`
}

type SectionState struct {
	Visible bool        `json:"visible"`
	Rows    []*RowState `json:"rows"`
}

func NewSectionState() *SectionState {
	return &SectionState{Visible: true, Rows: []*RowState{}}
}

type RowState struct {
	Cells      []*CellState      `json:"cells"`
	CellGroups []*CellGroupState `json:"cellGroups"`
	DefaultRow bool              `json:"defaultRow"`
	StyleName  string            `json:"styleName"`
}

func NewRowState() *RowState {
	return &RowState{Cells: []*CellState{}, CellGroups: []*CellGroupState{}}
}

type CellState struct {
	ColumnID  string `json:"columnId"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
	Connector string `json:"connector"`
	StyleName string `json:"styleName"`
}

// CellGroupState is a joined cell spanning the listed column ids.
type CellGroupState struct {
	Columns []string   `json:"columns"`
	Cell    *CellState `json:"cell"`
}
