package models

// Sheet is one named table of rows, the unit returned to the grid UI.
type Sheet struct {
	Name    string `json:"sheetName" msgpack:"sheetName"`
	Content []Row  `json:"sheetContent" msgpack:"sheetContent"`

	// Columns is the header in source order. It survives tables without
	// data rows and is not part of the wire format.
	Columns []string `json:"-" msgpack:"-"`
}

// NewSheet creates a sheet with a non-nil row slice so it encodes as [].
func NewSheet(name string, columns []string, rows []Row) Sheet {
	if rows == nil {
		rows = make([]Row, 0)
	}
	return Sheet{Name: name, Content: rows, Columns: columns}
}

// Header returns Columns when set, otherwise the union of row keys in
// first-seen order.
func (s Sheet) Header() []string {
	if len(s.Columns) > 0 {
		return s.Columns
	}
	var header []string
	seen := make(map[string]bool)
	for _, row := range s.Content {
		for _, f := range row {
			if !seen[f.Name] {
				seen[f.Name] = true
				header = append(header, f.Name)
			}
		}
	}
	return header
}
