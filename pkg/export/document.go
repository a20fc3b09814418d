package export

// Document is a titled table ready for rendering. Preamble lines are printed
// between title and table, e.g. a mosque name and address.
type Document struct {
	Title     string
	Subtitle  string
	Preamble  []string
	Headers   []string
	Rows      [][]string
	Highlight int
	Footer    string
}

// NoHighlight marks a document without an emphasised row.
const NoHighlight = -1

func (d Document) cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
