// Package normalize converts user supplied source artifacts, plain scripts and
// notebook documents, into a single flat text payload.
package normalize

// CellKind is the kind of a notebook cell.
type CellKind int

// Supported cell kinds. CellOther covers raw cells and anything the notebook
// format may add later; such cells are never rendered.
const (
	CellOther CellKind = iota
	CellMarkdown
	CellCode
)

// ParseCellKind maps a notebook "cell_type" value to a CellKind.
func ParseCellKind(cellType string) CellKind {
	switch cellType {
	case "markdown":
		return CellMarkdown
	case "code":
		return CellCode
	default:
		return CellOther
	}
}

func (k CellKind) String() string {
	switch k {
	case CellMarkdown:
		return "markdown"
	case CellCode:
		return "code"
	case CellOther:
		return "other"
	default:
		return "other"
	}
}

// Cell is one notebook cell.
type Cell struct {
	Kind   CellKind
	Source string
}

// Artifact is a source document to be normalized. It is implemented by
// PlainText and Notebook only.
type Artifact interface {
	artifact()
}

// PlainText is a decoded script.
type PlainText struct {
	Content string
}

// Notebook is a parsed notebook document.
//
// Language tags every rendered code fence. ParseNotebook takes it from the
// notebook's metadata.language_info.name, so an R or Julia notebook renders
// "```r" or "```julia" fences; it is "python" only when the metadata names no
// language.
type Notebook struct {
	Language string
	Cells    []Cell
}

func (PlainText) artifact() {}

func (Notebook) artifact() {}
