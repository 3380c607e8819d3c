package normalize

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Accepted artifact extensions.
const (
	ExtScript   = ".py"
	ExtNotebook = ".ipynb"
)

const (
	fragmentSeparator = "\n\n"
	codeFence         = "```"
)

// AcceptedExtensions lists the artifact kinds FromFile understands.
func AcceptedExtensions() []string {
	return []string{ExtScript, ExtNotebook}
}

// FromFile builds an artifact from an uploaded file, picking the artifact kind
// from the file extension.
func FromFile(name string, data []byte) (Artifact, error) {
	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ExtScript:
		if !utf8.Valid(data) {
			return nil, &DecodeError{Name: name}
		}

		return PlainText{Content: string(data)}, nil
	case ExtNotebook:
		if !utf8.Valid(data) {
			return nil, &DecodeError{Name: name}
		}

		return ParseNotebook(name, data)
	default:
		return nil, &UnsupportedFormatError{Name: name, Accepted: AcceptedExtensions()}
	}
}

// Normalize renders an artifact as a single text payload. Plain text is
// returned verbatim. Notebook cells are rendered in order, empty cells are
// dropped and the fragments are separated by a blank line.
func Normalize(artifact Artifact) (string, error) {
	switch a := artifact.(type) {
	case PlainText:
		return a.Content, nil
	case Notebook:
		return renderNotebook(a), nil
	default:
		return "", &UnsupportedFormatError{
			Name:     fmt.Sprintf("%T", artifact),
			Accepted: AcceptedExtensions(),
		}
	}
}

// File is FromFile followed by Normalize.
func File(name string, data []byte) (string, error) {
	artifact, err := FromFile(name, data)
	if err != nil {
		return "", err
	}

	return Normalize(artifact)
}

func renderNotebook(notebook Notebook) string {
	language := notebook.Language
	if language == "" {
		language = defaultLanguage
	}

	fragments := make([]string, 0, len(notebook.Cells))

	for _, cell := range notebook.Cells {
		source := strings.TrimSpace(cell.Source)
		if source == "" {
			continue
		}

		switch cell.Kind {
		case CellMarkdown:
			fragments = append(fragments, source)
		case CellCode:
			fragments = append(fragments, codeFence+language+"\n"+source+"\n"+codeFence)
		case CellOther:
		}
	}

	return strings.Join(fragments, fragmentSeparator)
}
