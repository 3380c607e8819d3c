package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	notebookSchemaURL = "notebook.schema.json"
	defaultLanguage   = "python"
)

// notebookSchema describes the subset of the notebook format the normalizer
// relies on.
const notebookSchema = `{
  "type": "object",
  "required": ["cells"],
  "properties": {
    "cells": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "cell_type": {"type": "string"},
          "source": {
            "anyOf": [
              {"type": "string"},
              {"type": "array", "items": {"type": "string"}}
            ]
          }
        }
      }
    }
  }
}`

var (
	compileOnce      sync.Once
	compiledSchema   *jsonschema.Schema
	errSchemaCompile error
)

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		err := compiler.AddResource(notebookSchemaURL, bytes.NewReader([]byte(notebookSchema)))
		if err != nil {
			errSchemaCompile = fmt.Errorf("schema resource: %w", err)

			return
		}

		compiledSchema, errSchemaCompile = compiler.Compile(notebookSchemaURL)
	})

	return compiledSchema, errSchemaCompile
}

// multilineString accepts both forms the notebook format allows for cell
// source: a single string or a list of lines.
type multilineString string

func (m *multilineString) UnmarshalJSON(data []byte) error {
	var single string

	err := json.Unmarshal(data, &single)
	if err == nil {
		*m = multilineString(single)

		return nil
	}

	var lines []string

	err = json.Unmarshal(data, &lines)
	if err != nil {
		return fmt.Errorf("failed to unmarshal cell source: %w", err)
	}

	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
	}

	*m = multilineString(buf.String())

	return nil
}

type notebookDocument struct {
	Metadata struct {
		LanguageInfo struct {
			Name string `json:"name"`
		} `json:"language_info"`
	} `json:"metadata"`
	Cells []struct {
		CellType string          `json:"cell_type"`
		Source   multilineString `json:"source"`
	} `json:"cells"`
}

// ParseNotebook parses a notebook document. The name is only used in errors.
func ParseNotebook(name string, data []byte) (Notebook, error) {
	schema, err := loadSchema()
	if err != nil {
		return Notebook{}, &ParseError{Name: name, Err: err}
	}

	var raw any

	err = json.Unmarshal(data, &raw)
	if err != nil {
		return Notebook{}, &ParseError{Name: name, Err: err}
	}

	err = schema.Validate(raw)
	if err != nil {
		return Notebook{}, &ParseError{Name: name, Err: err}
	}

	var doc notebookDocument

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return Notebook{}, &ParseError{Name: name, Err: err}
	}

	notebook := Notebook{
		Language: doc.Metadata.LanguageInfo.Name,
		Cells:    make([]Cell, 0, len(doc.Cells)),
	}
	if notebook.Language == "" {
		notebook.Language = defaultLanguage
	}

	for _, cell := range doc.Cells {
		notebook.Cells = append(notebook.Cells, Cell{
			Kind:   ParseCellKind(cell.CellType),
			Source: string(cell.Source),
		})
	}

	return notebook, nil
}
