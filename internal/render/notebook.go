package render

import (
	"encoding/json"
)

// StripNotebook removes the volatile fields of a Jupyter notebook so that
// snapshots stay diff-stable across executions: cell outputs are removed,
// execution counters nulled, and cell-level metadata dropped. Cell source
// text is preserved verbatim. Returns an error for malformed JSON; callers
// fall back to the raw bytes.
func StripNotebook(data []byte) ([]byte, error) {
	var notebook map[string]any
	if err := json.Unmarshal(data, &notebook); err != nil {
		return nil, err
	}

	cells, _ := notebook["cells"].([]any)
	for _, c := range cells {
		cell, ok := c.(map[string]any)
		if !ok {
			continue
		}
		delete(cell, "outputs")
		cell["execution_count"] = nil
		delete(cell, "metadata")
	}

	return json.MarshalIndent(notebook, "", " ")
}
