// Package notebook reads .ipynb files into raw cell records.
//
// The reader is deliberately lenient: it decodes the handful of fields the
// analyzer needs and carries everything cell-level through untouched. It
// never writes notebooks back to disk.
package notebook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

var (
	// ErrNotFound means the notebook path does not exist.
	ErrNotFound = errors.New("notebook not found")
	// ErrParse means the file exists but is not a readable notebook.
	ErrParse = errors.New("notebook parse failed")
)

// Cell is one raw notebook cell as stored on disk. Source is already
// joined (the on-disk format allows a single string or a list of lines)
// and newline-normalized.
type Cell struct {
	ID             string            `json:"id,omitempty"`
	CellType       string            `json:"cell_type"`
	Source         sourceText        `json:"source"`
	ExecutionCount *int              `json:"execution_count,omitempty"`
	Outputs        []json.RawMessage `json:"outputs,omitempty"`
}

// Notebook is the decoded on-disk document.
type Notebook struct {
	NBFormat      int    `json:"nbformat"`
	NBFormatMinor int    `json:"nbformat_minor"`
	Cells         []Cell `json:"cells"`
}

// Load reads and decodes a notebook file.
func Load(path string) (*Notebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("notebook: read %s: %w", path, err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: %s: not a JSON object", ErrParse, path)
	}

	var nb Notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if nb.NBFormat == 0 {
		nb.NBFormat = 4
	}
	return &nb, nil
}

// StripOutputs drops stored outputs from code cells in place.
// execution_count is preserved: the offline state heuristics need it.
func (nb *Notebook) StripOutputs() {
	for i := range nb.Cells {
		if nb.Cells[i].CellType == "code" {
			nb.Cells[i].Outputs = nil
		}
	}
}

// sourceText decodes the ipynb "source" field, which is either a single
// string or a list of line fragments joined verbatim.
type sourceText string

func (s *sourceText) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*s = sourceText(NormalizeNewlines(one))
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("source is neither string nor list of strings")
	}
	*s = sourceText(NormalizeNewlines(strings.Join(lines, "")))
	return nil
}

// NormalizeNewlines converts CRLF and bare CR line endings to LF.
func NormalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
