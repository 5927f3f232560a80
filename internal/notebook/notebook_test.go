package notebook

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeNotebook(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nb.ipynb")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoad_SourceAsLineList(t *testing.T) {
	path := writeNotebook(t, `{
		"nbformat": 4, "nbformat_minor": 5,
		"cells": [
			{"id": "a", "cell_type": "code", "execution_count": 2,
			 "source": ["x = 1\n", "y = x"], "outputs": []}
		]
	}`)

	nb, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(nb.Cells) != 1 {
		t.Fatalf("cells = %d, want 1", len(nb.Cells))
	}

	c := nb.Cells[0]
	if got := string(c.Source); got != "x = 1\ny = x" {
		t.Errorf("source = %q, want joined lines", got)
	}
	if c.ExecutionCount == nil || *c.ExecutionCount != 2 {
		t.Errorf("execution_count = %v, want 2", c.ExecutionCount)
	}
}

func TestLoad_SourceAsString(t *testing.T) {
	path := writeNotebook(t, `{
		"cells": [{"cell_type": "markdown", "source": "# Title"}]
	}`)

	nb, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := string(nb.Cells[0].Source); got != "# Title" {
		t.Errorf("source = %q, want # Title", got)
	}
	if nb.NBFormat != 4 {
		t.Errorf("nbformat = %d, want default 4", nb.NBFormat)
	}
}

func TestLoad_NormalizesNewlines(t *testing.T) {
	path := writeNotebook(t, `{
		"cells": [{"cell_type": "code", "source": "a = 1\r\nb = 2\rc = 3"}]
	}`)

	nb, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := string(nb.Cells[0].Source); got != "a = 1\nb = 2\nc = 3" {
		t.Errorf("source = %q, want LF-normalized", got)
	}
}

func TestLoad_NullExecutionCount(t *testing.T) {
	path := writeNotebook(t, `{
		"cells": [{"cell_type": "code", "execution_count": null, "source": ""}]
	}`)

	nb, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if nb.Cells[0].ExecutionCount != nil {
		t.Errorf("execution_count = %v, want nil", nb.Cells[0].ExecutionCount)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.ipynb"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := writeNotebook(t, `{"cells": [`)
	if _, err := Load(path); !errors.Is(err, ErrParse) {
		t.Errorf("Load() error = %v, want ErrParse", err)
	}
}

func TestLoad_NonObjectDocument(t *testing.T) {
	for _, doc := range []string{`[]`, `null`, `"hi"`, ``} {
		path := writeNotebook(t, doc)
		if _, err := Load(path); !errors.Is(err, ErrParse) {
			t.Errorf("Load(%q) error = %v, want ErrParse", doc, err)
		}
	}
}

func TestStripOutputs(t *testing.T) {
	path := writeNotebook(t, `{
		"cells": [
			{"cell_type": "code", "execution_count": 1, "source": "x",
			 "outputs": [{"output_type": "stream", "text": "hi"}]},
			{"cell_type": "markdown", "source": "# md",
			 "outputs": [{"output_type": "stream", "text": "keep"}]}
		]
	}`)

	nb, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	nb.StripOutputs()

	if nb.Cells[0].Outputs != nil {
		t.Errorf("code cell outputs = %v, want nil", nb.Cells[0].Outputs)
	}
	if nb.Cells[0].ExecutionCount == nil {
		t.Error("execution_count cleared, want preserved")
	}
	if nb.Cells[1].Outputs == nil {
		t.Error("markdown outputs cleared, want untouched")
	}
}
