package pysrc

import (
	"context"
	"reflect"
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		defines []string
		uses    []string
		imports []string
	}{
		{
			name: "imports defs and free names",
			src: `
import os
from math import sqrt as sq

x = 1

def foo(a):
    return x + a + sq(4)
`,
			defines: []string{"a", "foo", "os", "sq", "x"},
			uses:    []string{},
			imports: []string{"math:sqrt", "os"},
		},
		{
			name:    "dotted import binds first segment",
			src:     "import os.path",
			defines: []string{"os"},
			uses:    []string{},
			imports: []string{"os.path"},
		},
		{
			name:    "dotted import with alias",
			src:     "import numpy.linalg as la",
			defines: []string{"la"},
			uses:    []string{},
			imports: []string{"numpy.linalg"},
		},
		{
			name:    "relative import without module",
			src:     "from . import helper",
			defines: []string{"helper"},
			uses:    []string{},
			imports: []string{"helper"},
		},
		{
			name:    "relative import with package",
			src:     "from .pkg import tool",
			defines: []string{"tool"},
			uses:    []string{},
			imports: []string{"pkg:tool"},
		},
		{
			name:    "star import ignored",
			src:     "from os import *",
			defines: []string{},
			uses:    []string{},
			imports: []string{},
		},
		{
			name:    "simple use",
			src:     "y = x + 1",
			defines: []string{"y"},
			uses:    []string{"x"},
			imports: []string{},
		},
		{
			name:    "augmented assignment binds target",
			src:     "x += 1",
			defines: []string{"x"},
			uses:    []string{},
			imports: []string{},
		},
		{
			name:    "for loop target",
			src:     "for i in items:\n    total += i\n",
			defines: []string{"i", "total"},
			uses:    []string{"items"},
			imports: []string{},
		},
		{
			name:    "attribute target reads its base",
			src:     "obj.attr = val",
			defines: []string{},
			uses:    []string{"obj", "val"},
			imports: []string{},
		},
		{
			name:    "subscript target reads base and index",
			src:     "d[k] = v",
			defines: []string{},
			uses:    []string{"d", "k", "v"},
			imports: []string{},
		},
		{
			name:    "keyword argument name is not a use",
			src:     "f(x=1)",
			defines: []string{},
			uses:    []string{"f"},
			imports: []string{},
		},
		{
			name:    "parameter defaults are uses",
			src:     "def g(a, b=c):\n    pass\n",
			defines: []string{"a", "b", "g"},
			uses:    []string{"c"},
			imports: []string{},
		},
		{
			name:    "class with base",
			src:     "class Foo(Base):\n    pass\n",
			defines: []string{"Foo"},
			uses:    []string{"Base"},
			imports: []string{},
		},
		{
			name:    "walrus binds",
			src:     "if (n := compute()):\n    print(n)\n",
			defines: []string{"n"},
			uses:    []string{"compute", "print"},
			imports: []string{},
		},
		{
			name:    "lambda parameters bind",
			src:     "f = lambda u: u + v",
			defines: []string{"f", "u"},
			uses:    []string{"v"},
			imports: []string{},
		},
		{
			name:    "with as target binds",
			src:     "with open(p) as fh:\n    data = fh.read()\n",
			defines: []string{"data", "fh"},
			uses:    []string{"open", "p"},
			imports: []string{},
		},
		{
			name:    "comprehension target binds at cell scope",
			src:     "squares = [x * x for x in range(10)]",
			defines: []string{"squares", "x"},
			uses:    []string{"range"},
			imports: []string{},
		},
		{
			name:    "fstring interpolation is a use",
			src:     `msg = f"{value}!"`,
			defines: []string{"msg"},
			uses:    []string{"value"},
			imports: []string{},
		},
		{
			name:    "del is neither",
			src:     "del tmp",
			defines: []string{},
			uses:    []string{},
			imports: []string{},
		},
		{
			name:    "unparseable source degrades to empty",
			src:     "def broken(:",
			defines: []string{},
			uses:    []string{},
			imports: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(context.Background(), tt.src)

			if !reflect.DeepEqual(s.Defines, tt.defines) {
				t.Errorf("defines = %v, want %v", s.Defines, tt.defines)
			}
			if !reflect.DeepEqual(s.Uses, tt.uses) {
				t.Errorf("uses = %v, want %v", s.Uses, tt.uses)
			}
			if !reflect.DeepEqual(s.Imports, tt.imports) {
				t.Errorf("imports = %v, want %v", s.Imports, tt.imports)
			}
		})
	}
}

func TestSummarize_UseBeforeInCellDefinitionIsExcluded(t *testing.T) {
	// Flat per-cell scope: a name used above its own definition in the
	// same cell still does not count as a dependency on another cell.
	s := Summarize(context.Background(), "print(z)\nz = 1\n")

	for _, u := range s.Uses {
		if u == "z" {
			t.Errorf("uses = %v, z should be excluded", s.Uses)
		}
	}
	if !reflect.DeepEqual(s.Defines, []string{"z"}) {
		t.Errorf("defines = %v, want [z]", s.Defines)
	}
}

func TestSummarize_EmptySource(t *testing.T) {
	s := Summarize(context.Background(), "")

	if len(s.Defines)+len(s.Uses)+len(s.Imports) != 0 {
		t.Errorf("Summarize(\"\") = %+v, want all empty", s)
	}
}
