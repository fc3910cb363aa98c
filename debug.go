package needlekit

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

type BindingInfo struct {
	Key          Key
	Origin       string
	Module       string
	Scope        string
	Dependencies []Key
}

// Describe lists the bindings of set in their composition order.
func Describe(set *BindingSet) []BindingInfo {
	infos := make([]BindingInfo, 0, set.Len())
	for b := range set.All() {
		infos = append(
			infos, BindingInfo{
				Key:          b.Key,
				Origin:       b.Origin.String(),
				Module:       b.Module,
				Scope:        b.Scope.String(),
				Dependencies: append([]Key(nil), b.Dependencies...),
			},
		)
	}
	return infos
}

func PrintBindings(set *BindingSet) {
	FprintBindings(os.Stdout, set)
}

func FprintBindings(w io.Writer, set *BindingSet) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Key", "Origin", "Module", "Scope", "Depends On"})

	for i, info := range Describe(set) {
		deps := make([]string, len(info.Dependencies))
		for j, d := range info.Dependencies {
			deps[j] = string(d)
		}
		t.AppendRow(table.Row{i + 1, info.Key, info.Origin, info.Module, info.Scope, strings.Join(deps, ", ")})
	}

	t.Render()
}

func SprintBindings(set *BindingSet) string {
	var sb strings.Builder
	FprintBindings(&sb, set)
	return sb.String()
}

func FprintBindingsDOT(w io.Writer, set *BindingSet) {
	_, _ = fmt.Fprintln(w, "digraph bindings {")
	_, _ = fmt.Fprintln(w, "  rankdir=LR;")
	_, _ = fmt.Fprintln(w, "  node [shape=box];")

	for b := range set.All() {
		style := ""
		switch b.Origin {
		case OriginOverride:
			style = ", style=filled, fillcolor=lightsalmon"
		case OriginExtension:
			style = ", style=filled, fillcolor=lightblue"
		case OriginConditional:
			style = ", style=filled, fillcolor=lightyellow"
		}
		_, _ = fmt.Fprintf(w, "  %q [label=%q%s];\n", b.Key, b.Key.String()+" ("+b.Module+")", style)
	}

	_, _ = fmt.Fprintln(w)

	for b := range set.All() {
		for _, dep := range b.Dependencies {
			_, _ = fmt.Fprintf(w, "  %q -> %q;\n", b.Key, dep)
		}
	}

	_, _ = fmt.Fprintln(w, "}")
}

func SprintBindingsDOT(set *BindingSet) string {
	var sb strings.Builder
	FprintBindingsDOT(&sb, set)
	return sb.String()
}
