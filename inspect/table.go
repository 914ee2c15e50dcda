package inspect

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteTable renders t as a text table, one row per node.
func WriteTable(w io.Writer, t *Tree) {
	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("%s @ %s", t.Name, t.Dispatcher))
	tbl.SetOutputMirror(w)
	tbl.AppendHeader(table.Row{"node", "parent", "key", "type", "type id", "value", "adopted"})
	for _, n := range t.Nodes {
		tbl.AppendRow(table.Row{
			n.ID,
			n.Parent,
			n.Key,
			n.Type,
			fmt.Sprintf("%016x", n.TypeID),
			n.Value,
			n.Adopted,
		})
	}
	tbl.Render()
}
