package grid

// registerRPC sets up the methods the client may invoke on a grid.
func (g *Grid) registerRPC() {
	g.RegisterRPC("select", g.applySelection)
	g.RegisterRPC("selectAll", g.applySelectAll)
	g.RegisterRPC("sort", g.clientSort)
	g.RegisterRPC("requestRows", g.rows.requestRows)
	g.RegisterRPC("setActiveRange", func(first, count int) error {
		if first < 0 || count < 0 {
			return illegalArgument("invalid row range %d+%d", first, count)
		}
		g.rows.setActiveRange(first, count)
		return nil
	})
	g.RegisterRPC("itemClick", g.rows.itemClicked)
	g.RegisterRPC("columnResized", g.columnResized)
	g.RegisterRPC("editorBind", g.editor.clientBind)
	g.RegisterRPC("editorSave", g.editor.clientSave)
	g.RegisterRPC("editorCancel", g.editor.clientCancel)
}

func (g *Grid) columnResized(columnKey string, width float64) error {
	col := g.columnByKey(columnKey)
	if col == nil {
		return illegalArgument("unknown column key %q", columnKey)
	}
	if width < 0 {
		return illegalArgument("column width cannot be negative, got %v", width)
	}
	col.state.Width = width
	g.MarkAsDirty()
	g.resizeListeners.Fire(ColumnResizeEvent{Column: col, UserOriginated: true})
	return nil
}
