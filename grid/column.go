package grid

import (
	"github.com/CrimsonAS/qgrid/field"
	"github.com/CrimsonAS/qgrid/renderer"
	"github.com/CrimsonAS/qgrid/state"
)

// Column shows one property of the data source. A column removed from its
// grid returns ErrIllegalState from every mutation.
type Column struct {
	grid       *Grid
	propertyID interface{}
	key        string
	state      *state.ColumnState
	renderer   renderer.Renderer
}

func (c *Column) checkAttached() error {
	if c.grid == nil || c.grid.columns[c.propertyID] != c {
		return illegalState("column of property %v is no longer attached to a grid", c.propertyID)
	}
	return nil
}

func (c *Column) PropertyID() interface{} {
	return c.propertyID
}

// Key identifies the column to the client.
func (c *Column) Key() string {
	return c.key
}

func (c *Column) HeaderCaption() string {
	return c.state.Header
}

// SetHeaderCaption also updates the column's cell in the default header row,
// unless it's joined with other cells.
func (c *Column) SetHeaderCaption(caption string) error {
	if err := c.checkAttached(); err != nil {
		return err
	}
	c.setHeaderCaption(caption)
	return nil
}

func (c *Column) setHeaderCaption(caption string) {
	c.state.Header = caption
	if row := c.grid.header.defaultRow; row != nil {
		if cell := row.cells[c.key]; cell != nil {
			cell.setText(caption)
		}
	}
	c.grid.MarkAsDirty()
}

func (c *Column) FooterCaption() string {
	return c.state.Footer
}

func (c *Column) SetFooterCaption(caption string) error {
	if err := c.checkAttached(); err != nil {
		return err
	}
	c.state.Footer = caption
	c.grid.MarkAsDirty()
	return nil
}

// Width is in pixels, or negative when the column is sized by its content.
func (c *Column) Width() float64 {
	return c.state.Width
}

func (c *Column) SetWidth(pixels float64) error {
	if err := c.checkAttached(); err != nil {
		return err
	}
	if pixels < 0 {
		return illegalArgument("column width cannot be negative, got %v", pixels)
	}
	c.state.Width = pixels
	c.grid.MarkAsDirty()
	return nil
}

func (c *Column) SetWidthUndefined() error {
	if err := c.checkAttached(); err != nil {
		return err
	}
	c.state.Width = -1
	c.grid.MarkAsDirty()
	return nil
}

func (c *Column) Visible() bool {
	return c.state.Visible
}

func (c *Column) SetVisible(visible bool) error {
	if err := c.checkAttached(); err != nil {
		return err
	}
	c.state.Visible = visible
	c.grid.MarkAsDirty()
	return nil
}

func (c *Column) Sortable() bool {
	return c.state.Sortable
}

// SetSortable fails with ErrIllegalState when making the column sortable
// while the data source can't sort by its property.
func (c *Column) SetSortable(sortable bool) error {
	if err := c.checkAttached(); err != nil {
		return err
	}
	if sortable && !c.grid.propertySortable(c.propertyID) {
		return illegalState("data source cannot sort by property %v", c.propertyID)
	}
	c.state.Sortable = sortable
	c.grid.MarkAsDirty()
	return nil
}

func (c *Column) Editable() bool {
	return c.state.Editable
}

// SetEditable can't be used while the editor is open.
func (c *Column) SetEditable(editable bool) error {
	if err := c.checkAttached(); err != nil {
		return err
	}
	if c.grid.editor.Editing() {
		return illegalState("cannot change editability while the editor is open")
	}
	c.state.Editable = editable
	c.grid.MarkAsDirty()
	return nil
}

// EditorField returns the field editing this column, building one with the
// editor's field factory when none is set.
func (c *Column) EditorField() (field.Field, error) {
	if err := c.checkAttached(); err != nil {
		return nil, err
	}
	return c.grid.editor.Field(c.propertyID)
}

func (c *Column) SetEditorField(f field.Field) error {
	if err := c.checkAttached(); err != nil {
		return err
	}
	return c.grid.editor.SetField(c.propertyID, f)
}

func (c *Column) Renderer() renderer.Renderer {
	return c.renderer
}

// SetRenderer fails with ErrIllegalArgument when r can't present the
// property's type, or when r is an Extension attached to another column.
func (c *Column) SetRenderer(r renderer.Renderer) error {
	if err := c.checkAttached(); err != nil {
		return err
	}
	if r == nil {
		return illegalArgument("renderer cannot be nil")
	}
	if r == c.renderer {
		return nil
	}
	if t := c.grid.dataSource.Type(c.propertyID); !renderer.Compatible(r, t) {
		return illegalArgument("renderer %s presents %s and cannot show property %v of type %s",
			r.Name(), r.PresentationType(), c.propertyID, t)
	}
	if ext, ok := r.(renderer.Extension); ok && ext.Attached() {
		return illegalArgument("renderer %s is already attached to a column", r.Name())
	}
	c.setRenderer(r)
	c.grid.rows.columnsChanged()
	return nil
}

func (c *Column) setRenderer(r renderer.Renderer) {
	if ext, ok := c.renderer.(renderer.Extension); ok {
		ext.Detach()
	}
	c.renderer = r
	if ext, ok := r.(renderer.Extension); ok {
		ext.Attach(c.key)
	}
	c.state.Renderer = r.Name()
	c.grid.MarkAsDirty()
}
