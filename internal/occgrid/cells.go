package occgrid

// Cell addresses one grid cell in pixel space.
type Cell struct {
	Row int
	Col int
}

// Cells is the flat cost array behind a Grid.
//
// Row r comes from pixel x and must lie in [0, Width); column c comes from
// pixel y and must lie in [0, Height). The storage offset is Width*c + r.
// This is the only place that mapping is written down.
type Cells struct {
	width  int
	height int
	values []int8
}

// NewCells allocates a zeroed height*width array.
func NewCells(height, width int) Cells {
	if height < 0 {
		height = 0
	}
	if width < 0 {
		width = 0
	}
	return Cells{width: width, height: height, values: make([]int8, height*width)}
}

// InBounds reports whether (row, col) addresses a stored cell.
func (c *Cells) InBounds(row, col int) bool {
	return row >= 0 && row < c.width && col >= 0 && col < c.height
}

// Offset returns the index of (row, col) in Values. It does not check
// bounds.
func (c *Cells) Offset(row, col int) int {
	return c.width*col + row
}

// Set writes v at (row, col). Writes outside the grid are dropped and
// report false.
func (c *Cells) Set(row, col int, v int8) bool {
	if !c.InBounds(row, col) {
		return false
	}
	c.values[c.Offset(row, col)] = v
	return true
}

// At returns the value at (row, col) and whether the cell exists.
func (c *Cells) At(row, col int) (int8, bool) {
	if !c.InBounds(row, col) {
		return 0, false
	}
	return c.values[c.Offset(row, col)], true
}

// Fill sets every cell to v.
func (c *Cells) Fill(v int8) {
	for i := range c.values {
		c.values[i] = v
	}
}

// Values is the backing array in storage order. Callers must not modify it.
func (c *Cells) Values() []int8 {
	return c.values
}

// Len is height*width.
func (c *Cells) Len() int {
	return len(c.values)
}
