package kernel

// Cell is a caller-provided slot for exactly one T. It stands in for the
// statically reserved, boot-time-only memory a heap-free kernel builds its
// driver graph from: a cell is declared by assembly code, written once, and
// the resulting pointer is stable for the remaining life of the process.
//
// Put on an already-initialized cell is a kernel-assembly bug and stops the
// program deterministically rather than aliasing or reusing the slot.
type Cell[T any] struct {
	v    T
	done bool
}

// NewCell returns an empty cell. Cells are intended to be created in board
// assembly code immediately before a component Finalize consumes them.
func NewCell[T any]() *Cell[T] { return &Cell[T]{} }

// Put performs the cell's single initialize transition and returns the
// long-lived pointer to the stored value.
func (c *Cell[T]) Put(v T) *T {
	if c.done {
		panic("kernel: static cell written twice")
	}
	c.done = true
	c.v = v
	return &c.v
}

// Initialized reports whether the cell has been consumed.
func (c *Cell[T]) Initialized() bool { return c.done }
