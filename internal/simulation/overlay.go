package simulation

// Preview window geometry of the draggable camera overlay.
const (
	PreviewWidth  = 200
	PreviewHeight = 150

	previewMarginRight  = 24
	previewMarginBottom = 96
)

// Point is a pixel position in viewport coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Overlay tracks the position of the live preview while it is dragged.
// It is presentational state only and never touches the controller.
type Overlay struct {
	pos       Point
	viewportW int
	viewportH int

	dragging  bool
	dragStart Point
	dragFrom  Point
}

// NewOverlay places the preview in the bottom-right corner of the viewport.
func NewOverlay(viewportW, viewportH int) *Overlay {
	o := &Overlay{viewportW: viewportW, viewportH: viewportH}
	o.pos = o.clamp(Point{
		X: viewportW - PreviewWidth - previewMarginRight,
		Y: viewportH - PreviewHeight - previewMarginBottom,
	})
	return o
}

// Position returns the current top-left corner of the preview.
func (o *Overlay) Position() Point { return o.pos }

// Dragging reports whether a drag is in progress.
func (o *Overlay) Dragging() bool { return o.dragging }

// Resize updates the viewport and re-clamps the preview into it.
func (o *Overlay) Resize(viewportW, viewportH int) Point {
	if viewportW > 0 {
		o.viewportW = viewportW
	}
	if viewportH > 0 {
		o.viewportH = viewportH
	}
	o.pos = o.clamp(o.pos)
	return o.pos
}

// BeginDrag records the pointer position a drag starts from.
func (o *Overlay) BeginDrag(pointer Point) {
	o.dragging = true
	o.dragStart = pointer
	o.dragFrom = o.pos
}

// DragTo moves the preview by the pointer delta since BeginDrag.
func (o *Overlay) DragTo(pointer Point) Point {
	if !o.dragging {
		return o.pos
	}
	o.pos = o.clamp(Point{
		X: o.dragFrom.X + pointer.X - o.dragStart.X,
		Y: o.dragFrom.Y + pointer.Y - o.dragStart.Y,
	})
	return o.pos
}

// EndDrag finishes the drag and returns the final position.
func (o *Overlay) EndDrag() Point {
	o.dragging = false
	return o.pos
}

func (o *Overlay) clamp(p Point) Point {
	maxX := o.viewportW - PreviewWidth
	maxY := o.viewportH - PreviewHeight
	p.X = max(0, min(p.X, maxX))
	p.Y = max(0, min(p.Y, maxY))
	return p
}
