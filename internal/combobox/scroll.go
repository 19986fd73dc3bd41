package combobox

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

type ScrollBehavior string

const (
	ScrollInstant ScrollBehavior = "instant"
	ScrollSmooth  ScrollBehavior = "smooth"
)

// ScrollRequest tells the host how to bring the active option into view.
// A zero request means the option is already fully visible.
type ScrollRequest struct {
	Needed   bool           `json:"needed"`
	Behavior ScrollBehavior `json:"behavior,omitempty"`
	// Block is where the item should land: "start" when it is above the
	// visible region, "end" when below.
	Block string `json:"block,omitempty"`
}

// ScrollIntoView compares the item's box with the container's visible box.
func ScrollIntoView(item, container Rect, reducedMotion bool) ScrollRequest {
	var block string
	switch {
	case item.Top < container.Top:
		block = "start"
	case item.Bottom > container.Bottom:
		block = "end"
	default:
		return ScrollRequest{}
	}
	behavior := ScrollSmooth
	if reducedMotion {
		behavior = ScrollInstant
	}
	return ScrollRequest{Needed: true, Behavior: behavior, Block: block}
}
