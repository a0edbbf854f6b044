package document

// PixelToMM converts a pixel length at 96 DPI to millimetres.
const PixelToMM = 0.264583

type Orientation string

const (
	Portrait  Orientation = "P"
	Landscape Orientation = "L"
)

func (o Orientation) String() string {
	if o == Landscape {
		return "Landscape"
	}
	return "Portrait"
}

// Size is a width/height pair in millimetres.
type Size struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// PageSizes bounds the placed image per orientation.
type PageSizes struct {
	Portrait  Size `yaml:"portrait" json:"portrait"`
	Landscape Size `yaml:"landscape" json:"landscape"`
}

// A4 is the ISO A4 page in both orientations.
var A4 = PageSizes{
	Portrait:  Size{Width: 210, Height: 297},
	Landscape: Size{Width: 297, Height: 210},
}

func (p PageSizes) Bound(o Orientation) Size {
	if o == Landscape {
		return p.Landscape
	}
	return p.Portrait
}

// Layout is where and how large one image lands on its page.
type Layout struct {
	Orientation Orientation
	Width       float64
	Height      float64
}

// Resolve converts pixel dimensions to millimetres, picks the orientation and
// clamps each axis to the page bound independently. Aspect ratio is not kept
// when an axis is clamped.
func Resolve(widthPx, heightPx int, sizes PageSizes) Layout {
	w := float64(widthPx) * PixelToMM
	h := float64(heightPx) * PixelToMM

	o := Landscape
	if w < h {
		o = Portrait
	}

	bound := sizes.Bound(o)

	return Layout{
		Orientation: o,
		Width:       min(w, bound.Width),
		Height:      min(h, bound.Height),
	}
}
