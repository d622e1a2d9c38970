// Package geom provides the bounding-box math used by every layout stage.
package geom

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// BBox is an axis-aligned rectangle in page coordinates (Y grows downward).
// Use New to build one; it guarantees X2 >= X1 and Y2 >= Y1.
type BBox struct {
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
	X2 float64 `json:"x2" yaml:"x2"`
	Y2 float64 `json:"y2" yaml:"y2"`
}

// New creates a bounding box from two corners, swapping coordinates when needed
func New(x1, y1, x2, y2 float64) BBox {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Normalize returns b with its corners ordered
func (b BBox) Normalize() BBox {
	return New(b.X1, b.Y1, b.X2, b.Y2)
}

// Width returns the horizontal extent
func (b BBox) Width() float64 {
	return b.X2 - b.X1
}

// Height returns the vertical extent
func (b BBox) Height() float64 {
	return b.Y2 - b.Y1
}

// Area returns the area of the bounding box
func (b BBox) Area() float64 {
	return b.Width() * b.Height()
}

// IsDegenerate reports whether the box has zero width or zero height
func (b BBox) IsDegenerate() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Union returns the smallest box containing both boxes
func (b BBox) Union(other BBox) BBox {
	return BBox{
		X1: math.Min(b.X1, other.X1),
		Y1: math.Min(b.Y1, other.Y1),
		X2: math.Max(b.X2, other.X2),
		Y2: math.Max(b.Y2, other.Y2),
	}
}

// Intersection returns the overlapping region, or a zero box when disjoint
func (b BBox) Intersection(other BBox) BBox {
	x1 := math.Max(b.X1, other.X1)
	y1 := math.Max(b.Y1, other.Y1)
	x2 := math.Min(b.X2, other.X2)
	y2 := math.Min(b.Y2, other.Y2)
	if x2 < x1 || y2 < y1 {
		return BBox{}
	}
	return BBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// IoU returns intersection-over-union, 0 when the union has no area
func (b BBox) IoU(other BBox) float64 {
	inter := b.Intersection(other).Area()
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// XOverlapRatio returns the horizontal intersection width divided by the
// narrower of the two widths. It is 0 when either width is 0 or when the
// boxes do not overlap horizontally.
func (b BBox) XOverlapRatio(other BBox) float64 {
	wa, wb := b.Width(), other.Width()
	if wa <= 0 || wb <= 0 {
		return 0
	}
	inter := math.Min(b.X2, other.X2) - math.Max(b.X1, other.X1)
	if inter <= 0 {
		return 0
	}
	return inter / math.Min(wa, wb)
}

// VerticalGap returns the distance from the bottom of b to the top of below.
// Negative values mean the boxes overlap vertically.
func (b BBox) VerticalGap(below BBox) float64 {
	return below.Y1 - b.Y2
}

// UnionAll folds a slice of boxes into one. It returns a zero box for an empty slice.
func UnionAll(boxes []BBox) BBox {
	if len(boxes) == 0 {
		return BBox{}
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		out = out.Union(b)
	}
	return out
}

// String formats the box as [x1 y1 x2 y2]
func (b BBox) String() string {
	return fmt.Sprintf("[%.1f %.1f %.1f %.1f]", b.X1, b.Y1, b.X2, b.Y2)
}

// MarshalJSON encodes the box as a four-element array
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON accepts either [x1,y1,x2,y2] or {"x1":..,"y1":..,"x2":..,"y2":..}.
// Corners are normalized; malformed boxes are never rejected for ordering.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var arr []float64
	if err := json.Unmarshal(data, &arr); err == nil {
		if len(arr) != 4 {
			return fmt.Errorf("bbox: expected 4 coordinates, got %d", len(arr))
		}
		*b = New(arr[0], arr[1], arr[2], arr[3])
		return nil
	}

	var obj struct {
		X1 float64 `json:"x1"`
		Y1 float64 `json:"y1"`
		X2 float64 `json:"x2"`
		Y2 float64 `json:"y2"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	*b = New(obj.X1, obj.Y1, obj.X2, obj.Y2)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML documents
func (b *BBox) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var arr []float64
		if err := value.Decode(&arr); err != nil {
			return fmt.Errorf("bbox: %w", err)
		}
		if len(arr) != 4 {
			return fmt.Errorf("bbox: expected 4 coordinates, got %d", len(arr))
		}
		*b = New(arr[0], arr[1], arr[2], arr[3])
		return nil
	}

	var obj struct {
		X1 float64 `yaml:"x1"`
		Y1 float64 `yaml:"y1"`
		X2 float64 `yaml:"x2"`
		Y2 float64 `yaml:"y2"`
	}
	if err := value.Decode(&obj); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	*b = New(obj.X1, obj.Y1, obj.X2, obj.Y2)
	return nil
}
