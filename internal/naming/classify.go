package naming

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// ContentKind is the semantic role of a texture.
type ContentKind int

const (
	ContentUnknown ContentKind = iota
	ContentAlbedo
	ContentNormal
	ContentSDF
	ContentMetalRoughness
	ContentMask
	ContentHeight
)

// ContentKinds lists every kind in declaration order.
var ContentKinds = []ContentKind{
	ContentUnknown, ContentAlbedo, ContentNormal, ContentSDF,
	ContentMetalRoughness, ContentMask, ContentHeight,
}

func (k ContentKind) String() string {
	switch k {
	case ContentAlbedo:
		return "albedo"
	case ContentNormal:
		return "normal"
	case ContentSDF:
		return "sdf"
	case ContentMetalRoughness:
		return "metal"
	case ContentMask:
		return "mask"
	case ContentHeight:
		return "height"
	default:
		return "unknown"
	}
}

// ParseContentKind maps a String() name back to its kind.
func ParseContentKind(s string) (ContentKind, bool) {
	for _, k := range ContentKinds {
		if k.String() == s {
			return k, true
		}
	}
	return ContentUnknown, false
}

// Topology is the dimensionality/arrangement of a texture.
type Topology int

const (
	Tex2D Topology = iota
	Tex3D
	Cube
	Tex1DArray
	Tex2DArray
	CubeArray
)

func (t Topology) String() string {
	switch t {
	case Tex3D:
		return "3d"
	case Cube:
		return "cube"
	case Tex1DArray:
		return "1darray"
	case Tex2DArray:
		return "2darray"
	case CubeArray:
		return "cubearray"
	default:
		return "2d"
	}
}

// AtlasChunks is the column x row grid of sub-images packed into a 2D array
// texture. The zero value means "not an atlas".
type AtlasChunks struct {
	X int
	Y int
}

// IsAtlas reports whether both axes were parsed.
func (c AtlasChunks) IsAtlas() bool { return c.X > 0 && c.Y > 0 }

func (c AtlasChunks) String() string {
	return strconv.Itoa(c.X) + "x" + strconv.Itoa(c.Y)
}

// Classification is derived deterministically from a file name and never
// mutated afterwards.
type Classification struct {
	Content  ContentKind
	Topology Topology
	Chunks   AtlasChunks
}

// contentRule maps name suffixes to a content kind. Evaluated in order; the
// first rule with a matching suffix wins.
type contentRule struct {
	suffixes []string
	kind     ContentKind
}

var contentRules = []contentRule{
	{[]string{"-metal"}, ContentMetalRoughness},
	{[]string{"-mask"}, ContentMask},
	{[]string{"-sdf"}, ContentSDF},
	{[]string{"-a", "-albedo"}, ContentAlbedo},
	{[]string{"-n", "-normal"}, ContentNormal},
	{[]string{"-h", "-height"}, ContentHeight},
}

// topologyRule maps a substring token to a topology. Evaluated in order.
// Longer tokens that contain a shorter one must come first: "-cubearray"
// precedes "-cube".
type topologyRule struct {
	token    string
	topology Topology
}

var topologyRules = []topologyRule{
	{"-3d", Tex3D},
	{"-cubearray", CubeArray},
	{"-cube", Cube},
	{"-1darray", Tex1DArray},
	{"-2darray", Tex2DArray},
}

var reAtlas = regexp.MustCompile(`-atlas([0-9]+)x([0-9]+)`)

// Classify maps a file base name (with or without extension) to its
// classification. It is total: names matching no pattern resolve to
// ContentUnknown / Tex2D with no atlas layout.
func Classify(baseName string) Classification {
	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	// A Caser is stateful, so each call gets its own.
	name := cases.Fold().String(stem)

	c := Classification{
		Content:  classifyContent(name),
		Topology: classifyTopology(name),
	}
	if c.Topology == Tex2DArray {
		c.Chunks = parseAtlas(name)
	}
	return c
}

func classifyContent(name string) ContentKind {
	for _, r := range contentRules {
		for _, s := range r.suffixes {
			if strings.HasSuffix(name, s) {
				return r.kind
			}
		}
	}
	return ContentUnknown
}

func classifyTopology(name string) Topology {
	for _, r := range topologyRules {
		if strings.Contains(name, r.token) {
			return r.topology
		}
	}
	return Tex2D
}

// parseAtlas extracts "-atlas<X>x<Y>". Out-of-range or zero counts yield the
// zero layout.
func parseAtlas(name string) AtlasChunks {
	m := reAtlas.FindStringSubmatch(name)
	if m == nil {
		return AtlasChunks{}
	}
	x, errX := strconv.Atoi(m[1])
	y, errY := strconv.Atoi(m[2])
	if errX != nil || errY != nil || x <= 0 || y <= 0 {
		return AtlasChunks{}
	}
	return AtlasChunks{X: x, Y: y}
}
