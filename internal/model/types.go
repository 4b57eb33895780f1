package model

// Element is a named model entity (an ArchiMate-style concept node).
type Element struct {
	ID            string
	Type          string
	Name          string
	Documentation string
	Folder        string // owning folder ID, empty for the model root
	Properties    map[string]string
}

// Relationship connects two elements. Source and Target are element IDs.
type Relationship struct {
	ID            string
	Type          string
	Name          string
	Documentation string
	Source        string
	Target        string
	Properties    map[string]string
}

// Folder groups elements and views in the model tree.
type Folder struct {
	ID     string
	Name   string
	Parent string // parent folder ID, empty for the model root
}

// View is a diagram surface onto which elements are placed.
type View struct {
	ID     string
	Name   string
	Folder string
}

// ObjectKind distinguishes the things that can be placed on a view.
type ObjectKind string

const (
	ObjectElement ObjectKind = "element"
	ObjectNote    ObjectKind = "note"
	ObjectGroup   ObjectKind = "group"
)

// ViewObject is one placed occurrence on a view. Element is set only for
// ObjectElement kinds; Text only for notes; Name only for groups. Parent
// is the enclosing object ID when the object is nested inside a group or
// another element occurrence.
type ViewObject struct {
	ID      string
	View    string
	Kind    ObjectKind
	Element string
	Text    string
	Name    string
	Parent  string
	Bounds  Bounds
	Style   Style
}

// ViewConnection is the visual occurrence of a relationship between two
// placed objects on the same view.
type ViewConnection struct {
	ID           string
	View         string
	Relationship string
	SourceObject string
	TargetObject string
	Style        Style
}

// Bounds is an object's position and size on a view, in pixels.
type Bounds struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Style carries the visual attributes a change may set on an object or
// connection. Zero values mean "leave the host default in place".
type Style struct {
	FillColor string `json:"fillColor,omitempty"`
	LineColor string `json:"lineColor,omitempty"`
	FontColor string `json:"fontColor,omitempty"`
	LineWidth int    `json:"lineWidth,omitempty"`
	FontSize  int    `json:"fontSize,omitempty"`
	Opacity   int    `json:"opacity,omitempty"`
}

// merge returns s overlaid with the non-zero fields of o.
func (s Style) merge(o Style) Style {
	if o.FillColor != "" {
		s.FillColor = o.FillColor
	}
	if o.LineColor != "" {
		s.LineColor = o.LineColor
	}
	if o.FontColor != "" {
		s.FontColor = o.FontColor
	}
	if o.LineWidth != 0 {
		s.LineWidth = o.LineWidth
	}
	if o.FontSize != 0 {
		s.FontSize = o.FontSize
	}
	if o.Opacity != 0 {
		s.Opacity = o.Opacity
	}
	return s
}
