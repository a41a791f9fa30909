package exrmeta

import (
	"slices"
	"strings"

	"github.com/mrjoshuak/go-exredit/exr"
)

// Stereo view names.
const (
	ViewLeft  = "left"
	ViewRight = "right"
)

// SetMultiView lists the views stored in a single part. The first view is
// the default view.
func SetMultiView(a Attributes, views []string) error {
	return set(a, AttrMultiView, exr.TypeStringVector, slices.Clone(views))
}

// MultiView returns the views of a single multi-view part.
func MultiView(a Attributes) []string {
	v, _ := get[[]string](a, AttrMultiView)
	return v
}

// SetView names the view a part of a multi-part file holds.
func SetView(a Attributes, view string) error {
	return set(a, exr.AttrView, exr.TypeString, view)
}

// View returns the view of a part, or "".
func View(a Attributes) string { return getString(a, exr.AttrView) }

// Views returns the views of doc in order of first appearance: the view
// attributes of its parts, else the multiView list of its first part.
func Views(doc *exr.Document) []string {
	var views []string
	for _, p := range doc.Parts() {
		if v := View(p); v != "" && !slices.Contains(views, v) {
			views = append(views, v)
		}
	}
	if len(views) > 0 || doc.Len() == 0 {
		return views
	}
	p, _ := doc.Part(0)
	return MultiView(p)
}

// IsStereo reports whether doc holds both a left and a right view.
func IsStereo(doc *exr.Document) bool {
	v := Views(doc)
	return slices.Contains(v, ViewLeft) && slices.Contains(v, ViewRight)
}

// PartsByView returns the parts whose view attribute is view.
func PartsByView(doc *exr.Document, view string) []*exr.Part {
	var out []*exr.Part
	for _, p := range doc.Parts() {
		if View(p) == view {
			out = append(out, p)
		}
	}
	return out
}

// ViewChannel is a channel name split into layer, view and base name.
type ViewChannel struct {
	Layer   string
	View    string // "" for the default view
	Channel string
}

// ParseViewChannel splits a channel name of the form [layer.][view.]channel.
// A component is taken as a view only if it appears in views.
func ParseViewChannel(name string, views []string) ViewChannel {
	parts := strings.Split(name, ".")
	n := len(parts)
	if n == 1 {
		return ViewChannel{Channel: name}
	}
	if slices.Contains(views, parts[n-2]) {
		return ViewChannel{Layer: strings.Join(parts[:n-2], "."), View: parts[n-2], Channel: parts[n-1]}
	}
	return ViewChannel{Layer: strings.Join(parts[:n-1], "."), Channel: parts[n-1]}
}

// String joins the non-empty components.
func (v ViewChannel) String() string {
	var parts []string
	for _, s := range []string{v.Layer, v.View, v.Channel} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ".")
}

// ViewChannels returns the channels of a multi-view part that belong to
// view. Channels without a view prefix belong to the default view.
func ViewChannels(p *exr.Part, view string) []string {
	views := MultiView(p)
	def := ""
	if len(views) > 0 {
		def = views[0]
	}
	var out []string
	for _, name := range p.Channels().Names() {
		vc := ParseViewChannel(name, views)
		if vc.View == view || (vc.View == "" && view == def) {
			out = append(out, name)
		}
	}
	return out
}
