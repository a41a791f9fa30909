package exr

import "strings"

// LayerSeparator splits a channel name into layer and channel parts.
const LayerSeparator = "."

// DefaultLayerLabel names the unnamed layer in listings and selections.
const DefaultLayerLabel = "default"

// Layer is a group of channels sharing a name prefix. Layers are derived
// from the channel list on demand and never stored.
type Layer struct {
	Name     string   // "" for the default layer
	Channels []string // full channel names
	Suffixes []string // names with the layer prefix removed
}

// Label returns Name, or DefaultLayerLabel for the default layer.
func (l Layer) Label() string {
	if l.Name == "" {
		return DefaultLayerLabel
	}
	return l.Name
}

// Channel returns the full name of the channel with the given suffix.
func (l Layer) Channel(suffix string) (string, bool) {
	for i, s := range l.Suffixes {
		if s == suffix {
			return l.Channels[i], true
		}
	}
	return "", false
}

// SplitChannelName splits at the first separator. Names without one
// belong to the default layer.
func SplitChannelName(name string) (layer, channel string) {
	layer, channel, ok := strings.Cut(name, LayerSeparator)
	if !ok {
		return "", name
	}
	return layer, channel
}

// DeriveLayers groups channel names into layers, ordered by first
// appearance.
func DeriveLayers(names []string) []Layer {
	var layers []Layer
	index := make(map[string]int)
	for _, name := range names {
		ln, suffix := SplitChannelName(name)
		i, ok := index[ln]
		if !ok {
			i = len(layers)
			index[ln] = i
			layers = append(layers, Layer{Name: ln})
		}
		layers[i].Channels = append(layers[i].Channels, name)
		layers[i].Suffixes = append(layers[i].Suffixes, suffix)
	}
	return layers
}

// FindLayer returns the layer whose Label or Name equals name.
func FindLayer(layers []Layer, name string) (Layer, bool) {
	for _, l := range layers {
		if l.Name == name || l.Label() == name {
			return l, true
		}
	}
	return Layer{}, false
}
