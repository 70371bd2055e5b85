package options

import "sort"

// Kind is the type a registered property value is coerced to.
type Kind int

const (
	KindFloat Kind = iota
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Property is one entry of the permissible-property registry.
type Property struct {
	Name string
	Kind Kind
	Hint string
}

const (
	EventSlices   = "EventSlices"
	MergeScale    = "MergeScale"
	MergeShift    = "MergeShift"
	WavelengthMax = "WavelengthMax"
	WavelengthMin = "WavelengthMin"
)

// registry is fixed at compile time. Changing it changes which override
// strings older batch files can carry, so treat edits as a format change.
var registry = map[string]Property{
	EventSlices: {
		Name: EventSlices,
		Kind: KindString,
		Hint: "The event slices to reduce. The format is the same as for the event slices box in settings, " +
			"however if a comma separated list is given it must be enclosed in quotes",
	},
	MergeScale: {
		Name: MergeScale,
		Kind: KindFloat,
		Hint: "The scale applied to the HAB when merging",
	},
	MergeShift: {
		Name: MergeShift,
		Kind: KindFloat,
		Hint: "The shift applied to the HAB when merging",
	},
	WavelengthMax: {
		Name: WavelengthMax,
		Kind: KindFloat,
		Hint: "The max value of the wavelength when converting from TOF.",
	},
	WavelengthMin: {
		Name: WavelengthMin,
		Kind: KindFloat,
		Hint: "The min value of the wavelength when converting from TOF.",
	},
}

// Lookup returns the registered property called name.
func Lookup(name string) (Property, bool) {
	p, ok := registry[name]
	return p, ok
}

// Registry returns every registered property sorted by name.
func Registry() []Property {
	res := make([]Property, 0, len(registry))
	for _, p := range registry {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})

	return res
}

// Hints maps each registered property to its tool-tip text.
func Hints() map[string]string {
	res := make(map[string]string, len(registry))
	for name, p := range registry {
		res[name] = p.Hint
	}

	return res
}
