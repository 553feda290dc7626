package leaflet

// Options is an opaque option bag passed through to Leaflet constructors.
type Options map[string]any

// Merge copies every key of src into o, overwriting existing keys.
// It returns o, allocating it when nil.
func (o Options) Merge(src Options) Options {
	if o == nil {
		o = make(Options, len(src))
	}
	for k, v := range src {
		o[k] = v
	}
	return o
}

// Clone returns a shallow copy, or nil for an empty bag.
func (o Options) Clone() Options {
	if len(o) == 0 {
		return nil
	}
	return Options{}.Merge(o)
}

// String returns a string option, or "" if absent or not a string.
func (o Options) String(key string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Strings returns a list option. A plain string is split into its characters,
// which is how Leaflet reads "subdomains": "abc".
func (o Options) Strings(key string) []string {
	switch v := o[key].(type) {
	case string:
		out := make([]string, 0, len(v))
		for _, r := range v {
			out = append(out, string(r))
		}
		return out
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
