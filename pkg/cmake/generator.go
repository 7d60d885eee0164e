package cmake

import "github.com/tidwall/gjson"

// ExtractGenerator returns the build-system generator named by an index
// document, or "" when it cannot be determined. Known shapes are tried in
// order: cmake.generator as a string, cmake.generator.name, then
// cmake.cmakeGenerator. Shape mismatches never fail.
func ExtractGenerator(index []byte) string {
	if !gjson.ValidBytes(index) {
		return ""
	}
	cmake := gjson.GetBytes(index, "cmake")
	if !cmake.IsObject() {
		return ""
	}

	gen := cmake.Get("generator")
	switch {
	case gen.Type == gjson.String:
		return gen.Str
	case gen.IsObject():
		if name := gen.Get("name"); name.Type == gjson.String && name.Str != "" {
			return name.Str
		}
	}

	if alt := cmake.Get("cmakeGenerator"); alt.Type == gjson.String {
		return alt.Str
	}
	return ""
}

// ExtractCMakeVersion returns cmake.version.string from an index document, if present
func ExtractCMakeVersion(index []byte) string {
	v := gjson.GetBytes(index, "cmake.version.string")
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}
