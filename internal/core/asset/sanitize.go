// Package asset guards the names under which uploaded item pictures are
// persisted. The core never stores bytes; it only produces a name the
// storage collaborator can trust.
package asset

// DefaultImage is the reference used when no asset is supplied or the
// supplied name has no usable extension.
const DefaultImage = "default_img.png"

const disallowed = "{}[]()%$#!/&=?+*^."

// Sanitize maps an arbitrary user-chosen file name to a safe stored name.
//
// Every character from the disallowed set becomes an underscore, except
// that the final period of the input survives as the extension marker.
// Earlier periods are flattened with the rest: "weird$$name.tar.gz" comes
// out as "weird__name_tar.gz". A name without any period cannot carry an
// extension, so it is discarded entirely in favor of DefaultImage.
func Sanitize(name string) string {
	out := []byte(name)
	lastPeriod := -1

	for i := 0; i < len(out); i++ {
		bad := false
		for j := 0; j < len(disallowed); j++ {
			if out[i] == disallowed[j] {
				bad = true
				break
			}
		}
		if bad {
			if out[i] == '.' {
				lastPeriod = i
			}
			out[i] = '_'
		}
	}

	if lastPeriod < 0 {
		return DefaultImage
	}
	out[lastPeriod] = '.'
	return string(out)
}
