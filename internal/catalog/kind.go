package catalog

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// sourceFileRE selects C/C++ files during discovery. A bare name without
// an extension is a header, as with standard library headers.
var sourceFileRE = regexp.MustCompile(`(?i)^[\w\-]+((?P<h>(\.h(h|xx|\+\+|pp)?)?)|(?P<c>\.((c(c|xx|\+\+|pp)?)|ipp)))$`)

var (
	hGroup = sourceFileRE.SubexpIndex("h")
	cGroup = sourceFileRE.SubexpIndex("c")
)

// KindOf classifies a file by name.
func KindOf(filePath string) (Kind, bool) {
	m := sourceFileRE.FindStringSubmatchIndex(path.Base(filePath))
	if m == nil {
		return 0, false
	}
	if m[2*cGroup] >= 0 {
		return Source, true
	}
	if m[2*hGroup] >= 0 {
		return Header, true
	}
	return 0, false
}

// NormalizePath cleans p and converts it to forward slashes.
func NormalizePath(p string) string {
	return path.Clean(strings.ReplaceAll(filepath.ToSlash(p), `\`, "/"))
}

// NormJoin joins root and a relative token and cleans the result.
// An absolute token ignores root.
func NormJoin(root, token string) string {
	if path.IsAbs(token) {
		return path.Clean(token)
	}
	return path.Clean(root + "/" + token)
}
