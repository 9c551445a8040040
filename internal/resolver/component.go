package resolver

import (
	"cppdep/internal/catalog"
)

// Shape tells which files make up a component.
type Shape int

const (
	Paired Shape = iota
	HeaderOnly
	SourceOnly
)

func (s Shape) String() string {
	switch s {
	case HeaderOnly:
		return "header-only"
	case SourceOnly:
		return "source-only"
	default:
		return "paired"
	}
}

// Component is a header and/or source sharing a basename in one package.
type Component struct {
	Name    string `json:"name"`
	Package string `json:"package"`
	Group   string `json:"group"`
	Shape   Shape  `json:"shape"`

	Header *catalog.File `json:"header,omitempty"`
	Source *catalog.File `json:"source,omitempty"`
}

// QualifiedName returns group.package/basename.
func (c *Component) QualifiedName() string {
	return QualifyComponent(c.Package, c.Name)
}

// Files returns the header then the source, skipping absent ones.
func (c *Component) Files() []*catalog.File {
	out := make([]*catalog.File, 0, 2)
	if c.Header != nil {
		out = append(out, c.Header)
	}
	if c.Source != nil {
		out = append(out, c.Source)
	}
	return out
}

// QualifyComponent joins a qualified package name and a basename.
func QualifyComponent(pkg, name string) string {
	return pkg + "/" + name
}

// SinkName is the component-level node standing for an external package.
func SinkName(pkg string) string {
	return pkg + "/*"
}

// Conflict is a set of same-kind files sharing a basename in one package.
type Conflict struct {
	Package  string       `json:"package"`
	Basename string       `json:"basename"`
	Kind     catalog.Kind `json:"kind"`

	// Paths are sorted; the first one won
	Paths   []string `json:"paths"`
	Digests []string `json:"digests,omitempty"`
}

// group buckets the internal files of pkg into components.
func group(pkg *catalog.Package, opts Options) (comps []*Component, conflicts []Conflict, unassociated []*catalog.File) {
	headers := make(map[string][]*catalog.File)
	sources := make(map[string][]*catalog.File)
	for _, f := range pkg.Files {
		if f.Kind == catalog.Header {
			headers[f.Basename()] = append(headers[f.Basename()], f)
		} else {
			sources[f.Basename()] = append(sources[f.Basename()], f)
		}
	}

	pick := func(kind catalog.Kind, base string, files []*catalog.File) *catalog.File {
		if len(files) == 0 {
			return nil
		}
		sortFiles(files)
		if len(files) > 1 {
			c := Conflict{Package: pkg.QualifiedName(), Basename: base, Kind: kind}
			for _, f := range files {
				c.Paths = append(c.Paths, f.Path)
				c.Digests = append(c.Digests, f.Digest)
			}
			conflicts = append(conflicts, c)
		}
		return files[0]
	}

	for _, base := range sortedKeys(headers, sources) {
		h := pick(catalog.Header, base, headers[base])
		s := pick(catalog.Source, base, sources[base])
		c := &Component{Name: base, Package: pkg.QualifiedName(), Group: pkg.Group, Header: h, Source: s}
		switch {
		case h != nil && s != nil:
			c.Shape = Paired
		case h != nil && opts.HeaderOnly:
			c.Shape = HeaderOnly
		case s != nil && opts.SourceOnly:
			c.Shape = SourceOnly
		default:
			unassociated = append(unassociated, c.Files()...)
			continue
		}
		comps = append(comps, c)
	}
	return comps, conflicts, unassociated
}
