// Package catalog holds the set of files under analysis and the package
// and package group each of them belongs to.
package catalog

import (
	"path"
	"slices"
	"sort"
	"strings"

	cerrors "cppdep/internal/errors"
)

// Kind distinguishes headers from implementation files.
type Kind int

const (
	Header Kind = iota
	Source
)

func (k Kind) String() string {
	if k == Header {
		return "header"
	}
	return "source"
}

// File is one cataloged file. It is immutable once added.
type File struct {
	// Path is absolute and slash-separated
	Path string `json:"path"`

	Kind Kind `json:"kind"`

	// Package is the qualified name of the owning package
	Package string `json:"package"`

	// Digest is the hex BLAKE2b-256 of the content, empty for in-memory catalogs
	Digest string `json:"digest,omitempty"`
}

// Basename is the file name without directory and extension.
func (f *File) Basename() string {
	base := path.Base(f.Path)
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// Dir is the directory containing the file.
func (f *File) Dir() string {
	return path.Dir(f.Path)
}

// Package is a named unit of files within a group.
type Package struct {
	Name     string
	Group    string
	External bool
	Files    []*File
}

// QualifiedName returns group.package.
func (p *Package) QualifiedName() string {
	return QualifyPackage(p.Group, p.Name)
}

// QualifyPackage joins a group and package name.
func QualifyPackage(group, name string) string {
	return group + "." + name
}

// Group is a named set of packages.
type Group struct {
	Name string

	// Packages are kept sorted by name
	Packages []*Package
}

// External reports whether every package of the group is external.
// An empty group is not external.
func (g *Group) External() bool {
	if len(g.Packages) == 0 {
		return false
	}
	for _, p := range g.Packages {
		if !p.External {
			return false
		}
	}
	return true
}

// Catalog indexes files by path and packages by qualified name.
type Catalog struct {
	groups   map[string]*Group
	packages map[string]*Package
	files    map[string]*File
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		groups:   make(map[string]*Group),
		packages: make(map[string]*Package),
		files:    make(map[string]*File),
	}
}

// AddPackage registers a package, creating its group on first use.
func (c *Catalog) AddPackage(group, name string, external bool) (*Package, error) {
	if group == "" || name == "" {
		return nil, cerrors.Newf(cerrors.ConfigInvalid, "package %q in group %q needs both names", name, group)
	}
	qname := QualifyPackage(group, name)
	if _, ok := c.packages[qname]; ok {
		return nil, cerrors.Newf(cerrors.DuplicateDefinition, "package %s defined twice", qname)
	}
	g, ok := c.groups[group]
	if !ok {
		g = &Group{Name: group}
		c.groups[group] = g
	}
	p := &Package{Name: name, Group: group, External: external}
	i := sort.Search(len(g.Packages), func(i int) bool { return g.Packages[i].Name > name })
	g.Packages = slices.Insert(g.Packages, i, p)
	c.packages[qname] = p
	return p, nil
}

// AddFile catalogs filePath under pkg. The kind is inferred from the
// extension; files that are neither header nor source are rejected.
func (c *Catalog) AddFile(pkg *Package, filePath, digest string) (*File, error) {
	filePath = NormalizePath(filePath)
	if !path.IsAbs(filePath) {
		return nil, cerrors.Newf(cerrors.ConfigInvalid, "file path %s is not absolute", filePath)
	}
	kind, ok := KindOf(filePath)
	if !ok {
		return nil, cerrors.Newf(cerrors.ConfigInvalid, "%s is not a C/C++ header or source", filePath)
	}
	if prev, dup := c.files[filePath]; dup {
		return nil, cerrors.Newf(cerrors.DuplicateDefinition, "%s belongs to both %s and %s",
			filePath, prev.Package, pkg.QualifiedName())
	}
	f := &File{Path: filePath, Kind: kind, Package: pkg.QualifiedName(), Digest: digest}
	pkg.Files = append(pkg.Files, f)
	c.files[filePath] = f
	return f, nil
}

// File looks up a cataloged file by absolute path.
func (c *Catalog) File(filePath string) (*File, bool) {
	f, ok := c.files[filePath]
	return f, ok
}

// Package looks up a package by qualified name.
func (c *Catalog) Package(qname string) (*Package, bool) {
	p, ok := c.packages[qname]
	return p, ok
}

// Group looks up a group by name.
func (c *Catalog) Group(name string) (*Group, bool) {
	g, ok := c.groups[name]
	return g, ok
}

// Groups returns all groups sorted by name, packages sorted within each.
func (c *Catalog) Groups() []*Group {
	out := make([]*Group, 0, len(c.groups))
	for _, g := range c.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Packages returns all packages sorted by qualified name.
func (c *Catalog) Packages() []*Package {
	out := make([]*Package, 0, len(c.packages))
	for _, p := range c.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName() < out[j].QualifiedName() })
	return out
}

// Files returns all files sorted by path.
func (c *Catalog) Files() []*File {
	out := make([]*File, 0, len(c.files))
	for _, f := range c.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// InternalFiles returns the files of internal packages sorted by path.
func (c *Catalog) InternalFiles() []*File {
	all := c.Files()
	out := all[:0:0]
	for _, f := range all {
		if !c.packages[f.Package].External {
			out = append(out, f)
		}
	}
	return out
}

// Len is the number of cataloged files.
func (c *Catalog) Len() int { return len(c.files) }
