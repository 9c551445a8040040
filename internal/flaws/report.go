package flaws

import (
	"fmt"
	"sort"
	"strings"

	"cppdep/internal/catalog"
	"cppdep/internal/depgraph"
	cerrors "cppdep/internal/errors"
	"cppdep/internal/resolver"
)

// Report derives every finding from a resolution and its analyzed graphs.
// It fails only when the graphs disagree with the resolution.
func Report(res *resolver.Result, graphs [3]*depgraph.Analyzed) ([]Finding, error) {
	var out []Finding

	for _, f := range res.Unassociated {
		out = append(out, Finding{
			Category: UnassociatedFile,
			Entities: []string{f.Path},
			File:     f.Path,
			Message:  fmt.Sprintf("%s %s belongs to no component", f.Kind, f.Path),
		})
	}

	for _, c := range res.Conflicts {
		cat := HeaderBasenameConflict
		if c.Kind == catalog.Source {
			cat = SourceBasenameConflict
		}
		out = append(out, Finding{
			Category: cat,
			Entities: []string{resolver.QualifyComponent(c.Package, c.Basename)},
			File:     c.Paths[0],
			Message: fmt.Sprintf("%d %ss named %q in %s, kept %s, ignored %s",
				len(c.Paths), c.Kind, c.Basename, c.Package, c.Paths[0], strings.Join(c.Paths[1:], ", ")),
			Digests: c.Digests,
		})
	}

	comp := graphs[depgraph.ComponentLevel]
	for _, f := range res.Catalog.InternalFiles() {
		found, err := fileFindings(res, comp, f)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}

	for _, c := range res.Components {
		out = append(out, componentFindings(res, c)...)
	}

	for _, a := range graphs {
		if a == nil {
			continue
		}
		for _, cy := range a.Cycles {
			out = append(out, Finding{
				Category: Cycle,
				Level:    cy.Level.String(),
				Entities: cy.Members,
				Message:  fmt.Sprintf("%s cycle: %s", cy.Level, strings.Join(cy.Members, ", ")),
			})
		}
	}

	for i := range out {
		out[i].Severity = out[i].Category.Severity()
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

// fileFindings reports missing and duplicate includes of one file and
// checks that every resolved include has its component edge.
func fileFindings(res *resolver.Result, comp *depgraph.Analyzed, f *catalog.File) ([]Finding, error) {
	var out []Finding
	owner, owned := res.Owner(f.Path)
	subject := f.Path
	if owned {
		subject = owner.QualifiedName()
	}

	seen := make(map[string]int)
	for _, rv := range res.Files[f.Path] {
		inc := rv.Include
		if prev, dup := seen[inc.Key()]; dup {
			out = append(out, Finding{
				Category: DuplicateInclude,
				Entities: []string{subject},
				File:     f.Path,
				Line:     inc.Line,
				Message:  fmt.Sprintf("%s already included on line %d", inc, prev),
			})
		} else {
			seen[inc.Key()] = inc.Line
		}

		if rv.Status == resolver.Missing {
			out = append(out, Finding{
				Category: MissingInclude,
				Entities: []string{subject},
				File:     f.Path,
				Line:     inc.Line,
				Message:  fmt.Sprintf("cannot locate %s", inc),
			})
			continue
		}
		if !owned || comp == nil {
			continue
		}
		var to string
		switch rv.Status {
		case resolver.Internal:
			target, ok := res.Owner(rv.Target.Path)
			if !ok || target == owner {
				continue
			}
			to = target.QualifiedName()
		case resolver.External:
			to = rv.Sink
		}
		if !comp.Graph.HasEdge(owner.QualifiedName(), to) {
			return nil, cerrors.Newf(cerrors.InternalError,
				"%s:%d includes %s but %s has no dependency on %s", f.Path, inc.Line, inc, owner.QualifiedName(), to)
		}
	}
	return out, nil
}

// componentFindings checks how a paired component's source includes its
// own header, and what it repeats from that header.
func componentFindings(res *resolver.Result, c *resolver.Component) []Finding {
	if c.Shape != resolver.Paired {
		return nil
	}
	name := c.QualifiedName()
	src := c.Source.Path
	resolved := res.Files[src]

	ownAt := -1
	for i, rv := range resolved {
		if rv.Target == c.Header {
			ownAt = i
			break
		}
	}
	if ownAt < 0 {
		return []Finding{{
			Category: SelfDependencyOmission,
			Entities: []string{name},
			File:     src,
			Message:  fmt.Sprintf("%s does not include its own header %s", src, c.Header.Path),
		}}
	}

	var out []Finding
	if first := res.First[src]; !first.OwnHeader {
		fi := resolved[first.Index].Include
		out = append(out, Finding{
			Category: IncludeOrder,
			Entities: []string{name},
			File:     src,
			Line:     resolved[ownAt].Include.Line,
			Message:  fmt.Sprintf("own header %s should be included before %s (line %d)", resolved[ownAt].Include, fi, fi.Line),
		})
	}

	inHeader := make(map[string]bool)
	for _, rv := range res.Files[c.Header.Path] {
		inHeader[rv.Include.Key()] = true
	}
	reported := make(map[string]bool)
	for i, rv := range resolved {
		key := rv.Include.Key()
		if i == ownAt || !inHeader[key] || reported[key] {
			continue
		}
		reported[key] = true
		out = append(out, Finding{
			Category: RedundantInclude,
			Entities: []string{name},
			File:     src,
			Line:     rv.Include.Line,
			Message:  fmt.Sprintf("%s is already included by %s", rv.Include, c.Header.Path),
		})
	}
	return out
}
