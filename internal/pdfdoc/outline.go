package pdfdoc

import (
	"fmt"
	"reflect"

	rpdf "rsc.io/pdf"

	"github.com/22adi66/pdf-consolidation-system/internal/document"
)

const maxOutlineItems = 100000

type outlineReader struct {
	root  rpdf.Value
	pages []rpdf.Value
	seen  int
	out   []document.Heading
}

// readOutline walks /Root/Outlines and returns one heading per item whose
// destination resolves to a page, in outline order.
func readOutline(r *rpdf.Reader, maxDepth int) (hs []document.Heading, err error) {
	defer func() {
		if p := recover(); p != nil {
			hs, err = nil, fmt.Errorf("read outline: %v", p)
		}
	}()
	root := r.Trailer().Key("Root")
	first := root.Key("Outlines").Key("First")
	if first.IsNull() {
		return nil, nil
	}
	o := &outlineReader{root: root}
	for i := 1; i <= r.NumPage(); i++ {
		o.pages = append(o.pages, r.Page(i).V)
	}
	o.walk(first, 1, maxDepth)
	return o.out, nil
}

func (o *outlineReader) walk(item rpdf.Value, depth, maxDepth int) {
	if maxDepth > 0 && depth > maxDepth {
		return
	}
	for v := item; !v.IsNull() && o.seen < maxOutlineItems; v = v.Key("Next") {
		o.seen++
		title := v.Key("Title").Text()
		dest := v.Key("Dest")
		if dest.IsNull() {
			if a := v.Key("A"); a.Key("S").Name() == "GoTo" {
				dest = a.Key("D")
			}
		}
		if p := o.destPage(dest, 0); p > 0 && title != "" {
			o.out = append(o.out, document.Heading{Title: title, Page: p, Depth: depth})
		}
		if kids := v.Key("First"); !kids.IsNull() {
			o.walk(kids, depth+1, maxDepth)
		}
	}
}

// destPage resolves an explicit or named destination to a 1-based page, or 0.
func (o *outlineReader) destPage(dest rpdf.Value, hops int) int {
	if hops > 4 {
		return 0
	}
	switch dest.Kind() {
	case rpdf.Array:
		if dest.Len() == 0 {
			return 0
		}
		target := dest.Index(0)
		if target.Kind() == rpdf.Integer {
			if p := int(target.Int64()) + 1; p >= 1 && p <= len(o.pages) {
				return p
			}
			return 0
		}
		for i, pv := range o.pages {
			if reflect.DeepEqual(pv, target) {
				return i + 1
			}
		}
	case rpdf.Dict:
		return o.destPage(dest.Key("D"), hops+1)
	case rpdf.Name:
		return o.destPage(o.named(dest.Name()), hops+1)
	case rpdf.String:
		return o.destPage(o.named(dest.Text()), hops+1)
	}
	return 0
}

// named looks a destination up in the PDF 1.1 /Dests dictionary and then in
// the /Names /Dests name tree.
func (o *outlineReader) named(name string) rpdf.Value {
	if v := o.root.Key("Dests").Key(name); !v.IsNull() {
		return v
	}
	return lookupNameTree(o.root.Key("Names").Key("Dests"), name, 0)
}

func lookupNameTree(node rpdf.Value, name string, depth int) rpdf.Value {
	var zero rpdf.Value
	if node.IsNull() || depth > 32 {
		return zero
	}
	names := node.Key("Names")
	for i := 0; i+1 < names.Len(); i += 2 {
		if names.Index(i).Text() == name {
			return names.Index(i + 1)
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		if v := lookupNameTree(kids.Index(i), name, depth+1); !v.IsNull() {
			return v
		}
	}
	return zero
}
