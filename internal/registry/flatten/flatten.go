// Package flatten turns BIR result documents into flat string maps.
//
// Both functions are lenient: a document that fails to parse yields an empty
// structure instead of an error.
package flatten

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// Namespace is the BIR public namespace used by full report documents.
const Namespace = "http://CIS/BIR/PUBL/2014/07"

// Wrapper elements that never become fields.
const (
	elemRoot = "root"
	elemData = "dane"
)

type node struct {
	name     xml.Name
	text     strings.Builder // character data before the first child element
	sawChild bool
	slot     int // index into the caller's ordered output, -1 when not tracked
	fields   map[string]string
}

// Fields collects every element with non-blank text into one map keyed by
// local tag name. "root" and "dane" are skipped. On duplicate tags the last
// one in document order wins. Text is kept exactly as it appears.
func Fields(doc string) map[string]string {
	type entry struct {
		key, text string
	}
	var entries []entry

	err := walk(doc, func(n *node) {
		n.slot = len(entries)
		entries = append(entries, entry{key: n.name.Local})
	}, func(n *node, _ *node) {
		entries[n.slot].text = n.text.String()
	})
	if err != nil {
		return map[string]string{}
	}

	result := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.key == elemRoot || e.key == elemData || strings.TrimSpace(e.text) == "" {
			continue
		}
		result[e.key] = e.text
	}
	return result
}

// PKDList returns one map per "dane" element below the document root, built
// from the element's immediate children (local name to text). Children with
// no text are skipped and empty maps are dropped.
//
// Only "dane" elements in the BIR namespace count.
func PKDList(doc string) []map[string]string {
	var slots []map[string]string
	depth := 0

	err := walk(doc, func(n *node) {
		depth++
		n.slot = -1
		if depth > 1 && isData(n.name) {
			n.slot = len(slots)
			n.fields = map[string]string{}
			slots = append(slots, nil)
		}
	}, func(n *node, parent *node) {
		depth--
		if parent != nil && parent.fields != nil {
			if text := n.text.String(); text != "" {
				parent.fields[n.name.Local] = text
			}
		}
		if n.slot >= 0 {
			slots[n.slot] = n.fields
		}
	})
	if err != nil {
		return []map[string]string{}
	}

	list := make([]map[string]string, 0, len(slots))
	for _, fields := range slots {
		if len(fields) > 0 {
			list = append(list, fields)
		}
	}
	return list
}

func isData(name xml.Name) bool {
	return name.Local == elemData && name.Space == Namespace
}

// walk decodes doc, calling open when an element starts and closeFn once its
// leading text is complete and the element ends. parent is nil for the root.
func walk(doc string, open func(n *node), closeFn func(n, parent *node)) error {
	dec := xml.NewDecoder(strings.NewReader(doc))
	// Result documents arrive as already-decoded text; any declared encoding is moot.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var stack []*node
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			if !sawRoot {
				return io.ErrUnexpectedEOF
			}
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				stack[len(stack)-1].sawChild = true
			}
			n := &node{name: t.Name}
			open(n)
			stack = append(stack, n)
			sawRoot = true
		case xml.EndElement:
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			var parent *node
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			closeFn(n, parent)
		case xml.CharData:
			if len(stack) > 0 && !stack[len(stack)-1].sawChild {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
}
