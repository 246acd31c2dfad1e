package main

import (
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
)

const (
	// tagFileInfo holds the [fs.FileInfo] a node originated from.
	tagFileInfo = "fileinfo"

	// tagNestedArchive marks a leaf holding a raw, not expanded nested archive.
	tagNestedArchive = "nested-archive"

	dotName = "."
)

// Node is an element of an archive tree. It is either a container holding
// an ordered list of children, or a leaf holding a content handle.
//
// A tree is owned by whoever holds its root. Children are never shared
// between containers; moving them transfers the ownership.
type Node struct {
	Name string

	tags      map[string]any
	container bool
	children  []*Node
	content   io.ReadCloser
	consumed  bool
}

// NewContainer returns a new empty container [Node].
func NewContainer(name string) *Node {
	return &Node{Name: name, container: true}
}

// NewLeaf returns a new leaf [Node], taking ownership of the content handle.
func NewLeaf(name string, content io.ReadCloser) *Node {
	return &Node{Name: name, content: content}
}

// IsContainer reports whether the node is a container.
func (n *Node) IsContainer() bool {
	return n.container
}

// Add appends a child to a container.
func (n *Node) Add(child *Node) {
	if !n.container {
		panic(fmt.Sprintf("cannot add child %q to leaf %q", child.Name, n.Name))
	}

	n.children = append(n.children, child)
}

// Children returns a copy of the container's ordered child list.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// Child returns the first child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.children {
		if c.Name == name {
			return c
		}
	}

	return nil
}

// SortChildren stably sorts the container's direct children.
// Nested containers are left untouched, see [Node.SortChildrenRecursive].
func (n *Node) SortChildren(cmp func(a, b *Node) int) {
	slices.SortStableFunc(n.children, cmp)
}

// SortChildrenRecursive sorts the children of this and all nested containers.
func (n *Node) SortChildrenRecursive(cmp func(a, b *Node) int) {
	n.SortChildren(cmp)

	for _, c := range n.children {
		if c.container {
			c.SortChildrenRecursive(cmp)
		}
	}
}

// Tag returns the metadata value stored under key, or nil.
func (n *Node) Tag(key string) any {
	return n.tags[key]
}

// SetTag stores a metadata value under key.
func (n *Node) SetTag(key string, value any) {
	if n.tags == nil {
		n.tags = make(map[string]any)
	}

	n.tags[key] = value
}

// ReadContent reads a leaf's content fully and releases its handle.
// The content can only be read once, later calls return [ErrContentConsumed].
func (n *Node) ReadContent() ([]byte, error) {
	if n.consumed {
		return nil, fmt.Errorf("%q: %w", n.Name, ErrContentConsumed)
	}
	if n.content == nil {
		return nil, fmt.Errorf("%w: %q has no content", ErrFileAccess, n.Name)
	}

	n.consumed = true
	content := n.content
	n.content = nil

	data, err := io.ReadAll(content)
	cerr := content.Close()

	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	if cerr != nil {
		return nil, fmt.Errorf("%w: failed to release content: %w", ErrFileAccess, cerr)
	}

	return data, nil
}

// Dispose releases all content handles still held by the tree.
// Each handle is released only once, so calling Dispose again is harmless.
func (n *Node) Dispose() error {
	var errs []error

	if n.content != nil {
		if err := n.content.Close(); err != nil {
			errs = append(errs, err)
		}
		n.content = nil
	}

	for _, c := range n.children {
		if err := c.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Walk calls fn for every node below n in depth-first order, passing the
// slash-separated path relative to n. Walk does not call fn for n itself.
func (n *Node) Walk(fn func(p string, node *Node) error) error {
	return n.walk("", fn)
}

func (n *Node) walk(parent string, fn func(p string, node *Node) error) error {
	for _, c := range n.children {
		p := path.Join(parent, c.Name)

		if err := fn(p, c); err != nil {
			return err
		}

		if c.container {
			if err := c.walk(p, fn); err != nil {
				return err
			}
		}
	}

	return nil
}

// soleDotChild returns the only child of n if that child is a "." container.
func soleDotChild(n *Node) *Node {
	if len(n.children) == 1 && n.children[0].Name == dotName && n.children[0].container {
		return n.children[0]
	}

	return nil
}
