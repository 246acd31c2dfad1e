package main

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// CompareNames orders nodes by their lowercased names, comparing ordinally
// by UTF-16 code units. Names outside the basic multilingual plane thus
// sort before those from U+E000 to U+FFFF, unlike in a byte-wise comparison.
func CompareNames(a, b *Node) int {
	return slices.Compare(ordinalKey(a.Name), ordinalKey(b.Name))
}

func ordinalKey(name string) []uint16 {
	return utf16.Encode([]rune(strings.ToLower(name)))
}

// MoveChildren appends all children of src to dst, transferring ownership.
// src is left empty.
func MoveChildren(dst *Node, src *Node) error {
	if !dst.container || !src.container {
		return fmt.Errorf("cannot move children from %q to %q: not containers", src.Name, dst.Name)
	}
	if dst == src {
		return fmt.Errorf("cannot move children of %q to itself", src.Name)
	}

	dst.children = append(dst.children, src.children...)

	clear(src.children)
	src.children = nil

	return nil
}

// Merge moves the children of src into dst and sorts the children of dst
// with [CompareNames]. Only dst's own level is sorted, nested containers keep
// their order. Children sharing a name are all kept.
func Merge(dst *Node, src *Node) error {
	if err := MoveChildren(dst, src); err != nil {
		return err
	}

	dst.SortChildren(CompareNames)

	return nil
}
