// Copyright 2024 The Rocket-IO Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dlist implements an intrusive, sentinel-headed, circular
// doubly-linked list. A Node[T] is meant to be embedded by value in the
// struct it threads (Fiber, Future) with Owner set to a pointer back to
// that struct; the list itself owns nothing but the sentinel, so
// push/pop/remove never allocates and removal from the middle of the list
// is O(1) (required when a completion resolves a middle-of-list future).
package dlist

// Node is an intrusive list link carrying a back-pointer to the struct it
// is embedded in. The zero value is unlinked; set Owner once, at
// construction of the owning struct, and never again.
type Node[T any] struct {
	prev  *Node[T]
	next  *Node[T]
	Owner T
}

// InList reports whether n is currently linked into some list.
func (n *Node[T]) InList() bool {
	return n.next != nil && n.prev != nil
}

func (n *Node[T]) clear() {
	n.prev = nil
	n.next = nil
}

// List is a circular doubly-linked list with a sentinel head. The zero
// value is not ready to use; call Init first.
type List[T any] struct {
	sentinel Node[T]
}

// Init prepares an empty list. Must be called before any other method.
func (l *List[T]) Init() {
	l.sentinel.prev = &l.sentinel
	l.sentinel.next = &l.sentinel
}

// IsEmpty reports whether the list has no linked nodes.
func (l *List[T]) IsEmpty() bool {
	return l.sentinel.next == &l.sentinel
}

// Len counts the linked nodes by walking the list. O(n); meant for
// diagnostics and tests, not hot paths.
func (l *List[T]) Len() int {
	n := 0
	for cur := l.sentinel.next; cur != &l.sentinel; cur = cur.next {
		n++
	}
	return n
}

func link[T any](prev, next *Node[T]) {
	prev.next = next
	next.prev = prev
}

// PushTail appends n to the end of the list. n must not already be linked
// into any list.
func (l *List[T]) PushTail(n *Node[T]) {
	tail := l.sentinel.prev
	link(tail, n)
	link(n, &l.sentinel)
}

// PopHead removes and returns the owner of the first node in the list, or
// the zero value and false if the list is empty.
func (l *List[T]) PopHead() (T, bool) {
	if l.IsEmpty() {
		var zero T
		return zero, false
	}
	head := l.sentinel.next
	l.Remove(head)
	return head.Owner, true
}

// Remove unlinks n from whichever list it is a member of. n must currently
// be linked into a list.
func (l *List[T]) Remove(n *Node[T]) {
	prev := n.prev
	next := n.next
	link(prev, next)
	n.clear()
}
