// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package container

import (
	"iter"
	"sync"
)

type listNode[T any] struct {
	value T
	prev  *listNode[T]
	next  *listNode[T]
}

// List is an append-only list whose entries can each be removed through the
// function returned when they were appended. Safe for concurrent use.
type List[T any] struct {
	mu    sync.RWMutex
	first *listNode[T]
	last  *listNode[T]
	len   int
}

// Append adds a value to the end of the list.
func (l *List[T]) Append(value T) (remove func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	node := &listNode[T]{value: value}
	if l.last == nil {
		l.first = node
	} else {
		l.last.next = node
	}
	node.prev = l.last
	l.last = node
	l.len++

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if node == nil {
			// Already removed.
			return
		}

		if node.prev == nil {
			l.first = node.next
		} else {
			node.prev.next = node.next
		}

		if node.next == nil {
			l.last = node.prev
		} else {
			node.next.prev = node.prev
		}
		l.len--

		// Drop the reference so the node can be garbage collected.
		node = nil
	}
}

// Len returns the number of entries.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.len
}

// Snapshot returns the entries in order. Iterating a snapshot does not hold
// the list lock, so entries may remove themselves while it is consumed.
func (l *List[T]) Snapshot() iter.Seq[T] {
	l.mu.RLock()
	values := make([]T, 0, l.len)
	for curr := l.first; curr != nil; curr = curr.next {
		values = append(values, curr.value)
	}
	l.mu.RUnlock()

	return func(yield func(T) bool) {
		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	}
}
