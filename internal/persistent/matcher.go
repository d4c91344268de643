// LPMI40 - Hymnal Collection Sync and Cache Engine
// Copyright 2026 Heary Aldy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/heary-aldy/lpmi40-sub009

package persistent

import "strings"

// synonymMatcher is an Aho-Corasick automaton over the configured
// seasonal synonyms. One scan of an id finds every synonym occurring in
// it, so detection cost stays linear in the id length regardless of how
// many synonyms operators configure. Matching is case-insensitive; the
// automaton is built once and immutable afterwards.
type synonymMatcher struct {
	root     *matchNode
	patterns []string
}

type matchNode struct {
	children map[rune]*matchNode
	failure  *matchNode
	output   []int
}

func newMatchNode() *matchNode {
	return &matchNode{children: make(map[rune]*matchNode)}
}

func newSynonymMatcher(synonyms []string) *synonymMatcher {
	m := &synonymMatcher{root: newMatchNode()}
	for _, s := range synonyms {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		m.insert(len(m.patterns), s)
		m.patterns = append(m.patterns, s)
	}
	m.buildFailureLinks()
	return m
}

func (m *synonymMatcher) insert(index int, pattern string) {
	node := m.root
	for _, ch := range pattern {
		if node.children[ch] == nil {
			node.children[ch] = newMatchNode()
		}
		node = node.children[ch]
	}
	node.output = append(node.output, index)
}

// buildFailureLinks wires each node to the longest proper suffix of its
// path that is also a pattern prefix, breadth first from the root.
func (m *synonymMatcher) buildFailureLinks() {
	var queue []*matchNode
	for _, child := range m.root.children {
		child.failure = m.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for ch, child := range current.children {
			queue = append(queue, child)

			fail := current.failure
			for fail != nil && fail.children[ch] == nil {
				fail = fail.failure
			}
			if fail == nil {
				child.failure = m.root
			} else {
				child.failure = fail.children[ch]
				child.output = append(child.output, child.failure.output...)
			}
		}
	}
}

// matches reports whether any synonym occurs in text.
func (m *synonymMatcher) matches(text string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	node := m.root
	for _, ch := range strings.ToLower(text) {
		for node != nil && node.children[ch] == nil {
			node = node.failure
		}
		if node == nil {
			node = m.root
			continue
		}
		node = node.children[ch]
		if len(node.output) > 0 {
			return true
		}
	}
	return false
}

// matchedSynonyms returns the distinct synonyms occurring in text, in
// pattern order. Used by diagnostics to explain why an id was proposed.
func (m *synonymMatcher) matchedSynonyms(text string) []string {
	if len(m.patterns) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	node := m.root
	for _, ch := range strings.ToLower(text) {
		for node != nil && node.children[ch] == nil {
			node = node.failure
		}
		if node == nil {
			node = m.root
			continue
		}
		node = node.children[ch]
		for _, idx := range node.output {
			seen[idx] = true
		}
	}

	var matched []string
	for idx, pattern := range m.patterns {
		if seen[idx] {
			matched = append(matched, pattern)
		}
	}
	return matched
}
