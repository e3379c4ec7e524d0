// Package scenario drives the rocket through chains of initial conditions and
// scores how the autopilot recovers from each one.
package scenario

import "github.com/flightctl/flightctl/pkg/core"

// Link is one scenario in a chain.
type Link struct {
	Scenario core.Scenario
	next     *Link
}

// Next returns the following link, nil at the end of the chain.
func (l *Link) Next() *Link {
	return l.next
}

// Chain is an ordered, immutable list of scenarios.
type Chain struct {
	head *Link
	n    int
}

// NewChain links the scenarios in order.
func NewChain(scenarios ...core.Scenario) *Chain {
	c := &Chain{n: len(scenarios)}
	var prev *Link
	for _, s := range scenarios {
		l := &Link{Scenario: s}
		if prev == nil {
			c.head = l
		} else {
			prev.next = l
		}
		prev = l
	}
	return c
}

// Head returns the first link, nil for an empty chain.
func (c *Chain) Head() *Link {
	return c.head
}

// Len is the number of scenarios in the chain.
func (c *Chain) Len() int {
	return c.n
}

// Scenarios returns the chain's scenarios in order.
func (c *Chain) Scenarios() []core.Scenario {
	out := make([]core.Scenario, 0, c.n)
	for l := c.head; l != nil; l = l.next {
		out = append(out, l.Scenario)
	}
	return out
}
