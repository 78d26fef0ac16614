// Package view implements time-ordered, multi-bag read access: a
// View aggregates one or more bags and replays their messages as a
// single merged, ascending-timestamp sequence, the same shape as
// running `rosbag play` across several recordings at once.
package view

import (
	"errors"
	"fmt"
	"io"

	"github.com/embarktrucks/embag/bag"
	"github.com/embarktrucks/embag/rosmsg"
)

// View merges zero or more bags into one logical, time-ordered stream.
// A View's own state (its read cursor, if it is iterating) is not
// safe for concurrent use; the underlying bags it was built from are,
// so many independent Views may run over the same bags concurrently.
type View struct {
	bags []*bag.Bag
}

// New creates an empty View. Bags are added with AddBag in the order
// they should win time ties against one another.
func New() *View {
	return &View{}
}

// AddBag appends b to the view. Bags are merged in insertion order:
// when two messages from different bags share an identical
// timestamp, the one from the earlier-added bag sorts first.
func (v *View) AddBag(b *bag.Bag) {
	v.bags = append(v.bags, b)
}

// Topics returns the union of every topic across all bags in the
// view, in the order each topic was first seen (scanning bags in
// insertion order).
func (v *View) Topics() []string {
	seen := make(map[string]bool)
	var topics []string
	for _, b := range v.bags {
		for _, t := range b.Topics() {
			if !seen[t] {
				seen[t] = true
				topics = append(topics, t)
			}
		}
	}
	return topics
}

// ConnectionsForTopic returns every connection publishing to topic,
// across all bags in the view, in bag-insertion order.
func (v *View) ConnectionsForTopic(topic string) []*bag.Connection {
	var conns []*bag.Connection
	for _, b := range v.bags {
		conns = append(conns, b.ConnectionsForTopic(topic)...)
	}
	return conns
}

// ConnectionsByTopic returns every topic's connections, merged across
// every bag in the view, in one map. Topic order is not preserved
// (map iteration order is unspecified); callers that need topic order
// should range over Topics() and call ConnectionsForTopic per topic.
func (v *View) ConnectionsByTopic() map[string][]*bag.Connection {
	out := make(map[string][]*bag.Connection)
	for _, b := range v.bags {
		for topic, conns := range b.ConnectionsByTopic() {
			out[topic] = append(out[topic], conns...)
		}
	}
	return out
}

// Schema returns topic's message-definition schema, taken from the
// first bag (in insertion order) that has a connection for it.
func (v *View) Schema(topic string) (*rosmsg.Tree, error) {
	for _, b := range v.bags {
		if conns := b.ConnectionsForTopic(topic); len(conns) > 0 {
			return b.Schema(topic)
		}
	}
	return nil, fmt.Errorf("view: unknown topic %q", topic)
}

// GetMessages returns a pull-based iterator over every message on the
// given topics (every topic across every bag, if none are given),
// merged into one ascending timestamp order across all bags. Ties
// break first by which bag was added first, then — within a single
// bag — by chunk position and record position, exactly as bag.Bag's
// own Iterator already orders a single bag's output. No chunk from
// any bag is decompressed until the caller actually pulls a message
// that needs it; dropping the iterator (or calling its Close) stops
// iteration and drops every per-bag iterator's reference to its
// current chunk. Decoded chunks stay cached on their Bag for as long
// as the Bag is reachable.
func (v *View) GetMessages(topics ...string) (*Iterator, error) {
	return newIterator(v.bags, topics...)
}

// Messages drains GetMessages into a slice, for callers that want the
// whole merged result at once rather than pulling it message by
// message. Offers no early-exit or bounded-memory benefit over the
// iterator; see bag.Bag.Messages, which this mirrors.
func (v *View) Messages(topics ...string) ([]*bag.Message, error) {
	it, err := v.GetMessages(topics...)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var messages []*bag.Message
	for {
		m, err := it.Next()
		if errors.Is(err, io.EOF) {
			return messages, nil
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
}
