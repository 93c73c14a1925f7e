package utilities

import (
	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out account ids from a single snowflake node so ids
// generated in the same millisecond stay unique.
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator creates a generator for nodeID. If the node cannot be
// initialized (out-of-range id) the generator falls back to KSUID strings.
func NewIDGenerator(nodeID int64) *IDGenerator {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return &IDGenerator{}
	}
	return &IDGenerator{node: node}
}

// Next returns a new unique id string.
func (g *IDGenerator) Next() string {
	if g.node == nil {
		return NewKSUID()
	}
	return g.node.Generate().String()
}
