package id

import (
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once

	ErrInvalid = errors.New("invalid id")
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new globally unique int64 ID using the Snowflake algorithm.
// Workspace namespaces are derived from these, so they must never repeat.
func New() int64 {
	return node.Generate().Int64()
}

// Parse reads a decimal id as it appears in URLs and JSON bodies.
func Parse(s string) (int64, error) {
	sf, err := snowflake.ParseString(s)
	if err != nil || sf.Int64() <= 0 {
		return 0, ErrInvalid
	}
	return sf.Int64(), nil
}
