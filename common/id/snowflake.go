// Package id hands out time-ordered unique identifiers for event rows.
// Each deployable runs its own snowflake node, so the server, worker and
// CLI can write concurrently without colliding.
package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.Mutex
	node *snowflake.Node
)

// Init sets up the process-wide generator. nodeID distinguishes writers;
// repeated calls keep the first node.
func Init(nodeID int64) error {
	mu.Lock()
	defer mu.Unlock()
	if node != nil {
		return nil
	}
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("creating snowflake node: %w", err)
	}
	node = n
	return nil
}

// New returns the next id. Init must have been called first.
func New() int64 {
	return node.Generate().Int64()
}
