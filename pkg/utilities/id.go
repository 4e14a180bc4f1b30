package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewExternalID generates the opaque identifier exposed to API clients.
// KSUIDs are URL-safe and roughly time-sortable, which keeps listings stable.
func NewExternalID() string {
	return ksuid.New().String()
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewAccountID generates the internal surrogate key for a new account row.
// The snowflake node ID comes from SNOWFLAKE_NODE, defaulting to 1.
func NewAccountID() int64 {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				nodeID = parsed
			}
		}
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			// node IDs outside the valid range are a deployment error; run on node 1
			n, _ = snowflake.NewNode(1)
		}
		node = n
	})
	return node.Generate().Int64()
}
