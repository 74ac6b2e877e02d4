package frames

import (
	"time"

	"github.com/NOT-REAL-GAMES/vkbridge/bridge"
)

// Frame is a producer-owned GPU texture travelling through a Channel. The
// consumer may read Image until the delivery is released.
type Frame struct {
	Image  bridge.Image
	Extent bridge.Extent
	Format bridge.Format
	Seq    uint64
	PTS    time.Duration

	// Slot is the index of the texture in the producer's pool.
	Slot int
}
