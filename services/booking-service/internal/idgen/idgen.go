package idgen

import (
	"fmt"
	"sync"
	"time"
)

// Layout: 41 bits of milliseconds since Epoch | 4 bits node | 8 bits sequence.
// 53 bits keep group ids exact in JSON number consumers.
const (
	nodeBits = 4
	seqBits  = 8
	maxNode  = 1<<nodeBits - 1
	maxSeq   = 1<<seqBits - 1
)

var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Generator hands out strictly increasing, time-ordered group ids.
type Generator struct {
	mu     sync.Mutex
	node   int64
	lastMs int64
	seq    int64
	now    func() time.Time
}

func New(node int) (*Generator, error) {
	if node < 0 || node > maxNode {
		return nil, fmt.Errorf("idgen: node %d out of range 0..%d", node, maxNode)
	}
	return &Generator{node: int64(node), now: time.Now}, nil
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().Sub(Epoch).Milliseconds()
	if ms < g.lastMs {
		// clock went backwards; keep issuing from the last tick
		ms = g.lastMs
	}
	if ms == g.lastMs {
		g.seq++
		if g.seq > maxSeq {
			// sequence exhausted for this millisecond, borrow the next one
			ms++
			g.seq = 0
		}
	} else {
		g.seq = 0
	}
	g.lastMs = ms
	return ms<<(nodeBits+seqBits) | g.node<<seqBits | g.seq
}
