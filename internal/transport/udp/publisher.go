// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"soundcheck/internal/log"
)

// DefaultInterval is the packet interval used when an invalid one is
// configured (~60 Hz).
const DefaultInterval = 16 * time.Millisecond

// BandProvider supplies the latest per-band spectrum frame. The
// analysis processor satisfies it.
type BandProvider interface {
	LatestBands() []float64
	BandFrequencies() []int
}

// Publisher periodically pulls the latest band frame from a
// BandProvider, packs it into a binary packet, and sends it through a
// Sender. It runs in its own goroutine managed by Start and Stop.
type Publisher struct {
	sender   *Sender
	provider BandProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop

	sequenceNum uint32

	// Reused across ticks to keep the hot path allocation-free.
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher. Ticks where the provider has no
// frame yet (empty band slice) are skipped. An interval <= 0 falls
// back to DefaultInterval.
func NewPublisher(interval time.Duration, sender *Sender, provider BandProvider) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("publisher: UDP sender cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("publisher: band provider cannot be nil")
	}
	if interval <= 0 {
		log.Warnf("Publisher: invalid interval, defaulting to %s", DefaultInterval)
		interval = DefaultInterval
	}

	return &Publisher{
		sender:       sender,
		provider:     provider,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("Publisher: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture locals so the goroutine never races Start/Stop on the
	// struct fields.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("Publisher: goroutine started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Safe to call
// more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("Publisher: stopped")
	return nil
}

/*
Packet layout (big-endian):

| Field     | Type      | Size  |
|-----------|-----------|-------|
| Sequence  | uint32    | 4     |
| Timestamp | int64     | 8     | nanoseconds since epoch
| Count     | uint16    | 2     | number of band levels (N)
| Levels    | []float32 | N * 4 | linear band levels, 0..1
*/

func (p *Publisher) buildAndSendPacket() {
	levels := p.provider.LatestBands()
	if len(levels) == 0 {
		return
	}

	if len(p.f32Buffer) != len(levels) {
		p.f32Buffer = make([]float32, len(levels))
	}
	for i, v := range levels {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	timestamp := time.Now().UnixNano()

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(p.f32Buffer)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}
	if err != nil {
		log.Errorf("Publisher: error packing packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		log.Debugf("Publisher: dropping packet %d: %v", p.sequenceNum, err)
		return
	}
	log.Debugf("Publisher: sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
}

// Close stops the publisher. It implements io.Closer so lifecycle code
// can treat it like the other transports.
func (p *Publisher) Close() error {
	return p.Stop()
}
