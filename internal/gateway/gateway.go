// Package gateway keeps the channel state of one universe and emits it
// through a protocol encoder.
package gateway

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"mqtt2dmx/internal/dmx"
	"mqtt2dmx/internal/logger"
	"mqtt2dmx/internal/protocol"
)

// DefaultFrameRate is used when a transition is started with frame rate 0.
const DefaultFrameRate = 40

// Sender transmits one encoded datagram.
type Sender interface {
	Send(packet []byte) error
}

// Config describes a gateway session.
type Config struct {
	Name         string
	Protocol     protocol.Kind
	Universe     int
	Channels     int // Channels - округляется вверх до чётного.
	DefaultLevel int
	FrameRate    int
	Refresh      time.Duration // Refresh - 0 отключает периодическую отправку.
	SourceName   string
	Priority     byte
	CID          uuid.UUID
}

// Gateway owns the channel buffer of a universe, its encoder and its
// sender. All buffer access goes through mu.
type Gateway struct {
	log          logger.Logger
	name         string
	universe     int
	defaultLevel byte
	frameRate    int
	refresh      time.Duration
	enc          protocol.Encoder
	tx           Sender

	mu          sync.Mutex
	buf         *dmx.Buffer
	generations map[int]uint64
	sent        uint64
	failed      uint64

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates the gateway. Invalid channel counts, levels or universes
// are configuration errors.
func New(log logger.Logger, cfg Config, tx Sender) (*Gateway, error) {
	buf, err := dmx.NewBuffer(cfg.Channels, cfg.DefaultLevel)
	if err != nil {
		return nil, fmt.Errorf("universe %q: %w", cfg.Name, err)
	}

	enc, err := protocol.New(cfg.Protocol, protocol.Session{
		Universe:   cfg.Universe,
		Channels:   buf.Len(),
		SourceName: cfg.SourceName,
		Priority:   cfg.Priority,
		CID:        cfg.CID,
	})
	if err != nil {
		return nil, fmt.Errorf("universe %q: %w", cfg.Name, err)
	}

	frameRate := cfg.FrameRate
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		log:          log,
		name:         cfg.Name,
		universe:     cfg.Universe,
		defaultLevel: byte(cfg.DefaultLevel),
		frameRate:    frameRate,
		refresh:      cfg.Refresh,
		enc:          enc,
		tx:           tx,
		buf:          buf,
		generations:  map[int]uint64{},
		ctx:          ctx,
		cancel:       cancel,
	}

	if a, ok := enc.(*protocol.ArtNet); ok {
		g.logger().Debugf("art-net port address %s", a.Address().String())
	}
	return g, nil
}

func (g *Gateway) logger() *logger.Log {
	return g.log.With(logger.Fields{"module": "gateway", "universe": g.name})
}

// Start runs the periodic refresh, if configured, until ctx is done or
// Stop is called.
func (g *Gateway) Start(ctx context.Context) {
	if g.refresh <= 0 {
		return
	}
	g.wg.Add(1)
	go g.sendBackground(ctx)
}

func (g *Gateway) sendBackground(ctx context.Context) {
	defer g.wg.Done()
	t := time.NewTicker(g.refresh)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.ctx.Done():
			return
		case <-t.C:
			_ = g.Send()
		}
	}
}

// Stop cancels every running transition, waits for their loops and
// closes the sender when it is closable.
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		g.mu.Lock()
		g.cancel()
		g.mu.Unlock()
		g.wg.Wait()

		g.mu.Lock()
		if c, ok := g.tx.(io.Closer); ok {
			if err := c.Close(); err != nil {
				g.logger().Errorf("close transport: %v", err)
			}
		}
		g.logger().Infof("stopped: %d frames sent, %d failed", g.sent, g.failed)
		g.mu.Unlock()
	})
}

// SetChannels writes values to channels and optionally sends a frame. A
// single value is broadcast; a short vector repeats its last element.
func (g *Gateway) SetChannels(channels []int, values []byte, sendNow bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.buf.SetMany(channels, values); err != nil {
		return err
	}
	g.logger().Debugf("set channels %v to %v (send=%t)", channels, values, sendNow)
	if sendNow {
		_ = g.sendLocked()
	}
	return nil
}

// Send transmits the current buffer. Errors are logged and returned; the
// buffer stays authoritative and the next send is unaffected.
func (g *Gateway) Send() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sendLocked()
}

func (g *Gateway) sendLocked() error {
	packet := g.enc.Encode(g.buf.Bytes())
	if err := g.tx.Send(packet); err != nil {
		g.failed++
		g.logger().Warnf("send failed: %v", err)
		return err
	}
	g.sent++
	return nil
}

// ChannelLevel returns the current value of channel.
func (g *Gateway) ChannelLevel(channel int) (byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.Get(channel)
}

// CheckChannels validates a channel group without writing it.
func (g *Gateway) CheckChannels(channels []int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.CheckAll(channels)
}

// Levels returns a copy of the whole buffer.
func (g *Gateway) Levels() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.buf.Snapshot()
}

// Channels returns the buffer size.
func (g *Gateway) Channels() int {
	return g.buf.Len()
}

func (g *Gateway) DefaultLevel() byte { return g.defaultLevel }

func (g *Gateway) Universe() int { return g.universe }

func (g *Gateway) Name() string { return g.name }

func (g *Gateway) Protocol() protocol.Kind { return g.enc.Kind() }

// FrameRate returns the default transition frame rate.
func (g *Gateway) FrameRate() int { return g.frameRate }
