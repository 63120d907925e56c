// Package gridstream serves occupancy grids to remote subscribers over a
// gRPC server stream.
package gridstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"github.com/banshee-data/sensorsim/internal/monitoring"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var logf = monitoring.Component("gridstream")

// ErrStopped is returned by Start and Serve once Stop has been called.
var ErrStopped = errors.New("publisher stopped")

// Config holds configuration for the streaming server.
type Config struct {
	// ListenAddr is the TCP address Start binds, e.g. "localhost:50061".
	ListenAddr string

	// SensorID names the grids this publisher carries. Subscribers asking
	// for another id are rejected.
	SensorID string

	// MaxClients caps concurrent subscriptions. Zero means no cap.
	MaxClients int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "localhost:50061",
		SensorID:   "occupancy_grid",
		MaxClients: 8,
	}
}

// Publisher fans grids out to every subscriber. Grids are queued on a
// buffered channel; when the queue or a subscriber's own buffer is full
// the grid is dropped for that hop rather than blocking the simulation.
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener

	gridChan  chan *gridmsg.OccupancyGrid
	clients   map[uint64]*client
	clientsMu sync.RWMutex
	nextID    atomic.Uint64
	latest    atomic.Pointer[gridmsg.OccupancyGrid]

	published   atomic.Uint64
	dropped     atomic.Uint64
	clientCount atomic.Int32

	running atomic.Bool
	stopped atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type client struct {
	id     uint64
	gridCh chan *gridmsg.OccupancyGrid
}

// NewPublisher creates a Publisher. Nothing is served until Start or Serve.
func NewPublisher(cfg Config) *Publisher {
	return &Publisher{
		config:   cfg,
		gridChan: make(chan *gridmsg.OccupancyGrid, 100),
		clients:  make(map[uint64]*client),
		stopCh:   make(chan struct{}),
	}
}

// Start binds Config.ListenAddr and serves on it.
func (p *Publisher) Start() error {
	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return p.Serve(lis)
}

// Serve serves on lis in the background. The publisher owns lis from here.
// A stopped publisher cannot be restarted.
func (p *Publisher) Serve(lis net.Listener) error {
	if p.stopped.Load() {
		lis.Close()
		return ErrStopped
	}
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("publisher already running")
	}
	p.listener = lis

	// A 200x200 grid is 40kB; leave room for much larger ones.
	const maxMsgSize = 16 * 1024 * 1024
	p.server = grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	RegisterOccupancyGridServer(p.server, p)

	p.wg.Add(2)
	go p.broadcastLoop()
	go func() {
		defer p.wg.Done()
		logf("gRPC server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			logf("gRPC server error: %v", err)
		}
	}()
	return nil
}

// Stop ends every subscription and shuts the server down.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.stopped.Store(true)
	close(p.stopCh)
	p.server.GracefulStop()
	p.wg.Wait()
	logf("gRPC server stopped (published=%d dropped=%d)", p.published.Load(), p.dropped.Load())
}

// Addr is the bound address, or nil before Start.
func (p *Publisher) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Consume queues msg for every subscriber and keeps it as the latest grid.
// It never blocks and never fails; a full queue drops the grid.
func (p *Publisher) Consume(_ context.Context, msg *gridmsg.OccupancyGrid) error {
	p.latest.Store(msg)
	if !p.running.Load() {
		return nil
	}
	select {
	case p.gridChan <- msg:
		p.published.Add(1)
	default:
		n := p.dropped.Add(1)
		logf("DROPPED grid stamped %s (total dropped: %d), queue full", msg.Header.Stamp, n)
	}
	return nil
}

// Latest returns the most recent grid passed to Consume, or nil.
func (p *Publisher) Latest() *gridmsg.OccupancyGrid {
	return p.latest.Load()
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case msg := <-p.gridChan:
			p.clientsMu.RLock()
			for _, c := range p.clients {
				select {
				case c.gridCh <- msg:
				default:
					p.dropped.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

// Subscribe implements OccupancyGridServer. The latest grid, if any, is
// sent first so a new subscriber does not wait a full update period.
func (p *Publisher) Subscribe(req *gridmsg.SubscribeRequest, stream SubscribeStream) error {
	if req.SensorID != "" && req.SensorID != p.config.SensorID {
		return status.Errorf(codes.NotFound, "unknown sensor %q", req.SensorID)
	}
	c, err := p.addClient()
	if err != nil {
		return err
	}
	defer p.removeClient(c.id)

	// The replayed grid may also be queued for this client already.
	replayed := p.latest.Load()
	if replayed != nil {
		if err := stream.Send(replayed); err != nil {
			return err
		}
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case <-p.stopCh:
			return nil
		case msg := <-c.gridCh:
			if msg == replayed {
				continue
			}
			if err := stream.Send(msg); err != nil {
				logf("send to client %d failed: %v", c.id, err)
				return err
			}
		}
	}
}

func (p *Publisher) addClient() (*client, error) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	if p.config.MaxClients > 0 && len(p.clients) >= p.config.MaxClients {
		return nil, status.Errorf(codes.ResourceExhausted, "client limit %d reached", p.config.MaxClients)
	}
	c := &client{
		id:     p.nextID.Add(1),
		gridCh: make(chan *gridmsg.OccupancyGrid, 10),
	}
	p.clients[c.id] = c
	n := p.clientCount.Add(1)
	logf("client %d connected (total: %d)", c.id, n)
	return c, nil
}

func (p *Publisher) removeClient(id uint64) {
	p.clientsMu.Lock()
	_, ok := p.clients[id]
	delete(p.clients, id)
	p.clientsMu.Unlock()
	if ok {
		n := p.clientCount.Add(-1)
		logf("client %d disconnected (remaining: %d)", id, n)
	}
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		Published:   p.published.Load(),
		Dropped:     p.dropped.Load(),
		ClientCount: p.clientCount.Load(),
		Running:     p.running.Load(),
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	Published   uint64
	Dropped     uint64
	ClientCount int32
	Running     bool
}
