package gridstream

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"github.com/banshee-data/sensorsim/internal/monitoring"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func init() {
	monitoring.SetLogger(nil)
}

func testGrid(seq int) *gridmsg.OccupancyGrid {
	return &gridmsg.OccupancyGrid{
		Header: gridmsg.Header{
			Stamp:   time.Unix(1700000000, int64(seq)*int64(100*time.Millisecond)).UTC(),
			FrameID: "base_link",
		},
		Info: gridmsg.MapMetaData{Resolution: 0.5, Width: 3, Height: 2},
		Data: []int8{0, 100, 50, int8(seq), 0, 0},
	}
}

// startPublisher serves p over an in-memory listener and returns a client.
func startPublisher(t *testing.T, cfg Config) (*Publisher, *Client) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	p := NewPublisher(cfg)
	require.NoError(t, p.Serve(lis))
	t.Cleanup(p.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return p, NewClient(conn)
}

func waitForClients(t *testing.T, p *Publisher, n int32) {
	t.Helper()
	require.Eventually(t, func() bool { return p.Stats().ClientCount == n },
		2*time.Second, 5*time.Millisecond)
}

func TestSubscribeReceivesGrids(t *testing.T) {
	t.Parallel()

	p, c := startPublisher(t, Config{SensorID: "front", MaxClients: 2})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := c.Subscribe(ctx, &gridmsg.SubscribeRequest{SensorID: "front"})
	require.NoError(t, err)
	waitForClients(t, p, 1)

	for i := 1; i <= 3; i++ {
		want := testGrid(i)
		require.NoError(t, p.Consume(ctx, want))
		got, err := sub.Recv()
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("grid %d mismatch (-want +got):\n%s", i, diff)
		}
	}
	assert.Equal(t, uint64(3), p.Stats().Published)
}

func TestSubscribeReplaysLatest(t *testing.T) {
	t.Parallel()

	p, c := startPublisher(t, Config{SensorID: "front"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Consume(ctx, testGrid(1)))
	require.NoError(t, p.Consume(ctx, testGrid(2)))
	assert.Equal(t, testGrid(2), p.Latest())

	// An empty sensor id matches any publisher.
	sub, err := c.Subscribe(ctx, &gridmsg.SubscribeRequest{})
	require.NoError(t, err)
	got, err := sub.Recv()
	require.NoError(t, err)
	assert.Equal(t, int8(2), got.Data[3])
}

func TestSubscribeUnknownSensor(t *testing.T) {
	t.Parallel()

	_, c := startPublisher(t, Config{SensorID: "front"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := c.Subscribe(ctx, &gridmsg.SubscribeRequest{SensorID: "rear"})
	require.NoError(t, err)
	_, err = sub.Recv()
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestSubscribeClientLimit(t *testing.T) {
	t.Parallel()

	p, c := startPublisher(t, Config{SensorID: "front", MaxClients: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Subscribe(ctx, &gridmsg.SubscribeRequest{})
	require.NoError(t, err)
	waitForClients(t, p, 1)

	second, err := c.Subscribe(ctx, &gridmsg.SubscribeRequest{})
	require.NoError(t, err)
	_, err = second.Recv()
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestSubscriberCancel(t *testing.T) {
	t.Parallel()

	p, c := startPublisher(t, Config{SensorID: "front"})
	ctx, cancel := context.WithCancel(context.Background())

	_, err := c.Subscribe(ctx, &gridmsg.SubscribeRequest{})
	require.NoError(t, err)
	waitForClients(t, p, 1)

	cancel()
	waitForClients(t, p, 0)
}

func TestStopEndsStreams(t *testing.T) {
	t.Parallel()

	p, c := startPublisher(t, Config{SensorID: "front"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := c.Subscribe(ctx, &gridmsg.SubscribeRequest{})
	require.NoError(t, err)
	waitForClients(t, p, 1)

	p.Stop()
	_, err = sub.Recv()
	assert.Error(t, err)
	assert.False(t, p.Stats().Running)

	// Consume after Stop only updates Latest.
	require.NoError(t, p.Consume(ctx, testGrid(9)))
	assert.Equal(t, int8(9), p.Latest().Data[3])
}

func TestServeTwice(t *testing.T) {
	t.Parallel()

	p, _ := startPublisher(t, Config{})
	assert.Error(t, p.Serve(bufconn.Listen(1024)))
}

func TestServeAfterStop(t *testing.T) {
	t.Parallel()

	p := NewPublisher(Config{SensorID: "occupancy_grid"})
	require.NoError(t, p.Serve(bufconn.Listen(1024)))
	p.Stop()

	lis := bufconn.Listen(1024)
	assert.ErrorIs(t, p.Serve(lis), ErrStopped)
	assert.False(t, p.Stats().Running)
	_, err := lis.Accept()
	assert.Error(t, err, "listener should be closed")
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	t.Parallel()

	_, err := codec{}.Marshal("not a grid")
	assert.Error(t, err)
	var n int
	assert.Error(t, codec{}.Unmarshal(nil, &n))
}
