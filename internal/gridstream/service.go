package gridstream

import (
	"context"

	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"google.golang.org/grpc"
)

const (
	serviceName    = "sensorsim.v1.OccupancyGridService"
	subscribeRoute = "/" + serviceName + "/Subscribe"
)

// OccupancyGridServer is the server side of the streaming service.
type OccupancyGridServer interface {
	Subscribe(*gridmsg.SubscribeRequest, SubscribeStream) error
}

// SubscribeStream is the server's handle on one subscription.
type SubscribeStream interface {
	Send(*gridmsg.OccupancyGrid) error
	Context() context.Context
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*OccupancyGridServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "sensorsim/v1/occupancy_grid.proto",
}

// RegisterOccupancyGridServer registers srv on s.
func RegisterOccupancyGridServer(s grpc.ServiceRegistrar, srv OccupancyGridServer) {
	s.RegisterService(&serviceDesc, srv)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	req := new(gridmsg.SubscribeRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(OccupancyGridServer).Subscribe(req, &subscribeServerStream{stream})
}

type subscribeServerStream struct {
	grpc.ServerStream
}

func (s *subscribeServerStream) Send(m *gridmsg.OccupancyGrid) error {
	return s.ServerStream.SendMsg(m)
}

// Client subscribes to a remote OccupancyGridService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Subscribe opens a stream of grids for req.SensorID. Server-side
// rejections surface from the first Recv.
func (c *Client) Subscribe(ctx context.Context, req *gridmsg.SubscribeRequest, opts ...grpc.CallOption) (*Subscription, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], subscribeRoute, opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Subscription{stream: stream}, nil
}

// Subscription is an open Subscribe stream.
type Subscription struct {
	stream grpc.ClientStream
}

// Recv blocks for the next grid. It returns io.EOF when the server ends
// the stream cleanly.
func (s *Subscription) Recv() (*gridmsg.OccupancyGrid, error) {
	m := new(gridmsg.OccupancyGrid)
	if err := s.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
