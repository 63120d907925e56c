package gridstream

import (
	"fmt"

	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype the service is served under.
const codecName = "gridmsg"

func init() {
	encoding.RegisterCodec(codec{})
}

// codec carries gridmsg values using their protobuf wire encoding.
type codec struct{}

func (codec) Name() string { return codecName }

func (codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case *gridmsg.OccupancyGrid:
		return gridmsg.Marshal(m), nil
	case *gridmsg.SubscribeRequest:
		return gridmsg.MarshalSubscribe(m), nil
	}
	return nil, fmt.Errorf("gridstream: cannot marshal %T", v)
}

func (codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case *gridmsg.OccupancyGrid:
		decoded, err := gridmsg.Unmarshal(data)
		if err != nil {
			return err
		}
		*m = *decoded
		return nil
	case *gridmsg.SubscribeRequest:
		decoded, err := gridmsg.UnmarshalSubscribe(data)
		if err != nil {
			return err
		}
		*m = *decoded
		return nil
	}
	return fmt.Errorf("gridstream: cannot unmarshal into %T", v)
}
