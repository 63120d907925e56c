package gridmsg

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/sensorsim/internal/geometry"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers. These are the wire contract shared with subscribers.
const (
	gridHeaderField = 1
	gridInfoField   = 2
	gridDataField   = 3

	headerStampField   = 1
	headerFrameIDField = 2

	infoLoadTimeField   = 1
	infoResolutionField = 2
	infoWidthField      = 3
	infoHeightField     = 4
	infoOriginField     = 5

	posePositionField    = 1
	poseOrientationField = 2

	subscribeSensorIDField = 1
)

// ErrMalformed wraps every decode failure.
var ErrMalformed = errors.New("gridmsg: malformed message")

// Marshal encodes m in protobuf wire format.
func Marshal(m *OccupancyGrid) []byte {
	var b []byte
	b = appendMessage(b, gridHeaderField, appendHeader(nil, m.Header))
	b = appendMessage(b, gridInfoField, appendInfo(nil, m.Info))
	data := make([]byte, len(m.Data))
	for i, v := range m.Data {
		data[i] = byte(v)
	}
	b = protowire.AppendTag(b, gridDataField, protowire.BytesType)
	return protowire.AppendBytes(b, data)
}

// Unmarshal decodes b into a new message.
func Unmarshal(b []byte) (*OccupancyGrid, error) {
	m := &OccupancyGrid{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch {
		case num == gridHeaderField && typ == protowire.BytesType:
			return decodeHeader(v, &m.Header)
		case num == gridInfoField && typ == protowire.BytesType:
			return decodeInfo(v, &m.Info)
		case num == gridDataField && typ == protowire.BytesType:
			m.Data = make([]int8, len(v))
			for i, c := range v {
				m.Data[i] = int8(c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalSubscribe encodes a SubscribeRequest.
func MarshalSubscribe(r *SubscribeRequest) []byte {
	if r.SensorID == "" {
		return nil
	}
	b := protowire.AppendTag(nil, subscribeSensorIDField, protowire.BytesType)
	return protowire.AppendString(b, r.SensorID)
}

// UnmarshalSubscribe decodes a SubscribeRequest.
func UnmarshalSubscribe(b []byte) (*SubscribeRequest, error) {
	r := &SubscribeRequest{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if num == subscribeSensorIDField && typ == protowire.BytesType {
			r.SensorID = string(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendTime writes t as signed Unix nanoseconds. The zero time is omitted.
func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	return appendVarint(b, num, protowire.EncodeZigZag(t.UnixNano()))
}

func decodeTime(v uint64) time.Time {
	return time.Unix(0, protowire.DecodeZigZag(v)).UTC()
}

func appendHeader(b []byte, h Header) []byte {
	b = appendTime(b, headerStampField, h.Stamp)
	if h.FrameID != "" {
		b = protowire.AppendTag(b, headerFrameIDField, protowire.BytesType)
		b = protowire.AppendString(b, h.FrameID)
	}
	return b
}

func decodeHeader(b []byte, h *Header) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == headerStampField && typ == protowire.VarintType:
			h.Stamp = decodeTime(x)
		case num == headerFrameIDField && typ == protowire.BytesType:
			h.FrameID = string(v)
		}
		return nil
	})
}

func appendInfo(b []byte, info MapMetaData) []byte {
	b = appendTime(b, infoLoadTimeField, info.MapLoadTime)
	b = appendDouble(b, infoResolutionField, info.Resolution)
	b = appendVarint(b, infoWidthField, uint64(info.Width))
	b = appendVarint(b, infoHeightField, uint64(info.Height))
	return appendMessage(b, infoOriginField, appendPose(nil, info.Origin))
}

func decodeInfo(b []byte, info *MapMetaData) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == infoLoadTimeField && typ == protowire.VarintType:
			info.MapLoadTime = decodeTime(x)
		case num == infoResolutionField && typ == protowire.Fixed64Type:
			info.Resolution = math.Float64frombits(x)
		case num == infoWidthField && typ == protowire.VarintType:
			info.Width = uint32(x)
		case num == infoHeightField && typ == protowire.VarintType:
			info.Height = uint32(x)
		case num == infoOriginField && typ == protowire.BytesType:
			return decodePose(v, &info.Origin)
		}
		return nil
	})
}

func appendPose(b []byte, p geometry.Pose) []byte {
	pos := appendDouble(nil, 1, p.Position.X)
	pos = appendDouble(pos, 2, p.Position.Y)
	pos = appendDouble(pos, 3, p.Position.Z)
	b = appendMessage(b, posePositionField, pos)

	q := appendDouble(nil, 1, p.Orientation.X)
	q = appendDouble(q, 2, p.Orientation.Y)
	q = appendDouble(q, 3, p.Orientation.Z)
	q = appendDouble(q, 4, p.Orientation.W)
	return appendMessage(b, poseOrientationField, q)
}

func decodePose(b []byte, p *geometry.Pose) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case posePositionField:
			return decodeDoubles(v, &p.Position.X, &p.Position.Y, &p.Position.Z)
		case poseOrientationField:
			return decodeDoubles(v, &p.Orientation.X, &p.Orientation.Y, &p.Orientation.Z, &p.Orientation.W)
		}
		return nil
	})
}

// decodeDoubles fills dst[i] from field i+1.
func decodeDoubles(b []byte, dst ...*float64) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, _ []byte, x uint64) error {
		if typ == protowire.Fixed64Type && num >= 1 && int(num) <= len(dst) {
			*dst[num-1] = math.Float64frombits(x)
		}
		return nil
	})
}

// walk iterates the fields of b. Length-delimited values arrive in v;
// varint and fixed values in x. Unknown fields are skipped.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		var (
			v []byte
			x uint64
		)
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			x, n = protowire.ConsumeFixed64(b)
		case protowire.Fixed32Type:
			var x32 uint32
			x32, n = protowire.ConsumeFixed32(b)
			x = uint64(x32)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(num, typ, v, x); err != nil {
			return err
		}
	}
	return nil
}
