package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName 请求的 content-subtype，即 application/grpc+json
const CodecName = "json"

// jsonCodec 以 JSON 编码消息，服务不依赖 protoc 生成的代码
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
