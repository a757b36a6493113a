package api

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/classpulse/sociogram/internal/models"
	"github.com/classpulse/sociogram/internal/utils"
)

// NetworkAnalyzerServiceName is the fully qualified gRPC service name.
const NetworkAnalyzerServiceName = "sociogram.v1.NetworkAnalyzer"

const (
	analyzeSurveyMethod = "/" + NetworkAnalyzerServiceName + "/AnalyzeSurvey"
	getSnapshotMethod   = "/" + NetworkAnalyzerServiceName + "/GetSnapshot"
)

// NetworkAnalyzerServer is the server API for the NetworkAnalyzer service.
// Messages are google.protobuf.Struct values carrying the HTTP JSON shapes.
type NetworkAnalyzerServer interface {
	AnalyzeSurvey(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// NetworkAnalyzerServiceDesc describes the NetworkAnalyzer service for registration.
var NetworkAnalyzerServiceDesc = grpc.ServiceDesc{
	ServiceName: NetworkAnalyzerServiceName,
	HandlerType: (*NetworkAnalyzerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AnalyzeSurvey", Handler: analyzeSurveyHandler},
		{MethodName: "GetSnapshot", Handler: getSnapshotHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterNetworkAnalyzerServer registers srv on s.
func RegisterNetworkAnalyzerServer(s grpc.ServiceRegistrar, srv NetworkAnalyzerServer) {
	s.RegisterService(&NetworkAnalyzerServiceDesc, srv)
}

func analyzeSurveyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NetworkAnalyzerServer).AnalyzeSurvey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: analyzeSurveyMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NetworkAnalyzerServer).AnalyzeSurvey(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getSnapshotHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NetworkAnalyzerServer).GetSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getSnapshotMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NetworkAnalyzerServer).GetSnapshot(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// NetworkAnalyzerClient calls the NetworkAnalyzer service.
type NetworkAnalyzerClient struct {
	cc grpc.ClientConnInterface
}

// NewNetworkAnalyzerClient wraps an established connection.
func NewNetworkAnalyzerClient(cc grpc.ClientConnInterface) *NetworkAnalyzerClient {
	return &NetworkAnalyzerClient{cc: cc}
}

// AnalyzeSurvey submits a request and decodes the analysis result.
func (c *NetworkAnalyzerClient) AnalyzeSurvey(ctx context.Context, req models.AnalysisRequest, opts ...grpc.CallOption) (models.AnalysisResult, error) {
	in, err := ToStruct(EncodeRequestBody(req))
	if err != nil {
		return models.AnalysisResult{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, analyzeSurveyMethod, in, out, opts...); err != nil {
		return models.AnalysisResult{}, err
	}
	return StructToResult(out)
}

// GetSnapshot fetches a stored analysis by ID.
func (c *NetworkAnalyzerClient) GetSnapshot(ctx context.Context, id string, opts ...grpc.CallOption) (models.AnalysisResult, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"id": id})
	if err != nil {
		return models.AnalysisResult{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getSnapshotMethod, in, out, opts...); err != nil {
		return models.AnalysisResult{}, err
	}
	return StructToResult(out)
}

// StructToAnalysisRequest decodes and validates a Struct-encoded request body.
func StructToAnalysisRequest(s *structpb.Struct) (models.AnalysisRequest, error) {
	if s == nil {
		return models.AnalysisRequest{}, utils.NewAppError("api.StructToAnalysisRequest", "request cannot be nil", utils.ErrInvalidRequest)
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return models.AnalysisRequest{}, fmt.Errorf("marshal struct: %w", err)
	}
	return DecodeAnalysisRequest(data)
}

// StructToResult decodes a Struct-encoded analysis result.
func StructToResult(s *structpb.Struct) (models.AnalysisResult, error) {
	var result models.AnalysisResult
	data, err := protojson.Marshal(s)
	if err != nil {
		return result, fmt.Errorf("marshal struct: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}

// ToStruct converts any JSON-encodable value to a Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode struct payload: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("decode struct payload: %w", err)
	}
	return out, nil
}
