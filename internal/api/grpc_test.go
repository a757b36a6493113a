package api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/classpulse/sociogram/internal/config"
	"github.com/classpulse/sociogram/internal/models"
)

type echoAnalyzer struct{}

func (echoAnalyzer) AnalyzeSurvey(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := StructToAnalysisRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return ToStruct(models.AnalysisResult{AnalysisID: "a1", SurveyID: req.SurveyID, TotalResponses: len(req.Responses)})
}

func (echoAnalyzer) GetSnapshot(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := in.GetFields()["id"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	return ToStruct(models.AnalysisResult{AnalysisID: id})
}

func dialBufconn(t *testing.T, srv NetworkAnalyzerServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := NewServerWithListener(config.ServerConfig{GracefulTimeout: time.Second}, lis, srv)
	go func() { _ = server.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPCAnalyzeSurveyRoundTrip(t *testing.T) {
	conn := dialBufconn(t, echoAnalyzer{})
	client := NewNetworkAnalyzerClient(conn)

	req := models.AnalysisRequest{
		SurveyID:  "s1",
		Students:  []models.Student{{ID: "A"}, {ID: "B"}},
		Responses: []models.SurveyResponse{{RespondentID: "A", Answers: []models.Answer{{QuestionID: "q_best_friend", Nominations: []string{"B"}}}}},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.AnalyzeSurvey(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "s1", result.SurveyID)
	assert.Equal(t, 1, result.TotalResponses)

	snap, err := client.GetSnapshot(ctx, "a42")
	require.NoError(t, err)
	assert.Equal(t, "a42", snap.AnalysisID)

	_, err = client.GetSnapshot(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCHealthServing(t *testing.T) {
	conn := dialBufconn(t, echoAnalyzer{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: NetworkAnalyzerServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestStructToAnalysisRequestNil(t *testing.T) {
	_, err := StructToAnalysisRequest(nil)
	assert.Error(t, err)
}
