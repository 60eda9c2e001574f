package simd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func runField(t *testing.T, resp *structpb.Struct) map[string]any {
	t.Helper()
	run, ok := resp.AsMap()["run"].(map[string]any)
	if !ok {
		t.Fatalf("expected run in response, got %v", resp.AsMap())
	}
	return run
}

func TestGRPCServerCreateStartGetResultsLifecycle(t *testing.T) {
	store := NewRunStore()
	executor := NewRunExecutor(store)
	srv := NewSweepGRPCServer(store, executor)
	ctx := context.Background()

	createResp, err := srv.CreateRun(ctx, mustStruct(t, map[string]any{"config_yaml": smallSweepYAML}))
	if err != nil {
		t.Fatalf("CreateRun error: %v", err)
	}
	runID, _ := runField(t, createResp)["id"].(string)
	if runID == "" {
		t.Fatalf("expected run id")
	}

	// Results should not be available before the run completes.
	_, err = srv.GetResults(ctx, mustStruct(t, map[string]any{"run_id": runID}))
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition before results exist, got %v", err)
	}

	if _, err := srv.StartRun(ctx, mustStruct(t, map[string]any{"run_id": runID})); err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	waitForRun(t, executor, runID)

	getResp, err := srv.GetRun(ctx, mustStruct(t, map[string]any{"run_id": runID}))
	if err != nil {
		t.Fatalf("GetRun error: %v", err)
	}
	if got := runField(t, getResp)["status"]; got != string(models.RunStatusCompleted) {
		t.Fatalf("expected completed, got %v", got)
	}

	results, err := srv.GetResults(ctx, mustStruct(t, map[string]any{"run_id": runID}))
	if err != nil {
		t.Fatalf("GetResults error: %v", err)
	}
	m := results.AsMap()
	if m["requested"] != float64(40) {
		t.Fatalf("expected 40 requested, got %v", m["requested"])
	}
	if points, _ := m["points"].([]any); float64(len(points)) != m["succeeded"] {
		t.Fatalf("expected one point per successful trial")
	}

	listResp, err := srv.ListRuns(ctx, mustStruct(t, map[string]any{"status": "completed"}))
	if err != nil {
		t.Fatalf("ListRuns error: %v", err)
	}
	if runs, _ := listResp.AsMap()["runs"].([]any); len(runs) != 1 {
		t.Fatalf("expected 1 completed run, got %d", len(runs))
	}
}

func TestGRPCServerErrorCodes(t *testing.T) {
	store := NewRunStore()
	srv := NewSweepGRPCServer(store, NewRunExecutor(store))
	ctx := context.Background()
	empty := mustStruct(t, map[string]any{})
	missing := mustStruct(t, map[string]any{"run_id": "missing"})

	cases := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"start without id", func() error { _, err := srv.StartRun(ctx, empty); return err }, codes.InvalidArgument},
		{"stop without id", func() error { _, err := srv.StopRun(ctx, empty); return err }, codes.InvalidArgument},
		{"get without id", func() error { _, err := srv.GetRun(ctx, empty); return err }, codes.InvalidArgument},
		{"results without id", func() error { _, err := srv.GetResults(ctx, empty); return err }, codes.InvalidArgument},
		{"start missing", func() error { _, err := srv.StartRun(ctx, missing); return err }, codes.NotFound},
		{"stop missing", func() error { _, err := srv.StopRun(ctx, missing); return err }, codes.NotFound},
		{"get missing", func() error { _, err := srv.GetRun(ctx, missing); return err }, codes.NotFound},
		{"results missing", func() error { _, err := srv.GetResults(ctx, missing); return err }, codes.NotFound},
		{"invalid config", func() error {
			_, err := srv.CreateRun(ctx, mustStruct(t, map[string]any{"config_yaml": "sweep:\n  trials: 0\n"}))
			return err
		}, codes.InvalidArgument},
		{"bad status filter", func() error {
			_, err := srv.ListRuns(ctx, mustStruct(t, map[string]any{"status": "bogus"}))
			return err
		}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := status.Code(tc.call()); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	if _, err := srv.CreateRun(ctx, mustStruct(t, map[string]any{"run_id": "dup"})); err != nil {
		t.Fatalf("CreateRun error: %v", err)
	}
	_, err := srv.CreateRun(ctx, mustStruct(t, map[string]any{"run_id": "dup"}))
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	if _, err := srv.StopRun(ctx, mustStruct(t, map[string]any{"run_id": "dup"})); err != nil {
		t.Fatalf("StopRun error: %v", err)
	}
	_, err = srv.StartRun(ctx, mustStruct(t, map[string]any{"run_id": "dup"}))
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition starting a cancelled run, got %v", err)
	}
}

func TestGRPCServerOverBufconn(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	store := NewRunStore()
	executor := NewRunExecutor(store)

	grpcServer := grpc.NewServer()
	RegisterSweepServiceServer(grpcServer, NewSweepGRPCServer(store, executor))
	go func() {
		_ = grpcServer.Serve(lis)
	}()
	defer grpcServer.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	defer conn.Close()

	client := NewSweepServiceClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createResp, err := client.CreateRun(ctx, mustStruct(t, map[string]any{
		"run_id":      "wire",
		"config_yaml": smallSweepYAML,
	}))
	if err != nil {
		t.Fatalf("CreateRun over the wire: %v", err)
	}
	if runField(t, createResp)["id"] != "wire" {
		t.Fatalf("expected run id wire")
	}

	if _, err := client.StartRun(ctx, mustStruct(t, map[string]any{"run_id": "wire"})); err != nil {
		t.Fatalf("StartRun over the wire: %v", err)
	}
	waitForRun(t, executor, "wire")

	results, err := client.GetResults(ctx, mustStruct(t, map[string]any{"run_id": "wire"}))
	if err != nil {
		t.Fatalf("GetResults over the wire: %v", err)
	}
	if results.AsMap()["x_label"] != models.AxisInitialFraction {
		t.Fatalf("unexpected results: %v", results.AsMap()["x_label"])
	}

	_, err = client.GetRun(ctx, mustStruct(t, map[string]any{"run_id": "nope"}))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound over the wire, got %v", err)
	}

	listResp, err := client.ListRuns(ctx, mustStruct(t, map[string]any{"limit": 10}))
	if err != nil {
		t.Fatalf("ListRuns over the wire: %v", err)
	}
	if runs, _ := listResp.AsMap()["runs"].([]any); len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	if _, err := client.StopRun(ctx, mustStruct(t, map[string]any{"run_id": "wire"})); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition stopping a completed run, got %v", err)
	}
}
