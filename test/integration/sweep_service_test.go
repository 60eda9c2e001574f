//go:build integration
// +build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/inheritance-core/internal/simd"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/utils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceSweepYAML = `
network:
  nodes: 600
  group_size: 60
  executor_offsets: [9, 11, 17, 22, 29, 31]
  quorum: 5
sampling:
  bucket_size: 100
  time_weighted: true
sweep:
  trials: 300
  seed: 21
  workers: 4
`

type sweepService struct {
	store    *simd.RunStore
	executor *simd.RunExecutor
	http     *httptest.Server
	grpc     *simd.SweepServiceClient
}

func startSweepService(t *testing.T) *sweepService {
	t.Helper()

	store := simd.NewRunStore()
	executor := simd.NewRunExecutor(store)
	executor.SetNotifier(simd.NewNotifier().WithRetry(2, utils.NewConstantBackoff(10*time.Millisecond)))

	httpSrv := httptest.NewServer(simd.NewHTTPServer(store, executor).Handler())
	t.Cleanup(httpSrv.Close)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	grpcSrv := grpc.NewServer()
	simd.RegisterSweepServiceServer(grpcSrv, simd.NewSweepGRPCServer(store, executor))
	go func() { _ = grpcSrv.Serve(lis) }()
	t.Cleanup(grpcSrv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = executor.Shutdown(ctx)
	})

	return &sweepService{
		store:    store,
		executor: executor,
		http:     httpSrv,
		grpc:     simd.NewSweepServiceClient(conn),
	}
}

func (s *sweepService) postJSON(t *testing.T, path string, body any) map[string]any {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(s.http.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s: status %d: %s", path, resp.StatusCode, raw)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestIntegration_SweepServiceHTTPAndGRPC(t *testing.T) {
	var (
		mu       sync.Mutex
		hookBody []byte
		hookHits int
	)
	received := make(chan struct{}, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		hookBody = body
		hookHits++
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
		select {
		case received <- struct{}{}:
		default:
		}
	}))
	defer hook.Close()
	hookURL, _ := url.Parse(hook.URL)

	svc := startSweepService(t)

	created := svc.postJSON(t, "/v1/runs", map[string]any{
		"run_id": "integration-sweep",
		"start":  true,
		"input": map[string]any{
			"config_yaml":  serviceSweepYAML,
			"callback_url": "http://localhost:" + hookURL.Port() + "/done/{run_id}",
		},
	})
	run, ok := created["run"].(map[string]any)
	if !ok || run["id"] != "integration-sweep" {
		t.Fatalf("unexpected create response: %v", created)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := svc.executor.Wait(ctx, "integration-sweep"); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	req, _ := structpb.NewStruct(map[string]any{"run_id": "integration-sweep"})
	got, err := svc.grpc.GetRun(ctx, req)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	status := got.GetFields()["run"].GetStructValue().GetFields()["status"].GetStringValue()
	if status != string(models.RunStatusCompleted) {
		t.Fatalf("expected completed run over gRPC, got %q", status)
	}

	results, err := svc.grpc.GetResults(ctx, req)
	if err != nil {
		t.Fatalf("GetResults: %v", err)
	}
	fields := results.GetFields()
	succeeded := int(fields["succeeded"].GetNumberValue())
	skipped := int(fields["skipped"].GetNumberValue())
	if succeeded+skipped != 300 {
		t.Fatalf("expected 300 accounted trials, got %d+%d", succeeded, skipped)
	}
	if n := len(fields["points"].GetListValue().GetValues()); n != succeeded {
		t.Fatalf("expected %d points, got %d", succeeded, n)
	}

	resp, err := http.Get(svc.http.URL + "/v1/runs/integration-sweep/export?format=csv")
	if err != nil {
		t.Fatalf("GET export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status %d", resp.StatusCode)
	}
	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != succeeded+1 {
		t.Fatalf("expected %d csv rows, got %d", succeeded+1, len(rows))
	}
	if rows[0][0] != models.AxisInitialFraction || rows[0][1] != models.AxisFinalFraction {
		t.Fatalf("unexpected csv header %v", rows[0])
	}

	select {
	case <-received:
	case <-time.After(10 * time.Second):
		t.Fatal("completion callback was not delivered")
	}
	mu.Lock()
	defer mu.Unlock()
	var payload simd.NotificationPayload
	if err := json.Unmarshal(hookBody, &payload); err != nil {
		t.Fatalf("decode callback: %v", err)
	}
	if payload.RunID != "integration-sweep" || payload.Status != models.RunStatusCompleted {
		t.Fatalf("unexpected callback payload %+v", payload)
	}
	if hookHits != 1 {
		t.Fatalf("expected one callback, got %d", hookHits)
	}
}

func TestIntegration_SweepServiceStopOverGRPC(t *testing.T) {
	svc := startSweepService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	longSweep := `
sweep:
  trials: 200000
  seed: 5
  workers: 1
`
	createReq, _ := structpb.NewStruct(map[string]any{
		"run_id":      "integration-stop",
		"config_yaml": longSweep,
	})
	if _, err := svc.grpc.CreateRun(ctx, createReq); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	idReq, _ := structpb.NewStruct(map[string]any{"run_id": "integration-stop"})
	if _, err := svc.grpc.StartRun(ctx, idReq); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if _, err := svc.grpc.StopRun(ctx, idReq); err != nil {
		t.Fatalf("StopRun: %v", err)
	}
	if err := svc.executor.Wait(ctx, "integration-stop"); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	rec, ok := svc.store.Get("integration-stop")
	if !ok {
		t.Fatal("run disappeared")
	}
	if rec.Run.Status != models.RunStatusCancelled {
		t.Fatalf("expected cancelled, got %s", rec.Run.Status)
	}

	listReq, _ := structpb.NewStruct(map[string]any{"status": "cancelled"})
	list, err := svc.grpc.ListRuns(ctx, listReq)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if n := len(list.GetFields()["runs"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("expected one cancelled run, got %d", n)
	}
}
