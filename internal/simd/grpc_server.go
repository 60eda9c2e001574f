package simd

import (
	"context"
	"errors"

	"github.com/GoSim-25-26J-441/inheritance-core/pkg/logger"
	"github.com/GoSim-25-26J-441/inheritance-core/pkg/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// SweepGRPCServer implements SweepServiceServer using a RunStore backend.
type SweepGRPCServer struct {
	store    *RunStore
	Executor *RunExecutor
}

var _ SweepServiceServer = (*SweepGRPCServer)(nil)

// NewSweepGRPCServer creates a new SweepGRPCServer with the provided RunStore and RunExecutor.
func NewSweepGRPCServer(store *RunStore, executor *RunExecutor) *SweepGRPCServer {
	return &SweepGRPCServer{
		store:    store,
		Executor: executor,
	}
}

func stringField(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[name].GetStringValue()
}

func numberField(req *structpb.Struct, name string) float64 {
	if req == nil {
		return 0
	}
	return req.GetFields()[name].GetNumberValue()
}

func toStatusError(err error) error {
	switch {
	case errors.Is(err, ErrRunNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrRunExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrRunTerminal), errors.Is(err, ErrResultsNotReady):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrRunIDMissing), errors.Is(err, ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func runResponse(rec *RunRecord) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(map[string]any{"run": runToMap(rec)})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

// CreateRun expects config_yaml and optionally run_id, callback_url and
// callback_secret.
func (s *SweepGRPCServer) CreateRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	input := &RunInput{
		ConfigYAML:     stringField(req, "config_yaml"),
		CallbackURL:    stringField(req, "callback_url"),
		CallbackSecret: stringField(req, "callback_secret"),
	}
	rec, err := s.store.Create(stringField(req, "run_id"), input)
	if err != nil {
		return nil, toStatusError(err)
	}

	logger.ForRun(rec.Run.ID).Info("run created")
	return runResponse(rec)
}

func (s *SweepGRPCServer) StartRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}

	updated, err := s.Executor.Start(runID)
	if err != nil {
		return nil, toStatusError(err)
	}

	logger.ForRun(runID).Info("run started (executor)")
	return runResponse(updated)
}

func (s *SweepGRPCServer) StopRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}

	updated, err := s.Executor.Stop(runID)
	if err != nil {
		return nil, toStatusError(err)
	}
	return runResponse(updated)
}

func (s *SweepGRPCServer) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	rec, ok := s.store.Get(runID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	return runResponse(rec)
}

// ListRuns accepts optional limit, offset and status fields.
func (s *SweepGRPCServer) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit := 50
	if l := int(numberField(req, "limit")); l > 0 {
		limit = min(l, 1000)
	}
	offset := max(int(numberField(req, "offset")), 0)

	statusFilter := models.RunStatusUnspecified
	if raw := stringField(req, "status"); raw != "" {
		if statusFilter = models.ParseRunStatus(raw); statusFilter == models.RunStatusUnspecified {
			return nil, status.Errorf(codes.InvalidArgument, "unknown status: %s", raw)
		}
	}

	recs := s.store.ListFiltered(limit, offset, statusFilter)
	runs := make([]any, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, runToMap(rec))
	}
	resp, err := structpb.NewStruct(map[string]any{"runs": runs})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (s *SweepGRPCServer) GetResults(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	rec, ok := s.store.Get(runID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	if rec.Result == nil {
		return nil, toStatusError(ErrResultsNotReady)
	}

	resp, err := structpb.NewStruct(resultsToMap(rec))
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}
