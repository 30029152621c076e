package server

import (
	"context"
	"encoding/json"
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/reversus/reversus-server-go/internal/config"
	"github.com/reversus/reversus-server-go/internal/game"
	"github.com/reversus/reversus-server-go/internal/game/rules"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// TableServiceName is the gRPC service name, also used for health checks.
const TableServiceName = "reversus.v1.TableService"

// JSONCodecName is the content subtype table calls are encoded with.
const JSONCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

// ListTablesRequest has no fields.
type ListTablesRequest struct{}

// ListTablesResponse lists running tables.
type ListTablesResponse struct {
	Tables []TableSummary `json:"tables"`
}

// TableResponse describes one table.
type TableResponse struct {
	Table TableSummary `json:"table"`
}

// GetViewRequest asks for a participant's view. An empty participant gets
// the spectator view.
type GetViewRequest struct {
	TableID       string `json:"table_id"`
	ParticipantID string `json:"participant_id"`
}

// ViewResponse carries a filtered state.
type ViewResponse struct {
	State *game.GameState `json:"state"`
}

// SubmitActionRequest plays one move.
type SubmitActionRequest struct {
	TableID       string       `json:"table_id"`
	ParticipantID string       `json:"participant_id"`
	Action        rules.Action `json:"action"`
}

// ResolveTargetRequest answers a field-effect target request.
type ResolveTargetRequest struct {
	TableID       string `json:"table_id"`
	ParticipantID string `json:"participant_id"`
	TargetID      string `json:"target_id"`
}

// TableServiceServer is the table RPC surface.
type TableServiceServer interface {
	CreateTable(context.Context, *CreateTableRequest) (*TableResponse, error)
	ListTables(context.Context, *ListTablesRequest) (*ListTablesResponse, error)
	GetView(context.Context, *GetViewRequest) (*ViewResponse, error)
	SubmitAction(context.Context, *SubmitActionRequest) (*ViewResponse, error)
	ResolveTarget(context.Context, *ResolveTargetRequest) (*ViewResponse, error)
}

type tableServer struct {
	manager *Manager
	ctx     context.Context
	logger  *zap.Logger
}

var _ TableServiceServer = (*tableServer)(nil)

func (s *tableServer) CreateTable(ctx context.Context, req *CreateTableRequest) (*TableResponse, error) {
	if len(req.Seats) == 0 {
		return nil, status.Error(codes.InvalidArgument, "seats are required")
	}
	t, err := s.manager.CreateTable(s.ctx, *req)
	if err != nil && t == nil {
		return nil, StatusError(err)
	}
	if err != nil {
		s.logger.Warn("table created with errors", zap.String("table_id", t.ID), zap.Error(err))
	}
	return &TableResponse{Table: t.Summary()}, nil
}

func (s *tableServer) ListTables(context.Context, *ListTablesRequest) (*ListTablesResponse, error) {
	return &ListTablesResponse{Tables: s.manager.ListTables()}, nil
}

func (s *tableServer) GetView(_ context.Context, req *GetViewRequest) (*ViewResponse, error) {
	t, err := s.table(req.TableID)
	if err != nil {
		return nil, err
	}
	return &ViewResponse{State: t.Engine.View(req.ParticipantID)}, nil
}

func (s *tableServer) SubmitAction(_ context.Context, req *SubmitActionRequest) (*ViewResponse, error) {
	t, err := s.table(req.TableID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ParticipantID) == "" {
		return nil, StatusError(ErrSpectator)
	}
	if err := t.Engine.SubmitAction(req.ParticipantID, req.Action); err != nil {
		return nil, StatusError(err)
	}
	if err := t.Advance(s.ctx); err != nil {
		return nil, StatusError(err)
	}
	return &ViewResponse{State: t.Engine.View(req.ParticipantID)}, nil
}

func (s *tableServer) ResolveTarget(_ context.Context, req *ResolveTargetRequest) (*ViewResponse, error) {
	t, err := s.table(req.TableID)
	if err != nil {
		return nil, err
	}
	if err := t.Handle(s.ctx, req.ParticipantID, Inbound{Type: MessageTarget, TargetID: req.TargetID}); err != nil {
		return nil, StatusError(err)
	}
	return &ViewResponse{State: t.Engine.View(req.ParticipantID)}, nil
}

func (s *tableServer) table(id string) (*Table, error) {
	t, ok := s.manager.GetTable(strings.TrimSpace(id))
	if !ok {
		return nil, StatusError(ErrTableNotFound)
	}
	return t, nil
}

func unaryMethod[Req, Resp any](name string, call func(TableServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + TableServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TableServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TableServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// TableServiceDesc describes the table service for grpc.Server.RegisterService.
var TableServiceDesc = grpc.ServiceDesc{
	ServiceName: TableServiceName,
	HandlerType: (*TableServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateTable", TableServiceServer.CreateTable),
		unaryMethod("ListTables", TableServiceServer.ListTables),
		unaryMethod("GetView", TableServiceServer.GetView),
		unaryMethod("SubmitAction", TableServiceServer.SubmitAction),
		unaryMethod("ResolveTarget", TableServiceServer.ResolveTarget),
	},
	Metadata: "reversus/v1/table.json",
}

// TableClient calls the table service over a JSON-encoded connection.
type TableClient struct {
	conn grpc.ClientConnInterface
}

// NewTableClient wraps conn.
func NewTableClient(conn grpc.ClientConnInterface) *TableClient {
	return &TableClient{conn: conn}
}

func (c *TableClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append(opts, grpc.CallContentSubtype(JSONCodecName))
	return c.conn.Invoke(ctx, "/"+TableServiceName+"/"+method, in, out, opts...)
}

// CreateTable seats a new game.
func (c *TableClient) CreateTable(ctx context.Context, in *CreateTableRequest, opts ...grpc.CallOption) (*TableResponse, error) {
	out := new(TableResponse)
	return out, c.invoke(ctx, "CreateTable", in, out, opts...)
}

// ListTables lists running tables.
func (c *TableClient) ListTables(ctx context.Context, in *ListTablesRequest, opts ...grpc.CallOption) (*ListTablesResponse, error) {
	out := new(ListTablesResponse)
	return out, c.invoke(ctx, "ListTables", in, out, opts...)
}

// GetView fetches a participant's view.
func (c *TableClient) GetView(ctx context.Context, in *GetViewRequest, opts ...grpc.CallOption) (*ViewResponse, error) {
	out := new(ViewResponse)
	return out, c.invoke(ctx, "GetView", in, out, opts...)
}

// SubmitAction plays a move.
func (c *TableClient) SubmitAction(ctx context.Context, in *SubmitActionRequest, opts ...grpc.CallOption) (*ViewResponse, error) {
	out := new(ViewResponse)
	return out, c.invoke(ctx, "SubmitAction", in, out, opts...)
}

// ResolveTarget answers a field-effect target request.
func (c *TableClient) ResolveTarget(ctx context.Context, in *ResolveTargetRequest, opts ...grpc.CallOption) (*ViewResponse, error) {
	out := new(ViewResponse)
	return out, c.invoke(ctx, "ResolveTarget", in, out, opts...)
}

// CodeOf maps a domain error to a gRPC code.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return st.Code()
	}
	switch {
	case errors.Is(err, ErrTableNotFound):
		return codes.NotFound
	case errors.Is(err, ErrSpectator):
		return codes.PermissionDenied
	case errors.Is(err, ErrUnknownMessage), errors.Is(err, game.ErrInvalidConfiguration):
		return codes.InvalidArgument
	case errors.Is(err, rules.ErrIllegalAction):
		return codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	return codes.Internal
}

// StatusError converts err into a gRPC status error.
func StatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(CodeOf(err), err.Error())
}

// RecoveryInterceptor turns handler panics into Internal errors.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				logger.Error("panic in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", buf[:n]),
				)
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its duration and code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			fields = append(fields, zap.String("peer", p.Addr.String()))
		}
		if err != nil {
			logger.Debug("gRPC call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("gRPC call", fields...)
		}
		return resp, err
	}
}

// NewGRPCServer builds a server exposing the table service and the
// standard health service. ctx bounds bot turns started from calls.
func NewGRPCServer(ctx context.Context, cfg config.GRPCConfig, manager *Manager, logger *zap.Logger) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		),
	}
	if cfg.KeepaliveTime > 0 {
		opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.KeepaliveTime,
			Timeout: cfg.KeepaliveTimeout,
		}))
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(cfg.MaxConcurrentStreams))
	}

	srv := grpc.NewServer(opts...)
	srv.RegisterService(&TableServiceDesc, &tableServer{manager: manager, ctx: ctx, logger: logger})

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(TableServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, hs
}
