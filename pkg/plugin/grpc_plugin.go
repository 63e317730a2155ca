// Package plugin provides the gRPC-based plugin interface for dairos pipeline
// factories.
//
// This file defines the go-plugin wrapper for the PipelineFactory service.
// Plugins run as separate processes; the host sends the factory arguments,
// the plugin answers with a Plan and the host materialises it.
package plugin

import (
	"context"
	"errors"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"dairos.szuro.net/pkg/dai"
	"dairos.szuro.net/pkg/dainode"
	"dairos.szuro.net/pkg/param"
)

// Handshake is the shared configuration between the host and plugins.
// This must match exactly between the host and all plugins.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "DAIROS_PLUGIN",
	MagicCookieValue: "pipeline_factory",
}

// PluginKey is the name the pipeline factory is dispensed under.
const PluginKey = "pipeline"

const (
	serviceName          = "dairos.PipelineFactory"
	methodInfo           = "/" + serviceName + "/Info"
	methodCreatePipeline = "/" + serviceName + "/CreatePipeline"
)

// Planner is implemented by out-of-process plugins.
type Planner interface {
	Info() PluginInfo
	Plan(req PlanRequest) (Plan, error)
}

// PipelinePlugin is the implementation of the plugin.GRPCPlugin interface
// for HashiCorp go-plugin. This handles the gRPC server/client setup.
type PipelinePlugin struct {
	plugin.Plugin
	// Impl is the concrete implementation, only set on the plugin side.
	Impl Planner
}

// GRPCServer registers the planner with the gRPC server.
// This is called by go-plugin when starting the plugin process.
func (p *PipelinePlugin) GRPCServer(broker *plugin.GRPCBroker, s *grpc.Server) error {
	s.RegisterService(&pipelineServiceDesc, &plannerServer{impl: p.Impl})
	return nil
}

// GRPCClient creates a client that communicates with the plugin.
// This is called by the host when connecting to a plugin.
func (p *PipelinePlugin) GRPCClient(ctx context.Context, broker *plugin.GRPCBroker, c *grpc.ClientConn) (interface{}, error) {
	return &PlannerClient{conn: c}, nil
}

type pipelineServer interface {
	Info(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	CreatePipeline(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var pipelineServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*pipelineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Info", Handler: infoHandler},
		{MethodName: "CreatePipeline", Handler: createPipelineHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dairos/pipeline_factory.proto",
}

func infoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(pipelineServer).Info(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodInfo}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(pipelineServer).Info(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func createPipelineHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(pipelineServer).CreatePipeline(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCreatePipeline}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(pipelineServer).CreatePipeline(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// plannerServer adapts a Planner to the wire service.
type plannerServer struct {
	impl Planner
}

func (s *plannerServer) Info(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return InfoToProto(s.impl.Info())
}

func (s *plannerServer) CreatePipeline(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := ProtoToPlanRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	pl, err := s.impl.Plan(r)
	if err != nil {
		return nil, toStatus(err)
	}
	return PlanToProto(pl)
}

func toStatus(err error) error {
	var capErr *dai.CapabilityError
	switch {
	case errors.Is(err, ErrDeviceCapability), errors.As(err, &capErr):
		return status.Error(codes.FailedPrecondition, err.Error())
	case IsConfigError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.FailedPrecondition:
		return errors.Join(ErrDeviceCapability, errors.New(st.Message()))
	case codes.InvalidArgument:
		return errors.Join(ErrConfig, errors.New(st.Message()))
	default:
		return err
	}
}

// PlannerClient is the host side of the PipelineFactory service.
type PlannerClient struct {
	conn grpc.ClientConnInterface
}

// NewPlannerClient wraps an established connection.
func NewPlannerClient(conn grpc.ClientConnInterface) *PlannerClient {
	return &PlannerClient{conn: conn}
}

// Info asks the plugin for its metadata.
func (c *PlannerClient) Info(ctx context.Context) (PluginInfo, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodInfo, &emptypb.Empty{}, out); err != nil {
		return PluginInfo{}, err
	}
	return ProtoToInfo(out), nil
}

// Plan sends the factory arguments and returns the plugin's plan.
func (c *PlannerClient) Plan(ctx context.Context, req PlanRequest) (Plan, error) {
	in, err := PlanRequestToProto(req)
	if err != nil {
		return Plan{}, errors.Join(ErrConfig, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodCreatePipeline, in, out); err != nil {
		return Plan{}, fromStatus(err)
	}
	return ProtoToPlan(out)
}

// RemoteFactory turns a PlannerClient into a PipelineFactory.
type RemoteFactory struct {
	Client *PlannerClient
}

func (f *RemoteFactory) CreatePipeline(ctx dainode.Context, dev dai.Device, p *dai.Pipeline, ph param.Handler, deviceName string, rsCompat bool, nnType string) ([]dainode.Node, error) {
	if err := CheckInputs(dev, p); err != nil {
		return nil, err
	}
	pl, err := f.Client.Plan(context.Background(), NewPlanRequest(dev, ph, deviceName, rsCompat, nnType))
	if err != nil {
		return nil, err
	}
	return pl.Materialize(ctx, dev, p, ph, deviceName, rsCompat)
}

// FactoryPlanner serves an in-process factory as a Planner. The factory runs
// against a scratch pipeline built from the request and the resulting nodes
// are described as a plan.
type FactoryPlanner struct {
	PluginInfo PluginInfo
	Factory    PipelineFactory
}

func (f *FactoryPlanner) Info() PluginInfo {
	return f.PluginInfo
}

func (f *FactoryPlanner) Plan(req PlanRequest) (Plan, error) {
	dev := req.Device()
	nodes, err := f.Factory.CreatePipeline(nil, dev, dai.NewPipeline(dev), param.NewMap(req.Params), req.DeviceName, req.RsCompat, req.NNType)
	if err != nil {
		return Plan{}, err
	}
	return Describe(nodes), nil
}
