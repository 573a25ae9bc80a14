package proto

import (
	"context"
	"encoding/json"
	"net"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/service"
)

const tokenMetadataKey = "x-token"

type BookmarkerServerImpl struct {
	merger       *service.Merger
	apiTokenHash []byte
	logger       *zap.SugaredLogger
}

func NewGRPCServer(lc fx.Lifecycle, cfg *config.Config, merger *service.Merger, logger *zap.SugaredLogger) *BookmarkerServerImpl {
	instance := newBookmarkerServer(cfg, merger, logger)
	grpcServer := instance.register()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr())
			if err != nil {
				return err
			}
			logger.Infow("starting GRPC server", "addr", lis.Addr().String())
			go func() {
				if err := grpcServer.Serve(lis); err != nil {
					logger.Fatalw("failed to serve", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping GRPC server.")
			grpcServer.GracefulStop()
			return nil
		},
	})

	return instance
}

func newBookmarkerServer(cfg *config.Config, merger *service.Merger, logger *zap.SugaredLogger) *BookmarkerServerImpl {
	instance := BookmarkerServerImpl{
		merger: merger,
		logger: logger.Named("grpc"),
	}
	if cfg.APITokenHash != "" {
		instance.apiTokenHash = []byte(cfg.APITokenHash)
	}
	return &instance
}

func (s *BookmarkerServerImpl) register() *grpc.Server {
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(s.authInterceptor))
	RegisterBookmarkerServer(grpcServer, s)
	return grpcServer
}

// MergeBookmarks takes the same batch the HTTP endpoint takes, one list
// element per bookmark record, and returns the merge report as a struct.
func (s *BookmarkerServerImpl) MergeBookmarks(ctx context.Context, request *structpb.ListValue) (*structpb.Struct, error) {
	batch := make([]json.RawMessage, len(request.GetValues()))
	for i, v := range request.GetValues() {
		raw, err := json.Marshal(v.AsInterface())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "record %d: %v", i, err)
		}
		batch[i] = raw
	}

	report := s.merger.Merge(ctx, batch)

	raw, err := json.Marshal(report)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return resp, nil
}

func (s *BookmarkerServerImpl) authInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if s.apiTokenHash == nil {
		return handler(ctx, req)
	}
	md, _ := metadata.FromIncomingContext(ctx)
	tokens := md.Get(tokenMetadataKey)
	if len(tokens) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	if err := bcrypt.CompareHashAndPassword(s.apiTokenHash, []byte(tokens[0])); err != nil {
		s.logger.Warnw("rejected token", "method", info.FullMethod)
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return handler(ctx, req)
}
