// Package grpc 提供 gRPC 健康检查与反射服务
package grpc

import (
	"context"
	"time"

	"github.com/wyfcoding/tradeportal/pkg/logger"
	"github.com/wyfcoding/tradeportal/pkg/middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Probe 依赖探活，返回 nil 表示可用
type Probe func(ctx context.Context) error

// HealthServer 包装 gRPC 服务器，按探活结果更新健康状态
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	service  string
	probe    Probe
	interval time.Duration
}

// NewHealthServer 创建 gRPC 服务器并注册健康检查与反射
func NewHealthServer(service string, probe Probe, interval time.Duration) *HealthServer {
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.GRPCLoggingInterceptor(),
			middleware.GRPCRecoveryInterceptor(),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	reflection.Register(server)

	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthServer{
		server:   server,
		health:   hs,
		service:  service,
		probe:    probe,
		interval: interval,
	}
}

// Server 底层 gRPC 服务器
func (s *HealthServer) Server() *grpc.Server {
	return s.server
}

// Check 执行一次探活并更新状态
func (s *HealthServer) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if s.probe != nil {
		if err := s.probe(ctx); err != nil {
			logger.Warn(ctx, "health probe failed", "service", s.service, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
	return status
}

// Watch 周期性探活，ctx 结束时标记为不可用
func (s *HealthServer) Watch(ctx context.Context) {
	s.Check(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}
