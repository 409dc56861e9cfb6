// Package grpc provides the gRPC endpoint of the workspace.
//
// It serves the standard grpc.health.v1 health service, so load balancers
// and orchestrators can check the process, plus server reflection.
package grpc
