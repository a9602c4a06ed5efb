package grpcserver

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/and161185/vidgraph/internal/model"
)

var errNoBearer = errors.New("no bearer token")

// session resolves the caller from "authorization: Bearer <jwt>".
// The returned error is already a gRPC status.
func (s *Server) session(ctx context.Context) (model.Session, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return model.Session{}, status.Error(codes.Unauthenticated, "please re-authenticate: "+err.Error())
	}
	sess, err := s.auth.Validate(tok)
	if err != nil {
		return model.Session{}, s.fail("validate", err)
	}
	return sess, nil
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errNoBearer
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			if t := strings.TrimSpace(v[7:]); t != "" {
				return t, nil
			}
		}
	}
	return "", errNoBearer
}
