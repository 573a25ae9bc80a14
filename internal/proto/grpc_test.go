package proto

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/db/dbtest"
	"github.com/Rogue-Bear-Innovations/bookmarker-sync/internal/service"
)

func dial(t *testing.T, tokenHash string) BookmarkerClient {
	gdb := dbtest.Open(t)
	logger := zaptest.NewLogger(t).Sugar()
	cfg := &config.Config{APITokenHash: tokenHash, Database: dbtest.Options()}
	grpcServer := newBookmarkerServer(cfg, service.NewMerger(gdb, cfg, logger), logger).register()

	lis := bufconn.Listen(1024 * 1024)
	go func() {
		_ = grpcServer.Serve(lis)
	}()
	t.Cleanup(grpcServer.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(ctx, "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithInsecure(),
		grpc.WithBlock(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewBookmarkerClient(conn)
}

func batch(t *testing.T) *structpb.ListValue {
	list, err := structpb.NewList([]interface{}{
		map[string]interface{}{
			"url":       "https://go.dev",
			"title":     "Go",
			"tags":      []interface{}{"Lang"},
			"dateAdded": float64(1620000000000),
		},
		map[string]interface{}{
			"title": "missing url",
		},
	})
	require.NoError(t, err)
	return list
}

func TestMergeBookmarks(t *testing.T) {
	c := dial(t, "")

	resp, err := c.MergeBookmarks(context.Background(), batch(t))
	require.NoError(t, err)

	fields := resp.AsMap()
	assert.EqualValues(t, 1, fields["succeeded"])
	assert.EqualValues(t, 1, fields["failed"])

	results := fields["results"].([]interface{})
	require.Len(t, results, 2)
	assert.Equal(t, "created", results[0].(map[string]interface{})["status"])
	assert.Equal(t, "failed", results[1].(map[string]interface{})["status"])

	resp, err = c.MergeBookmarks(context.Background(), batch(t))
	require.NoError(t, err)
	results = resp.AsMap()["results"].([]interface{})
	assert.Equal(t, "updated", results[0].(map[string]interface{})["status"])
}

func TestMergeBookmarksRequiresToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	c := dial(t, string(hash))

	_, err = c.MergeBookmarks(context.Background(), batch(t))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), tokenMetadataKey, "wrong")
	_, err = c.MergeBookmarks(ctx, batch(t))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx = metadata.AppendToOutgoingContext(context.Background(), tokenMetadataKey, "secret")
	_, err = c.MergeBookmarks(ctx, batch(t))
	assert.NoError(t, err)
}
