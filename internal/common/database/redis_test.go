package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisJSONRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	type entity struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	in := []entity{{ID: 1, Name: "North"}}
	require.NoError(t, client.SetJSON(ctx, "k", in, time.Minute))

	var out []entity
	require.NoError(t, client.GetJSON(ctx, "k", &out))
	assert.Equal(t, in, out)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, client.GetJSON(ctx, "k", &out), ErrCacheMiss)
}

func TestRedisGetJSON_PropagatesBackendErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	client := NewRedisFromClient(db)

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))

	var out []int
	err := client.GetJSON(context.Background(), "k", &out)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}
