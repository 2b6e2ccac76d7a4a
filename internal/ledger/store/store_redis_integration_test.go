//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"tokensafe/internal/ledger"
	"tokensafe/internal/ledger/store"
	"tokensafe/pkg/platform/sentinel"
	"tokensafe/pkg/testutil/containers"
)

type RedisRecordStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisRecordStore
	ctx   context.Context
}

func TestRedisRecordStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisRecordStoreSuite))
}

func (s *RedisRecordStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedisRecordStore(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisRecordStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisRecordStoreSuite) addr(seed string) ledger.Address {
	addr, _, err := ledger.Derive(ledger.NamespaceRegistry, []byte(seed))
	s.Require().NoError(err)
	return addr
}

func (s *RedisRecordStoreSuite) TestCreateReadWrite() {
	addr := s.addr("alpha")
	s.Require().NoError(s.store.Create(s.ctx, addr, 3, []byte{1, 2, 3}))

	got, err := s.store.Read(s.ctx, addr)
	s.Require().NoError(err)
	s.Equal([]byte{1, 2, 3}, got)

	s.Require().NoError(s.store.Write(s.ctx, addr, []byte{4, 5, 6}))
	got, err = s.store.Read(s.ctx, addr)
	s.Require().NoError(err)
	s.Equal([]byte{4, 5, 6}, got)
}

func (s *RedisRecordStoreSuite) TestCreateIsExclusive() {
	addr := s.addr("beta")
	s.Require().NoError(s.store.Create(s.ctx, addr, 2, []byte{1, 2}))

	err := s.store.Create(s.ctx, addr, 2, []byte{9, 9})
	s.Require().ErrorIs(err, sentinel.ErrAlreadyExists)

	got, err := s.store.Read(s.ctx, addr)
	s.Require().NoError(err)
	s.Equal([]byte{1, 2}, got)
}

func (s *RedisRecordStoreSuite) TestWriteNeverCreates() {
	err := s.store.Write(s.ctx, s.addr("gamma"), []byte{1})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisRecordStoreSuite) TestReadMissing() {
	_, err := s.store.Read(s.ctx, s.addr("missing"))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
