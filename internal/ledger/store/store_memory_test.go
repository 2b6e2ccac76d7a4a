package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"tokensafe/internal/ledger"
	"tokensafe/pkg/platform/sentinel"
)

type MemoryRecordStoreSuite struct {
	suite.Suite
	store *InMemoryRecordStore
	ctx   context.Context
}

func (s *MemoryRecordStoreSuite) SetupTest() {
	s.store = NewInMemoryRecordStore()
	s.ctx = context.Background()
}

func TestMemoryRecordStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryRecordStoreSuite))
}

func (s *MemoryRecordStoreSuite) addr(seed string) ledger.Address {
	addr, _, err := ledger.Derive(ledger.NamespaceRegistry, []byte(seed))
	s.Require().NoError(err)
	return addr
}

func (s *MemoryRecordStoreSuite) TestCreateAndRead() {
	s.Run("creates and reads back a record", func() {
		addr := s.addr("alpha")
		data := []byte{1, 2, 3, 4}
		s.Require().NoError(s.store.Create(s.ctx, addr, 4, data))

		got, err := s.store.Read(s.ctx, addr)
		s.Require().NoError(err)
		s.Equal(data, got)
	})

	s.Run("rejects duplicate creation", func() {
		addr := s.addr("beta")
		s.Require().NoError(s.store.Create(s.ctx, addr, 2, []byte{1, 2}))

		err := s.store.Create(s.ctx, addr, 2, []byte{3, 4})
		s.Require().ErrorIs(err, sentinel.ErrAlreadyExists)

		// The original record is untouched.
		got, err := s.store.Read(s.ctx, addr)
		s.Require().NoError(err)
		s.Equal([]byte{1, 2}, got)
	})

	s.Run("rejects data shorter than declared size", func() {
		err := s.store.Create(s.ctx, s.addr("gamma"), 8, []byte{1, 2})
		s.Require().Error(err)
	})

	s.Run("returns ErrNotFound for unknown address", func() {
		_, err := s.store.Read(s.ctx, s.addr("missing"))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryRecordStoreSuite) TestWrite() {
	s.Run("overwrites an existing record in place", func() {
		addr := s.addr("delta")
		s.Require().NoError(s.store.Create(s.ctx, addr, 3, []byte{1, 2, 3}))
		s.Require().NoError(s.store.Write(s.ctx, addr, []byte{7, 8, 9}))

		got, err := s.store.Read(s.ctx, addr)
		s.Require().NoError(err)
		s.Equal([]byte{7, 8, 9}, got)
	})

	s.Run("never creates on write", func() {
		err := s.store.Write(s.ctx, s.addr("epsilon"), []byte{1})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("record size is fixed at creation", func() {
		addr := s.addr("zeta")
		s.Require().NoError(s.store.Create(s.ctx, addr, 2, []byte{1, 2}))

		err := s.store.Write(s.ctx, addr, []byte{1, 2, 3})
		s.Require().Error(err)
	})
}

func (s *MemoryRecordStoreSuite) TestReadReturnsCopy() {
	addr := s.addr("eta")
	s.Require().NoError(s.store.Create(s.ctx, addr, 2, []byte{1, 2}))

	got, err := s.store.Read(s.ctx, addr)
	s.Require().NoError(err)
	got[0] = 99

	again, err := s.store.Read(s.ctx, addr)
	s.Require().NoError(err)
	s.Equal([]byte{1, 2}, again)
}
