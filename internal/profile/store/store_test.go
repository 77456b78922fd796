package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"dossier/pkg/platform/sentinel"
)

type slot interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// SlotSuite is the behavior every slot implementation shares.
type SlotSuite struct {
	suite.Suite
	newSlot func(t *testing.T) slot
	slot    slot
	ctx     context.Context
}

func (s *SlotSuite) SetupTest() {
	s.slot = s.newSlot(s.T())
	s.ctx = context.Background()
}

func (s *SlotSuite) TestEmptySlotIsNotFound() {
	_, err := s.slot.Read(s.ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SlotSuite) TestWriteThenRead() {
	s.Run("returns the written bytes", func() {
		s.Require().NoError(s.slot.Write(s.ctx, []byte(`{"lastName":"Ivanov"}`)))
		data, err := s.slot.Read(s.ctx)
		s.Require().NoError(err)
		s.Equal(`{"lastName":"Ivanov"}`, string(data))
	})

	s.Run("overwrites the prior value", func() {
		s.Require().NoError(s.slot.Write(s.ctx, []byte("first")))
		s.Require().NoError(s.slot.Write(s.ctx, []byte("second")))
		data, err := s.slot.Read(s.ctx)
		s.Require().NoError(err)
		s.Equal("second", string(data))
	})
}

func (s *SlotSuite) TestCallerCannotMutateStoredValue() {
	payload := []byte("stored")
	s.Require().NoError(s.slot.Write(s.ctx, payload))
	payload[0] = 'X'

	data, err := s.slot.Read(s.ctx)
	s.Require().NoError(err)
	s.Equal("stored", string(data))

	data[0] = 'Y'
	again, err := s.slot.Read(s.ctx)
	s.Require().NoError(err)
	s.Equal("stored", string(again))
}

func TestInMemorySlot(t *testing.T) {
	suite.Run(t, &SlotSuite{newSlot: func(*testing.T) slot { return NewInMemory() }})
}

func TestFileSlot(t *testing.T) {
	suite.Run(t, &SlotSuite{newSlot: func(t *testing.T) slot {
		return NewFile(filepath.Join(t.TempDir(), "nested", "profile.json"))
	}})
}

func TestRedisSlot(t *testing.T) {
	suite.Run(t, &SlotSuite{newSlot: func(t *testing.T) slot {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedis(client)
	}})
}

func TestFileSlot_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFile(filepath.Join(dir, "profile.json"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Write(ctx, []byte("value")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "profile.json" {
		t.Fatalf("expected only profile.json, got %v", entries)
	}
	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600, got %o", perm)
	}
}

func TestFileSlot_HonorsCancelledContext(t *testing.T) {
	s := NewFile(filepath.Join(t.TempDir(), "profile.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Write(ctx, []byte("x")); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected no file, got %v", err)
	}
}

func TestRedisSlot_UsesConfiguredKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedis(client, WithRedisKey("dossier:profile"))
	if err := s.Write(context.Background(), []byte("v")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := mr.Get("dossier:profile")
	if err != nil {
		t.Fatalf("miniredis get: %v", err)
	}
	if got != "v" {
		t.Fatalf("expected v, got %q", got)
	}
	if mr.TTL("dossier:profile") != 0 {
		t.Fatal("slot must not expire")
	}
}

func TestRedisSlot_ServerDownIsNotNotFound(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, err := NewRedis(client).Read(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if err == sentinel.ErrNotFound {
		t.Fatal("connection failures must not look like an empty slot")
	}
}
