package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/internal/core/service"
)

func TestStore_PutGetDelete(t *testing.T) {
	store := New()
	ctx := context.Background()

	opts := service.PutOptions{RequireAuthentication: true, Namespace: "app", AccessLevel: domain.AccessUser}
	if err := store.Put(ctx, "app_secret_k", []byte("v1"), opts); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "app_secret_k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get = %q, want v1", got)
	}

	stored, ok := store.Options("app_secret_k")
	if !ok || stored != opts {
		t.Errorf("Options = %+v, %v", stored, ok)
	}

	if err := store.Delete(ctx, "app_secret_k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "app_secret_k"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Errorf("Get after Delete err = %v, want ErrEntryNotFound", err)
	}

	if err := store.Delete(ctx, "never-stored"); err != nil {
		t.Errorf("Delete of absent key: %v", err)
	}
}

func TestStore_CopiesData(t *testing.T) {
	store := New()
	ctx := context.Background()

	data := []byte("original")
	_ = store.Put(ctx, "k", data, service.PutOptions{})
	data[0] = 'X'

	got, _ := store.Get(ctx, "k")
	if string(got) != "original" {
		t.Errorf("stored data aliased caller slice: %q", got)
	}

	got[0] = 'Y'
	again, _ := store.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("returned data aliased stored slice: %q", again)
	}
}

func TestStore_ListKeysAndSize(t *testing.T) {
	store := New(WithShards(4))
	ctx := context.Background()

	_ = store.Put(ctx, "app_public_b", []byte("12"), service.PutOptions{})
	_ = store.Put(ctx, "app_public_a", []byte("345"), service.PutOptions{})
	_ = store.Put(ctx, "other_public_a", []byte("6"), service.PutOptions{})

	keys, err := store.ListKeys(ctx, "app_")
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "app_public_a" || keys[1] != "app_public_b" {
		t.Errorf("ListKeys = %v", keys)
	}

	n, err := store.UsedBytes(ctx)
	if err != nil {
		t.Fatalf("UsedBytes: %v", err)
	}
	if n != 6 {
		t.Errorf("UsedBytes = %d, want 6", n)
	}
	if store.Len() != 3 {
		t.Errorf("Len = %d, want 3", store.Len())
	}
}

func TestStore_CancelledContext(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, "k", []byte("v"), service.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Put err = %v, want context.Canceled", err)
	}
	if store.Len() != 0 {
		t.Error("cancelled Put must not write")
	}
}
