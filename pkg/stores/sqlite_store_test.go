package stores

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("expected an error for a missing path")
	}
}

func TestResourceRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	res := &Resource{
		URN:    "urn:froyo:st::pr::kv:index:Pair::n",
		ID:     "i-1",
		Type:   "kv:index:Pair",
		Inputs: `{"key":"k","value":"v"}`,
		State:  `{"key":"k","value":"v","revision":1}`,
	}
	if err := store.PutResource(ctx, res); err != nil {
		t.Fatalf("PutResource failed: %v", err)
	}

	got, err := store.GetResource(ctx, res.URN)
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if got.ID != "i-1" || got.Type != "kv:index:Pair" {
		t.Errorf("resource = %+v", got)
	}
	if got.State != res.State {
		t.Errorf("state = %q, want %q", got.State, res.State)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}

	byID, err := store.GetResourceByID(ctx, "kv:index:Pair", "i-1")
	if err != nil {
		t.Fatalf("GetResourceByID failed: %v", err)
	}
	if byID.URN != res.URN {
		t.Errorf("urn = %q, want %q", byID.URN, res.URN)
	}
}

func TestPutResourceUpsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	res := &Resource{
		URN:   "urn:froyo:st::pr::kv:index:Pair::n",
		ID:    "i-1",
		Type:  "kv:index:Pair",
		State: `{"revision":1}`,
	}
	if err := store.PutResource(ctx, res); err != nil {
		t.Fatalf("first PutResource failed: %v", err)
	}
	first, err := store.GetResource(ctx, res.URN)
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}

	res.State = `{"revision":2}`
	if err := store.PutResource(ctx, res); err != nil {
		t.Fatalf("second PutResource failed: %v", err)
	}

	got, err := store.GetResource(ctx, res.URN)
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if got.State != `{"revision":2}` {
		t.Errorf("state = %q after upsert", got.State)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Error("created_at changed on upsert")
	}
}

func TestGetResourceNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetResource(context.Background(), "urn:absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteResource(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	res := &Resource{URN: "urn:x", ID: "i-1", Type: "kv:index:Pair"}
	if err := store.PutResource(ctx, res); err != nil {
		t.Fatalf("PutResource failed: %v", err)
	}

	if err := store.DeleteResource(ctx, "urn:x"); err != nil {
		t.Fatalf("DeleteResource failed: %v", err)
	}
	if _, err := store.GetResource(ctx, "urn:x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("resource still present after delete: %v", err)
	}
	if err := store.DeleteResource(ctx, "urn:x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestListResources(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res := &Resource{
			URN:  fmt.Sprintf("urn:pair-%d", i),
			ID:   fmt.Sprintf("i-%d", i),
			Type: "kv:index:Pair",
		}
		if err := store.PutResource(ctx, res); err != nil {
			t.Fatalf("PutResource failed: %v", err)
		}
	}
	other := &Resource{URN: "urn:other", ID: "o-1", Type: "kv:index:Namespace"}
	if err := store.PutResource(ctx, other); err != nil {
		t.Fatalf("PutResource failed: %v", err)
	}

	pairs, err := store.ListResources(ctx, "kv:index:Pair", 10, 0)
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(pairs) != 5 {
		t.Errorf("listed %d pairs, want 5", len(pairs))
	}

	all, err := store.ListResources(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(all) != 6 {
		t.Errorf("listed %d resources, want 6", len(all))
	}

	page, err := store.ListResources(ctx, "kv:index:Pair", 2, 2)
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("listed %d resources, want page of 2", len(page))
	}
}

func TestOperationLog(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	errMsg := "key already exists"
	ops := []*Operation{
		{URN: "urn:x", Op: "create", Status: OperationSucceeded},
		{URN: "urn:x", Op: "update", Status: OperationFailed, Error: &errMsg},
		{URN: "urn:y", Op: "create", Status: OperationSucceeded},
	}
	for _, op := range ops {
		if err := store.AppendOperation(ctx, op); err != nil {
			t.Fatalf("AppendOperation failed: %v", err)
		}
		if op.ID == 0 {
			t.Error("operation ID not assigned")
		}
	}

	got, err := store.ListOperations(ctx, "urn:x", 10, 0)
	if err != nil {
		t.Fatalf("ListOperations failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("listed %d operations, want 2", len(got))
	}
	// Newest first.
	if got[0].Op != "update" || got[1].Op != "create" {
		t.Errorf("operations out of order: %s, %s", got[0].Op, got[1].Op)
	}
	if got[0].Error == nil || *got[0].Error != errMsg {
		t.Errorf("error = %v, want %q", got[0].Error, errMsg)
	}

	all, err := store.ListOperations(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("ListOperations failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("listed %d operations, want 3", len(all))
	}
}

func TestFileBackedStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	store, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	res := &Resource{URN: "urn:x", ID: "i-1", Type: "kv:index:Pair"}
	if err := store.PutResource(ctx, res); err != nil {
		t.Fatalf("PutResource failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	// Reopen and verify the checkpoint survived.
	store, err = NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("failed to recreate store: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to reinitialize store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to remigrate store: %v", err)
	}

	got, err := store.GetResource(ctx, "urn:x")
	if err != nil {
		t.Fatalf("GetResource after reopen failed: %v", err)
	}
	if got.ID != "i-1" {
		t.Errorf("resource = %+v", got)
	}
}
