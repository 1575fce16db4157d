//go:build integration

package history

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("OPENCHAIN_MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := NewMongoStore(ctx, uri, "openchain_test", "searches_"+time.Now().Format("150405"))
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}
	defer func() {
		_ = s.coll.Drop(context.Background())
		s.Close(context.Background())
	}()

	first := NewEntry("user", "alice", "repo", 3, 2)
	second := NewEntry("repo", "golang/go", "user", 5, 4)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	for _, e := range []Entry{first, second} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "golang/go" {
		t.Errorf("Recent = %+v", got)
	}
}
