package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"bde/internal/buildsys"
	"bde/internal/logging"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	root, err := os.MkdirTemp("", "bde-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(root) })

	db, err := Open(root, logging.Discard())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, root
}

func sampleGraph() *buildsys.Graph {
	g := buildsys.NewGraph()
	g.AddSystem(buildsys.KindCMake)
	g.AddTarget(buildsys.Target{Name: "app", Kind: buildsys.TargetBinary, Sources: []string{"main.c"}, BuildSystem: buildsys.KindCMake})
	g.AddDependency(buildsys.Dependency{Name: "zlib", Constraints: []string{">=1.2"}, Origin: buildsys.OriginSystem})
	g.Normalize()
	return g
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	_, root := openTestDB(t)
	if _, err := os.Stat(filepath.Join(root, ".bde", "bde.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	db, root := openTestDB(t)
	graph := sampleGraph()

	id, err := db.SaveSnapshot(root, graph)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a snapshot id")
	}

	snap, err := db.GetSnapshot(id)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if snap.Root != root {
		t.Errorf("expected root %s, got %s", root, snap.Root)
	}
	if diff := cmp.Diff(graph, snap.Graph, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("graph did not survive the roundtrip (-saved +loaded):\n%s", diff)
	}
	if len(snap.Systems) != 1 || snap.Systems[0] != buildsys.KindCMake {
		t.Errorf("systems column wrong: %v", snap.Systems)
	}
}

func TestGetSnapshotMissing(t *testing.T) {
	db, _ := openTestDB(t)
	if _, err := db.GetSnapshot("no-such-id"); err == nil {
		t.Error("expected error for unknown snapshot id")
	}
}

func TestListSnapshotsNewestFirst(t *testing.T) {
	db, root := openTestDB(t)
	graph := sampleGraph()

	first, err := db.SaveSnapshot(root, graph)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	second, err := db.SaveSnapshot(root, graph)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	snaps, err := db.ListSnapshots(root, 0)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].ID != second || snaps[1].ID != first {
		t.Errorf("expected newest first, got %s then %s", snaps[0].ID, snaps[1].ID)
	}
	if snaps[0].Graph != nil {
		t.Error("listing must not load full graphs")
	}

	limited, err := db.ListSnapshots(root, 1)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit not applied, got %d", len(limited))
	}
}

func TestDeleteSnapshots(t *testing.T) {
	db, root := openTestDB(t)
	if _, err := db.SaveSnapshot(root, sampleGraph()); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	deleted, err := db.DeleteSnapshots(root)
	if err != nil {
		t.Fatalf("DeleteSnapshots failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	snaps, err := db.ListSnapshots(root, 0)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("expected empty list after delete, got %d", len(snaps))
	}
}
