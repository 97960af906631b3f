package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aerynos/carve/pkg/sizing"
	"github.com/aerynos/carve/pkg/strategy"
)

func TestLoadFileWholeDisk(t *testing.T) {
	loader := NewLoader(nil)

	strategies, err := loader.LoadFile("testdata/whole_disk.hcl")
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if len(strategies) != 2 {
		t.Fatalf("got %d strategies, want 2", len(strategies))
	}

	base := strategies[0]
	if base.Name != "use_whole_disk" || base.Parent != "" {
		t.Errorf("base = %q (parent %q)", base.Name, base.Parent)
	}
	if len(base.Steps) != 2 {
		t.Fatalf("base has %d steps, want 2", len(base.Steps))
	}

	find, ok := base.Steps[0].(strategy.FindDisk)
	if !ok {
		t.Fatalf("step 0 is %T, want FindDisk", base.Steps[0])
	}
	if find.Name != "root_disk" {
		t.Errorf("find-disk name = %q", find.Name)
	}
	if find.Constraints.Min != sizing.Quantity(30*sizing.GB) {
		t.Errorf("find-disk min = %d, want 30GB", find.Constraints.Min)
	}
	if find.Constraints.Bounded() {
		t.Error("find-disk should be unbounded above")
	}

	table, ok := base.Steps[1].(strategy.CreatePartitionTable)
	if !ok {
		t.Fatalf("step 1 is %T, want CreatePartitionTable", base.Steps[1])
	}
	if table.Type != strategy.TableTypeGPT {
		t.Errorf("table type = %q", table.Type)
	}

	child := strategies[1]
	if child.Parent != "use_whole_disk" {
		t.Errorf("child parent = %q", child.Parent)
	}
	if len(child.Steps) != 4 {
		t.Fatalf("child has %d steps, want 4", len(child.Steps))
	}

	esp, ok := child.Steps[0].(strategy.CreatePartition)
	if !ok {
		t.Fatalf("child step 0 is %T, want CreatePartition", child.Steps[0])
	}
	if esp.Role != strategy.RoleBoot {
		t.Errorf("esp role = %q", esp.Role)
	}
	if esp.TypeGUID != strategy.GUIDEfiSystemPartition {
		t.Errorf("esp type GUID = %q", esp.TypeGUID)
	}
	if esp.Constraints.Min != sizing.Quantity(sizing.GiB) || esp.Constraints.Max != sizing.Quantity(2*sizing.GiB) {
		t.Errorf("esp constraints = %s", esp.Constraints)
	}
}

func TestLoadFileRawGUID(t *testing.T) {
	loader := NewLoader(nil)

	strategies, err := loader.LoadFile("testdata/reuse_esp.hcl")
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if len(strategies) != 1 {
		t.Fatalf("got %d strategies, want 1", len(strategies))
	}

	find, ok := strategies[0].Steps[1].(strategy.FindPartition)
	if !ok {
		t.Fatalf("step 1 is %T, want FindPartition", strategies[0].Steps[1])
	}
	if find.Role != strategy.RoleBoot {
		t.Errorf("find-partition role = %q", find.Role)
	}

	root, ok := strategies[0].Steps[2].(strategy.CreatePartition)
	if !ok {
		t.Fatalf("step 2 is %T, want CreatePartition", strategies[0].Steps[2])
	}
	if root.TypeGUID != strategy.GUIDLinuxFilesystem {
		t.Errorf("raw GUID not canonicalized: %q", root.TypeGUID)
	}
}

func TestLoadFileInvalidSize(t *testing.T) {
	loader := NewLoader(nil)

	if _, err := loader.LoadFile("testdata/invalid/fractional_size.hcl"); err == nil {
		t.Fatal("fractional size should fail to load")
	}
}

func TestLoadPathRecursesIntoSubdirectories(t *testing.T) {
	loader := NewLoader(nil)

	// testdata/invalid/ holds a malformed document; recursive loading
	// must surface it rather than skip the subdirectory.
	if _, err := loader.LoadPath("testdata"); err == nil {
		t.Fatal("LoadPath should surface the invalid document under testdata/invalid")
	}
}

func TestLoadPathDirectorySorted(t *testing.T) {
	dir := t.TempDir()

	// Written out of order; loading must visit them sorted.
	writeFile(t, filepath.Join(dir, "b.hcl"), `strategy "second" {}`)
	writeFile(t, filepath.Join(dir, "a.hcl"), `strategy "first" {}`)

	loader := NewLoader(nil)
	strategies, err := loader.LoadPath(dir)
	if err != nil {
		t.Fatalf("LoadPath returned error: %v", err)
	}
	if len(strategies) != 2 {
		t.Fatalf("got %d strategies, want 2", len(strategies))
	}
	if strategies[0].Name != "first" || strategies[1].Name != "second" {
		t.Errorf("directory not loaded in sorted order: %s, %s", strategies[0].Name, strategies[1].Name)
	}
}

func TestLoadFileUnknownStepKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.hcl")
	writeFile(t, path, `
strategy "bad" {
  step "shrink-partition" {
    disk = "d"
  }
}
`)

	loader := NewLoader(nil)
	if _, err := loader.LoadFile(path); err == nil {
		t.Fatal("unknown step kind should fail to load")
	}
}

func TestLoadFileMissingRequiredAttribute(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.hcl")
	writeFile(t, path, `
strategy "bad" {
  step "create-partition" {
    disk     = "d"
    min_size = "1GiB"
  }
}
`)

	loader := NewLoader(nil)
	if _, err := loader.LoadFile(path); err == nil {
		t.Fatal("create-partition without id should fail to load")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
