package circuits

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
)

var dummyKeyContent = []byte("dummy content")

func TestStoreAndLoadArtifact(t *testing.T) {
	c := qt.New(t)
	dir := t.TempDir()

	stored := &Artifact{Content: dummyKeyContent}
	c.Assert(stored.Store(dir), qt.IsNil)
	expectedHash := sha256.Sum256(dummyKeyContent)
	c.Assert([]byte(stored.Hash), qt.DeepEquals, expectedHash[:])

	loaded := &Artifact{Hash: stored.Hash}
	c.Assert(loaded.Load(dir), qt.IsNil)
	c.Assert(loaded.Content, qt.DeepEquals, dummyKeyContent)

	// tamper the cached file
	path := filepath.Join(dir, stored.Hash.String())
	c.Assert(os.WriteFile(path, []byte("tampered"), 0o644), qt.IsNil)
	tampered := &Artifact{Hash: stored.Hash}
	c.Assert(tampered.Load(dir), qt.ErrorMatches, "hash mismatch.*")

	// no hash, nothing to look for
	c.Assert((&Artifact{}).Load(dir), qt.ErrorMatches, "artifact hash not provided")
	c.Assert((&Artifact{}).Store(dir), qt.ErrorMatches, "empty artifact content")
}

func TestCircuitArtifacts(t *testing.T) {
	c := qt.New(t)
	dir := filepath.Join(t.TempDir(), "nested")

	ca := NewCircuitArtifacts(dir, "dummy")
	c.Assert(ca.LoadAll(), qt.ErrorIs, ErrArtifactsNotFound)
	c.Assert(ca.VerifyingKey(), qt.IsNil)

	c.Assert(ca.StoreAll([]byte("ccs"), []byte("pk"), []byte("vk")), qt.IsNil)

	loaded := NewCircuitArtifacts(dir, "dummy")
	c.Assert(loaded.LoadAll(), qt.IsNil)
	c.Assert([]byte(loaded.CircuitDefinition()), qt.DeepEquals, []byte("ccs"))
	c.Assert([]byte(loaded.ProvingKey()), qt.DeepEquals, []byte("pk"))
	c.Assert([]byte(loaded.VerifyingKey()), qt.DeepEquals, []byte("vk"))

	// other circuits in the same directory are independent
	c.Assert(NewCircuitArtifacts(dir, "other").LoadAll(), qt.ErrorIs, ErrArtifactsNotFound)
}
