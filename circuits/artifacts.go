package circuits

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vocdoni/ballot-registry/log"
	"github.com/vocdoni/ballot-registry/types"
)

// CheckHashes is a flag that determines if the hashes of the artifacts should
// be checked when they are loaded. It can be set to false by setting the
// BALLOT_CHECK_HASHES environment variable to false or 0.
var CheckHashes = true

// BaseDir is the default path of the artifact cache. Defaults to the env var
// BALLOT_ARTIFACTS_DIR or a folder in the user cache directory.
var BaseDir string

// ErrArtifactsNotFound is returned by LoadAll when no manifest was stored for
// the circuit yet.
var ErrArtifactsNotFound = errors.New("circuit artifacts not found")

func init() {
	if checkHashes := os.Getenv("BALLOT_CHECK_HASHES"); checkHashes != "" {
		if strings.ToLower(checkHashes) == "false" || checkHashes == "0" {
			CheckHashes = false
		}
	}
	if dir := os.Getenv("BALLOT_ARTIFACTS_DIR"); dir != "" {
		BaseDir = dir
	} else {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			BaseDir = filepath.Join(os.TempDir(), "ballot-artifacts")
		} else {
			BaseDir = filepath.Join(home, ".cache", "ballot-artifacts")
		}
	}
}

// Artifact is a content addressed blob of the local cache. Hash is the
// sha256 of Content and also the file name.
type Artifact struct {
	Hash    types.HexBytes
	Content []byte
}

// Load reads the artifact content from dir by its hash. It does nothing if
// the content is already loaded.
func (k *Artifact) Load(dir string) error {
	if len(k.Content) != 0 {
		return nil
	}
	if len(k.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	path := filepath.Join(dir, k.Hash.String())
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading file %s: %w", path, err)
	}
	if CheckHashes {
		fileHash := sha256.Sum256(content)
		if !bytes.Equal(fileHash[:], k.Hash) {
			return fmt.Errorf("hash mismatch for file %s: expected %x, got %x", path, k.Hash, fileHash)
		}
	}
	k.Content = content
	return nil
}

// Store writes the artifact content into dir, setting its hash.
func (k *Artifact) Store(dir string) error {
	if len(k.Content) == 0 {
		return fmt.Errorf("empty artifact content")
	}
	hash := sha256.Sum256(k.Content)
	k.Hash = hash[:]
	path := filepath.Join(dir, k.Hash.String())
	partialPath := path + ".partial"
	if err := os.WriteFile(partialPath, k.Content, 0o644); err != nil {
		return fmt.Errorf("error writing artifact file: %w", err)
	}
	if err := os.Rename(partialPath, path); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}

// manifest links a circuit name to the hashes of its artifacts.
type manifest struct {
	Circuit      types.HexBytes `json:"circuit"`
	ProvingKey   types.HexBytes `json:"provingKey"`
	VerifyingKey types.HexBytes `json:"verifyingKey"`
}

// CircuitArtifacts holds the artifacts of a zkSNARK circuit (definition,
// proving and verification key) cached under a directory, indexed by a
// manifest named after the circuit.
type CircuitArtifacts struct {
	dir               string
	name              string
	circuitDefinition *Artifact
	provingKey        *Artifact
	verifyingKey      *Artifact
}

// NewCircuitArtifacts returns the artifact set for the named circuit stored
// in dir. An empty dir means BaseDir.
func NewCircuitArtifacts(dir, name string) *CircuitArtifacts {
	if dir == "" {
		dir = BaseDir
	}
	return &CircuitArtifacts{dir: dir, name: name}
}

func (ca *CircuitArtifacts) manifestPath() string {
	return filepath.Join(ca.dir, ca.name+".manifest.json")
}

// LoadAll reads the manifest and loads every artifact into memory. It returns
// ErrArtifactsNotFound if the circuit was never stored in the directory.
func (ca *CircuitArtifacts) LoadAll() error {
	data, err := os.ReadFile(ca.manifestPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrArtifactsNotFound
		}
		return fmt.Errorf("error reading manifest: %w", err)
	}
	m := manifest{}
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("error decoding manifest: %w", err)
	}
	ca.circuitDefinition = &Artifact{Hash: m.Circuit}
	ca.provingKey = &Artifact{Hash: m.ProvingKey}
	ca.verifyingKey = &Artifact{Hash: m.VerifyingKey}
	if err := ca.circuitDefinition.Load(ca.dir); err != nil {
		return fmt.Errorf("error loading circuit definition: %w", err)
	}
	if err := ca.provingKey.Load(ca.dir); err != nil {
		return fmt.Errorf("error loading proving key: %w", err)
	}
	if err := ca.verifyingKey.Load(ca.dir); err != nil {
		return fmt.Errorf("error loading verifying key: %w", err)
	}
	log.Debugw("circuit artifacts loaded", "circuit", ca.name, "dir", ca.dir)
	return nil
}

// StoreAll writes the three artifacts and the manifest that indexes them.
func (ca *CircuitArtifacts) StoreAll(circuit, provingKey, verifyingKey []byte) error {
	if err := os.MkdirAll(ca.dir, 0o755); err != nil {
		return fmt.Errorf("error creating the base directory: %w", err)
	}
	ca.circuitDefinition = &Artifact{Content: circuit}
	ca.provingKey = &Artifact{Content: provingKey}
	ca.verifyingKey = &Artifact{Content: verifyingKey}
	for _, a := range []*Artifact{ca.circuitDefinition, ca.provingKey, ca.verifyingKey} {
		if err := a.Store(ca.dir); err != nil {
			return err
		}
	}
	data, err := json.Marshal(manifest{
		Circuit:      ca.circuitDefinition.Hash,
		ProvingKey:   ca.provingKey.Hash,
		VerifyingKey: ca.verifyingKey.Hash,
	})
	if err != nil {
		return fmt.Errorf("error encoding manifest: %w", err)
	}
	if err := os.WriteFile(ca.manifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("error writing manifest: %w", err)
	}
	log.Infow("circuit artifacts stored", "circuit", ca.name, "dir", ca.dir,
		"verifyingKeyHash", ca.verifyingKey.Hash.String())
	return nil
}

// CircuitDefinition returns the content of the circuit definition. If the
// circuit definition is not loaded, it returns nil.
func (ca *CircuitArtifacts) CircuitDefinition() types.HexBytes {
	if ca.circuitDefinition == nil {
		return nil
	}
	return ca.circuitDefinition.Content
}

// ProvingKey returns the content of the proving key, or nil if not loaded.
func (ca *CircuitArtifacts) ProvingKey() types.HexBytes {
	if ca.provingKey == nil {
		return nil
	}
	return ca.provingKey.Content
}

// VerifyingKey returns the content of the verifying key, or nil if not loaded.
func (ca *CircuitArtifacts) VerifyingKey() types.HexBytes {
	if ca.verifyingKey == nil {
		return nil
	}
	return ca.verifyingKey.Content
}
