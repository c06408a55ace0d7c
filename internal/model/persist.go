package model

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/stockout/internal/contracts"
)

// Artifact is a trained model plus its provenance
type Artifact struct {
	Kind      string
	RunID     string
	CreatedAt time.Time
	Features  []string
	Handle    any // *Booster or *LogisticRegression
}

// envelope is the on-disk JSON layout
type envelope struct {
	Kind         string              `json:"kind"`
	RunID        string              `json:"run_id"`
	CreatedAt    time.Time           `json:"created_at"`
	FeatureNames []string            `json:"feature_names"`
	Booster      *Booster            `json:"booster,omitempty"`
	Logistic     *LogisticRegression `json:"logistic,omitempty"`
}

// NewArtifact stamps a trained handle with a fresh run id
func NewArtifact(handle any, features []string) (*Artifact, error) {
	kind, err := kindOf(handle)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Kind:      kind,
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Features:  append([]string(nil), features...),
		Handle:    handle,
	}, nil
}

func kindOf(handle any) (string, error) {
	switch handle.(type) {
	case *Booster:
		return KindGBDT, nil
	case *LogisticRegression:
		return KindLogistic, nil
	}
	return "", &contracts.UnsupportedModelError{Type: fmt.Sprintf("%T", handle)}
}

// Save writes the artifact as JSON, creating parent directories
func Save(path string, art *Artifact) error {
	env := envelope{
		Kind:         art.Kind,
		RunID:        art.RunID,
		CreatedAt:    art.CreatedAt,
		FeatureNames: art.Features,
	}
	switch h := art.Handle.(type) {
	case *Booster:
		env.Booster = h
	case *LogisticRegression:
		env.Logistic = h
	default:
		return &contracts.UnsupportedModelError{Type: fmt.Sprintf("%T", art.Handle)}
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// Load reads an artifact and resolves its prediction adapter.
// A missing file is a *contracts.ModelNotFoundError.
func Load(path string) (*Artifact, contracts.ProbabilityModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, &contracts.ModelNotFoundError{Path: path}
		}
		return nil, nil, fmt.Errorf("read model: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("decode model %s: %w", path, err)
	}

	art := &Artifact{
		Kind:      env.Kind,
		RunID:     env.RunID,
		CreatedAt: env.CreatedAt,
		Features:  env.FeatureNames,
	}
	switch {
	case env.Kind == KindGBDT && env.Booster != nil:
		art.Handle = env.Booster
	case env.Kind == KindLogistic && env.Logistic != nil:
		art.Handle = env.Logistic
	default:
		return nil, nil, &contracts.UnsupportedModelError{Type: env.Kind}
	}

	pm, err := Adapt(art.Handle, art.Features)
	if err != nil {
		return nil, nil, err
	}
	return art, pm, nil
}

// SaveFeatureList writes one feature name per line
func SaveFeatureList(path string, names []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create feature list dir: %w", err)
	}
	content := strings.Join(names, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write feature list: %w", err)
	}
	return nil
}

// LoadFeatureList reads the feature list, skipping blank lines.
// A missing file returns an error wrapping fs.ErrNotExist.
func LoadFeatureList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature list: %w", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			names = append(names, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read feature list: %w", err)
	}
	return names, nil
}
