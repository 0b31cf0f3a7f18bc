package embeddings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
)

// DefaultLocalModel is the sentence transformer the corpus is indexed with by default.
const DefaultLocalModel = "sentence-transformers/all-MiniLM-L6-v2"

const defaultModelDir = "./models"

// LocalEmbedder runs a sentence transformer in-process through hugot's pure
// Go backend. Models are downloaded from Hugging Face on first use.
type LocalEmbedder struct {
	mu         sync.Mutex
	session    *hugot.Session
	run        func([]string) ([][]float32, error)
	model      string
	dimensions int
}

// NewLocalEmbedder prepares model (downloading it into modelDir if missing)
// and probes its output size.
func NewLocalEmbedder(model, modelDir string) (*LocalEmbedder, error) {
	if model == "" {
		model = DefaultLocalModel
	}
	if modelDir == "" {
		modelDir = defaultModelDir
	}

	modelPath, err := prepareModel(model, modelDir)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "edwin-embedder",
	})
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedding pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedding pipeline: %w", err)
	}

	e := &LocalEmbedder{
		session: session,
		model:   model,
		run: func(texts []string) ([][]float32, error) {
			out, err := pipeline.RunPipeline(texts)
			if err != nil {
				return nil, err
			}
			return out.Embeddings, nil
		},
	}

	probe, err := e.run([]string{"dimension probe"})
	if err != nil || len(probe) == 0 {
		_ = session.Destroy()
		if err == nil {
			err = errors.New("no embedding generated")
		}
		return nil, fmt.Errorf("probe embedding size: %w", err)
	}
	e.dimensions = len(probe[0])
	return e, nil
}

// prepareModel returns the local path of model, downloading it when absent.
func prepareModel(model, modelDir string) (string, error) {
	modelPath := filepath.Join(modelDir, strings.ReplaceAll(model, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("stat model: %w", err)
	}

	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	downloaded, err := hugot.DownloadModel(model, modelDir, opts)
	if err != nil {
		return "", fmt.Errorf("failed to download model %s: %w", model, err)
	}
	return downloaded, nil
}

func (e *LocalEmbedder) Name() string {
	return "local/" + e.model
}

func (e *LocalEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	vecs, err := e.run(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	return vecs, nil
}

// Close destroys the hugot session.
func (e *LocalEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
