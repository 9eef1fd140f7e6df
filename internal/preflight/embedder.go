package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// MinModelDiskSpaceBytes is the minimum disk space needed for an embedding
// model download (~1.5GB, generous enough for most sentence-embedding models).
const MinModelDiskSpaceBytes = 1.5 * 1024 * 1024 * 1024 // 1.5 GB

// modelsDir resolves the configured model cache directory, falling back to
// ~/.libragen/models if none was set via WithModelCacheDir.
func (c *Checker) modelsDir() (string, error) {
	if c.modelCacheDir != "" {
		return c.modelCacheDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".libragen", "models"), nil
}

// CheckEmbedderModel checks if the embedding model is downloaded and ready.
func (c *Checker) CheckEmbedderModel() CheckResult {
	dir, err := c.modelsDir()
	if err != nil {
		return CheckResult{
			Name:     "embedder_model",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("cannot determine model cache directory: %v", err),
			Required: false,
		}
	}
	return c.checkEmbedderModelAt(dir)
}

// checkEmbedderModelAt checks the embedder model at a specific directory.
// Split out so tests can point it at a temp directory.
func (c *Checker) checkEmbedderModelAt(modelDir string) CheckResult {
	result := CheckResult{
		Name:     "embedder_model",
		Required: false, // non-critical, falls back to the hash-trigram embedder
	}

	entries, err := os.ReadDir(modelDir)
	if err != nil {
		if os.IsNotExist(err) {
			result.Status = StatusWarn
			result.Message = "model not downloaded (will download on first build)"
			result.Details = fmt.Sprintf("model directory: %s", modelDir)
			return result
		}
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot access model directory: %v", err)
		return result
	}

	if len(entries) == 0 {
		result.Status = StatusWarn
		result.Message = "model not downloaded (will download on first build)"
		result.Details = fmt.Sprintf("model directory: %s (empty)", modelDir)
		return result
	}

	var totalSize int64
	err = filepath.Walk(modelDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		totalSize = 0
	}

	result.Status = StatusPass
	if totalSize > 0 {
		result.Message = fmt.Sprintf("model downloaded (%s)", formatBytes(uint64(totalSize)))
	} else {
		result.Message = "model downloaded and ready"
	}
	result.Details = fmt.Sprintf("model directory: %s", modelDir)
	return result
}

// CheckEmbedderDiskSpace checks if there's enough disk space for model download.
func (c *Checker) CheckEmbedderDiskSpace() CheckResult {
	result := CheckResult{
		Name:     "embedder_disk_space",
		Required: false,
	}

	dir, err := c.modelsDir()
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot determine model cache directory: %v", err)
		return result
	}

	statPath := dir
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		statPath = filepath.Dir(dir)
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(statPath, &stat); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot check disk space: %v", err)
		return result
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)

	if availableBytes < uint64(MinModelDiskSpaceBytes) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s available (model needs ~1.5 GB)", formatBytes(availableBytes))
		result.Details = "consider freeing up disk space or using the hash-trigram embedder for offline use"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s available for model download", formatBytes(availableBytes))
	return result
}
