package preflight

import (
	"context"
	"fmt"

	"github.com/docdex/docdex/internal/lifecycle"
)

// CheckEmbedder verifies the configured embedding provider is usable.
// Non-critical: with auto-detection the engine falls back to static
// embeddings, so a missing Ollama degrades search quality rather than
// breaking startup.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{Name: "embedder", Required: false}

	provider := c.cfg.Embeddings.Provider
	if provider == "static" {
		result.Status = StatusPass
		result.Message = "static embeddings configured"
		return result
	}
	required := provider == "ollama"
	result.Required = required

	mgr := lifecycle.NewManager(c.cfg.Embeddings.OllamaHost)
	if !mgr.Running(ctx) {
		if installed, path := mgr.Installed(); installed {
			result.Details = fmt.Sprintf("ollama installed at %s but not running; start it with: ollama serve", path)
		} else {
			result.Details = "ollama not found on PATH; see https://ollama.com/download"
		}
		result.Status = StatusWarn
		if required {
			result.Status = StatusFail
		}
		result.Message = fmt.Sprintf("ollama not reachable at %s", mgr.Host())
		if !required {
			result.Message += " (will fall back to static embeddings)"
		}
		return result
	}

	model := c.cfg.Embeddings.Model
	if model == "" {
		result.Status = StatusPass
		result.Message = fmt.Sprintf("ollama reachable at %s", mgr.Host())
		return result
	}

	has, err := mgr.HasModel(ctx, model)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to list ollama models: %v", err)
		return result
	}
	if !has {
		result.Status = StatusWarn
		if required {
			result.Status = StatusFail
		}
		result.Message = fmt.Sprintf("model %q not available", model)
		result.Details = fmt.Sprintf("pull it with: ollama pull %s (or: docdex doctor --pull)", model)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("ollama reachable, model %q available", model)
	return result
}
