package engine

import (
	"context"
	"fmt"

	"github.com/localdocs/localdocs/internal/events"
	"github.com/localdocs/localdocs/internal/lifecycle"
)

// SetupStatus reports whether the model server
// is running, which models it has installed, and the configured defaults.
type SetupStatus struct {
	Running      bool
	Models       []string
	DefaultChat  string
	DefaultFast  string
	DefaultEmbed string
}

// SetupStatus inspects the model server without starting or pulling
// anything.
func (e *Engine) SetupStatus(ctx context.Context) (SetupStatus, error) {
	mgr := lifecycle.NewManager(rootHost(e.cfg.Server.BaseURL))
	status, err := mgr.Probe(ctx)
	if err != nil {
		return SetupStatus{}, err
	}
	return SetupStatus{
		Running:      status.Running,
		Models:       status.Models,
		DefaultChat:  e.cfg.Server.ChatModel,
		DefaultFast:  e.cfg.Server.FastModel,
		DefaultEmbed: e.cfg.Embedding.Model,
	}, nil
}

// MissingModels returns the subset of the configured models that the
// running server does not have installed. A server that isn't running
// reports every configured model as missing.
func (e *Engine) MissingModels(ctx context.Context) ([]string, error) {
	mgr := lifecycle.NewManager(rootHost(e.cfg.Server.BaseURL))
	if !mgr.IsRunning() {
		return e.requiredModels(), nil
	}
	var missing []string
	for _, model := range e.requiredModels() {
		has, err := mgr.HasModel(ctx, model)
		if err != nil {
			return nil, err
		}
		if !has {
			missing = append(missing, model)
		}
	}
	return missing, nil
}

// RunSetup starts the model server if installed
// but not running, then pull the embedding/chat/fast models it lacks,
// streaming progress to sink.
func (e *Engine) RunSetup(ctx context.Context, sink *events.Sink) error {
	mgr := lifecycle.NewManager(rootHost(e.cfg.Server.BaseURL))

	installed, _, err := mgr.IsInstalled()
	if err != nil {
		return fmt.Errorf("check install: %w", err)
	}
	if !installed {
		return fmt.Errorf("model server is not installed:\n%s", lifecycle.InstallInstructions())
	}

	if !mgr.IsRunning() {
		sink.Setup <- events.SetupProgress{Stage: events.SetupStagePulling, Message: "starting model server"}
		if err := mgr.Start(); err != nil {
			return fmt.Errorf("start model server: %w", err)
		}
		if err := mgr.WaitForReady(ctx, lifecycle.StartupTimeout); err != nil {
			return fmt.Errorf("wait for model server: %w", err)
		}
	}

	for _, model := range e.requiredModels() {
		has, err := mgr.HasModel(ctx, model)
		if err != nil {
			return fmt.Errorf("check model %s: %w", model, err)
		}
		if has {
			continue
		}
		sink.Setup <- events.SetupProgress{Stage: events.SetupStagePulling, Message: "pulling " + model}
		err = mgr.PullModel(ctx, model, func(p lifecycle.PullProgress) {
			sink.ModelPull <- events.ModelPullProgress{
				Model: model, Status: p.Status, Completed: p.Completed, Total: p.Total,
			}
		})
		if err != nil {
			return fmt.Errorf("pull model %s: %w", model, err)
		}
	}

	sink.Setup <- events.SetupProgress{Stage: events.SetupStageVerifying, Message: "verifying embedding model"}
	if _, err := e.pipeline().ProbeDimension(ctx); err != nil {
		return fmt.Errorf("verify embedding model: %w", err)
	}

	sink.Setup <- events.SetupProgress{Stage: events.SetupStageComplete, Message: "ready"}
	return nil
}

func (e *Engine) requiredModels() []string {
	models := []string{e.cfg.Embedding.Model}
	if e.cfg.Server.ChatModel != "" {
		models = append(models, e.cfg.Server.ChatModel)
	}
	if e.cfg.Server.FastModel != "" && e.cfg.Server.FastModel != e.cfg.Server.ChatModel {
		models = append(models, e.cfg.Server.FastModel)
	}
	return models
}

// rootHost strips the /api suffix a modelclient base URL carries, since
// lifecycle.Manager talks to the server's root (e.g. /api/tags).
func rootHost(baseURL string) string {
	const suffix = "/api"
	if len(baseURL) >= len(suffix) && baseURL[len(baseURL)-len(suffix):] == suffix {
		return baseURL[:len(baseURL)-len(suffix)]
	}
	return baseURL
}
