package appstate

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/renovate-resolver/resolver/engine/resolve"
	"github.com/renovate-resolver/resolver/engine/schema"
	"github.com/renovate-resolver/resolver/pkg/config"
)

type contextKey string

const (
	stateKey contextKey = "app_state"
)

// State is the set of long-lived collaborators shared by every request handler.
type State struct {
	Config       *config.Config
	Schemas      *schema.Cache
	Orchestrator *resolve.Orchestrator
}

func NewState(cfg *config.Config, schemas *schema.Cache, orch *resolve.Orchestrator) (*State, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if schemas == nil {
		return nil, fmt.Errorf("schema cache is required")
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	return &State{Config: cfg, Schemas: schemas, Orchestrator: orch}, nil
}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func GetState(ctx context.Context) (*State, error) {
	state, ok := ctx.Value(stateKey).(*State)
	if !ok {
		return nil, fmt.Errorf("app state not found in context")
	}
	return state, nil
}

func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithState(c.Request.Context(), state)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
