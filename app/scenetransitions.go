// Package app contains the host's modules and the services around them.
package app

import (
	"context"
	"fmt"

	"github.com/artpar/apphost/core/capability"
	"github.com/artpar/apphost/core/registry"
	"github.com/artpar/apphost/domain/transition"
	"github.com/artpar/apphost/pkg/apierror"
	"github.com/artpar/apphost/ports"
)

// SceneTransitionsModuleName is the name apps address the module by.
const SceneTransitionsModuleName = "SceneTransitions"

// SceneTransitionsDeps are the collaborators of SceneTransitionsModule.
type SceneTransitionsDeps struct {
	Engine ports.TransitionEngine
	Assets ports.AssetResolver
	Mimes  ports.MimeClassifier
}

// SceneTransitionsModule lets apps create scene transitions, locked or
// editable by the streamer. Only stinger transitions are supported.
type SceneTransitionsModule struct {
	engine ports.TransitionEngine
	assets ports.AssetResolver
	mimes  ports.MimeClassifier
}

// NewSceneTransitionsModule creates the module.
func NewSceneTransitionsModule(deps SceneTransitionsDeps) *SceneTransitionsModule {
	return &SceneTransitionsModule{
		engine: deps.Engine,
		assets: deps.Assets,
		mimes:  deps.Mimes,
	}
}

// Definition returns the module's registry entry.
func (m *SceneTransitionsModule) Definition() registry.Module {
	return registry.Module{
		Name:        SceneTransitionsModuleName,
		Description: "Create scene transitions owned by the calling app.",
		Permissions: []capability.Permission{capability.SceneTransitions},
		Methods: []registry.Method{
			{
				Name:        "createTransition",
				Description: "Create a stinger transition from a video asset inside the app.",
				Parse:       m.parseCreate,
				Translate:   m.translateCreate,
				Handle:      m.createTransition,
			},
		},
	}
}

func (m *SceneTransitionsModule) parseCreate(args any) (any, error) {
	return transition.Parse(args)
}

func (m *SceneTransitionsModule) translateCreate(_ context.Context, cc *capability.Context, input any) (any, error) {
	req, ok := input.(transition.Request)
	if !ok {
		return nil, apierror.Internal("createTransition: bad translate input",
			fmt.Errorf("unexpected input %T", input))
	}
	return transition.Build(cc.AppID, req, m.assets, m.mimes)
}

func (m *SceneTransitionsModule) createTransition(ctx context.Context, _ *capability.Context, input any) (any, error) {
	c, ok := input.(transition.Creation)
	if !ok {
		return nil, apierror.Internal("createTransition: bad handler input",
			fmt.Errorf("unexpected input %T", input))
	}
	return m.engine.CreateTransition(ctx, c.Kind, c.Name, c.Config)
}
