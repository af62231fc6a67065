package bootstrap

import (
	"github.com/artpar/apphost/app"
	"github.com/artpar/apphost/core/registry"
	"github.com/artpar/apphost/ports"
)

// moduleDeps are the collaborators shared by the built-in modules.
type moduleDeps struct {
	Engine ports.TransitionEngine
	Assets ports.AssetResolver
	Mimes  ports.MimeClassifier
}

// registerModules adds every built-in module to the registry.
func registerModules(reg *registry.Registry, deps moduleDeps) error {
	mods := []registry.Module{
		app.NewSceneTransitionsModule(app.SceneTransitionsDeps{
			Engine: deps.Engine,
			Assets: deps.Assets,
			Mimes:  deps.Mimes,
		}).Definition(),
	}

	for _, m := range mods {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}
