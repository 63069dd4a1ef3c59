// Package all registers every backend in kernel.DefaultCatalog. Import it for its
// side effects:
//
//	import _ "github.com/ollama/kselect/backend/all"
package all

import (
	"github.com/ollama/kselect/backend/cpu"
	"github.com/ollama/kselect/backend/gpu"
	"github.com/ollama/kselect/backend/ref"
	"github.com/ollama/kselect/kernel"
)

// Register adds all backends to c. Reference kernels come first so they stay
// first among equal priorities.
func Register(c *kernel.Catalog) error {
	for _, register := range []func(*kernel.Catalog) error{
		ref.Register,
		gpu.Register,
		cpu.Register,
	} {
		if err := register(c); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	if err := Register(kernel.DefaultCatalog); err != nil {
		panic(err)
	}
}
