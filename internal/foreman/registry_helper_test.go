package foreman

import (
	"encoding/json"
	"testing"

	"github.com/forgeq/forgeq/internal/factory"
)

type echoExecutable struct{}

func (echoExecutable) Perform() error { return nil }

func testRegistryWithEcho(t *testing.T) *factory.Registry {
	t.Helper()
	reg := factory.NewRegistry()
	reg.Register("EchoJob", func(json.RawMessage) (factory.Executable, error) {
		return echoExecutable{}, nil
	})
	return reg
}
