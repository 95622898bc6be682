package crypt

import (
	"go.uber.org/fx"

	"github.com/opendigger/pointgate/internal/config"
)

// Module provides the PII cipher to the fx graph.
var Module = fx.Provide(newCipher)

type cipherParams struct {
	fx.In

	Config *config.Config
}

func newCipher(p cipherParams) (*Cipher, error) {
	return New(p.Config.PIIKeyHex)
}
