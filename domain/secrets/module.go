package secrets

import (
	"go.uber.org/fx"

	"github.com/forgehub/platform/internal/config"
)

// Module provides the secret-engine domain dependencies.
var Module = fx.Module("secrets",
	fx.Provide(NewCryptoFromConfig),
	fx.Provide(NewRepository),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

// NewCryptoFromConfig wires the master-key configuration into a Crypto.
func NewCryptoFromConfig(cfg *config.Config) (*Crypto, error) {
	return NewCrypto(cfg.Secrets.MasterKeyHex, cfg.Secrets.DevMode)
}
