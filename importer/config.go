package importer

// Config holds the importer's own tunables. It is loadable from TOML the
// same way the teacher's miveconfig.Config is (see cmd/bramblesim), but
// carries only batch-size knobs: there is no database/RPC configuration
// here because the KV store and RPC surface are external collaborators
// (spec §1).
type Config struct {
	// MaxHeadersPerPass bounds how many headers a single header-import pass
	// drains from the queue (spec §4.6/§4.7: "MAX_HEADERS_TO_IMPORT").
	MaxHeadersPerPass int `toml:",omitempty"`

	// MaxBlocksPerPass bounds how many blocks a single block-import pass
	// drains from the queue (spec §4.7: "MAX_BLOCKS_TO_IMPORT").
	MaxBlocksPerPass int `toml:",omitempty"`
}

// DefaultMaxHeadersPerPass and DefaultMaxBlocksPerPass match the spec's
// literal constant (§4.6, §4.7: "N=1000").
const (
	DefaultMaxHeadersPerPass = 1000
	DefaultMaxBlocksPerPass  = 1000
)

// DefaultConfig returns the spec's default batch sizes.
func DefaultConfig() Config {
	return Config{
		MaxHeadersPerPass: DefaultMaxHeadersPerPass,
		MaxBlocksPerPass:  DefaultMaxBlocksPerPass,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxHeadersPerPass <= 0 {
		c.MaxHeadersPerPass = DefaultMaxHeadersPerPass
	}
	if c.MaxBlocksPerPass <= 0 {
		c.MaxBlocksPerPass = DefaultMaxBlocksPerPass
	}
	return c
}
