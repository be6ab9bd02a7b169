package config

// Protocol-level defaults mirroring the original chain's literal constants
// (§14 of the supplemented behavior), plus node-local runtime defaults.
const (
	// DefaultGasLimit is chain.py's literal genesis gas_limit default.
	DefaultGasLimit uint64 = 4_712_388

	// DefaultDifficulty is chain.py's literal genesis difficulty default, 2^25.
	DefaultDifficulty uint64 = 1 << 25

	// DefaultTimestamp is chain.py's literal genesis timestamp default.
	DefaultTimestamp uint64 = 1467446877

	// DefaultExtraData is chain.py's literal candidate extra-data default —
	// harmless flavor text, kept rather than silently dropped.
	DefaultExtraData = "moo ha ha says the laughing cow."

	// MinGasPrice is the node-local default minimum gas price the mempool
	// accepts (§4.G).
	MinGasPrice uint64 = 1

	// MaxFutureBlockTime bounds how far ahead of local time a block's
	// timestamp may be before an embedder should refuse it outright rather
	// than queueing it; the chain core itself imposes no such ceiling —
	// every future-dated block is queued (§4.E case 1).
	MaxFutureBlockTime uint64 = 15
)

// DefaultGenesisHeaderFields returns the scalar header defaults for genesis
// input mode (e) — an allocation dictionary plus scalar header fields.
func DefaultGenesisHeaderFields() Genesis {
	return Genesis{
		GasLimit:   DefaultGasLimit,
		Difficulty: DefaultDifficulty,
		Timestamp:  DefaultTimestamp,
		ExtraData:  DefaultExtraData,
	}
}

// Default returns the default node configuration for the given network.
func Default(network NetworkType) *Config {
	cfg := &Config{
		Network: network,
		DataDir: DefaultDataDir(),
		Mining: MiningConfig{
			Enabled: false,
			Threads: 1,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
	return cfg
}
