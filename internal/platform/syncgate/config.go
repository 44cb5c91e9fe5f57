package syncgate

import "time"

const (
	DefaultTTL           = 15 * time.Minute
	DefaultDebounce      = 30 * time.Second
	DefaultLease         = 10 * time.Minute
	DefaultIdleRetention = time.Hour
	DefaultSweepInterval = 5 * time.Minute
	DefaultMaxEntries    = 10000
)

// Config holds the freshness and locking thresholds for league syncs.
type Config struct {
	// TTL is how long a successful sync keeps league data fresh.
	TTL time.Duration
	// Debounce suppresses a new attempt this soon after the previous one, whatever its outcome.
	Debounce time.Duration
	// Lease bounds how long a lock may be held before another caller can take it over.
	Lease time.Duration
	// IdleRetention is how long an unlocked league stays tracked after its last attempt.
	IdleRetention time.Duration
	SweepInterval time.Duration
	MaxEntries    int
}

func DefaultConfig() Config {
	return Config{
		TTL:           DefaultTTL,
		Debounce:      DefaultDebounce,
		Lease:         DefaultLease,
		IdleRetention: DefaultIdleRetention,
		SweepInterval: DefaultSweepInterval,
		MaxEntries:    DefaultMaxEntries,
	}
}

// NormalizeConfig fills unset values with defaults. A zero Debounce is kept and disables debouncing.
func NormalizeConfig(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = 0
	}
	if cfg.Lease <= 0 {
		cfg.Lease = defaults.Lease
	}
	if cfg.IdleRetention <= 0 {
		cfg.IdleRetention = defaults.IdleRetention
	}
	// Sweeping an entry earlier would forget a live debounce window.
	if cfg.IdleRetention < cfg.Debounce {
		cfg.IdleRetention = cfg.Debounce
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	if cfg.MaxEntries < 1 {
		cfg.MaxEntries = defaults.MaxEntries
	}
	return cfg
}
