package config

import "time"

// NewDefaultConfig returns a Config populated with conservative defaults
// suitable for a single-node deployment, grounded on the teacher's
// config.NewDefaultConfig. dbFile and ageKeyPath are supplied by the
// caller (cmd/registrar-core's flags), since there is no sane default
// for where a deployment's data should live.
func NewDefaultConfig(dbFile, ageKeyPath, chainName string) *Config {
	return &Config{
		DBFile:     dbFile,
		AgeKeyPath: ageKeyPath,
		Chain:      ChainConfig{Name: chainName},
		Scheduler: Scheduler{
			ReclaimInterval:   Duration{60 * time.Second},
			DanglingThreshold: Duration{3600 * time.Second},
		},
		Notifier: Notifier{
			Interval:      Duration{time.Second},
			SinkRateLimit: 5,
			SinkBurst:     10,
		},
		AbuseWatchdog: AbuseWatchdog{
			Activated:       false,
			K:               50,
			WindowSize:      10,
			Width:           1024,
			Depth:           5,
			TickSize:        100,
			MaxSharePercent: 35,
			ActivationRPS:   50,
		},
		Discord: Discord{
			Activated:   false,
			RateLimit:   1,
			Burst:       5,
			SendTimeout: Duration{5 * time.Second},
		},
		Log: Log{
			Level: LogLevel{Level: 0}, // info
			Batch: BatchLogger{
				ChanSize:      1024,
				FlushSize:     100,
				FlushInterval: Duration{time.Second},
				DbPath:        dbFile,
			},
		},
		Litestream: Litestream{
			Activated:   false,
			ReplicaPath: "./litestream-replica",
			ReplicaName: "main",
		},
		Admin: Admin{
			ListenAddr: "localhost:7777",
		},
	}
}
