package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"brokerage-conductor/internal/types"
)

type BrokerConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // SIMULATED; live adapters are wired in code
	Sim  struct {
		Accounts int      `yaml:"accounts"`
		Symbols  []string `yaml:"symbols"`
	} `yaml:"sim"`
}

type Config struct {
	Mode         string `yaml:"mode"` // DEMO or LIVE
	DatabasePath string `yaml:"database_path"`
	Rollup       struct {
		Period string `yaml:"period"` // DAILY, WEEKLY or MONTHLY
	} `yaml:"rollup"`
	Sync struct {
		FastMode        bool   `yaml:"fast_mode"`
		RetryCount      int    `yaml:"retry_count"`
		LookbackDays    int    `yaml:"lookback_days"`
		FilledOnly      bool   `yaml:"filled_only"`
		ResyncSchedule  string `yaml:"resync_schedule"`
		QuoteSchedule   string `yaml:"quote_schedule"`
		BalanceSchedule string `yaml:"balance_schedule"`
	} `yaml:"sync"`
	Brokers []BrokerConfig `yaml:"brokers"`
}

func (c *Config) Validate() error {
	if c.Mode != "DEMO" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DEMO' or 'LIVE'", c.Mode)
	}
	if len(c.Brokers) == 0 {
		return errors.New("brokers cannot be empty")
	}
	for _, b := range c.Brokers {
		if b.Name == "" {
			return errors.New("broker name cannot be empty")
		}
		if b.Kind != "SIMULATED" {
			return fmt.Errorf("unknown broker kind '%s' for '%s': only 'SIMULATED' ships in-tree, live adapters are injected by the embedding program", b.Kind, b.Name)
		}
	}
	switch types.RollupPeriod(c.Rollup.Period) {
	case types.PeriodDaily, types.PeriodWeekly, types.PeriodMonthly:
	default:
		return fmt.Errorf("rollup.period must be 'DAILY', 'WEEKLY' or 'MONTHLY', got '%s'", c.Rollup.Period)
	}
	if c.Sync.RetryCount < 0 {
		return fmt.Errorf("sync.retry_count cannot be negative, got %d", c.Sync.RetryCount)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Numeric defaults are seeded before unmarshal: zero is a meaningful
	// setting for both (no retries, unbounded lookback), so an explicit 0 in
	// the file must survive. Absent keys leave the seeds untouched.
	var c Config
	c.Sync.RetryCount = 2
	c.Sync.LookbackDays = 30
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.DatabasePath == "" {
		c.DatabasePath = "data/conductor.db"
	}
	if c.Rollup.Period == "" {
		c.Rollup.Period = string(types.PeriodDaily)
	}
	if c.Sync.ResyncSchedule == "" {
		c.Sync.ResyncSchedule = "@every 15m"
	}
	if c.Sync.QuoteSchedule == "" {
		c.Sync.QuoteSchedule = "@every 5m"
	}
	if c.Sync.BalanceSchedule == "" {
		c.Sync.BalanceSchedule = "@hourly"
	}
	for i := range c.Brokers {
		if c.Brokers[i].Kind == "" {
			c.Brokers[i].Kind = "SIMULATED"
		}
		if c.Brokers[i].Sim.Accounts == 0 {
			c.Brokers[i].Sim.Accounts = 2
		}
		if len(c.Brokers[i].Sim.Symbols) == 0 {
			c.Brokers[i].Sim.Symbols = []string{"AAPL", "MSFT", "VTI"}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
