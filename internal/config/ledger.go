package config

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/tcfw/cognitechain/pkg/chain"
	"github.com/tcfw/cognitechain/pkg/tx"
)

type Ledger struct {
	DataDir        string
	ChainFile      string
	Difficulty     int
	MinDifficulty  int
	MaxAttempts    uint64
	MiningTimeout  time.Duration
	PersistRetries int

	Rewards tx.Rewards

	Index struct {
		Enabled bool
		Path    string
	}
}

const (
	Cfg_ledger_dataDir        = "ledger.dataDir"
	Cfg_ledger_chainFile      = "ledger.chainFile"
	Cfg_ledger_difficulty     = "ledger.difficulty"
	Cfg_ledger_minDifficulty  = "ledger.minDifficulty"
	Cfg_ledger_maxAttempts    = "ledger.maxAttempts"
	Cfg_ledger_miningTimeout  = "ledger.miningTimeout"
	Cfg_ledger_persistRetries = "ledger.persistRetries"
	Cfg_rewards_mining        = "rewards.mining"
	Cfg_rewards_upload        = "rewards.upload"
	Cfg_index_enabled         = "index.enabled"
	Cfg_index_path            = "index.path"
)

var (
	ledgerDefaults = map[string]interface{}{
		Cfg_ledger_dataDir:        "data",
		Cfg_ledger_chainFile:      "chain.json",
		Cfg_ledger_difficulty:     chain.DefaultDifficulty,
		Cfg_ledger_minDifficulty:  0,
		Cfg_ledger_maxAttempts:    50_000_000,
		Cfg_ledger_miningTimeout:  30 * time.Second,
		Cfg_ledger_persistRetries: 3,
		Cfg_rewards_mining:        tx.DefaultMiningReward,
		Cfg_rewards_upload:        tx.DefaultUploadReward,
		Cfg_index_enabled:         true,
		Cfg_index_path:            "",
	}
)

func init() {
	for k, v := range ledgerDefaults {
		viper.SetDefault(k, v)
	}
}

func buildLedgerConfig() (*Ledger, error) {
	c := &Ledger{}

	c.DataDir = viper.GetString(Cfg_ledger_dataDir)
	c.ChainFile = viper.GetString(Cfg_ledger_chainFile)
	if !filepath.IsAbs(c.ChainFile) {
		c.ChainFile = filepath.Join(c.DataDir, c.ChainFile)
	}

	c.Difficulty = viper.GetInt(Cfg_ledger_difficulty)
	if c.Difficulty < 0 || c.Difficulty > chain.MaxDifficulty {
		return nil, errors.Wrapf(chain.ErrInvalidDifficulty, "%s=%d", Cfg_ledger_difficulty, c.Difficulty)
	}

	c.MinDifficulty = viper.GetInt(Cfg_ledger_minDifficulty)
	if c.MinDifficulty < 0 || c.MinDifficulty > chain.MaxDifficulty {
		return nil, errors.Wrapf(chain.ErrInvalidDifficulty, "%s=%d", Cfg_ledger_minDifficulty, c.MinDifficulty)
	}

	c.MaxAttempts = viper.GetUint64(Cfg_ledger_maxAttempts)
	c.MiningTimeout = viper.GetDuration(Cfg_ledger_miningTimeout)
	c.PersistRetries = viper.GetInt(Cfg_ledger_persistRetries)

	c.Rewards.Mining = viper.GetInt64(Cfg_rewards_mining)
	c.Rewards.Upload = viper.GetInt64(Cfg_rewards_upload)
	if c.Rewards.Mining < 0 || c.Rewards.Upload < 0 {
		return nil, errors.New("rewards must not be negative")
	}

	c.Index.Enabled = viper.GetBool(Cfg_index_enabled)
	c.Index.Path = viper.GetString(Cfg_index_path)
	if c.Index.Path == "" {
		c.Index.Path = filepath.Join(c.DataDir, "index")
	}

	return c, nil
}
