package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ammarena/strategyarena/pkg/marketflow"
)

// SimulationConfig is the on-disk (JSON or YAML) form of the market-flow
// parameters. Field names follow snake_case since this is the file format
// competitors and operators author by hand.
type SimulationConfig struct {
	NSteps            int     `yaml:"n_steps" json:"n_steps"`
	InitialPrice      float64 `yaml:"initial_price" json:"initial_price"`
	InitialX          float64 `yaml:"initial_x" json:"initial_x"`
	InitialY          float64 `yaml:"initial_y" json:"initial_y"`
	GBMMu             float64 `yaml:"gbm_mu" json:"gbm_mu"`
	GBMSigma          float64 `yaml:"gbm_sigma" json:"gbm_sigma"`
	GBMDt             float64 `yaml:"gbm_dt" json:"gbm_dt"`
	RetailArrivalRate float64 `yaml:"retail_arrival_rate" json:"retail_arrival_rate"`
	RetailMeanSize    float64 `yaml:"retail_mean_size" json:"retail_mean_size"`
	RetailSizeSigma   float64 `yaml:"retail_size_sigma" json:"retail_size_sigma"`
	RetailBuyProb     float64 `yaml:"retail_buy_prob" json:"retail_buy_prob"`
	Seed              int64   `yaml:"seed" json:"seed"`
}

// LoadSimulationConfig reads and parses a SimulationConfig from path.
// YAML is accepted for both .yaml/.yml and .json files, since YAML is a
// superset of JSON.
func LoadSimulationConfig(path string) (SimulationConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SimulationConfig{}, fmt.Errorf("read simulation config: %w", err)
	}
	var cfg SimulationConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return SimulationConfig{}, fmt.Errorf("parse simulation config: %w", err)
	}
	return cfg, nil
}

// ToMarketflow converts the on-disk config into marketflow.Config.
func (c SimulationConfig) ToMarketflow() marketflow.Config {
	return marketflow.Config{
		NSteps:            c.NSteps,
		InitialPrice:      c.InitialPrice,
		InitialX:          c.InitialX,
		InitialY:          c.InitialY,
		GBMMu:             c.GBMMu,
		GBMSigma:          c.GBMSigma,
		GBMDt:             c.GBMDt,
		RetailArrivalRate: c.RetailArrivalRate,
		RetailMeanSize:    c.RetailMeanSize,
		RetailSizeSigma:   c.RetailSizeSigma,
		RetailBuyProb:     c.RetailBuyProb,
		Seed:              c.Seed,
	}
}
