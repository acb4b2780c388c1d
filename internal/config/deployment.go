package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Deployment describes where the game contracts live.
type Deployment struct {
	ChainID      int64  `yaml:"chain_id"`
	WheelAddress string `yaml:"wheel_address"`
	TokenAddress string `yaml:"token_address"`
}

// LoadDeployment reads a deployment file. A missing file yields an empty
// deployment so env overrides can still supply the addresses.
func LoadDeployment(path string) (*Deployment, error) {
	dep := &Deployment{}
	if path == "" {
		return dep, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return dep, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment file: %w", err)
	}

	if err := yaml.Unmarshal(data, dep); err != nil {
		return nil, fmt.Errorf("failed to parse deployment file %s: %w", path, err)
	}
	return dep, nil
}

func (d *Deployment) applyEnv() {
	if v := os.Getenv("WHEEL_CONTRACT_ADDRESS"); v != "" {
		d.WheelAddress = v
	}
	if v := os.Getenv("TOKEN_CONTRACT_ADDRESS"); v != "" {
		d.TokenAddress = v
	}
	if v, err := getInt("CHAIN_ID", 0); err == nil && v != 0 {
		d.ChainID = int64(v)
	}
}
