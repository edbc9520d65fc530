package servicenode

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/config"
)

// RegistrationData is the JSON payload in a ScriptTypeSNReg output's
// Script.Data. Shape mirrors subchain.RegistrationData: a typed payload
// describing the thing being registered, parsed and validated the same
// way before the chain manager admits it.
type RegistrationData struct {
	PubKey   string `json:"pub_key"`  // Hex-encoded 33-byte compressed pubkey
	Operator string `json:"operator"` // Bech32 address credited with reward payouts
}

// ParseRegistrationData deserializes Script.Data into RegistrationData.
func ParseRegistrationData(scriptData []byte) (*RegistrationData, error) {
	var rd RegistrationData
	if err := json.Unmarshal(scriptData, &rd); err != nil {
		return nil, fmt.Errorf("parse service node registration: %w", err)
	}
	return &rd, nil
}

// ValidateRegistrationData checks that a RegistrationData is well-formed
// and that the accompanying output value meets the configured minimum
// stake.
func ValidateRegistrationData(data *RegistrationData, value uint64, rules *config.ServiceNodeRules) ([]byte, error) {
	pubKey, err := hex.DecodeString(data.PubKey)
	if err != nil || len(pubKey) != 33 {
		return nil, fmt.Errorf("pub_key must be a 33-byte compressed pubkey hex")
	}
	if value < rules.MinStake {
		return nil, fmt.Errorf("registration value %d below minimum stake %d", value, rules.MinStake)
	}
	return pubKey, nil
}
