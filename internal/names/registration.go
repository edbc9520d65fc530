package names

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-chain/config"
)

// RegistrationData is the JSON payload in a ScriptTypeNameReg output's
// Script.Data, mirroring subchain.RegistrationData and
// servicenode.RegistrationData: a typed payload describing the thing being
// registered, parsed and validated before the chain manager admits it.
type RegistrationData struct {
	Name     string `json:"name"`
	Owner    string `json:"owner"`    // Bech32 address credited as the name's owner
	Renewal  bool   `json:"renewal"`  // true if this extends an existing record rather than creating one
	Value    []byte `json:"value"`    // Owner-controlled record payload
}

func ParseRegistrationData(scriptData []byte) (*RegistrationData, error) {
	var rd RegistrationData
	if err := json.Unmarshal(scriptData, &rd); err != nil {
		return nil, fmt.Errorf("parse name registration: %w", err)
	}
	return &rd, nil
}

// ValidateRegistrationData checks a RegistrationData against the
// configured name-system rules.
func ValidateRegistrationData(data *RegistrationData, value uint64, rules *config.NameSystemRules) error {
	if data.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if rules.MaxNameLength > 0 && len(data.Name) > rules.MaxNameLength {
		return fmt.Errorf("name %q exceeds maximum length %d", data.Name, rules.MaxNameLength)
	}
	if value < rules.MinFee {
		return fmt.Errorf("registration value %d below minimum fee %d", value, rules.MinFee)
	}
	return nil
}
