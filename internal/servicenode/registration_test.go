package servicenode

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/Klingon-tech/klingnet-chain/config"
)

func TestValidateRegistrationData(t *testing.T) {
	rules := &config.ServiceNodeRules{MinStake: 500}
	pubKeyHex := hex.EncodeToString(testPubKey(t))

	data := &RegistrationData{PubKey: pubKeyHex, Operator: "kgx1test"}

	pubKey, err := ValidateRegistrationData(data, 500, rules)
	if err != nil {
		t.Fatalf("ValidateRegistrationData: %v", err)
	}
	if hex.EncodeToString(pubKey) != pubKeyHex {
		t.Fatalf("returned pubkey %x, want %s", pubKey, pubKeyHex)
	}

	if _, err := ValidateRegistrationData(data, 499, rules); err == nil {
		t.Fatal("expected error for value below min stake")
	}

	badData := &RegistrationData{PubKey: "not-hex", Operator: "kgx1test"}
	if _, err := ValidateRegistrationData(badData, 500, rules); err == nil {
		t.Fatal("expected error for malformed pub_key")
	}
}

func TestParseRegistrationData(t *testing.T) {
	raw, err := json.Marshal(&RegistrationData{PubKey: "abcd", Operator: "kgx1test"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	data, err := ParseRegistrationData(raw)
	if err != nil {
		t.Fatalf("ParseRegistrationData: %v", err)
	}
	if data.PubKey != "abcd" || data.Operator != "kgx1test" {
		t.Fatalf("parsed = %+v", data)
	}
}
