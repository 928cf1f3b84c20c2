package compiler

import (
	"encoding/json"
	"testing"
)

func TestScanForbiddenOpcodesSkipsPushImmediates(t *testing.T) {
	// PUSH1 0xf1 ... the 0xf1 here is push DATA, not a CALL opcode, and
	// must not be flagged.
	code := []byte{0x60, 0xf1, 0x00}
	if found := scanForbiddenOpcodes(code); len(found) != 0 {
		t.Errorf("expected no forbidden opcodes in push data, got %v", found)
	}
}

func TestScanForbiddenOpcodesCatchesRealCall(t *testing.T) {
	// PUSH1 0x00, CALL
	code := []byte{0x60, 0x00, 0xf1}
	found := scanForbiddenOpcodes(code)
	if len(found) != 1 || found[0] != "CALL" {
		t.Errorf("expected [CALL], got %v", found)
	}
}

func TestScanForbiddenOpcodesSkipsLongPushImmediate(t *testing.T) {
	// PUSH32 followed by 32 bytes of data containing every forbidden
	// opcode byte, then a real STATICCALL.
	code := make([]byte, 0, 34)
	code = append(code, 0x7f) // PUSH32
	for b := range forbiddenOpcodes {
		code = append(code, b)
	}
	for len(code) < 33 {
		code = append(code, 0x00)
	}
	code = append(code, 0xfa) // STATICCALL, real instruction
	found := scanForbiddenOpcodes(code)
	if len(found) != 1 || found[0] != "STATICCALL" {
		t.Errorf("expected only the trailing STATICCALL to be flagged, got %v", found)
	}
}

func TestCheckStorageLayoutRejectsOwnDeclaration(t *testing.T) {
	raw := json.RawMessage(`{
		"storage": [
			{"label": "owner", "slot": "0", "type": "t_address", "contract": "Strategy.sol:AMMStrategyBase"},
			{"label": "hacked", "slot": "1", "type": "t_uint256", "contract": "Strategy.sol:Strategy"}
		]
	}`)
	offending := checkStorageLayout(raw, "Strategy")
	if len(offending) != 1 || offending[0] != "hacked" {
		t.Errorf("expected [hacked], got %v", offending)
	}
}

func TestCheckStorageLayoutAllowsBaseOnly(t *testing.T) {
	raw := json.RawMessage(`{
		"storage": [
			{"label": "owner", "slot": "0", "type": "t_address", "contract": "Strategy.sol:AMMStrategyBase"}
		]
	}`)
	if offending := checkStorageLayout(raw, "Strategy"); len(offending) != 0 {
		t.Errorf("expected no offending storage, got %v", offending)
	}
}
