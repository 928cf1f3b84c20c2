// Package compiler turns validated strategy source into a deployable
// artifact and enforces the artifact-level policy that the source
// validator cannot: forbidden opcodes in both runtime and creation
// bytecode, and a storage-layout restriction that keeps a submission from
// declaring its own persistent state. This is the authoritative layer of
// defense; the validator alone is not sufficient.
package compiler

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/core/vm"
)

const (
	defaultSolcPath    = "solc"
	defaultEVMVersion  = "paris"
	defaultCompileWait = 10 * time.Second
)

// forbidden opcodes, as raw bytes rather than go-ethereum's named
// constants: several of the block-context opcodes this list needs
// (COINBASE, PREVRANDAO/DIFFICULTY, CHAINID) have been renamed across
// go-ethereum releases, so the byte values themselves are the stable
// contract. vm.OpCode is still used below to walk the instruction stream;
// diagnostics use the names in this table.
var forbiddenOpcodes = map[byte]string{
	0xf1: "CALL",
	0xf2: "CALLCODE",
	0xf4: "DELEGATECALL",
	0xfa: "STATICCALL",
	0xf0: "CREATE",
	0xf5: "CREATE2",
	0xff: "SELFDESTRUCT",
	0x40: "BLOCKHASH",
	0x41: "COINBASE",
	0x42: "TIMESTAMP",
	0x43: "NUMBER",
	0x44: "PREVRANDAO",
	0x45: "GASLIMIT",
	0x46: "CHAINID",
	0x47: "SELFBALANCE",
	0x48: "BASEFEE",
	0x31: "BALANCE",
	0x3b: "EXTCODESIZE",
	0x3c: "EXTCODECOPY",
	0x3f: "EXTCODEHASH",
	0xa0: "LOG0",
	0xa1: "LOG1",
	0xa2: "LOG2",
	0xa3: "LOG3",
	0xa4: "LOG4",
}

// reservedStorageSlots is the number of 32-byte slots AMMStrategyBase
// reserves for itself (slot 0, the owning AMM's address). A submission's
// own contract must not declare storage outside this range.
const reservedStorageSlots = 1

// Artifact is the result of compiling one submission.
type Artifact struct {
	Bytecode         []byte // creation (deployment) bytecode
	DeployedBytecode []byte // runtime bytecode
	ABI              json.RawMessage
	Success          bool
	Errors           []string
}

// Config controls how the underlying solc toolchain is invoked.
type Config struct {
	// SolcPath is the path to the solc binary. Defaults to "solc" on PATH.
	SolcPath string
	// EVMVersion is passed to solc's --evm-version flag. Defaults to
	// "paris", matching the sandbox executor's fixed block context.
	EVMVersion string
	// Timeout bounds the solc subprocess; compilation is expected to be
	// fast and this guards against a pathological input wedging solc.
	Timeout time.Duration
}

// Compiler compiles Solidity source and enforces bytecode-level policy.
type Compiler struct {
	cfg Config
}

// New returns a Compiler with cfg defaults filled in.
func New(cfg Config) *Compiler {
	if cfg.SolcPath == "" {
		cfg.SolcPath = defaultSolcPath
	}
	if cfg.EVMVersion == "" {
		cfg.EVMVersion = defaultEVMVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultCompileWait
	}
	return &Compiler{cfg: cfg}
}

type combinedJSON struct {
	Contracts map[string]struct {
		BIN           string          `json:"bin"`
		BINRuntime    string          `json:"bin-runtime"`
		ABI           json.RawMessage `json:"abi"`
		StorageLayout json.RawMessage `json:"storage-layout"`
	} `json:"contracts"`
}

type storageLayout struct {
	Storage []struct {
		Label    string `json:"label"`
		Slot     string `json:"slot"`
		Contract string `json:"contract"`
	} `json:"storage"`
}

// Compile runs solc against source, requesting the named contract, and
// then applies the artifact-level opcode and storage-layout checks. A
// solc diagnostic failure and a policy-rule failure both come back as
// Artifact{Success: false, Errors: [...]}; neither panics or returns a Go
// error, so a bad submission never aborts the caller.
func (c *Compiler) Compile(ctx context.Context, source, contractName string) (*Artifact, error) {
	dir, err := os.MkdirTemp("", "ammarena-compile-*")
	if err != nil {
		return nil, fmt.Errorf("compiler: create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, "Strategy.sol")
	if err := os.WriteFile(srcPath, []byte(source), 0o600); err != nil {
		return nil, fmt.Errorf("compiler: write source: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.cfg.SolcPath,
		"--combined-json", "abi,bin,bin-runtime,storage-layout",
		"--evm-version", c.cfg.EVMVersion,
		"--base-path", dir,
		srcPath,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &Artifact{Success: false, Errors: []string{
			fmt.Sprintf("solc invocation failed: %v: %s", err, stderr.String()),
		}}, nil
	}

	var parsed combinedJSON
	if err := json.Unmarshal(stdout.Bytes(), &parsed); err != nil {
		return &Artifact{Success: false, Errors: []string{
			fmt.Sprintf("could not parse solc output: %v", err),
		}}, nil
	}

	var entry *struct {
		BIN           string          `json:"bin"`
		BINRuntime    string          `json:"bin-runtime"`
		ABI           json.RawMessage `json:"abi"`
		StorageLayout json.RawMessage `json:"storage-layout"`
	}
	for key, contract := range parsed.Contracts {
		if filepath.Base(key) == "Strategy.sol:"+contractName || key == contractName {
			entryVal := contract
			entry = &entryVal
			break
		}
	}
	if entry == nil {
		return &Artifact{Success: false, Errors: []string{
			fmt.Sprintf("contract %q not found in compiler output", contractName),
		}}, nil
	}

	creationCode, err := hex.DecodeString(entry.BIN)
	if err != nil {
		return &Artifact{Success: false, Errors: []string{"malformed creation bytecode from compiler"}}, nil
	}
	runtimeCode, err := hex.DecodeString(entry.BINRuntime)
	if err != nil {
		return &Artifact{Success: false, Errors: []string{"malformed runtime bytecode from compiler"}}, nil
	}

	var errs []string
	if bad := scanForbiddenOpcodes(runtimeCode); len(bad) > 0 {
		errs = append(errs, fmt.Sprintf("runtime bytecode contains forbidden opcodes: %v", bad))
	}
	if bad := scanForbiddenOpcodes(creationCode); len(bad) > 0 {
		errs = append(errs, fmt.Sprintf("creation bytecode contains forbidden opcodes: %v", bad))
	}
	if bad := checkStorageLayout(entry.StorageLayout, contractName); len(bad) > 0 {
		errs = append(errs, fmt.Sprintf("storage outside reserved slot range: %v", bad))
	}

	return &Artifact{
		Bytecode:         creationCode,
		DeployedBytecode: runtimeCode,
		ABI:              entry.ABI,
		Success:          len(errs) == 0,
		Errors:           errs,
	}, nil
}

// scanForbiddenOpcodes walks code as an instruction stream, correctly
// skipping the immediate data bytes of PUSHn so that data which happens to
// equal a forbidden opcode byte is never misflagged.
func scanForbiddenOpcodes(code []byte) []string {
	seen := map[string]bool{}
	var found []string
	for i := 0; i < len(code); {
		op := vm.OpCode(code[i])
		if name, ok := forbiddenOpcodes[byte(op)]; ok && !seen[name] {
			seen[name] = true
			found = append(found, name)
		}
		if op.IsPush() {
			n := int(op) - int(vm.PUSH1) + 1
			i += 1 + n
			continue
		}
		i++
	}
	return found
}

// checkStorageLayout rejects any storage slot at or beyond
// reservedStorageSlots that the submission's own contract declared,
// rather than inheriting from the base.
func checkStorageLayout(raw json.RawMessage, contractName string) []string {
	if len(raw) == 0 {
		return nil
	}
	var layout storageLayout
	if err := json.Unmarshal(raw, &layout); err != nil {
		return []string{"could not parse storage layout"}
	}

	var offending []string
	for _, entry := range layout.Storage {
		if filepath.Base(entry.Contract) != contractName && !hasSuffixDotContract(entry.Contract, contractName) {
			// storage declared by an inherited base contract; always permitted.
			continue
		}
		var slot int
		fmt.Sscanf(entry.Slot, "%d", &slot)
		if slot >= reservedStorageSlots {
			offending = append(offending, entry.Label)
		}
	}
	return offending
}

func hasSuffixDotContract(full, contractName string) bool {
	suffix := ":" + contractName
	return len(full) >= len(suffix) && full[len(full)-len(suffix):] == suffix
}
