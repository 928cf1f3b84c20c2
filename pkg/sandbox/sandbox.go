// Package sandbox runs a validated, compiled strategy artifact inside a
// deterministic, gas-bounded EVM instance. It is the execution half of the
// two-layer defense: the compiler has already rejected anything capable of
// observing block context or crossing the contract boundary, so the VM
// here only needs to be deterministic and bounded, not additionally
// sandboxed at the opcode level.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
)

const (
	// deployGasCap and callGasCap are the two resource bounds: a higher
	// cap for one-time deployment, a tighter cap for the hot per-trade
	// callback path.
	deployGasCap = 50_000_000
	callGasCap   = 10_000_000

	// deployTimeout bounds deployment wall-clock time; a submission whose
	// constructor never returns is rejected once this elapses.
	deployTimeout = 8 * time.Second
)

// ErrShortReturnData is returned when afterSwap/afterInitialize returns
// fewer than the two ABI words (64 bytes) the interface requires.
var ErrShortReturnData = errors.New("Invalid return data length")

// deployerAddress is the fictitious caller used for both deployment and
// every subsequent call. Its account is created with a zero balance, and
// every deployment and call carries zero value.
var deployerAddress = common.HexToAddress("0x000000000000000000000000000000000000A1")

// CallResult is the structured outcome of one sandboxed invocation.
type CallResult struct {
	BidFeeWad *big.Int
	AskFeeWad *big.Int
	GasUsed   uint64
	Success   bool
	Err       error
}

// Sandbox owns one deployed strategy instance: its own private EVM state,
// isolated from every other strategy's sandbox.
type Sandbox struct {
	abi      abi.ABI
	statedb  *state.StateDB
	chainCfg *params.ChainConfig
	vmConfig vm.Config
	addr     common.Address
}

// New deploys creationBytecode as the strategy contract, bounded by
// deployTimeout and deployGasCap, and returns a ready-to-call Sandbox.
func New(ctx context.Context, creationBytecode []byte, contractABI abi.ABI) (*Sandbox, error) {
	db := state.NewDatabase(rawdb.NewMemoryDatabase())
	statedb, err := state.New(common.Hash{}, db, nil)
	if err != nil {
		return nil, fmt.Errorf("sandbox: init state: %w", err)
	}
	statedb.CreateAccount(deployerAddress)
	statedb.AddBalance(deployerAddress, big.NewInt(0))

	sb := &Sandbox{
		abi:      contractABI,
		statedb:  statedb,
		chainCfg: deterministicChainConfig(),
		vmConfig: vm.Config{},
	}

	deployCtx, cancel := context.WithTimeout(ctx, deployTimeout)
	defer cancel()

	type deployOutcome struct {
		addr common.Address
		err  error
	}
	deployed := make(chan deployOutcome, 1)
	go func() {
		evm := sb.newEVM()
		contractAddr, _, _, err := evm.Create(vm.AccountRef(deployerAddress), creationBytecode, deployGasCap, big.NewInt(0))
		deployed <- deployOutcome{addr: contractAddr, err: err}
	}()

	select {
	case outcome := <-deployed:
		if outcome.err != nil {
			return nil, fmt.Errorf("sandbox: deployment reverted: %w", outcome.err)
		}
		sb.addr = outcome.addr
	case <-deployCtx.Done():
		return nil, fmt.Errorf("sandbox: deployment exceeded %s wall-clock timeout", deployTimeout)
	}
	return sb, nil
}

// deterministicChainConfig pins every fork switch at genesis; together with
// the fixed BlockContext built in newEVM, every block-context opcode
// observes a constant. Strategies cannot read wall-clock time or chain
// state; the compiler forbids the opcodes that would let them try.
func deterministicChainConfig() *params.ChainConfig {
	cfg := *params.AllEthashProtocolChanges
	return &cfg
}

func (sb *Sandbox) newEVM() *vm.EVM {
	blockCtx := vm.BlockContext{
		CanTransfer: func(db vm.StateDB, addr common.Address, amount *big.Int) bool {
			return db.GetBalance(addr).Cmp(amount) >= 0
		},
		Transfer:    func(db vm.StateDB, from, to common.Address, amount *big.Int) {},
		GetHash:     func(n uint64) common.Hash { return common.Hash{} },
		Coinbase:    common.Address{},
		GasLimit:    callGasCap,
		BlockNumber: big.NewInt(1),
		Time:        0,
		Difficulty:  big.NewInt(0),
		BaseFee:     big.NewInt(0),
	}
	txCtx := vm.TxContext{
		Origin:   deployerAddress,
		GasPrice: big.NewInt(0),
	}
	return vm.NewEVM(blockCtx, txCtx, sb.statedb, sb.chainCfg, sb.vmConfig)
}

// AfterInitialize encodes and runs afterInitialize(initialX, initialY).
func (sb *Sandbox) AfterInitialize(initialX, initialY *big.Int) (CallResult, error) {
	input, err := sb.abi.Pack("afterInitialize", initialX, initialY)
	if err != nil {
		return CallResult{}, fmt.Errorf("sandbox: encode afterInitialize: %w", err)
	}
	return sb.call(input)
}

// TradeInfoABI mirrors the ABI tuple signature fixed by IAMMStrategy:
// (uint8 side, uint256 amountX, uint256 amountY, uint256 timestamp,
// uint256 reserveX, uint256 reserveY).
type TradeInfoABI struct {
	Side      uint8
	AmountX   *big.Int
	AmountY   *big.Int
	Timestamp *big.Int
	ReserveX  *big.Int
	ReserveY  *big.Int
}

// AfterSwapFast encodes and runs the hot-path afterSwap(TradeInfo) call.
func (sb *Sandbox) AfterSwapFast(trade TradeInfoABI) (CallResult, error) {
	input, err := sb.abi.Pack("afterSwap", trade)
	if err != nil {
		return CallResult{}, fmt.Errorf("sandbox: encode afterSwap: %w", err)
	}
	result, err := sb.call(input)
	if err != nil {
		return result, fmt.Errorf("afterSwap failed: %w", err)
	}
	if !result.Success {
		return result, fmt.Errorf("afterSwap failed: %w", result.Err)
	}
	return result, nil
}

func (sb *Sandbox) call(input []byte) (CallResult, error) {
	evm := sb.newEVM()
	ret, gasUsed, err := evm.Call(vm.AccountRef(deployerAddress), sb.addr, input, callGasCap, big.NewInt(0))
	used := uint64(callGasCap) - gasUsed
	if err != nil {
		return CallResult{GasUsed: used, Success: false, Err: err}, nil
	}
	if len(ret) < 64 {
		return CallResult{GasUsed: used, Success: false, Err: ErrShortReturnData}, ErrShortReturnData
	}

	bidFee := new(big.Int).SetBytes(ret[0:32])
	askFee := new(big.Int).SetBytes(ret[32:64])
	return CallResult{
		BidFeeWad: bidFee,
		AskFeeWad: askFee,
		GasUsed:   used,
		Success:   true,
	}, nil
}

// LoadABI parses the ABI JSON emitted by the compiler.
func LoadABI(rawJSON string) (abi.ABI, error) {
	return abi.JSON(strings.NewReader(rawJSON))
}
