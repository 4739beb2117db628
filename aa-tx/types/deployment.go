package types

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

var (
	// ContractDeployerAddress is the system contract all deployments go through.
	ContractDeployerAddress = common.HexToAddress("0x0000000000000000000000000000000000008006")

	// ContractDeployedTopic is the topic of
	// ContractDeployed(address indexed,bytes32 indexed,address indexed).
	ContractDeployedTopic = crypto.Keccak256Hash([]byte("ContractDeployed(address,bytes32,address)"))

	createPrefix  = crypto.Keccak256Hash([]byte("zksyncCreate"))
	create2Prefix = crypto.Keccak256Hash([]byte("zksyncCreate2"))
)

const (
	bytecodeHashVersion = 1
	maxBytecodeWords    = 1<<16 - 1

	// AccountAbstractionVersion1 marks a deployed contract as an account.
	AccountAbstractionVersion1 = uint8(1)
)

const contractDeployerABI = `[
	{"type":"function","name":"createAccount","stateMutability":"payable","inputs":[
		{"name":"_salt","type":"bytes32"},{"name":"_bytecodeHash","type":"bytes32"},
		{"name":"_input","type":"bytes"},{"name":"_aaVersion","type":"uint8"}],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"create2Account","stateMutability":"payable","inputs":[
		{"name":"_salt","type":"bytes32"},{"name":"_bytecodeHash","type":"bytes32"},
		{"name":"_input","type":"bytes"},{"name":"_aaVersion","type":"uint8"}],
	 "outputs":[{"name":"","type":"address"}]}
]`

var contractDeployer abi.ABI

func init() {
	var err error
	contractDeployer, err = abi.JSON(strings.NewReader(contractDeployerABI))
	if err != nil {
		panic(err)
	}
}

// HashBytecode returns the versioned bytecode hash the network identifies
// contract code by: sha256 of the code with the first two bytes replaced by
// the version and the next two by the length in 32-byte words.
func HashBytecode(bytecode []byte) (common.Hash, error) {
	if len(bytecode) == 0 || len(bytecode)%32 != 0 {
		return common.Hash{}, fmt.Errorf("%w: bytecode length %d is not a positive multiple of 32", ErrMalformedTransaction, len(bytecode))
	}
	words := len(bytecode) / 32
	if words > maxBytecodeWords {
		return common.Hash{}, fmt.Errorf("%w: bytecode too long (%d words)", ErrMalformedTransaction, words)
	}
	if words%2 == 0 {
		return common.Hash{}, fmt.Errorf("%w: bytecode length in words must be odd, got %d", ErrMalformedTransaction, words)
	}
	h := sha256.Sum256(bytecode)
	h[0] = bytecodeHashVersion
	h[1] = 0
	binary.BigEndian.PutUint16(h[2:4], uint16(words))
	return common.Hash(h), nil
}

// CreateAddress derives the address of an account deployed with
// createAccount by sender at the given deployment nonce.
func CreateAddress(sender common.Address, deploymentNonce uint64) common.Address {
	nonce := common.BigToHash(new(big.Int).SetUint64(deploymentNonce))
	h := crypto.Keccak256(createPrefix.Bytes(), common.BytesToHash(sender.Bytes()).Bytes(), nonce.Bytes())
	return common.BytesToAddress(h[12:])
}

// Create2Address derives the address of an account deployed with
// create2Account. It does not depend on any nonce.
func Create2Address(sender common.Address, bytecodeHash, salt common.Hash, input []byte) common.Address {
	h := crypto.Keccak256(
		create2Prefix.Bytes(),
		common.BytesToHash(sender.Bytes()).Bytes(),
		salt.Bytes(),
		bytecodeHash.Bytes(),
		crypto.Keccak256(input),
	)
	return common.BytesToAddress(h[12:])
}

// CreateIntent describes the deployment of an account contract.
type CreateIntent struct {
	Bytecode []byte
	// ConstructorInput is the ABI-encoded constructor arguments.
	ConstructorInput []byte
	// Salt selects create2Account when set.
	Salt *common.Hash
	// Value is sent to the constructor.
	Value *big.Int
}

// CallIntent is a contract call to be executed by an account.
type CallIntent struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// ToCall renders the creation as a call to the contract deployer.
func (c *CreateIntent) ToCall() (*CallIntent, common.Hash, error) {
	bytecodeHash, err := HashBytecode(c.Bytecode)
	if err != nil {
		return nil, common.Hash{}, err
	}
	method, salt := "createAccount", common.Hash{}
	if c.Salt != nil {
		method, salt = "create2Account", *c.Salt
	}
	input := c.ConstructorInput
	if input == nil {
		input = []byte{}
	}
	data, err := contractDeployer.Pack(method, [32]byte(salt), [32]byte(bytecodeHash), input, AccountAbstractionVersion1)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	return &CallIntent{To: ContractDeployerAddress, Data: data, Value: c.Value}, bytecodeHash, nil
}

// DeployedContracts returns the addresses announced by ContractDeployed
// events in logs, in log order.
func DeployedContracts(logs []*gethtypes.Log) []common.Address {
	var out []common.Address
	for _, l := range logs {
		if l == nil || l.Address != ContractDeployerAddress || len(l.Topics) != 4 {
			continue
		}
		if l.Topics[0] != ContractDeployedTopic {
			continue
		}
		out = append(out, common.BytesToAddress(l.Topics[3].Bytes()))
	}
	return out
}

// DecodeCreateCall parses contract deployer calldata built by ToCall.
func DecodeCreateCall(data []byte) (method string, salt, bytecodeHash common.Hash, input []byte, err error) {
	if len(data) < 4 {
		return "", common.Hash{}, common.Hash{}, nil, fmt.Errorf("%w: calldata too short", ErrMalformedTransaction)
	}
	m, err := contractDeployer.MethodById(data[:4])
	if err != nil {
		return "", common.Hash{}, common.Hash{}, nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return "", common.Hash{}, common.Hash{}, nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	return m.Name, args[0].([32]byte), args[1].([32]byte), args[2].([]byte), nil
}
