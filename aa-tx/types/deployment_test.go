package types

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestHashBytecode(t *testing.T) {
	code := bytes.Repeat([]byte{0x60}, 3*32)
	h, err := HashBytecode(code)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x00, 0x00, 0x03}, h.Bytes()[:4])

	again, err := HashBytecode(code)
	require.NoError(t, err)
	require.Equal(t, h, again)

	for name, bad := range map[string][]byte{
		"empty":     nil,
		"unaligned": bytes.Repeat([]byte{0x60}, 33),
		"evenWords": bytes.Repeat([]byte{0x60}, 64),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := HashBytecode(bad)
			require.ErrorIs(t, err, ErrMalformedTransaction)
		})
	}
}

func TestCreateAddress(t *testing.T) {
	deployer := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	a := CreateAddress(deployer, 0)
	require.NotEqual(t, common.Address{}, a)
	require.Equal(t, a, CreateAddress(deployer, 0))
	require.NotEqual(t, a, CreateAddress(deployer, 1))
	require.NotEqual(t, a, CreateAddress(testAccount, 0))
}

func TestCreate2Address(t *testing.T) {
	deployer := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	codeHash, err := HashBytecode(bytes.Repeat([]byte{0x60}, 32))
	require.NoError(t, err)
	salt := common.HexToHash("0x01")

	a := Create2Address(deployer, codeHash, salt, nil)
	require.NotEqual(t, common.Address{}, a)
	require.Equal(t, a, Create2Address(deployer, codeHash, salt, []byte{}))
	require.NotEqual(t, a, Create2Address(deployer, codeHash, common.HexToHash("0x02"), nil))
	require.NotEqual(t, a, Create2Address(deployer, codeHash, salt, []byte{0x01}))
}

func TestCreateIntentToCall(t *testing.T) {
	code := bytes.Repeat([]byte{0x60}, 32)
	wantHash, err := HashBytecode(code)
	require.NoError(t, err)

	tests := []struct {
		name   string
		salt   *common.Hash
		method string
	}{
		{"create", nil, "createAccount"},
		{"create2", &common.Hash{0x42}, "create2Account"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			intent := &CreateIntent{Bytecode: code, Salt: test.salt, Value: big.NewInt(0)}
			call, codeHash, err := intent.ToCall()
			require.NoError(t, err)
			require.Equal(t, wantHash, codeHash)
			require.Equal(t, ContractDeployerAddress, call.To)

			method := contractDeployer.Methods[test.method]
			require.Equal(t, method.ID, call.Data[:4])
			args, err := method.Inputs.Unpack(call.Data[4:])
			require.NoError(t, err)
			require.Len(t, args, 4)
			require.Equal(t, [32]byte(wantHash), args[1])
			require.Equal(t, []byte{}, args[2])
			require.Equal(t, AccountAbstractionVersion1, args[3])
			if test.salt != nil {
				require.Equal(t, [32]byte(*test.salt), args[0])
			} else {
				require.Equal(t, [32]byte{}, args[0])
			}
		})
	}

	_, _, err = (&CreateIntent{Bytecode: []byte{0x60}}).ToCall()
	require.ErrorIs(t, err, ErrMalformedTransaction)
}

func TestDeployedContracts(t *testing.T) {
	deployed := common.HexToAddress("0x63127D9Eb6E2e7e67CF045026dA12B16F712B178")
	logs := []*gethtypes.Log{
		{Address: testToken, Topics: []common.Hash{ContractDeployedTopic, {}, {}, common.BytesToHash(testToken.Bytes())}},
		{
			Address: ContractDeployerAddress,
			Topics: []common.Hash{
				ContractDeployedTopic,
				common.BytesToHash(testAccount.Bytes()),
				common.HexToHash("0x0100"),
				common.BytesToHash(deployed.Bytes()),
			},
		},
		nil,
	}
	require.Equal(t, []common.Address{deployed}, DeployedContracts(logs))
	require.Empty(t, DeployedContracts(nil))
}
