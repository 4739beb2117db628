package deployer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is a compiled contract: its ABI and creation bytecode.
type Artifact struct {
	ABI      abi.ABI
	Bytecode []byte
}

type artifactJSON struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`
}

// LoadArtifact reads a compiler output file. The bytecode may be a plain hex
// string or an object with an "object" field.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return ParseArtifact(data)
}

func ParseArtifact(data []byte) (*Artifact, error) {
	var raw artifactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if len(raw.ABI) == 0 {
		return nil, errors.New("artifact has no abi")
	}
	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifact abi: %w", err)
	}
	code, err := parseBytecode(raw.Bytecode)
	if err != nil {
		return nil, err
	}
	return &Artifact{ABI: parsed, Bytecode: code}, nil
}

func parseBytecode(raw json.RawMessage) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, errors.New("artifact bytecode is neither a string nor an object")
		}
		s = obj.Object
	}
	if s == "" || s == "0x" {
		return nil, errors.New("artifact has no bytecode")
	}
	if len(s) < 2 || s[:2] != "0x" {
		s = "0x" + s
	}
	code, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact bytecode: %w", err)
	}
	return code, nil
}
