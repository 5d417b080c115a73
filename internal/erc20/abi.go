package erc20

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const metaABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const metaABIBytes32JSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

const balanceOfABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	metaABIString      abi.ABI
	metaABIStringOnce  sync.Once
	metaABIStringErr   error
	metaABIBytes32     abi.ABI
	metaABIBytes32Once sync.Once
	metaABIBytes32Err  error
	balanceOfABI       abi.ABI
	balanceOfOnce      sync.Once
	balanceOfABIErr    error
)

func metaABIStringInstance() (abi.ABI, error) {
	metaABIStringOnce.Do(func() {
		metaABIString, metaABIStringErr = abi.JSON(strings.NewReader(metaABIStringJSON))
	})
	return metaABIString, metaABIStringErr
}

func metaABIBytes32Instance() (abi.ABI, error) {
	metaABIBytes32Once.Do(func() {
		metaABIBytes32, metaABIBytes32Err = abi.JSON(strings.NewReader(metaABIBytes32JSON))
	})
	return metaABIBytes32, metaABIBytes32Err
}

func balanceOfABIInstance() (abi.ABI, error) {
	balanceOfOnce.Do(func() {
		balanceOfABI, balanceOfABIErr = abi.JSON(strings.NewReader(balanceOfABIJSON))
	})
	return balanceOfABI, balanceOfABIErr
}
