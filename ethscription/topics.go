package ethscription

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Event signatures for the three ESIP event variants the extractor
// recognizes (spec.md §4.C rules 5-7). Topic hashes are computed once at
// package init rather than hardcoded, so the signature strings stay the
// single source of truth.
const (
	createEthscriptionSig           = "ethscriptions_protocol_CreateEthscription(address,bytes)"
	transferEthscriptionSig         = "ethscriptions_protocol_TransferEthscription(address,bytes32)"
	transferEthscriptionForPrevSig  = "ethscriptions_protocol_TransferEthscriptionForPreviousOwner(address,address,bytes32)"
)

var (
	// TopicCreateEthscription is topics[0] for an ESIP-3 create event.
	// Expected shape: 2 topics (signature, initial_owner); content URI is
	// ABI-decoded from log data.
	TopicCreateEthscription = crypto.Keccak256Hash([]byte(createEthscriptionSig))

	// TopicESIP1Transfer is topics[0] for an ESIP-1 transfer event.
	// Expected shape: 3 topics (signature, recipient, ethscription id).
	TopicESIP1Transfer = crypto.Keccak256Hash([]byte(transferEthscriptionSig))

	// TopicESIP2Transfer is topics[0] for an ESIP-2
	// transfer-for-previous-owner event. Expected shape: 4 topics
	// (signature, previous_owner, recipient, ethscription id).
	TopicESIP2Transfer = crypto.Keccak256Hash([]byte(transferEthscriptionForPrevSig))
)

// topicToAddress decodes a 32-byte event topic holding a left-zero-padded
// address, the standard Solidity indexed-address encoding.
func topicToAddress(t common.Hash) common.Address {
	return common.BytesToAddress(t[12:])
}
