package sql

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/weave-gateway/chainindex/store"
)

func newTestStore(t *testing.T) *SQL {
	s, err := New(Config{Memory: true})
	require.NoError(t, err)
	return s
}

// blockHash and txID derive deterministic, collision-free ids from a seed
// string via a namespaced UUIDv3, rather than padding/truncating raw bytes
// by hand.
func blockHash(seed string) []byte {
	id := uuid.NewMD5(uuid.NameSpaceOID, []byte("block:"+seed))
	return id[:]
}

func txID(seed string) []byte {
	id := uuid.NewMD5(uuid.NameSpaceOID, []byte("tx:"+seed))
	return id[:]
}

func modulus(seed string) []byte {
	id := uuid.NewMD5(uuid.NameSpaceOID, []byte("modulus:"+seed))
	return id[:]
}

// testBlock builds a minimal, self-consistent pending block at height with
// the given transaction ids; which of them are fetched and which missing is
// decided by the arguments the caller passes to SaveBlockAndTxs.
func testBlock(height int64, hashSeed string, txIDs ...[]byte) *store.Block {
	return &store.Block{
		Height:                       height,
		IndepHash:                    blockHash(hashSeed),
		PreviousBlock:                blockHash("prev-" + hashSeed),
		Nonce:                        []byte("nonce"),
		Hash:                         blockHash("pow-" + hashSeed),
		Timestamp:                    1700000000 + height,
		Diff:                         "115792089237316195423570985008687907853269984665640564039457584007913129639935",
		CumulativeDiff:               "42",
		LastRetarget:                 1700000000,
		RewardAddr:                   nil,
		RewardPool:                   "1000",
		BlockSize:                    "999",
		WeaveSize:                    "123456789012345",
		UsdToArRateDividend:          "4",
		UsdToArRateDivisor:           "1",
		ScheduledUsdToArRateDividend: "4",
		ScheduledUsdToArRateDivisor:  "1",
		HashListMerkle:               nil,
		WalletList:                  blockHash("wallets-" + hashSeed),
		TxRoot:                       blockHash("txroot-" + hashSeed),
		TxIDs:                        txIDs,
		Tags: []store.Tag{
			{Name: "Block-Tag", Value: hashSeed},
		},
	}
}

// testTx builds a minimal pending transaction with the given id and tags.
func testTx(id []byte, ownerSeed string, tags ...store.Tag) *store.Transaction {
	return &store.Transaction{
		ID:           id,
		Signature:    []byte("sig-" + ownerSeed),
		Format:       2,
		LastTx:       nil,
		OwnerModulus: modulus(ownerSeed),
		Target:       nil,
		Quantity:     "0",
		Reward:       "57082830",
		DataSize:     "1234",
		DataRoot:     []byte("dataroot-" + ownerSeed),
		Tags:         tags,
	}
}
