package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"community-gov.backend/internal/domain/entities"
	domainerrors "community-gov.backend/internal/domain/errors"
)

// governanceRegistryABI is the read surface of the on-chain governance
// registry. Every getter carries an `exists` flag so absence is an
// explicit answer, distinct from an RPC failure.
const governanceRegistryABI = `[
	{"name":"getCommunity","type":"function","stateMutability":"view",
		"inputs":[{"name":"id","type":"string"}],
		"outputs":[{"name":"name","type":"string"},{"name":"description","type":"string"},{"name":"config","type":"string"},{"name":"blockNumber","type":"uint64"},{"name":"exists","type":"bool"}]},
	{"name":"getMembership","type":"function","stateMutability":"view",
		"inputs":[{"name":"communityId","type":"string"},{"name":"member","type":"address"}],
		"outputs":[{"name":"role","type":"string"},{"name":"active","type":"bool"},{"name":"exists","type":"bool"}]},
	{"name":"getQuestion","type":"function","stateMutability":"view",
		"inputs":[{"name":"id","type":"string"}],
		"outputs":[{"name":"title","type":"string"},{"name":"description","type":"string"},{"name":"options","type":"string[]"},{"name":"deadline","type":"uint256"},{"name":"active","type":"bool"},{"name":"blockNumber","type":"uint64"},{"name":"exists","type":"bool"}]},
	{"name":"getVote","type":"function","stateMutability":"view",
		"inputs":[{"name":"questionId","type":"string"},{"name":"voter","type":"address"}],
		"outputs":[{"name":"voteData","type":"string"},{"name":"signature","type":"string"},{"name":"exists","type":"bool"}]}
]`

var (
	registryABI = mustParseABI(governanceRegistryABI)

	dialEVMClient    = ethclient.Dial
	getClientChainID = func(client *ethclient.Client, ctx context.Context) (*big.Int, error) {
		return client.ChainID(ctx)
	}
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// EVMChainReader reads governance state from an EVM registry contract.
type EVMChainReader struct {
	client   *ethclient.Client
	chainID  *big.Int
	rpcURL   string
	registry common.Address
	timeout  time.Duration

	// testCallView allows deterministic unit tests without network sockets.
	testCallView func(ctx context.Context, to string, data []byte) ([]byte, error)
	// testAccountState mirrors testCallView for AccountExists.
	testAccountState func(ctx context.Context, address string) (uint64, *big.Int, error)
}

// NewEVMChainReader dials an RPC endpoint and binds the registry address
func NewEVMChainReader(rpcURL, registryAddress string, timeout time.Duration) (*EVMChainReader, error) {
	client, err := dialEVMClient(rpcURL)
	if err != nil {
		return nil, err
	}

	chainID, err := getClientChainID(client, context.Background())
	if err != nil {
		return nil, err
	}

	return &EVMChainReader{
		client:   client,
		chainID:  chainID,
		rpcURL:   rpcURL,
		registry: common.HexToAddress(registryAddress),
		timeout:  timeout,
	}, nil
}

// NewEVMChainReaderWithCallView creates a reader that uses injected view
// functions. Intended for unit tests where RPC sockets are unavailable.
func NewEVMChainReaderWithCallView(
	callViewFn func(ctx context.Context, to string, data []byte) ([]byte, error),
	accountStateFn func(ctx context.Context, address string) (uint64, *big.Int, error),
) *EVMChainReader {
	return &EVMChainReader{
		chainID:          big.NewInt(1),
		timeout:          time.Second,
		testCallView:     callViewFn,
		testAccountState: accountStateFn,
	}
}

// ChainID returns the chain ID
func (c *EVMChainReader) ChainID() *big.Int {
	return c.chainID
}

// GetCommunityData returns the authoritative community record
func (c *EVMChainReader) GetCommunityData(ctx context.Context, onChainID string) (*entities.CommunityRecord, error) {
	vals, err := c.callRegistry(ctx, "getCommunity", onChainID)
	if err != nil {
		return nil, err
	}

	name, _ := vals[0].(string)
	description, _ := vals[1].(string)
	config, _ := vals[2].(string)
	blockNumber, _ := vals[3].(uint64)
	exists, _ := vals[4].(bool)
	if !exists {
		return nil, domainerrors.ErrNotFound
	}

	return &entities.CommunityRecord{
		Name:        name,
		Description: description,
		Config:      config,
		BlockNumber: int64(blockNumber),
	}, nil
}

// GetMembershipData returns the authoritative membership record
func (c *EVMChainReader) GetMembershipData(ctx context.Context, onChainID, walletAddress string) (*entities.MembershipRecord, error) {
	vals, err := c.callRegistry(ctx, "getMembership", onChainID, common.HexToAddress(walletAddress))
	if err != nil {
		return nil, err
	}

	role, _ := vals[0].(string)
	active, _ := vals[1].(bool)
	exists, _ := vals[2].(bool)
	if !exists {
		return nil, domainerrors.ErrNotFound
	}

	status := string(entities.StatusActive)
	if !active {
		status = string(entities.StatusInactive)
	}
	return &entities.MembershipRecord{Role: role, Status: status}, nil
}

// GetQuestionData returns the authoritative voting question record
func (c *EVMChainReader) GetQuestionData(ctx context.Context, onChainID string) (*entities.QuestionRecord, error) {
	vals, err := c.callRegistry(ctx, "getQuestion", onChainID)
	if err != nil {
		return nil, err
	}

	title, _ := vals[0].(string)
	description, _ := vals[1].(string)
	options, _ := vals[2].([]string)
	deadline, _ := vals[3].(*big.Int)
	active, _ := vals[4].(bool)
	blockNumber, _ := vals[5].(uint64)
	exists, _ := vals[6].(bool)
	if !exists {
		return nil, domainerrors.ErrNotFound
	}

	record := &entities.QuestionRecord{
		Title:       title,
		Description: description,
		Options:     options,
		Active:      active,
		BlockNumber: int64(blockNumber),
	}
	if deadline != nil {
		record.Deadline = time.Unix(deadline.Int64(), 0).UTC()
	}
	return record, nil
}

// GetVoteData returns the authoritative vote record
func (c *EVMChainReader) GetVoteData(ctx context.Context, onChainID, walletAddress string) (*entities.VoteRecord, error) {
	vals, err := c.callRegistry(ctx, "getVote", onChainID, common.HexToAddress(walletAddress))
	if err != nil {
		return nil, err
	}

	voteData, _ := vals[0].(string)
	signature, _ := vals[1].(string)
	exists, _ := vals[2].(bool)
	if !exists {
		return nil, domainerrors.ErrNotFound
	}

	return &entities.VoteRecord{VoteData: voteData, Signature: signature}, nil
}

// AccountExists reports whether a wallet has any on-chain activity
func (c *EVMChainReader) AccountExists(ctx context.Context, walletAddress string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.testAccountState != nil {
		nonce, balance, err := c.testAccountState(ctx, walletAddress)
		if err != nil {
			return false, fmt.Errorf("%w: %v", domainerrors.ErrChainUnavailable, err)
		}
		return nonce > 0 || (balance != nil && balance.Sign() > 0), nil
	}

	addr := common.HexToAddress(walletAddress)
	nonce, err := c.client.NonceAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domainerrors.ErrChainUnavailable, err)
	}
	if nonce > 0 {
		return true, nil
	}

	balance, err := c.client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domainerrors.ErrChainUnavailable, err)
	}
	return balance.Sign() > 0, nil
}

// Close closes the client connection
func (c *EVMChainReader) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *EVMChainReader) callRegistry(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := registryABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.callView(ctx, c.registry.Hex(), data)
	if err != nil {
		// Timeouts and RPC failures are transient; only an explicit
		// exists=false answer means not found.
		return nil, fmt.Errorf("%w: %s: %v", domainerrors.ErrChainUnavailable, method, err)
	}

	vals, err := registryABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domainerrors.ErrChainUnavailable, method, err)
	}
	return vals, nil
}

func (c *EVMChainReader) callView(ctx context.Context, to string, data []byte) ([]byte, error) {
	if c.testCallView != nil {
		return c.testCallView(ctx, to, data)
	}
	addr := common.HexToAddress(to)
	msg := ethereum.CallMsg{
		To:   &addr,
		Data: data,
	}
	return c.client.CallContract(ctx, msg, nil)
}
