package fhe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog/log"
	"github.com/tuneinsight/lattigo/v4/bfv"
	"github.com/tuneinsight/lattigo/v4/rlwe"

	"github.com/cipherstake/staking-ledger/internal/config"
)

const (
	// Amounts are encoded base-2^8, one limb per plaintext slot. 32 limbs
	// give the full 256-bit bookkeeping width.
	limbCount = 32
	limbBits  = 8
	limbMax   = (1 << limbBits) - 1

	// NTT-friendly plaintext modulus (1 mod 2N for the PN12 ring), large
	// enough to keep limbs carry-free across many folds.
	plaintextModulus = 0x3ee0001

	handleDomainTag = "staking-ledger/cipher/v1"
)

// BFVEngine implements KeyedEngine on the BFV scheme. Homomorphic adds and
// subtracts are slot-wise on the limb encoding; limbs are never carried while
// encrypted, so each record tracks how many fresh encryptions were folded
// into it and combine refuses once slot headroom would run out.
//
// The lattigo primitives are not safe for concurrent use; the engine
// serializes them behind a mutex.
type BFVEngine struct {
	mu     sync.Mutex
	params bfv.Parameters
	ecd    bfv.Encoder
	enc    rlwe.Encryptor
	dec    rlwe.Decryptor
	eval   bfv.Evaluator

	store    CipherStore
	maxDepth int64
}

// NewBFVEngine loads the keyset from cfg.KeyFile, generating and persisting a
// fresh one if the file does not exist yet, and wires the engine to store.
func NewBFVEngine(cfg *config.FheConfig, store CipherStore) (*BFVEngine, error) {
	if cfg == nil {
		return nil, errors.New("fhe config is required")
	}
	if store == nil {
		return nil, errors.New("cipher store is required")
	}

	params, sk, pk, err := loadOrGenerateKeys(cfg.KeyFile)
	if err != nil {
		return nil, err
	}

	return &BFVEngine{
		params:   params,
		ecd:      bfv.NewEncoder(params),
		enc:      bfv.NewEncryptor(params, pk),
		dec:      bfv.NewDecryptor(params, sk),
		eval:     bfv.NewEvaluator(params, rlwe.EvaluationKey{}),
		store:    store,
		maxDepth: int64(params.T()/2) / limbMax,
	}, nil
}

func (e *BFVEngine) Encrypt(ctx context.Context, amount uint64) (Handle, error) {
	e.mu.Lock()
	pt := bfv.NewPlaintext(e.params, e.params.MaxLevel())
	e.ecd.Encode(encodeLimbs(uint256.NewInt(amount)), pt)
	ct := e.enc.EncryptNew(pt)
	e.mu.Unlock()

	return e.saveCiphertext(ctx, ct, 1)
}

func (e *BFVEngine) Add(ctx context.Context, a, b Handle) (Handle, error) {
	return e.combine(ctx, a, b, false)
}

func (e *BFVEngine) Subtract(ctx context.Context, a, b Handle) (Handle, error) {
	return e.combine(ctx, a, b, true)
}

func (e *BFVEngine) IsInitialized(ctx context.Context, h Handle) (bool, error) {
	if h.IsZero() {
		return false, nil
	}

	_, err := e.store.GetCipher(ctx, h)
	switch {
	case errors.Is(err, ErrUnknownHandle):
		return false, nil
	case err != nil:
		return false, err
	}

	return true, nil
}

func (e *BFVEngine) Allow(ctx context.Context, h Handle, principal string) error {
	if h.IsZero() {
		return fmt.Errorf("%w: zero handle", ErrUnknownHandle)
	}
	if principal == "" {
		return errors.New("empty principal")
	}

	return e.store.GrantDecrypt(ctx, h, principal)
}

// Decrypt returns the value behind h. Principals are matched verbatim against
// the ACL, so callers pass checksummed addresses.
func (e *BFVEngine) Decrypt(ctx context.Context, h Handle, principal string) (*uint256.Int, error) {
	rec, err := e.loadRecord(ctx, h)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(rec.ACL, principal) {
		return nil, fmt.Errorf("%w: %s on %s", ErrDecryptDenied, principal, h)
	}

	ct, err := unmarshalCiphertext(rec.Data)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	pt := e.dec.DecryptNew(ct)
	limbs := e.ecd.DecodeIntNew(pt)
	e.mu.Unlock()

	return decodeLimbs(limbs)
}

func (e *BFVEngine) combine(ctx context.Context, a, b Handle, subtract bool) (Handle, error) {
	ra, err := e.loadRecord(ctx, a)
	if err != nil {
		return Handle{}, err
	}
	rb, err := e.loadRecord(ctx, b)
	if err != nil {
		return Handle{}, err
	}

	depth := ra.Depth + rb.Depth
	if depth > e.maxDepth {
		return Handle{}, fmt.Errorf("%w: fold depth %d over limit %d", ErrCapacityExceeded, depth, e.maxDepth)
	}

	cta, err := unmarshalCiphertext(ra.Data)
	if err != nil {
		return Handle{}, err
	}
	ctb, err := unmarshalCiphertext(rb.Data)
	if err != nil {
		return Handle{}, err
	}

	e.mu.Lock()
	var ct *rlwe.Ciphertext
	if subtract {
		ct = e.eval.SubNew(cta, ctb)
	} else {
		ct = e.eval.AddNew(cta, ctb)
	}
	e.mu.Unlock()

	return e.saveCiphertext(ctx, ct, depth)
}

func (e *BFVEngine) loadRecord(ctx context.Context, h Handle) (*CipherRecord, error) {
	if h.IsZero() {
		return nil, fmt.Errorf("%w: zero handle", ErrUnknownHandle)
	}

	return e.store.GetCipher(ctx, h)
}

func (e *BFVEngine) saveCiphertext(ctx context.Context, ct *rlwe.Ciphertext, depth int64) (Handle, error) {
	data, err := ct.MarshalBinary()
	if err != nil {
		return Handle{}, fmt.Errorf("marshal ciphertext: %w", err)
	}

	h := deriveHandle(data)
	err = e.store.SaveCipher(ctx, &CipherRecord{
		Handle: h,
		Data:   data,
		Depth:  depth,
	})
	if err != nil {
		return Handle{}, err
	}

	return h, nil
}

// deriveHandle fingerprints the serialized ciphertext. Encryption is
// randomized, so two ciphertexts never share bytes.
func deriveHandle(data []byte) Handle {
	return Handle(crypto.Keccak256Hash([]byte(handleDomainTag), data))
}

func unmarshalCiphertext(data []byte) (*rlwe.Ciphertext, error) {
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("unmarshal ciphertext: %w", err)
	}

	return ct, nil
}

func encodeLimbs(v *uint256.Int) []uint64 {
	bytes := v.Bytes32()
	limbs := make([]uint64, limbCount)
	for i := range limbs {
		limbs[i] = uint64(bytes[31-i])
	}

	return limbs
}

// decodeLimbs recomposes a decrypted limb vector. Limbs come back centered
// (signed), so the sum is taken in big.Int before narrowing to uint256.
func decodeLimbs(limbs []int64) (*uint256.Int, error) {
	acc := new(big.Int)
	for i := limbCount - 1; i >= 0; i-- {
		acc.Lsh(acc, limbBits)
		acc.Add(acc, big.NewInt(limbs[i]))
	}

	if acc.Sign() < 0 {
		return nil, fmt.Errorf("decrypted value is negative: %s", acc)
	}
	v, overflow := uint256.FromBig(acc)
	if overflow {
		return nil, fmt.Errorf("%w: decoded value over 256 bits", ErrCapacityExceeded)
	}

	return v, nil
}

type keyFile struct {
	Params    []byte `json:"params"`
	SecretKey []byte `json:"secret_key"`
	PublicKey []byte `json:"public_key"`
}

func loadOrGenerateKeys(path string) (bfv.Parameters, *rlwe.SecretKey, *rlwe.PublicKey, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return decodeKeyFile(data)
	case errors.Is(err, os.ErrNotExist):
		return generateKeys(path)
	default:
		return bfv.Parameters{}, nil, nil, fmt.Errorf("read key file: %w", err)
	}
}

func decodeKeyFile(data []byte) (bfv.Parameters, *rlwe.SecretKey, *rlwe.PublicKey, error) {
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return bfv.Parameters{}, nil, nil, fmt.Errorf("decode key file: %w", err)
	}

	var params bfv.Parameters
	if err := params.UnmarshalBinary(kf.Params); err != nil {
		return bfv.Parameters{}, nil, nil, fmt.Errorf("unmarshal params: %w", err)
	}
	sk := new(rlwe.SecretKey)
	if err := sk.UnmarshalBinary(kf.SecretKey); err != nil {
		return bfv.Parameters{}, nil, nil, fmt.Errorf("unmarshal secret key: %w", err)
	}
	pk := new(rlwe.PublicKey)
	if err := pk.UnmarshalBinary(kf.PublicKey); err != nil {
		return bfv.Parameters{}, nil, nil, fmt.Errorf("unmarshal public key: %w", err)
	}

	return params, sk, pk, nil
}

func generateKeys(path string) (bfv.Parameters, *rlwe.SecretKey, *rlwe.PublicKey, error) {
	literal := bfv.PN12QP109
	literal.T = plaintextModulus

	params, err := bfv.NewParametersFromLiteral(literal)
	if err != nil {
		return bfv.Parameters{}, nil, nil, fmt.Errorf("build params: %w", err)
	}
	sk, pk := bfv.NewKeyGenerator(params).GenKeyPair()

	paramsData, err := params.MarshalBinary()
	if err != nil {
		return bfv.Parameters{}, nil, nil, fmt.Errorf("marshal params: %w", err)
	}
	skData, err := sk.MarshalBinary()
	if err != nil {
		return bfv.Parameters{}, nil, nil, fmt.Errorf("marshal secret key: %w", err)
	}
	pkData, err := pk.MarshalBinary()
	if err != nil {
		return bfv.Parameters{}, nil, nil, fmt.Errorf("marshal public key: %w", err)
	}

	data, err := json.Marshal(keyFile{
		Params:    paramsData,
		SecretKey: skData,
		PublicKey: pkData,
	})
	if err != nil {
		return bfv.Parameters{}, nil, nil, fmt.Errorf("encode key file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return bfv.Parameters{}, nil, nil, fmt.Errorf("write key file: %w", err)
	}
	log.Warn().Str("path", path).Msg("generated new BFV keyset")

	return params, sk, pk, nil
}
