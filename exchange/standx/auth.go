package standx

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"gridx/logger"
)

const authBaseURL = "https://api.standx.com"

// Auth handles the two-layer StandX authentication: an EIP-191 wallet
// signin that yields a JWT bearer token, plus a per-request ED25519
// signature over every trading call. The ED25519 keypair is generated
// fresh per process and registered with the signin via its base58-encoded
// public key.
type Auth struct {
	chain      string
	privateKey *ecdsa.PrivateKey
	walletAddr string
	baseURL    string
	client     *http.Client

	signingKey ed25519.PrivateKey
	requestID  string // base58(ed25519 public key)

	mu       sync.Mutex
	jwtToken string
}

// NewAuth parses the wallet private key and prepares the request signing
// keypair. The wallet address is derived from the key.
func NewAuth(privateKeyHex, chain string) (*Auth, error) {
	privateKeyHex = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(privateKeyHex)), "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	walletAddr := crypto.PubkeyToAddress(*privateKey.Public().(*ecdsa.PublicKey)).Hex()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate request signing key: %w", err)
	}

	if chain == "" {
		chain = "bsc"
	}

	return &Auth{
		chain:      chain,
		privateKey: privateKey,
		walletAddr: walletAddr,
		baseURL:    authBaseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		signingKey: priv,
		requestID:  base58.Encode(pub),
	}, nil
}

// WalletAddress returns the checksummed wallet address derived from the
// private key.
func (a *Auth) WalletAddress() string {
	return a.walletAddr
}

// Authenticate performs the signin handshake and returns the JWT bearer
// token. The token is cached; subsequent calls are cheap.
func (a *Auth) Authenticate() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.jwtToken != "" {
		return a.jwtToken, nil
	}

	// Step 1: request the message to sign
	signedData, err := a.prepareSignin()
	if err != nil {
		return "", fmt.Errorf("failed to prepare signin: %w", err)
	}

	// Step 2: the message lives in the signedData JWT payload
	payload, err := parseJWTPayload(signedData)
	if err != nil {
		return "", fmt.Errorf("failed to parse signin data: %w", err)
	}
	message, _ := payload["message"].(string)
	if message == "" {
		return "", fmt.Errorf("signin data contains no message to sign")
	}

	// Step 3: sign with the wallet key (EIP-191)
	signature, err := a.signMessage(message)
	if err != nil {
		return "", fmt.Errorf("failed to sign login message: %w", err)
	}

	// Step 4: exchange signature for the bearer token
	token, err := a.login(signature, signedData)
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}

	a.jwtToken = token
	logger.Infof("✓ StandX JWT token obtained (wallet=%s)", a.walletAddr)
	return token, nil
}

// SignRequest produces the per-request signature headers over the given
// payload (JSON body for POSTs, sorted query string for GETs).
func (a *Auth) SignRequest(payload string) map[string]string {
	const version = "v1"
	requestID := uuid.New().String()
	timestamp := time.Now().UnixMilli()

	// Message to sign: "{version},{id},{timestamp},{payload}"
	message := fmt.Sprintf("%s,%s,%d,%s", version, requestID, timestamp, payload)
	signature := ed25519.Sign(a.signingKey, []byte(message))

	return map[string]string{
		"x-request-sign-version": version,
		"x-request-id":           requestID,
		"x-request-timestamp":    fmt.Sprintf("%d", timestamp),
		"x-request-signature":    base64.StdEncoding.EncodeToString(signature),
	}
}

func (a *Auth) prepareSignin() (string, error) {
	url := fmt.Sprintf("%s/v1/offchain/prepare-signin?chain=%s", a.baseURL, a.chain)
	body, err := a.postJSON(url, map[string]string{
		"address":   a.walletAddr,
		"requestId": a.requestID,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Success    bool   `json:"success"`
		SignedData string `json:"signedData"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse prepare-signin response: %w", err)
	}
	if !result.Success || result.SignedData == "" {
		return "", fmt.Errorf("prepare-signin rejected: %s", string(body))
	}
	return result.SignedData, nil
}

func (a *Auth) login(signature, signedData string) (string, error) {
	url := fmt.Sprintf("%s/v1/offchain/login?chain=%s", a.baseURL, a.chain)
	body, err := a.postJSON(url, map[string]interface{}{
		"signature":      signature,
		"signedData":     signedData,
		"expiresSeconds": 604800, // one week
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse login response: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("login response carries no token: %s", string(body))
	}
	return result.Token, nil
}

// signMessage signs with the Ethereum personal-sign format (EIP-191).
func (a *Auth) signMessage(message string) (string, error) {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	hash := crypto.Keccak256Hash(append([]byte(prefix), message...))

	signature, err := crypto.Sign(hash.Bytes(), a.privateKey)
	if err != nil {
		return "", err
	}

	// Adjust v value (Ethereum format)
	if signature[64] < 27 {
		signature[64] += 27
	}
	return "0x" + hex.EncodeToString(signature), nil
}

func (a *Auth) postJSON(url string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// parseJWTPayload decodes the claims segment of a JWT without verifying it;
// the signin data is only a carrier for the message to sign.
func parseJWTPayload(token string) (map[string]interface{}, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid JWT format")
	}

	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode JWT payload: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JWT payload: %w", err)
	}
	return payload, nil
}
