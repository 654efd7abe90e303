package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// sessionServerJoinURL is Mojang's join-server endpoint. The proxy is
// the "client" side of this handshake: it proves to Mojang (and
// transitively to the real server, which calls the sibling
// hasJoined endpoint) that it holds a valid session for this profile.
const sessionServerJoinURL = "https://sessionserver.mojang.com/session/minecraft/join"

// CachedAuthenticator is an in-memory Authenticator backed by a single
// previously-obtained Microsoft/Mojang session. The device-code OAuth
// flow itself is out of scope (spec.md §1); callers populate a
// CachedAuthenticator from whatever token cache AuthMicrosoft resolves
// (a file, a keychain entry) before handing it to the proxy.
type CachedAuthenticator struct {
	DisplayName  string
	UUID         uuid.UUID
	AccessToken  string
	ProfilePublicKey  []byte
	ProfilePrivateKey *rsa.PrivateKey
	ProfileKeyTimestamp int64
	ProfileKeySignature []byte

	httpClient *fasthttp.Client
}

// NewCachedAuthenticator wraps an already-obtained session. httpClient
// may be nil, in which case a default fasthttp.Client is constructed.
func NewCachedAuthenticator(displayName string, id uuid.UUID, accessToken string, httpClient *fasthttp.Client) *CachedAuthenticator {
	if httpClient == nil {
		httpClient = &fasthttp.Client{Name: "sniffcraft"}
	}
	return &CachedAuthenticator{DisplayName: displayName, UUID: id, AccessToken: accessToken, httpClient: httpClient}
}

func (a *CachedAuthenticator) AuthMicrosoft(cacheKey string) (bool, error) {
	// The cached session is assumed already loaded by whatever
	// constructed this Authenticator; nothing to refresh here beyond
	// acknowledging the cache key was honored.
	return a.AccessToken != "", nil
}

func (a *CachedAuthenticator) PlayerDisplayName() string      { return a.DisplayName }
func (a *CachedAuthenticator) PlayerUUID() uuid.UUID          { return a.UUID }
func (a *CachedAuthenticator) PublicKey() []byte              { return a.ProfilePublicKey }
func (a *CachedAuthenticator) PrivateKey() *rsa.PrivateKey     { return a.ProfilePrivateKey }
func (a *CachedAuthenticator) KeyTimestamp() int64             { return a.ProfileKeyTimestamp }
func (a *CachedAuthenticator) KeySignature() []byte            { return a.ProfileKeySignature }

// SignMessage signs a chat message the way the real client would: over
// the message text, its position in this connection's signing
// sequence, the chat session uuid, and the signatures of every message
// the server has told us it has seen. The timestamp/salt pair is fresh
// per call.
func (a *CachedAuthenticator) SignMessage(text string, index int64, sessionUUID uuid.UUID, lastSeenSignatures [][]byte) (signature []byte, salt int64, timestamp int64, err error) {
	if a.ProfilePrivateKey == nil {
		return nil, 0, 0, fmt.Errorf("auth: no profile private key loaded, cannot sign chat")
	}
	saltBytes := make([]byte, 8)
	if _, err := rand.Read(saltBytes); err != nil {
		return nil, 0, 0, fmt.Errorf("auth: generate chat salt: %w", err)
	}
	saltVal := int64(binary.BigEndian.Uint64(saltBytes))
	ts := time.Now().UnixMilli()

	h := sha256.New()
	_ = binary.Write(h, binary.BigEndian, saltVal)
	_ = binary.Write(h, binary.BigEndian, ts/1000)
	sessionBytes, _ := sessionUUID.MarshalBinary()
	h.Write(sessionBytes)
	_ = binary.Write(h, binary.BigEndian, index)
	h.Write([]byte(text))
	for _, sig := range lastSeenSignatures {
		h.Write(sig)
	}
	digest := h.Sum(nil)

	sig, err := rsa.SignPKCS1v15(rand.Reader, a.ProfilePrivateKey, 0, digest)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("auth: sign chat message: %w", err)
	}
	return sig, saltVal, ts, nil
}

func (a *CachedAuthenticator) JoinServer(serverID string, sharedSecret, serverPublicKey []byte) error {
	hash := serverHash(serverID, sharedSecret, serverPublicKey)

	body, err := json.Marshal(struct {
		AccessToken     string `json:"accessToken"`
		SelectedProfile string `json:"selectedProfile"`
		ServerID        string `json:"serverId"`
	}{
		AccessToken:     a.AccessToken,
		SelectedProfile: strings.ReplaceAll(a.UUID.String(), "-", ""),
		ServerID:        hash,
	})
	if err != nil {
		return fmt.Errorf("auth: marshal join request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(sessionServerJoinURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := a.httpClient.DoTimeout(req, resp, 10*time.Second); err != nil {
		return fmt.Errorf("auth: join server request: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusNoContent && resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("auth: join server rejected, status %d: %s", resp.StatusCode(), resp.Body())
	}
	return nil
}
