// Package e2e drives complete coldsign workflows through the assembled
// command tree: sealing a key into a container, signing with it over every
// input surface, and the keyring-backed passphrase flow. Each invocation is
// checked the way a host program would check it, through the status envelope
// and the exit code.
package e2e

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/systmms/coldsign/internal/config"
	"github.com/systmms/coldsign/internal/crypto"
	"github.com/systmms/coldsign/internal/passphrase"
	"github.com/systmms/coldsign/internal/secure"
	"github.com/systmms/coldsign/pkg/signer"
	"github.com/systmms/coldsign/tests/testutil"
)

// signResult mirrors the signature payload the CLI prints.
type signResult struct {
	Signature      string `json:"signature"`
	PublicIdentity string `json:"public_identity"`
	SignedMessage  string `json:"signed_message"`
}

func decodeSignResult(t *testing.T, env signer.Envelope) signResult {
	t.Helper()
	var res signResult
	require.NoError(t, json.Unmarshal([]byte(env.Payload), &res))
	return res
}

func workflowSeed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i*7 + 1)
	}
	return seed
}

func TestWorkflowSealThenSign(t *testing.T) {
	t.Setenv(passphrase.EnvPassphrase, "")
	t.Setenv(secure.EnvAllowUnlocked, "1")

	seed := workflowSeed()
	wantPub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	message := []byte("release artifact digest 4f2c9a")
	messageB64 := base64.StdEncoding.EncodeToString(message)

	seedPath := testutil.WriteFile(t, "seed.key", seed)
	passPath := testutil.WriteFile(t, "pass", []byte("workflow-passphrase\n"))
	containerPath := filepath.Join(t.TempDir(), "signing.container")

	// Step 1: seal the seed into a container on disk.
	res := testutil.RunCLI(t, nil, "create-container",
		"--key-file", seedPath,
		"--output", containerPath,
		"--passphrase-file", passPath)
	require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)
	require.Equal(t, signer.StatusOK, res.Envelope.StatusCode)

	// The written file is the payload document plus a trailing newline.
	onDisk, err := os.ReadFile(containerPath)
	require.NoError(t, err)
	assert.Equal(t, res.Envelope.Payload+"\n", string(onDisk))

	var doc struct {
		Version        int    `json:"version"`
		PublicIdentity string `json:"public_identity"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Envelope.Payload), &doc))
	assert.Equal(t, 1, doc.Version)
	gotPub, err := base58.Decode(doc.PublicIdentity)
	require.NoError(t, err)
	assert.Equal(t, []byte(wantPub), gotPub)

	// Step 2: sign a message and verify the detached signature.
	res = testutil.RunCLI(t, nil, "sign",
		"--container", containerPath,
		"--message", messageB64,
		"--passphrase-file", passPath)
	require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)
	sig := decodeSignResult(t, res.Envelope)
	assert.Equal(t, doc.PublicIdentity, sig.PublicIdentity)
	assert.Empty(t, sig.SignedMessage)

	sigBytes, err := base58.Decode(sig.Signature)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(wantPub, message, sigBytes))

	// Step 3: envelope mode prepends the tagged signature to the message.
	res = testutil.RunCLI(t, nil, "sign",
		"--container", containerPath,
		"--message", messageB64,
		"--envelope",
		"--passphrase-file", passPath)
	require.Equal(t, 0, res.ExitCode)
	envSig := decodeSignResult(t, res.Envelope)

	signed, err := base64.StdEncoding.DecodeString(envSig.SignedMessage)
	require.NoError(t, err)
	require.Len(t, signed, 1+ed25519.SignatureSize+len(message))
	assert.Equal(t, crypto.EnvelopePrefix, signed[0])
	assert.Equal(t, sigBytes, signed[1:1+ed25519.SignatureSize], "detached and envelope signatures must agree")
	assert.True(t, bytes.Equal(signed[1+ed25519.SignatureSize:], message))

	// Step 4: the container document works on stdin too.
	res = testutil.RunCLI(t, onDisk, "sign",
		"--container", "-",
		"--message", messageB64,
		"--passphrase-file", passPath)
	require.Equal(t, 0, res.ExitCode)
	assert.Equal(t, sig.Signature, decodeSignResult(t, res.Envelope).Signature)

	// Step 5: a wrong passphrase is rejected without producing a signature.
	wrongPath := testutil.WriteFile(t, "wrong", []byte("not-the-passphrase\n"))
	res = testutil.RunCLI(t, nil, "sign",
		"--container", containerPath,
		"--message", messageB64,
		"--passphrase-file", wrongPath)
	assert.Equal(t, signer.StatusCrypto, res.ExitCode)
	assert.Equal(t, signer.StatusCrypto, res.Envelope.StatusCode)
	assert.Contains(t, res.Envelope.Payload, "authentication failed")
}

func TestWorkflowCallInterface(t *testing.T) {
	t.Setenv(passphrase.EnvPassphrase, "")
	t.Setenv(secure.EnvAllowUnlocked, "1")

	seed := workflowSeed()
	message := []byte("the same bytes through every surface")

	// Step 1: create a container through the request interface.
	createReq, err := json.Marshal(map[string]any{
		"action":     "create-container",
		"key":        base64.StdEncoding.EncodeToString(seed),
		"passphrase": "call-interface-pass",
	})
	require.NoError(t, err)

	res := testutil.RunCLI(t, createReq, "sign-stdin")
	require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)
	containerDoc := res.Envelope.Payload

	// Step 2: sign with that container through the request interface.
	signReq, err := json.Marshal(map[string]any{
		"action":     "sign",
		"container":  json.RawMessage(containerDoc),
		"passphrase": "call-interface-pass",
		"message":    base64.StdEncoding.EncodeToString(message),
	})
	require.NoError(t, err)

	res = testutil.RunCLI(t, signReq, "sign-stdin")
	require.Equal(t, 0, res.ExitCode)
	viaContainer := decodeSignResult(t, res.Envelope)

	// Step 3: sign-direct over the CLI must produce the identical signature,
	// because Ed25519 is deterministic and both paths hold the same seed.
	res = testutil.RunCLI(t, seed, "sign-direct",
		"--key-file", "-",
		"--message", base64.StdEncoding.EncodeToString(message))
	require.Equal(t, 0, res.ExitCode)
	direct := decodeSignResult(t, res.Envelope)
	assert.Equal(t, viaContainer.Signature, direct.Signature)
	assert.Equal(t, viaContainer.PublicIdentity, direct.PublicIdentity)

	// Step 4: a capability check answers over the same surface.
	res = testutil.RunCLI(t, []byte(`{"action":"check"}`), "sign-stdin")
	require.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Envelope.Payload, "memory_locking")

	// Step 5: garbage on stdin exits with the serialization status.
	res = testutil.RunCLI(t, []byte("{not json"), "sign-stdin")
	assert.Equal(t, signer.StatusSerialization, res.ExitCode)
	assert.Equal(t, signer.StatusSerialization, res.Envelope.StatusCode)
}

func TestWorkflowKeyringPassphrase(t *testing.T) {
	keyring.MockInit()
	t.Setenv(passphrase.EnvPassphrase, "")
	t.Setenv(secure.EnvAllowUnlocked, "1")

	const account = "release-bot"
	seedPath := testutil.WriteFile(t, "seed.key", workflowSeed())
	passPath := testutil.WriteFile(t, "pass", []byte("keyring-held-pass\n"))
	containerPath := filepath.Join(t.TempDir(), "signing.container")

	// Step 1: store the passphrase under a named account.
	res := testutil.RunCLI(t, nil, "login",
		"--account", account,
		"--passphrase-file", passPath)
	require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)

	stored, err := keyring.Get(config.DefaultKeyringService, account)
	require.NoError(t, err)
	assert.Equal(t, "keyring-held-pass", stored)

	// Step 2: seal a container using the same passphrase file.
	res = testutil.RunCLI(t, nil, "create-container",
		"--key-file", seedPath,
		"--output", containerPath,
		"--passphrase-file", passPath)
	require.Equal(t, 0, res.ExitCode)

	// Step 3: sign with the passphrase fetched from the keyring.
	res = testutil.RunCLI(t, nil, "sign",
		"--container", containerPath,
		"--message", base64.StdEncoding.EncodeToString([]byte("keyring flow")),
		"--keyring-account", account)
	require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)
	assert.NotEmpty(t, decodeSignResult(t, res.Envelope).Signature)

	// Step 4: after logout the named account is gone and signing reports a
	// missing passphrase source.
	res = testutil.RunCLI(t, nil, "logout", "--account", account)
	require.Equal(t, 0, res.ExitCode)

	res = testutil.RunCLI(t, nil, "sign",
		"--container", containerPath,
		"--message", base64.StdEncoding.EncodeToString([]byte("keyring flow")),
		"--keyring-account", account)
	assert.Equal(t, signer.StatusMissingInput, res.ExitCode)
	assert.Contains(t, res.Envelope.Payload, account)
}

func TestWorkflowConfigShapesDefaults(t *testing.T) {
	keyring.MockInit()
	t.Setenv(passphrase.EnvPassphrase, "")
	t.Setenv(secure.EnvAllowUnlocked, "1")

	// A configured keyring account makes sign consult the keyring without
	// naming the account on the command line.
	configPath := testutil.WriteTestConfig(t, fmt.Sprintf(`
version: 0
keyring:
  service: %s
  account: configured-account
output:
  no_color: true
`, config.DefaultKeyringService))

	require.NoError(t, keyring.Set(config.DefaultKeyringService, "configured-account", "configured-pass"))

	seedPath := testutil.WriteFile(t, "seed.key", workflowSeed())
	containerPath := filepath.Join(t.TempDir(), "signing.container")

	passPath := testutil.WriteFile(t, "pass", []byte("configured-pass\n"))
	res := testutil.RunCLIWithConfig(t, configPath, nil, "create-container",
		"--key-file", seedPath,
		"--output", containerPath,
		"--passphrase-file", passPath)
	require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)

	res = testutil.RunCLIWithConfig(t, configPath, nil, "sign",
		"--container", containerPath,
		"--message", base64.StdEncoding.EncodeToString([]byte("config driven")))
	require.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)
	assert.NotEmpty(t, decodeSignResult(t, res.Envelope).Signature)
}
